package service

import (
	"errors"

	"hive/internal/pkg/auth"
	"hive/internal/repository"
	pkgErrors "hive/pkg/responses"
)

// AuthorizationService 基于工作区成员角色做权限判断
//
// 角色 -> 权限 的映射写死在 internal/pkg/auth 中，匹配支持通配符。
type AuthorizationService interface {
	// HasWorkspacePermission 判断用户在指定工作区是否拥有某个权限
	HasWorkspacePermission(username string, workspaceID int64, perm auth.Permission) (bool, error)
}

type authorizationService struct {
	memberRepo *repository.WorkspaceMemberRepository
}

// NewAuthorizationService 创建 AuthorizationService
func NewAuthorizationService(memberRepo *repository.WorkspaceMemberRepository) AuthorizationService {
	return &authorizationService{memberRepo: memberRepo}
}

func (s *authorizationService) HasWorkspacePermission(username string, workspaceID int64, perm auth.Permission) (bool, error) {
	member, err := s.memberRepo.FindByWorkspaceAndUser(workspaceID, username)
	if err != nil {
		if errors.Is(err, pkgErrors.ErrRecordNotFound) {
			// 非成员，视为无权限
			return false, nil
		}
		return false, err
	}

	return auth.Allow([]string{member.Role}, perm), nil
}
