package service

import (
	"errors"
	"time"

	"hive/internal/dto"
	"hive/internal/repository"
	pkgErrors "hive/pkg/responses"
)

type WorkspaceService interface {
	// GetForUser 获取工作区详情，仅成员可见，附带请求者自己的角色
	GetForUser(username string, id int64) (*dto.WorkspaceResponse, error)
}

type workspaceService struct {
	workspaceRepo *repository.WorkspaceRepository
	memberRepo    *repository.WorkspaceMemberRepository
}

func NewWorkspaceService(workspaceRepo *repository.WorkspaceRepository, memberRepo *repository.WorkspaceMemberRepository) WorkspaceService {
	return &workspaceService{
		workspaceRepo: workspaceRepo,
		memberRepo:    memberRepo,
	}
}

func (s *workspaceService) GetForUser(username string, id int64) (*dto.WorkspaceResponse, error) {
	ws, err := s.workspaceRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	member, err := s.memberRepo.FindByWorkspaceAndUser(id, username)
	if err != nil {
		if errors.Is(err, pkgErrors.ErrRecordNotFound) {
			// 非成员不暴露工作区是否存在
			return nil, pkgErrors.ErrForbidden
		}
		return nil, err
	}

	return &dto.WorkspaceResponse{
		ID:          ws.ID,
		Name:        ws.Name,
		Slug:        ws.Slug,
		Description: ws.Description,
		Role:        member.Role,
		CreatedAt:   ws.CreatedAt.Format(time.RFC3339),
	}, nil
}
