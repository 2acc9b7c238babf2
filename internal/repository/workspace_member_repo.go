package repository

import (
	"errors"

	"gorm.io/gorm"

	"hive/internal/model"
	pkgErrors "hive/pkg/responses"
)

type WorkspaceMemberRepository struct {
	db *gorm.DB
}

func NewWorkspaceMemberRepository(db *gorm.DB) *WorkspaceMemberRepository {
	return &WorkspaceMemberRepository{db: db}
}

// FindByWorkspaceAndUser 查询用户在工作区内的成员记录
func (r *WorkspaceMemberRepository) FindByWorkspaceAndUser(workspaceID int64, username string) (*model.WorkspaceMember, error) {
	var m model.WorkspaceMember
	err := r.db.Where("workspace_id = ? AND username = ?", workspaceID, username).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgErrors.ErrRecordNotFound
		}
		return nil, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询工作区成员失败", err)
	}
	return &m, nil
}
