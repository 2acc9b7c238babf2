package repository

import (
	"errors"

	"gorm.io/gorm"

	"hive/internal/model"
	pkgErrors "hive/pkg/responses"
)

type WorkspaceRepository struct {
	db *gorm.DB
}

func NewWorkspaceRepository(db *gorm.DB) *WorkspaceRepository {
	return &WorkspaceRepository{db: db}
}

func (r *WorkspaceRepository) GetByID(id int64) (*model.Workspace, error) {
	var w model.Workspace
	if err := r.db.First(&w, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgErrors.ErrRecordNotFound
		}
		return nil, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询工作区失败", err)
	}
	return &w, nil
}
