package repository

import (
	"gorm.io/gorm"

	"hive/internal/model"
	pkgErrors "hive/pkg/responses"
)

type RecordingRepository struct {
	db *gorm.DB
}

func NewRecordingRepository(db *gorm.DB) *RecordingRepository {
	return &RecordingRepository{db: db}
}

func (r *RecordingRepository) Create(rec *model.Recording) error {
	if err := r.db.Create(rec).Error; err != nil {
		return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "创建录屏记录失败", err)
	}
	return nil
}

func (r *RecordingRepository) ListByTask(taskID int64) ([]*model.Recording, error) {
	var list []*model.Recording
	if err := r.db.Where("task_id = ?", taskID).Order("id DESC").Find(&list).Error; err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询录屏列表失败", err)
	}
	return list, nil
}
