package repository

import (
	"errors"

	"gorm.io/gorm"

	"hive/internal/model"
	pkgErrors "hive/pkg/responses"
)

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(t *model.Task) error {
	if err := r.db.Create(t).Error; err != nil {
		return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "创建任务失败", err)
	}
	return nil
}

// GetByID 按ID查询任务，软删除的行不可见
func (r *TaskRepository) GetByID(id int64) (*model.Task, error) {
	var t model.Task
	if err := r.db.First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgErrors.ErrRecordNotFound
		}
		return nil, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询任务失败", err)
	}
	return &t, nil
}

// SetAgentKey 写入加密后的 agent 密钥（重新签发时覆盖旧值）
func (r *TaskRepository) SetAgentKey(id int64, encrypted string) error {
	res := r.db.Model(&model.Task{}).Where("id = ?", id).Update("agent_key", encrypted)
	if res.Error != nil {
		return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "写入agent密钥失败", res.Error)
	}
	if res.RowsAffected == 0 {
		return pkgErrors.ErrRecordNotFound
	}
	return nil
}

// ClearAgentKey 将 agent 密钥置空
//
// 无条件单行更新，幂等：对已为空的行再次调用不是错误。
// 如需严格一次性语义，可改为 ReplaceAgentKey 式的条件更新，
// 当前设计接受并发重放窗口。
func (r *TaskRepository) ClearAgentKey(id int64) error {
	if err := r.db.Model(&model.Task{}).Where("id = ?", id).Update("agent_key", nil).Error; err != nil {
		return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "清除agent密钥失败", err)
	}
	return nil
}

// ReplaceAgentKey 仅当列值仍等于读取到的旧值时写入新值，返回是否命中
//
// 供迁移扫描回写使用：读取与回写之间密钥可能已被上传消费或重新签发，
// 条件更新保证不会把已消费的旧密钥写回去。
func (r *TaskRepository) ReplaceAgentKey(id int64, oldRaw, encrypted string) (bool, error) {
	res := r.db.Model(&model.Task{}).
		Where("id = ? AND agent_key = ?", id, oldRaw).
		Update("agent_key", encrypted)
	if res.Error != nil {
		return false, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "回写agent密钥失败", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// FindWithAgentKey 查询仍持有 agent 密钥的任务（迁移扫描用）
func (r *TaskRepository) FindWithAgentKey(limit int) ([]*model.Task, error) {
	var list []*model.Task
	q := r.db.Where("agent_key IS NOT NULL")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&list).Error; err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询任务列表失败", err)
	}
	return list, nil
}
