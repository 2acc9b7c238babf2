package model

import "gorm.io/datatypes"

const TaskTableName = "tasks"

// Task 任务
//
// 说明：
// - agent_key: 一次性 agent 回调密钥，列值为字段加密信封(JSON)或历史明文；
//   null 表示从未签发或已被消费，永远不会是空串
// - meta_json: 非敏感扩展字段（用于列表展示/筛选）
type Task struct {
	BaseModelWithSoftDelete

	WorkspaceID int64  `gorm:"not null;index" json:"workspace_id"`
	Title       string `gorm:"size:256;not null" json:"title"`
	Description string `gorm:"type:text" json:"description,omitempty"`
	Status      int8   `gorm:"not null;default:0;index" json:"status"`
	Assignee    string `gorm:"size:64" json:"assignee,omitempty"`

	AgentKey *string        `gorm:"column:agent_key;type:text" json:"-"`
	MetaJSON datatypes.JSON `gorm:"column:meta_json;type:json" json:"meta_json,omitempty"`
}

func (Task) TableName() string {
	return TaskTableName
}
