package model

import "gorm.io/datatypes"

const RecordingTableName = "task_recordings"

// Recording 任务录屏制品
//
// 由 agent 回调上传，文件本体在对象存储，这里只存索引信息。
type Recording struct {
	BaseModelWithSoftDelete

	TaskID      int64  `gorm:"not null;index" json:"task_id"`
	StorageKey  string `gorm:"size:512;not null" json:"storage_key"`
	Filename    string `gorm:"size:256;not null" json:"filename"`
	ContentType string `gorm:"size:128" json:"content_type,omitempty"`
	Size        int64  `gorm:"not null;default:0" json:"size"`

	MetaJSON datatypes.JSON `gorm:"column:meta_json;type:json" json:"meta_json,omitempty"`
}

func (Recording) TableName() string {
	return RecordingTableName
}
