package dto

import "encoding/json"

// RecordingUpload 上传请求（multipart 解析后的中间结构）
type RecordingUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Meta        json.RawMessage // metadata 旁路JSON，可为空
}

// RecordingResponse 录屏制品响应
type RecordingResponse struct {
	ID          int64           `json:"id"`
	TaskID      int64           `json:"task_id"`
	StorageKey  string          `json:"storage_key"`
	Filename    string          `json:"filename"`
	ContentType string          `json:"content_type,omitempty"`
	Size        int64           `json:"size"`
	Meta        json.RawMessage `json:"meta,omitempty"`
	CreatedAt   string          `json:"created_at"`
}
