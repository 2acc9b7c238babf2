package dto

import "encoding/json"

// TaskResponse 任务详情响应
type TaskResponse struct {
	ID          int64           `json:"id"`
	WorkspaceID int64           `json:"workspace_id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Status      int8            `json:"status"`
	StatusName  string          `json:"status_name"`
	Assignee    string          `json:"assignee,omitempty"`
	HasAgentKey bool            `json:"has_agent_key"` // 是否存在未消费的 agent 密钥
	Meta        json.RawMessage `json:"meta,omitempty"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
}

// IssueAgentKeyResponse 签发 agent 密钥响应
//
// key 仅在签发时返回这一次，服务端只保留密文。
type IssueAgentKeyResponse struct {
	TaskID int64  `json:"task_id"`
	Key    string `json:"key"`
}
