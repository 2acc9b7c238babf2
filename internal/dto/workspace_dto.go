package dto

// WorkspaceResponse 工作区详情响应
type WorkspaceResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
	Role        string `json:"role"` // 请求者在该工作区的角色
	CreatedAt   string `json:"created_at"`
}
