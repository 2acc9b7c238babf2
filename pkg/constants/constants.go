package constants

import "fmt"

// HTTP Header
const (
	HeaderAuthorization = "Authorization"
	HeaderBearerPrefix  = "Bearer "
	HeaderAPIKey        = "X-Api-Key"
)

// JWT Token类型
const (
	JWTTypeAccess  = "access"
	JWTTypeRefresh = "refresh"
)

// TaskStatus 任务状态
const (
	TaskStatusTodo       int8 = 0  // 待处理
	TaskStatusInProgress int8 = 10 // 进行中
	TaskStatusInReview   int8 = 20 // 待验收
	TaskStatusDone       int8 = 30 // 已完成
	TaskStatusCancelled  int8 = 90 // 已取消
)

// int8 → string
var taskStatusName = map[int8]string{
	TaskStatusTodo:       "Todo",
	TaskStatusInProgress: "InProgress",
	TaskStatusInReview:   "InReview",
	TaskStatusDone:       "Done",
	TaskStatusCancelled:  "Cancelled",
}

// TaskStatusToString int8 → string
func TaskStatusToString(status int8) string {
	if name, ok := taskStatusName[status]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", status)
}

// 加密字段的逻辑字段名（AEAD 关联数据）
//
// 加密时绑定进认证标签，跨字段拷贝的密文无法解开。
const (
	FieldTaskAgentKey = "task.agent_key"
)
