package dto

// UserInfo 认证中间件注入的用户信息
type UserInfo struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}
