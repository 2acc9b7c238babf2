package model

const (
	WorkspaceTableName       = "workspaces"
	WorkspaceMemberTableName = "workspace_members"
)

// Workspace 工作区
type Workspace struct {
	BaseModelWithSoftDelete

	Name        string `gorm:"size:128;not null" json:"name"`
	Slug        string `gorm:"size:64;not null;uniqueIndex" json:"slug"`
	Description string `gorm:"size:512" json:"description,omitempty"`
}

func (Workspace) TableName() string {
	return WorkspaceTableName
}

// WorkspaceMember 工作区成员
//
// 角色取值见 internal/pkg/auth（owner/admin/pm/developer/viewer）
type WorkspaceMember struct {
	BaseModel

	WorkspaceID int64  `gorm:"not null;index:idx_ws_member,unique" json:"workspace_id"`
	Username    string `gorm:"size:64;not null;index:idx_ws_member,unique" json:"username"`
	Role        string `gorm:"size:32;not null" json:"role"`
}

func (WorkspaceMember) TableName() string {
	return WorkspaceMemberTableName
}
