package auth

import "strings"

// Role 工作区内置角色
type Role string

const (
	RoleOwner     Role = "owner"
	RoleAdmin     Role = "admin"
	RolePM        Role = "pm"
	RoleDeveloper Role = "developer"
	RoleViewer    Role = "viewer"
)

// Permission 内置权限
type Permission string

const (
	PermTaskView   Permission = "task:view"
	PermTaskUpdate Permission = "task:update"

	// 为任务签发 agent 回调密钥
	PermTaskIssueKey Permission = "task:agent_key:issue"

	PermRecordingView Permission = "recording:view"
)

// RolePermissions 每个角色拥有的权限集合
var RolePermissions = map[Role][]Permission{
	RoleOwner: {
		"*",
	},
	RoleAdmin: {
		"*",
	},
	RolePM: {
		"task:*",
		"recording:*",
	},
	RoleDeveloper: {
		"task:view",
		"task:update",
		"recording:view",
	},
	RoleViewer: {
		"task:view",
		"recording:view",
	},
}

// Allow 判断一组角色是否包含所需权限，支持通配符
func Allow(roles []string, need Permission) bool {
	permissions := collectPermissions(roles)

	return len(permissions) > 0 && allow(permissions, need)
}

func collectPermissions(roles []string) []Permission {
	perms := make([]Permission, 0)
	for _, r := range roles {
		if ps, ok := RolePermissions[Role(r)]; ok {
			perms = append(perms, ps...)
		}
	}
	return perms
}

func allow(have []Permission, need Permission) bool {
	reqParts := strings.Split(string(need), ":")

	for _, p := range have {
		if p == need || p == "*" {
			return true
		}

		allParts := strings.Split(string(p), ":")
		if matchParts(allParts, reqParts) {
			return true
		}
	}
	return false
}

// matchParts 逐段匹配，* 匹配剩余所有段
func matchParts(allowed, required []string) bool {
	for i, part := range allowed {
		if part == "*" {
			return true
		}
		if i >= len(required) || part != required[i] {
			return false
		}
	}
	return len(allowed) == len(required)
}
