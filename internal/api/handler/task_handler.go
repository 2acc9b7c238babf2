package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"hive/internal/pkg/auth"
	"hive/internal/service"
	"hive/pkg/responses"
)

type TaskHandler struct {
	svc   service.TaskService
	authz service.AuthorizationService
}

func NewTaskHandler(svc service.TaskService, authz service.AuthorizationService) *TaskHandler {
	return &TaskHandler{svc: svc, authz: authz}
}

// Get 获取任务详情
// @Summary 任务详情
// @Tags Task
// @Produce json
// @Param id path int64 true "任务ID"
// @Success 200 {object} responses.Response{data=dto.TaskResponse}
// @Router /api/v1/tasks/{id} [get]
func (h *TaskHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	resp, err := h.svc.GetByID(id)
	if err != nil {
		responses.Error(c, err)
		return
	}

	if !h.requirePermission(c, resp.WorkspaceID, auth.PermTaskView) {
		return
	}
	responses.Success(c, resp)
}

// IssueAgentKey 签发一次性 agent 回调密钥
// @Summary 签发agent密钥
// @Tags Task
// @Produce json
// @Param id path int64 true "任务ID"
// @Success 200 {object} responses.Response{data=dto.IssueAgentKeyResponse}
// @Router /api/v1/tasks/{id}/agent-key [post]
func (h *TaskHandler) IssueAgentKey(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	task, err := h.svc.GetByID(id)
	if err != nil {
		responses.Error(c, err)
		return
	}
	if !h.requirePermission(c, task.WorkspaceID, auth.PermTaskIssueKey) {
		return
	}

	resp, err := h.svc.IssueAgentKey(id)
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.SuccessWithMessage(c, "密钥仅此一次返回，请妥善保存", resp)
}

// ListRecordings 任务录屏列表
func (h *TaskHandler) ListRecordings(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	task, err := h.svc.GetByID(id)
	if err != nil {
		responses.Error(c, err)
		return
	}
	if !h.requirePermission(c, task.WorkspaceID, auth.PermRecordingView) {
		return
	}

	list, err := h.svc.ListRecordings(id)
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, list)
}

func (h *TaskHandler) parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		responses.ErrorWithDetail(c, responses.CodeBadRequest, "无效的 ID", err.Error())
		return 0, false
	}
	return id, true
}

// requirePermission 校验当前用户在任务所属工作区的权限
func (h *TaskHandler) requirePermission(c *gin.Context, workspaceID int64, perm auth.Permission) bool {
	username := c.GetString("username")
	ok, err := h.authz.HasWorkspacePermission(username, workspaceID, perm)
	if err != nil {
		responses.Error(c, err)
		return false
	}
	if !ok {
		responses.Error(c, responses.ErrForbidden)
		return false
	}
	return true
}
