package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"hive/internal/service"
	"hive/pkg/responses"
)

type WorkspaceHandler struct {
	svc service.WorkspaceService
}

func NewWorkspaceHandler(svc service.WorkspaceService) *WorkspaceHandler {
	return &WorkspaceHandler{svc: svc}
}

// Get 获取工作区详情
// @Summary 工作区详情
// @Tags Workspace
// @Produce json
// @Param id path int64 true "工作区ID"
// @Success 200 {object} responses.Response{data=dto.WorkspaceResponse}
// @Router /api/v1/workspaces/{id} [get]
func (h *WorkspaceHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		responses.ErrorWithDetail(c, responses.CodeBadRequest, "无效的 ID", err.Error())
		return
	}

	resp, err := h.svc.GetForUser(c.GetString("username"), id)
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, resp)
}
