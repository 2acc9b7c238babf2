package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"hive/internal/dto"
	"hive/internal/pkg/logger"
	"hive/internal/service"
	"hive/pkg/constants"
	"hive/pkg/responses"
)

// RecordingHandler 录屏上传接口（agent 回调面）
//
// 与人面接口不同，这里按真实HTTP状态码应答：agent 按状态码分支重试。
// 404（任务不存在）先于凭据校验；所有凭据问题统一 401，不区分原因。
type RecordingHandler struct {
	svc *service.RecordingService
}

func NewRecordingHandler(svc *service.RecordingService) *RecordingHandler {
	return &RecordingHandler{svc: svc}
}

// Upload 上传任务录屏
// @Summary 上传任务录屏（agent回调）
// @Tags Recording
// @Accept multipart/form-data
// @Produce json
// @Param id path int64 true "任务ID"
// @Param X-Api-Key header string true "一次性上传密钥"
// @Param file formData file true "录屏文件"
// @Param metadata formData string false "旁路元数据(JSON)"
// @Success 201 {object} dto.RecordingResponse
// @Router /api/v1/tasks/{id}/recordings [post]
func (h *RecordingHandler) Upload(c *gin.Context) {
	taskID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		responses.ErrorWithStatus(c, http.StatusBadRequest, "无效的任务ID")
		return
	}

	candidate := c.GetHeader(constants.HeaderAPIKey)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		responses.ErrorWithStatus(c, http.StatusBadRequest, "缺少 file 字段")
		return
	}

	upload := &dto.RecordingUpload{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
	}

	if meta := c.PostForm("metadata"); meta != "" {
		if !json.Valid([]byte(meta)) {
			responses.ErrorWithStatus(c, http.StatusBadRequest, "metadata 不是合法JSON")
			return
		}
		upload.Meta = json.RawMessage(meta)
	}

	file, err := fileHeader.Open()
	if err != nil {
		responses.ErrorWithStatus(c, http.StatusBadRequest, "读取上传文件失败")
		return
	}
	defer func() { _ = file.Close() }()

	resp, err := h.svc.Upload(c.Request.Context(), taskID, candidate, upload, file)
	if err != nil {
		switch {
		case errors.Is(err, responses.ErrRecordNotFound):
			responses.ErrorWithStatus(c, http.StatusNotFound, "Not found")
		case errors.Is(err, responses.ErrUnauthorized):
			responses.ErrorWithStatus(c, http.StatusUnauthorized, "Unauthorized")
		default:
			logger.Error("录屏上传失败: " + err.Error())
			responses.ErrorWithStatus(c, http.StatusInternalServerError, "Internal error")
		}
		return
	}

	c.JSON(http.StatusCreated, resp)
}
