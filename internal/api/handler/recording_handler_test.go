package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"hive/internal/adapter/notification"
	"hive/internal/adapter/storage"
	"hive/internal/model"
	"hive/internal/pkg/config"
	"hive/internal/pkg/crypto"
	"hive/internal/repository"
	"hive/internal/service"
	"hive/pkg/constants"
)

type uploadEnv struct {
	router   *gin.Engine
	taskRepo *repository.TaskRepository
	taskSvc  service.TaskService
	store    *storage.MockStorage
}

func newUploadEnv(t *testing.T) *uploadEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&model.Task{}, &model.Recording{}))

	cipher, err := crypto.NewFieldCipher(&config.CryptoConfig{
		Keys:          map[string]string{"v1": "test-key-material-0123456789abcdef"},
		ActiveVersion: "v1",
	})
	require.NoError(t, err)

	taskRepo := repository.NewTaskRepository(db)
	recordingRepo := repository.NewRecordingRepository(db)
	store := storage.NewMockStorage()
	notifier := notification.NewWebhookNotifier(&config.NotifyConfig{}, zap.NewNop())
	recSvc := service.NewRecordingService(taskRepo, recordingRepo, cipher, store, notifier, zap.NewNop())

	r := gin.New()
	r.POST("/api/v1/tasks/:id/recordings", NewRecordingHandler(recSvc).Upload)

	return &uploadEnv{
		router:   r,
		taskRepo: taskRepo,
		taskSvc:  service.NewTaskService(taskRepo, recordingRepo, cipher, notifier),
		store:    store,
	}
}

func (e *uploadEnv) createTask(t *testing.T) *model.Task {
	t.Helper()
	task := &model.Task{WorkspaceID: 1, Title: "录制回归用例"}
	require.NoError(t, e.taskRepo.Create(task))
	return task
}

// postRecording 构造 multipart 请求并返回响应
func (e *uploadEnv) postRecording(t *testing.T, url, apiKey string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "run.webm")
	require.NoError(t, err)
	_, err = part.Write([]byte("webm-bytes"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, url, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if apiKey != "" {
		req.Header.Set(constants.HeaderAPIKey, apiKey)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestUploadHTTPContract(t *testing.T) {
	e := newUploadEnv(t)
	task := e.createTask(t)

	issued, err := e.taskSvc.IssueAgentKey(task.ID)
	require.NoError(t, err)

	url := "/api/v1/tasks/1/recordings"

	t.Run("任务不存在返回404_先于凭据校验", func(t *testing.T) {
		rec := e.postRecording(t, "/api/v1/tasks/999/recordings", issued.Key)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("缺少密钥返回401", func(t *testing.T) {
		rec := e.postRecording(t, url, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("错误密钥返回401", func(t *testing.T) {
		rec := e.postRecording(t, url, "wrong-key")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("正确密钥返回201", func(t *testing.T) {
		rec := e.postRecording(t, url, issued.Key)
		require.Equal(t, http.StatusCreated, rec.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.EqualValues(t, task.ID, resp["task_id"])
		assert.Equal(t, "run.webm", resp["filename"])
		assert.Equal(t, 1, e.store.Len())
	})

	t.Run("已消费密钥重放返回401_与错误密钥不可区分", func(t *testing.T) {
		rec := e.postRecording(t, url, issued.Key)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		wrong := e.postRecording(t, url, "wrong-key")
		assert.Equal(t, wrong.Code, rec.Code)
		assert.JSONEq(t, wrong.Body.String(), rec.Body.String())
	})
}

func TestUploadBadRequest(t *testing.T) {
	e := newUploadEnv(t)
	e.createTask(t)

	t.Run("非法任务ID", func(t *testing.T) {
		rec := e.postRecording(t, "/api/v1/tasks/abc/recordings", "any")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("缺少file字段", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks/1/recordings", nil)
		req.Header.Set(constants.HeaderAPIKey, "any")
		rec := httptest.NewRecorder()
		e.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("metadata非法JSON", func(t *testing.T) {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		part, err := w.CreateFormFile("file", "run.webm")
		require.NoError(t, err)
		_, err = part.Write([]byte("webm-bytes"))
		require.NoError(t, err)
		require.NoError(t, w.WriteField("metadata", "{not-json"))
		require.NoError(t, w.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks/1/recordings", &buf)
		req.Header.Set("Content-Type", w.FormDataContentType())
		req.Header.Set(constants.HeaderAPIKey, "any")
		rec := httptest.NewRecorder()
		e.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
