package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/samber/lo"

	"hive/internal/adapter/notification"
	"hive/internal/dto"
	"hive/internal/model"
	"hive/internal/pkg/crypto"
	"hive/internal/repository"
	"hive/pkg/constants"
	pkgErrors "hive/pkg/responses"
)

// agent 密钥随机长度（字节）
const agentKeyBytes = 32

type TaskService interface {
	GetByID(id int64) (*dto.TaskResponse, error)
	// IssueAgentKey 为任务签发一次性 agent 回调密钥，明文只返回这一次
	IssueAgentKey(id int64) (*dto.IssueAgentKeyResponse, error)
	ListRecordings(taskID int64) ([]*dto.RecordingResponse, error)
}

type taskService struct {
	taskRepo      *repository.TaskRepository
	recordingRepo *repository.RecordingRepository
	cipher        *crypto.FieldCipher
	notifier      notification.Notifier
}

func NewTaskService(taskRepo *repository.TaskRepository, recordingRepo *repository.RecordingRepository, cipher *crypto.FieldCipher, notifier notification.Notifier) TaskService {
	return &taskService{
		taskRepo:      taskRepo,
		recordingRepo: recordingRepo,
		cipher:        cipher,
		notifier:      notifier,
	}
}

func (s *taskService) GetByID(id int64) (*dto.TaskResponse, error) {
	task, err := s.taskRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	return toTaskResponse(task), nil
}

// IssueAgentKey 签发 agent 密钥
//
// 重复签发会覆盖旧密钥（旧密钥随即作废）。数据库只保留密文，
// 丢失明文后唯一的恢复手段是重新签发。
func (s *taskService) IssueAgentKey(id int64) (*dto.IssueAgentKeyResponse, error) {
	if _, err := s.taskRepo.GetByID(id); err != nil {
		return nil, err
	}

	raw := make([]byte, agentKeyBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeInternalError, "生成密钥失败", err)
	}
	key := base64.RawURLEncoding.EncodeToString(raw)

	encrypted, err := s.cipher.EncryptToStorage(constants.FieldTaskAgentKey, key)
	if err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeCryptoError, "凭据加密失败，请检查 crypto 配置", err)
	}

	if err := s.taskRepo.SetAgentKey(id, encrypted); err != nil {
		return nil, err
	}

	// 只通报事件，不携带密钥明文
	_ = s.notifier.Send(context.Background(), notification.AgentKeyIssuedMessage(id))

	return &dto.IssueAgentKeyResponse{
		TaskID: id,
		Key:    key,
	}, nil
}

func (s *taskService) ListRecordings(taskID int64) ([]*dto.RecordingResponse, error) {
	if _, err := s.taskRepo.GetByID(taskID); err != nil {
		return nil, err
	}

	list, err := s.recordingRepo.ListByTask(taskID)
	if err != nil {
		return nil, err
	}
	return lo.Map(list, func(rec *model.Recording, _ int) *dto.RecordingResponse {
		return toRecordingResponse(rec)
	}), nil
}

func toTaskResponse(t *model.Task) *dto.TaskResponse {
	if t == nil {
		return nil
	}
	resp := &dto.TaskResponse{
		ID:          t.ID,
		WorkspaceID: t.WorkspaceID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		StatusName:  constants.TaskStatusToString(t.Status),
		Assignee:    t.Assignee,
		HasAgentKey: t.AgentKey != nil,
		CreatedAt:   t.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   t.UpdatedAt.Format(time.RFC3339),
	}
	if len(t.MetaJSON) > 0 {
		resp.Meta = []byte(t.MetaJSON)
	}
	return resp
}
