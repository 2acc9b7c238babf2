package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"hive/internal/adapter/notification"
	"hive/internal/adapter/storage"
	"hive/internal/dto"
	"hive/internal/model"
	"hive/internal/pkg/crypto"
	"hive/internal/repository"
	"hive/pkg/constants"
	pkgErrors "hive/pkg/responses"
)

// RecordingService 录屏上传服务
//
// agent 不持有用户会话，凭任务上一次性签发的密钥回调上传。
// 鉴权语义：
//   - 任务不存在（含软删除）→ 记录不存在，先于凭据校验返回
//   - 密钥未签发 / 已消费 / 不匹配 / 解不开 → 一律返回同一个未授权错误，
//     不向调用方区分具体原因
//   - 校验失败不改动密钥字段，持有正确密钥的重试仍然有效
type RecordingService struct {
	taskRepo      *repository.TaskRepository
	recordingRepo *repository.RecordingRepository
	cipher        *crypto.FieldCipher
	store         storage.Storage
	notifier      notification.Notifier
	logger        *zap.Logger
}

// NewRecordingService 创建录屏上传服务
func NewRecordingService(
	taskRepo *repository.TaskRepository,
	recordingRepo *repository.RecordingRepository,
	cipher *crypto.FieldCipher,
	store storage.Storage,
	notifier notification.Notifier,
	logger *zap.Logger,
) *RecordingService {
	return &RecordingService{
		taskRepo:      taskRepo,
		recordingRepo: recordingRepo,
		cipher:        cipher,
		store:         store,
		notifier:      notifier,
		logger:        logger,
	}
}

// ValidateUploadKey 校验上传密钥，返回任务记录
//
// 只读：本函数不消费密钥，失效发生在整个上传事务成功之后。
func (s *RecordingService) ValidateUploadKey(taskID int64, candidate string) (*model.Task, error) {
	task, err := s.taskRepo.GetByID(taskID)
	if err != nil {
		return nil, err
	}

	// 从未签发或已消费
	if task.AgentKey == nil {
		return nil, pkgErrors.ErrUnauthorized
	}

	secret, err := s.cipher.DecryptStored(constants.FieldTaskAgentKey, *task.AgentKey)
	if err != nil {
		// 解密失败按未授权处理，不把密文状态暴露给调用方
		s.logger.Warn("agent密钥解密失败", zap.Int64("task_id", taskID), zap.Error(err))
		return nil, pkgErrors.ErrUnauthorized
	}

	if candidate == "" || !crypto.VerifySecret(candidate, secret) {
		return nil, pkgErrors.ErrUnauthorized
	}

	return task, nil
}

// Upload 校验密钥并执行上传
//
// 顺序：校验 → 写对象存储 → 落库 → 失效密钥 → 通知。
// 前两步任何失败都让请求失败（密钥保持有效，可重试）；
// 密钥失效与通知在上传成功后执行，失败只记日志。
func (s *RecordingService) Upload(ctx context.Context, taskID int64, candidate string, upload *dto.RecordingUpload, body io.Reader) (*dto.RecordingResponse, error) {
	task, err := s.ValidateUploadKey(taskID, candidate)
	if err != nil {
		return nil, err
	}

	storageKey := fmt.Sprintf("recordings/%d/%s-%s", task.ID, uuid.NewString(), upload.Filename)
	if err := s.store.Put(ctx, storageKey, upload.ContentType, upload.Size, body); err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeStorageError, "制品存储失败", err)
	}

	rec := &model.Recording{
		TaskID:      task.ID,
		StorageKey:  storageKey,
		Filename:    upload.Filename,
		ContentType: upload.ContentType,
		Size:        upload.Size,
	}
	if len(upload.Meta) > 0 {
		rec.MetaJSON = datatypes.JSON(upload.Meta)
	}
	if err := s.recordingRepo.Create(rec); err != nil {
		return nil, err
	}

	// 上传已成功，密钥只许消费这一次
	s.invalidateAgentKey(task.ID)

	_ = s.notifier.Send(ctx, notification.RecordingUploadedMessage(task.ID, rec.ID, storageKey))

	return toRecordingResponse(rec), nil
}

// invalidateAgentKey 消费密钥
//
// 上传已经成功，这里的失败不能再让请求失败：
// 只记日志，密钥多存活一段时间是可接受的低危残留。
func (s *RecordingService) invalidateAgentKey(taskID int64) {
	if err := s.taskRepo.ClearAgentKey(taskID); err != nil {
		s.logger.Warn("agent密钥失效失败，密钥仍然有效",
			zap.Int64("task_id", taskID),
			zap.Error(err),
		)
	}
}

func toRecordingResponse(rec *model.Recording) *dto.RecordingResponse {
	if rec == nil {
		return nil
	}
	resp := &dto.RecordingResponse{
		ID:          rec.ID,
		TaskID:      rec.TaskID,
		StorageKey:  rec.StorageKey,
		Filename:    rec.Filename,
		ContentType: rec.ContentType,
		Size:        rec.Size,
		CreatedAt:   rec.CreatedAt.Format(time.RFC3339),
	}
	if len(rec.MetaJSON) > 0 {
		resp.Meta = []byte(rec.MetaJSON)
	}
	return resp
}
