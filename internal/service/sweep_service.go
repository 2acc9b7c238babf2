package service

import (
	"go.uber.org/zap"

	"hive/internal/pkg/crypto"
	"hive/internal/repository"
	"hive/pkg/constants"
)

// 单次扫描的默认行数上限
const defaultSweepBatchSize = 500

// SweepService 历史明文凭据迁移
//
// 字段加密上线前写入的 agent 密钥仍以明文存储，读路径靠
// DecryptStored 的明文兜底兼容。本服务定期扫描并将这部分
// 存量明文重新加密为当前版本的信封，无需停机或schema迁移。
type SweepService struct {
	taskRepo *repository.TaskRepository
	cipher   *crypto.FieldCipher
	logger   *zap.Logger
}

// NewSweepService 创建迁移服务
func NewSweepService(taskRepo *repository.TaskRepository, cipher *crypto.FieldCipher, logger *zap.Logger) *SweepService {
	return &SweepService{
		taskRepo: taskRepo,
		cipher:   cipher,
		logger:   logger,
	}
}

// ReencryptLegacyKeys 扫描并重加密存量明文密钥，返回处理行数
//
// 单行失败不中断整轮扫描，只记日志留待下一轮重试。
func (s *SweepService) ReencryptLegacyKeys(batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = defaultSweepBatchSize
	}

	tasks, err := s.taskRepo.FindWithAgentKey(batchSize)
	if err != nil {
		return 0, err
	}

	migrated := 0
	for _, task := range tasks {
		if task.AgentKey == nil || *task.AgentKey == "" || crypto.IsEncrypted(*task.AgentKey) {
			continue
		}

		encrypted, err := s.cipher.EncryptToStorage(constants.FieldTaskAgentKey, *task.AgentKey)
		if err != nil {
			s.logger.Warn("存量密钥重加密失败", zap.Int64("task_id", task.ID), zap.Error(err))
			continue
		}

		// 条件回写：读取之后密钥可能已被上传消费（列置null）或重新签发，
		// 这两种情况都不能用旧值覆盖
		ok, err := s.taskRepo.ReplaceAgentKey(task.ID, *task.AgentKey, encrypted)
		if err != nil {
			s.logger.Warn("存量密钥回写失败", zap.Int64("task_id", task.ID), zap.Error(err))
			continue
		}
		if !ok {
			s.logger.Info("存量密钥在扫描期间已变更，跳过", zap.Int64("task_id", task.ID))
			continue
		}
		migrated++
	}

	if migrated > 0 {
		s.logger.Info("存量明文密钥迁移完成",
			zap.Int("scanned", len(tasks)),
			zap.Int("migrated", migrated),
			zap.String("key_version", s.cipher.ActiveVersion()),
		)
	}
	return migrated, nil
}
