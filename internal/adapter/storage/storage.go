package storage

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"hive/internal/pkg/config"
)

// Storage 制品存储接口
type Storage interface {
	// Put 写入对象
	Put(ctx context.Context, key, contentType string, size int64, body io.Reader) error
}

// New 根据配置创建存储适配器
func New(cfg *config.StorageConfig, logger *zap.Logger) (Storage, error) {
	switch cfg.Driver {
	case "s3":
		return NewS3Storage(cfg, logger)
	case "mock", "":
		logger.Warn("使用Mock存储，制品仅保留在内存中")
		return NewMockStorage(), nil
	default:
		return nil, fmt.Errorf("不支持的存储驱动: %s", cfg.Driver)
	}
}
