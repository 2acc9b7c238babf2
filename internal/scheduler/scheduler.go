package scheduler

import (
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"hive/internal/pkg/config"
	"hive/internal/service"
)

// Scheduler 调度器
type Scheduler struct {
	cron          *cron.Cron
	logger        *zap.Logger
	sweepSvc      *service.SweepService
	cronSchedules map[string]cron.EntryID // 存储任务ID，便于管理
}

// NewScheduler 创建调度器
func NewScheduler(sweepSvc *service.SweepService, logger *zap.Logger) *Scheduler {
	// 创建 cron 实例（带秒级支持）
	c := cron.New(cron.WithSeconds())

	return &Scheduler{
		cron:          c,
		logger:        logger,
		sweepSvc:      sweepSvc,
		cronSchedules: make(map[string]cron.EntryID),
	}
}

// Start 启动调度器
func (s *Scheduler) Start(cfg *config.Config) error {
	log := s.logger.Sugar()

	log.Info("启动定时任务调度器...")

	// cron 表达式格式: 秒 分 时 日 月 周
	cronExpr := cfg.Sweep.Cron
	if cronExpr == "" {
		cronExpr = "0 0 3 * * *" // 默认: 每天凌晨3点
		log.Warnf("未配置sweep.cron，使用默认值 %s", cronExpr)
	}

	batchSize := cfg.Sweep.BatchSize
	entryID, err := s.cron.AddFunc(cronExpr, func() {
		log.Info("执行定时任务: 存量明文密钥迁移")
		if _, err := s.sweepSvc.ReencryptLegacyKeys(batchSize); err != nil {
			log.Errorf("存量明文密钥迁移执行失败: %v", err)
		}
	})

	if err != nil {
		log.Errorf("注册迁移任务失败: %v cron=%s", err, cronExpr)
		return err
	}

	s.cronSchedules["credential_sweep"] = entryID
	log.Infof("存量密钥迁移任务已注册: %s entry_id=%d", cronExpr, entryID)

	// 启动 cron
	s.cron.Start()
	log.Info("定时任务调度器启动成功")

	return nil
}

// Stop 停止调度器
func (s *Scheduler) Stop() {
	s.logger.Info("正在停止定时任务调度器...")

	// 停止 cron（等待正在执行的任务完成）
	ctx := s.cron.Stop()
	<-ctx.Done()

	s.logger.Info("定时任务调度器已停止")
}

// TriggerSweep 手动触发迁移（用于测试或手动触发）
func (s *Scheduler) TriggerSweep(batchSize int) (int, error) {
	s.logger.Info("手动触发存量明文密钥迁移")
	return s.sweepSvc.ReencryptLegacyKeys(batchSize)
}
