package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"hive/internal/adapter/notification"
	"hive/internal/adapter/storage"
	"hive/internal/api/handler"
	"hive/internal/api/middleware"
	"hive/internal/pkg/config"
	"hive/internal/pkg/crypto"
	"hive/internal/repository"
	"hive/internal/service"
)

// Setup 设置路由
func Setup(cfg *config.Config, cipher *crypto.FieldCipher, store storage.Storage, logger *zap.Logger) *gin.Engine {
	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// 全局中间件
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware())
	r.Use(middleware.CORSMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// 获取数据库连接
	db := cfg.DB.(*gorm.DB)

	// 初始化Repository
	taskRepo := repository.NewTaskRepository(db)
	recordingRepo := repository.NewRecordingRepository(db)
	workspaceRepo := repository.NewWorkspaceRepository(db)
	memberRepo := repository.NewWorkspaceMemberRepository(db)

	// 初始化Service
	notifier := notification.NewWebhookNotifier(&cfg.Notify, logger)
	authzService := service.NewAuthorizationService(memberRepo)
	taskService := service.NewTaskService(taskRepo, recordingRepo, cipher, notifier)
	workspaceService := service.NewWorkspaceService(workspaceRepo, memberRepo)
	recordingService := service.NewRecordingService(taskRepo, recordingRepo, cipher, store, notifier, logger)

	// 初始化Handler
	taskHandler := handler.NewTaskHandler(taskService, authzService)
	workspaceHandler := handler.NewWorkspaceHandler(workspaceService)
	recordingHandler := handler.NewRecordingHandler(recordingService)

	// API v1
	v1 := r.Group("/api/v1")
	{
		// agent 回调(密钥鉴权，无用户会话)
		v1.POST("/tasks/:id/recordings", recordingHandler.Upload)

		// 需要认证的路由
		authed := v1.Group("")
		authed.Use(middleware.AuthMiddleware())
		{
			// 工作区
			authed.GET("/workspaces/:id", workspaceHandler.Get) // 工作区详情

			// 任务管理
			authed.GET("/tasks/:id", taskHandler.Get)                       // 任务详情
			authed.POST("/tasks/:id/agent-key", taskHandler.IssueAgentKey)  // 签发agent密钥
			authed.GET("/tasks/:id/recordings", taskHandler.ListRecordings) // 录屏列表
		}
	}

	return r
}
