package container

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mautops/review-gin/internal/api"
	"github.com/mautops/review-gin/internal/auth"
	"github.com/mautops/review-gin/internal/blob"
	"github.com/mautops/review-gin/internal/config"
	"github.com/mautops/review-gin/internal/database"
	"github.com/mautops/review-gin/internal/directory"
	"github.com/mautops/review-gin/internal/integration"
	"github.com/mautops/review-gin/internal/metrics"
	"github.com/mautops/review-gin/internal/repository"
	"github.com/mautops/review-gin/internal/service"
	"github.com/mautops/review-gin/internal/websocket"
	"github.com/mautops/review-gin/internal/workflow"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Container 依赖注入容器
// 管理所有应用依赖,包括数据库、服务、客户端等
type Container struct {
	cfg *config.Config
	log *logrus.Logger

	db          *gorm.DB
	submissions repository.SubmissionRepository
	members     repository.MemberRepository
	directory   *directory.CachedDirectory
	engine      *workflow.Engine
	blobs       blob.Store

	hub          *websocket.Hub
	eventHandler *integration.EventHandler
	nats         *integration.NATSNotifier
	fgaClient    *auth.OpenFGAClient
	validator    auth.TokenValidator

	submissionSvc service.SubmissionService
	querySvc      service.QueryService

	collector *metrics.Collector
}

// NewContainer 创建依赖注入容器
// 根据配置初始化所有依赖组件
func NewContainer(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*Container, error) {
	// 默认重试 3 次,初始间隔 1 秒,指数退避
	db, err := database.ConnectWithRetry(cfg.Database, 3, time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := database.Migrate(db); err != nil {
		closeDB(db)
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	c, err := NewWithDB(ctx, cfg, db, log)
	if err != nil {
		closeDB(db)
		return nil, err
	}
	c.collector = metrics.NewCollector(db, c.submissions, 30*time.Second)
	c.collector.Start()
	return c, nil
}

// NewWithDB 使用已连接并迁移的数据库组装容器
func NewWithDB(ctx context.Context, cfg *config.Config, db *gorm.DB, log *logrus.Logger) (*Container, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	c := &Container{cfg: cfg, log: log, db: db}

	c.submissions = repository.NewSubmissionRepository(db)
	c.members = repository.NewMemberRepository(db)

	// 目录: 成员表 -> 超时重试 -> TTL 缓存
	resilient := directory.NewResilientDirectory(directory.NewMemberDirectory(c.members), directory.Policy{
		Timeout:       cfg.Directory.Timeout,
		MaxRetries:    cfg.Directory.MaxRetries,
		RetryInterval: cfg.Directory.RetryInterval,
		MaxFailures:   directory.DefaultPolicy().MaxFailures,
		OpenTimeout:   directory.DefaultPolicy().OpenTimeout,
	}, log.WithField("component", "directory"))
	cached, err := directory.NewCachedDirectory(resilient, cfg.Directory.CacheTTL, cfg.Directory.CacheMaxCost)
	if err != nil {
		return nil, err
	}
	c.directory = cached

	blobs, err := blob.New(ctx, cfg.Blob.BaseURL, cfg.Blob.MaxSize)
	if err != nil {
		c.release()
		return nil, fmt.Errorf("failed to initialize blob store: %w", err)
	}
	c.blobs = blob.NewResilientStore(blobs, blob.Policy{
		Timeout:       cfg.Blob.Timeout,
		MaxRetries:    cfg.Blob.MaxRetries,
		RetryInterval: cfg.Blob.RetryInterval,
	}, log.WithField("component", "blob"))

	c.hub = websocket.NewHub()
	go c.hub.Run()
	notifiers := []integration.Notifier{websocket.NewNotifier(c.hub)}

	if cfg.NATS.Enabled {
		n, err := integration.ConnectNATS(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
		if err != nil {
			c.release()
			return nil, err
		}
		c.nats = n
		notifiers = append(notifiers, n)
	}

	if cfg.OpenFGA.Enabled {
		fgaClient, err := auth.NewOpenFGAClientWithRetry(cfg.OpenFGA.APIURL, cfg.OpenFGA.StoreID, cfg.OpenFGA.ModelID, 3, time.Second)
		if err != nil {
			c.release()
			return nil, fmt.Errorf("failed to initialize OpenFGA client: %w", err)
		}
		c.fgaClient = fgaClient
		notifiers = append(notifiers, auth.NewOwnershipSync(fgaClient))
	}

	if len(cfg.Events.WebhookURLs) > 0 {
		notifiers = append(notifiers, integration.NewWebhookNotifier(cfg.Events.WebhookURLs, cfg.Events.WebhookToken, cfg.Events.WebhookTimeout))
	}

	c.eventHandler = integration.NewEventHandler(
		repository.NewEventRepository(db),
		log.WithField("component", "events"),
		integration.EventHandlerConfig{
			Workers:    cfg.Events.Workers,
			QueueSize:  cfg.Events.QueueSize,
			MaxRetries: cfg.Events.MaxRetries,
			Backoff:    cfg.Events.Backoff,
		},
		notifiers...,
	)

	resolver := workflow.NewResolver(cached, workflow.WithStrictSecondReviewer(cfg.Routing.StrictSecondReviewer))
	c.engine = workflow.NewEngine(c.submissions, resolver, cached,
		workflow.WithPublisher(c.eventHandler),
		workflow.WithLogger(log.WithField("component", "workflow")),
	)

	if cfg.Keycloak.Issuer != "" {
		c.validator = auth.NewKeycloakTokenValidator(cfg.Keycloak.Issuer)
	}

	auditLogSvc := service.NewAuditLogService(repository.NewAuditLogRepository(db))
	var permissions []service.PermissionChecker
	if c.fgaClient != nil {
		permissions = append(permissions, c.fgaClient)
	}
	c.submissionSvc = service.NewSubmissionService(c.engine, c.blobs, repository.NewBlobRepository(db), auditLogSvc,
		log.WithField("component", "service"), permissions...)
	c.querySvc = service.NewQueryService(
		c.submissions,
		repository.NewApprovalRecordRepository(db),
		repository.NewStateHistoryRepository(db),
		permissions...,
	)

	return c, nil
}

// Config 获取配置
func (c *Container) Config() *config.Config {
	return c.cfg
}

// Logger 获取日志
func (c *Container) Logger() *logrus.Logger {
	return c.log
}

// DB 获取数据库连接
func (c *Container) DB() *gorm.DB {
	return c.db
}

// Engine 获取工作流引擎
func (c *Container) Engine() *workflow.Engine {
	return c.engine
}

// Members 获取成员仓储
func (c *Container) Members() repository.MemberRepository {
	return c.members
}

// Directory 获取带缓存的审批人目录
func (c *Container) Directory() *directory.CachedDirectory {
	return c.directory
}

// Hub 获取 WebSocket Hub
func (c *Container) Hub() *websocket.Hub {
	return c.hub
}

// EventHandler 获取事件处理器
func (c *Container) EventHandler() *integration.EventHandler {
	return c.eventHandler
}

// OpenFGAClient 获取 OpenFGA 客户端,未启用时为 nil
func (c *Container) OpenFGAClient() *auth.OpenFGAClient {
	return c.fgaClient
}

// TokenValidator 获取 Keycloak Token 验证器,未配置 issuer 时为 nil
func (c *Container) TokenValidator() auth.TokenValidator {
	return c.validator
}

// SubmissionService 获取提交审批服务
func (c *Container) SubmissionService() service.SubmissionService {
	return c.submissionSvc
}

// QueryService 获取查询服务
func (c *Container) QueryService() service.QueryService {
	return c.querySvc
}

// Close 关闭容器,清理资源
func (c *Container) Close() error {
	c.release()
	closeDB(c.db)
	return nil
}

// release 关闭除数据库外的所有组件
func (c *Container) release() {
	if c.collector != nil {
		c.collector.Stop()
	}
	if c.eventHandler != nil {
		c.eventHandler.Stop()
	}
	if c.nats != nil {
		c.nats.Close()
	}
	if c.hub != nil {
		c.hub.Stop()
	}
	if c.directory != nil {
		c.directory.Close()
	}
}

func closeDB(db *gorm.DB) {
	if db == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}

// Router 根据配置组装 HTTP 路由
func (c *Container) Router() *gin.Engine {
	authMiddleware := auth.DevIdentityMiddleware()
	if c.validator != nil {
		authMiddleware = auth.KeycloakAuthMiddleware(c.validator)
	}

	checkers := map[string]api.HealthChecker{}
	if c.fgaClient != nil {
		checkers["openfga"] = c.fgaClient
	}

	tracingService := ""
	if c.cfg.Tracing.Enabled {
		tracingService = c.cfg.Tracing.ServiceName
	}

	return api.SetupRoutes(api.RouterOptions{
		Submissions:    api.NewSubmissionController(c.submissionSvc, c.cfg.Blob.MaxSize),
		Queries:        api.NewQueryController(c.querySvc),
		Health:         api.NewHealthController(c.db, checkers),
		Auth:           authMiddleware,
		Hub:            c.hub,
		Upgrader:       websocket.NewUpgrader(c.cfg.CORS.AllowedOrigins),
		Inbox:          c.querySvc,
		AllowedOrigins: c.cfg.CORS.AllowedOrigins,
		RateLimit:      c.cfg.RateLimit.Enabled,
		RateLimitRPS:   c.cfg.RateLimit.RPS,
		RateLimitBurst: c.cfg.RateLimit.Burst,
		HSTS:           config.IsProduction(c.cfg),
		TracingService: tracingService,
	})
}
