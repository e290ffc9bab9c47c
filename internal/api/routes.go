package api

import (
	"github.com/gin-gonic/gin"
	gorillaWS "github.com/gorilla/websocket"
	_ "github.com/mautops/review-gin/docs" // 导入 swagger 文档
	"github.com/mautops/review-gin/internal/websocket"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// RouterOptions 路由依赖
type RouterOptions struct {
	Submissions *SubmissionController
	Queries     *QueryController
	Health      *HealthController

	// Auth 认证中间件,Keycloak 或开发模式身份头
	Auth gin.HandlerFunc

	Hub      *websocket.Hub
	Upgrader gorillaWS.Upgrader
	Inbox    websocket.InboxCounter

	AllowedOrigins []string
	RateLimit      bool
	RateLimitRPS   float64
	RateLimitBurst int
	HSTS           bool

	// TracingService 非空时启用 otelgin 追踪
	TracingService string
}

// SetupRoutes 配置路由
func SetupRoutes(opts RouterOptions) *gin.Engine {
	router := gin.New()
	router.ContextWithFallback = true

	router.Use(gin.Recovery())
	if opts.TracingService != "" {
		router.Use(TracingMiddleware(opts.TracingService))
	}
	router.Use(RequestIDMiddleware())
	router.Use(RequestLogMiddleware())
	router.Use(SecurityHeadersMiddleware(opts.HSTS))
	router.Use(CORSMiddleware(opts.AllowedOrigins))
	if opts.RateLimit {
		router.Use(RateLimitMiddleware(opts.RateLimitRPS, opts.RateLimitBurst))
	}
	router.Use(ErrorHandlerMiddleware())

	if opts.Health != nil {
		router.GET("/health", opts.Health.Check)
	}
	router.GET("/metrics", MetricsHandler())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler,
		ginSwagger.URL("/swagger/doc.json"),
	))

	if opts.Hub != nil && opts.Auth != nil {
		router.GET("/ws", opts.Auth, websocket.WebSocketHandler(opts.Hub, opts.Upgrader, opts.Inbox))
	}

	v1 := router.Group("/api/v1")
	if opts.Auth != nil {
		v1.Use(opts.Auth)
	}
	{
		submissions := v1.Group("/submissions")
		{
			submissions.POST("", opts.Submissions.Create)
			submissions.POST("/bulk", opts.Submissions.BulkUpload)
			submissions.GET("", opts.Queries.ListSubmissions)
			submissions.GET("/:id", opts.Submissions.Get)
			submissions.PUT("/:id", opts.Submissions.Update)
			submissions.DELETE("/:id", opts.Submissions.Delete)
			submissions.POST("/:id/submit", opts.Submissions.Submit)
			submissions.POST("/:id/first-review", opts.Submissions.FirstReview)
			submissions.POST("/:id/second-review", opts.Submissions.SecondReview)
			submissions.GET("/:id/payload", opts.Submissions.Payload)
			submissions.GET("/:id/records", opts.Queries.GetRecords)
			submissions.GET("/:id/history", opts.Queries.GetHistory)
		}

		v1.GET("/inbox", opts.Queries.Inbox)
		v1.GET("/reviewed", opts.Queries.Reviewed)
		v1.GET("/dashboard", opts.Queries.Dashboard)
		v1.GET("/stats", opts.Queries.Stats)
	}

	return router
}
