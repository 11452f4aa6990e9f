// internal/api/router.go
package api

import (
	"context"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"

	"github.com/Corphon/FutureGate/internal/config"
	"github.com/Corphon/FutureGate/internal/di"
	"github.com/Corphon/FutureGate/internal/services"
	"github.com/Corphon/FutureGate/web"
)

// SetupRouter 配置HTTP路由，所需服务从容器中获取。
// ctx 结束时停止限流器的后台清理。
func SetupRouter(ctx context.Context, container *di.Container) (*gin.Engine, error) {
	cfg, err := di.Resolve[*config.Config](container, di.ServiceConfig)
	if err != nil {
		return nil, err
	}
	logger, err := di.Resolve[*zap.Logger](container, di.ServiceLogger)
	if err != nil {
		return nil, err
	}
	storyService, err := di.Resolve[*services.StoryService](container, di.ServiceStory)
	if err != nil {
		return nil, err
	}
	wsManager, err := di.Resolve[*WebSocketManager](container, di.ServiceWebSocket)
	if err != nil {
		return nil, err
	}

	handler := NewHandler(storyService, wsManager, logger)
	wsHandler := NewWebSocketHandler(storyService, wsManager, cfg.AllowedOrigins, logger)

	if cfg.DebugMode {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(ZapLogger(logger.Named("http")))
	r.Use(gin.Recovery())

	// 请求指标和 /metrics
	p := ginprometheus.NewPrometheus("gin")
	p.Use(r)

	// 启用CORS
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = cfg.AllowedOrigins
		corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
		corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", requestIDHeader}
		corsConfig.ExposeHeaders = []string{requestIDHeader}
		corsConfig.AllowCredentials = true
		corsConfig.MaxAge = 12 * time.Hour
		r.Use(cors.New(corsConfig))
	}

	// HTML模板和静态文件
	tmpl, err := template.ParseFS(web.Templates(), "templates/*.html")
	if err != nil {
		return nil, err
	}
	r.SetHTMLTemplate(tmpl)
	r.StaticFS("/static", http.FS(web.Static()))

	r.GET("/health", handler.Health)
	r.HEAD("/health", handler.Health)

	session := SessionMiddleware(storyService.Sessions(), cfg.SessionTTL)

	// ===============================
	// 页面路由
	// ===============================
	r.GET("/", session, handler.IndexPage)
	r.GET("/ws/story", session, wsHandler.StoryWebSocket)

	// ===============================
	// API路由组
	// ===============================
	api := r.Group("/api")
	if cfg.RateLimit > 0 {
		limiter := NewRateLimiter(cfg.RateLimit, time.Minute)
		limiter.StartCleanup(ctx)
		api.Use(limiter.Middleware())
	}
	{
		storyGroup := api.Group("/story", session)
		{
			storyGroup.GET("", handler.GetStory)
			storyGroup.POST("/choice", handler.MakeChoice)
			storyGroup.POST("/reset", handler.ResetStory)
			storyGroup.GET("/tree", handler.GetTree)
			storyGroup.GET("/stats", handler.GetStats)
			storyGroup.GET("/paths", handler.GetPaths)
		}
	}

	return r, nil
}
