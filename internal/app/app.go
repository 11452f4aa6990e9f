// internal/app/app.go
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Corphon/FutureGate/internal/api"
	"github.com/Corphon/FutureGate/internal/config"
	"github.com/Corphon/FutureGate/internal/di"
	apperrors "github.com/Corphon/FutureGate/internal/errors"
	"github.com/Corphon/FutureGate/internal/services"
	"github.com/Corphon/FutureGate/internal/storage"
)

const shutdownTimeout = 30 * time.Second

// App 应用实例，持有所有服务
type App struct {
	config    *config.Config
	logger    *zap.Logger
	container *di.Container
	story     *services.StoryService
	sessions  *services.SessionManager
	wsManager *api.WebSocketManager
}

// New 加载故事数据并初始化所有服务。
// 数据集无效时返回错误，调用方不能启动任何会话。
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	story, err := storage.NewStoryLoader(logger).LoadFile(cfg.StoryFile)
	if err != nil {
		return nil, apperrors.WrapError(err, "加载故事数据失败", apperrors.ErrorTypeError)
	}

	sessions := services.NewSessionManager(cfg.SessionTTL, logger)
	storyService := services.NewStoryService(
		services.NewPathNavigator(story),
		sessions,
		services.NewTextStreamer(cfg.RevealDelay),
		logger,
	)
	wsManager := api.NewWebSocketManager(logger)

	container := di.NewContainer()
	container.Register(di.ServiceConfig, cfg)
	container.Register(di.ServiceLogger, logger)
	container.Register(di.ServiceSessions, sessions)
	container.Register(di.ServiceStory, storyService)
	container.Register(di.ServiceWebSocket, wsManager)
	logger.Debug("服务已注册", zap.Strings("services", container.GetNames()))

	return &App{
		config:    cfg,
		logger:    logger,
		container: container,
		story:     storyService,
		sessions:  sessions,
		wsManager: wsManager,
	}, nil
}

// Container 应用的依赖注入容器
func (a *App) Container() *di.Container {
	return a.container
}

// Handler 创建HTTP处理器；ctx 结束时后台任务随之退出
func (a *App) Handler(ctx context.Context) (http.Handler, error) {
	return api.SetupRouter(ctx, a.container)
}

// Run 启动后台任务和HTTP服务器，ctx 结束后优雅关闭
func (a *App) Run(ctx context.Context) error {
	a.sessions.StartEviction(ctx)
	go a.wsManager.Run(ctx)

	handler, err := a.Handler(ctx)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + a.config.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("服务器启动", zap.String("addr", "http://localhost:"+a.config.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("正在关闭服务器...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	a.logger.Info("服务器已关闭")
	return nil
}
