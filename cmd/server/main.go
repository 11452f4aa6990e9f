// cmd/server/main.go
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Corphon/FutureGate/internal/app"
	"github.com/Corphon/FutureGate/internal/config"
	"github.com/Corphon/FutureGate/internal/utils"
)

func main() {
	storyFile := flag.String("story", "", "故事数据文件路径（覆盖 STORY_FILE）")
	port := flag.String("port", "", "监听端口（覆盖 PORT）")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	if *storyFile != "" {
		cfg.StoryFile = *storyFile
	}
	if *port != "" {
		cfg.Port = *port
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("配置无效: %v", err)
	}

	// 2. 初始化日志
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:    cfg.LogLevel,
		Encoding: cfg.LogEncoding,
		File:     cfg.LogFile,
	})
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	// 3. 加载故事数据并初始化服务，数据无效时拒绝启动
	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("初始化失败", zap.Error(err))
		os.Exit(1)
	}

	// 4. 启动服务器，收到中断信号后优雅关闭
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		logger.Error("服务器异常退出", zap.Error(err))
		os.Exit(1)
	}
}
