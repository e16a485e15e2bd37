package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"tradegate/internal/app"
	"tradegate/internal/config"
	"tradegate/internal/log"
	"tradegate/internal/store"
)

func main() {
	var configPath, scenarioPath string
	flag.StringVar(&configPath, "config", "", "配置文件路径，默认使用 configs/config.yaml")
	flag.StringVar(&scenarioPath, "scenario", "", "启动后回放的场景文件，覆盖 scenario.path")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	if scenarioPath != "" {
		cfg.Scenario.Path = scenarioPath
	}

	logger, err := log.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	sqliteStore, err := store.NewSQLite(cfg.Database)
	if err != nil {
		logger.Error("初始化数据库失败", zap.Error(err))
		os.Exit(1)
	}
	defer func() {
		if closeErr := sqliteStore.Close(); closeErr != nil {
			logger.Warn("关闭数据库失败", zap.Error(closeErr))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gateApp, err := app.New(ctx, cfg, logger, sqliteStore)
	if err != nil {
		logger.Error("装配系统失败", zap.Error(err))
		os.Exit(1)
	}
	defer func() {
		if closeErr := gateApp.Close(context.Background()); closeErr != nil {
			logger.Warn("关闭 WASM 运行时失败", zap.Error(closeErr))
		}
	}()

	if err := gateApp.Run(ctx); err != nil {
		logger.Error("系统运行异常", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("系统已安全退出")
}
