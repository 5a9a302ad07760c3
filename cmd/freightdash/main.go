package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"freightdash/internal/config"
	"freightdash/internal/server"
	"freightdash/internal/util"
)

var (
	port      = flag.Int("port", 0, "服务端口 (config.toml 优先；仅当未显式配置 port 时生效)")
	devMode   = flag.Bool("dev", false, "开发模式")
	dataDir   = flag.String("dataDir", "", "数据目录 (覆盖配置文件)")
	noBrowser = flag.Bool("no-browser", false, "启动后不自动打开浏览器")
)

func main() {
	flag.Parse()

	fmt.Println("==========================================")
	fmt.Println("  FreightDash - painel de fretes")
	fmt.Println("==========================================")

	// 加载配置
	cfg, info, err := config.LoadConfigWithInfo()
	if err != nil {
		slog.Warn("加载配置失败，使用默认配置", "err", err)
		cfg = config.DefaultConfig()
		info = config.LoadConfigInfo{BaseDir: "."}
	}

	// 命令行参数覆盖配置
	if *port > 0 && !info.PortSpecified {
		cfg.Server.Port = *port
	}
	if *devMode {
		cfg.Server.DevMode = true
	}
	if *dataDir != "" {
		cfg.Data.DataDir = *dataDir
	}

	level := slog.LevelInfo
	if cfg.Server.DevMode {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// 确保数据目录存在
	resolvedDataDir, err := config.EnsureDataDir(info.BaseDir, cfg)
	if err != nil {
		logger.Error("创建数据目录失败", "err", err)
		os.Exit(1)
	}
	fmt.Printf("数据目录: %s\n", resolvedDataDir)

	// 创建服务器
	srv, err := server.NewServer(cfg, info.BaseDir, resolvedDataDir, logger)
	if err != nil {
		logger.Error("初始化服务失败", "err", err)
		os.Exit(1)
	}

	url := fmt.Sprintf("http://localhost:%d", cfg.Server.Port)

	// 启动服务器
	go func() {
		fmt.Printf("服务启动中，监听端口 %d ...\n", cfg.Server.Port)
		if err := srv.Run(); err != nil {
			logger.Error("服务启动失败", "err", err)
			os.Exit(1)
		}
	}()

	// 打开浏览器
	if !cfg.Server.DevMode && !*noBrowser {
		fmt.Printf("正在打开浏览器: %s\n", url)
		if err := util.OpenBrowserWithFallback(url); err != nil {
			fmt.Printf("无法自动打开浏览器，请手动访问: %s\n", url)
		}
	} else {
		fmt.Printf("请访问 %s\n", url)
	}

	fmt.Println("\n按 Ctrl+C 停止服务...")

	// 等待信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\n正在关闭服务...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("关闭服务失败", "err", err)
	}
}
