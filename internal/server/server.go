package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	v1 "freightdash/internal/api/v1"
	"freightdash/internal/config"
	"freightdash/internal/dashboard"
	"freightdash/internal/parser"
	"freightdash/internal/store"
)

// Server HTTP服务器
type Server struct {
	router   *gin.Engine
	store    *store.Store
	sessions *dashboard.Registry
	v1       *v1.Handler
	http     *http.Server
	logger   *slog.Logger
}

// NewServer 创建服务器
// baseDir 为 config.toml 所在目录，dataDir 为已创建的数据目录
func NewServer(cfg *config.AppConfig, baseDir, dataDir string, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	devMode := cfg.Server.DevMode
	if !devMode {
		gin.SetMode(gin.ReleaseMode)
	}

	aliases := parser.DefaultAliases()
	if p := config.ResolvePath(baseDir, cfg.Import.AliasFile); p != "" {
		loaded, err := parser.LoadAliasFile(p, aliases)
		if err != nil {
			return nil, fmt.Errorf("load alias file: %w", err)
		}
		aliases = loaded
		logger.Info("alias file loaded", "path", p, "aliases", len(aliases))
	}

	// 查询与看板使用进程级存储；上传路径每次单独打开
	dbPath := config.DBPath(dataDir, cfg)
	sqliteStore, err := store.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	sessions := dashboard.NewRegistry(sqliteStore, dashboard.Options{
		TTL:      cfg.Dashboard.SessionTTL(),
		Debounce: cfg.Dashboard.Debounce(),
		Logger:   logger,
	})

	handler := v1.NewHandler(sqliteStore, v1.Options{
		Aliases:        aliases,
		Sessions:       sessions,
		UploadsDir:     config.GetDataPath(dataDir, "uploads", ""),
		ExportsDir:     config.GetDataPath(dataDir, "exports", ""),
		KeepUploads:    cfg.Import.KeepUploads,
		MaxUploadBytes: int64(cfg.Import.MaxUploadMB) << 20,
		Logger:         logger,
	})

	router := gin.New()
	router.Use(gin.Recovery())
	if devMode {
		router.Use(gin.Logger())
	}

	s := &Server{
		router:   router,
		store:    sqliteStore,
		sessions: sessions,
		v1:       handler,
		logger:   logger,
	}
	s.setupRoutes(devMode)
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("database ready", "path", dbPath)
	return s, nil
}

// setupRoutes 设置路由
func (s *Server) setupRoutes(devMode bool) {
	s.router.Use(corsMiddleware())

	api := s.router.Group("/api")
	{
		s.v1.RegisterRoutes(api)
	}

	if devMode {
		// 开发模式：代理到前端开发服务器
		s.router.NoRoute(func(c *gin.Context) {
			c.Redirect(http.StatusTemporaryRedirect, "http://localhost:5173"+c.Request.URL.Path)
		})
		return
	}
	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, v1.Response{Success: false, Message: "not found"})
	})
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// Handler 返回 http.Handler（用于测试）
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr 监听地址
func (s *Server) Addr() string {
	return s.http.Addr
}

// Run 启动服务器，阻塞直到 Shutdown
func (s *Server) Run() error {
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 停止接受请求，关闭会话与数据库
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if err := s.http.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	s.sessions.Close()
	if err := s.store.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// GetStore 获取存储（用于测试）
func (s *Server) GetStore() *store.Store {
	return s.store
}
