package v1

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"freightdash/internal/dashboard"
	"freightdash/internal/parser"
	"freightdash/internal/store"
)

// StoreOpener 为单次上传打开独立的存储连接
type StoreOpener func() (*store.Store, error)

// Options 处理器配置
type Options struct {
	// OpenStore 上传路径使用的存储，为空时使用 store.New(共享存储的路径)
	OpenStore      StoreOpener
	Aliases        parser.AliasTable
	Sessions       *dashboard.Registry
	UploadsDir     string
	KeepUploads    bool
	MaxUploadBytes int64
	// ExportsDir 流式导出的临时文件目录，为空时使用系统临时目录
	ExportsDir string
	Logger     *slog.Logger
}

// Handler V1 API 处理器
type Handler struct {
	store          *store.Store
	openStore      StoreOpener
	aliases        parser.AliasTable
	sessions       *dashboard.Registry
	uploadsDir     string
	keepUploads    bool
	maxUploadBytes int64
	exportsDir     string
	downloads      *exportDownloadStore
	logger         *slog.Logger
}

// NewHandler 创建 V1 API 处理器
// st 为进程级共享存储，供查询与看板会话使用
func NewHandler(st *store.Store, opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Aliases == nil {
		opts.Aliases = parser.DefaultAliases()
	}
	if opts.OpenStore == nil {
		path := st.Path()
		opts.OpenStore = func() (*store.Store, error) { return store.New(path) }
	}
	if opts.Sessions == nil {
		opts.Sessions = dashboard.NewRegistry(st, dashboard.Options{Logger: opts.Logger})
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 32 << 20
	}
	if opts.ExportsDir == "" {
		opts.ExportsDir = os.TempDir()
	}
	return &Handler{
		store:          st,
		openStore:      opts.OpenStore,
		aliases:        opts.Aliases,
		sessions:       opts.Sessions,
		uploadsDir:     opts.UploadsDir,
		keepUploads:    opts.KeepUploads,
		maxUploadBytes: opts.MaxUploadBytes,
		exportsDir:     opts.ExportsDir,
		downloads:      newExportDownloadStore(),
		logger:         opts.Logger,
	}
}

// Sessions 看板会话注册表
func (h *Handler) Sessions() *dashboard.Registry {
	return h.sessions
}

// RegisterRoutes 注册 V1 API 路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// 系统状态
	router.GET("/status", h.GetStatus)
	router.GET("/schema", h.GetSchema)
	router.GET("/imports", h.ListImports)

	// 数据导入
	router.POST("/upload", h.Upload)
	router.POST("/upload/stream", h.UploadStream)

	// 运单查询
	router.GET("/shipments", h.ListShipments)
	router.GET("/shipments/months", h.ListMonths)

	// 看板
	dash := router.Group("/dashboard")
	dash.GET("/dimensions", h.ListDimensions)
	dash.POST("/sessions", h.CreateSession)
	dash.GET("/sessions/:token", h.GetSession)
	dash.DELETE("/sessions/:token", h.DeleteSession)
	dash.PUT("/sessions/:token/date-range", h.SetDateRange)
	dash.DELETE("/sessions/:token/date-range", h.ClearDateRange)
	dash.POST("/sessions/:token/filters", h.ToggleFilter)
	dash.DELETE("/sessions/:token/filters", h.ClearFilters)
	dash.POST("/sessions/:token/reload", h.ReloadSession)
	dash.GET("/sessions/:token/export", h.ExportSession)
	dash.POST("/sessions/:token/export/stream", h.ExportSessionStream)
	dash.GET("/exports/:download", h.DownloadExport)
}

// Response 通用响应
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func success(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, Response{Success: true, Message: message, Data: data})
}

func errorResponse(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, Response{Success: false, Message: message, Data: data})
}

func ok(c *gin.Context, data interface{}) {
	success(c, http.StatusOK, "ok", data)
}
