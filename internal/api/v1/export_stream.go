package v1

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"freightdash/internal/exporter"
)

const exportDownloadTTL = 10 * time.Minute

type exportProgressEvent struct {
	Type      string      `json:"type"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// ExportSessionStream 导出当前筛选结果（SSE 进度 + 完成后提供下载地址）
// POST /api/dashboard/sessions/:token/export/stream
func (h *Handler) ExportSessionStream(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		errorResponse(c, http.StatusInternalServerError, "streaming not supported", nil)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	send := func(event exportProgressEvent) {
		event.Timestamp = time.Now()
		b, err := json.Marshal(event)
		if err != nil {
			return
		}
		fmt.Fprintf(c.Writer, "data: %s\n\n", b)
		flusher.Flush()
	}

	view := s.View(true)
	send(exportProgressEvent{
		Type:    "start",
		Message: "iniciando exportação",
		Data:    map[string]any{"records": view.Count},
	})

	lastPercent := -1
	opts := exportOptions(view)
	opts.Progress = func(p exporter.ProgressEvent) {
		if p.Percent == lastPercent {
			return
		}
		lastPercent = p.Percent
		send(exportProgressEvent{
			Type:    "progress",
			Message: p.Stage,
			Data:    map[string]any{"percent": p.Percent},
		})
	}

	file, err := exporter.NewExporter().Export(opts)
	if err != nil {
		send(exportProgressEvent{Type: "error", Message: "falha ao exportar: " + err.Error(), Data: map[string]any{}})
		return
	}
	defer file.Close()

	path := filepath.Join(h.exportsDir, fmt.Sprintf("fretes_export_%s.xlsx", uuid.NewString()))
	if err := file.SaveAs(path); err != nil {
		h.logger.Error("save export", "token", s.Token, "path", path, "err", err)
		send(exportProgressEvent{Type: "error", Message: "falha ao gravar exportação: " + err.Error(), Data: map[string]any{}})
		_ = os.Remove(path)
		return
	}

	download := h.downloads.put(path, exportDownloadTTL)
	send(exportProgressEvent{
		Type:    "done",
		Message: "exportação concluída",
		Data: map[string]any{
			"percent":     100,
			"downloadUrl": "/api/dashboard/exports/" + download,
		},
	})
}

// DownloadExport 下载流式导出的文件（一次性）
// GET /api/dashboard/exports/:download
func (h *Handler) DownloadExport(c *gin.Context) {
	item, ok := h.downloads.take(c.Param("download"))
	if !ok {
		errorResponse(c, http.StatusNotFound, "link de download expirado", nil)
		return
	}
	defer os.Remove(item.filePath)

	if _, err := os.Stat(item.filePath); err != nil {
		errorResponse(c, http.StatusNotFound, "arquivo de exportação não encontrado", nil)
		return
	}

	c.Header("Content-Disposition", buildExportContentDisposition(item.createdAt))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.File(item.filePath)
}

type exportDownload struct {
	filePath  string
	createdAt time.Time
	expiresAt time.Time
}

// exportDownloadStore 导出文件的一次性下载令牌
type exportDownloadStore struct {
	mu    sync.Mutex
	items map[string]exportDownload
	now   func() time.Time
}

func newExportDownloadStore() *exportDownloadStore {
	return &exportDownloadStore{
		items: make(map[string]exportDownload),
		now:   time.Now,
	}
}

func (s *exportDownloadStore) put(filePath string, ttl time.Duration) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.purgeExpiredLocked(now)

	token := uuid.NewString()
	s.items[token] = exportDownload{filePath: filePath, createdAt: now, expiresAt: now.Add(ttl)}
	return token
}

// take 取出并作废令牌
func (s *exportDownloadStore) take(token string) (exportDownload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpiredLocked(s.now())
	v, ok := s.items[token]
	if ok {
		delete(s.items, token)
	}
	return v, ok
}

// purgeExpiredLocked 删除过期令牌及其文件
func (s *exportDownloadStore) purgeExpiredLocked(now time.Time) {
	for k, v := range s.items {
		if now.After(v.expiresAt) {
			delete(s.items, k)
			_ = os.Remove(v.filePath)
		}
	}
}
