package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"freightdash/internal/importer"
	"freightdash/internal/model"
)

var allowedExtensions = map[string]bool{".xlsx": true, ".xls": true}

// uploadedFile 已读取的上传文件
type uploadedFile struct {
	Filename string
	Data     []byte
}

// readUpload 读取 multipart 字段 file
func (h *Handler) readUpload(c *gin.Context) (*uploadedFile, int, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return nil, http.StatusBadRequest, importer.ErrNoFile
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedExtensions[ext] {
		return nil, http.StatusBadRequest, fmt.Errorf("unsupported file type %q, expected .xlsx or .xls", ext)
	}
	if fh.Size > h.maxUploadBytes {
		return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("file exceeds %d MB", h.maxUploadBytes>>20)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, http.StatusInternalServerError, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, http.StatusInternalServerError, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, http.StatusBadRequest, importer.ErrNoFile
	}

	up := &uploadedFile{Filename: filepath.Base(fh.Filename), Data: data}
	h.keepUpload(up)
	return up, http.StatusOK, nil
}

// keepUpload 按配置保留上传原件，失败只记日志
func (h *Handler) keepUpload(up *uploadedFile) {
	if !h.keepUploads || h.uploadsDir == "" {
		return
	}
	name := fmt.Sprintf("%s_%s", time.Now().Format("20060102_150405"), up.Filename)
	if err := os.WriteFile(filepath.Join(h.uploadsDir, name), up.Data, 0644); err != nil {
		h.logger.Warn("keep upload", "filename", up.Filename, "err", err)
	}
}

// Upload 上传并导入电子表格
// POST /api/upload
func (h *Handler) Upload(c *gin.Context) {
	up, status, err := h.readUpload(c)
	if err != nil {
		errorResponse(c, status, err.Error(), nil)
		return
	}

	// 上传路径使用独立连接，任何返回路径都会关闭
	st, err := h.openStore()
	if err != nil {
		h.logger.Error("open store for upload", "err", err)
		errorResponse(c, http.StatusInternalServerError, "falha ao abrir o banco de dados: "+err.Error(), nil)
		return
	}
	defer st.Close()

	coord := importer.NewCoordinator(st, h.aliases, h.logger)
	report, err := coord.Import(c.Request.Context(), importer.ImportOptions{
		Filename: up.Filename,
		Data:     up.Data,
	})
	if err != nil {
		h.importError(c, err)
		return
	}

	message := fmt.Sprintf("%d registros inseridos", report.Inserted)
	if n := len(report.Failures); n > 0 {
		message += fmt.Sprintf(", %d linhas com erro", n)
	}
	success(c, http.StatusOK, message, report)
}

// importError 致命导入错误映射为 HTTP 响应
func (h *Handler) importError(c *gin.Context, err error) {
	var mce *importer.MissingColumnsError
	switch {
	case errors.As(err, &mce):
		errorResponse(c, http.StatusBadRequest, missingColumnsMessage(mce), gin.H{
			"missingFields": mce.Missing,
			"headersFound":  mce.HeadersFound,
			"fieldsUsed":    mce.FieldsMatched,
		})
	case errors.Is(err, importer.ErrNoFile),
		errors.Is(err, importer.ErrEmptyWorkbook),
		errors.Is(err, importer.ErrUnreadableWorkbook):
		errorResponse(c, http.StatusBadRequest, err.Error(), nil)
	default:
		errorResponse(c, http.StatusInternalServerError, err.Error(), nil)
	}
}

func missingColumnsMessage(e *importer.MissingColumnsError) string {
	names := make([]string, len(e.Missing))
	for i, m := range e.Missing {
		names[i] = string(m.Field)
	}
	return "colunas obrigatórias ausentes: " + strings.Join(names, ", ")
}

// UploadStream 上传并导入电子表格 (SSE 流式响应)
// POST /api/upload/stream
func (h *Handler) UploadStream(c *gin.Context) {
	up, status, err := h.readUpload(c)
	if err != nil {
		errorResponse(c, status, err.Error(), nil)
		return
	}

	st, err := h.openStore()
	if err != nil {
		h.logger.Error("open store for upload", "err", err)
		errorResponse(c, http.StatusInternalServerError, "falha ao abrir o banco de dados: "+err.Error(), nil)
		return
	}
	defer st.Close()

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		errorResponse(c, http.StatusInternalServerError, "streaming not supported", nil)
		return
	}

	// 设置 SSE 响应头
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	coord := importer.NewCoordinator(st, h.aliases, h.logger)
	progressChan := coord.Stream(c.Request.Context(), importer.ImportOptions{
		Filename: up.Filename,
		Data:     up.Data,
	})

	// 通道关闭前导入仍在使用 st
	for event := range progressChan {
		eventData, err := json.Marshal(event)
		if err != nil {
			continue
		}
		// SSE 格式: data: {json}\n\n
		fmt.Fprintf(c.Writer, "data: %s\n\n", eventData)
		flusher.Flush()
	}
}

// ListImports 导入历史
// GET /api/imports
func (h *Handler) ListImports(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			errorResponse(c, http.StatusBadRequest, "invalid limit", nil)
			return
		}
		limit = n
	}
	logs, err := h.store.ListImportLogs(c.Request.Context(), limit)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	if logs == nil {
		logs = []*model.ImportLog{}
	}
	ok(c, logs)
}
