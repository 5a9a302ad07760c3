package v1

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"freightdash/internal/dashboard"
	"freightdash/internal/exporter"
	"freightdash/internal/filter"
	"freightdash/internal/parser"
)

// DateRangeRequest 日期范围请求，接受 YYYY-MM-DD 或 DD/MM/YYYY
type DateRangeRequest struct {
	Start string `json:"start" binding:"required"`
	End   string `json:"end" binding:"required"`
}

// FilterRequest 分类筛选点击
type FilterRequest struct {
	Dimension string `json:"dimension" binding:"required"`
	Value     string `json:"value"`
	// Resolve 为 true 时按模糊规则解析点击值（地图点击）
	Resolve bool `json:"resolve"`
}

// session 按 token 查找会话，不存在时写入 404
func (h *Handler) session(c *gin.Context) (*dashboard.Session, bool) {
	s, err := h.sessions.Get(c.Param("token"))
	if err != nil {
		errorResponse(c, http.StatusNotFound, err.Error(), nil)
		return nil, false
	}
	return s, true
}

// CreateSession 创建看板会话
// POST /api/dashboard/sessions
func (h *Handler) CreateSession(c *gin.Context) {
	s, err := h.sessions.Create(c.Request.Context())
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	success(c, http.StatusCreated, "created", s.View(false))
}

// GetSession 当前视图，records=true 时包含筛选结果明细
// GET /api/dashboard/sessions/:token
func (h *Handler) GetSession(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	ok(c, s.View(c.Query("records") == "true"))
}

// DeleteSession 关闭会话
// DELETE /api/dashboard/sessions/:token
func (h *Handler) DeleteSession(c *gin.Context) {
	if err := h.sessions.Delete(c.Param("token")); err != nil {
		errorResponse(c, http.StatusNotFound, err.Error(), nil)
		return
	}
	ok(c, gin.H{"deleted": true})
}

// SetDateRange 设置日期范围（防抖后生效）
// PUT /api/dashboard/sessions/:token/date-range
func (h *Handler) SetDateRange(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	var req DateRangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid json", nil)
		return
	}
	start, err := parseRequestDate(req.Start)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	end, err := parseRequestDate(req.End)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err := s.SetDateRange(start, end); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, filter.ErrInvalidRange) {
			status = http.StatusBadRequest
		}
		errorResponse(c, status, err.Error(), nil)
		return
	}
	success(c, http.StatusAccepted, "scheduled", nil)
}

// ClearDateRange 移除日期范围（防抖后生效）
// DELETE /api/dashboard/sessions/:token/date-range
func (h *Handler) ClearDateRange(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	s.ClearDateRange()
	success(c, http.StatusAccepted, "scheduled", nil)
}

// ToggleFilter 切换分类筛选
// POST /api/dashboard/sessions/:token/filters
func (h *Handler) ToggleFilter(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	var req FilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid json", nil)
		return
	}
	active, err := s.ToggleCategory(req.Dimension, req.Value, req.Resolve)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	ok(c, gin.H{"active": active, "view": s.View(false)})
}

// ClearFilters 移除所有分类筛选
// DELETE /api/dashboard/sessions/:token/filters
func (h *Handler) ClearFilters(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	s.ClearFilters()
	ok(c, s.View(false))
}

// ReloadSession 重新读取存储中的数据
// POST /api/dashboard/sessions/:token/reload
func (h *Handler) ReloadSession(c *gin.Context) {
	s, err := h.sessions.Reload(c.Request.Context(), c.Param("token"))
	if err != nil {
		if errors.Is(err, dashboard.ErrSessionNotFound) {
			errorResponse(c, http.StatusNotFound, err.Error(), nil)
			return
		}
		errorResponse(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	ok(c, s.View(false))
}

// ExportSession 导出当前筛选结果
// GET /api/dashboard/sessions/:token/export
func (h *Handler) ExportSession(c *gin.Context) {
	s, found := h.session(c)
	if !found {
		return
	}
	file, err := exporter.NewExporter().Export(exportOptions(s.View(true)))
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "falha ao exportar: "+err.Error(), nil)
		return
	}
	defer file.Close()

	c.Header("Content-Disposition", buildExportContentDisposition(time.Now()))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := file.Write(c.Writer); err != nil {
		h.logger.Error("write export", "token", s.Token, "err", err)
	}
}

// exportOptions 由当前视图构造导出参数
func exportOptions(view *dashboard.View) exporter.ExportOptions {
	opts := exporter.ExportOptions{
		Records: view.Records,
		Summary: view.Summary,
		Filters: view.Filters,
	}
	if view.DateRange != nil {
		opts.DateStart = view.DateRange.Start
		opts.DateEnd = view.DateRange.End
	}
	return opts
}

func buildExportContentDisposition(now time.Time) string {
	filename := fmt.Sprintf("fretes-%s.xlsx", now.Format("20060102-150405"))
	return fmt.Sprintf("attachment; filename=\"%s\"; filename*=UTF-8''%s", filename, url.PathEscape(filename))
}

func parseRequestDate(s string) (time.Time, error) {
	t, ok := parser.Date(strings.TrimSpace(s))
	if !ok {
		return time.Time{}, fmt.Errorf("invalid date: %q", s)
	}
	return t, nil
}
