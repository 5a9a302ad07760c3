package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"freightdash/internal/filter"
	"freightdash/internal/model"
	"freightdash/internal/store"
)

// ListShipments 运单查询，无条件时返回全部
// GET /api/shipments
func (h *Handler) ListShipments(c *gin.Context) {
	var q store.ShipmentQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	var (
		records []*model.ShipmentRecord
		err     error
	)
	if q.IsEmpty() {
		records, err = h.store.GetAll(c.Request.Context())
	} else {
		records, err = h.store.Search(c.Request.Context(), q)
	}
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	if records == nil {
		records = []*model.ShipmentRecord{}
	}
	ok(c, gin.H{"items": records, "total": len(records)})
}

// ListMonths 有数据的月份，供日期选择器使用
// GET /api/shipments/months
func (h *Handler) ListMonths(c *gin.Context) {
	months, err := h.store.ListAvailableMonths(c.Request.Context())
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	ok(c, months)
}

// GetSchema 表结构诊断
// GET /api/schema
func (h *Handler) GetSchema(c *gin.Context) {
	info, err := h.store.DescribeSchema(c.Request.Context())
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	ok(c, gin.H{
		"schema": info,
		"fields": model.Fields,
	})
}

// StatusResponse 系统状态响应
type StatusResponse struct {
	Initialized    bool             `json:"initialized"` // 是否已有数据
	TotalShipments int              `json:"totalShipments"`
	Sessions       int              `json:"sessions"`
	LastImport     *model.ImportLog `json:"lastImport,omitempty"`
}

// GetStatus 获取系统状态
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	ctx := c.Request.Context()
	count, err := h.store.Count(ctx)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	resp := StatusResponse{
		Initialized:    count > 0,
		TotalShipments: count,
		Sessions:       h.sessions.Len(),
	}
	logs, err := h.store.ListImportLogs(ctx, 1)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	if len(logs) > 0 {
		resp.LastImport = logs[0]
	}
	ok(c, resp)
}

// ListDimensions 可筛选的维度
// GET /api/dashboard/dimensions
func (h *Handler) ListDimensions(c *gin.Context) {
	ok(c, filter.Dimensions())
}
