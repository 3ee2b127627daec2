package admin

import (
	"strings"
	"time"

	handlershared "github.com/crsp-mall/internal/http/handlers/shared"
	"github.com/crsp-mall/internal/http/response"
	"github.com/crsp-mall/internal/repository"

	"github.com/gin-gonic/gin"
)

// UpdateOrderStatusRequest 更新订单状态请求
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// AdminListOrders 后台订单列表
func (h *Handler) AdminListOrders(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	filter := repository.OrderListFilter{
		Page:      page,
		PageSize:  pageSize,
		Status:    c.Query("status"),
		OrderNo:   c.Query("order_no"),
		UserPhone: c.Query("user_phone"),
	}
	var ok bool
	if filter.CreatedFrom, ok = parseDateQuery(c, "created_from"); !ok {
		return
	}
	if filter.CreatedTo, ok = parseDateQuery(c, "created_to"); !ok {
		return
	}
	orders, total, err := h.OrderService.AdminList(filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, orders, response.BuildPagination(page, pageSize, total))
}

// AdminGetOrder 后台订单详情
func (h *Handler) AdminGetOrder(c *gin.Context) {
	orderID, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	detail, err := h.OrderService.AdminGet(orderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, detail)
}

// AdminUpdateOrderStatus 后台推进订单状态
func (h *Handler) AdminUpdateOrderStatus(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	orderID, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	order, err := h.LifecycleService.AdminUpdateStatus(orderID, req.Status, adminID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, order)
}

// AdminDeleteOrder 删除订单
func (h *Handler) AdminDeleteOrder(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	orderID, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.OrderService.AdminDelete(orderID, adminID); err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": true})
}

// parseDateQuery 解析 YYYY-MM-DD 或 RFC3339
func parseDateQuery(c *gin.Context, name string) (*time.Time, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if parsed, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return &parsed, true
		}
	}
	respondError(c, response.CodeBadRequest, "error.bad_request", nil)
	return nil, false
}
