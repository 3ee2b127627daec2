package public

import (
	"github.com/crsp-mall/internal/http/response"
	"github.com/crsp-mall/internal/service"

	"github.com/gin-gonic/gin"
)

// CheckoutRequest 结算请求
type CheckoutRequest struct {
	RecipientName    string `json:"recipient_name"`
	RecipientPhone   string `json:"recipient_phone"`
	RecipientAddress string `json:"recipient_address"`
	Remark           string `json:"remark"`
}

// Checkout 勾选的购物车项生成订单
func (h *Handler) Checkout(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	order, err := h.CheckoutService.Checkout(service.CheckoutInput{
		UserID:           uid,
		RecipientName:    req.RecipientName,
		RecipientPhone:   req.RecipientPhone,
		RecipientAddress: req.RecipientAddress,
		Remark:           req.Remark,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithMsg(c, "订单提交成功", gin.H{
		"order_id":      order.ID,
		"order_no":      order.OrderNo,
		"total_amount":  order.TotalAmount,
		"product_count": order.ProductCount,
		"status":        order.Status,
	})
}
