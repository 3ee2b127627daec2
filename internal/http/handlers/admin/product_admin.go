package admin

import (
	handlershared "github.com/crsp-mall/internal/http/handlers/shared"
	"github.com/crsp-mall/internal/http/response"
	"github.com/crsp-mall/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// ProductRequest 创建/更新商品请求
type ProductRequest struct {
	Title       string          `json:"title" binding:"required"`
	Description string          `json:"description"`
	Images      []string        `json:"images"`
	Spec        string          `json:"spec"`
	Price       decimal.Decimal `json:"price"`
	Stock       *int            `json:"stock"`
	IsActive    *bool           `json:"is_active"`
	SortOrder   int             `json:"sort_order"`
}

// SetStockRequest 设置库存请求，stock 为 null 表示不限库存
type SetStockRequest struct {
	Stock *int `json:"stock"`
}

// SetActiveRequest 上下架请求
type SetActiveRequest struct {
	IsActive bool `json:"is_active"`
}

func (r ProductRequest) toInput() service.CreateProductInput {
	return service.CreateProductInput{
		Title:       r.Title,
		Description: r.Description,
		Images:      r.Images,
		Spec:        r.Spec,
		Price:       r.Price,
		Stock:       r.Stock,
		IsActive:    r.IsActive,
		SortOrder:   r.SortOrder,
	}
}

// GetAdminProducts 后台商品列表
func (h *Handler) GetAdminProducts(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	products, total, err := h.ProductService.ListAdmin(c.Query("search"), page, pageSize)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, products, response.BuildPagination(page, pageSize, total))
}

// GetAdminProduct 后台商品详情
func (h *Handler) GetAdminProduct(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	product, err := h.ProductService.GetAdmin(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, product)
}

// CreateProduct 创建商品
func (h *Handler) CreateProduct(c *gin.Context) {
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	product, err := h.ProductService.Create(req.toInput())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, product)
}

// UpdateProduct 更新商品
func (h *Handler) UpdateProduct(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	product, err := h.ProductService.Update(id, req.toInput())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, product)
}

// SetProductStock 设置库存
func (h *Handler) SetProductStock(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req SetStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.stock_invalid", err)
		return
	}
	product, err := h.ProductService.SetStock(id, req.Stock, adminID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, product)
}

// SetProductActive 上下架
func (h *Handler) SetProductActive(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	product, err := h.ProductService.SetActive(id, req.IsActive)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, product)
}
