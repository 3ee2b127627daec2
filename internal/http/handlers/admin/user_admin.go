package admin

import (
	handlershared "github.com/crsp-mall/internal/http/handlers/shared"
	"github.com/crsp-mall/internal/http/response"
	"github.com/crsp-mall/internal/repository"
	"github.com/crsp-mall/internal/service"

	"github.com/gin-gonic/gin"
)

// UpdateUserRequest 后台编辑用户请求，未传字段保持不变
type UpdateUserRequest struct {
	Nickname *string `json:"nickname"`
	Phone    *string `json:"phone"`
	UserType *string `json:"user_type"`
	IsActive *bool   `json:"is_active"`
}

// GetAdminUsers 后台用户列表
func (h *Handler) GetAdminUsers(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	users, total, err := h.AdminUserService.List(repository.UserListFilter{
		Page:     page,
		PageSize: pageSize,
		Keyword:  c.Query("keyword"),
		UserType: c.Query("type"),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, users, response.BuildPagination(page, pageSize, total))
}

// GetAdminUser 后台用户详情
func (h *Handler) GetAdminUser(c *gin.Context) {
	userID, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	detail, err := h.AdminUserService.Get(userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, detail)
}

// UpdateAdminUser 后台编辑用户
func (h *Handler) UpdateAdminUser(c *gin.Context) {
	userID, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	user, err := h.AdminUserService.Update(c.Request.Context(), userID, service.AdminUserUpdateInput{
		Nickname: req.Nickname,
		Phone:    req.Phone,
		UserType: req.UserType,
		IsActive: req.IsActive,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, user)
}

// DeleteAdminUser 删除用户
func (h *Handler) DeleteAdminUser(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	userID, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.AdminUserService.Delete(c.Request.Context(), userID, adminID); err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": true})
}
