package public

import (
	"net/http"

	handlershared "github.com/crsp-mall/internal/http/handlers/shared"
	"github.com/crsp-mall/internal/http/response"

	"github.com/gin-gonic/gin"
)

// UpdateProfileRequest 更新资料请求
type UpdateProfileRequest struct {
	Nickname string `json:"nickname"`
	Phone    string `json:"phone"`
}

// InitUser 初始化用户：携带有效令牌时复用，否则创建游客并下发令牌 Cookie
func (h *Handler) InitUser(c *gin.Context) {
	cookieName, headerName := handlershared.UserTokenNames(h.Config.User)
	existing := handlershared.ReadUserToken(c, cookieName, headerName)

	user, created, err := h.UserService.InitGuest(c.Request.Context(), existing)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	maxAge := h.Config.User.TokenCookieMaxAge
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cookieName, user.Token, maxAge, "/", "", false, true)
	response.Success(c, gin.H{
		"token":   user.Token,
		"created": created,
		"user":    user,
	})
}

// GetCurrentUser 当前用户信息
func (h *Handler) GetCurrentUser(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	user, err := h.UserService.GetByID(uid)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	cartCount, err := h.CartService.Count(uid)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{
		"user":       user,
		"cart_count": cartCount,
	})
}

// UpdateProfile 更新昵称与手机号
func (h *Handler) UpdateProfile(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	user, err := h.UserService.UpdateProfile(c.Request.Context(), uid, req.Nickname, req.Phone)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, user)
}
