package shared

import (
	"strings"

	"github.com/crsp-mall/internal/config"
	"github.com/crsp-mall/internal/constants"

	"github.com/gin-gonic/gin"
)

// UserTokenNames 返回配置中的 Cookie 名与请求头名（空值回退默认）。
func UserTokenNames(cfg config.UserConfig) (string, string) {
	cookieName := strings.TrimSpace(cfg.TokenCookie)
	if cookieName == "" {
		cookieName = constants.UserTokenCookieDefault
	}
	headerName := strings.TrimSpace(cfg.TokenHeader)
	if headerName == "" {
		headerName = constants.UserTokenHeaderDefault
	}
	return cookieName, headerName
}

// ReadUserToken Cookie 优先，其次请求头。
func ReadUserToken(c *gin.Context, cookieName, headerName string) string {
	if value, err := c.Cookie(cookieName); err == nil {
		if token := strings.TrimSpace(value); token != "" {
			return token
		}
	}
	return strings.TrimSpace(c.GetHeader(headerName))
}
