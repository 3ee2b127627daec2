package shared

import (
	"github.com/crsp-mall/internal/http/response"

	"github.com/gin-gonic/gin"
)

// 鉴权中间件写入 gin 上下文的身份 key
const (
	UserIDKey  = "user_id"
	AdminIDKey = "admin_id"
)

// UserID 当前用户 ID，缺失或非法时已写出错误响应
func UserID(c *gin.Context) (uint, bool) {
	return contextID(c, UserIDKey, "error.user_id_invalid", "error.user_id_type_invalid")
}

// AdminID 当前管理员 ID，缺失或非法时已写出错误响应
func AdminID(c *gin.Context) (uint, bool) {
	return contextID(c, AdminIDKey, "error.admin_id_invalid", "error.admin_id_type_invalid")
}

func contextID(c *gin.Context, key, invalidKey, typeInvalidKey string) (uint, bool) {
	value, exists := c.Get(key)
	if !exists {
		RespondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
		return 0, false
	}
	switch v := value.(type) {
	case uint:
		if v == 0 {
			RespondError(c, response.CodeUnauthorized, invalidKey, nil)
			return 0, false
		}
		return v, true
	case int:
		if v <= 0 {
			RespondError(c, response.CodeUnauthorized, invalidKey, nil)
			return 0, false
		}
		return uint(v), true
	default:
		RespondError(c, response.CodeInternal, typeInvalidKey, nil)
		return 0, false
	}
}
