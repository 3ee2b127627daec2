package router

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/crsp-mall/internal/config"
	"github.com/crsp-mall/internal/constants"
	handlershared "github.com/crsp-mall/internal/http/handlers/shared"
	"github.com/crsp-mall/internal/http/response"
	"github.com/crsp-mall/internal/i18n"
	"github.com/crsp-mall/internal/logger"
	"github.com/crsp-mall/internal/models"
	"github.com/crsp-mall/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	requestIDHeader   = "X-Request-ID"
	userIDContextKey  = handlershared.UserIDKey
	adminIDContextKey = handlershared.AdminIDKey
	adminNameKey      = "admin_username"
)

// UserTokenResolver 令牌解析为用户 ID，未知令牌返回 0
type UserTokenResolver interface {
	ResolveToken(ctx context.Context, token string) (uint, error)
}

// AdminTokenParser 解析管理员 JWT
type AdminTokenParser interface {
	ParseJWT(tokenString string) (*service.JWTClaims, error)
}

// AdminLookup 确认令牌对应的管理员仍然存在
type AdminLookup interface {
	GetByID(id uint) (*models.Admin, error)
}

var defaultCORSHeaders = []string{
	"Content-Type",
	"Authorization",
	"Accept-Language",
	"X-Requested-With",
	requestIDHeader,
	constants.UserTokenHeaderDefault,
}

// CORSMiddleware 跨域中间件
func CORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	origins := orDefault(cfg.AllowedOrigins, []string{"*"})
	methods := strings.Join(orDefault(cfg.AllowedMethods, []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}), ", ")
	headers := strings.Join(orDefault(cfg.AllowedHeaders, defaultCORSHeaders), ", ")

	return func(c *gin.Context) {
		h := c.Writer.Header()
		if origin := resolveAllowedOrigin(c.GetHeader("Origin"), origins, cfg.AllowCredentials); origin != "" {
			h.Set("Access-Control-Allow-Origin", origin)
			if origin != "*" {
				h.Add("Vary", "Origin")
			}
		}
		if cfg.AllowCredentials {
			h.Set("Access-Control-Allow-Credentials", "true")
		}
		h.Set("Access-Control-Allow-Headers", headers)
		h.Set("Access-Control-Allow-Methods", methods)
		h.Set("Access-Control-Expose-Headers", requestIDHeader+", Retry-After")
		if cfg.MaxAge > 0 {
			h.Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// 携带凭证时不能回 "*"，改为回显请求来源
func resolveAllowedOrigin(origin string, allowed []string, allowCredentials bool) string {
	for _, item := range allowed {
		if item != "*" {
			continue
		}
		if allowCredentials && origin != "" {
			return origin
		}
		return "*"
	}
	if origin == "" {
		return ""
	}
	for _, item := range allowed {
		if strings.EqualFold(item, origin) {
			return origin
		}
	}
	return ""
}

func orDefault(values, fallback []string) []string {
	if len(values) == 0 {
		return fallback
	}
	return values
}

// RequestIDMiddleware 沿用上游的 X-Request-ID，缺失时生成
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(response.RequestIDKey, requestID)
		c.Header(requestIDHeader, requestID)
		c.Next()
	}
}

// LoggerMiddleware 每个请求一条结构化日志
func LoggerMiddleware(log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.L()
	}
	sugar := log.Named("http").Sugar()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		kv := []interface{}{
			"request_id", getRequestID(c),
			"method", c.Request.Method,
			"route", c.FullPath(),
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if userID := c.GetUint(userIDContextKey); userID > 0 {
			kv = append(kv, "user_id", userID)
		}
		if adminID := c.GetUint(adminIDContextKey); adminID > 0 {
			kv = append(kv, "admin_id", adminID)
		}
		if len(c.Errors) > 0 {
			sugar.Errorw("request", append(kv, "errors", c.Errors.String())...)
			return
		}
		sugar.Infow("request", kv...)
	}
}

func getRequestID(c *gin.Context) string {
	return response.RequestID(c)
}

func abortUnauthorized(c *gin.Context, messageKey string) {
	response.Unauthorized(c, i18n.T(i18n.ResolveLocale(c), messageKey))
	c.Abort()
}

// UserTokenMiddleware 从 Cookie 或请求头识别访客；required 时未识别返回 401
func UserTokenMiddleware(resolver UserTokenResolver, cfg config.UserConfig, required bool) gin.HandlerFunc {
	cookieName, headerName := handlershared.UserTokenNames(cfg)
	return func(c *gin.Context) {
		var userID uint
		if token := handlershared.ReadUserToken(c, cookieName, headerName); token != "" && resolver != nil {
			resolved, err := resolver.ResolveToken(c.Request.Context(), token)
			if err != nil {
				logger.Errorw("user_token_resolve_failed", "request_id", getRequestID(c), "error", err)
				response.Error(c, response.CodeInternal, i18n.T(i18n.ResolveLocale(c), "error.store_fault"))
				c.Abort()
				return
			}
			userID = resolved
		}
		switch {
		case userID > 0:
			c.Set(userIDContextKey, userID)
		case required:
			abortUnauthorized(c, "error.user_token_missing")
			return
		}
		c.Next()
	}
}

// AdminJWTAuthMiddleware 校验 Bearer JWT，并确认管理员未被删除
func AdminJWTAuthMiddleware(parser AdminTokenParser, admins AdminLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		if parser == nil || admins == nil {
			abortUnauthorized(c, "error.jwt_secret_missing")
			return
		}
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c, "error.auth_header_missing")
			return
		}
		token, ok := bearerToken(header)
		if !ok {
			abortUnauthorized(c, "error.auth_header_invalid")
			return
		}
		claims, err := parser.ParseJWT(token)
		if err != nil {
			abortUnauthorized(c, "error.token_invalid")
			return
		}
		admin, err := admins.GetByID(claims.AdminID)
		if err != nil {
			logger.Errorw("admin_lookup_failed", "admin_id", claims.AdminID, "error", err)
		}
		if admin == nil {
			abortUnauthorized(c, "error.token_invalid")
			return
		}
		c.Set(adminIDContextKey, admin.ID)
		c.Set(adminNameKey, admin.Username)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	token = strings.TrimSpace(token)
	if !found || scheme != "Bearer" || token == "" {
		return "", false
	}
	return token, true
}
