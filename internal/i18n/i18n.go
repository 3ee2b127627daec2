package i18n

import (
	"fmt"
	"strings"

	"github.com/crsp-mall/internal/constants"

	"github.com/gin-gonic/gin"
)

// LocaleContextKey gin 上下文中的语言 key
const LocaleContextKey = "locale"

var messages = map[string]map[string]string{
	constants.LocaleZhCN: {
		"error.bad_request":              "请求参数错误",
		"error.unauthorized":             "未登录或登录已过期",
		"error.forbidden":                "无权访问",
		"error.not_found":                "资源不存在",
		"error.internal":                 "服务器内部错误",
		"error.rate_limited":             "操作过于频繁，请 %d 秒后再试",
		"error.rate_limit_unavailable":   "限流服务不可用，请稍后重试",
		"error.login_too_many":           "登录尝试过多，请 %d 秒后再试",
		"error.jwt_secret_missing":       "鉴权配置缺失",
		"error.auth_header_missing":      "缺少 Authorization 头",
		"error.auth_header_invalid":      "Authorization 格式错误",
		"error.token_invalid":            "无效的 token",
		"error.user_token_missing":       "用户未登录",
		"error.user_id_invalid":          "用户 ID 无效",
		"error.user_id_type_invalid":     "用户 ID 类型错误",
		"error.admin_id_invalid":         "管理员 ID 无效",
		"error.admin_id_type_invalid":    "管理员 ID 类型错误",
		"error.id_invalid":               "ID 参数错误",
		"error.login_invalid":            "用户名或密码错误",
		"error.order_not_found":          "订单不存在",
		"error.product_not_found":        "商品不存在",
		"error.store_fault":              "系统繁忙，请稍后重试",
		"error.invalid_transition":       "订单状态不允许变更",
		"error.price_changed":            "商品价格已变动，请确认后重新提交",
		"error.stock_invalid":            "库存参数错误",
		"error.validation_error":         "参数校验失败",
		"error.product_unavailable":      "商品已下架",
		"error.out_of_stock":             "商品已售罄",
		"error.insufficient_stock":       "商品库存不足",
		"error.product_unavailable_item": "商品 \"%s\" 已下架",
		"error.out_of_stock_item":        "商品 \"%s\" 已售罄",
		"error.insufficient_stock_item":  "商品 \"%s\" 库存不足，当前库存: %d",
		"error.price_changed_list":       "以下商品价格已变动，请确认后重新提交：",
		"error.price_changed_entry":      "「%s」 ¥%s → ¥%s；",
	},
	constants.LocaleEnUS: {
		"error.bad_request":              "Invalid request parameters",
		"error.unauthorized":             "Not signed in or session expired",
		"error.forbidden":                "Access denied",
		"error.not_found":                "Resource not found",
		"error.internal":                 "Internal server error",
		"error.rate_limited":             "Too many requests, retry in %d seconds",
		"error.rate_limit_unavailable":   "Rate limiter unavailable, please retry later",
		"error.login_too_many":           "Too many login attempts, retry in %d seconds",
		"error.jwt_secret_missing":       "Authentication is not configured",
		"error.auth_header_missing":      "Missing Authorization header",
		"error.auth_header_invalid":      "Malformed Authorization header",
		"error.token_invalid":            "Invalid token",
		"error.user_token_missing":       "User is not signed in",
		"error.user_id_invalid":          "Invalid user id",
		"error.user_id_type_invalid":     "Invalid user id type",
		"error.admin_id_invalid":         "Invalid admin id",
		"error.admin_id_type_invalid":    "Invalid admin id type",
		"error.id_invalid":               "Invalid id",
		"error.login_invalid":            "Wrong username or password",
		"error.order_not_found":          "Order not found",
		"error.product_not_found":        "Product not found",
		"error.store_fault":              "System busy, please retry later",
		"error.invalid_transition":       "Order status change is not allowed",
		"error.price_changed":            "Prices changed, please review and resubmit",
		"error.stock_invalid":            "Invalid stock value",
		"error.validation_error":         "Validation failed",
		"error.product_unavailable":      "Product is no longer available",
		"error.out_of_stock":             "Product is sold out",
		"error.insufficient_stock":       "Insufficient stock",
		"error.product_unavailable_item": "Product \"%s\" is no longer available",
		"error.out_of_stock_item":        "Product \"%s\" is sold out",
		"error.insufficient_stock_item":  "Insufficient stock for \"%s\", current stock: %d",
		"error.price_changed_list":       "Prices of the following items changed, please review and resubmit: ",
		"error.price_changed_entry":      "\"%s\" ¥%s -> ¥%s; ",
	},
}

// T 翻译 key，未命中时按支持语言顺序回退，最终返回 key 本身
func T(locale, key string) string {
	if msg, ok := lookup(locale, key); ok {
		return msg
	}
	for _, fallback := range constants.SupportedLocales {
		if msg, ok := lookup(fallback, key); ok {
			return msg
		}
	}
	return key
}

// Sprintf 翻译后格式化
func Sprintf(locale, key string, args ...interface{}) string {
	return fmt.Sprintf(T(locale, key), args...)
}

// Has 是否存在该 key
func Has(locale, key string) bool {
	_, ok := lookup(locale, key)
	return ok
}

// ResolveLocale 从上下文、查询参数或 Accept-Language 解析语言
func ResolveLocale(c *gin.Context) string {
	if c == nil {
		return constants.LocaleZhCN
	}
	if value, ok := c.Get(LocaleContextKey); ok {
		if locale, ok := value.(string); ok {
			if normalized := NormalizeLocale(locale); normalized != "" {
				return normalized
			}
		}
	}
	if c.Request == nil {
		return constants.LocaleZhCN
	}
	if normalized := NormalizeLocale(c.Query("lang")); normalized != "" {
		return normalized
	}
	for _, part := range strings.Split(c.GetHeader("Accept-Language"), ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if normalized := NormalizeLocale(tag); normalized != "" {
			return normalized
		}
	}
	return constants.LocaleZhCN
}

// NormalizeLocale 归一化为支持的语言，不支持时返回空串
func NormalizeLocale(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	switch {
	case raw == "":
		return ""
	case strings.HasPrefix(raw, "zh"):
		return constants.LocaleZhCN
	case strings.HasPrefix(raw, "en"):
		return constants.LocaleEnUS
	default:
		return ""
	}
}

func lookup(locale, key string) (string, bool) {
	catalog, ok := messages[locale]
	if !ok {
		return "", false
	}
	msg, ok := catalog[key]
	return msg, ok
}
