package shared

import (
	"strings"

	"github.com/crsp-mall/internal/constants"
	"github.com/crsp-mall/internal/http/response"
	"github.com/crsp-mall/internal/i18n"
	"github.com/crsp-mall/internal/logger"
	"github.com/crsp-mall/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if id := response.RequestID(c); id != "" {
		return logger.SW(response.RequestIDKey, id)
	}
	return logger.S()
}

// RespondError 返回国际化错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, key string, err error) {
	locale := i18n.ResolveLocale(c)
	msg := i18n.T(locale, key)
	appErr := response.WrapError(code, msg, err)
	if err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"message", appErr.Message,
			"error", err,
		)
	}
	response.Abort(c, appErr)
}

// serviceErrorCodes 业务错误类型到响应码的映射
var serviceErrorCodes = map[service.ErrorKind]int{
	service.KindValidation:         response.CodeBadRequest,
	service.KindProductUnavailable: response.CodeConflict,
	service.KindOutOfStock:         response.CodeConflict,
	service.KindInsufficientStock:  response.CodeConflict,
	service.KindPriceChanged:       response.CodeConflict,
	service.KindInvalidTransition:  response.CodeConflict,
	service.KindUnauthorized:       response.CodeUnauthorized,
	service.KindForbidden:          response.CodeForbidden,
	service.KindNotFound:           response.CodeNotFound,
	service.KindStoreFault:         response.CodeInternal,
}

// RespondServiceError 业务错误按类型映射响应码，附带 kind 与结构化数据；
// 中文环境直接返回业务消息，其余语言按 kind 与结构化数据重新生成。
func RespondServiceError(c *gin.Context, err error) {
	kind := service.KindOf(err)
	code, ok := serviceErrorCodes[kind]
	if !ok {
		code = response.CodeInternal
	}
	locale := i18n.ResolveLocale(c)
	msg := service.MessageOf(err)
	if msg == "" || locale != constants.LocaleZhCN {
		msg = localizedServiceMessage(locale, kind, service.DataOf(err))
	}

	log := RequestLog(c)
	if kind == service.KindStoreFault {
		log.Errorw("handler_store_fault", "path", c.FullPath(), "error", err)
	} else {
		log.Debugw("handler_business_rejected", "path", c.FullPath(), "kind", kind, "message", msg)
	}
	response.Abort(c, response.WrapError(code, msg, err).WithKind(string(kind), service.DataOf(err)))
}

// localizedServiceMessage 商品相关错误带上商品名、当前库存与价格变动明细
func localizedServiceMessage(locale string, kind service.ErrorKind, data map[string]interface{}) string {
	key := "error." + string(kind)
	title, hasTitle := data["title"].(string)
	switch kind {
	case service.KindProductUnavailable, service.KindOutOfStock:
		if hasTitle {
			return i18n.Sprintf(locale, key+"_item", title)
		}
	case service.KindInsufficientStock:
		if current, ok := data["current_stock"].(int); ok && hasTitle {
			return i18n.Sprintf(locale, key+"_item", title, current)
		}
	case service.KindPriceChanged:
		if changes, ok := data["changes"].([]service.PriceChange); ok && len(changes) > 0 {
			var builder strings.Builder
			builder.WriteString(i18n.T(locale, key+"_list"))
			for _, change := range changes {
				builder.WriteString(i18n.Sprintf(locale, "error.price_changed_entry", change.Title, change.OldPrice.String(), change.NewPrice.String()))
			}
			return builder.String()
		}
	}
	return i18n.T(locale, key)
}
