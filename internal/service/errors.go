package service

import (
	"errors"
	"fmt"
)

// ErrorKind 机器可读的错误类型
type ErrorKind string

// 错误类型常量
const (
	KindValidation         ErrorKind = "validation_error"
	KindProductUnavailable ErrorKind = "product_unavailable"
	KindOutOfStock         ErrorKind = "out_of_stock"
	KindInsufficientStock  ErrorKind = "insufficient_stock"
	KindPriceChanged       ErrorKind = "price_changed"
	KindInvalidTransition  ErrorKind = "invalid_transition"
	KindUnauthorized       ErrorKind = "unauthorized"
	KindForbidden          ErrorKind = "forbidden"
	KindNotFound           ErrorKind = "not_found"
	KindStoreFault         ErrorKind = "store_fault"
)

// 业务哨兵错误，BizError 通过 Unwrap 指向它们
var (
	ErrValidation          = errors.New("validation error")
	ErrProductUnavailable  = errors.New("product unavailable")
	ErrOutOfStock          = errors.New("product out of stock")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrPriceChanged        = errors.New("price changed")
	ErrInvalidTransition   = errors.New("invalid order status transition")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrOrderNotFound       = errors.New("order not found")
	ErrProductNotFound     = errors.New("product not found")
	ErrCartItemNotFound    = errors.New("cart item not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrStoreFault          = errors.New("store fault")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidOrderStatus  = errors.New("invalid order status")
	ErrCartQuantityInvalid = errors.New("cart quantity invalid")
)

var sentinelKinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrValidation, KindValidation},
	{ErrCartQuantityInvalid, KindValidation},
	{ErrInvalidOrderStatus, KindValidation},
	{ErrProductUnavailable, KindProductUnavailable},
	{ErrOutOfStock, KindOutOfStock},
	{ErrInsufficientStock, KindInsufficientStock},
	{ErrPriceChanged, KindPriceChanged},
	{ErrInvalidTransition, KindInvalidTransition},
	{ErrUnauthorized, KindUnauthorized},
	{ErrInvalidCredentials, KindUnauthorized},
	{ErrForbidden, KindForbidden},
	{ErrOrderNotFound, KindNotFound},
	{ErrProductNotFound, KindNotFound},
	{ErrCartItemNotFound, KindNotFound},
	{ErrUserNotFound, KindNotFound},
	{ErrStoreFault, KindStoreFault},
}

// BizError 带用户可读消息的业务错误
type BizError struct {
	Kind    ErrorKind
	Message string
	Err     error
	Data    map[string]interface{}
}

func (e *BizError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

// Unwrap 返回哨兵错误
func (e *BizError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// newBizError 以哨兵错误构造业务错误
func newBizError(sentinel error, format string, args ...interface{}) *BizError {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &BizError{Kind: kindOfSentinel(sentinel), Message: msg, Err: sentinel}
}

// storeFault 包装持久化故障，保留原始原因
func storeFault(cause error) *BizError {
	return &BizError{
		Kind:    KindStoreFault,
		Message: "系统繁忙，请稍后重试",
		Err:     fmt.Errorf("%w: %w", ErrStoreFault, cause),
	}
}

// KindOf 解析错误类型，未知错误按 store_fault 处理
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var biz *BizError
	if errors.As(err, &biz) && biz.Kind != "" {
		return biz.Kind
	}
	for _, item := range sentinelKinds {
		if errors.Is(err, item.err) {
			return item.kind
		}
	}
	return KindStoreFault
}

// MessageOf 返回面向用户的消息，非业务错误返回空串
func MessageOf(err error) string {
	var biz *BizError
	if errors.As(err, &biz) {
		return biz.Message
	}
	return ""
}

// DataOf 返回错误附带的结构化数据
func DataOf(err error) map[string]interface{} {
	var biz *BizError
	if errors.As(err, &biz) {
		return biz.Data
	}
	return nil
}

func kindOfSentinel(sentinel error) ErrorKind {
	for _, item := range sentinelKinds {
		if item.err == sentinel {
			return item.kind
		}
	}
	return KindStoreFault
}
