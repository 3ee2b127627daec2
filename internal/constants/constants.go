package constants

// OrderStatus 订单状态
type OrderStatus string

// 订单状态常量
const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// AllOrderStatuses 全部订单状态（按生命周期顺序）
var AllOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusPaid,
	OrderStatusShipped,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

// String 返回状态字符串
func (s OrderStatus) String() string {
	return string(s)
}

// Valid 是否为已知状态
func (s OrderStatus) Valid() bool {
	for _, item := range AllOrderStatuses {
		if item == s {
			return true
		}
	}
	return false
}

// 操作者角色常量
const (
	ActorAdmin  = "admin"
	ActorUser   = "user"
	ActorSystem = "system"
)

// 用户类型常量
const (
	UserTypeGuest      = "guest"
	UserTypeRegistered = "registered"
)

// 购物车常量
const (
	CartQuantityMin = 1
	CartQuantityMax = 999
)

// 队列常量
const (
	QueueDefault           = "default"
	TaskOrderTimeoutCancel = "order:timeout_cancel"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "mall"
)

// 用户令牌常量
const (
	UserTokenCookieDefault = "user_token"
	UserTokenHeaderDefault = "X-User-Token"
)

// 币种常量
const (
	SiteCurrencyDefault = "CNY"
)

// 站点语言常量
const (
	LocaleZhCN = "zh-CN"
	LocaleEnUS = "en-US"
)

// 支持的站点语言顺序（含回退顺序）
var SupportedLocales = []string{LocaleZhCN, LocaleEnUS}

// 订单号前缀
const OrderNoPrefix = "ORD"
