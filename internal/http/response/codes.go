package response

// 响应体 status_code 取值，HTTP 状态码固定为 200
const (
	CodeOK              = 0
	CodeBadRequest      = 400 // 参数或校验错误
	CodeUnauthorized    = 401 // 未登录、令牌无效
	CodeForbidden       = 403 // 角色无权执行
	CodeNotFound        = 404
	CodeConflict        = 409 // 库存、价格或状态冲突，调整后可重试
	CodeTooManyRequests = 429
	CodeInternal        = 500
)
