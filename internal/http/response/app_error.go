package response

import "github.com/gin-gonic/gin"

// AppError 接口层错误：响应码、对外消息，以及可选的业务类型与结构化数据
type AppError struct {
	Code    int
	Kind    string
	Message string
	Data    map[string]interface{}
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WrapError 包装错误
func WrapError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithKind 附带业务错误类型与数据，kind 会写入响应 data.kind
func (e *AppError) WithKind(kind string, data map[string]interface{}) *AppError {
	e.Kind = kind
	e.Data = data
	return e
}

// Abort 输出错误响应并终止后续处理
func Abort(c *gin.Context, appErr *AppError) {
	if appErr == nil {
		return
	}
	if appErr.Kind == "" && len(appErr.Data) == 0 {
		Error(c, appErr.Code, appErr.Message)
	} else {
		data := gin.H{}
		for key, value := range appErr.Data {
			data[key] = value
		}
		if appErr.Kind != "" {
			data["kind"] = appErr.Kind
		}
		ErrorWithData(c, appErr.Code, appErr.Message, data)
	}
	c.Abort()
}
