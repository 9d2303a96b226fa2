package response

import "github.com/gin-gonic/gin"

// APIError 接口层错误：业务码 + 消息键 + 原始原因
// Cause 只进日志，不会写入响应体。
type APIError struct {
	Code  int
	Key   string
	Cause error
}

func (e *APIError) Error() string {
	if e.Cause == nil {
		return e.Key
	}
	return e.Key + ": " + e.Cause.Error()
}

func (e *APIError) Unwrap() error {
	return e.Cause
}

// NewAPIError 构造接口层错误
func NewAPIError(code int, key string, cause error) *APIError {
	return &APIError{Code: code, Key: key, Cause: cause}
}

// Write 写出本地化错误响应
func (e *APIError) Write(c *gin.Context) {
	Error(c, e.Code, e.Key)
}
