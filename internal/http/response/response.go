package response

import (
	"net/http"

	"github.com/portfolio-next/internal/i18n"

	"github.com/gin-gonic/gin"
)

// Response 统一响应结构
type Response struct {
	StatusCode int         `json:"status_code"` // 业务状态码
	Msg        string      `json:"msg"`         // 提示消息
	Data       interface{} `json:"data"`        // 数据内容
}

// PageResponse 分页响应结构
type PageResponse struct {
	StatusCode int         `json:"status_code"`
	Msg        string      `json:"msg"`
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

// Pagination 分页信息
type Pagination struct {
	Page      int   `json:"page"`
	PageSize  int   `json:"page_size"`
	Total     int64 `json:"total"`
	TotalPage int64 `json:"total_page"`
}

// ErrorData 错误响应的 data 部分
// Key 为稳定的消息键（如 error.version_conflict），前端据此分支，不依赖本地化文案。
type ErrorData struct {
	Key       string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	SuccessWithMsg(c, "success", data)
}

// SuccessWithMsg 成功响应（自定义消息）
func SuccessWithMsg(c *gin.Context, msg string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		StatusCode: CodeOK,
		Msg:        msg,
		Data:       data,
	})
}

// SuccessWithPage 分页成功响应
func SuccessWithPage(c *gin.Context, data interface{}, pagination Pagination) {
	c.JSON(http.StatusOK, PageResponse{
		StatusCode: CodeOK,
		Msg:        "success",
		Data:       data,
		Pagination: pagination,
	})
}

// Error 按请求语言翻译消息键并返回错误响应，HTTP 状态码与业务码一致
func Error(c *gin.Context, code int, key string) {
	ErrorMsg(c, code, key, i18n.T(i18n.ResolveLocale(c), key))
}

// ErrorMsg 错误响应（调用方已格式化好消息）
func ErrorMsg(c *gin.Context, code int, key, msg string) {
	c.JSON(HTTPStatus(code), Response{
		StatusCode: code,
		Msg:        msg,
		Data:       ErrorData{Key: key, RequestID: requestID(c)},
	})
}

// Unauthorized 401响应
func Unauthorized(c *gin.Context) {
	Error(c, CodeUnauthorized, "error.unauthorized")
}

// Forbidden 403响应
func Forbidden(c *gin.Context) {
	Error(c, CodeForbidden, "error.forbidden")
}

func requestID(c *gin.Context) string {
	if c == nil {
		return ""
	}
	if value, ok := c.Get("request_id"); ok {
		if id, ok := value.(string); ok {
			return id
		}
	}
	return ""
}
