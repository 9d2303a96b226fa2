package shared

import (
	"errors"

	"github.com/portfolio-next/internal/http/response"
	"github.com/portfolio-next/internal/logger"
	"github.com/portfolio-next/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondError 返回国际化错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, key string, err error) {
	apiErr := response.NewAPIError(code, key, err)
	if err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", apiErr.Code,
			"key", apiErr.Key,
			"error", err,
		)
	}
	apiErr.Write(c)
}

// MappedError 定义业务错误到接口错误响应的映射关系。
type MappedError struct {
	Target error
	Code   int
	Key    string
}

// ServiceErrorRules 服务层错误分类的统一映射。
var ServiceErrorRules = []MappedError{
	{Target: service.ErrUnauthenticated, Code: response.CodeUnauthorized, Key: "error.unauthorized"},
	{Target: service.ErrUnauthorized, Code: response.CodeForbidden, Key: "error.forbidden"},
	{Target: service.ErrNotFound, Code: response.CodeNotFound, Key: "error.not_found"},
	{Target: service.ErrValidationFailed, Code: response.CodeBadRequest, Key: "error.validation_failed"},
	{Target: service.ErrInvalidTransition, Code: response.CodeConflict, Key: "error.invalid_transition"},
	{Target: service.ErrReviewNotRequested, Code: response.CodeConflict, Key: "error.review_not_requested"},
	{Target: service.ErrVersionConflict, Code: response.CodeConflict, Key: "error.version_conflict"},
}

// RespondWithMappedError 命中规则时按规则响应，否则按兜底码响应并记录原始错误。
func RespondWithMappedError(c *gin.Context, err error, rules []MappedError, fallbackCode int, fallbackKey string) {
	for _, rule := range rules {
		if errors.Is(err, rule.Target) {
			RespondError(c, rule.Code, rule.Key, nil)
			return
		}
	}
	RespondError(c, fallbackCode, fallbackKey, err)
}

// RespondServiceError 按服务层错误分类响应，持久化失败单独提示。
func RespondServiceError(c *gin.Context, err error, extra ...MappedError) {
	rules := ServiceErrorRules
	if len(extra) > 0 {
		rules = append(append(make([]MappedError, 0, len(extra)+len(ServiceErrorRules)), extra...), ServiceErrorRules...)
	}
	fallbackKey := "error.internal"
	if errors.Is(err, service.ErrPersistenceFailure) {
		fallbackKey = "error.persistence_failed"
	}
	RespondWithMappedError(c, err, rules, response.CodeInternal, fallbackKey)
}
