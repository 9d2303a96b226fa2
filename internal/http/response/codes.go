package response

import "net/http"

const (
	CodeOK              = 0
	CodeBadRequest      = 400
	CodeUnauthorized    = 401
	CodeForbidden       = 403
	CodeNotFound        = 404
	CodeConflict        = 409
	CodeTooManyRequests = 429
	CodeInternal        = 500
	CodeUnavailable     = 503
)

// HTTPStatus 业务码对应的 HTTP 状态码
func HTTPStatus(code int) int {
	if code >= 400 && code <= 599 {
		return code
	}
	return http.StatusOK
}
