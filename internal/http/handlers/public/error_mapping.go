package public

import (
	handlershared "github.com/portfolio-next/internal/http/handlers/shared"
	"github.com/portfolio-next/internal/http/response"
	"github.com/portfolio-next/internal/oauth"
	"github.com/portfolio-next/internal/permission"
	"github.com/portfolio-next/internal/search"

	"github.com/gin-gonic/gin"
)

var searchErrorRules = []handlershared.MappedError{
	{Target: search.ErrUnavailable, Code: response.CodeUnavailable, Key: "error.search_unavailable"},
}

var oauthErrorRules = []handlershared.MappedError{
	{Target: oauth.ErrProviderDisabled, Code: response.CodeNotFound, Key: "error.oauth_disabled"},
	{Target: oauth.ErrInvalidState, Code: response.CodeBadRequest, Key: "error.oauth_state_invalid"},
	{Target: oauth.ErrStateReplayed, Code: response.CodeBadRequest, Key: "error.oauth_state_invalid"},
	{Target: oauth.ErrExchangeFailed, Code: response.CodeUnauthorized, Key: "error.oauth_failed"},
	{Target: oauth.ErrProfileFailed, Code: response.CodeUnauthorized, Key: "error.oauth_failed"},
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

func respondServiceError(c *gin.Context, err error, extra ...handlershared.MappedError) {
	handlershared.RespondServiceError(c, err, extra...)
}

func requireActor(c *gin.Context) (*permission.Actor, bool) {
	return handlershared.RequireActor(c)
}
