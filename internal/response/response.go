// Package response renders API errors in the {"errors": {field: [messages]}}
// envelope.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"filevault/internal/apperr"
)

type ErrorBody struct {
	Errors map[string][]string `json:"errors"`
}

// Error writes err as a JSON error body. Anything that is not an
// *apperr.Error is logged and rendered as a 500.
func Error(c *gin.Context, log zerolog.Logger, err error) {
	if appErr, ok := apperr.As(err); ok {
		c.JSON(appErr.Kind.Status(), ErrorBody{Errors: appErr.Fields})
		return
	}

	log.Error().
		Err(err).
		Str("method", c.Request.Method).
		Str("path", c.FullPath()).
		Str("request_id", c.GetString("request_id")).
		Msg("request failed")
	c.JSON(http.StatusInternalServerError, internalError())
}

// Abort renders err and stops the handler chain.
func Abort(c *gin.Context, err *apperr.Error) {
	c.AbortWithStatusJSON(err.Kind.Status(), ErrorBody{Errors: err.Fields})
}

func AbortInternal(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, internalError())
}

func internalError() ErrorBody {
	return ErrorBody{Errors: map[string][]string{"detail": {"internal_server_error"}}}
}
