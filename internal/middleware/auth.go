package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"filevault/internal/apperr"
	"filevault/internal/models"
	"filevault/internal/response"
)

const currentUserKey = "current_user"

type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (models.User, error)
}

// Auth requires a bearer access token and stores the resolved user on the
// context.
func Auth(auth Authenticator, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
		token = strings.TrimSpace(token)
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			response.Abort(c, apperr.Unauthorized("Authentication credentials were not provided."))
			return
		}

		user, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			if appErr, ok := apperr.As(err); ok {
				response.Abort(c, appErr)
				return
			}
			log.Error().Err(err).Msg("authenticate request")
			response.AbortInternal(c)
			return
		}

		c.Set(currentUserKey, user)
		c.Next()
	}
}

func CurrentUser(c *gin.Context) (models.User, bool) {
	val, ok := c.Get(currentUserKey)
	if !ok {
		return models.User{}, false
	}
	user, ok := val.(models.User)
	return user, ok
}
