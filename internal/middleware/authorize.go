package middleware

import (
	"github.com/gin-gonic/gin"

	"filevault/internal/apperr"
	"filevault/internal/response"
)

// RequireAdmin must run after Auth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			response.Abort(c, apperr.Unauthorized("Authentication credentials were not provided."))
			return
		}
		if !user.IsAdmin {
			response.Abort(c, apperr.Forbidden("You do not have permission to perform this action."))
			return
		}
		c.Next()
	}
}
