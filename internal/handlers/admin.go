package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"filevault/internal/models"
	"filevault/internal/response"
)

type adminUserResponse struct {
	profileResponse
	IsActive   bool       `json:"is_active"`
	IsAdmin    bool       `json:"is_admin"`
	DateJoined time.Time  `json:"date_joined"`
	LastLogin  *time.Time `json:"last_login"`
}

func toAdminUser(user models.User) adminUserResponse {
	return adminUserResponse{
		profileResponse: toProfile(user),
		IsActive:        user.IsActive,
		IsAdmin:         user.IsAdmin,
		DateJoined:      user.CreatedAt,
		LastLogin:       user.LastLogin,
	}
}

func (h HandlerSet) AdminListUsers(c *gin.Context) {
	page, err := h.auth.ListUsers(c.Request.Context(), queryPage(c))
	if err != nil {
		response.Error(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, newPageResponse(c, page, toAdminUser))
}
