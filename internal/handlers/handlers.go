package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"filevault/internal/config"
	"filevault/internal/middleware"
	"filevault/internal/models"
	"filevault/internal/security"
	"filevault/internal/service"
)

type AuthService interface {
	Register(ctx context.Context, input service.RegisterInput) (security.TokenPair, error)
	Login(ctx context.Context, email, password string) (security.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Authenticate(ctx context.Context, accessToken string) (models.User, error)
	Profile(ctx context.Context, userID int64) (models.User, error)
	ChangePassword(ctx context.Context, user models.User, password, password2 string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, uid, token, password, password2 string) error
	ListUsers(ctx context.Context, page int) (service.Page[models.User], error)
}

type FileService interface {
	Upload(ctx context.Context, userID int64, uploads []service.UploadFile) ([]models.File, error)
	List(ctx context.Context, userID int64, page int) (service.Page[models.File], error)
	Fetch(ctx context.Context, userID, fileID int64) (service.Download, error)
	Update(ctx context.Context, userID, fileID int64, input service.UpdateInput) (models.File, error)
	Delete(ctx context.Context, userID, fileID int64) error
}

// HealthCheck pings one dependency.
type HealthCheck func(ctx context.Context) error

type HandlerSet struct {
	log       zerolog.Logger
	cfg       *config.AppConfig
	auth      AuthService
	files     FileService
	rateLimit gin.HandlerFunc
	checks    map[string]HealthCheck
}

func NewHandlerSet(
	log zerolog.Logger,
	cfg *config.AppConfig,
	auth AuthService,
	files FileService,
	rateLimit gin.HandlerFunc,
	checks map[string]HealthCheck,
) HandlerSet {
	registerValidatorTagNames()
	if rateLimit == nil {
		rateLimit = func(c *gin.Context) { c.Next() }
	}
	return HandlerSet{
		log:       log,
		cfg:       cfg,
		auth:      auth,
		files:     files,
		rateLimit: rateLimit,
		checks:    checks,
	}
}

func (h HandlerSet) Register(router gin.IRouter) {
	router.GET("/healthz", h.Health)

	user := router.Group("/api/user")
	{
		user.POST("/register/", h.RegisterUser)
		user.POST("/login/", h.Login)
		user.POST("/token/refresh/", h.Refresh)
		user.POST("/send-reset-password-email/", h.rateLimit, h.SendPasswordResetEmail)
		user.POST("/reset-password/:uid/:token/", h.ResetPassword)
	}

	protected := user.Group("")
	protected.Use(middleware.Auth(h.auth, h.log))
	{
		protected.POST("/upload/", h.UploadFiles)
		protected.GET("/files/", h.ListFiles)
		protected.GET("/files/:id/", h.DownloadFile)
		protected.DELETE("/files/:id/delete/", h.DeleteFile)
		protected.PUT("/files/update/:id/", h.UpdateFile)
		protected.GET("/profile/", h.Profile)
		protected.POST("/changepassword/", h.ChangePassword)
	}

	admin := protected.Group("/admin")
	admin.Use(middleware.RequireAdmin())
	admin.GET("/users/", h.AdminListUsers)
}

func (h HandlerSet) currentUser(c *gin.Context) (models.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		h.log.Error().Str("path", c.FullPath()).Msg("protected route reached without user")
	}
	return user, ok
}
