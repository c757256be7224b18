package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"filevault/internal/models"
	"filevault/internal/response"
	"filevault/internal/security"
	"filevault/internal/service"
)

type registerRequest struct {
	Email     string `json:"email" form:"email" binding:"required,email,max=255"`
	FirstName string `json:"first_name" form:"first_name" binding:"required,max=200"`
	LastName  string `json:"last_name" form:"last_name" binding:"required,max=200"`
	Address   string `json:"address" form:"address" binding:"required,max=200"`
	Phone     string `json:"phone" form:"phone" binding:"required,max=15"`
	Age       *int   `json:"age" form:"age" binding:"required,min=0"`
	Password  string `json:"password" form:"password" binding:"required,max=255"`
	Password2 string `json:"password2" form:"password2" binding:"required,max=255"`
}

type tokenResponse struct {
	Token security.TokenPair `json:"token"`
	Msg   string             `json:"msg"`
}

type msgResponse struct {
	Msg string `json:"msg"`
}

func (h HandlerSet) RegisterUser(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, h.log, bindError(c, &req, err))
		return
	}

	pair, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Address:   req.Address,
		Phone:     req.Phone,
		Age:       *req.Age,
		Password:  req.Password,
		Password2: req.Password2,
	})
	if err != nil {
		response.Error(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, tokenResponse{Token: pair, Msg: "Registration Successful"})
}

type loginRequest struct {
	Email    string `json:"email" form:"email" binding:"required,email,max=255"`
	Password string `json:"password" form:"password" binding:"required"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, h.log, bindError(c, &req, err))
		return
	}

	pair, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, tokenResponse{Token: pair, Msg: "Login Success"})
}

type refreshRequest struct {
	Refresh string `json:"refresh" form:"refresh" binding:"required"`
}

func (h HandlerSet) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, h.log, bindError(c, &req, err))
		return
	}

	access, err := h.auth.Refresh(c.Request.Context(), req.Refresh)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"access": access})
}

type profileResponse struct {
	ID                int64  `json:"id"`
	Email             string `json:"email"`
	FirstName         string `json:"first_name"`
	LastName          string `json:"last_name"`
	Address           string `json:"address"`
	Phone             string `json:"phone"`
	Age               int    `json:"age"`
	NoOfFilesUploaded int    `json:"no_of_files_uploaded"`
}

func toProfile(user models.User) profileResponse {
	return profileResponse{
		ID:                user.ID,
		Email:             user.Email,
		FirstName:         user.FirstName,
		LastName:          user.LastName,
		Address:           user.Address,
		Phone:             user.Phone,
		Age:               user.Age,
		NoOfFilesUploaded: user.NoOfFilesUploaded,
	}
}

func (h HandlerSet) Profile(c *gin.Context) {
	current, ok := h.currentUser(c)
	if !ok {
		response.AbortInternal(c)
		return
	}

	user, err := h.auth.Profile(c.Request.Context(), current.ID)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, toProfile(user))
}

type passwordRequest struct {
	Password  string `json:"password" form:"password" binding:"required,max=255"`
	Password2 string `json:"password2" form:"password2" binding:"required,max=255"`
}

func (h HandlerSet) ChangePassword(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		response.AbortInternal(c)
		return
	}

	var req passwordRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, h.log, bindError(c, &req, err))
		return
	}

	if err := h.auth.ChangePassword(c.Request.Context(), user, req.Password, req.Password2); err != nil {
		response.Error(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, msgResponse{Msg: "Password Changed Successfully"})
}

type resetEmailRequest struct {
	Email string `json:"email" form:"email" binding:"required,email,max=255"`
}

func (h HandlerSet) SendPasswordResetEmail(c *gin.Context) {
	var req resetEmailRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, h.log, bindError(c, &req, err))
		return
	}

	if err := h.auth.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		response.Error(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, msgResponse{Msg: "Password Reset link sent. Please check your Email"})
}

func (h HandlerSet) ResetPassword(c *gin.Context) {
	var req passwordRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, h.log, bindError(c, &req, err))
		return
	}

	err := h.auth.ResetPassword(c.Request.Context(), c.Param("uid"), c.Param("token"), req.Password, req.Password2)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, msgResponse{Msg: "Password Reset Successfully"})
}
