package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"filevault/internal/apperr"
	"filevault/internal/config"
	"filevault/internal/mail"
	"filevault/internal/models"
	"filevault/internal/repository"
	"filevault/internal/security"
)

const (
	msgRegisterMismatch = "Password and Confirm Password do not match"
	msgPasswordMismatch = "Password and Confirm Password doesn't match"
	msgEmailTaken       = "user with this Email already exists."
	msgInvalidLogin     = "Email or Password is not Valid"
	msgNotRegistered    = "You are not a Registered User"
	msgInvalidReset     = "Token is not Valid or Expired"
	msgInvalidToken     = "Token is invalid or expired"

	resetSubject = "Reset Your Password"
)

type AuthService struct {
	users    UserStore
	tokens   *security.TokenIssuer
	resets   *security.ResetTokens
	mailer   mail.Sender
	resetURL string
	pageSize int
	log      zerolog.Logger
	now      func() time.Time
	dummy    func(password string) bool
}

func NewAuthService(
	users UserStore,
	tokens *security.TokenIssuer,
	resets *security.ResetTokens,
	mailer mail.Sender,
	cfg *config.AppConfig,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		tokens:   tokens,
		resets:   resets,
		mailer:   mailer,
		resetURL: strings.TrimRight(cfg.Security.PasswordResetURL, "/"),
		pageSize: cfg.Quota.PageSize,
		log:      log,
		now:      time.Now,
		dummy:    security.DummyVerify,
	}
}

type RegisterInput struct {
	Email     string
	FirstName string
	LastName  string
	Address   string
	Phone     string
	Age       int
	Password  string
	Password2 string
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (security.TokenPair, error) {
	if input.Password != input.Password2 {
		return security.TokenPair{}, apperr.Validation(msgRegisterMismatch)
	}

	email := NormalizeEmail(input.Email)
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return security.TokenPair{}, apperr.FieldValidation("email", msgEmailTaken)
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return security.TokenPair{}, fmt.Errorf("lookup email: %w", err)
	}

	passwordHash, err := security.HashPassword(input.Password)
	if err != nil {
		return security.TokenPair{}, err
	}

	user := models.User{
		Email:        email,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Address:      input.Address,
		Phone:        input.Phone,
		Age:          input.Age,
		PasswordHash: passwordHash,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, &user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return security.TokenPair{}, apperr.FieldValidation("email", msgEmailTaken)
		}
		return security.TokenPair{}, fmt.Errorf("create user: %w", err)
	}

	s.log.Info().Int64("user_id", user.ID).Msg("user registered")
	return s.tokens.Pair(user.ID)
}

// Login never tells an unknown email apart from a wrong password.
func (s *AuthService) Login(ctx context.Context, email, password string) (security.TokenPair, error) {
	user, err := s.users.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.dummy(password)
			return security.TokenPair{}, apperr.Authentication(msgInvalidLogin)
		}
		return security.TokenPair{}, fmt.Errorf("lookup email: %w", err)
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok || !user.IsActive {
		return security.TokenPair{}, apperr.Authentication(msgInvalidLogin)
	}

	if err := s.users.TouchLastLogin(ctx, user.ID, s.now().UTC()); err != nil {
		s.log.Warn().Err(err).Int64("user_id", user.ID).Msg("update last login failed")
	}

	return s.tokens.Pair(user.ID)
}

// Refresh mints a new access token from a refresh token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return "", apperr.Unauthorized(msgInvalidToken)
	}
	user, err := s.activeUser(ctx, claims.UserID)
	if err != nil {
		return "", err
	}
	return s.tokens.Access(user.ID)
}

// Authenticate resolves a bearer access token to its active user.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (models.User, error) {
	claims, err := s.tokens.ParseAccess(accessToken)
	if err != nil {
		return models.User{}, apperr.Unauthorized(msgInvalidToken)
	}
	return s.activeUser(ctx, claims.UserID)
}

func (s *AuthService) activeUser(ctx context.Context, id int64) (models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, apperr.Unauthorized("User not found")
		}
		return models.User{}, fmt.Errorf("load user: %w", err)
	}
	if !user.IsActive {
		return models.User{}, apperr.Unauthorized("User is inactive")
	}
	return user, nil
}

func (s *AuthService) Profile(ctx context.Context, userID int64) (models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, apperr.NotFound("Not found.")
		}
		return models.User{}, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, user models.User, password, password2 string) error {
	if password != password2 {
		return apperr.Validation(msgPasswordMismatch)
	}
	return s.setPassword(ctx, user.ID, password)
}

// RequestPasswordReset mails a reset link to the account owner. Mail sink
// failures surface to the caller.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperr.Validation(msgNotRegistered)
		}
		return fmt.Errorf("lookup email: %w", err)
	}

	link := s.ResetLink(user)
	msg := mail.Message{
		To:      user.Email,
		Subject: resetSubject,
		Body:    "Click Following Link to Reset Your Password " + link,
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}

	s.log.Info().Int64("user_id", user.ID).Msg("password reset requested")
	return nil
}

func (s *AuthService) ResetLink(user models.User) string {
	return s.resetURL + "/" + security.EncodeUID(user.ID) + "/" + s.resets.Make(user)
}

func (s *AuthService) ResetPassword(ctx context.Context, uid, token, password, password2 string) error {
	if password != password2 {
		return apperr.Validation(msgPasswordMismatch)
	}

	id, err := security.DecodeUID(uid)
	if err != nil {
		return apperr.Validation(msgInvalidReset)
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperr.Validation(msgInvalidReset)
		}
		return fmt.Errorf("load user: %w", err)
	}
	if !s.resets.Check(user, token) {
		return apperr.Validation(msgInvalidReset)
	}

	return s.setPassword(ctx, user.ID, password)
}

func (s *AuthService) setPassword(ctx context.Context, userID int64, password string) error {
	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, passwordHash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (s *AuthService) ListUsers(ctx context.Context, page int) (Page[models.User], error) {
	page, offset := pageOffset(page, s.pageSize)
	result := Page[models.User]{Number: page, PageSize: s.pageSize}

	count, err := s.users.Count(ctx)
	if err != nil {
		return result, fmt.Errorf("count users: %w", err)
	}
	result.Count = count
	if offset >= count {
		return result, nil
	}

	users, err := s.users.List(ctx, s.pageSize, offset)
	if err != nil {
		return result, fmt.Errorf("list users: %w", err)
	}
	result.Items = users
	return result, nil
}

// NormalizeEmail lower-cases the domain part and trims surrounding space.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at] + "@" + strings.ToLower(email[at+1:])
}
