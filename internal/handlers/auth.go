package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/authflow/internal/middleware"
	"github.com/charlesng35/authflow/internal/models"
	"github.com/charlesng35/authflow/internal/services"
	apperrors "github.com/charlesng35/authflow/pkg/errors"
	"github.com/charlesng35/authflow/pkg/response"
)

// AccountService is the account lifecycle the auth endpoints drive.
type AccountService interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.SessionResult, error)
	VerifyEmail(ctx context.Context, code string) (*models.PublicAccount, error)
	Login(ctx context.Context, email, password string) (*services.SessionResult, error)
	Logout(ctx context.Context) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
	CheckAuth(ctx context.Context, accountID string) (*models.PublicAccount, error)
}

// CookieSettings controls the session cookie written on signup and login.
type CookieSettings struct {
	Name   string
	Path   string
	Secure bool
	MaxAge time.Duration
}

// AuthHandler exposes signup, login, verification and password reset over HTTP.
type AuthHandler struct {
	accounts AccountService
	cookie   CookieSettings
}

// NewAuthHandler wires the handler to the account service.
func NewAuthHandler(accounts AccountService, cookie CookieSettings) (*AuthHandler, error) {
	if accounts == nil {
		return nil, errors.New("auth handler: account service is required")
	}
	if cookie.Name == "" {
		cookie.Name = middleware.DefaultSessionCookie
	}
	if cookie.Path == "" {
		cookie.Path = "/"
	}
	if cookie.MaxAge <= 0 {
		cookie.MaxAge = 7 * 24 * time.Hour
	}
	return &AuthHandler{accounts: accounts, cookie: cookie}, nil
}

type signupRequest struct {
	Email    string `json:"email" validate:"notblank,email,max=255"`
	Password string `json:"password" validate:"notblank,maxbytes=72"`
	Name     string `json:"name" validate:"notblank,max=255"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"notblank"`
	Password string `json:"password" validate:"notblank"`
}

type verifyEmailRequest struct {
	Code string `json:"code" validate:"notblank"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"notblank"`
}

type resetPasswordRequest struct {
	Password string `json:"password" validate:"notblank,maxbytes=72"`
}

type accountResponse struct {
	Account *models.PublicAccount `json:"account"`
	Message string                `json:"message,omitempty"`
}

// POST /api/auth/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.accounts.Register(c.Request.Context(), services.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if result != nil {
		// The account exists even when the verification email failed.
		h.setSessionCookie(c, result.Session.Value)
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, accountResponse{
		Account: &result.Account,
		Message: "User created successfully",
	})
}

// POST /api/auth/verify-email
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req verifyEmailRequest
	if !bindAndValidate(c, &req) {
		return
	}

	account, err := h.accounts.VerifyEmail(c.Request.Context(), req.Code)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, accountResponse{Account: account, Message: "Email verified successfully"})
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setSessionCookie(c, result.Session.Value)
	response.Success(c, http.StatusOK, accountResponse{Account: &result.Account, Message: "Logged in successfully"})
}

// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.accounts.Logout(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}

	h.clearSessionCookie(c)
	response.Message(c, http.StatusOK, "Logged out successfully")
}

// POST /api/auth/forgot-password
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.accounts.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, http.StatusOK, "Password reset link sent to your email")
}

// POST /api/auth/reset-password/:token
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.accounts.ResetPassword(c.Request.Context(), c.Param("token"), req.Password); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, http.StatusOK, "Password reset successful")
}

// GET /api/auth/check-auth
func (h *AuthHandler) CheckAuth(c *gin.Context) {
	accountID := c.GetString(middleware.CtxAccountIDKey)
	if accountID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	account, err := h.accounts.CheckAuth(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, accountResponse{Account: account})
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, token string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     h.cookie.Path,
		MaxAge:   int(h.cookie.MaxAge / time.Second),
		Secure:   h.cookie.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) clearSessionCookie(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     h.cookie.Path,
		MaxAge:   -1,
		Secure:   h.cookie.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}
