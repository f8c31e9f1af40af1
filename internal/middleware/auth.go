package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/charlesng35/authflow/internal/auth"
	apperrors "github.com/charlesng35/authflow/pkg/errors"
	"github.com/charlesng35/authflow/pkg/response"
)

const (
	CtxAccountIDKey = "accountID"

	// DefaultSessionCookie is the cookie carrying the session token.
	DefaultSessionCookie = "token"
)

// SessionValidator resolves a session token to the account it was issued for.
type SessionValidator interface {
	ValidateSessionToken(token string) (string, error)
}

// Auth requires a valid session token, read from the session cookie or an
// Authorization bearer header, and exposes the account id to handlers.
func Auth(sessions SessionValidator, cookieName string) gin.HandlerFunc {
	if cookieName == "" {
		cookieName = DefaultSessionCookie
	}

	return func(c *gin.Context) {
		token := sessionToken(c, cookieName)
		if token == "" {
			abortUnauthorized(c, apperrors.ErrUnauthorized)
			return
		}

		accountID, err := sessions.ValidateSessionToken(token)
		if err != nil {
			if errors.Is(err, iauth.ErrExpiredToken) {
				abortUnauthorized(c, apperrors.ErrSessionExpired)
				return
			}
			abortUnauthorized(c, apperrors.ErrUnauthorized)
			return
		}

		c.Set(CtxAccountIDKey, accountID)
		c.Next()
	}
}

func sessionToken(c *gin.Context, cookieName string) string {
	if value, err := c.Cookie(cookieName); err == nil && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}

	authz := c.GetHeader("Authorization")
	if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(authz[7:])
}

func abortUnauthorized(c *gin.Context, err *apperrors.AppError) {
	c.Header("WWW-Authenticate", "Bearer")
	response.Abort(c, err)
}
