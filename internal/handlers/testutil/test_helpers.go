package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/charlesng35/authflow/internal/api"
	iauth "github.com/charlesng35/authflow/internal/auth"
	sharedtestutil "github.com/charlesng35/authflow/internal/database/testutil"
	"github.com/charlesng35/authflow/internal/handlers"
	"github.com/charlesng35/authflow/internal/monitoring"
	"github.com/charlesng35/authflow/internal/monitoring/checks"
	"github.com/charlesng35/authflow/internal/services"
	"github.com/charlesng35/authflow/internal/store"
	"github.com/charlesng35/authflow/pkg/mail"
	"github.com/charlesng35/authflow/pkg/response"
)

// ClientURL is the base URL reset links point at in handler tests.
const ClientURL = "http://localhost:5173"

var (
	codePattern  = regexp.MustCompile(`\b\d{6}\b`)
	tokenPattern = regexp.MustCompile(`/reset-password/([0-9a-f]{40})`)
)

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T        *testing.T
	Store    *store.GormStore
	Mailer   *mail.MemoryMailer
	Router   *gin.Engine
	JWT      *iauth.JWTService
	Accounts *services.AuthService
}

// NewEnv provisions a fresh handler test environment with migrations applied.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithAutoMigrate())
	credentials := store.NewGormStore(db)

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:     "test-suite-super-secret-key-32-bytes!!",
		Issuer:     "test-suite",
		SessionTTL: time.Hour,
	})
	require.NoError(t, err)

	mailer := mail.NewMemoryMailer()
	notifier, err := services.NewEmailNotifier(mailer, services.WithNotifierSender("noreply@authflow.test"))
	require.NoError(t, err)

	accounts, err := services.NewAuthService(credentials, jwtSvc, notifier,
		services.WithClientURL(ClientURL),
		services.WithPasswordCost(bcrypt.MinCost),
	)
	require.NoError(t, err)

	router, err := api.NewRouter(api.Dependencies{
		Accounts: accounts,
		Sessions: jwtSvc,
		Health:   monitoring.NewHealthManager(checks.Store(credentials, time.Second)),
		Cookie:   handlers.CookieSettings{MaxAge: jwtSvc.TTL()},
	})
	require.NoError(t, err)

	return &Env{
		T:        t,
		Store:    credentials,
		Mailer:   mailer,
		Router:   router,
		JWT:      jwtSvc,
		Accounts: accounts,
	}
}

// Request issues an HTTP request against the router. Cookies are attached verbatim.
func (e *Env) Request(method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	e.T.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(e.T, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(e.T, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

// Signup registers an account through the API and returns the session cookie.
func (e *Env) Signup(email, password, name string) *http.Cookie {
	e.T.Helper()

	resp := e.Request(http.MethodPost, "/api/auth/signup", map[string]string{
		"email":    email,
		"password": password,
		"name":     name,
	})
	require.Equal(e.T, http.StatusCreated, resp.Code, resp.Body.String())

	cookie := SessionCookie(resp)
	require.NotNil(e.T, cookie, "signup should set the session cookie")
	return cookie
}

// VerificationCode extracts the code from the latest mail sent to email.
func (e *Env) VerificationCode(email string) string {
	e.T.Helper()

	msg, ok := e.Mailer.Last(email)
	require.True(e.T, ok, "no mail sent to %s", email)
	code := codePattern.FindString(msg.Body)
	require.NotEmpty(e.T, code, "no verification code in mail body")
	return code
}

// ResetToken extracts the reset token from the latest mail sent to email.
func (e *Env) ResetToken(email string) string {
	e.T.Helper()

	msg, ok := e.Mailer.Last(email)
	require.True(e.T, ok, "no mail sent to %s", email)
	match := tokenPattern.FindStringSubmatch(msg.Body)
	require.Len(e.T, match, 2, "no reset link in mail body")
	return match[1]
}

// SessionCookie returns the session cookie set by the response, if any.
func SessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == "token" {
			return cookie
		}
	}
	return nil
}

// APIResponse mirrors the standard response envelope for decoding in tests.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
}

// AccountPayload captures the public account fields returned by auth endpoints.
type AccountPayload struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	IsVerified  bool       `json:"is_verified"`
	LastLoginAt *time.Time `json:"last_login_at"`
}

// AccountResult is the data payload of signup, login, verify and check-auth.
type AccountResult struct {
	Account AccountPayload `json:"account"`
	Message string         `json:"message"`
}

// DecodeResponse parses the standard API envelope.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()

	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals a raw JSON payload into T.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, dest))
}
