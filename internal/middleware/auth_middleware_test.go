package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	iauth "github.com/charlesng35/authflow/internal/auth"
	"github.com/charlesng35/authflow/pkg/response"
)

func newAuthRouter(t *testing.T, jwtSvc *iauth.JWTService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/secure", Auth(jwtSvc, ""), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"account_id": c.GetString(CtxAccountIDKey)})
	})
	return r
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var payload response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.False(t, payload.Success)
	require.NotNil(t, payload.Error)
	return payload.Error.Code
}

func TestAuthMiddlewareAcceptsCookieAndBearer(t *testing.T) {
	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:     "secret",
		Issuer:     "test-suite",
		SessionTTL: time.Minute,
	})
	require.NoError(t, err)

	token, err := jwtSvc.IssueSessionToken("account-123")
	require.NoError(t, err)

	r := newAuthRouter(t, jwtSvc)

	// Missing token -> 401
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/secure", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "UNAUTHORIZED", decodeError(t, w))

	for name, setToken := range map[string]func(*http.Request){
		"cookie": func(req *http.Request) {
			req.AddCookie(&http.Cookie{Name: DefaultSessionCookie, Value: token.Value})
		},
		"bearer": func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer "+token.Value)
		},
	} {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/secure", nil)
			setToken(req)
			r.ServeHTTP(w, req)
			require.Equal(t, http.StatusOK, w.Code)

			var payload map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
			require.Equal(t, "account-123", payload["account_id"])
		})
	}
}

func TestAuthMiddlewareRejectsInvalidToken(t *testing.T) {
	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "secret"})
	require.NoError(t, err)
	r := newAuthRouter(t, jwtSvc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.AddCookie(&http.Cookie{Name: DefaultSessionCookie, Value: "garbage"})
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "UNAUTHORIZED", decodeError(t, w))
	require.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
}

func TestAuthMiddlewareReportsExpiredSession(t *testing.T) {
	current := time.Now()
	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:     "secret",
		SessionTTL: time.Minute,
		Clock:      func() time.Time { return current },
	})
	require.NoError(t, err)

	token, err := jwtSvc.IssueSessionToken("account-123")
	require.NoError(t, err)
	current = current.Add(time.Hour)

	r := newAuthRouter(t, jwtSvc)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.AddCookie(&http.Cookie{Name: DefaultSessionCookie, Value: token.Value})
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "SESSION_EXPIRED", decodeError(t, w))
}
