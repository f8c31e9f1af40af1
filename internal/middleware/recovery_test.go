package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"syscall"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/charlesng35/authflow/pkg/logger"
	"github.com/charlesng35/authflow/pkg/response"
)

func fallbackRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(Recovery())
	r.NoRoute(NotFoundHandler)
	r.NoMethod(MethodNotAllowedHandler)
	r.POST("/api/auth/login", func(c *gin.Context) { panic("login exploded") })
	r.POST("/api/auth/logout", func(c *gin.Context) {
		panic(fmt.Errorf("write response: %w", syscall.EPIPE))
	})
	return r
}

func TestRecoveryAndFallbackHandlers(t *testing.T) {
	cases := []struct {
		name   string
		method string
		path   string
		status int
		code   string
	}{
		{name: "panic", method: http.MethodPost, path: "/api/auth/login", status: http.StatusInternalServerError, code: "INTERNAL_SERVER_ERROR"},
		{name: "unknown route", method: http.MethodGet, path: "/api/auth/nope", status: http.StatusNotFound, code: "NOT_FOUND"},
		{name: "wrong method", method: http.MethodGet, path: "/api/auth/login", status: http.StatusMethodNotAllowed, code: "METHOD_NOT_ALLOWED"},
	}

	r := fallbackRouter()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))

			require.Equal(t, tc.status, w.Code)
			var payload response.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
			require.False(t, payload.Success)
			require.Equal(t, tc.code, payload.Error.Code)
			require.NotContains(t, w.Body.String(), "exploded")
		})
	}
}

func TestNotFoundNamesPath(t *testing.T) {
	w := httptest.NewRecorder()
	fallbackRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	require.Contains(t, w.Body.String(), "route /missing not found")
}

func TestRecoveryBrokenPipe(t *testing.T) {
	core, recorded := observer.New(zap.WarnLevel)
	logger.Replace(zap.New(core))
	t.Cleanup(func() { logger.Replace(nil) })

	w := httptest.NewRecorder()
	fallbackRouter().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))

	require.Empty(t, w.Body.String())
	require.Equal(t, 1, recorded.FilterMessage("client connection lost").Len())
	require.Zero(t, recorded.FilterMessage("panic recovered").Len())
}
