package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/authflow/pkg/metrics"
)

func TestMetricsMiddlewareObservesLatency(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Metrics())
	r.GET("/observed", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	before := testutil.CollectAndCount(metrics.APILatency)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/observed", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere/abc", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere/def", nil))

	// One series for the route, one shared series for unmatched paths.
	require.Equal(t, before+2, testutil.CollectAndCount(metrics.APILatency))
}
