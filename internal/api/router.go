package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/charlesng35/authflow/internal/handlers"
	"github.com/charlesng35/authflow/internal/middleware"
	"github.com/charlesng35/authflow/internal/monitoring"
)

// Dependencies carries everything the HTTP surface needs.
type Dependencies struct {
	Accounts handlers.AccountService
	Sessions middleware.SessionValidator
	Health   *monitoring.HealthManager
	Cookie   handlers.CookieSettings

	// CORSOrigin is the browser origin allowed to send credentialed requests.
	// Empty reflects the request origin.
	CORSOrigin string
	HSTS       bool
}

// NewRouter builds the Gin engine, wires middleware and registers the routes.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if deps.Accounts == nil {
		return nil, fmt.Errorf("account service must be provided")
	}
	if deps.Sessions == nil {
		return nil, fmt.Errorf("session validator must be provided")
	}
	if deps.Health == nil {
		deps.Health = monitoring.NewHealthManager()
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders(deps.HSTS))
	r.Use(middleware.CORS(deps.CORSOrigin))

	registerHealthRoutes(r, deps.Health)

	if err := registerAuthRoutes(r, deps); err != nil {
		return nil, err
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.NoRoute(middleware.NotFoundHandler)
	r.NoMethod(middleware.MethodNotAllowedHandler)

	return r, nil
}
