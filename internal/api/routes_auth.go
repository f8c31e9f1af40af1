package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/authflow/internal/handlers"
	"github.com/charlesng35/authflow/internal/middleware"
)

func registerAuthRoutes(r *gin.Engine, deps Dependencies) error {
	authHandler, err := handlers.NewAuthHandler(deps.Accounts, deps.Cookie)
	if err != nil {
		return err
	}

	auth := r.Group("/api/auth")
	{
		auth.POST("/signup", authHandler.Signup)
		auth.POST("/login", authHandler.Login)
		auth.POST("/logout", authHandler.Logout)
		auth.POST("/verify-email", authHandler.VerifyEmail)
		auth.POST("/forgot-password", authHandler.ForgotPassword)
		auth.POST("/reset-password/:token", authHandler.ResetPassword)
	}

	auth.GET("/check-auth", middleware.Auth(deps.Sessions, deps.Cookie.Name), authHandler.CheckAuth)
	return nil
}
