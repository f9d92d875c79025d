package http

import (
	"github.com/gin-gonic/gin"
	"github.com/listforge/trustgate/core"
	"github.com/listforge/trustgate/service"
)

// SetupRouter sets up the Gin router
func SetupRouter(handlers *Handlers, authService *service.AuthService) *gin.Engine {
	router := gin.Default()

	auth := router.Group("/auth")
	{
		auth.POST("/login", handlers.SignIn)
		auth.POST("/logout", AuthMiddleware(authService), handlers.Logout)
	}

	api := router.Group("/api")
	api.Use(AuthMiddleware(authService))
	{
		api.GET("/me", handlers.Me)
		api.POST("/settlements", handlers.Settle)
		api.GET("/payments", RequireRole(core.RoleAdmin), handlers.ListPayments)
	}

	return router
}
