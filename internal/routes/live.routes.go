package routes

import (
	"nigran/internal/controllers"
	"nigran/internal/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterLiveRoutes registers the dashboard socket and its token
// endpoint.
func RegisterLiveRoutes(r *gin.Engine, tokenLimiter *middleware.TokenRateLimiter) {
	r.GET("/ws", controllers.HandleLiveSocket)
	r.GET("/token", middleware.TokenRateLimitMiddleware(tokenLimiter), controllers.HandleGetToken)
}
