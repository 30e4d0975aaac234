package routes

import (
	"nigran/internal/controllers"

	"github.com/gin-gonic/gin"
)

func RegisterAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		api.GET("/server/group", controllers.GetGroups)
		api.GET("/login/user", controllers.GetCurrentUser)
		api.GET("/public/settings", controllers.GetSettings)
		api.GET("/monitor/:id", controllers.GetMonitor)
		api.POST("/roster/refresh", controllers.RefreshRoster)
	}
}
