package routes

import (
	"readhub/controllers"
	"readhub/middlewares"

	"github.com/gin-gonic/gin"
)

// SetupAdminRoutes registers the admin-only streak maintenance endpoints
func SetupAdminRoutes(router *gin.Engine, adminLogin gin.HandlerFunc) {
	router.POST("/admin/login", adminLogin)

	admin := router.Group("/admin")
	admin.Use(middlewares.AdminAuthMiddleware())
	{
		admin.POST("/streak/recover",
			middlewares.RBACMiddleware("streak", "recover"),
			controllers.RecoverStreak)
		admin.POST("/streak/process-missed",
			middlewares.RBACMiddleware("streak", "process"),
			controllers.RunMissedDayBatch)
	}
}
