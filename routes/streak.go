package routes

import (
	"readhub/controllers"
	"readhub/internal/session"

	"github.com/gin-gonic/gin"
)

// SetupStreakRoutes registers the reading/streak endpoints on an
// authenticated route group
func SetupStreakRoutes(rg *gin.RouterGroup, tracker *session.Tracker) {
	rg.POST("/reading/start", controllers.StartReading(tracker))
	rg.POST("/reading/complete", controllers.CompleteReading)
	rg.GET("/streak/info", controllers.GetStreakInfo)
	rg.GET("/streak/calendar", controllers.GetCalendar)
	rg.GET("/streak/leaderboard", controllers.GetStreakLeaderboard)
	rg.GET("/streak/study-hour", controllers.GetPreferredStudyHour)
}
