package controllers

import (
	"net/http"
	"strconv"

	"readhub/internal/session"
	"readhub/services"
	"readhub/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type ReadingRequest struct {
	ContentType string `json:"contentType" binding:"required"`
	ContentID   string `json:"contentId" binding:"required"`
}

// currentUserID pulls the authenticated user's id out of the gin context
func currentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	raw, exists := c.Get("userId")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(raw.(string))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user id in token"})
		return primitive.NilObjectID, false
	}
	return userID, true
}

// StartReading marks the start of a reading session
func StartReading(tracker *session.Tracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}

		var req ReadingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
			return
		}

		if err := tracker.Start(c, userID.Hex(), req.ContentType, req.ContentID); err != nil {
			utils.Logger.Error("session_start_failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start reading session"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"started": true})
	}
}

// CompleteReading records a content completion and advances the streak
// when the session was long enough
func CompleteReading(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req ReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	svc := services.GetStreakService()
	streakUpdated, err := svc.UpdateStreak(c, userID, req.ContentType, req.ContentID)
	if err != nil {
		utils.Logger.Error("update_streak_failed", zap.String("userId", userID.Hex()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update streak"})
		return
	}
	if err := svc.AddCompletedContent(c, userID, req.ContentType, req.ContentID, streakUpdated); err != nil {
		utils.Logger.Error("add_completed_content_failed", zap.String("userId", userID.Hex()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record completion"})
		return
	}

	info, err := svc.GetStreakInfo(c, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load streak info"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"streakUpdated": streakUpdated, "report": info})
}

// GetStreakInfo returns the user's current streak snapshot
func GetStreakInfo(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	info, err := services.GetStreakService().GetStreakInfo(c, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load streak info"})
		return
	}
	c.JSON(http.StatusOK, info)
}

// GetCalendar returns the month's daily statuses, backfilling legacy rows
func GetCalendar(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	year, err := strconv.Atoi(c.Query("year"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid year"})
		return
	}
	month, err := strconv.Atoi(c.Query("month"))
	if err != nil || month < 1 || month > 12 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid month"})
		return
	}

	entries, err := services.GetStreakService().GetCalendar(c, userID, year, month)
	if err != nil {
		utils.Logger.Error("calendar_fetch_failed", zap.String("userId", userID.Hex()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load calendar"})
		return
	}
	c.JSON(http.StatusOK, entries)
}

// GetStreakLeaderboard returns the longest live streaks
func GetStreakLeaderboard(c *gin.Context) {
	limit := int64(100)
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	reports, err := services.GetStreakService().GetLeaderboard(c, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load leaderboard"})
		return
	}

	type entry struct {
		Rank          int    `json:"rank"`
		UserID        string `json:"userId"`
		CurrentStreak int    `json:"currentStreak"`
		LongestStreak int    `json:"longestStreak"`
	}
	entries := make([]entry, 0, len(reports))
	for i, report := range reports {
		entries = append(entries, entry{
			Rank:          i + 1,
			UserID:        report.UserID.Hex(),
			CurrentStreak: report.CurrentStreak,
			LongestStreak: report.LongestStreak,
		})
	}
	c.JSON(http.StatusOK, entries)
}

// GetPreferredStudyHour returns the user's preferred study hour, if any
func GetPreferredStudyHour(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	hour, err := services.GetStreakService().GetPreferredStudyHour(c, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute preferred study hour"})
		return
	}
	if hour == nil {
		c.JSON(http.StatusOK, gin.H{"preferredStudyHour": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"preferredStudyHour": *hour})
}
