package controllers

import (
	"context"
	"net/http"
	"time"

	"readhub/config"
	"readhub/db"
	"readhub/middlewares"
	"readhub/models"
	"readhub/services"
	"readhub/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type AdminLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AdminLogin authenticates against the admins collection and returns a JWT
func AdminLogin(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AdminLoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		var admin models.Admin
		err := db.MongoDatabase.Collection("admins").FindOne(ctx, bson.M{"email": req.Email}).Decode(&admin)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}
		if !utils.CheckPasswordHash(req.Password, admin.Password) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}

		token, err := utils.GenerateJWTToken(admin.ID.Hex(), admin.Email, time.Duration(cfg.JWT.Expiry)*time.Minute)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"token": token, "role": admin.Role})
	}
}

type RecoverStreakRequest struct {
	UserID    string `json:"userId" binding:"required"`
	StartDate string `json:"startDate" binding:"required"`
	EndDate   string `json:"endDate" binding:"required"`
}

// RecoverStreak is the administrative repair endpoint for corrupted
// streak history. Each call is a one-time correction; repeating the same
// range re-refunds freeze days.
func RecoverStreak(c *gin.Context) {
	var req RecoverStreakRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	userID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	report, err := services.GetStreakService().RecoverStreak(c, userID, req.StartDate, req.EndDate)
	if err != nil {
		utils.Logger.Error("streak_recovery_failed",
			zap.String("userId", req.UserID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to recover streak", "details": err.Error()})
		return
	}

	middlewares.LogAdminAction(c, "recover_streak", "study_report", userID, map[string]interface{}{
		"startDate": req.StartDate,
		"endDate":   req.EndDate,
	})

	c.JSON(http.StatusOK, gin.H{"report": report})
}

// RunMissedDayBatch triggers the daily missed-day processing on demand
func RunMissedDayBatch(c *gin.Context) {
	svc := services.GetStreakService()
	if err := svc.ProcessAllMissedDays(c, svc.Today()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Missed-day batch failed", "details": err.Error()})
		return
	}

	middlewares.LogAdminAction(c, "run_missed_day_batch", "study_report", primitive.NilObjectID, nil)

	c.JSON(http.StatusOK, gin.H{"status": "completed"})
}
