package middlewares

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"readhub/db"
	"readhub/models"
	"readhub/utils"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	mongodbadapter "github.com/casbin/mongodb-adapter/v3"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var enforcer *casbin.Enforcer

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

// InitCasbin initializes the Casbin enforcer with the MongoDB adapter
func InitCasbin(mongoURI string) error {
	adapter, err := mongodbadapter.NewAdapter(mongoURI)
	if err != nil {
		return fmt.Errorf("failed to create Casbin adapter: %w", err)
	}

	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return fmt.Errorf("failed to create Casbin model: %w", err)
	}

	enforcer, err = casbin.NewEnforcer(m, adapter)
	if err != nil {
		return fmt.Errorf("failed to create Casbin enforcer: %w", err)
	}

	if err := enforcer.LoadPolicy(); err != nil {
		return fmt.Errorf("failed to load policy: %w", err)
	}

	ensureDefaultPolicies()
	return nil
}

// ensureDefaultPolicies seeds the streak-administration policies (idempotent)
func ensureDefaultPolicies() {
	defaultPolicies := []struct {
		role     string
		resource string
		action   string
	}{
		{"admin", "streak", "recover"},
		{"admin", "streak", "process"},
		{"admin", "user", "read"},
		{"moderator", "user", "read"},
	}

	for _, policy := range defaultPolicies {
		exists, _ := enforcer.HasPolicy(policy.role, policy.resource, policy.action)
		if !exists {
			enforcer.AddPolicy(policy.role, policy.resource, policy.action)
		}
	}

	if err := enforcer.SavePolicy(); err != nil {
		utils.Logger.Warn("casbin_save_policy_failed", zap.Error(err))
	}
}

// AdminAuthMiddleware authenticates admin users against the admins collection
func AdminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			c.Abort()
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token format"})
			c.Abort()
			return
		}

		claims, err := utils.ParseJWTToken(tokenParts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		dbCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		var admin models.Admin
		err = db.MongoDatabase.Collection("admins").FindOne(dbCtx, bson.M{"email": claims.Email}).Decode(&admin)
		if err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			c.Abort()
			return
		}

		c.Set("adminEmail", admin.Email)
		c.Set("adminID", admin.ID)
		c.Set("adminRole", admin.Role)
		c.Next()
	}
}

// RBACMiddleware checks whether the admin's role may perform the action
func RBACMiddleware(resource, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		adminRole, exists := c.Get("adminRole")
		if !exists {
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin role not found"})
			c.Abort()
			return
		}

		allowed, err := enforcer.Enforce(adminRole.(string), resource, action)
		if err != nil {
			utils.Logger.Error("casbin_enforce_error", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Permission check failed"})
			c.Abort()
			return
		}
		if !allowed {
			c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// LogAdminAction writes an audit row for an admin action
func LogAdminAction(c *gin.Context, action, resourceType string, resourceID primitive.ObjectID, details map[string]interface{}) error {
	adminID, exists := c.Get("adminID")
	if !exists {
		return fmt.Errorf("adminID not found in context")
	}
	adminEmail, exists := c.Get("adminEmail")
	if !exists {
		return fmt.Errorf("adminEmail not found in context")
	}

	logEntry := models.AdminActionLog{
		ID:           primitive.NewObjectID(),
		AdminID:      adminID.(primitive.ObjectID),
		AdminEmail:   adminEmail.(string),
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    c.ClientIP(),
		UserAgent:    c.GetHeader("User-Agent"),
		Timestamp:    time.Now(),
		Details:      details,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := db.MongoDatabase.Collection("admin_action_logs").InsertOne(ctx, logEntry)
	return err
}
