package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Admin represents an admin or moderator user
type Admin struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Email     string             `bson:"email" json:"email"`
	Password  string             `bson:"password" json:"-"` // Never return password in JSON
	Role      string             `bson:"role" json:"role"`  // "admin" or "moderator"
	Name      string             `bson:"name" json:"name"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// AdminActionLog represents a log entry for admin actions
type AdminActionLog struct {
	ID           primitive.ObjectID     `bson:"_id,omitempty" json:"id,omitempty"`
	AdminID      primitive.ObjectID     `bson:"adminId" json:"adminId"`
	AdminEmail   string                 `bson:"adminEmail" json:"adminEmail"`
	Action       string                 `bson:"action" json:"action"` // "recover_streak", "run_missed_day_batch"
	ResourceType string                 `bson:"resourceType" json:"resourceType"`
	ResourceID   primitive.ObjectID     `bson:"resourceId" json:"resourceId"`
	IPAddress    string                 `bson:"ipAddress" json:"ipAddress"`
	UserAgent    string                 `bson:"userAgent" json:"userAgent"`
	Timestamp    time.Time              `bson:"timestamp" json:"timestamp"`
	Details      map[string]interface{} `bson:"details,omitempty" json:"details,omitempty"`
}
