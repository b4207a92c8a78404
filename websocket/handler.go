package websocket

import (
	"net/http"
	"strings"

	"readhub/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	// In production, adjust the CheckOrigin function to allow only trusted origins.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StreakWebSocketHandler upgrades the connection and keeps the client
// registered on the hub until it disconnects
func StreakWebSocketHandler(c *gin.Context) {
	// Token from Authorization header or query parameter
	var tokenString string
	if authz := c.GetHeader("Authorization"); authz != "" {
		parts := strings.Split(authz, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			tokenString = parts[1]
		}
	}
	if tokenString == "" {
		tokenString = c.Query("token")
	}
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization token required"})
		return
	}

	claims, err := utils.ParseJWTToken(tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.Logger.Error("websocket_upgrade_failed", zap.Error(err))
		return
	}

	client := &StreakClient{Conn: conn, UserID: claims.UserID}
	GetHub().Register(client)
	defer GetHub().Unregister(client)

	// Drain reads until the client goes away; the hub only pushes
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
