package main

import (
	"log"
	"strconv"

	"readhub/config"
	"readhub/controllers"
	"readhub/db"
	"readhub/internal/session"
	"readhub/middlewares"
	"readhub/routes"
	"readhub/services"
	"readhub/utils"
	"readhub/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig("./config/config.yml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := utils.InitLogger(); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer utils.SyncLogger()

	utils.SetJWTSecret(cfg.JWT.Secret)

	if err := db.ConnectMongoDB(cfg.Database.URI); err != nil {
		utils.Logger.Fatal("mongodb_connect_failed", zap.Error(err))
	}
	utils.Logger.Info("mongodb_connected")

	if err := session.InitRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
		utils.Logger.Fatal("redis_connect_failed", zap.Error(err))
	}
	utils.Logger.Info("redis_connected", zap.String("addr", cfg.Redis.Addr))

	if err := middlewares.InitCasbin(cfg.Database.URI); err != nil {
		utils.Logger.Fatal("casbin_init_failed", zap.Error(err))
	}

	tracker := session.NewTracker(session.GetRedisClient(), cfg.Streak.MinSessionSeconds)
	if err := services.InitStreakService(cfg, tracker, websocket.GetHub()); err != nil {
		utils.Logger.Fatal("streak_service_init_failed", zap.Error(err))
	}

	scheduler, err := services.StartScheduler(cfg)
	if err != nil {
		utils.Logger.Fatal("scheduler_init_failed", zap.Error(err))
	}
	defer scheduler.Stop()

	router := setupRouter(cfg, tracker)
	port := strconv.Itoa(cfg.Server.Port)
	utils.Logger.Info("server_starting", zap.String("port", port))

	if err := router.Run(":" + port); err != nil {
		utils.Logger.Fatal("server_failed", zap.Error(err))
	}
}

func setupRouter(cfg *config.Config, tracker *session.Tracker) *gin.Engine {
	router := gin.Default()

	router.SetTrustedProxies([]string{"127.0.0.1", "localhost"})

	origins := cfg.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))
	router.OPTIONS("/*path", func(c *gin.Context) { c.Status(204) })

	// Public routes for authentication
	router.POST("/signup", controllers.SignUp(cfg))
	router.POST("/login", controllers.Login(cfg))

	// Protected routes (JWT auth)
	auth := router.Group("/")
	auth.Use(middlewares.AuthMiddleware())
	{
		routes.SetupStreakRoutes(auth, tracker)

		// WebSocket streak event feed
		auth.GET("/ws", websocket.StreakWebSocketHandler)
	}

	// Admin-only streak maintenance
	routes.SetupAdminRoutes(router, controllers.AdminLogin(cfg))

	return router
}
