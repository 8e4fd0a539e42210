package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/lorekeep/lorekeep/config"
	"github.com/lorekeep/lorekeep/controllers"
	"github.com/lorekeep/lorekeep/ledger"
	"github.com/lorekeep/lorekeep/middleware"
	"github.com/lorekeep/lorekeep/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, engine *ledger.Engine, scheduler *ledger.Scheduler) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(db)
	logController := controllers.NewLogController(db, engine)
	accountController := controllers.NewAccountController(db)
	marketController := controllers.NewMarketController(db, engine)
	adminController := controllers.NewAdminController(db, engine, scheduler)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)

	// Public read surface
	api.GET("/players/:guildId/:playerId", accountController.GetPlayer)
	api.GET("/players/:guildId/:playerId/logs", logController.ListPlayerLogs)
	api.GET("/players/:guildId/:playerId/preview", logController.Preview)
	api.GET("/characters/:id", accountController.GetCharacter)
	api.GET("/characters/:id/renown", accountController.GetRenown)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())
	protected.POST("/logs", logController.Create)
	protected.POST("/logs/:id/nullify", logController.Nullify)
	protected.POST("/market/purchase", marketController.Purchase)

	admin := api.Group("/admin")
	admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
	admin.POST("/guilds/:guildId/reset", adminController.ResetGuild)
	admin.POST("/catalog/reload", adminController.ReloadCatalog)
	admin.GET("/guilds/:guildId/stipends", adminController.ListStipends)
	admin.POST("/guilds/:guildId/stipends", adminController.CreateStipend)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
