package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lugf027/mywebsite/config"
	"github.com/lugf027/mywebsite/controllers"
	"github.com/lugf027/mywebsite/middleware"
	"github.com/lugf027/mywebsite/services"
	"github.com/lugf027/mywebsite/utils"
)

// Dependencies are the services the HTTP layer is built on.
type Dependencies struct {
	Articles   *services.ArticleService
	Statistics *services.StatisticsService
	Site       *services.SiteConfigService
	Auth       *services.AuthService
	Recorder   middleware.EventRecorder
	Clock      services.Clock
	Cache      *utils.Cache
	Blacklist  *utils.TokenBlacklist
	Logger     *zap.Logger
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(d Dependencies) *gin.Engine {
	// Load config and set Gin mode from configuration
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	log := d.Logger
	if log == nil {
		log = utils.L()
	}

	r := gin.New()
	// Only listed proxies may set the client address; UV and rate limits key on it
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		log.Warn("invalid trusted proxies, trusting none", zap.Strings("proxies", cfg.TrustedProxies), zap.Error(err))
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(middleware.RequestID())
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", utils.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", utils.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.Use(middleware.Metrics())
	// Principal is resolved before the access log so events carry the user id
	r.Use(middleware.OptionalAuth(d.Blacklist))
	if d.Recorder != nil {
		r.Use(middleware.AccessLog(d.Recorder, d.Clock))
	}

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	blogController := controllers.NewBlogController(d.Articles, d.Cache, log)
	adminBlogController := controllers.NewAdminBlogController(d.Articles, d.Cache, log)
	statsController := controllers.NewStatsController(d.Statistics, log)
	siteController := controllers.NewSiteController(d.Site, log)
	authController := controllers.NewAuthController(d.Auth, d.Blacklist, log)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimit(cfg.RateLimitPerMinute))
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", middleware.AuthRequired(d.Blacklist), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(d.Blacklist), authController.Me)

	blogs := api.Group("/blogs")
	blogs.GET("", blogController.List)
	blogs.GET("/latest", blogController.Latest)
	blogs.GET("/:id", blogController.Get)

	api.GET("/site/overview", siteController.Overview)
	api.GET("/statistics/overview", statsController.Overview)

	admin := api.Group("/admin")
	admin.Use(middleware.AuthRequired(d.Blacklist), middleware.AdminRequired())
	admin.GET("/blogs", adminBlogController.List)
	admin.POST("/blogs", adminBlogController.Create)
	admin.GET("/blogs/:id", adminBlogController.Get)
	admin.PUT("/blogs/:id", adminBlogController.Update)
	admin.DELETE("/blogs/:id", adminBlogController.Delete)
	admin.POST("/blogs/:id/publish", adminBlogController.Publish)
	admin.POST("/blogs/:id/unpublish", adminBlogController.Unpublish)
	admin.GET("/site-config", siteController.GetConfig)
	admin.PUT("/site-config", siteController.UpdateConfig)
	admin.GET("/statistics/overview", statsController.Overview)
	admin.GET("/statistics/report", statsController.Report)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		utils.Error(ctx, http.StatusNotFound, 40400, "not found")
	})

	return r
}
