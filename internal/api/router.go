package api

import (
	"embed"                         // Embedded templates
	"html/template"                 // Page templates
	"smart_bin/internal/auth"       // Session gate
	"smart_bin/internal/cache"      // Snapshot cache
	"smart_bin/internal/metrics"    // Prometheus collectors
	"smart_bin/internal/middleware" // Custom package for middleware
	"smart_bin/internal/service"    // Bin engine

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"gorm.io/gorm"                 // GORM ORM library
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Deps are the collaborators shared by the handlers
type Deps struct {
	DB            *gorm.DB             // Store, used for health checks and user checks
	Redis         redis.Cmdable        // Session registry and cache backend
	Bins          *service.BinService  // Bin engine
	Auth          *auth.Service        // Session gate
	Snapshots     *cache.SnapshotCache // Cached /level payload, may be nil
	SecureCookies bool                 // Mark cookies Secure (HTTPS deployments)
}

// NewRouter builds the Gin engine with every route registered
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()                                    // Gin router instance
	r.Use(gin.Recovery(), middleware.RequestLogger()) // Panic recovery and logrus access log
	// Login and dashboard pages
	r.SetHTMLTemplate(template.Must(template.ParseFS(templateFS, "templates/*.tmpl")))

	optional := middleware.OptionalSession(d.Auth) // Detects a session without requiring one

	// Sensor and dashboard data routes
	r.GET("/update", UpdateLevelHandler(d.Bins, d.Snapshots))    // Sensor level report
	r.GET("/level", optional, LevelHandler(d.Bins, d.Snapshots)) // Default bin snapshot

	// Session routes
	r.GET("/login", optional, LoginPageHandler())                     // Login form
	r.POST("/login", optional, LoginHandler(d.Auth, d.SecureCookies)) // Credential check
	r.GET("/logout", LogoutHandler(d.Auth, d.SecureCookies))          // End the session

	// Operational routes
	r.GET("/healthz", HealthHandler(d.DB, d.Redis)) // Liveness of DB and Redis
	r.GET("/metrics", gin.WrapH(metrics.Handler())) // Prometheus scrape endpoint

	// Dashboard routes (protected by session)
	protected := r.Group("/")
	protected.Use(middleware.RequireSession(d.Auth), middleware.ActiveUserMiddleware(d.DB))
	protected.GET("/", IndexHandler())                            // Dashboard page
	protected.POST("/config", ConfigHandler(d.Bins, d.Snapshots)) // Default bin configuration
	return r
}
