package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"tumbi/internal/infra/config"
	"tumbi/internal/infra/obs"
)

type Handlers struct {
	Auth     AuthHTTP
	Listings ListingHTTP
	Users    UserHTTP
	Saved    SavedHTTP
	Chat     ChatHTTP
	Upload   UploadHTTP
	// Authenticator resolves tokens on every request and guards protected routes.
	Authenticator *AuthMiddleware
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg.Env, obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewRouter builds the gin engine. Routes whose handler is nil are not mounted.
func NewRouter(env string, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	mode := configureGinMode(env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(obsMW.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", TokenHeader, IdempotencyKeyHeader},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"Location",
			obs.RequestIDHeader,
		},
		MaxAge: 12 * time.Hour,
	}))

	requireAuth := func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no token, authorization denied"})
	}
	if h.Authenticator != nil {
		router.Use(h.Authenticator.Handle)
		requireAuth = h.Authenticator.Require()
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api")
	registerDocsRoutes(api)
	if h.Auth != nil {
		api.POST("/auth/register", h.Auth.Register)
		api.POST("/auth/login", h.Auth.Login)
		api.GET("/auth/me", requireAuth, h.Auth.Me)
	}
	if h.Listings != nil {
		api.GET("/listings", h.Listings.List)
		api.GET("/listings/slug/:slug", h.Listings.BySlug)
		api.GET("/listings/:id", h.Listings.Get)
		api.POST("/listings", requireAuth, h.Listings.Create)
		api.PUT("/listings/:id", requireAuth, h.Listings.Update)
		api.DELETE("/listings/:id", requireAuth, h.Listings.Delete)
	}
	if h.Users != nil {
		api.PUT("/users/me", requireAuth, h.Users.UpdateMe)
		api.GET("/users/:id", h.Users.Profile)
		api.GET("/users/:id/listings", h.Users.Listings)
	}
	if h.Saved != nil {
		saved := api.Group("/saved", requireAuth)
		saved.GET("", h.Saved.List)
		saved.GET("/ids", h.Saved.IDs)
		saved.GET("/:id", h.Saved.Status)
		saved.POST("/:id", h.Saved.Add)
		saved.DELETE("/:id", h.Saved.Remove)
	}
	if h.Chat != nil {
		api.POST("/conversations", requireAuth, h.Chat.Start)
		api.GET("/conversations", requireAuth, h.Chat.List)
		api.GET("/conversations/:id/messages", requireAuth, h.Chat.Messages)
		api.POST("/messages", requireAuth, h.Chat.Send)
	}
	if h.Upload != nil {
		api.POST("/upload", requireAuth, h.Upload.Upload)
	}
	return router
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
