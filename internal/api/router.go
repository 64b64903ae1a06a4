package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"techtrack-backend/config"
	"techtrack-backend/internal/metrics"
	"techtrack-backend/internal/mw"
)

// NewRouter creates and configures the Gin router.
func NewRouter(cfg *config.Config, deps Deps) *gin.Engine {
	r := gin.Default()
	r.Use(mw.Metrics())

	handler := NewHandler(deps)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst, cfg.Server.RequestIPHeader)

	// Read views are cached briefly per caller; lifecycle writes never pass
	// through here, so the cache can only delay what a list shows, never
	// what a transition decides.
	ttl := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(ttl, 2*ttl)
	caching := mw.Cache(cacheStore, ttl)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.POST("/auth/login", handler.Login)
		api.GET("/vapid", handler.GetVAPIDPublicKey)
	}

	authed := api.Group("")
	authed.Use(mw.Auth(deps.Tokens))
	{
		authed.GET("/items", caching, handler.GetItems)
		authed.GET("/items/:id", handler.GetItem)
		authed.GET("/items/:id/label", handler.GetItemLabel)
		authed.GET("/activity", caching, handler.GetActivity)

		authed.GET("/reports", caching, handler.GetReports)
		authed.POST("/reports", handler.SubmitReport)

		authed.GET("/users", caching, handler.GetUsers)
		authed.GET("/categories", caching, handler.GetCategories)

		authed.POST("/scan", handler.ScanLabel)

		authed.GET("/subscriptions", handler.GetSubscriptions)
		authed.PUT("/subscriptions", handler.PutSubscription)
		authed.DELETE("/subscriptions", handler.DeleteSubscription)

		authed.GET("/events", handler.Events)
	}

	tech := authed.Group("")
	tech.Use(mw.RequireTechnician())
	{
		tech.POST("/items", handler.RegisterItem)
		tech.POST("/items/:id/checkout", handler.CheckoutItem)
		tech.POST("/items/:id/return", handler.ReturnItem)
		tech.POST("/items/:id/maintenance", handler.MaintenanceItem)
		tech.POST("/items/:id/restore", handler.RestoreItem)

		tech.POST("/reports/:id/triage", handler.TriageReport)
	}

	return r
}
