package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"family-groceries/internal/metrics"
	"family-groceries/internal/mw"
)

// RouterOptions tunes the middleware in front of the handlers.
type RouterOptions struct {
	RateLimit rate.Limit
	Burst     int
	CacheTTL  time.Duration
	// Gatherer serves /metrics when set.
	Gatherer prometheus.Gatherer
}

// NewRouter creates and configures a new Gin router.
func NewRouter(handler *Handler, opts RouterOptions) *gin.Engine {
	r := gin.Default()

	if opts.RateLimit <= 0 {
		opts.RateLimit = rate.Limit(10)
	}
	if opts.Burst <= 0 {
		opts.Burst = 20
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * time.Second
	}

	rateLimiter := mw.RateLimiter(mw.NewIPRateLimiter(opts.RateLimit, opts.Burst, 10*time.Minute))

	// Suggestions change whenever an item is added, so every write flushes.
	cacheStore := cache.New(opts.CacheTTL, 2*opts.CacheTTL)
	caching := mw.Cache(cacheStore, opts.CacheTTL)

	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(metrics.Handler(opts.Gatherer)))
	}

	api := r.Group("/api")
	api.Use(rateLimiter, mw.Invalidate(cacheStore))
	{
		api.POST("/sessions", handler.CreateSession)

		sessions := api.Group("/sessions/:id")
		sessions.GET("", handler.GetSession)
		sessions.DELETE("", handler.DeleteSession)
		sessions.GET("/events", handler.StreamSession)
		sessions.POST("/refresh", handler.RefreshSession)
		sessions.POST("/items", handler.AddItem)
		sessions.POST("/quick-add", handler.QuickAdd)
		sessions.PATCH("/items/:itemID", handler.ToggleItem)
		sessions.POST("/items/:itemID/review", handler.ReviewDelete)
		sessions.POST("/purchase/review", handler.ReviewPurchase)
		sessions.POST("/review/confirm", handler.ConfirmReview)
		sessions.DELETE("/review", handler.CancelReview)
		sessions.POST("/undo", handler.Undo)

		api.GET("/suggestions", caching, handler.GetSuggestions)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
		api.PUT("/push/subscriptions", handler.PutSubscription)
		api.DELETE("/push/subscriptions", handler.DeleteSubscription)
	}

	return r
}
