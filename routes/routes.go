package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mehdiessalah/eventyBackend/config"
	"github.com/mehdiessalah/eventyBackend/internal/auditlog"
	"github.com/mehdiessalah/eventyBackend/internal/dashboard"
	"github.com/mehdiessalah/eventyBackend/internal/event"
	"github.com/mehdiessalah/eventyBackend/internal/subscription"
	"github.com/mehdiessalah/eventyBackend/middleware"
	"github.com/mehdiessalah/eventyBackend/monitoring"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	_ "github.com/mehdiessalah/eventyBackend/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Services are the wired application services the routes expose.
type Services struct {
	Events        *event.Service
	Subscriptions *subscription.Service
	Dashboard     *dashboard.Service
	Audit         auditlog.Service

	// Redis backs the rate limiter when set.
	Redis *redis.Client
	// HealthChecks are run by /healthz, keyed by component name.
	HealthChecks map[string]func(ctx context.Context) error
}

func Setup(r *gin.Engine, cfg *config.Config, svc Services) {
	r.Use(monitoring.RequestMetrics())

	r.GET("/healthz", healthHandler(svc.HealthChecks))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api/v1")
	api.Use(middleware.RateLimiter(cfg.RateLimitPerMinute, svc.Redis)) // per-IP limit
	api.Use(middleware.AuditMiddleware())                              // capture client IP

	auth := middleware.AuthMiddleware(cfg)

	// ========== Events ==========
	eventHandler := event.NewHandler(svc.Events, svc.Subscriptions, svc.Audit, cfg.UpcomingDefaultLimit)

	events := api.Group("/events")
	{
		events.GET("", eventHandler.ListEvents)
		events.GET("/upcoming", eventHandler.GetUpcomingEvents)
		events.GET("/category/:category", eventHandler.GetEventsByCategory)
		events.GET("/tag/:tag", eventHandler.GetEventsByTag)
		events.GET("/:id", eventHandler.GetEventByID)

		events.POST("", auth, eventHandler.CreateEvent)
		events.PUT("/:id", auth, eventHandler.UpdateEvent)
		events.PATCH("/:id/dates", auth, eventHandler.UpdateEventDates)
		events.DELETE("/:id", auth, eventHandler.DeleteEvent)
	}

	api.GET("/me/events", auth, eventHandler.GetMyEvents)

	// ========== Dashboard ==========
	dashboardHandler := dashboard.NewHandler(svc.Dashboard)
	subscriptionHandler := subscription.NewHandler(svc.Subscriptions, svc.Audit)

	dash := api.Group("/dashboard")
	{
		dash.GET("/events", dashboardHandler.GetEvents)
		dash.GET("/categories", dashboardHandler.GetCategories)
		dash.GET("/tags", dashboardHandler.GetTags)

		subs := dash.Group("/subscriptions", auth)
		subs.GET("", subscriptionHandler.ListSubscriptions)
		subs.POST("/:eventId", subscriptionHandler.Subscribe)
		subs.DELETE("/:eventId", subscriptionHandler.Unsubscribe)
		subs.POST("/:eventId/unsubscribe", subscriptionHandler.Unsubscribe)
	}

	// ========== Audit Logs ==========
	auditHandler := auditlog.NewHandler(svc.Audit)

	auditRoutes := api.Group("/auditlogs", auth)
	{
		auditRoutes.GET("", auditHandler.GetAuditLogs)
		auditRoutes.GET("/stats", auditHandler.GetAuditLogStats)
		auditRoutes.GET("/:id", auditHandler.GetAuditLogByID)
	}
}

func healthHandler(checks map[string]func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		components := gin.H{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				components[name] = err.Error()
				continue
			}
			components[name] = "OK"
		}

		overall := "OK"
		if status != http.StatusOK {
			overall = "DEGRADED"
		}
		c.JSON(status, gin.H{"status": overall, "components": components})
	}
}
