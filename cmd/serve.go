package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mehdiessalah/eventyBackend/config"
	"github.com/mehdiessalah/eventyBackend/database"
	"github.com/mehdiessalah/eventyBackend/internal/auditlog"
	"github.com/mehdiessalah/eventyBackend/internal/changefeed"
	"github.com/mehdiessalah/eventyBackend/internal/dashboard"
	"github.com/mehdiessalah/eventyBackend/internal/event"
	"github.com/mehdiessalah/eventyBackend/internal/subscription"
	"github.com/mehdiessalah/eventyBackend/routes"
	"github.com/mehdiessalah/eventyBackend/utils"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func NewServeCommand() *cobra.Command {
	var skipMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, config.Load(), !skipMigrate)
		},
	}
	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not apply pending migrations on startup (postgres driver)")
	return cmd
}

// application is the wired dependency graph.
type application struct {
	router  *gin.Engine
	closers []func() error
}

func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Warn("shutdown step failed", "error", err)
		}
	}
}

type stores struct {
	events        event.Repository
	subscriptions subscription.Repository
	audit         auditlog.Repository
}

func openStores(ctx context.Context, cfg *config.Config, migrate bool) (stores, *gorm.DB, error) {
	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		log.Println("🧠 Using in-memory storage")
		return stores{
			events:        event.NewMemoryRepository(),
			subscriptions: subscription.NewMemoryRepository(),
			audit:         auditlog.NewMemoryRepository(),
		}, nil, nil

	case config.StorageDriverPostgres:
		db, err := database.Connect(cfg)
		if err != nil {
			return stores{}, nil, err
		}
		if migrate {
			log.Println("🔄 Running database migrations...")
			if err := database.Migrate(ctx, db); err != nil {
				return stores{}, nil, err
			}
			log.Println("✅ Database migrations completed")
		}
		return stores{
			events:        event.NewRepository(db),
			subscriptions: subscription.NewRepository(db),
			audit:         auditlog.NewRepository(db),
		}, db, nil

	default:
		return stores{}, nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}
}

func buildApplication(ctx context.Context, cfg *config.Config, migrate bool) (*application, error) {
	app := &application{}

	st, db, err := openStores(ctx, cfg, migrate)
	if err != nil {
		return nil, err
	}
	checks := map[string]func(context.Context) error{}
	if db != nil {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, sqlDB.Close)
		checks["postgres"] = sqlDB.PingContext
	}

	// Redis is optional; without it the dashboard reads straight through.
	rdb, err := utils.InitRedis(cfg)
	if err != nil {
		log.Printf("⚠️ Redis unavailable, continuing without cache: %v", err)
	}
	var cache *dashboard.Cache
	if rdb != nil {
		log.Printf("✅ Redis connected at %s", cfg.RedisAddr)
		app.closers = append(app.closers, rdb.Close)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		cache = dashboard.NewCache(rdb, cfg.DashboardCacheTTL)
	}

	var sinks []changefeed.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		kafka := changefeed.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		app.closers = append(app.closers, kafka.Close)
		sinks = append(sinks, kafka)
		log.Printf("✅ Publishing changes to Kafka topic %s", cfg.KafkaTopic)
	}
	if cache != nil {
		sinks = append(sinks, cache)
	}
	publisher := changefeed.Multi(sinks...)

	eventSvc := event.NewService(st.events, publisher)
	subscriptionSvc := subscription.NewService(st.subscriptions, eventSvc, publisher)
	dashboardSvc := dashboard.NewService(eventSvc, cache)
	auditSvc := auditlog.NewService(st.audit)

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSAllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "Content-Length", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.Setup(router, cfg, routes.Services{
		Events:        eventSvc,
		Subscriptions: subscriptionSvc,
		Dashboard:     dashboardSvc,
		Audit:         auditSvc,
		Redis:         rdb,
		HealthChecks:  checks,
	})

	app.router = router
	return app, nil
}

func serve(ctx context.Context, cfg *config.Config, migrate bool) error {
	if cfg.JWTAccessSecret == "" {
		log.Println("⚠️ JWT_ACCESS_SECRET is empty, authenticated routes will reject every token")
	}

	app, err := buildApplication(ctx, cfg, migrate)
	if err != nil {
		return err
	}
	defer app.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("🚀 Server starting on port %s", cfg.Port)
		log.Printf("📚 Swagger UI: http://localhost:%s/swagger/index.html", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Println("🛑 Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
