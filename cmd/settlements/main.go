package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/mr1hm/go-settlements/internal/api"
	"github.com/mr1hm/go-settlements/internal/config"
	"github.com/mr1hm/go-settlements/internal/enrichment"
	"github.com/mr1hm/go-settlements/internal/events"
	"github.com/mr1hm/go-settlements/internal/geocode"
	"github.com/mr1hm/go-settlements/internal/geometry"
	"github.com/mr1hm/go-settlements/internal/logging"
	"github.com/mr1hm/go-settlements/internal/repository"
	"github.com/mr1hm/go-settlements/internal/view"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("Server starting", "host", cfg.Server.Host, "port", cfg.Server.Port)

	src, closeSource, err := repository.Open(cfg.Source)
	if err != nil {
		logging.Fatalf("Failed to open source: %v", err)
	}
	defer closeSource()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := repository.New(geometry.NewColorAssigner())
	report, err := repo.Load(ctx, src)
	if err != nil {
		// serve an empty collection rather than exit
		slog.Error("failed to load settlements", "source", src.Name(), "error", err)
	} else {
		slog.Info("settlements loaded", "source", report.Source, "loaded", report.Loaded, "skipped", len(report.Skipped))
	}

	cache, err := geocode.NewCache(cfg.Geocode.CacheSize)
	if err != nil {
		logging.Fatalf("Failed to create geocode cache: %v", err)
	}
	client := geocode.NewClient(cache,
		geocode.WithBaseURL(cfg.Geocode.URL),
		geocode.WithUserAgent(cfg.Geocode.UserAgent),
		geocode.WithLanguages(cfg.Geocode.Languages),
		geocode.WithMinInterval(cfg.Geocode.MinInterval),
		geocode.WithHTTPClient(&http.Client{Timeout: cfg.Geocode.Timeout}),
	)

	broadcaster := events.NewBroadcaster()

	sched := enrichment.New(repo, client,
		enrichment.WithInterval(cfg.Enrich.Interval),
		enrichment.WithBufferSize(cfg.Enrich.BufferSize),
		enrichment.WithBroadcaster(broadcaster),
		enrichment.WithCache(cache),
	)
	sched.Start(ctx)

	v := view.New(repo, func(ids []string) {
		sched.Trigger(ctx, ids)
	}, cfg.View.PageSize)
	v.Refresh()

	// Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
	}))
	router.Use(api.RateLimitMiddleware(cfg.Server.RateLimit))

	handler := api.NewHandler(v, sched, cache, broadcaster)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down...")

	cancel()
	sched.Stop()
	slog.Info("closing event streams", "subscribers", broadcaster.SubscriberCount())
	broadcaster.Close() // ends open event streams

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
}
