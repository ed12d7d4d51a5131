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

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/Mohwit/github-app-issue-commenter/common/id"
	"github.com/Mohwit/github-app-issue-commenter/common/logger"
	"github.com/Mohwit/github-app-issue-commenter/common/otel"
	"github.com/Mohwit/github-app-issue-commenter/core/config"
	"github.com/Mohwit/github-app-issue-commenter/internal/dedupe"
	"github.com/Mohwit/github-app-issue-commenter/internal/githubapp"
	"github.com/Mohwit/github-app-issue-commenter/internal/http/middleware"
	httprouter "github.com/Mohwit/github-app-issue-commenter/internal/http/router"
	"github.com/Mohwit/github-app-issue-commenter/internal/mapper"
	"github.com/Mohwit/github-app-issue-commenter/internal/service"
	"github.com/Mohwit/github-app-issue-commenter/internal/store"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "issue commenter starting", "env", cfg.Env, "app_id", cfg.GitHub.AppID)
	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	key, err := githubapp.ParsePrivateKey(cfg.GitHub.PrivateKey)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse github app private key", "error", err)
		os.Exit(1)
	}

	client, err := githubapp.NewClient(cfg.GitHub.APIBaseURL, nil)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create github client", "error", err)
		os.Exit(1)
	}

	credentials := githubapp.NewCredentialManager(
		githubapp.NewAppTokenIssuer(cfg.GitHub.AppID, key, client, nil),
		githubapp.WithRefreshSkew(cfg.GitHub.TokenRefreshSkew),
	)

	renderer, err := service.NewGuidelineRenderer(cfg.Comment.TemplateFile)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load comment template", "error", err, "path", cfg.Comment.TemplateFile)
		os.Exit(1)
	}

	issues := store.NewMemoryIssueStore(cfg.Store.MaxIssues)
	dispatcher := service.NewDispatcher(credentials, client, issues, renderer, cfg.Store.BodyPreviewLength, nil)

	deliveries, closeDeliveries, err := setupDeliveryTracker(ctx, cfg.Dedupe)
	if err != nil {
		slog.ErrorContext(ctx, "failed to set up delivery tracking", "error", err)
		os.Exit(1)
	}
	defer closeDeliveries()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, httprouter.Dependencies{
		Issues:     issues,
		Dispatcher: dispatcher,
		Mapper:     mapper.NewGitHubEventMapper(),
		Deliveries: deliveries,
	})
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port, "max_stored_issues", issues.Capacity())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

// setupDeliveryTracker picks redis when a URL is configured, memory
// otherwise, and nothing when no window is set.
func setupDeliveryTracker(ctx context.Context, cfg config.DedupeConfig) (dedupe.DeliveryTracker, func(), error) {
	noop := func() {}

	if !cfg.Enabled() {
		slog.InfoContext(ctx, "delivery dedupe disabled; redeliveries are processed")
		return dedupe.NewNoopTracker(), noop, nil
	}

	if !cfg.Shared() {
		slog.InfoContext(ctx, "delivery dedupe in memory", "window", cfg.Window)
		return dedupe.NewMemoryTracker(cfg.Window, dedupe.DefaultMaxTracked, nil), noop, nil
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, noop, fmt.Errorf("parse redis url: %w", err)
	}

	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = redisClient.Close()
		return nil, noop, fmt.Errorf("connect to redis: %w", err)
	}
	slog.InfoContext(ctx, "delivery dedupe in redis", "window", cfg.Window)

	return dedupe.NewRedisTracker(redisClient, cfg.Window, nil), func() { _ = redisClient.Close() }, nil
}

func setupRouter(cfg config.Config, deps httprouter.Dependencies) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, deps, httprouter.RouterConfig{
		AppName:       cfg.AppName,
		WebhookSecret: cfg.GitHub.WebhookSecret,
	})

	return router
}

const banner = `
 ___ ____ ____ _   _ _____    ____ ___  __  __ __  __ _____ _   _ _____ _____ ____
|_ _/ ___/ ___| | | | ____|  / ___/ _ \|  \/  |  \/  | ____| \ | |_   _| ____|  _ \
 | |\___ \___ \ | | |  _|   | |  | | | | |\/| | |\/| |  _| |  \| | | | |  _| | |_) |
 | | ___) |__) | |_| | |___  | |__| |_| | |  | | |  | | |___| |\  | | | | |___|  _ <
|___|____/____/ \___/|_____|  \____\___/|_|  |_|_|  |_|_____|_| \_| |_| |_____|_| \_\
`
