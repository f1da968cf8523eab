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

	"basegraph.app/meetrelay/common/id"
	"basegraph.app/meetrelay/common/logger"
	"basegraph.app/meetrelay/common/otel"
	"basegraph.app/meetrelay/core/config"
	"basegraph.app/meetrelay/core/db"
	"basegraph.app/meetrelay/internal/diagnosis"
	"basegraph.app/meetrelay/internal/dispatch"
	"basegraph.app/meetrelay/internal/events"
	"basegraph.app/meetrelay/internal/http/middleware"
	httprouter "basegraph.app/meetrelay/internal/http/router"
	"basegraph.app/meetrelay/internal/notify"
	"basegraph.app/meetrelay/internal/pipeline"
	"basegraph.app/meetrelay/internal/queue"
	"basegraph.app/meetrelay/internal/recall"
	"basegraph.app/meetrelay/internal/service"
	"basegraph.app/meetrelay/internal/signature"
	"basegraph.app/meetrelay/internal/store"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
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

	slog.InfoContext(ctx, "meetrelay server starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected", "auto_migrate", cfg.DB.AutoMigrate)

	redisOpts, err := redis.ParseURL(cfg.Pipeline.RedisURL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Pipeline.RedisStream)

	producer := queue.NewRedisProducer(redisClient, cfg.Pipeline.RedisStream, nil)
	defer producer.Close()

	broadcaster, err := newBroadcaster(cfg.Broadcast, redisClient)
	if err != nil {
		slog.ErrorContext(ctx, "failed to set up event broadcast", "error", err)
		os.Exit(1)
	}
	defer broadcaster.Close()

	provider, err := recall.New(recall.Config{
		APIKey:     cfg.Recall.APIKey,
		BaseURL:    cfg.Recall.BaseURL,
		Timeout:    cfg.Recall.Timeout,
		MaxRetries: cfg.Recall.MaxRetries,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create provider client", "error", err)
		os.Exit(1)
	}

	verifier, err := signature.NewVerifier(cfg.Recall.WebhookSecrets)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create signature verifier", "error", err)
		os.Exit(1)
	}

	notifier := newNotifier(cfg.Notification)
	defer notifier.Wait()

	stores := store.NewStores(database.Conn())
	publisher := events.NewPublisher(stores.EventLogs(), broadcaster)
	engine := diagnosis.NewEngine(diagnosis.ResolveRegion(cfg.Recall.Region, cfg.Recall.BaseURL))
	coordinator := pipeline.NewCoordinator(stores.Meetings(), producer, publisher,
		pipeline.NewRedisCancelBus(redisClient, cfg.Pipeline.CancelChannel))

	dispatcher := dispatch.NewRouter(
		dispatch.NewBotHandler(stores.Bots(), stores.Meetings(), engine, publisher, coordinator, notifier),
		dispatch.NewTranscriptHandler(stores.Meetings(), coordinator),
		dispatch.NewMediaHandler(stores.Bots()),
	)

	webhooks := service.NewWebhookService(
		verifier,
		service.NewRedisIdempotency(redisClient, "meetrelay:webhook:", cfg.Pipeline.IdempotencyTTL),
		dispatcher,
		producer,
		nil,
	)
	services := service.NewServices(stores, provider, engine, coordinator)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, services, httprouter.RouterConfig{
		Webhooks:    webhooks,
		EventReader: redisClient,
		EventStream: cfg.Broadcast.RedisStream,
	})
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
		// No WriteTimeout: the event stream is long-lived.
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
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

func setupRouter(cfg config.Config, services *service.Services, routes httprouter.RouterConfig) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, services, routes)

	return router
}

func newBroadcaster(cfg config.BroadcastConfig, redisClient *redis.Client) (events.Broadcaster, error) {
	var multi events.Multi
	if cfg.UsesRedis() {
		multi = append(multi, events.NewRedisBroadcaster(redisClient, cfg.RedisStream, cfg.StreamMaxLen))
	}
	if cfg.UsesNATS() {
		nb, err := events.NewNATSBroadcaster(cfg.NATSURL, cfg.SubjectPrefix)
		if err != nil {
			return nil, err
		}
		multi = append(multi, nb)
	}
	if len(multi) == 1 {
		return multi[0], nil
	}
	return multi, nil
}

func newNotifier(cfg config.NotificationConfig) *notify.Async {
	var next notify.Notifier = notify.Noop{}
	if cfg.Enabled() {
		next = notify.NewHTTP(notify.Config{
			BaseURL: cfg.BaseURL,
			Token:   cfg.Token,
			Timeout: cfg.Timeout,
		})
	}
	return notify.NewAsync(next, cfg.Timeout*2)
}

const banner = `
███╗   ███╗███████╗███████╗████████╗██████╗ ███████╗██╗      █████╗ ██╗   ██╗
████╗ ████║██╔════╝██╔════╝╚══██╔══╝██╔══██╗██╔════╝██║     ██╔══██╗╚██╗ ██╔╝
██╔████╔██║█████╗  █████╗     ██║   ██████╔╝█████╗  ██║     ███████║ ╚████╔╝
██║╚██╔╝██║██╔══╝  ██╔══╝     ██║   ██╔══██╗██╔══╝  ██║     ██╔══██║  ╚██╔╝
██║ ╚═╝ ██║███████╗███████╗   ██║   ██║  ██║███████╗███████╗██║  ██║   ██║
╚═╝     ╚═╝╚══════╝╚══════╝   ╚═╝   ╚═╝  ╚═╝╚══════╝╚══════╝╚═╝  ╚═╝   ╚═╝
`
