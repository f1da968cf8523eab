package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"basegraph.app/meetrelay/common/id"
	"basegraph.app/meetrelay/common/llm"
	"basegraph.app/meetrelay/common/logger"
	"basegraph.app/meetrelay/common/otel"
	"basegraph.app/meetrelay/core/config"
	"basegraph.app/meetrelay/core/db"
	"basegraph.app/meetrelay/internal/diagnosis"
	"basegraph.app/meetrelay/internal/dispatch"
	"basegraph.app/meetrelay/internal/events"
	"basegraph.app/meetrelay/internal/notify"
	"basegraph.app/meetrelay/internal/pipeline"
	"basegraph.app/meetrelay/internal/queue"
	"basegraph.app/meetrelay/internal/recall"
	"basegraph.app/meetrelay/internal/service"
	"basegraph.app/meetrelay/internal/store"
	"basegraph.app/meetrelay/internal/worker"
)

func main() {
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	cfg, err := config.Load(config.ServiceTypeWorker)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	fmt.Printf("%s\n", banner)

	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger.Setup(cfg)

	slog.InfoContext(ctx, "meetrelay worker starting",
		"env", cfg.Env,
		"consumer_group", cfg.Pipeline.RedisGroup,
		"consumer_name", cfg.Pipeline.RedisConsumer)

	// Different node id than the server
	if err := id.Init(2); err != nil {
		slog.ErrorContext(ctx, "failed to initialize id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

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

	consumer, err := queue.NewRedisConsumer(ctx, redisClient, queue.ConsumerConfig{
		Stream:       cfg.Pipeline.RedisStream,
		Group:        cfg.Pipeline.RedisGroup,
		Consumer:     cfg.Pipeline.RedisConsumer,
		DLQStream:    cfg.Pipeline.RedisDLQStream,
		BatchSize:    1,
		Block:        5 * time.Second,
		MaxAttempts:  cfg.Pipeline.MaxAttempts,
		RequeueDelay: time.Second,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create consumer", "error", err)
		os.Exit(1)
	}

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

	var extractor pipeline.Extractor
	if cfg.OpenAI.Enabled() {
		llmClient, err := llm.New(llm.Config{
			APIKey:     cfg.OpenAI.APIKey,
			BaseURL:    cfg.OpenAI.BaseURL,
			Model:      cfg.OpenAI.Model,
			Timeout:    cfg.OpenAI.Timeout,
			MaxRetries: cfg.OpenAI.MaxRetries,
		})
		if err != nil {
			slog.ErrorContext(ctx, "failed to create llm client", "error", err)
			os.Exit(1)
		}
		extractor = pipeline.NewLLMExtractor(llmClient)
	} else {
		slog.WarnContext(ctx, "OPENAI_API_KEY not set; artifact extraction disabled")
	}

	notifier := newNotifier(cfg.Notification)
	defer notifier.Wait()

	stores := store.NewStores(database.Conn())
	publisher := events.NewPublisher(stores.EventLogs(), broadcaster)
	cancelBus := pipeline.NewRedisCancelBus(redisClient, cfg.Pipeline.CancelChannel)
	coordinator := pipeline.NewCoordinator(stores.Meetings(), producer, publisher, cancelBus)
	supervisor := pipeline.NewSupervisor()
	engine := diagnosis.NewEngine(diagnosis.ResolveRegion(cfg.Recall.Region, cfg.Recall.BaseURL))

	stages := pipeline.NewStageRunner(stores, provider, extractor, publisher, coordinator, supervisor)
	dispatcher := dispatch.NewRouter(
		dispatch.NewBotHandler(stores.Bots(), stores.Meetings(), engine, publisher, coordinator, notifier),
		dispatch.NewTranscriptHandler(stores.Meetings(), coordinator),
		dispatch.NewMediaHandler(stores.Bots()),
	)

	mux := worker.Mux{
		queue.TaskTypeTranscriptRetrieval: stages,
		queue.TaskTypeArtifactExtraction:  stages,
		queue.TaskTypeWebhookRetry:        service.NewWebhookRetryHandler(dispatcher),
	}

	w := worker.New(consumer, mux, worker.Config{
		MaxAttempts: cfg.Pipeline.MaxAttempts,
	})

	reclaimer := worker.NewRedisReclaimer(redisClient, worker.RedisReclaimerConfig{
		Stream:    cfg.Pipeline.RedisStream,
		Group:     cfg.Pipeline.RedisGroup,
		Consumer:  cfg.Pipeline.RedisConsumer + "-reclaimer",
		MinIdle:   5 * time.Minute,
		Interval:  1 * time.Minute,
		BatchSize: 10,
	}, consumer, w.ProcessMessage)

	errCh := make(chan error, 3)
	go func() {
		errCh <- w.Run(ctx)
	}()
	go func() {
		reclaimer.Run(ctx)
		errCh <- nil
	}()
	go func() {
		if err := cancelBus.Listen(ctx, supervisor); err != nil {
			slog.ErrorContext(ctx, "cancellation listener stopped", "error", err)
		}
	}()

	slog.InfoContext(ctx, "worker initialized and running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down worker...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Reclaimer first (quick), then the worker which may be mid-stage
	reclaimer.Stop()
	w.Stop()
	stop()

	select {
	case <-shutdownCtx.Done():
		slog.WarnContext(shutdownCtx, "shutdown timeout exceeded")
	case err := <-errCh:
		if err != nil {
			slog.ErrorContext(shutdownCtx, "worker error during shutdown", "error", err)
		}
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "worker shutdown complete")
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
███╗   ███╗███████╗███████╗████████╗██████╗ ███████╗██╗      █████╗ ██╗   ██╗    ██╗    ██╗ ██████╗ ██████╗ ██╗  ██╗███████╗██████╗
████╗ ████║██╔════╝██╔════╝╚══██╔══╝██╔══██╗██╔════╝██║     ██╔══██╗╚██╗ ██╔╝    ██║    ██║██╔═══██╗██╔══██╗██║ ██╔╝██╔════╝██╔══██╗
██╔████╔██║█████╗  █████╗     ██║   ██████╔╝█████╗  ██║     ███████║ ╚████╔╝     ██║ █╗ ██║██║   ██║██████╔╝█████╔╝ █████╗  ██████╔╝
██║╚██╔╝██║██╔══╝  ██╔══╝     ██║   ██╔══██╗██╔══╝  ██║     ██╔══██║  ╚██╔╝      ██║███╗██║██║   ██║██╔══██╗██╔═██╗ ██╔══╝  ██╔══██╗
██║ ╚═╝ ██║███████╗███████╗   ██║   ██║  ██║███████╗███████╗██║  ██║   ██║       ╚███╔███╔╝╚██████╔╝██║  ██║██║  ██╗███████╗██║  ██║
╚═╝     ╚═╝╚══════╝╚══════╝   ╚═╝   ╚═╝  ╚═╝╚══════╝╚══════╝╚═╝  ╚═╝   ╚═╝        ╚══╝╚══╝  ╚═════╝ ╚═╝  ╚═╝╚═╝  ╚═╝╚══════╝╚═╝  ╚═╝
`
