// cmd/underwriting-agent/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"auto-uw-agent/internal/agent"
	"auto-uw-agent/internal/api"
	awsclients "auto-uw-agent/internal/common/aws"
	"auto-uw-agent/internal/common/camunda"
	"auto-uw-agent/internal/common/config"
	"auto-uw-agent/internal/common/database"
	"auto-uw-agent/internal/common/logger"
	"auto-uw-agent/internal/common/observability"
	"auto-uw-agent/internal/common/random"
	"auto-uw-agent/internal/models"
	"auto-uw-agent/internal/notification"
	"auto-uw-agent/internal/search"
	"auto-uw-agent/internal/store"
	"auto-uw-agent/internal/underwriting"
	"auto-uw-agent/pkg/registry"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

type closer func() error

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("starting underwriting agent",
		zap.String("environment", cfg.App.Environment),
		zap.String("store", cfg.Store.Backend),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown(context.Background())

	ctx := context.Background()
	var closers []closer
	readiness := []api.Option{}

	// --- Store ---
	slot, check, closeSlot := openSlot(ctx, cfg, zapLog)
	if closeSlot != nil {
		closers = append(closers, closeSlot)
	}
	if check != nil {
		readiness = append(readiness, api.WithReadinessCheck("store", check))
	}

	storeOpts := []store.Option{}
	if cfg.Store.SeedExamples {
		storeOpts = append(storeOpts, store.WithSeed(store.ExampleSubmissions))
	}

	// --- Search ---
	var indexer *search.Indexer
	if cfg.Search.Enabled {
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			zapLog.Fatal("elasticsearch client init failed", zap.Error(err))
		}
		indexer = search.NewIndexer(es.Client, cfg.Search.Index, log)
		if err := retryWithBackoff(func() error { return indexer.EnsureIndex(ctx) }, 5, 2*time.Second, zapLog, "Search index setup"); err != nil {
			zapLog.Fatal("search index unavailable", zap.Error(err))
		}
		storeOpts = append(storeOpts, store.WithWriteHook(indexer.Hook()))
		readiness = append(readiness, api.WithReadinessCheck("elasticsearch", es.Ping))
	}

	st := store.New(slot, log, storeOpts...)

	// --- Pipeline ---
	seed := cfg.Pipeline.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := random.New(seed)
	pipeline := agent.NewPipeline(st, agent.DefaultAgents(cfg.Pipeline, rng, log), log,
		agent.WithDelay(config.GetDuration(cfg.Pipeline.MinDelayMs), config.GetDuration(cfg.Pipeline.MaxDelayMs), rng),
		agent.WithObservability(obs),
	)
	manager := agent.NewManager(pipeline)

	// --- Notifications ---
	svcOpts := []underwriting.Option{}
	if indexer != nil {
		svcOpts = append(svcOpts, underwriting.WithSearcher(indexer))
	}
	if cfg.Notifications.Email.Enabled || cfg.Notifications.SMS.Enabled {
		clients, err := awsclients.NewClients(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("AWS client init failed", zap.Error(err))
		}
		notifier := notification.NewNotifier(notification.Config{
			EmailEnabled:      cfg.Notifications.Email.Enabled,
			SMSEnabled:        cfg.Notifications.SMS.Enabled,
			FromEmail:         cfg.Notifications.Email.FromEmail,
			PriorityThreshold: cfg.Notifications.SMS.PriorityThreshold,
		}, clients.SES, clients.SNS, log)
		svcOpts = append(svcOpts, underwriting.WithNotifier(notifier))
	}
	svc := underwriting.NewService(st, manager, log, svcOpts...)

	// --- Agent catalog ---
	reg, err := registry.LoadOrDefault(cfg.Registry.Path)
	if err != nil {
		zapLog.Fatal("agent registry load failed", zap.Error(err))
	}
	if err := reg.Validate(stageIDs()); err != nil {
		zapLog.Fatal("agent registry invalid", zap.Error(err))
	}

	// --- Zeebe stage workers ---
	var workers []*camunda.Worker
	if cfg.Camunda.Enabled {
		var client *camunda.Client
		err := retryWithBackoff(func() error {
			var err error
			client, err = camunda.NewClient(camunda.ClientConfigFrom(cfg.Camunda))
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("Zeebe client init failed", zap.Error(err))
		}
		closers = append(closers, client.Close)
		readiness = append(readiness, api.WithReadinessCheck("zeebe", client.HealthCheck))

		for _, a := range pipeline.Agents() {
			taskType := agent.TaskTypes[a.Stage()]
			wcfg := config.GetWorkerConfig(cfg, taskType)
			handler := agent.NewStageJobHandler(pipeline, a, config.GetDuration(wcfg.Timeout), log)
			if w := camunda.StartWorker(client.Zeebe(), taskType, wcfg, handler, log); w != nil {
				workers = append(workers, w)
			}
		}
		zapLog.Info("stage workers registered", zap.Int("count", len(workers)))
	}

	// --- HTTP ---
	handler := api.NewHandler(svc, reg, log, readiness...)
	server := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		zapLog.Info("API server listening", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("API server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("API server shutdown failed", zap.Error(err))
	}
	for _, w := range workers {
		w.Stop()
	}
	if err := manager.Shutdown(shutdownCtx); err != nil {
		zapLog.Warn("pipeline runs still in flight at shutdown", zap.Error(err))
	}
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			zapLog.Error("close failed", zap.Error(err))
		}
	}

	zapLog.Info("Underwriting agent stopped gracefully")
}

// openSlot connects the configured store backend.
func openSlot(ctx context.Context, cfg *config.Config, zapLog *zap.Logger) (store.Slot, api.ReadinessCheck, closer) {
	switch cfg.Store.Backend {
	case config.StoreBackendRedis:
		rdb := database.NewRedis(cfg.Database.Redis)
		err := retryWithBackoff(func() error { return rdb.Ping(ctx) }, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("Redis unavailable", zap.Error(err))
		}
		return store.NewRedisSlot(rdb.Client, cfg.Store.Key), rdb.Ping, rdb.Close

	case config.StoreBackendPostgres:
		var pg *database.PostgresClient
		err := retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			if err = pg.Ping(ctx); err != nil {
				pg.Close()
			}
			return err
		}, 10, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("PostgreSQL unavailable", zap.Error(err))
		}
		slot := store.NewPostgresSlot(pg.DB, cfg.Store.Key)
		if err := slot.EnsureSchema(ctx); err != nil {
			zapLog.Fatal("PostgreSQL schema setup failed", zap.Error(err))
		}
		return slot, pg.Ping, pg.Close

	default:
		zapLog.Warn("using in-memory store, submissions are lost on restart")
		return store.NewMemorySlot(), nil, nil
	}
}

func stageIDs() []string {
	ids := make([]string, len(models.StageNames))
	for i, s := range models.StageNames {
		ids[i] = string(s)
	}
	return ids
}
