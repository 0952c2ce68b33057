package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BearBump/ImportBox/config"
	"github.com/BearBump/ImportBox/internal/api/imports_api"
	"github.com/BearBump/ImportBox/internal/broker/kafka"
	"github.com/BearBump/ImportBox/internal/cache"
	"github.com/BearBump/ImportBox/internal/cache/rediscache"
	"github.com/BearBump/ImportBox/internal/services/imports"
	"github.com/BearBump/ImportBox/internal/storage/memimports"
	"github.com/BearBump/ImportBox/internal/storage/pgimports"
	"github.com/joho/godotenv"
)

type importAPIApp struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   importAPIOpts

	api      *imports_api.ImportsAPI
	svc      *imports.Service
	consumer kafkaConsumer

	closers []func()
}

func mustBootstrapImportAPI() *importAPIApp {
	// .env is optional; real env vars win.
	_ = godotenv.Load()

	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}
	swaggerPath := os.Getenv("swaggerPath")
	if swaggerPath == "" {
		panic("swaggerPath env var is required")
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("config parse failed: %v", err))
	}

	app := &importAPIApp{}

	httpAddr := cfg.ImportBox.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	consumerGroup := cfg.ImportBox.KafkaConsumerGroup
	if consumerGroup == "" {
		consumerGroup = "import-api"
	}
	changedTopic := cfg.Kafka.RecordChangedTopicName
	if changedTopic == "" {
		changedTopic = "import.record.changed"
	}
	statusTopic := cfg.Kafka.StatusRequestedTopicName
	if statusTopic == "" {
		statusTopic = "import.status.requested"
	}
	cacheTTL := time.Duration(cfg.ImportBox.RecordCacheTTLSeconds) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	writeLimit := int64(cfg.ImportBox.WriteRateLimitPerMinute)
	if writeLimit <= 0 {
		writeLimit = 120
	}

	var repo imports.Repository
	switch cfg.ImportBox.Storage {
	case "", "postgres":
		st := mustOpenPostgresWithRetry(cfg.Database.ConnString(), 60*time.Second)
		app.closers = append(app.closers, st.Close)
		repo = st
	case "memory":
		slog.Warn("using in-memory storage, records are lost on restart")
		repo = memimports.New()
	default:
		panic(fmt.Sprintf("unknown storage %q", cfg.ImportBox.Storage))
	}

	var rc cache.BytesCache
	var rl *rediscache.RateLimiter
	if cfg.Redis.Enabled() {
		redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
		c := rediscache.New(redisAddr, "importbox")
		rl = rediscache.NewRateLimiter(redisAddr)
		app.closers = append(app.closers, func() { _ = c.Close() }, func() { _ = rl.Close() })
		rc = c
	}

	svc := imports.New(repo, rc, cacheTTL)
	api := imports_api.New(svc)
	if rl != nil {
		api.WithWriteRateLimit(rl, writeLimit)
	}

	if cfg.Kafka.Enabled() {
		brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
		producer := kafka.NewProducer(brokers)
		consumer := kafka.NewConsumer(brokers, statusTopic, consumerGroup)
		app.closers = append(app.closers, func() { _ = consumer.Close() }, func() { _ = producer.Close() })
		svc.WithPublisher(producer, changedTopic)
		app.consumer = consumer
	}

	app.ctx, app.cancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	app.opts = importAPIOpts{
		httpAddr:      httpAddr,
		swaggerPath:   swaggerPath,
		statusTopic:   statusTopic,
		consumerGroup: consumerGroup,
	}
	app.api = api
	app.svc = svc
	return app
}

func mustOpenPostgresWithRetry(connString string, wait time.Duration) *pgimports.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgimports.New(connString)
		if err == nil {
			return st
		}
		lastErr = err
		slog.Warn("postgres not ready, retrying", "err", err)
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}

// Close releases resources in reverse order of acquisition.
func (a *importAPIApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *importAPIApp) Run() error {
	return runImportAPI(a.ctx, a.opts, a.api, a.svc, a.consumer)
}
