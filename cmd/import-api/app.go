package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/BearBump/ImportBox/internal/api/imports_api"
	"github.com/BearBump/ImportBox/internal/broker/messages"
	"github.com/BearBump/ImportBox/internal/services/imports"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	httpSwagger "github.com/swaggo/http-swagger"
)

type importAPIOpts struct {
	httpAddr    string
	swaggerPath string

	statusTopic   string
	consumerGroup string

	onListen func(httpAddr string)
}

type kafkaConsumer interface {
	Consume(ctx context.Context, handler func(key, value []byte) error) error
}

// runImportAPI serves HTTP until ctx is cancelled or the status consumer
// stops. consumer may be nil when no broker is configured.
func runImportAPI(ctx context.Context, opts importAPIOpts, api *imports_api.ImportsAPI, svc *imports.Service, consumer kafkaConsumer) error {
	if opts.swaggerPath == "" {
		return fmt.Errorf("swaggerPath env var is required")
	}
	if _, err := os.Stat(opts.swaggerPath); os.IsNotExist(err) {
		return fmt.Errorf("swagger file not found: %s", opts.swaggerPath)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	httpErr := make(chan error, 1)
	go func() {
		httpErr <- runHTTPServer(ctx, lis, newRouter(api, opts.swaggerPath))
	}()

	// nil-канал: без брокера этот case никогда не сработает
	var consumerErr chan error
	if consumer != nil {
		consumerErr = make(chan error, 1)
		go func() {
			slog.Info("kafka consumer started", "topic", opts.statusTopic, "group", opts.consumerGroup)
			consumerErr <- consumer.Consume(ctx, statusRequestHandler(ctx, svc))
		}()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-httpErr:
		return err
	case err := <-consumerErr:
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Error("kafka consumer stopped", "topic", opts.statusTopic, "err", err)
		if err == nil {
			err = fmt.Errorf("kafka consumer on %s exited", opts.statusTopic)
		}
		return errors.Wrap(err, "status consumer")
	}
}

// statusRequestHandler skips payloads that don't decode so one bad producer
// can't wedge the partition.
func statusRequestHandler(ctx context.Context, svc *imports.Service) func(key, value []byte) error {
	return func(_key, value []byte) error {
		var m messages.StatusUpdateRequested
		if err := json.Unmarshal(value, &m); err != nil {
			slog.Warn("malformed status request skipped", "err", err)
			return nil
		}
		return svc.ApplyStatusRequest(ctx, m)
	}
}

func newRouter(api *imports_api.ImportsAPI, swaggerPath string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/swagger.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		http.ServeFile(w, r, swaggerPath)
	})

	swaggerURL := "/swagger.json"
	if fi, err := os.Stat(swaggerPath); err == nil {
		swaggerURL = fmt.Sprintf("/swagger.json?v=%d", fi.ModTime().Unix())
	}
	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL(swaggerURL)))

	api.Register(r)
	return r
}

func runHTTPServer(ctx context.Context, lis net.Listener, h http.Handler) error {
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("HTTP server listening", "addr", lis.Addr().String())
	if err := srv.Serve(lis); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
