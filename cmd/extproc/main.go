package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	extprocv3 "github.com/envoyproxy/go-control-plane/envoy/service/ext_proc/v3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"

	"github.com/moesif/moesif-extproc-go/internal/collector"
	"github.com/moesif/moesif-extproc-go/internal/config"
	"github.com/moesif/moesif-extproc-go/internal/dispatcher"
	"github.com/moesif/moesif-extproc-go/internal/extproc"
	"github.com/moesif/moesif-extproc-go/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("moesif-extproc"))
	logging.SetDefault(logger)

	// Validation logs and substitutes defaults; it never aborts. The data
	// path must come up even on a degraded configuration.
	cfg.Validate()

	slog.Info("starting ext_proc sidecar",
		slog.String("listen", cfg.Server.Listen),
		slog.String("collector", cfg.Collector.BaseURL),
		slog.Int("batch_max_size", cfg.Batch.MaxSize),
		slog.Duration("batch_max_wait", cfg.Batch.MaxWait),
		slog.Int("queue_capacity", cfg.Queue.Capacity),
		slog.String("log_level", cfg.Logging.Level),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dispatch := dispatcher.New(cfg.Collector.BaseURL, cfg.ApplicationID, cfg.Collector.Timeout, logger)
	events := collector.New(cfg, dispatch, logger)

	// The consumer is started here, explicitly, not as a constructor side
	// effect; it runs for the life of the process.
	go events.Run(ctx)

	svc := extproc.NewService(cfg, events, logger)

	lis, err := net.Listen("tcp", cfg.Server.Listen)
	if err != nil {
		log.Fatalf("Failed to listen on %s: %v", cfg.Server.Listen, err)
	}

	grpcServer := grpc.NewServer()
	extprocv3.RegisterExternalProcessorServer(grpcServer, svc)

	// Metrics and health on a separate listener so the gateway data path
	// and operational surface never share a port.
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	metricsSrv := &http.Server{
		Addr:    cfg.Server.MetricsListen,
		Handler: mux,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server error", logging.Error(err))
		}
	}()

	go func() {
		slog.Info("ext_proc server listening", slog.String("addr", cfg.Server.Listen))
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatalf("gRPC server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")

	// No delivery drain on shutdown: the current batch and anything still
	// queued are dropped. Streams are cut immediately so the gateway fails
	// over instead of waiting on us.
	grpcServer.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("metrics server shutdown", logging.Error(err))
	}

	slog.Info("server stopped")
}
