package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/korzhov-lab/microscan/internal/bootstrap"
	"github.com/korzhov-lab/microscan/internal/config"
	"github.com/korzhov-lab/microscan/internal/observability/logging"
	"github.com/korzhov-lab/microscan/internal/observability/metrics"
)

const processTimeout = 5 * time.Minute

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("microscan-worker", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics("microscan-worker")

	app, err := bootstrap.New(ctx, cfg, logger, workerMetrics)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: metricsHandler(workerMetrics),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeDocumentUploaded(ctx, func(handlerCtx context.Context, documentID string) error {
		return handleDocument(handlerCtx, app, workerMetrics, documentID)
	})
	if err != nil {
		logger.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}

func handleDocument(ctx context.Context, app *bootstrap.App, m *metrics.WorkerMetrics, documentID string) error {
	processCtx, cancel := context.WithTimeout(ctx, processTimeout)
	defer cancel()

	if doc, err := app.Repo.GetByID(processCtx, documentID); err == nil {
		m.ObserveQueueLag(time.Since(doc.UpdatedAt))
	}

	m.StartDocument()
	start := time.Now()
	err := app.ProcessUC.ProcessByID(processCtx, documentID)
	m.FinishDocument(time.Since(start), err)

	if err == nil {
		records := app.History.Records(processCtx)
		m.SetHistoryDepth(len(records))
		if len(records) > 0 {
			m.ObserveEntities(records[0].Summary.OrganismCount)
		}
	}
	return err
}

func metricsHandler(m *metrics.WorkerMetrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return mux
}
