package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carelens-ai/analytics/pkg/analysis"
	"github.com/carelens-ai/analytics/pkg/common/config"
	"github.com/carelens-ai/analytics/pkg/common/database"
	"github.com/carelens-ai/analytics/pkg/common/kafka"
	"github.com/carelens-ai/analytics/pkg/common/logger"
	"github.com/carelens-ai/analytics/pkg/common/models"
	"github.com/carelens-ai/analytics/pkg/observability/metrics"
	"github.com/carelens-ai/analytics/pkg/report"
	"github.com/gorilla/mux"
)

func main() {
	logger.Init()
	cfg := config.Load()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}

	repo := analysis.NewRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate run tables")
	}
	warehouse := report.NewWarehouseSink(db)
	if err := warehouse.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate warehouse tables")
	}

	var cache *report.Cache
	if cfg.CacheEnabled {
		cache = report.NewCache(database.GetRedis(), cfg.CacheTTL)
	}

	handler := analysis.NewHandler(repo, warehouse, cache)

	router := mux.NewRouter()
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)

	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		if run, err := repo.Latest(r.Context()); err == nil {
			duration := time.Duration(0)
			if run.StartedAt != nil && run.CompletedAt != nil {
				duration = run.CompletedAt.Sub(*run.StartedAt)
			}
			metrics.SetLatestRun(run.PatientCount, run.ConditionCount, run.ClinicalCount, duration)
		}
		metrics.WritePrometheus(w)
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	handler.Register(api)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.EventsEnabled && cache != nil {
		consumer := kafka.NewConsumer(cfg.AnalysisTopic, cfg.KafkaGroupID)
		defer consumer.Close()
		go func() {
			err := consumer.Consume(ctx, func(ctx context.Context, event models.Event) error {
				if event.Type != "analysis.completed" {
					return nil
				}
				runID, _ := event.Data["run_id"].(string)
				if runID == "" {
					return nil
				}
				return warmCache(ctx, warehouse, cache, runID)
			})
			if err != nil && err != context.Canceled {
				logger.Log.WithError(err).Error("event consumer stopped")
			}
		}()
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		}).Info("Report Server started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Report Server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("server forced to shutdown")
	}

	logger.Log.Info("Report Server stopped")
}

// warmCache copies a completed run's outputs from the warehouse into the hot
// cache so the first reads after a run skip Postgres.
func warmCache(ctx context.Context, warehouse *report.WarehouseSink, cache *report.Cache, runID string) error {
	stats, err := warehouse.GetSummary(ctx, runID)
	if err != nil {
		return err
	}
	summary := models.SummaryStats{
		PatientCount: asInt(stats["patients_count"]),
		MeanAge:      asFloat(stats["mean_age"]),
		MedianAge:    asFloat(stats["median_age"]),
		MinAge:       asFloat(stats["min_age"]),
		MaxAge:       asFloat(stats["max_age"]),
	}
	if err := cache.WriteSummary(ctx, runID, summary); err != nil {
		return err
	}

	tables, err := warehouse.ListTables(ctx, runID)
	if err != nil {
		return err
	}
	for _, table := range tables {
		if err := cache.WriteTable(ctx, runID, table); err != nil {
			return err
		}
	}

	logger.Log.WithField("run_id", runID).Info("Cache warmed for completed run")
	return nil
}

func asInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func asFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}
