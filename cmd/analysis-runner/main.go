package main

import (
	"context"

	"github.com/carelens-ai/analytics/pkg/analysis"
	"github.com/carelens-ai/analytics/pkg/classifier"
	"github.com/carelens-ai/analytics/pkg/common/config"
	"github.com/carelens-ai/analytics/pkg/common/database"
	"github.com/carelens-ai/analytics/pkg/common/kafka"
	"github.com/carelens-ai/analytics/pkg/common/logger"
	"github.com/carelens-ai/analytics/pkg/normalizer"
	"github.com/carelens-ai/analytics/pkg/report"
	"github.com/carelens-ai/analytics/pkg/source"
)

func main() {
	logger.Init()
	cfg := config.Load()

	asOf, err := cfg.ResolveAnalysisDate()
	if err != nil {
		logger.Log.WithError(err).Fatal("invalid analysis date")
	}

	rules, err := classifier.LoadRules(cfg.ClassifierRulesPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to load classifier rules")
	}
	clf, err := classifier.New(rules)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to build classifier")
	}

	buckets, err := normalizer.LoadBuckets(cfg.AgeBucketsPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to load age buckets")
	}

	fileSink, err := report.NewFileSink(cfg.OutputDir)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to prepare output directory")
	}
	sinks := report.Multi{fileSink}

	opts := []analysis.Option{
		analysis.WithAsOf(asOf),
		analysis.WithBuckets(buckets),
		analysis.WithTopN(cfg.TopN),
	}

	if cfg.WarehouseEnabled {
		db, err := database.GetPostgres()
		if err != nil {
			logger.Log.WithError(err).Fatal("failed to connect to postgres")
		}
		warehouse := report.NewWarehouseSink(db)
		if err := warehouse.AutoMigrate(); err != nil {
			logger.Log.WithError(err).Fatal("failed to migrate warehouse tables")
		}
		repo := analysis.NewRepository(db)
		if err := repo.AutoMigrate(); err != nil {
			logger.Log.WithError(err).Fatal("failed to migrate run tables")
		}
		sinks = append(sinks, warehouse)
		opts = append(opts, analysis.WithRepository(repo))
	}

	if cfg.CacheEnabled {
		sinks = append(sinks, report.NewCache(database.GetRedis(), cfg.CacheTTL))
	}

	if cfg.EventsEnabled {
		producer := kafka.NewProducer(cfg.AnalysisTopic)
		defer producer.Close()
		opts = append(opts, analysis.WithProducer(producer))
	}

	src := source.NewFileSource(cfg.PatientsCSV, cfg.ConditionsCSV)
	svc := analysis.NewService(src, clf, sinks, opts...)

	run, err := svc.Run(context.Background())
	if err != nil {
		logger.Log.WithError(err).Fatal("analysis run failed")
	}

	logger.Log.WithFields(map[string]interface{}{
		"run_id":          run.ID.String(),
		"patient_count":   run.PatientCount,
		"condition_count": run.ConditionCount,
		"clinical_count":  run.ClinicalCount,
		"output_dir":      cfg.OutputDir,
	}).Info("Analysis outputs written")
}
