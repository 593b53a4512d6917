package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/reframe/internal/ai"
	"github.com/xxxsen/reframe/internal/config"
	"github.com/xxxsen/reframe/internal/db"
	"github.com/xxxsen/reframe/internal/filestore"
	"github.com/xxxsen/reframe/internal/repo"
	"github.com/xxxsen/reframe/internal/service"
)

type app struct {
	cfg        *config.Config
	db         *sql.DB
	store      filestore.Store
	feedback   *service.FeedbackService
	registry   *service.RegistryService
	classifier *service.ClassifierService
	retrain    *service.RetrainService
}

func loadConfig(configPath string) (*config.Config, error) {
	if configPath == "" {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))
	return cfg, nil
}

func newApp(configPath string) (*app, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	conn, err := db.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.ApplyMigrations(conn, cfg.Database.Driver); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	store, err := filestore.New(cfg.ArtifactStore)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("init artifact store: %w", err)
	}

	feedbackRepo := repo.NewFeedbackRepo(conn, cfg.Database.Driver)
	versionRepo := repo.NewModelVersionRepo(conn, cfg.Database.Driver)
	return &app{
		cfg:      cfg,
		db:       conn,
		store:    store,
		feedback: service.NewFeedbackService(feedbackRepo, cfg.Limits.MaxFeedbackChars),
		registry: service.NewRegistryService(conn, versionRepo),
		classifier: service.NewClassifierService(store, service.ClassifierOptions{
			ArtifactKey: cfg.Model.ArtifactKey,
			MaxChars:    cfg.Limits.MaxPredictChars,
			CacheSize:   cfg.PredictCache.Size,
			CacheTTL:    time.Duration(cfg.PredictCache.TTLSeconds) * time.Second,
		}),
		retrain: service.NewRetrainService(conn, feedbackRepo, versionRepo, store, cfg.Model.ArtifactKey, cfg.Training),
	}, nil
}

func (a *app) Close() {
	_ = a.db.Close()
}

// newGenerator builds the primary provider followed by the configured
// fallbacks.
func newGenerator(cfg config.AIConfig) (ai.IGenerator, error) {
	entries := make([]ai.GeneratorEntry, 0, 1+len(cfg.Fallbacks))
	for _, item := range append([]config.AIConfig{cfg}, cfg.Fallbacks...) {
		if item.Provider == "" {
			continue
		}
		provider, err := ai.NewProvider(item.Provider, item.Data)
		if err != nil {
			return nil, fmt.Errorf("init ai provider %s: %w", item.Provider, err)
		}
		entries = append(entries, ai.GeneratorEntry{
			Name:      provider.Name(),
			Generator: ai.NewGenerator(provider, item.Model),
		})
	}
	return ai.NewGroupGenerator(entries), nil
}
