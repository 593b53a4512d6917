package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port          int                 `json:"port"`
	Database      DatabaseConfig      `json:"database"`
	LogConfig     logger.LogConfig    `json:"log_config"`
	ArtifactStore ArtifactStoreConfig `json:"artifact_store"`
	Model         ModelConfig         `json:"model"`
	Limits        LimitsConfig        `json:"limits"`
	Feedback      FeedbackConfig      `json:"feedback"`
	CORSAllowlist []string            `json:"cors_allowlist"`
	RateLimitMS   int64               `json:"rate_limit_ms"`
	PredictCache  PredictCacheConfig  `json:"predict_cache"`
	Training      TrainingConfig      `json:"training"`
	AI            AIConfig            `json:"ai"`
}

type DatabaseConfig struct {
	Driver string `json:"driver"`
	DSN    string `json:"dsn"`
}

type ArtifactStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type ModelConfig struct {
	ArtifactKey        string `json:"artifact_key"`
	ReloadAfterRetrain bool   `json:"reload_after_retrain"`
}

type LimitsConfig struct {
	MaxPredictChars  int `json:"max_predict_chars"`
	MaxFeedbackChars int `json:"max_feedback_chars"`
}

type FeedbackConfig struct {
	APIKey     string `json:"api_key"`
	APIKeyHash string `json:"api_key_hash"`
}

type PredictCacheConfig struct {
	Size       int   `json:"size"`
	TTLSeconds int64 `json:"ttl_seconds"`
}

type TrainingConfig struct {
	BaseDataset        string  `json:"base_dataset"`
	AugmentedDataset   string  `json:"augmented_dataset"`
	TextColumn         string  `json:"text_column"`
	SpanColumn         string  `json:"span_column"`
	LabelColumn        string  `json:"label_column"`
	NoDistortionLabel  string  `json:"no_distortion_label"`
	NoDistortionTarget int     `json:"no_distortion_target"`
	Seed               int64   `json:"seed"`
	TestRatio          float64 `json:"test_ratio"`
	NgramMin           int     `json:"ngram_min"`
	NgramMax           int     `json:"ngram_max"`
	MaxFeatures        int     `json:"max_features"`
	MinDF              int     `json:"min_df"`
	MaxDF              float64 `json:"max_df"`
	C                  float64 `json:"c"`
	MaxIter            int     `json:"max_iter"`
	KeepStopWords      bool    `json:"keep_stop_words"`
	Cron               string  `json:"cron"`
	TuneFolds          int     `json:"tune_folds"`
	TuneWorkers        int     `json:"tune_workers"`
}

type AIConfig struct {
	Provider       string      `json:"provider"`
	Model          string      `json:"model"`
	Data           interface{} `json:"data"`
	TimeoutSeconds int64       `json:"timeout_seconds"`
	// Fallbacks are tried in order when the primary provider fails.
	Fallbacks []AIConfig `json:"fallbacks"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() error {
	if cfg.Port == 0 {
		cfg.Port = 5000
	}
	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	switch cfg.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres")
	}
	if cfg.Database.DSN == "" {
		if cfg.Database.Driver != "sqlite" {
			return fmt.Errorf("database.dsn is required")
		}
		cfg.Database.DSN = "feedback.db"
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.ArtifactStore.Type == "" {
		cfg.ArtifactStore.Type = "local"
	}
	if cfg.ArtifactStore.Type == "local" && cfg.ArtifactStore.Data == nil {
		cfg.ArtifactStore.Data = map[string]interface{}{"dir": "models"}
	}
	if cfg.Model.ArtifactKey == "" {
		cfg.Model.ArtifactKey = "distortion_model.json.gz"
	}
	if cfg.Limits.MaxPredictChars <= 0 {
		cfg.Limits.MaxPredictChars = 5000
	}
	if cfg.Limits.MaxFeedbackChars <= 0 {
		cfg.Limits.MaxFeedbackChars = 500
	}
	if cfg.PredictCache.Size < 0 {
		cfg.PredictCache.Size = 0
	}
	cfg.Training.ApplyDefaults()
	return cfg.Training.Validate()
}

func (t *TrainingConfig) ApplyDefaults() {
	if t.TextColumn == "" {
		t.TextColumn = "Patient Question"
	}
	if t.SpanColumn == "" {
		t.SpanColumn = "Distorted part"
	}
	if t.LabelColumn == "" {
		t.LabelColumn = "Dominant Distortion"
	}
	if t.NoDistortionLabel == "" {
		t.NoDistortionLabel = "No Distortion"
	}
	if t.NoDistortionTarget == 0 {
		t.NoDistortionTarget = 400
	}
	if t.Seed == 0 {
		t.Seed = 42
	}
	if t.TestRatio == 0 {
		t.TestRatio = 0.2
	}
	if t.NgramMin == 0 {
		t.NgramMin = 1
	}
	if t.NgramMax == 0 {
		t.NgramMax = 2
	}
	if t.MaxFeatures == 0 {
		t.MaxFeatures = 5000
	}
	if t.MinDF == 0 {
		t.MinDF = 2
	}
	if t.MaxDF == 0 {
		t.MaxDF = 0.8
	}
	if t.C == 0 {
		t.C = 1.0
	}
	if t.MaxIter == 0 {
		t.MaxIter = 1000
	}
	if t.TuneFolds == 0 {
		t.TuneFolds = 5
	}
	if t.TuneWorkers == 0 {
		t.TuneWorkers = 4
	}
}

func (t *TrainingConfig) Validate() error {
	if t.TestRatio <= 0 || t.TestRatio >= 1 {
		return fmt.Errorf("training.test_ratio must be in (0, 1)")
	}
	if t.NgramMin < 1 || t.NgramMax < t.NgramMin {
		return fmt.Errorf("training.ngram_min/ngram_max are invalid")
	}
	if t.MaxDF <= 0 || t.MaxDF > 1 {
		return fmt.Errorf("training.max_df must be in (0, 1]")
	}
	if t.C <= 0 {
		return fmt.Errorf("training.c must be positive")
	}
	if t.NoDistortionTarget < 0 {
		return fmt.Errorf("training.no_distortion_target must not be negative")
	}
	return nil
}
