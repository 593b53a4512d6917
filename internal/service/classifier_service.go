package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/reframe/internal/filestore"
	"github.com/xxxsen/reframe/internal/model"
	appErr "github.com/xxxsen/reframe/internal/pkg/errors"
	"github.com/xxxsen/reframe/internal/segment"
	"github.com/xxxsen/reframe/internal/textclf"
)

// artifactHandle is the immutable unit requests hold on to; a reload swaps
// the pointer and never mutates a published handle.
type artifactHandle struct {
	pipeline   *textclf.Pipeline
	generation uint64
	loadedAt   int64
}

type cachedPrediction struct {
	label      string
	confidence float64
}

type ClassifierOptions struct {
	ArtifactKey string
	MaxChars    int
	CacheSize   int
	CacheTTL    time.Duration
}

type ClassifierService struct {
	store    filestore.Store
	key      string
	maxChars int

	current    atomic.Pointer[artifactHandle]
	reloadMu   sync.Mutex
	generation uint64
	cache      *expirable.LRU[string, cachedPrediction]
}

func NewClassifierService(store filestore.Store, opts ClassifierOptions) *ClassifierService {
	if opts.MaxChars <= 0 {
		opts.MaxChars = 5000
	}
	s := &ClassifierService{
		store:    store,
		key:      opts.ArtifactKey,
		maxChars: opts.MaxChars,
	}
	if opts.CacheSize > 0 && opts.CacheTTL > 0 {
		s.cache = expirable.NewLRU[string, cachedPrediction](opts.CacheSize, nil, opts.CacheTTL)
	}
	return s
}

// Load reads the artifact and publishes it. Calls are serialized; requests
// in flight keep the handle they started with.
func (s *ClassifierService) Load(ctx context.Context) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	logger := logutil.GetLogger(ctx).With(zap.String("artifact", s.key))
	rc, err := s.store.Open(ctx, s.key)
	if err != nil {
		logger.Error("open artifact failed", zap.Error(err))
		return fmt.Errorf("%w: %v", appErr.ErrModelUnavailable, err)
	}
	defer rc.Close()
	pipeline, err := textclf.Decode(rc)
	if err != nil {
		logger.Error("decode artifact failed", zap.Error(err))
		return fmt.Errorf("%w: %v", appErr.ErrModelUnavailable, err)
	}
	s.generation++
	s.current.Store(&artifactHandle{
		pipeline:   pipeline,
		generation: s.generation,
		loadedAt:   time.Now().Unix(),
	})
	logger.Info("artifact loaded",
		zap.Uint64("generation", s.generation),
		zap.Strings("classes", pipeline.Classes()),
		zap.Int("features", pipeline.Vectorizer.Dim()),
	)
	return nil
}

func (s *ClassifierService) Reload(ctx context.Context) error {
	return s.Load(ctx)
}

func (s *ClassifierService) Loaded() bool {
	return s.current.Load() != nil
}

// Predict segments text and classifies every sentence independently.
// Input is validated before the artifact is touched.
func (s *ClassifierService) Predict(ctx context.Context, text string) ([]model.PredictionResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text is required", appErr.ErrInvalid)
	}
	if utf8.RuneCountInString(text) > s.maxChars {
		return nil, fmt.Errorf("%w: text exceeds %d characters", appErr.ErrTooLarge, s.maxChars)
	}
	handle := s.current.Load()
	if handle == nil {
		return nil, appErr.ErrModelUnavailable
	}
	sentences := segment.Split(text)
	results := make([]model.PredictionResult, 0, len(sentences))
	for _, sentence := range sentences {
		label, confidence := s.predictSentence(handle, sentence)
		results = append(results, model.PredictionResult{
			Input:      sentence,
			Label:      label,
			Confidence: confidence,
		})
	}
	logutil.GetLogger(ctx).Debug("prediction served", zap.Int("sentences", len(results)), zap.Uint64("generation", handle.generation))
	return results, nil
}

func (s *ClassifierService) predictSentence(handle *artifactHandle, sentence string) (string, float64) {
	cacheKey := strconv.FormatUint(handle.generation, 10) + "|" + sentence
	if s.cache != nil {
		if hit, ok := s.cache.Get(cacheKey); ok {
			return hit.label, hit.confidence
		}
	}
	label, probs := handle.pipeline.Predict(sentence)
	var mass float64
	for i, class := range handle.pipeline.Classifier.Classes {
		if class == label {
			mass = probs[i]
			break
		}
	}
	confidence := roundConfidence(mass)
	if s.cache != nil {
		s.cache.Add(cacheKey, cachedPrediction{label: label, confidence: confidence})
	}
	return label, confidence
}

func (s *ClassifierService) Info() (*model.ModelInfo, error) {
	handle := s.current.Load()
	if handle == nil {
		return nil, appErr.ErrModelUnavailable
	}
	return &model.ModelInfo{
		ArtifactKey: s.key,
		Classes:     handle.pipeline.Classes(),
		Features:    handle.pipeline.Vectorizer.Dim(),
		TrainedAt:   handle.pipeline.TrainedAt,
		LoadedAt:    handle.loadedAt,
		Generation:  handle.generation,
	}, nil
}

// roundConfidence rounds to 3 decimals and clamps to [0, 1].
func roundConfidence(v float64) float64 {
	r := math.Round(v*1000) / 1000
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}
