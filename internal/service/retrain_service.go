package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/reframe/internal/config"
	"github.com/xxxsen/reframe/internal/corpus"
	"github.com/xxxsen/reframe/internal/filestore"
	"github.com/xxxsen/reframe/internal/model"
	"github.com/xxxsen/reframe/internal/pkg/dbutil"
	"github.com/xxxsen/reframe/internal/repo"
	"github.com/xxxsen/reframe/internal/textclf"
)

var ErrRetrainRunning = errors.New("retrain already running")

// Reloader is implemented by whatever serves the live artifact.
type Reloader interface {
	Reload(ctx context.Context) error
}

type RetrainResult struct {
	Version   *model.ModelVersion `json:"version"`
	Corpus    corpus.Stats        `json:"corpus"`
	Accuracy  float64             `json:"accuracy"`
	TrainSize int                 `json:"train_size"`
	TestSize  int                 `json:"test_size"`
	Consumed  int64               `json:"consumed"`
	Report    textclf.Report      `json:"report"`
}

type RetrainService struct {
	db          *sql.DB
	feedback    *repo.FeedbackRepo
	versions    *repo.ModelVersionRepo
	store       filestore.Store
	artifactKey string
	cfg         config.TrainingConfig

	mu       sync.Mutex
	reloader Reloader
}

func NewRetrainService(
	db *sql.DB,
	feedback *repo.FeedbackRepo,
	versions *repo.ModelVersionRepo,
	store filestore.Store,
	artifactKey string,
	cfg config.TrainingConfig,
) *RetrainService {
	return &RetrainService{
		db:          db,
		feedback:    feedback,
		versions:    versions,
		store:       store,
		artifactKey: artifactKey,
		cfg:         cfg,
	}
}

// SetReloader makes successful runs and promotions reload r.
func (s *RetrainService) SetReloader(r Reloader) {
	s.reloader = r
}

// Run executes one retraining pass: snapshot corrections, build the corpus,
// fit and evaluate, stage the artifact, then in one transaction archive it
// under the next version key, mark the snapshot ids consumed and record the
// version. The live key is replaced
// only after the transaction commits. Any failure before commit leaves the
// feedback table and the registry untouched.
func (s *RetrainService) Run(ctx context.Context, notes string) (*RetrainResult, error) {
	if !s.mu.TryLock() {
		return nil, ErrRetrainRunning
	}
	defer s.mu.Unlock()

	logger := logutil.GetLogger(ctx).With(zap.String("artifact", s.artifactKey))
	start := time.Now()

	base, augmented, err := s.loadDatasets()
	if err != nil {
		logger.Error("load datasets failed", zap.Error(err))
		return nil, err
	}
	snapshot, err := s.feedback.ListUnconsumedCorrections(ctx)
	if err != nil {
		return nil, storageErr(err)
	}
	c := corpus.Build(base, augmented, snapshot, s.corpusOptions())
	logger.Info("corpus built",
		zap.Int("rows", c.Len()),
		zap.Int("distorted", c.Stats.Distorted),
		zap.Int("no_distortion_pool", c.Stats.NoDistortionPool),
		zap.Int("no_distortion_kept", c.Stats.NoDistortionKept),
		zap.Int("augmented", c.Stats.Augmented),
		zap.Int("feedback", c.Stats.Feedback),
		zap.Int("dropped", c.Stats.Dropped),
	)

	trained, err := textclf.Train(c.X, c.Y, textclf.TrainOptions{
		Params:    s.params(),
		TestRatio: s.cfg.TestRatio,
		Seed:      s.cfg.Seed,
	})
	if err != nil {
		logger.Error("training failed", zap.Error(err))
		return nil, err
	}
	logger.Info("model evaluated",
		zap.Int("train_size", trained.TrainSize),
		zap.Int("test_size", trained.TestSize),
		zap.Float64("accuracy", trained.Accuracy),
		zap.String("status", trained.Pipeline.Classifier.Status),
	)
	logger.Info("classification report\n" + trained.Report.String())

	var artifact bytes.Buffer
	if err := trained.Pipeline.Encode(&artifact); err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(snapshot))
	for _, item := range snapshot {
		ids = append(ids, item.ID)
	}
	input := VersionInput{
		TrainingSampleCount: trained.TrainSize,
		Accuracy:            trained.Accuracy,
		Notes:               buildNotes(notes, c.Stats.Feedback),
	}
	if err := validateVersionInput(input); err != nil {
		return nil, err
	}

	// The upload runs outside the transaction; sqlite allows a single open
	// connection and feedback writes would queue behind it.
	staging := filestore.StagingKey(s.artifactKey)
	if err := s.store.Save(ctx, staging, bytes.NewReader(artifact.Bytes())); err != nil {
		logger.Error("stage artifact failed", zap.Error(err), zap.String("key", staging))
		return nil, storageErr(fmt.Errorf("stage artifact: %w", err))
	}

	result := &RetrainResult{
		Corpus:    c.Stats,
		Accuracy:  trained.Accuracy,
		TrainSize: trained.TrainSize,
		TestSize:  trained.TestSize,
		Report:    trained.Report,
	}
	err = dbutil.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		versions := s.versions.WithTx(tx)
		number, err := nextVersion(ctx, versions)
		if err != nil {
			return err
		}
		input.ArtifactKey = filestore.VersionedKey(s.artifactKey, number)
		if err := s.store.Copy(ctx, staging, input.ArtifactKey); err != nil {
			return fmt.Errorf("archive artifact: %w", err)
		}
		consumed, err := s.feedback.WithTx(tx).MarkConsumed(ctx, ids)
		if err != nil {
			return err
		}
		v, err := insertVersion(ctx, versions, number, input)
		if err != nil {
			return err
		}
		result.Consumed = consumed
		result.Version = v
		return nil
	})
	if err != nil {
		logger.Error("record version failed", zap.Error(err))
		return nil, storageErr(err)
	}
	logger.Info("version recorded",
		zap.Int("version", result.Version.VersionNumber),
		zap.String("versioned_artifact", result.Version.ArtifactKey),
		zap.Int64("consumed", result.Consumed),
	)

	if err := s.promote(ctx, result.Version.ArtifactKey); err != nil {
		return result, err
	}
	logger.Info("retrain finished", zap.Duration("duration", time.Since(start)))
	return result, nil
}

// Promote makes a recorded version the live artifact again.
func (s *RetrainService) Promote(ctx context.Context, version int) (*model.ModelVersion, error) {
	v, err := s.versions.GetByVersion(ctx, version)
	if err != nil {
		return nil, storageErr(err)
	}
	key := v.ArtifactKey
	if key == "" {
		key = filestore.VersionedKey(s.artifactKey, v.VersionNumber)
	}
	if err := s.promote(ctx, key); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *RetrainService) promote(ctx context.Context, versionedKey string) error {
	logger := logutil.GetLogger(ctx).With(zap.String("from", versionedKey), zap.String("to", s.artifactKey))
	if err := s.store.Copy(ctx, versionedKey, s.artifactKey); err != nil {
		logger.Error("promote artifact failed", zap.Error(err))
		return fmt.Errorf("promote artifact: %w", err)
	}
	logger.Info("artifact promoted")
	if s.reloader == nil {
		return nil
	}
	if err := s.reloader.Reload(ctx); err != nil {
		logger.Error("reload after promote failed", zap.Error(err))
		return err
	}
	return nil
}

// Tune grid-searches hyper-parameters on the training split of the current
// corpus. It reads feedback but never consumes it.
func (s *RetrainService) Tune(ctx context.Context, grid textclf.Grid) (*textclf.TuneResult, error) {
	base, augmented, err := s.loadDatasets()
	if err != nil {
		return nil, err
	}
	snapshot, err := s.feedback.ListUnconsumedCorrections(ctx)
	if err != nil {
		return nil, storageErr(err)
	}
	c := corpus.Build(base, augmented, snapshot, s.corpusOptions())
	trainIdx, _ := textclf.TrainTestSplit(c.Len(), s.cfg.TestRatio, s.cfg.Seed)
	x := make([]string, len(trainIdx))
	y := make([]string, len(trainIdx))
	for i, idx := range trainIdx {
		x[i], y[i] = c.X[idx], c.Y[idx]
	}
	logutil.GetLogger(ctx).Info("tuning started", zap.Int("rows", len(x)), zap.Int("folds", s.cfg.TuneFolds))
	return textclf.Tune(ctx, x, y, textclf.TuneOptions{
		Base:    s.params(),
		Grid:    grid,
		Folds:   s.cfg.TuneFolds,
		Seed:    s.cfg.Seed,
		Workers: s.cfg.TuneWorkers,
	})
}

func (s *RetrainService) loadDatasets() ([]corpus.BaseRow, []corpus.LabeledRow, error) {
	base, err := corpus.LoadBaseFile(s.cfg.BaseDataset, corpus.Columns{
		Text:  s.cfg.TextColumn,
		Span:  s.cfg.SpanColumn,
		Label: s.cfg.LabelColumn,
	})
	if err != nil {
		return nil, nil, err
	}
	if s.cfg.AugmentedDataset == "" {
		return base, nil, nil
	}
	augmented, err := corpus.LoadLabeledFile(s.cfg.AugmentedDataset)
	if err != nil {
		return nil, nil, err
	}
	return base, augmented, nil
}

func (s *RetrainService) corpusOptions() corpus.Options {
	return corpus.Options{
		NoDistortionLabel:  s.cfg.NoDistortionLabel,
		NoDistortionTarget: s.cfg.NoDistortionTarget,
		Seed:               s.cfg.Seed,
	}
}

func (s *RetrainService) params() textclf.Params {
	return textclf.Params{
		Vectorizer: textclf.VectorizerParams{
			NgramMin:      s.cfg.NgramMin,
			NgramMax:      s.cfg.NgramMax,
			MaxFeatures:   s.cfg.MaxFeatures,
			MinDF:         s.cfg.MinDF,
			MaxDF:         s.cfg.MaxDF,
			KeepStopWords: s.cfg.KeepStopWords,
		},
		Classifier: textclf.ClassifierParams{
			C:        s.cfg.C,
			MaxIter:  s.cfg.MaxIter,
			Balanced: true,
		},
	}
}

func buildNotes(notes string, feedbackRows int) string {
	auto := fmt.Sprintf("Trained with %d new feedback samples", feedbackRows)
	if notes == "" {
		return auto
	}
	return notes + "; " + auto
}
