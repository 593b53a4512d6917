package service

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/reframe/internal/filestore"
	appErr "github.com/xxxsen/reframe/internal/pkg/errors"
	"github.com/xxxsen/reframe/internal/repo"
	"github.com/xxxsen/reframe/internal/testutil"
	"github.com/xxxsen/reframe/internal/textclf"
)

type retrainFixture struct {
	retrain    *RetrainService
	feedback   *FeedbackService
	registry   *RegistryService
	classifier *ClassifierService
	store      *countingStore
}

func newRetrainFixture(t *testing.T) *retrainFixture {
	db := testutil.OpenTestDB(t)
	feedbackRepo := repo.NewFeedbackRepo(db, testutil.Driver)
	versionRepo := repo.NewModelVersionRepo(db, testutil.Driver)
	store := &countingStore{Store: filestore.NewLocal(t.TempDir())}
	cfg := testTrainingConfig(t, t.TempDir())

	classifier := NewClassifierService(store, ClassifierOptions{ArtifactKey: testArtifactKey})
	retrain := NewRetrainService(db, feedbackRepo, versionRepo, store, testArtifactKey, cfg)
	retrain.SetReloader(classifier)
	return &retrainFixture{
		retrain:    retrain,
		feedback:   NewFeedbackService(feedbackRepo, 500),
		registry:   NewRegistryService(db, versionRepo),
		classifier: classifier,
		store:      store,
	}
}

func (f *retrainFixture) addCorrection(t *testing.T, text, label string) int64 {
	id, err := f.feedback.Record(context.Background(), FeedbackInput{
		Text:           text,
		UserCorrection: strPtr(label),
		IsAccepted:     boolPtr(false),
	})
	require.NoError(t, err)
	return id
}

func readKey(t *testing.T, store filestore.Store, key string) []byte {
	rc, err := store.Open(context.Background(), key)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return data
}

func TestRetrainRunRecordsVersionAndConsumesFeedback(t *testing.T) {
	f := newRetrainFixture(t)
	ctx := context.Background()
	f.addCorrection(t, "If I fail this test my life is over", "Catastrophizing")
	f.addCorrection(t, "One mistake and everything is ruined forever", "Catastrophizing")

	res, err := f.retrain.Run(ctx, "")
	require.NoError(t, err)
	require.Equal(t, 1, res.Version.VersionNumber)
	require.Equal(t, int64(2), res.Consumed)
	require.Equal(t, 2, res.Corpus.Feedback)
	require.Equal(t, 1, res.Corpus.Dropped)
	require.Equal(t, 16, res.Corpus.Distorted)
	require.Equal(t, 8, res.Corpus.NoDistortionKept)
	require.Equal(t, 20, res.TrainSize)
	require.Equal(t, 6, res.TestSize)
	require.Equal(t, res.TrainSize, res.Version.TrainingSampleCount)
	require.Equal(t, "Trained with 2 new feedback samples", res.Version.Notes)
	require.Equal(t, filestore.VersionedKey(testArtifactKey, 1), res.Version.ArtifactKey)

	require.Equal(t, readKey(t, f.store, res.Version.ArtifactKey), readKey(t, f.store, testArtifactKey))
	info, err := f.classifier.Info()
	require.NoError(t, err)
	require.Equal(t, uint64(1), info.Generation)

	pending, err := f.feedback.ListUnconsumedCorrections(ctx)
	require.NoError(t, err)
	require.Empty(t, pending)

	second, err := f.retrain.Run(ctx, "nightly")
	require.NoError(t, err)
	require.Equal(t, 2, second.Version.VersionNumber)
	require.Zero(t, second.Consumed)
	require.Equal(t, "nightly; Trained with 0 new feedback samples", second.Version.Notes)

	latest, err := f.registry.LatestVersion(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, latest)
}

func TestRetrainSchemaErrorLeavesStateUntouched(t *testing.T) {
	f := newRetrainFixture(t)
	ctx := context.Background()
	f.addCorrection(t, "Everything is ruined", "Catastrophizing")

	bad := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("text,label\nx,y\n"), 0o644))
	f.retrain.cfg.BaseDataset = bad

	_, err := f.retrain.Run(ctx, "")
	require.ErrorIs(t, err, appErr.ErrSchema)

	pending, err := f.feedback.ListUnconsumedCorrections(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	versions, err := f.registry.List(ctx)
	require.NoError(t, err)
	require.Empty(t, versions)
}

func TestRetrainStoreFailureRollsBack(t *testing.T) {
	f := newRetrainFixture(t)
	ctx := context.Background()
	f.addCorrection(t, "Everything is ruined", "Catastrophizing")
	f.store.failSet = true

	_, err := f.retrain.Run(ctx, "")
	require.ErrorIs(t, err, appErr.ErrStorage)

	pending, err := f.feedback.ListUnconsumedCorrections(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	versions, err := f.registry.List(ctx)
	require.NoError(t, err)
	require.Empty(t, versions)
	require.False(t, f.classifier.Loaded())
}

func TestRetrainKeepsCorrectionsArrivingMidRun(t *testing.T) {
	f := newRetrainFixture(t)
	ctx := context.Background()
	early := f.addCorrection(t, "If I fail this test my life is over", "Catastrophizing")

	var late int64
	f.store.onSave = func(key string) {
		if late != 0 {
			return
		}
		require.Equal(t, filestore.StagingKey(testArtifactKey), key)
		late = f.addCorrection(t, "They all think I am a fool", "Mind Reading")
	}

	res, err := f.retrain.Run(ctx, "")
	require.NoError(t, err)
	require.NotZero(t, late)
	require.Equal(t, int64(1), res.Consumed)
	require.Equal(t, 1, res.Corpus.Feedback)

	pending, err := f.feedback.ListUnconsumedCorrections(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, late, pending[0].ID)
	require.NotEqual(t, early, pending[0].ID)
}

func TestRetrainRejectsConcurrentRun(t *testing.T) {
	f := newRetrainFixture(t)
	f.retrain.mu.Lock()
	defer f.retrain.mu.Unlock()
	_, err := f.retrain.Run(context.Background(), "")
	require.ErrorIs(t, err, ErrRetrainRunning)
}

func TestRetrainPromote(t *testing.T) {
	f := newRetrainFixture(t)
	ctx := context.Background()
	first, err := f.retrain.Run(ctx, "")
	require.NoError(t, err)
	f.addCorrection(t, "If I fail this test my life is over", "Catastrophizing")
	f.addCorrection(t, "One mistake and everything is ruined forever", "Catastrophizing")
	_, err = f.retrain.Run(ctx, "")
	require.NoError(t, err)

	v1 := readKey(t, f.store, first.Version.ArtifactKey)
	require.False(t, bytes.Equal(v1, readKey(t, f.store, testArtifactKey)))

	promoted, err := f.retrain.Promote(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 1, promoted.VersionNumber)
	require.Equal(t, v1, readKey(t, f.store, testArtifactKey))
	info, err := f.classifier.Info()
	require.NoError(t, err)
	require.Equal(t, uint64(3), info.Generation)

	_, err = f.retrain.Promote(ctx, 99)
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestRetrainTuneDoesNotConsume(t *testing.T) {
	f := newRetrainFixture(t)
	ctx := context.Background()
	f.addCorrection(t, "Everything is ruined", "Catastrophizing")

	res, err := f.retrain.Tune(ctx, textclf.Grid{
		MaxFeatures: []int{100},
		NgramRanges: [][2]int{{1, 1}},
		C:           []float64{1, 10},
	})
	require.NoError(t, err)
	require.Len(t, res.Candidates, 2)
	require.Equal(t, res.Candidates[0], res.Best)

	pending, err := f.feedback.ListUnconsumedCorrections(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	versions, err := f.registry.List(ctx)
	require.NoError(t, err)
	require.Empty(t, versions)
}
