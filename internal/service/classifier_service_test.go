package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/reframe/internal/filestore"
	"github.com/xxxsen/reframe/internal/model"
	appErr "github.com/xxxsen/reframe/internal/pkg/errors"
)

func newTestClassifier(t *testing.T, extraLabels ...string) (*ClassifierService, *countingStore) {
	store := &countingStore{Store: filestore.NewLocal(t.TempDir())}
	saveTestArtifact(t, store, testArtifactKey, extraLabels...)
	store.opens = 0
	svc := NewClassifierService(store, ClassifierOptions{
		ArtifactKey: testArtifactKey,
		MaxChars:    100,
		CacheSize:   16,
		CacheTTL:    time.Minute,
	})
	return svc, store
}

func TestClassifierValidatesBeforeLoading(t *testing.T) {
	svc, store := newTestClassifier(t)
	ctx := context.Background()

	_, err := svc.Predict(ctx, "   ")
	require.ErrorIs(t, err, appErr.ErrInvalid)
	_, err = svc.Predict(ctx, strings.Repeat("a", 101))
	require.ErrorIs(t, err, appErr.ErrTooLarge)
	_, err = svc.Predict(ctx, "I always fail.")
	require.ErrorIs(t, err, appErr.ErrModelUnavailable)
	require.Zero(t, store.opens)
	require.False(t, svc.Loaded())

	_, err = svc.Info()
	require.ErrorIs(t, err, appErr.ErrModelUnavailable)
}

func TestClassifierPredictsPerSentence(t *testing.T) {
	svc, _ := newTestClassifier(t)
	ctx := context.Background()
	require.NoError(t, svc.Load(ctx))

	results, err := svc.Predict(ctx, "I always fail at everything. The weather is nice today.")
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "I always fail at everything.", results[0].Input)
	require.Equal(t, "All-or-Nothing Thinking", results[0].Label)
	require.Equal(t, "The weather is nice today.", results[1].Input)
	require.Equal(t, model.NoDistortion, results[1].Label)
	for _, r := range results {
		require.GreaterOrEqual(t, r.Confidence, 0.0)
		require.LessOrEqual(t, r.Confidence, 1.0)
		require.InDelta(t, r.Confidence, roundConfidence(r.Confidence), 1e-12)
	}

	again, err := svc.Predict(ctx, "I always fail at everything. The weather is nice today.")
	require.NoError(t, err)
	require.Equal(t, results, again)
}

func TestClassifierReloadPublishesNewArtifact(t *testing.T) {
	svc, store := newTestClassifier(t)
	ctx := context.Background()
	require.NoError(t, svc.Load(ctx))
	info, err := svc.Info()
	require.NoError(t, err)
	require.Equal(t, uint64(1), info.Generation)
	require.Len(t, info.Classes, 2)
	require.Positive(t, info.Features)

	saveTestArtifact(t, store, testArtifactKey, "Should Statements")
	require.NoError(t, svc.Reload(ctx))
	info, err = svc.Info()
	require.NoError(t, err)
	require.Equal(t, uint64(2), info.Generation)
	require.Contains(t, info.Classes, "Should Statements")
	require.Equal(t, testArtifactKey, info.ArtifactKey)
}

func TestClassifierMissingArtifact(t *testing.T) {
	svc := NewClassifierService(filestore.NewLocal(t.TempDir()), ClassifierOptions{ArtifactKey: testArtifactKey})
	err := svc.Load(context.Background())
	require.ErrorIs(t, err, appErr.ErrModelUnavailable)
	require.False(t, svc.Loaded())
}

func TestClassifierKeepsHandleOnFailedReload(t *testing.T) {
	svc, store := newTestClassifier(t)
	ctx := context.Background()
	require.NoError(t, svc.Load(ctx))

	require.NoError(t, store.Save(ctx, testArtifactKey, strings.NewReader("garbage")))
	require.ErrorIs(t, svc.Reload(ctx), appErr.ErrModelUnavailable)

	info, err := svc.Info()
	require.NoError(t, err)
	require.Equal(t, uint64(1), info.Generation)
	_, err = svc.Predict(ctx, "I always fail.")
	require.NoError(t, err)
}

func TestRoundConfidence(t *testing.T) {
	require.Equal(t, 0.667, roundConfidence(2.0/3.0))
	require.Equal(t, 1.0, roundConfidence(1.0004))
	require.Equal(t, 0.0, roundConfidence(-0.1))
}
