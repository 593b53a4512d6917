package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/reframe/internal/config"
	"github.com/xxxsen/reframe/internal/filestore"
	"github.com/xxxsen/reframe/internal/model"
	"github.com/xxxsen/reframe/internal/textclf"
)

const testArtifactKey = "distortion_model.json.gz"

func writeBaseDataset(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "base.csv")
	file, err := os.Create(path)
	require.NoError(t, err)
	defer file.Close()
	w := csv.NewWriter(file)
	require.NoError(t, w.Write([]string{"Id_Number", "Patient Question", "Distorted part", "Dominant Distortion"}))
	id := 0
	row := func(text, span, label string) {
		id++
		require.NoError(t, w.Write([]string{fmt.Sprint(id), text, span, label}))
	}
	absolutes := []string{
		"I always fail at everything",
		"I never do anything right",
		"I always ruin every plan",
		"Nobody ever listens, I always lose",
		"I always mess everything up",
		"I never succeed at anything",
		"Everything always goes wrong",
		"I always fail every exam",
	}
	shoulds := []string{
		"I should be perfect at work",
		"I must never make mistakes",
		"I should always be happy",
		"People should respect me",
		"I must finish everything today",
		"I should be thinner",
		"I must be the best student",
		"They should have called me",
	}
	for _, s := range absolutes {
		row("Some context here. "+s+".", s, "All-or-Nothing Thinking")
	}
	for _, s := range shoulds {
		row("Background story. "+s+".", s, "Should Statements")
	}
	neutral := []string{
		"The weather is nice today. We walked in the park.",
		"I had coffee this morning. The train was on time.",
		"We cooked dinner together. The soup was warm.",
		"My sister visited on Sunday. We watched a movie.",
	}
	for _, s := range neutral {
		row(s, "", model.NoDistortion)
	}
	row("", "", "Labeling")
	w.Flush()
	require.NoError(t, w.Error())
	return path
}

func testTrainingConfig(t *testing.T, dir string) config.TrainingConfig {
	t.Helper()
	cfg := config.TrainingConfig{
		BaseDataset: writeBaseDataset(t, dir),
		MinDF:       1,
		MaxDF:       1,
		C:           10,
		MaxIter:     200,
		TuneFolds:   3,
		TuneWorkers: 2,
	}
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())
	return cfg
}

// saveTestArtifact fits a tiny pipeline and stores it under key.
func saveTestArtifact(t *testing.T, store filestore.Store, key string, extra ...string) *textclf.Pipeline {
	t.Helper()
	x := []string{
		"I always fail at everything", "I never do anything right", "I always ruin everything",
		"The weather is nice today", "We walked in the park", "The coffee was warm",
	}
	y := []string{
		"All-or-Nothing Thinking", "All-or-Nothing Thinking", "All-or-Nothing Thinking",
		model.NoDistortion, model.NoDistortion, model.NoDistortion,
	}
	for _, label := range extra {
		x = append(x, "I should be perfect "+strings.ToLower(label), "I must be better "+strings.ToLower(label))
		y = append(y, label, label)
	}
	params := textclf.DefaultParams()
	params.Vectorizer.MinDF = 1
	params.Vectorizer.MaxDF = 1
	params.Classifier.C = 10
	p, err := textclf.Fit(x, y, params)
	require.NoError(t, err)
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(p.Encode(pw))
	}()
	require.NoError(t, store.Save(context.Background(), key, pr))
	return p
}

type countingStore struct {
	filestore.Store
	opens   int
	failSet bool
	onSave  func(key string)
}

func (s *countingStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	s.opens++
	return s.Store.Open(ctx, key)
}

func (s *countingStore) Save(ctx context.Context, key string, r io.Reader) error {
	if s.failSet {
		return fmt.Errorf("disk full")
	}
	if s.onSave != nil {
		s.onSave(key)
	}
	return s.Store.Save(ctx, key, r)
}
