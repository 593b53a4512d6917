// Package textclf implements the TF-IDF + logistic regression text
// classification pipeline and its gzip/JSON artifact format.
package textclf

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"
)

const artifactFormat = 1

// Pipeline is a fitted vectorizer + classifier pair. It is never mutated
// after Fit or Decode returns, so one value may serve concurrent callers.
type Pipeline struct {
	Format     int                 `json:"format"`
	Vectorizer *Vectorizer         `json:"vectorizer"`
	Classifier *LogisticRegression `json:"classifier"`
	Params     Params              `json:"params"`
	TrainedAt  int64               `json:"trained_at"`
}

type Params struct {
	Vectorizer VectorizerParams `json:"vectorizer"`
	Classifier ClassifierParams `json:"classifier"`
}

func DefaultParams() Params {
	return Params{
		Vectorizer: VectorizerParams{
			NgramMin:    1,
			NgramMax:    2,
			MaxFeatures: 5000,
			MinDF:       2,
			MaxDF:       0.8,
		},
		Classifier: ClassifierParams{
			C:        1.0,
			MaxIter:  1000,
			Balanced: true,
		},
	}
}

func Fit(docs []string, labels []string, params Params) (*Pipeline, error) {
	if len(docs) != len(labels) {
		return nil, fmt.Errorf("docs and labels differ in length: %d != %d", len(docs), len(labels))
	}
	if len(docs) == 0 {
		return nil, errors.New("no training documents")
	}
	classes, y := encodeLabels(labels)
	vec, err := FitVectorizer(docs, params.Vectorizer)
	if err != nil {
		return nil, err
	}
	clf, err := FitLogisticRegression(vec.TransformAll(docs), y, classes, vec.Dim(), params.Classifier)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		Format:     artifactFormat,
		Vectorizer: vec,
		Classifier: clf,
		Params:     params,
		TrainedAt:  time.Now().Unix(),
	}, nil
}

// encodeLabels maps labels to indices of the sorted distinct label set.
func encodeLabels(labels []string) ([]string, []int) {
	set := make(map[string]struct{})
	for _, l := range labels {
		set[l] = struct{}{}
	}
	classes := make([]string, 0, len(set))
	for l := range set {
		classes = append(classes, l)
	}
	sort.Strings(classes)
	index := make(map[string]int, len(classes))
	for i, l := range classes {
		index[l] = i
	}
	y := make([]int, len(labels))
	for i, l := range labels {
		y[i] = index[l]
	}
	return classes, y
}

func (p *Pipeline) Classes() []string {
	return append([]string(nil), p.Classifier.Classes...)
}

// Predict returns the winning label and the full distribution over Classes.
func (p *Pipeline) Predict(text string) (string, []float64) {
	probs := p.Classifier.PredictProba(p.Vectorizer.Transform(text))
	best := 0
	for i := range probs {
		if probs[i] > probs[best] {
			best = i
		}
	}
	return p.Classifier.Classes[best], probs
}

func (p *Pipeline) PredictAll(texts []string) []string {
	out := make([]string, len(texts))
	for i, text := range texts {
		out[i], _ = p.Predict(text)
	}
	return out
}

// Encode writes the pipeline as gzip-compressed JSON.
func (p *Pipeline) Encode(w io.Writer) error {
	zw := gzip.NewWriter(w)
	if err := json.NewEncoder(zw).Encode(p); err != nil {
		_ = zw.Close()
		return fmt.Errorf("encode pipeline: %w", err)
	}
	return zw.Close()
}

func Decode(r io.Reader) (*Pipeline, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	defer func() { _ = zr.Close() }()
	var p Pipeline
	if err := json.NewDecoder(zr).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	if p.Format != artifactFormat {
		return nil, fmt.Errorf("unsupported artifact format %d", p.Format)
	}
	if p.Vectorizer == nil || p.Classifier == nil || len(p.Classifier.Classes) < 2 {
		return nil, errors.New("artifact is incomplete")
	}
	if len(p.Classifier.Weights) != len(p.Classifier.Classes) || len(p.Classifier.Intercept) != len(p.Classifier.Classes) {
		return nil, errors.New("artifact classifier shape mismatch")
	}
	return &p, nil
}
