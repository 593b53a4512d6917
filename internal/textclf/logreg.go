package textclf

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

type ClassifierParams struct {
	C       float64 `json:"c"`
	MaxIter int     `json:"max_iter"`
	// Balanced weights every class by n_samples / (n_classes * class_count).
	Balanced bool `json:"balanced"`
}

// LogisticRegression is a multinomial (softmax) linear model with an L2
// penalty on the weights; intercepts are not penalised.
type LogisticRegression struct {
	Classes   []string    `json:"classes"`
	Weights   [][]float64 `json:"weights"`
	Intercept []float64   `json:"intercept"`
	Status    string      `json:"status,omitempty"`
}

func FitLogisticRegression(x []SparseVector, y []int, classes []string, dim int, params ClassifierParams) (*LogisticRegression, error) {
	k := len(classes)
	if k < 2 {
		return nil, fmt.Errorf("need at least 2 classes, got %d", k)
	}
	if len(x) != len(y) || len(x) == 0 {
		return nil, errors.New("training rows and labels must be non-empty and aligned")
	}
	if params.C <= 0 {
		return nil, errors.New("c must be positive")
	}

	sampleWeight := make([]float64, len(y))
	classWeight := make([]float64, k)
	for i := range classWeight {
		classWeight[i] = 1
	}
	if params.Balanced {
		counts := make([]float64, k)
		for _, label := range y {
			counts[label]++
		}
		for c := range classWeight {
			if counts[c] > 0 {
				classWeight[c] = float64(len(y)) / (float64(k) * counts[c])
			}
		}
	}
	var swSum float64
	for i, label := range y {
		sampleWeight[i] = classWeight[label]
		swSum += sampleWeight[i]
	}

	stride := dim + 1
	alpha := 1 / (params.C * swSum)
	scores := make([]float64, k)
	probs := make([]float64, k)

	objective := func(theta, grad []float64) float64 {
		if grad != nil {
			for i := range grad {
				grad[i] = 0
			}
		}
		var loss float64
		for i, row := range x {
			for c := 0; c < k; c++ {
				base := c * stride
				z := theta[base+dim]
				for j, idx := range row.Indices {
					z += theta[base+idx] * row.Values[j]
				}
				scores[c] = z
			}
			lse := floats.LogSumExp(scores)
			w := sampleWeight[i] / swSum
			loss += w * (lse - scores[y[i]])
			if grad == nil {
				continue
			}
			for c := 0; c < k; c++ {
				probs[c] = math.Exp(scores[c] - lse)
			}
			probs[y[i]] -= 1
			for c := 0; c < k; c++ {
				g := w * probs[c]
				if g == 0 {
					continue
				}
				base := c * stride
				for j, idx := range row.Indices {
					grad[base+idx] += g * row.Values[j]
				}
				grad[base+dim] += g
			}
		}
		for c := 0; c < k; c++ {
			wc := theta[c*stride : c*stride+dim]
			loss += 0.5 * alpha * floats.Dot(wc, wc)
			if grad != nil {
				floats.AddScaled(grad[c*stride:c*stride+dim], alpha, wc)
			}
		}
		return loss
	}

	problem := optimize.Problem{
		Func: func(theta []float64) float64 {
			return objective(theta, nil)
		},
		Grad: func(grad, theta []float64) {
			objective(theta, grad)
		},
	}
	maxIter := params.MaxIter
	if maxIter <= 0 {
		maxIter = 100
	}
	settings := &optimize.Settings{
		MajorIterations:   maxIter,
		GradientThreshold: 1e-6,
	}
	result, err := optimize.Minimize(problem, make([]float64, k*stride), settings, &optimize.LBFGS{})
	if err != nil && result == nil {
		return nil, fmt.Errorf("optimize: %w", err)
	}
	for _, v := range result.X {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.New("optimize: diverged")
		}
	}

	model := &LogisticRegression{
		Classes:   append([]string(nil), classes...),
		Weights:   make([][]float64, k),
		Intercept: make([]float64, k),
		Status:    result.Status.String(),
	}
	for c := 0; c < k; c++ {
		model.Weights[c] = append([]float64(nil), result.X[c*stride:c*stride+dim]...)
		model.Intercept[c] = result.X[c*stride+dim]
	}
	return model, nil
}

// PredictProba returns the class distribution for one row, aligned with Classes.
func (m *LogisticRegression) PredictProba(row SparseVector) []float64 {
	scores := make([]float64, len(m.Classes))
	for c := range m.Classes {
		z := m.Intercept[c]
		wc := m.Weights[c]
		for j, idx := range row.Indices {
			if idx < len(wc) {
				z += wc[idx] * row.Values[j]
			}
		}
		scores[c] = z
	}
	lse := floats.LogSumExp(scores)
	for c := range scores {
		scores[c] = math.Exp(scores[c] - lse)
	}
	return scores
}

func (m *LogisticRegression) Predict(row SparseVector) int {
	return floats.MaxIdx(m.PredictProba(row))
}
