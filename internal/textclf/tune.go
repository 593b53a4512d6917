package textclf

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"
)

type Grid struct {
	MaxFeatures []int
	NgramRanges [][2]int
	C           []float64
}

func DefaultGrid() Grid {
	return Grid{
		MaxFeatures: []int{3000, 5000, 10000},
		NgramRanges: [][2]int{{1, 1}, {1, 2}, {1, 3}},
		C:           []float64{0.01, 0.1, 1, 10},
	}
}

func (g Grid) expand(base Params) []Params {
	out := make([]Params, 0, len(g.MaxFeatures)*len(g.NgramRanges)*len(g.C))
	for _, mf := range g.MaxFeatures {
		for _, ng := range g.NgramRanges {
			for _, c := range g.C {
				p := base
				p.Vectorizer.MaxFeatures = mf
				p.Vectorizer.NgramMin = ng[0]
				p.Vectorizer.NgramMax = ng[1]
				p.Classifier.C = c
				out = append(out, p)
			}
		}
	}
	return out
}

type Candidate struct {
	Params  Params  `json:"params"`
	MacroF1 float64 `json:"macro_f1"`
	Err     string  `json:"error,omitempty"`
}

type TuneOptions struct {
	Base    Params
	Grid    Grid
	Folds   int
	Seed    int64
	Workers int
}

type TuneResult struct {
	Best       Candidate   `json:"best"`
	Candidates []Candidate `json:"candidates"`
}

// Tune scores every grid point by mean macro F1 over k folds of (x, y).
// Candidates run concurrently, at most Workers at a time. Candidates that
// fail to fit rank last; if none fits, Tune returns an error.
func Tune(ctx context.Context, x, y []string, opts TuneOptions) (*TuneResult, error) {
	if len(x) != len(y) {
		return nil, errors.New("texts and labels differ in length")
	}
	trains, vals := KFold(len(x), opts.Folds, opts.Seed)
	if len(trains) == 0 {
		return nil, errors.New("not enough rows for the requested folds")
	}
	params := opts.Grid.expand(opts.Base)
	if len(params) == 0 {
		return nil, errors.New("empty grid")
	}
	candidates := make([]Candidate, len(params))

	g, gctx := errgroup.WithContext(ctx)
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)
	for i := range params {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			candidates[i] = scoreCandidate(x, y, trains, vals, params[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ranked := rankCandidates(candidates)
	if ranked[0].Err != "" {
		return nil, fmt.Errorf("no candidate could be fitted: %s", ranked[0].Err)
	}
	return &TuneResult{Best: ranked[0], Candidates: ranked}, nil
}

// rankCandidates orders by macro F1, descending, with failed fits last.
func rankCandidates(candidates []Candidate) []Candidate {
	ranked := append([]Candidate(nil), candidates...)
	sort.SliceStable(ranked, func(a, b int) bool {
		if (ranked[a].Err == "") != (ranked[b].Err == "") {
			return ranked[a].Err == ""
		}
		return ranked[a].MacroF1 > ranked[b].MacroF1
	})
	return ranked
}

func scoreCandidate(x, y []string, trains, vals [][]int, params Params) Candidate {
	cand := Candidate{Params: params}
	var total float64
	for f := range trains {
		p, err := Fit(pick(x, trains[f]), pick(y, trains[f]), params)
		if err != nil {
			cand.Err = err.Error()
			cand.MacroF1 = 0
			return cand
		}
		total += MacroF1(pick(y, vals[f]), p.PredictAll(pick(x, vals[f])))
	}
	cand.MacroF1 = total / float64(len(trains))
	return cand
}
