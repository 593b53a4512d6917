package textclf

import (
	"errors"
	"fmt"
)

type TrainOptions struct {
	Params    Params
	TestRatio float64
	Seed      int64
}

type TrainResult struct {
	Pipeline  *Pipeline
	Accuracy  float64
	TrainSize int
	TestSize  int
	Report    Report
}

// Train fits a pipeline on a seeded train split of (x, y) and scores it on
// the held-out rows. It has no side effects beyond the returned value.
func Train(x, y []string, opts TrainOptions) (*TrainResult, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("corpus texts and labels differ in length: %d != %d", len(x), len(y))
	}
	if len(x) < 2 {
		return nil, errors.New("corpus needs at least 2 rows")
	}
	trainIdx, testIdx := TrainTestSplit(len(x), opts.TestRatio, opts.Seed)
	xTrain, yTrain := pick(x, trainIdx), pick(y, trainIdx)
	xTest, yTest := pick(x, testIdx), pick(y, testIdx)

	pipeline, err := Fit(xTrain, yTrain, opts.Params)
	if err != nil {
		return nil, fmt.Errorf("fit pipeline: %w", err)
	}
	pred := pipeline.PredictAll(xTest)
	report := ClassificationReport(yTest, pred)
	return &TrainResult{
		Pipeline:  pipeline,
		Accuracy:  report.Accuracy,
		TrainSize: len(xTrain),
		TestSize:  len(xTest),
		Report:    report,
	}, nil
}
