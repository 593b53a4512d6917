package job

import (
	"context"
	"errors"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/reframe/internal/service"
)

type Retrainer interface {
	Run(ctx context.Context, notes string) (*service.RetrainResult, error)
}

type RetrainJob struct {
	retrain Retrainer
}

func NewRetrainJob(retrain Retrainer) *RetrainJob {
	return &RetrainJob{retrain: retrain}
}

func (j *RetrainJob) Name() string {
	return "retrain"
}

func (j *RetrainJob) Run(ctx context.Context) error {
	if j.retrain == nil {
		return nil
	}
	res, err := j.retrain.Run(ctx, "scheduled")
	if errors.Is(err, service.ErrRetrainRunning) {
		logutil.GetLogger(ctx).Info("retrain skipped: another run in progress")
		return nil
	}
	if err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("scheduled retrain recorded",
		zap.Int("version", res.Version.VersionNumber),
		zap.Float64("accuracy", res.Accuracy),
		zap.Int64("consumed", res.Consumed),
	)
	return nil
}
