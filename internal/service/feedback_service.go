package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/reframe/internal/model"
	appErr "github.com/xxxsen/reframe/internal/pkg/errors"
	"github.com/xxxsen/reframe/internal/repo"
)

type FeedbackInput struct {
	Text           string
	PredictedLabel *string
	UserCorrection *string
	IsAccepted     *bool
	Confidence     *float64
}

type FeedbackService struct {
	feedback *repo.FeedbackRepo
	maxChars int
}

func NewFeedbackService(feedback *repo.FeedbackRepo, maxChars int) *FeedbackService {
	if maxChars <= 0 {
		maxChars = 500
	}
	return &FeedbackService{feedback: feedback, maxChars: maxChars}
}

// Record validates and appends one feedback row, returning its id.
// A rejected prediction (is_accepted=false) must carry a correction.
func (s *FeedbackService) Record(ctx context.Context, input FeedbackInput) (int64, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return 0, fmt.Errorf("%w: text is required", appErr.ErrInvalid)
	}
	if utf8.RuneCountInString(input.Text) > s.maxChars {
		return 0, fmt.Errorf("%w: text exceeds %d characters", appErr.ErrTooLarge, s.maxChars)
	}
	predicted := trimOptional(input.PredictedLabel)
	correction := trimOptional(input.UserCorrection)
	if input.IsAccepted != nil && !*input.IsAccepted && correction == nil {
		return 0, fmt.Errorf("%w: user_correction is required when the prediction is rejected", appErr.ErrInvalid)
	}
	if input.Confidence != nil && (*input.Confidence < 0 || *input.Confidence > 1) {
		return 0, fmt.Errorf("%w: confidence must be within [0, 1]", appErr.ErrInvalid)
	}
	fb := &model.Feedback{
		Text:           text,
		PredictedLabel: predicted,
		UserCorrection: correction,
		IsAccepted:     input.IsAccepted,
		Confidence:     input.Confidence,
		CreatedAt:      time.Now().Unix(),
	}
	id, err := s.feedback.Create(ctx, fb)
	if err != nil {
		logutil.GetLogger(ctx).Error("save feedback failed", zap.Error(err))
		return 0, fmt.Errorf("%w: %v", appErr.ErrStorage, err)
	}
	return id, nil
}

func (s *FeedbackService) Get(ctx context.Context, id int64) (*model.Feedback, error) {
	fb, err := s.feedback.GetByID(ctx, id)
	if err != nil {
		return nil, storageErr(err)
	}
	return fb, nil
}

func (s *FeedbackService) List(ctx context.Context, limit, offset uint) ([]model.Feedback, error) {
	if limit > 200 {
		limit = 200
	}
	items, err := s.feedback.List(ctx, limit, offset)
	if err != nil {
		return nil, storageErr(err)
	}
	return items, nil
}

// ListUnconsumedCorrections returns the rejected, not yet trained-on rows
// as (text, label) pairs with their ids.
func (s *FeedbackService) ListUnconsumedCorrections(ctx context.Context) ([]model.Correction, error) {
	items, err := s.feedback.ListUnconsumedCorrections(ctx)
	if err != nil {
		return nil, storageErr(err)
	}
	return items, nil
}

// MarkConsumed flips exactly ids to consumed; rows inserted after the ids
// were read are never touched.
func (s *FeedbackService) MarkConsumed(ctx context.Context, ids []int64) (int64, error) {
	n, err := s.feedback.MarkConsumed(ctx, ids)
	if err != nil {
		return 0, storageErr(err)
	}
	return n, nil
}

func (s *FeedbackService) Stats(ctx context.Context) (*model.FeedbackStats, error) {
	stats, err := s.feedback.Stats(ctx)
	if err != nil {
		return nil, storageErr(err)
	}
	return stats, nil
}

func (s *FeedbackService) MaxChars() int {
	return s.maxChars
}

func trimOptional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// storageErr tags persistence failures, leaving domain sentinels intact.
func storageErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, appErr.ErrNotFound) || errors.Is(err, appErr.ErrInvalid) || errors.Is(err, appErr.ErrStorage) {
		return err
	}
	return fmt.Errorf("%w: %v", appErr.ErrStorage, err)
}
