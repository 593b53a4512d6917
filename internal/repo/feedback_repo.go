package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/reframe/internal/model"
	"github.com/xxxsen/reframe/internal/pkg/dbutil"
	appErr "github.com/xxxsen/reframe/internal/pkg/errors"
)

var feedbackColumns = []string{"id", "text", "predicted_label", "user_correction", "is_accepted", "confidence", "created_at", "consumed"}

type FeedbackRepo struct {
	db     dbutil.DBTX
	driver string
}

func NewFeedbackRepo(db *sql.DB, driver string) *FeedbackRepo {
	return &FeedbackRepo{db: db, driver: driver}
}

// WithTx returns a repo bound to tx.
func (r *FeedbackRepo) WithTx(tx *sql.Tx) *FeedbackRepo {
	return &FeedbackRepo{db: tx, driver: r.driver}
}

func (r *FeedbackRepo) Create(ctx context.Context, fb *model.Feedback) (int64, error) {
	data := map[string]interface{}{
		"text":            fb.Text,
		"predicted_label": nullString(fb.PredictedLabel),
		"user_correction": nullString(fb.UserCorrection),
		"is_accepted":     nullBool(fb.IsAccepted),
		"confidence":      nullFloat(fb.Confidence),
		"created_at":      fb.CreatedAt,
		"consumed":        dbutil.BoolToInt(fb.Consumed),
	}
	sqlStr, args, err := builder.BuildInsert("feedback", []map[string]interface{}{data})
	if err != nil {
		return 0, err
	}
	return insertReturningID(ctx, r.db, r.driver, sqlStr, args)
}

func (r *FeedbackRepo) GetByID(ctx context.Context, id int64) (*model.Feedback, error) {
	where := map[string]interface{}{
		"id": id,
	}
	sqlStr, args, err := builder.BuildSelect("feedback", where, feedbackColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(r.driver, sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, appErr.ErrNotFound
	}
	return scanFeedback(rows)
}

func (r *FeedbackRepo) List(ctx context.Context, limit, offset uint) ([]model.Feedback, error) {
	if limit == 0 {
		limit = 50
	}
	where := map[string]interface{}{
		"_orderby": "id desc",
		"_limit":   []uint{offset, limit},
	}
	sqlStr, args, err := builder.BuildSelect("feedback", where, feedbackColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(r.driver, sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	items := make([]model.Feedback, 0)
	for rows.Next() {
		fb, err := scanFeedback(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *fb)
	}
	return items, rows.Err()
}

// ListUnconsumedCorrections returns rejected, not yet consumed rows with a
// non-empty correction, oldest first.
func (r *FeedbackRepo) ListUnconsumedCorrections(ctx context.Context) ([]model.Correction, error) {
	where := map[string]interface{}{
		"is_accepted":        0,
		"consumed":           0,
		"user_correction !=": "",
		"_orderby":           "id asc",
	}
	sqlStr, args, err := builder.BuildSelect("feedback", where, []string{"id", "text", "user_correction"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(r.driver, sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	items := make([]model.Correction, 0)
	for rows.Next() {
		var c model.Correction
		if err := rows.Scan(&c.ID, &c.Text, &c.Label); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

// MarkConsumed flips exactly the given ids to consumed. Rows already consumed
// are left untouched, so repeating the call is a no-op.
func (r *FeedbackRepo) MarkConsumed(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	in := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		in = append(in, id)
	}
	where := map[string]interface{}{
		"id in":    in,
		"consumed": 0,
	}
	update := map[string]interface{}{
		"consumed": 1,
	}
	sqlStr, args, err := builder.BuildUpdate("feedback", where, update)
	if err != nil {
		return 0, err
	}
	sqlStr, args = dbutil.Finalize(r.driver, sqlStr, args)
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *FeedbackRepo) Stats(ctx context.Context) (*model.FeedbackStats, error) {
	const query = `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN is_accepted = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN is_accepted = 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN is_accepted = 0 AND consumed = 0 AND user_correction <> '' THEN 1 ELSE 0 END), 0)
		FROM feedback
	`
	var stats model.FeedbackStats
	if err := r.db.QueryRowContext(ctx, query).Scan(&stats.Total, &stats.Accepted, &stats.Rejected, &stats.UnconsumedCorrections); err != nil {
		return nil, err
	}
	return &stats, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFeedback(row rowScanner) (*model.Feedback, error) {
	var (
		fb         model.Feedback
		predicted  sql.NullString
		correction sql.NullString
		accepted   sql.NullInt64
		confidence sql.NullFloat64
		consumed   int
	)
	if err := row.Scan(&fb.ID, &fb.Text, &predicted, &correction, &accepted, &confidence, &fb.CreatedAt, &consumed); err != nil {
		return nil, err
	}
	if predicted.Valid {
		fb.PredictedLabel = &predicted.String
	}
	if correction.Valid {
		fb.UserCorrection = &correction.String
	}
	if accepted.Valid {
		v := accepted.Int64 != 0
		fb.IsAccepted = &v
	}
	if confidence.Valid {
		fb.Confidence = &confidence.Float64
	}
	fb.Consumed = consumed != 0
	return &fb, nil
}
