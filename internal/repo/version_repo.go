package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/reframe/internal/model"
	"github.com/xxxsen/reframe/internal/pkg/dbutil"
	appErr "github.com/xxxsen/reframe/internal/pkg/errors"
)

var versionColumns = []string{"id", "version_number", "training_sample_count", "accuracy", "notes", "artifact_key", "created_at"}

type ModelVersionRepo struct {
	db     dbutil.DBTX
	driver string
}

func NewModelVersionRepo(db *sql.DB, driver string) *ModelVersionRepo {
	return &ModelVersionRepo{db: db, driver: driver}
}

func (r *ModelVersionRepo) WithTx(tx *sql.Tx) *ModelVersionRepo {
	return &ModelVersionRepo{db: tx, driver: r.driver}
}

func (r *ModelVersionRepo) Create(ctx context.Context, v *model.ModelVersion) (int64, error) {
	data := map[string]interface{}{
		"version_number":        v.VersionNumber,
		"training_sample_count": v.TrainingSampleCount,
		"accuracy":              v.Accuracy,
		"notes":                 v.Notes,
		"artifact_key":          v.ArtifactKey,
		"created_at":            v.CreatedAt,
	}
	sqlStr, args, err := builder.BuildInsert("model_versions", []map[string]interface{}{data})
	if err != nil {
		return 0, err
	}
	return insertReturningID(ctx, r.db, r.driver, sqlStr, args)
}

// MaxVersion returns the highest recorded version number; ok is false when
// the registry is empty.
func (r *ModelVersionRepo) MaxVersion(ctx context.Context) (int, bool, error) {
	var max sql.NullInt64
	if err := r.db.QueryRowContext(ctx, `SELECT MAX(version_number) FROM model_versions`).Scan(&max); err != nil {
		return 0, false, err
	}
	if !max.Valid {
		return 0, false, nil
	}
	return int(max.Int64), true, nil
}

func (r *ModelVersionRepo) List(ctx context.Context) ([]model.ModelVersion, error) {
	where := map[string]interface{}{
		"_orderby": "version_number desc",
	}
	sqlStr, args, err := builder.BuildSelect("model_versions", where, versionColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(r.driver, sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	versions := make([]model.ModelVersion, 0)
	for rows.Next() {
		var v model.ModelVersion
		if err := rows.Scan(&v.ID, &v.VersionNumber, &v.TrainingSampleCount, &v.Accuracy, &v.Notes, &v.ArtifactKey, &v.CreatedAt); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func (r *ModelVersionRepo) GetByVersion(ctx context.Context, version int) (*model.ModelVersion, error) {
	where := map[string]interface{}{
		"version_number": version,
	}
	sqlStr, args, err := builder.BuildSelect("model_versions", where, versionColumns)
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
	var v model.ModelVersion
	if err := rows.Scan(&v.ID, &v.VersionNumber, &v.TrainingSampleCount, &v.Accuracy, &v.Notes, &v.ArtifactKey, &v.CreatedAt); err != nil {
		return nil, err
	}
	return &v, nil
}
