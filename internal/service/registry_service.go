package service

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/xxxsen/reframe/internal/model"
	"github.com/xxxsen/reframe/internal/pkg/dbutil"
	appErr "github.com/xxxsen/reframe/internal/pkg/errors"
	"github.com/xxxsen/reframe/internal/repo"
)

type VersionInput struct {
	TrainingSampleCount int
	Accuracy            float64
	Notes               string
	ArtifactKey         string
}

// RegistryService numbers trained artifacts. The first recorded version is
// 1 and every later one is max+1; LatestVersion reports 1 on an empty
// registry as well.
type RegistryService struct {
	db       *sql.DB
	versions *repo.ModelVersionRepo
}

func NewRegistryService(db *sql.DB, versions *repo.ModelVersionRepo) *RegistryService {
	return &RegistryService{db: db, versions: versions}
}

func (s *RegistryService) LatestVersion(ctx context.Context) (int, error) {
	max, ok, err := s.versions.MaxVersion(ctx)
	if err != nil {
		return 0, storageErr(err)
	}
	if !ok {
		return 1, nil
	}
	return max, nil
}

func (s *RegistryService) RecordVersion(ctx context.Context, input VersionInput) (*model.ModelVersion, error) {
	var created *model.ModelVersion
	err := dbutil.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		v, err := recordVersionTx(ctx, s.versions.WithTx(tx), input)
		if err != nil {
			return err
		}
		created = v
		return nil
	})
	if err != nil {
		return nil, storageErr(err)
	}
	return created, nil
}

func (s *RegistryService) List(ctx context.Context) ([]model.ModelVersion, error) {
	items, err := s.versions.List(ctx)
	if err != nil {
		return nil, storageErr(err)
	}
	return items, nil
}

func (s *RegistryService) Get(ctx context.Context, version int) (*model.ModelVersion, error) {
	v, err := s.versions.GetByVersion(ctx, version)
	if err != nil {
		return nil, storageErr(err)
	}
	return v, nil
}

// nextVersion is evaluated inside the recording transaction.
func nextVersion(ctx context.Context, versions *repo.ModelVersionRepo) (int, error) {
	max, ok, err := versions.MaxVersion(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 1, nil
	}
	return max + 1, nil
}

func validateVersionInput(input VersionInput) error {
	if input.TrainingSampleCount < 0 {
		return fmt.Errorf("%w: training sample count must not be negative", appErr.ErrInvalid)
	}
	if math.IsNaN(input.Accuracy) || input.Accuracy < 0 || input.Accuracy > 1 {
		return fmt.Errorf("%w: accuracy must be within [0, 1]", appErr.ErrInvalid)
	}
	return nil
}

func recordVersionTx(ctx context.Context, versions *repo.ModelVersionRepo, input VersionInput) (*model.ModelVersion, error) {
	if err := validateVersionInput(input); err != nil {
		return nil, err
	}
	number, err := nextVersion(ctx, versions)
	if err != nil {
		return nil, err
	}
	return insertVersion(ctx, versions, number, input)
}

func insertVersion(ctx context.Context, versions *repo.ModelVersionRepo, number int, input VersionInput) (*model.ModelVersion, error) {
	v := &model.ModelVersion{
		VersionNumber:       number,
		TrainingSampleCount: input.TrainingSampleCount,
		Accuracy:            input.Accuracy,
		Notes:               input.Notes,
		ArtifactKey:         input.ArtifactKey,
		CreatedAt:           time.Now().Unix(),
	}
	id, err := versions.Create(ctx, v)
	if err != nil {
		return nil, err
	}
	v.ID = id
	return v, nil
}
