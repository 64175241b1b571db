package dummydb

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rmarban/approvio/core/project"
)

type validationRepository struct {
	db *validationTable
}

var _ project.ValidationRepository = (*validationRepository)(nil)

func NewValidationRepository(db *DB) *validationRepository {
	return &validationRepository{db: db.validation}
}

func valKey(projectID string, stage project.Stage, reqID string) string {
	return projectID + "/" + string(stage) + "/" + reqID
}

// EnsureSchema mimics the lazy table provisioning of the real store.
func (repo *validationRepository) EnsureSchema(_ context.Context) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if !repo.db.provisioned {
		repo.db.table = make(map[string]*project.RequirementValidation)
		repo.db.provisioned = true
	}
	return nil
}

func (repo *validationRepository) UpsertValidation(_ context.Context, v project.RequirementValidation) (project.RequirementValidation, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := valKey(v.ProjectID, v.Stage, v.RequirementID)
	if orig, ok := repo.db.table[key]; ok {
		orig.Status = v.Status
		orig.Comments = v.Comments
		orig.ReviewerID = v.ReviewerID
		orig.ReviewedAt = v.ReviewedAt
		orig.UpdatedAt = v.UpdatedAt
		return *orig, nil
	}

	v.ID = uuid.New().String()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	repo.db.table[key] = &v
	return v, nil
}

func (repo *validationRepository) GetValidation(_ context.Context, projectID string, stage project.Stage, reqID string) (project.RequirementValidation, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if v, ok := repo.db.table[valKey(projectID, stage, reqID)]; ok {
		return *v, nil
	}
	return project.RequirementValidation{}, project.ErrValidationNotFound
}

func (repo *validationRepository) QueryValidations(_ context.Context, projectID string) ([]project.RequirementValidation, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var vals []project.RequirementValidation
	for _, v := range repo.db.table {
		if v.ProjectID == projectID {
			vals = append(vals, *v)
		}
	}
	return vals, nil
}

func (repo *validationRepository) QueryStageValidations(_ context.Context, projectID string, stage project.Stage) ([]project.RequirementValidation, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var vals []project.RequirementValidation
	for _, v := range repo.db.table {
		if v.ProjectID == projectID && v.Stage == stage {
			vals = append(vals, *v)
		}
	}
	return vals, nil
}
