package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/rmarban/approvio/core/project"
)

// validationSchema is applied lazily: the table is not part of the goose
// migrations and is created on first access instead.
const validationSchema = `
CREATE TABLE IF NOT EXISTS requirement_validation (
    id             UUID PRIMARY KEY,
    project_id     UUID NOT NULL REFERENCES project (id) ON DELETE CASCADE,
    stage          TEXT NOT NULL,
    requirement_id TEXT NOT NULL,
    status         TEXT NOT NULL DEFAULT 'pending',
    comments       TEXT,
    reviewer_id    UUID,
    reviewed_at    TIMESTAMPTZ,
    created_at     TIMESTAMPTZ,
    updated_at     TIMESTAMPTZ,
    UNIQUE (project_id, stage, requirement_id)
)`

type validationRow struct {
	ID            string      `db:"id"`
	ProjectID     string      `db:"project_id"`
	Stage         string      `db:"stage"`
	RequirementID string      `db:"requirement_id"`
	Status        string      `db:"status"`
	Comments      null.String `db:"comments"`
	ReviewerID    null.String `db:"reviewer_id"`
	ReviewedAt    null.Time   `db:"reviewed_at"`
	CreatedAt     null.Time   `db:"created_at"`
	UpdatedAt     null.Time   `db:"updated_at"`
}

type validationRepository struct {
	db *sqlx.DB
}

var _ project.ValidationRepository = (*validationRepository)(nil) // interface compliance check

func NewValidationRepository(db *sql.DB) *validationRepository {
	return &validationRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo validationRepository) pack(v project.RequirementValidation) validationRow {
	return validationRow{
		ID:            v.ID,
		ProjectID:     v.ProjectID,
		Stage:         string(v.Stage),
		RequirementID: v.RequirementID,
		Status:        string(v.Status),
		Comments:      v.Comments,
		ReviewerID:    v.ReviewerID,
		ReviewedAt:    v.ReviewedAt,
		CreatedAt:     null.NewTime(v.CreatedAt.UTC(), !v.CreatedAt.IsZero()),
		UpdatedAt:     null.NewTime(v.UpdatedAt.UTC(), !v.UpdatedAt.IsZero()),
	}
}

func (repo validationRepository) unpack(row validationRow) project.RequirementValidation {
	return project.RequirementValidation{
		ID:            row.ID,
		ProjectID:     row.ProjectID,
		Stage:         project.Stage(row.Stage),
		RequirementID: row.RequirementID,
		Status:        project.ValidationStatus(row.Status),
		Comments:      row.Comments,
		ReviewerID:    row.ReviewerID,
		ReviewedAt:    row.ReviewedAt,
		CreatedAt:     row.CreatedAt.Time,
		UpdatedAt:     row.UpdatedAt.Time,
	}
}

func (repo validationRepository) EnsureSchema(ctx context.Context) error {
	if _, err := repo.db.ExecContext(ctx, validationSchema); err != nil {
		return errors.Wrap(err, "provisioning requirement_validation")
	}
	return nil
}

// UpsertValidation relies on the unique (project, stage, requirement) key;
// a concurrent duplicate insert is absorbed by ON CONFLICT, latest write wins.
func (repo validationRepository) UpsertValidation(ctx context.Context, v project.RequirementValidation) (project.RequirementValidation, error) {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = v.UpdatedAt
	}
	row := repo.pack(v)

	var saved validationRow
	nstmt, err := repo.db.PrepareNamedContext(ctx, `
		INSERT INTO requirement_validation
			(id, project_id, stage, requirement_id, status, comments, reviewer_id, reviewed_at, created_at, updated_at)
		VALUES
			(:id, :project_id, :stage, :requirement_id, :status, :comments, :reviewer_id, :reviewed_at, :created_at, :updated_at)
		ON CONFLICT (project_id, stage, requirement_id) DO UPDATE SET
			status = EXCLUDED.status,
			comments = EXCLUDED.comments,
			reviewer_id = EXCLUDED.reviewer_id,
			reviewed_at = EXCLUDED.reviewed_at,
			updated_at = EXCLUDED.updated_at
		RETURNING *`)
	if err != nil {
		return project.RequirementValidation{}, errors.Wrap(err, "preparing validation upsert")
	}
	defer func() { _ = nstmt.Close() }()

	if err = nstmt.GetContext(ctx, &saved, row); err != nil {
		return project.RequirementValidation{}, errors.Wrap(err, "upserting validation")
	}
	return repo.unpack(saved), nil
}

func (repo validationRepository) GetValidation(ctx context.Context, projectID string, stage project.Stage, reqID string) (project.RequirementValidation, error) {
	var row validationRow
	err := repo.db.GetContext(ctx, &row, `
		SELECT * FROM requirement_validation
		WHERE project_id = $1 AND stage = $2 AND requirement_id = $3`,
		projectID, string(stage), reqID)
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return project.RequirementValidation{}, project.ErrValidationNotFound
		}
		return project.RequirementValidation{}, errors.Wrap(err, "finding validation")
	}
	return repo.unpack(row), nil
}

func (repo validationRepository) QueryValidations(ctx context.Context, projectID string) ([]project.RequirementValidation, error) {
	var rows []validationRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM requirement_validation WHERE project_id = $1`, projectID)
	if err != nil {
		return nil, errors.Wrap(err, "querying validations")
	}
	return repo.unpackSlice(rows), nil
}

func (repo validationRepository) QueryStageValidations(ctx context.Context, projectID string, stage project.Stage) ([]project.RequirementValidation, error) {
	var rows []validationRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM requirement_validation WHERE project_id = $1 AND stage = $2`, projectID, string(stage))
	if err != nil {
		return nil, errors.Wrap(err, "querying stage validations")
	}
	return repo.unpackSlice(rows), nil
}

func (repo validationRepository) unpackSlice(rows []validationRow) []project.RequirementValidation {
	vals := make([]project.RequirementValidation, 0, len(rows))
	for _, row := range rows {
		vals = append(vals, repo.unpack(row))
	}
	return vals
}
