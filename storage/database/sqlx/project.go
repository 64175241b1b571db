package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/rmarban/approvio/core"
	"github.com/rmarban/approvio/core/project"
)

type projectRow struct {
	ID           string      `db:"id"`
	Code         string      `db:"code"`
	Title        string      `db:"title"`
	Description  null.String `db:"description"`
	OwnerID      string      `db:"owner_id"`
	Status       string      `db:"status"`
	CurrentStage string      `db:"current_stage"`
	CreatedAt    null.Time   `db:"created_at"`
	UpdatedAt    null.Time   `db:"updated_at"`
}

type stageRecordRow struct {
	ID          string      `db:"id"`
	ProjectID   string      `db:"project_id"`
	Stage       string      `db:"stage"`
	Status      string      `db:"status"`
	Comments    null.String `db:"comments"`
	CompletedAt null.Time   `db:"completed_at"`
	CreatedAt   null.Time   `db:"created_at"`
	UpdatedAt   null.Time   `db:"updated_at"`
}

type projectRepository struct {
	db *sqlx.DB
}

var _ project.Repository = (*projectRepository)(nil) // interface compliance check

func NewProjectRepository(db *sql.DB) *projectRepository {
	return &projectRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo projectRepository) pack(p project.Project) projectRow {
	return projectRow{
		ID:           p.ID,
		Code:         p.Code,
		Title:        p.Title,
		Description:  null.NewString(p.Description, p.Description != ""),
		OwnerID:      p.OwnerID,
		Status:       string(p.Status),
		CurrentStage: string(p.CurrentStage),
		CreatedAt:    null.NewTime(p.CreatedAt.UTC(), !p.CreatedAt.IsZero()),
		UpdatedAt:    null.NewTime(p.UpdatedAt.UTC(), !p.UpdatedAt.IsZero()),
	}
}

func (repo projectRepository) unpack(row projectRow) project.Project {
	return project.Project{
		ID:           row.ID,
		Code:         row.Code,
		Title:        row.Title,
		Description:  row.Description.String,
		OwnerID:      row.OwnerID,
		Status:       project.ProjectStatus(row.Status),
		CurrentStage: project.Stage(row.CurrentStage),
		CreatedAt:    row.CreatedAt.Time,
		UpdatedAt:    row.UpdatedAt.Time,
	}
}

func (repo projectRepository) packStage(rec project.StageRecord) stageRecordRow {
	return stageRecordRow{
		ID:          rec.ID,
		ProjectID:   rec.ProjectID,
		Stage:       string(rec.Stage),
		Status:      string(rec.Status),
		Comments:    rec.Comments,
		CompletedAt: rec.CompletedAt,
		CreatedAt:   null.NewTime(rec.CreatedAt.UTC(), !rec.CreatedAt.IsZero()),
		UpdatedAt:   null.NewTime(rec.UpdatedAt.UTC(), !rec.UpdatedAt.IsZero()),
	}
}

func (repo projectRepository) unpackStage(row stageRecordRow) project.StageRecord {
	return project.StageRecord{
		ID:          row.ID,
		ProjectID:   row.ProjectID,
		Stage:       project.Stage(row.Stage),
		Status:      project.StageStatus(row.Status),
		Comments:    row.Comments,
		CompletedAt: row.CompletedAt,
		CreatedAt:   row.CreatedAt.Time,
		UpdatedAt:   row.UpdatedAt.Time,
	}
}

func (repo projectRepository) trapNoRowsErr(err, sentinel error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return sentinel
	}
	return errors.Wrap(err, msg)
}

// CreateProject inserts the project and its five stage records in one transaction.
func (repo projectRepository) CreateProject(ctx context.Context, p project.Project, stages []project.StageRecord) (project.Project, error) {
	p.ID = uuid.New().String()
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return project.Project{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO project (id, code, title, description, owner_id, status, current_stage, created_at, updated_at)
		VALUES (:id, :code, :title, :description, :owner_id, :status, :current_stage, :created_at, :updated_at)`,
		repo.pack(p),
	)
	if err != nil {
		return project.Project{}, errors.Wrap(err, "inserting project")
	}

	for _, rec := range stages {
		rec.ID = uuid.New().String()
		rec.ProjectID = p.ID
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO stage_record (id, project_id, stage, status, comments, completed_at, created_at, updated_at)
			VALUES (:id, :project_id, :stage, :status, :comments, :completed_at, :created_at, :updated_at)`,
			repo.packStage(rec),
		)
		if err != nil {
			return project.Project{}, errors.Wrap(err, "inserting stage record")
		}
	}

	if err = tx.Commit(); err != nil {
		return project.Project{}, errors.Wrap(err, "committing project")
	}
	return p, nil
}

func (repo projectRepository) GetProject(ctx context.Context, id string) (project.Project, error) {
	if _, err := uuid.Parse(id); err != nil {
		return project.Project{}, project.ErrNotFound
	}
	var row projectRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM project WHERE id = $1`, id); err != nil {
		return project.Project{}, repo.trapNoRowsErr(err, project.ErrNotFound, "finding project")
	}
	return repo.unpack(row), nil
}

func (repo projectRepository) QueryProjects(ctx context.Context, filter *project.QueryFilter, ordering ...core.DBOrdering) ([]project.Project, error) {
	query := `SELECT * FROM project`
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		if filter.Search != "" {
			p := arg("%" + filter.Search + "%")
			conds = append(conds, fmt.Sprintf("(code ILIKE %[1]s OR title ILIKE %[1]s OR description ILIKE %[1]s)", p))
		}
		if filter.OwnerID != "" {
			conds = append(conds, "owner_id = "+arg(filter.OwnerID))
		}
		if filter.Status != "" {
			conds = append(conds, "status = "+arg(string(filter.Status)))
		}
		if filter.Stage != "" {
			conds = append(conds, "current_stage = "+arg(string(filter.Stage)))
		}
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	if len(ordering) > 0 {
		orderList := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			orderList = append(orderList, ord.String())
		}
		query += " ORDER BY " + strings.Join(orderList, ", ")
	}

	var rows []projectRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying projects")
	}
	projects := make([]project.Project, 0, len(rows))
	for _, row := range rows {
		projects = append(projects, repo.unpack(row))
	}
	return projects, nil
}

func (repo projectRepository) NextProjectSeq(ctx context.Context, year int) (int, error) {
	var seq int
	err := repo.db.QueryRowContext(ctx, `
		INSERT INTO project_code_seq (year, seq) VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET seq = project_code_seq.seq + 1
		RETURNING seq`,
		year,
	).Scan(&seq)
	if err != nil {
		return 0, errors.Wrap(err, "advancing project code sequence")
	}
	return seq, nil
}

func (repo projectRepository) UpdateProject(ctx context.Context, p project.Project) (project.Project, error) {
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE project SET title = :title, description = :description, status = :status,
			current_stage = :current_stage, updated_at = :updated_at
		WHERE id = :id`,
		repo.pack(p),
	)
	if err != nil {
		return project.Project{}, errors.Wrap(err, "updating project")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return project.Project{}, project.ErrNotFound
	}
	return p, nil
}

func (repo projectRepository) GetStageRecord(ctx context.Context, projectID string, stage project.Stage) (project.StageRecord, error) {
	var row stageRecordRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT * FROM stage_record WHERE project_id = $1 AND stage = $2`, projectID, string(stage))
	if err != nil {
		return project.StageRecord{}, repo.trapNoRowsErr(err, project.ErrStageRecordNotFound, "finding stage record")
	}
	return repo.unpackStage(row), nil
}

func (repo projectRepository) QueryStageRecords(ctx context.Context, projectID string) ([]project.StageRecord, error) {
	var rows []stageRecordRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM stage_record WHERE project_id = $1`, projectID)
	if err != nil {
		return nil, errors.Wrap(err, "querying stage records")
	}
	records := make([]project.StageRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, repo.unpackStage(row))
	}
	// fixed stage order
	sortStageRecords(records)
	return records, nil
}

func sortStageRecords(records []project.StageRecord) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].Stage.Index() < records[j].Stage.Index()
	})
}

func (repo projectRepository) UpdateStageRecord(ctx context.Context, rec project.StageRecord) (project.StageRecord, error) {
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE stage_record SET status = :status, comments = :comments,
			completed_at = :completed_at, updated_at = :updated_at
		WHERE id = :id`,
		repo.packStage(rec),
	)
	if err != nil {
		return project.StageRecord{}, errors.Wrap(err, "updating stage record")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return project.StageRecord{}, project.ErrStageRecordNotFound
	}
	return rec, nil
}
