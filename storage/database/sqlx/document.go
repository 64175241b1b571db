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

type documentRow struct {
	ID            string      `db:"id"`
	ProjectID     string      `db:"project_id"`
	Stage         string      `db:"stage"`
	RequirementID string      `db:"requirement_id"`
	Handle        string      `db:"handle"`
	OriginalName  string      `db:"original_name"`
	Size          int64       `db:"size"`
	ContentType   null.String `db:"content_type"`
	UploaderID    string      `db:"uploader_id"`
	UploadedAt    null.Time   `db:"uploaded_at"`
	Current       bool        `db:"current"`
}

type documentRepository struct {
	db *sqlx.DB
}

var _ project.DocumentRepository = (*documentRepository)(nil) // interface compliance check

func NewDocumentRepository(db *sql.DB) *documentRepository {
	return &documentRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo documentRepository) pack(d project.Document) documentRow {
	return documentRow{
		ID:            d.ID,
		ProjectID:     d.ProjectID,
		Stage:         string(d.Stage),
		RequirementID: d.RequirementID,
		Handle:        d.Handle,
		OriginalName:  d.OriginalName,
		Size:          d.Size,
		ContentType:   null.NewString(d.ContentType, d.ContentType != ""),
		UploaderID:    d.UploaderID,
		UploadedAt:    null.NewTime(d.UploadedAt.UTC(), !d.UploadedAt.IsZero()),
		Current:       d.Current,
	}
}

func (repo documentRepository) unpack(row documentRow) project.Document {
	return project.Document{
		ID:            row.ID,
		ProjectID:     row.ProjectID,
		Stage:         project.Stage(row.Stage),
		RequirementID: row.RequirementID,
		Handle:        row.Handle,
		OriginalName:  row.OriginalName,
		Size:          row.Size,
		ContentType:   row.ContentType.String,
		UploaderID:    row.UploaderID,
		UploadedAt:    row.UploadedAt.Time,
		Current:       row.Current,
	}
}

// CreateDocument appends a document to the requirement's history, flags it
// current and clears the flag on the previous current row, in one transaction.
func (repo documentRepository) CreateDocument(ctx context.Context, doc project.Document) (project.Document, error) {
	doc.ID = uuid.New().String()

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return project.Document{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if doc.Current {
		_, err = tx.ExecContext(ctx, `
			UPDATE document SET current = FALSE
			WHERE project_id = $1 AND stage = $2 AND requirement_id = $3 AND current`,
			doc.ProjectID, string(doc.Stage), doc.RequirementID)
		if err != nil {
			return project.Document{}, errors.Wrap(err, "clearing current document")
		}
	}

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO document
			(id, project_id, stage, requirement_id, handle, original_name, size, content_type, uploader_id, uploaded_at, current)
		VALUES
			(:id, :project_id, :stage, :requirement_id, :handle, :original_name, :size, :content_type, :uploader_id, :uploaded_at, :current)`,
		repo.pack(doc),
	)
	if err != nil {
		return project.Document{}, errors.Wrap(err, "inserting document")
	}

	if err = tx.Commit(); err != nil {
		return project.Document{}, errors.Wrap(err, "committing document")
	}
	return doc, nil
}

func (repo documentRepository) GetDocument(ctx context.Context, id string) (project.Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return project.Document{}, project.ErrDocumentNotFound
	}
	var row documentRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM document WHERE id = $1`, id); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return project.Document{}, project.ErrDocumentNotFound
		}
		return project.Document{}, errors.Wrap(err, "finding document")
	}
	return repo.unpack(row), nil
}

func (repo documentRepository) QueryDocuments(ctx context.Context, projectID string) ([]project.Document, error) {
	var rows []documentRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM document WHERE project_id = $1 ORDER BY uploaded_at DESC`, projectID)
	if err != nil {
		return nil, errors.Wrap(err, "querying documents")
	}
	return repo.unpackSlice(rows), nil
}

func (repo documentRepository) QueryRequirementDocuments(ctx context.Context, projectID string, stage project.Stage, reqID string) ([]project.Document, error) {
	var rows []documentRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT * FROM document
		WHERE project_id = $1 AND stage = $2 AND requirement_id = $3
		ORDER BY uploaded_at DESC`,
		projectID, string(stage), reqID)
	if err != nil {
		return nil, errors.Wrap(err, "querying requirement documents")
	}
	return repo.unpackSlice(rows), nil
}

func (repo documentRepository) DeleteDocument(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM document WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting document")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return project.ErrDocumentNotFound
	}
	return nil
}

func (repo documentRepository) unpackSlice(rows []documentRow) []project.Document {
	docs := make([]project.Document, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, repo.unpack(row))
	}
	return docs
}
