package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/rmarban/approvio/core/project"
)

type documentRepository struct {
	db *documentTable
}

var _ project.DocumentRepository = (*documentRepository)(nil)

func NewDocumentRepository(db *DB) *documentRepository {
	return &documentRepository{db: db.document}
}

func (repo *documentRepository) CreateDocument(_ context.Context, doc project.Document) (project.Document, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if doc.Current {
		for _, d := range repo.db.table {
			if d.ProjectID == doc.ProjectID && d.Stage == doc.Stage && d.RequirementID == doc.RequirementID {
				d.Current = false
			}
		}
	}

	doc.ID = uuid.New().String()
	repo.db.table[doc.ID] = &doc
	return doc, nil
}

func (repo *documentRepository) GetDocument(_ context.Context, id string) (project.Document, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if doc, ok := repo.db.table[id]; ok {
		return *doc, nil
	}
	return project.Document{}, project.ErrDocumentNotFound
}

func (repo *documentRepository) QueryDocuments(_ context.Context, projectID string) ([]project.Document, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var docs []project.Document
	for _, d := range repo.db.table {
		if d.ProjectID == projectID {
			docs = append(docs, *d)
		}
	}
	sortNewestFirst(docs)
	return docs, nil
}

func (repo *documentRepository) QueryRequirementDocuments(_ context.Context, projectID string, stage project.Stage, reqID string) ([]project.Document, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var docs []project.Document
	for _, d := range repo.db.table {
		if d.ProjectID == projectID && d.Stage == stage && d.RequirementID == reqID {
			docs = append(docs, *d)
		}
	}
	sortNewestFirst(docs)
	return docs, nil
}

func (repo *documentRepository) DeleteDocument(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return project.ErrDocumentNotFound
	}
	delete(repo.db.table, id)
	return nil
}

func sortNewestFirst(docs []project.Document) {
	sort.Slice(docs, func(i, j int) bool { return docs[i].UploadedAt.After(docs[j].UploadedAt) })
}
