package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/rmarban/approvio/core"
	"github.com/rmarban/approvio/core/project"
)

type projectRepository struct {
	projects *projectTable
	stages   *stageRecordTable
}

var _ project.Repository = (*projectRepository)(nil)

func NewProjectRepository(db *DB) *projectRepository {
	return &projectRepository{projects: db.project, stages: db.stageRecord}
}

func (repo *projectRepository) CreateProject(_ context.Context, p project.Project, stages []project.StageRecord) (project.Project, error) {
	repo.projects.Lock()
	defer repo.projects.Unlock()
	repo.stages.Lock()
	defer repo.stages.Unlock()

	p.ID = uuid.New().String()
	repo.projects.table[p.ID] = &p

	for _, rec := range stages {
		rec := rec
		rec.ID = uuid.New().String()
		rec.ProjectID = p.ID
		repo.stages.table[rec.ID] = &rec
	}
	return p, nil
}

func (repo *projectRepository) GetProject(_ context.Context, id string) (project.Project, error) {
	repo.projects.RLock()
	defer repo.projects.RUnlock()

	if p, ok := repo.projects.table[id]; ok {
		return *p, nil
	}
	return project.Project{}, project.ErrNotFound
}

func (repo *projectRepository) QueryProjects(_ context.Context, filter *project.QueryFilter, _ ...core.DBOrdering) ([]project.Project, error) {
	repo.projects.RLock()
	defer repo.projects.RUnlock()

	projects := make([]project.Project, 0, len(repo.projects.table))
	for _, p := range repo.projects.table {
		if filter == nil || filter.IsEmpty() || matchProject(*p, filter) {
			projects = append(projects, *p)
		}
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].CreatedAt.After(projects[j].CreatedAt) })
	return projects, nil
}

func matchProject(p project.Project, filter *project.QueryFilter) bool {
	if filter.Search != "" {
		s := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(p.Code), s) &&
			!strings.Contains(strings.ToLower(p.Title), s) &&
			!strings.Contains(strings.ToLower(p.Description), s) {
			return false
		}
	}
	if filter.OwnerID != "" && p.OwnerID != filter.OwnerID {
		return false
	}
	if filter.Status != "" && p.Status != filter.Status {
		return false
	}
	if filter.Stage != "" && p.CurrentStage != filter.Stage {
		return false
	}
	return true
}

func (repo *projectRepository) NextProjectSeq(_ context.Context, year int) (int, error) {
	repo.projects.Lock()
	defer repo.projects.Unlock()

	repo.projects.seqs[year]++
	return repo.projects.seqs[year], nil
}

func (repo *projectRepository) UpdateProject(_ context.Context, p project.Project) (project.Project, error) {
	repo.projects.Lock()
	defer repo.projects.Unlock()

	orig, ok := repo.projects.table[p.ID]
	if !ok {
		return project.Project{}, project.ErrNotFound
	}
	*orig = p
	return p, nil
}

func (repo *projectRepository) GetStageRecord(_ context.Context, projectID string, stage project.Stage) (project.StageRecord, error) {
	repo.stages.RLock()
	defer repo.stages.RUnlock()

	for _, rec := range repo.stages.table {
		if rec.ProjectID == projectID && rec.Stage == stage {
			return *rec, nil
		}
	}
	return project.StageRecord{}, project.ErrStageRecordNotFound
}

func (repo *projectRepository) QueryStageRecords(_ context.Context, projectID string) ([]project.StageRecord, error) {
	repo.stages.RLock()
	defer repo.stages.RUnlock()

	records := make([]project.StageRecord, 0, len(project.StageOrder))
	for _, rec := range repo.stages.table {
		if rec.ProjectID == projectID {
			records = append(records, *rec)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Stage.Index() < records[j].Stage.Index()
	})
	return records, nil
}

func (repo *projectRepository) UpdateStageRecord(_ context.Context, rec project.StageRecord) (project.StageRecord, error) {
	repo.stages.Lock()
	defer repo.stages.Unlock()

	orig, ok := repo.stages.table[rec.ID]
	if !ok {
		return project.StageRecord{}, project.ErrStageRecordNotFound
	}
	*orig = rec
	return rec, nil
}
