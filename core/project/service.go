package project

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/rmarban/approvio/core"
	"github.com/rmarban/approvio/core/user"
)

var (
	// errors
	ErrNotFound            = errors.New("project not found")
	ErrDocumentNotFound    = errors.New("document not found")
	ErrValidationNotFound  = errors.New("requirement validation not found")
	ErrStageRecordNotFound = errors.New("stage record not found")

	correctionPrefix = "DOCUMENT CORRECTED"
)

type (
	// Repository persists projects and their stage records.
	Repository interface {
		CreateProject(ctx context.Context, p Project, stages []StageRecord) (Project, error)
		GetProject(ctx context.Context, id string) (Project, error)
		QueryProjects(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Project, error)
		// NextProjectSeq returns the next value of the year-scoped code sequence.
		NextProjectSeq(ctx context.Context, year int) (int, error)
		UpdateProject(ctx context.Context, p Project) (Project, error)
		GetStageRecord(ctx context.Context, projectID string, stage Stage) (StageRecord, error)
		QueryStageRecords(ctx context.Context, projectID string) ([]StageRecord, error)
		UpdateStageRecord(ctx context.Context, rec StageRecord) (StageRecord, error)
	}

	// ValidationRepository persists requirement validations.
	// The backing structure is self-provisioning: EnsureSchema creates it on
	// demand and must be safe to call more than once.
	ValidationRepository interface {
		EnsureSchema(ctx context.Context) error
		// UpsertValidation inserts or updates the record keyed by
		// (project, stage, requirement). The latest write wins.
		UpsertValidation(ctx context.Context, v RequirementValidation) (RequirementValidation, error)
		GetValidation(ctx context.Context, projectID string, stage Stage, reqID string) (RequirementValidation, error)
		QueryValidations(ctx context.Context, projectID string) ([]RequirementValidation, error)
		QueryStageValidations(ctx context.Context, projectID string, stage Stage) ([]RequirementValidation, error)
	}

	// DocumentRepository persists the document register. Version history
	// accumulates; CreateDocument flags the new row current and clears the
	// flag on the previous current row for the same requirement key.
	DocumentRepository interface {
		CreateDocument(ctx context.Context, doc Document) (Document, error)
		GetDocument(ctx context.Context, id string) (Document, error)
		QueryDocuments(ctx context.Context, projectID string) ([]Document, error)
		// QueryRequirementDocuments returns the history for one requirement
		// key, newest first.
		QueryRequirementDocuments(ctx context.Context, projectID string, stage Stage, reqID string) ([]Document, error)
		DeleteDocument(ctx context.Context, id string) error
	}

	Service struct {
		repo     Repository
		valRepo  ValidationRepository
		docRepo  DocumentRepository
		catalog  *Catalog
		files    core.FileStorage
		notifier Notifier
		logger   core.Logger
		conf     *core.Config

		schemaOnce sync.Once
		schemaErr  error
	}
)

func NewService(
	repo Repository,
	valRepo ValidationRepository,
	docRepo DocumentRepository,
	catalog *Catalog,
	files core.FileStorage,
	notifier Notifier,
	logger core.Logger,
	conf *core.Config,
) *Service {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Service{
		repo:     repo,
		valRepo:  valRepo,
		docRepo:  docRepo,
		catalog:  catalog,
		files:    files,
		notifier: notifier,
		logger:   logger,
		conf:     conf,
	}
}

// ensureSchema runs the validation store's one-time idempotent migration
// guard. Guarded by sync.Once so the existence check happens once per
// process lifetime, not per call.
func (svc *Service) ensureSchema(ctx context.Context) error {
	svc.schemaOnce.Do(func() {
		svc.schemaErr = svc.valRepo.EnsureSchema(ctx)
	})
	return svc.schemaErr
}

// Create registers a new project owned by the actor, with all five stage
// records initialized to pending and the current stage pointing at the first
// stage in order.
func (svc *Service) Create(ctx context.Context, np NewProject, actor user.User) (Project, error) {
	if err := np.Validate(); err != nil {
		return Project{}, err
	}

	now := time.Now().UTC()
	seq, err := svc.repo.NextProjectSeq(ctx, now.Year())
	if err != nil {
		return Project{}, errors.Wrap(err, "generating project code")
	}

	p := Project{
		Code:         fmt.Sprintf("%s-%d-%04d", svc.conf.ProjectCodePrefix, now.Year(), seq),
		Title:        np.Title,
		Description:  np.Description,
		OwnerID:      actor.ID,
		Status:       StatusPending,
		CurrentStage: StageOrder[0],
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	stages := make([]StageRecord, 0, len(StageOrder))
	for _, stage := range StageOrder {
		stages = append(stages, StageRecord{
			ProjectID: p.ID, // filled in by the repository once the project id exists
			Stage:     stage,
			Status:    StagePending,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	p, err = svc.repo.CreateProject(ctx, p, stages)
	if err != nil {
		return Project{}, err
	}
	svc.notifier.ProjectCreated(p, actor)
	return p, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Project, error) {
	return svc.repo.GetProject(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter) ([]Project, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryProjects(ctx, filter, core.DBOrdering{Field: "created_at", Ascending: false})
}

// StageRecords returns the five stage records of a project in stage order.
func (svc *Service) StageRecords(ctx context.Context, projectID string) ([]StageRecord, error) {
	if _, err := svc.repo.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return svc.repo.QueryStageRecords(ctx, projectID)
}

// classify inspects the requirement's prior validation status before a new
// document is registered. A missing record counts as pending. The upload is a
// correction iff the prior status is rejected; this is advisory metadata only
// and never introduces a distinct status.
func (svc *Service) classify(ctx context.Context, projectID string, stage Stage, reqID string) (bool, ValidationStatus, error) {
	val, err := svc.valRepo.GetValidation(ctx, projectID, stage, reqID)
	if err != nil {
		if errors.Cause(err) == ErrValidationNotFound {
			return false, ValidationPending, nil
		}
		return false, "", err
	}
	return val.Status == ValidationRejected, val.Status, nil
}

// UploadDocument runs the upload ingestion sequence: access checks, correction
// classification, document registration, validation upsert to in-review and
// the stage's pending/rejected → in-progress side effect. Notification
// failures never surface to the caller.
func (svc *Service) UploadDocument(ctx context.Context, in UploadInput, content io.Reader, actor user.User) (UploadResult, error) {
	if err := in.Validate(); err != nil {
		return UploadResult{}, err
	}

	p, err := svc.repo.GetProject(ctx, in.ProjectID)
	if err != nil {
		return UploadResult{}, err
	}
	if !actor.IsAdmin() && p.OwnerID != actor.ID {
		return UploadResult{}, core.NewPermissionError("only the project owner or an administrator may upload documents")
	}

	def, ok := svc.catalog.Get(in.Stage, in.RequirementID)
	if !ok {
		return UploadResult{}, core.NewValidationError(
			errors.Errorf("unknown requirement %q for stage %q", in.RequirementID, in.Stage),
			core.FieldError{Field: "requirement_id", Error: "requirement is not part of this stage's checklist"},
		)
	}
	if !def.Accepts(in.ContentType) {
		return UploadResult{}, core.NewValidationError(
			errors.Errorf("unaccepted media type %q for requirement %q", in.ContentType, def.ID),
			core.FieldError{Field: "file", Error: "file type not accepted for this requirement"},
		)
	}
	maxSize := svc.conf.Uploads.MaxSize
	if def.MaxSize > 0 {
		maxSize = def.MaxSize
	}
	if in.Size > maxSize {
		return UploadResult{}, core.NewValidationError(
			errors.Errorf("file of %d bytes exceeds the %d byte limit", in.Size, maxSize),
			core.FieldError{Field: "file", Error: "file is too large"},
		)
	}

	if err = svc.ensureSchema(ctx); err != nil {
		return UploadResult{}, err
	}

	isCorrection, prevStatus, err := svc.classify(ctx, in.ProjectID, in.Stage, in.RequirementID)
	if err != nil {
		return UploadResult{}, err
	}

	handle, size, err := svc.files.Save(in.FileName, content)
	if err != nil {
		return UploadResult{}, errors.Wrap(err, "storing artifact")
	}

	now := time.Now().UTC()
	doc := Document{
		ProjectID:     in.ProjectID,
		Stage:         in.Stage,
		RequirementID: in.RequirementID,
		Handle:        handle,
		OriginalName:  in.FileName,
		Size:          size,
		ContentType:   in.ContentType,
		UploaderID:    actor.ID,
		UploadedAt:    now,
		Current:       true,
	}
	doc, err = svc.docRepo.CreateDocument(ctx, doc)
	if err != nil {
		// compensating cleanup so the failed upload leaves no orphaned file
		svc.removeArtifact(handle)
		return UploadResult{}, err
	}

	comment := fmt.Sprintf("Document %q received, awaiting review", in.FileName)
	if isCorrection {
		comment = fmt.Sprintf("%s: %q resubmitted after rejection", correctionPrefix, in.FileName)
	}
	_, err = svc.valRepo.UpsertValidation(ctx, RequirementValidation{
		ProjectID:     in.ProjectID,
		Stage:         in.Stage,
		RequirementID: in.RequirementID,
		Status:        ValidationInReview,
		Comments:      null.StringFrom(comment),
		UpdatedAt:     now,
	})
	if err != nil {
		return UploadResult{}, err
	}

	// the only stage-status side effect triggered by uploads
	rec, err := svc.repo.GetStageRecord(ctx, in.ProjectID, in.Stage)
	if err != nil {
		return UploadResult{}, err
	}
	if rec.Status == StagePending || rec.Status == StageRejected {
		rec.Status = StageInProgress
		rec.UpdatedAt = now
		if _, err = svc.repo.UpdateStageRecord(ctx, rec); err != nil {
			return UploadResult{}, err
		}
	}

	svc.notifier.DocumentUploaded(p, doc, actor, isCorrection)

	return UploadResult{Document: doc, IsCorrection: isCorrection, PreviousStatus: prevStatus}, nil
}

// DeleteDocument removes a document record; permitted only for administrators
// and the original uploader. The physical artifact is removed best-effort.
// When the last document of a requirement is deleted, its validation reverts
// to pending.
func (svc *Service) DeleteDocument(ctx context.Context, id string, actor user.User) error {
	doc, err := svc.docRepo.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() && doc.UploaderID != actor.ID {
		return core.NewPermissionError("only the uploader or an administrator may delete a document")
	}

	if err = svc.docRepo.DeleteDocument(ctx, id); err != nil {
		return err
	}
	svc.removeArtifact(doc.Handle)

	remaining, err := svc.docRepo.QueryRequirementDocuments(ctx, doc.ProjectID, doc.Stage, doc.RequirementID)
	if err != nil {
		return err
	}
	if len(remaining) > 0 {
		return nil
	}

	if err = svc.ensureSchema(ctx); err != nil {
		return err
	}
	_, err = svc.valRepo.UpsertValidation(ctx, RequirementValidation{
		ProjectID:     doc.ProjectID,
		Stage:         doc.Stage,
		RequirementID: doc.RequirementID,
		Status:        ValidationPending,
		Comments:      null.StringFrom("All documents for this requirement were removed"),
		UpdatedAt:     time.Now().UTC(),
	})
	return err
}

// OpenDocument returns a document's metadata and a reader over its stored
// content. Only the project owner and administrators may read documents.
// The caller owns the reader and must close it.
func (svc *Service) OpenDocument(ctx context.Context, id string, actor user.User) (Document, io.ReadCloser, error) {
	doc, err := svc.docRepo.GetDocument(ctx, id)
	if err != nil {
		return Document{}, nil, err
	}
	p, err := svc.repo.GetProject(ctx, doc.ProjectID)
	if err != nil {
		return Document{}, nil, err
	}
	if !actor.IsAdmin() && p.OwnerID != actor.ID {
		return Document{}, nil, core.NewPermissionError("only the project owner or an administrator may read documents")
	}

	rc, err := svc.files.Open(doc.Handle)
	if err != nil {
		return Document{}, nil, errors.Wrap(err, "opening artifact")
	}
	return doc, rc, nil
}

// ListRequirements renders the full requirement checklist of a project:
// every catalog requirement of every stage joined with its validation status,
// current document and version history.
func (svc *Service) ListRequirements(ctx context.Context, projectID string) ([]ChecklistItem, error) {
	if _, err := svc.repo.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	if err := svc.ensureSchema(ctx); err != nil {
		return nil, err
	}

	vals, err := svc.valRepo.QueryValidations(ctx, projectID)
	if err != nil {
		return nil, err
	}
	valsByKey := make(map[string]RequirementValidation, len(vals))
	for _, v := range vals {
		valsByKey[string(v.Stage)+"/"+v.RequirementID] = v
	}

	docs, err := svc.docRepo.QueryDocuments(ctx, projectID)
	if err != nil {
		return nil, err
	}
	docsByKey := make(map[string][]Document)
	for _, d := range docs {
		key := string(d.Stage) + "/" + d.RequirementID
		docsByKey[key] = append(docsByKey[key], d)
	}

	var items []ChecklistItem
	for _, stage := range StageOrder {
		for _, def := range svc.catalog.Requirements(stage) {
			key := string(stage) + "/" + def.ID
			item := ChecklistItem{
				Stage:       stage,
				Requirement: def,
				Status:      ValidationPending, // absence of a record is semantically pending
			}
			if v, ok := valsByKey[key]; ok {
				item.Status = v.Status
				item.Comments = v.Comments.String
				item.ReviewedAt = v.ReviewedAt
			}
			if history := docsByKey[key]; len(history) > 0 {
				item.History = history
				item.CurrentDocument = currentDocument(history)
			}
			items = append(items, item)
		}
	}
	return items, nil
}

// currentDocument picks the flagged document, falling back to the most
// recently uploaded one.
func currentDocument(history []Document) *Document {
	var latest *Document
	for i := range history {
		d := &history[i]
		if d.Current {
			return d
		}
		if latest == nil || d.UploadedAt.After(latest.UploadedAt) {
			latest = d
		}
	}
	return latest
}

// SetRequirementStatus upserts one requirement validation on behalf of a
// reviewer. When the new status is approved and every catalog requirement of
// the stage is approved, the stage completes and the pipeline recomputes.
func (svc *Service) SetRequirementStatus(ctx context.Context, in ReviewInput, actor user.User) (RequirementValidation, error) {
	if err := in.Validate(); err != nil {
		return RequirementValidation{}, err
	}
	if !actor.IsAdmin() {
		return RequirementValidation{}, core.NewPermissionError("only administrators may review requirements")
	}

	p, err := svc.repo.GetProject(ctx, in.ProjectID)
	if err != nil {
		return RequirementValidation{}, err
	}
	def, ok := svc.catalog.Get(in.Stage, in.RequirementID)
	if !ok {
		return RequirementValidation{}, core.NewValidationError(
			errors.Errorf("unknown requirement %q for stage %q", in.RequirementID, in.Stage),
			core.FieldError{Field: "requirement_id", Error: "requirement is not part of this stage's checklist"},
		)
	}

	if err = svc.ensureSchema(ctx); err != nil {
		return RequirementValidation{}, err
	}

	now := time.Now().UTC()
	val, err := svc.valRepo.UpsertValidation(ctx, RequirementValidation{
		ProjectID:     in.ProjectID,
		Stage:         in.Stage,
		RequirementID: in.RequirementID,
		Status:        in.Status,
		Comments:      null.NewString(in.Comments, in.Comments != ""),
		ReviewerID:    null.StringFrom(actor.ID),
		ReviewedAt:    null.TimeFrom(now),
		UpdatedAt:     now,
	})
	if err != nil {
		return RequirementValidation{}, err
	}

	if in.Status == ValidationApproved {
		if err = svc.completeStageIfApproved(ctx, p, in.Stage); err != nil {
			return RequirementValidation{}, err
		}
	}

	svc.notifier.RequirementReviewed(p, in.Stage, def, in.Status, in.Comments)
	return val, nil
}

// completeStageIfApproved counts approved validations against the catalog
// size for the stage and completes the stage when they match.
func (svc *Service) completeStageIfApproved(ctx context.Context, p Project, stage Stage) error {
	defs := svc.catalog.Requirements(stage)
	if len(defs) == 0 {
		return nil
	}

	vals, err := svc.valRepo.QueryStageValidations(ctx, p.ID, stage)
	if err != nil {
		return err
	}
	approved := make(map[string]bool, len(vals))
	for _, v := range vals {
		if v.Status == ValidationApproved {
			approved[v.RequirementID] = true
		}
	}
	for _, def := range defs {
		if !approved[def.ID] {
			return nil
		}
	}

	comment := fmt.Sprintf("All %d requirements approved", len(defs))
	return svc.completeStage(ctx, p, stage, comment)
}

// completeStage transitions the stage record to completed and recomputes the
// project pipeline.
func (svc *Service) completeStage(ctx context.Context, p Project, stage Stage, comment string) error {
	rec, err := svc.repo.GetStageRecord(ctx, p.ID, stage)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	alreadyCompleted := rec.Status == StageCompleted
	rec.Status = StageCompleted
	rec.Comments = null.StringFrom(comment)
	if !rec.CompletedAt.Valid {
		rec.CompletedAt = null.TimeFrom(now)
	}
	rec.UpdatedAt = now
	if _, err = svc.repo.UpdateStageRecord(ctx, rec); err != nil {
		return err
	}

	if err = svc.recomputePipeline(ctx, p); err != nil {
		return err
	}
	if !alreadyCompleted {
		svc.notifier.StageCompleted(p, stage)
	}
	return nil
}

// ApproveAllInStage upserts every catalog requirement of the stage to
// approved (one sequential upsert per requirement, not atomically), then
// unconditionally completes the stage and recomputes the pipeline. Safe to
// call repeatedly.
func (svc *Service) ApproveAllInStage(ctx context.Context, projectID string, stage Stage, comments string, actor user.User) error {
	if !stage.IsValid() {
		return core.NewValidationError(
			errors.Errorf("invalid stage %q", stage),
			core.FieldError{Field: "stage", Error: stageText},
		)
	}
	if !actor.IsAdmin() {
		return core.NewPermissionError("only administrators may approve stages")
	}

	p, err := svc.repo.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if err = svc.ensureSchema(ctx); err != nil {
		return err
	}

	now := time.Now().UTC()
	for _, def := range svc.catalog.Requirements(stage) {
		_, err = svc.valRepo.UpsertValidation(ctx, RequirementValidation{
			ProjectID:     projectID,
			Stage:         stage,
			RequirementID: def.ID,
			Status:        ValidationApproved,
			Comments:      null.NewString(comments, comments != ""),
			ReviewerID:    null.StringFrom(actor.ID),
			ReviewedAt:    null.TimeFrom(now),
			UpdatedAt:     now,
		})
		if err != nil {
			return err
		}
	}

	comment := comments
	if comment == "" {
		comment = fmt.Sprintf("Stage %q approved in bulk", stage)
	}
	return svc.completeStage(ctx, p, stage, comment)
}

// SetStageStatus is the explicit administrator stage action. It may move the
// record to any of the four statuses and is deliberately not reconciled
// against individual requirement validations: stage status and requirement
// aggregation are independent signals, last write wins.
func (svc *Service) SetStageStatus(ctx context.Context, in StageStatusInput, actor user.User) (StageRecord, error) {
	if err := in.Validate(); err != nil {
		return StageRecord{}, err
	}
	if !actor.IsAdmin() {
		return StageRecord{}, core.NewPermissionError("only administrators may set stage statuses")
	}

	p, err := svc.repo.GetProject(ctx, in.ProjectID)
	if err != nil {
		return StageRecord{}, err
	}
	rec, err := svc.repo.GetStageRecord(ctx, in.ProjectID, in.Stage)
	if err != nil {
		return StageRecord{}, err
	}

	now := time.Now().UTC()
	rec.Status = in.Status
	rec.Comments = null.NewString(in.Comments, in.Comments != "")
	if in.Status == StageCompleted && !rec.CompletedAt.Valid {
		rec.CompletedAt = null.TimeFrom(now)
	}
	rec.UpdatedAt = now
	rec, err = svc.repo.UpdateStageRecord(ctx, rec)
	if err != nil {
		return StageRecord{}, err
	}

	if in.Status == StageCompleted {
		if err = svc.recomputePipeline(ctx, p); err != nil {
			return StageRecord{}, err
		}
		svc.notifier.StageCompleted(p, in.Stage)
	}
	return rec, nil
}

// SetProjectStatus is the explicit administrator override of the overall
// project status.
func (svc *Service) SetProjectStatus(ctx context.Context, id string, status ProjectStatus, actor user.User) (Project, error) {
	if !status.IsValid() {
		return Project{}, core.NewValidationError(
			errors.Errorf("invalid project status %q", status),
			core.FieldError{Field: "status", Error: projStatusText},
		)
	}
	if !actor.IsAdmin() {
		return Project{}, core.NewPermissionError("only administrators may set the project status")
	}

	p, err := svc.repo.GetProject(ctx, id)
	if err != nil {
		return Project{}, err
	}
	p.Status = status
	p.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateProject(ctx, p)
}

// recomputePipeline derives the project's current stage pointer from its
// stage records: the first stage in order that is not completed. When all
// five are completed the pointer stays on the last stage and the overall
// status is forced to approved. Idempotent; the pointer never regresses.
func (svc *Service) recomputePipeline(ctx context.Context, p Project) error {
	records, err := svc.repo.QueryStageRecords(ctx, p.ID)
	if err != nil {
		return err
	}
	byStage := make(map[Stage]StageRecord, len(records))
	for _, rec := range records {
		byStage[rec.Stage] = rec
	}

	current := StageOrder[len(StageOrder)-1]
	allCompleted := true
	for _, stage := range StageOrder {
		if byStage[stage].Status != StageCompleted {
			current = stage
			allCompleted = false
			break
		}
	}

	changed := false
	if current.Index() > p.CurrentStage.Index() {
		p.CurrentStage = current
		changed = true
	}
	if allCompleted {
		if p.CurrentStage != StageOrder[len(StageOrder)-1] {
			p.CurrentStage = StageOrder[len(StageOrder)-1]
			changed = true
		}
		if p.Status != StatusApproved {
			p.Status = StatusApproved
			changed = true
		}
	}
	if !changed {
		return nil
	}

	p.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateProject(ctx, p)
	return err
}

// removeArtifact deletes a stored file best-effort; failures are logged and
// never override the outcome of the surrounding operation.
func (svc *Service) removeArtifact(handle string) {
	if handle == "" {
		return
	}
	if err := svc.files.Delete(handle); err != nil {
		if svc.logger != nil {
			svc.logger.Warn(fmt.Sprintf("removing artifact %s: %v", handle, err), err)
		}
	}
}
