package project_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmarban/approvio/core"
	"github.com/rmarban/approvio/core/project"
	"github.com/rmarban/approvio/core/user"
	dummydb "github.com/rmarban/approvio/storage/database/dummy"
)

// memStorage keeps stored files in a map.
type memStorage struct {
	mu    sync.Mutex
	files map[string][]byte
}

var _ core.FileStorage = (*memStorage)(nil)

func newMemStorage() *memStorage {
	return &memStorage{files: make(map[string][]byte)}
}

func (s *memStorage) Save(name string, r io.Reader) (string, int64, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return "", 0, err
	}
	handle := uuid.New().String()
	s.mu.Lock()
	s.files[handle] = content
	s.mu.Unlock()
	return handle, int64(len(content)), nil
}

func (s *memStorage) Open(handle string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.files[handle]
	if !ok {
		return nil, fmt.Errorf("no file %s", handle)
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (s *memStorage) Delete(handle string) error {
	s.mu.Lock()
	delete(s.files, handle)
	s.mu.Unlock()
	return nil
}

func (s *memStorage) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

// recordingNotifier counts dispatched events.
type recordingNotifier struct {
	mu              sync.Mutex
	created         int
	uploaded        int
	reviewed        int
	stagesCompleted []project.Stage
}

func (n *recordingNotifier) ProjectCreated(project.Project, user.User) {
	n.mu.Lock()
	n.created++
	n.mu.Unlock()
}

func (n *recordingNotifier) DocumentUploaded(project.Project, project.Document, user.User, bool) {
	n.mu.Lock()
	n.uploaded++
	n.mu.Unlock()
}

func (n *recordingNotifier) RequirementReviewed(project.Project, project.Stage, project.RequirementDef, project.ValidationStatus, string) {
	n.mu.Lock()
	n.reviewed++
	n.mu.Unlock()
}

func (n *recordingNotifier) StageCompleted(_ project.Project, stage project.Stage) {
	n.mu.Lock()
	n.stagesCompleted = append(n.stagesCompleted, stage)
	n.mu.Unlock()
}

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type testEnv struct {
	svc      *project.Service
	files    *memStorage
	notifier *recordingNotifier
	admin    user.User
	owner    user.User
	other    user.User
}

func setup(t *testing.T) *testEnv {
	t.Helper()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}

	conf := &core.Config{
		AppName:           "Approvio",
		ProjectCodePrefix: "PRJ",
		Uploads:           core.UploadsConfig{RootDir: t.TempDir(), MaxSize: 10 << 20},
	}
	files := newMemStorage()
	notifier := new(recordingNotifier)

	svc := project.NewService(
		dummydb.NewProjectRepository(db),
		dummydb.NewValidationRepository(db),
		dummydb.NewDocumentRepository(db),
		project.DefaultCatalog(),
		files,
		notifier,
		nopLogger{},
		conf,
	)

	return &testEnv{
		svc:      svc,
		files:    files,
		notifier: notifier,
		admin:    user.User{ID: uuid.New().String(), Name: "Admin", Roles: []string{user.RoleAdmin}, IsActive: true},
		owner:    user.User{ID: uuid.New().String(), Name: "Owner", Roles: []string{user.RoleStudent}, IsActive: true},
		other:    user.User{ID: uuid.New().String(), Name: "Other", Roles: []string{user.RoleStudent}, IsActive: true},
	}
}

func (env *testEnv) createProject(t *testing.T, title string) project.Project {
	t.Helper()
	p, err := env.svc.Create(context.Background(), project.NewProject{Title: title}, env.owner)
	if err != nil {
		t.Fatalf("createProject() failed: %v", err)
	}
	return p
}

func (env *testEnv) upload(t *testing.T, p project.Project, stage project.Stage, reqID string, actor user.User) project.UploadResult {
	t.Helper()
	res, err := env.svc.UploadDocument(context.Background(), project.UploadInput{
		ProjectID:     p.ID,
		Stage:         stage,
		RequirementID: reqID,
		FileName:      reqID + ".pdf",
		ContentType:   "application/pdf",
		Size:          64,
	}, strings.NewReader("%PDF-1.4 dummy content"), actor)
	if err != nil {
		t.Fatalf("upload(%s/%s) failed: %v", stage, reqID, err)
	}
	return res
}

func (env *testEnv) review(t *testing.T, p project.Project, stage project.Stage, reqID string, status project.ValidationStatus, comments string) project.RequirementValidation {
	t.Helper()
	val, err := env.svc.SetRequirementStatus(context.Background(), project.ReviewInput{
		ProjectID:     p.ID,
		Stage:         stage,
		RequirementID: reqID,
		Status:        status,
		Comments:      comments,
	}, env.admin)
	if err != nil {
		t.Fatalf("review(%s/%s -> %s) failed: %v", stage, reqID, status, err)
	}
	return val
}

func (env *testEnv) checklistItem(t *testing.T, p project.Project, stage project.Stage, reqID string) project.ChecklistItem {
	t.Helper()
	items, err := env.svc.ListRequirements(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("ListRequirements() failed: %v", err)
	}
	for _, item := range items {
		if item.Stage == stage && item.Requirement.ID == reqID {
			return item
		}
	}
	t.Fatalf("checklist item %s/%s not found", stage, reqID)
	return project.ChecklistItem{}
}

func TestService_Create(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	p := env.createProject(t, "Library System")

	if p.Status != project.StatusPending {
		t.Errorf("Status = %v; want %v", p.Status, project.StatusPending)
	}
	if p.CurrentStage != project.StageFormalization {
		t.Errorf("CurrentStage = %v; want %v", p.CurrentStage, project.StageFormalization)
	}
	wantCode := fmt.Sprintf("PRJ-%d-0001", time.Now().UTC().Year())
	if p.Code != wantCode {
		t.Errorf("Code = %v; want %v", p.Code, wantCode)
	}
	if p.OwnerID != env.owner.ID {
		t.Errorf("OwnerID = %v; want %v", p.OwnerID, env.owner.ID)
	}

	records, err := env.svc.StageRecords(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, records, len(project.StageOrder))
	for i, rec := range records {
		if rec.Stage != project.StageOrder[i] {
			t.Errorf("records[%d].Stage = %v; want %v", i, rec.Stage, project.StageOrder[i])
		}
		if rec.Status != project.StagePending {
			t.Errorf("records[%d].Status = %v; want %v", i, rec.Status, project.StagePending)
		}
		if rec.CompletedAt.Valid {
			t.Errorf("records[%d].CompletedAt set on a fresh record", i)
		}
	}

	// codes are sequential within the year
	p2 := env.createProject(t, "Inventory System")
	wantCode2 := fmt.Sprintf("PRJ-%d-0002", time.Now().UTC().Year())
	if p2.Code != wantCode2 {
		t.Errorf("Code = %v; want %v", p2.Code, wantCode2)
	}

	if env.notifier.created != 2 {
		t.Errorf("ProjectCreated notifications = %d; want 2", env.notifier.created)
	}

	// title is required
	_, err = env.svc.Create(ctx, project.NewProject{}, env.owner)
	if err == nil {
		t.Error("Create() accepted an empty title")
	}
}

func TestService_UploadDocument(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	p := env.createProject(t, "Library System")

	res := env.upload(t, p, project.StageFormalization, "ficha_formalizacion", env.owner)
	if res.IsCorrection {
		t.Error("first upload flagged as correction")
	}
	if res.PreviousStatus != project.ValidationPending {
		t.Errorf("PreviousStatus = %v; want %v", res.PreviousStatus, project.ValidationPending)
	}
	if !res.Document.Current {
		t.Error("uploaded document not flagged current")
	}
	if env.files.count() != 1 {
		t.Errorf("stored files = %d; want 1", env.files.count())
	}

	// requirement moves to in-review, stage to in-progress
	item := env.checklistItem(t, p, project.StageFormalization, "ficha_formalizacion")
	if item.Status != project.ValidationInReview {
		t.Errorf("requirement status = %v; want %v", item.Status, project.ValidationInReview)
	}
	records, err := env.svc.StageRecords(ctx, p.ID)
	require.NoError(t, err)
	if records[0].Status != project.StageInProgress {
		t.Errorf("stage status = %v; want %v", records[0].Status, project.StageInProgress)
	}

	// other stages are untouched
	for _, rec := range records[1:] {
		if rec.Status != project.StagePending {
			t.Errorf("stage %s status = %v; want %v", rec.Stage, rec.Status, project.StagePending)
		}
	}

	// only the owner or an admin may upload
	_, err = env.svc.UploadDocument(ctx, project.UploadInput{
		ProjectID:     p.ID,
		Stage:         project.StageFormalization,
		RequirementID: "carta_compromiso",
		FileName:      "carta.pdf",
		ContentType:   "application/pdf",
		Size:          10,
	}, strings.NewReader("x"), env.other)
	if !core.IsPermission(err) {
		t.Errorf("upload by stranger error = %v; want permission error", err)
	}

	// unknown requirement is rejected
	_, err = env.svc.UploadDocument(ctx, project.UploadInput{
		ProjectID:     p.ID,
		Stage:         project.StageFormalization,
		RequirementID: "nope",
		FileName:      "nope.pdf",
		ContentType:   "application/pdf",
		Size:          10,
	}, strings.NewReader("x"), env.owner)
	assert.Error(t, err)

	// content type must match the requirement definition
	_, err = env.svc.UploadDocument(ctx, project.UploadInput{
		ProjectID:     p.ID,
		Stage:         project.StageFormalization,
		RequirementID: "carta_compromiso",
		FileName:      "carta.exe",
		ContentType:   "application/octet-stream",
		Size:          10,
	}, strings.NewReader("x"), env.owner)
	assert.Error(t, err)

	// per-requirement size limit overrides the global one
	_, err = env.svc.UploadDocument(ctx, project.UploadInput{
		ProjectID:     p.ID,
		Stage:         project.StageDelivery,
		RequirementID: "codigo_fuente",
		FileName:      "src.zip",
		ContentType:   "application/zip",
		Size:          101 << 20,
	}, strings.NewReader("x"), env.owner)
	assert.Error(t, err)

	// rejected uploads leave no artifact behind
	if env.files.count() != 1 {
		t.Errorf("stored files = %d; want 1", env.files.count())
	}
}

func TestService_CorrectionFlow(t *testing.T) {
	env := setup(t)
	p := env.createProject(t, "Library System")

	env.upload(t, p, project.StageFormalization, "ficha_formalizacion", env.owner)
	env.review(t, p, project.StageFormalization, "ficha_formalizacion", project.ValidationRejected, "missing signatures")

	item := env.checklistItem(t, p, project.StageFormalization, "ficha_formalizacion")
	if item.Status != project.ValidationRejected {
		t.Errorf("status after rejection = %v; want %v", item.Status, project.ValidationRejected)
	}
	if item.Comments != "missing signatures" {
		t.Errorf("comments = %q; want %q", item.Comments, "missing signatures")
	}

	// re-upload after rejection is a correction and goes back to in-review
	res := env.upload(t, p, project.StageFormalization, "ficha_formalizacion", env.owner)
	if !res.IsCorrection {
		t.Error("re-upload after rejection not flagged as correction")
	}
	if res.PreviousStatus != project.ValidationRejected {
		t.Errorf("PreviousStatus = %v; want %v", res.PreviousStatus, project.ValidationRejected)
	}

	item = env.checklistItem(t, p, project.StageFormalization, "ficha_formalizacion")
	if item.Status != project.ValidationInReview {
		t.Errorf("status after correction = %v; want %v", item.Status, project.ValidationInReview)
	}
	if !strings.HasPrefix(item.Comments, "DOCUMENT CORRECTED") {
		t.Errorf("comments = %q; want a correction marker", item.Comments)
	}

	// history keeps both versions, newest flagged current
	require.Len(t, item.History, 2)
	require.NotNil(t, item.CurrentDocument)
	if item.CurrentDocument.ID != res.Document.ID {
		t.Errorf("CurrentDocument.ID = %v; want %v", item.CurrentDocument.ID, res.Document.ID)
	}
	for _, doc := range item.History {
		if doc.ID != res.Document.ID && doc.Current {
			t.Error("superseded document still flagged current")
		}
	}

	// a re-upload over an in-review requirement is not a correction
	res = env.upload(t, p, project.StageFormalization, "ficha_formalizacion", env.owner)
	if res.IsCorrection {
		t.Error("re-upload over in-review flagged as correction")
	}
}

func TestService_SetRequirementStatus(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	p := env.createProject(t, "Library System")

	// only admins may review
	_, err := env.svc.SetRequirementStatus(ctx, project.ReviewInput{
		ProjectID:     p.ID,
		Stage:         project.StageFormalization,
		RequirementID: "ficha_formalizacion",
		Status:        project.ValidationApproved,
	}, env.owner)
	if !core.IsPermission(err) {
		t.Errorf("review by student error = %v; want permission error", err)
	}

	val := env.review(t, p, project.StageFormalization, "ficha_formalizacion", project.ValidationApproved, "ok")
	if !val.ReviewerID.Valid || val.ReviewerID.String != env.admin.ID {
		t.Errorf("ReviewerID = %v; want %v", val.ReviewerID, env.admin.ID)
	}
	if !val.ReviewedAt.Valid {
		t.Error("ReviewedAt not set")
	}

	// approving a subset does not complete the stage
	env.review(t, p, project.StageFormalization, "carta_compromiso", project.ValidationApproved, "")
	env.review(t, p, project.StageFormalization, "plan_trabajo", project.ValidationApproved, "")

	records, err := env.svc.StageRecords(ctx, p.ID)
	require.NoError(t, err)
	if records[0].Status == project.StageCompleted {
		t.Error("stage completed with an unapproved requirement remaining")
	}
	refreshed, err := env.svc.Get(ctx, p.ID)
	require.NoError(t, err)
	if refreshed.CurrentStage != project.StageFormalization {
		t.Errorf("CurrentStage = %v; want %v", refreshed.CurrentStage, project.StageFormalization)
	}

	// approving the last requirement completes the stage and advances the pipeline
	env.review(t, p, project.StageFormalization, "acta_constitucion", project.ValidationApproved, "")

	records, err = env.svc.StageRecords(ctx, p.ID)
	require.NoError(t, err)
	if records[0].Status != project.StageCompleted {
		t.Errorf("stage status = %v; want %v", records[0].Status, project.StageCompleted)
	}
	if !records[0].CompletedAt.Valid {
		t.Error("CompletedAt not set on completed stage")
	}
	refreshed, err = env.svc.Get(ctx, p.ID)
	require.NoError(t, err)
	if refreshed.CurrentStage != project.StageDesign {
		t.Errorf("CurrentStage = %v; want %v", refreshed.CurrentStage, project.StageDesign)
	}

	assert.Equal(t, []project.Stage{project.StageFormalization}, env.notifier.stagesCompleted)
}

func TestService_ApproveAllInStage(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	p := env.createProject(t, "Library System")

	if err := env.svc.ApproveAllInStage(ctx, p.ID, project.StageFormalization, "fast-tracked", env.owner); !core.IsPermission(err) {
		t.Errorf("bulk approval by student error = %v; want permission error", err)
	}

	require.NoError(t, env.svc.ApproveAllInStage(ctx, p.ID, project.StageFormalization, "fast-tracked", env.admin))

	for _, def := range project.DefaultCatalog().Requirements(project.StageFormalization) {
		item := env.checklistItem(t, p, project.StageFormalization, def.ID)
		if item.Status != project.ValidationApproved {
			t.Errorf("requirement %s status = %v; want %v", def.ID, item.Status, project.ValidationApproved)
		}
	}

	records, err := env.svc.StageRecords(ctx, p.ID)
	require.NoError(t, err)
	if records[0].Status != project.StageCompleted {
		t.Errorf("stage status = %v; want %v", records[0].Status, project.StageCompleted)
	}
	completedAt := records[0].CompletedAt
	refreshed, err := env.svc.Get(ctx, p.ID)
	require.NoError(t, err)
	if refreshed.CurrentStage != project.StageDesign {
		t.Errorf("CurrentStage = %v; want %v", refreshed.CurrentStage, project.StageDesign)
	}

	// calling again is harmless and keeps the original completion time
	require.NoError(t, env.svc.ApproveAllInStage(ctx, p.ID, project.StageFormalization, "again", env.admin))
	records, err = env.svc.StageRecords(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, completedAt, records[0].CompletedAt)

	// completion of the full pipeline approves the project
	for _, stage := range project.StageOrder[1:] {
		require.NoError(t, env.svc.ApproveAllInStage(ctx, p.ID, stage, "", env.admin))
	}
	refreshed, err = env.svc.Get(ctx, p.ID)
	require.NoError(t, err)
	if refreshed.Status != project.StatusApproved {
		t.Errorf("Status = %v; want %v", refreshed.Status, project.StatusApproved)
	}
	if refreshed.CurrentStage != project.StageMaintenance {
		t.Errorf("CurrentStage = %v; want %v", refreshed.CurrentStage, project.StageMaintenance)
	}
}

func TestService_SetStageStatus(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	p := env.createProject(t, "Library System")

	_, err := env.svc.SetStageStatus(ctx, project.StageStatusInput{
		ProjectID: p.ID,
		Stage:     project.StageFormalization,
		Status:    project.StageCompleted,
	}, env.owner)
	if !core.IsPermission(err) {
		t.Errorf("stage override by student error = %v; want permission error", err)
	}

	// explicit completion advances the pipeline
	rec, err := env.svc.SetStageStatus(ctx, project.StageStatusInput{
		ProjectID: p.ID,
		Stage:     project.StageFormalization,
		Status:    project.StageCompleted,
		Comments:  "waved through",
	}, env.admin)
	require.NoError(t, err)
	if rec.Status != project.StageCompleted {
		t.Errorf("Status = %v; want %v", rec.Status, project.StageCompleted)
	}
	refreshed, err := env.svc.Get(ctx, p.ID)
	require.NoError(t, err)
	if refreshed.CurrentStage != project.StageDesign {
		t.Errorf("CurrentStage = %v; want %v", refreshed.CurrentStage, project.StageDesign)
	}

	// moving the stage back does not regress the pipeline pointer
	rec, err = env.svc.SetStageStatus(ctx, project.StageStatusInput{
		ProjectID: p.ID,
		Stage:     project.StageFormalization,
		Status:    project.StageInProgress,
	}, env.admin)
	require.NoError(t, err)
	if rec.Status != project.StageInProgress {
		t.Errorf("Status = %v; want %v", rec.Status, project.StageInProgress)
	}
	refreshed, err = env.svc.Get(ctx, p.ID)
	require.NoError(t, err)
	if refreshed.CurrentStage != project.StageDesign {
		t.Errorf("CurrentStage regressed to %v", refreshed.CurrentStage)
	}
}

func TestService_SetProjectStatus(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	p := env.createProject(t, "Library System")

	if _, err := env.svc.SetProjectStatus(ctx, p.ID, project.StatusRejected, env.owner); !core.IsPermission(err) {
		t.Errorf("status override by student error = %v; want permission error", err)
	}
	if _, err := env.svc.SetProjectStatus(ctx, p.ID, "lol", env.admin); err == nil {
		t.Error("SetProjectStatus() accepted an invalid status")
	}

	refreshed, err := env.svc.SetProjectStatus(ctx, p.ID, project.StatusRejected, env.admin)
	require.NoError(t, err)
	if refreshed.Status != project.StatusRejected {
		t.Errorf("Status = %v; want %v", refreshed.Status, project.StatusRejected)
	}
}

func TestService_DeleteDocument(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	p := env.createProject(t, "Library System")

	first := env.upload(t, p, project.StageFormalization, "ficha_formalizacion", env.owner)
	second := env.upload(t, p, project.StageFormalization, "ficha_formalizacion", env.owner)

	// only the uploader or an admin may delete
	if err := env.svc.DeleteDocument(ctx, first.Document.ID, env.other); !core.IsPermission(err) {
		t.Errorf("delete by stranger error = %v; want permission error", err)
	}

	// deleting one version keeps the requirement in review
	require.NoError(t, env.svc.DeleteDocument(ctx, second.Document.ID, env.owner))
	item := env.checklistItem(t, p, project.StageFormalization, "ficha_formalizacion")
	if item.Status != project.ValidationInReview {
		t.Errorf("status after partial delete = %v; want %v", item.Status, project.ValidationInReview)
	}
	require.Len(t, item.History, 1)

	// deleting the last version reverts the requirement to pending
	require.NoError(t, env.svc.DeleteDocument(ctx, first.Document.ID, env.admin))
	item = env.checklistItem(t, p, project.StageFormalization, "ficha_formalizacion")
	if item.Status != project.ValidationPending {
		t.Errorf("status after full delete = %v; want %v", item.Status, project.ValidationPending)
	}
	if len(item.History) != 0 {
		t.Errorf("history len = %d; want 0", len(item.History))
	}
	if env.files.count() != 0 {
		t.Errorf("stored files = %d; want 0", env.files.count())
	}

	if err := env.svc.DeleteDocument(ctx, first.Document.ID, env.admin); err != project.ErrDocumentNotFound {
		t.Errorf("delete of missing document error = %v; want %v", err, project.ErrDocumentNotFound)
	}
}

func TestService_ListRequirements(t *testing.T) {
	env := setup(t)
	p := env.createProject(t, "Library System")

	items, err := env.svc.ListRequirements(context.Background(), p.ID)
	require.NoError(t, err)

	catalog := project.DefaultCatalog()
	want := 0
	for _, stage := range project.StageOrder {
		want += catalog.Size(stage)
	}
	require.Len(t, items, want)

	// untouched requirements read as pending with no documents
	for _, item := range items {
		if item.Status != project.ValidationPending {
			t.Errorf("%s/%s status = %v; want %v", item.Stage, item.Requirement.ID, item.Status, project.ValidationPending)
		}
		if item.CurrentDocument != nil || len(item.History) != 0 {
			t.Errorf("%s/%s has documents on a fresh project", item.Stage, item.Requirement.ID)
		}
	}

	// items come back grouped in stage order
	lastIdx := -1
	for _, item := range items {
		if idx := item.Stage.Index(); idx < lastIdx {
			t.Fatalf("items out of stage order: %s after index %d", item.Stage, lastIdx)
		} else {
			lastIdx = idx
		}
	}
}

func TestService_OpenDocument(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	p := env.createProject(t, "Library System")
	res := env.upload(t, p, project.StageFormalization, "ficha_formalizacion", env.owner)

	if _, _, err := env.svc.OpenDocument(ctx, res.Document.ID, env.other); !core.IsPermission(err) {
		t.Errorf("open by stranger error = %v; want permission error", err)
	}

	doc, rc, err := env.svc.OpenDocument(ctx, res.Document.ID, env.owner)
	require.NoError(t, err)
	defer rc.Close()
	if doc.ID != res.Document.ID {
		t.Errorf("doc.ID = %v; want %v", doc.ID, res.Document.ID)
	}
	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	if len(content) == 0 {
		t.Error("document content is empty")
	}
}

func TestService_Query(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	p1 := env.createProject(t, "Library System")
	env.createProject(t, "Inventory System")

	all, err := env.svc.Query(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byTitle, err := env.svc.Query(ctx, &project.QueryFilter{Search: "library"})
	require.NoError(t, err)
	require.Len(t, byTitle, 1)
	assert.Equal(t, p1.ID, byTitle[0].ID)

	byOwner, err := env.svc.Query(ctx, &project.QueryFilter{OwnerID: env.other.ID})
	require.NoError(t, err)
	assert.Len(t, byOwner, 0)

	byStage, err := env.svc.Query(ctx, &project.QueryFilter{Stage: project.StageDesign})
	require.NoError(t, err)
	assert.Len(t, byStage, 0)
}
