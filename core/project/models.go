package project

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/rmarban/approvio/core"
)

// Stage identifies one of the five fixed phases a project passes through.
type Stage string

const (
	StageFormalization Stage = "formalization"
	StageDesign        Stage = "design"
	StageDelivery      Stage = "delivery"
	StageOperation     Stage = "operation"
	StageMaintenance   Stage = "maintenance"
)

// StageOrder is the fixed progression order. The pipeline walks it front to back.
var StageOrder = []Stage{
	StageFormalization,
	StageDesign,
	StageDelivery,
	StageOperation,
	StageMaintenance,
}

func (s Stage) IsValid() bool {
	return s.Index() >= 0
}

// Index returns the position of s in StageOrder, or -1 if s is unknown.
func (s Stage) Index() int {
	for i, stage := range StageOrder {
		if stage == s {
			return i
		}
	}
	return -1
}

func (s Stage) String() string { return string(s) }

// ValidationStatus is the approval status of one requirement for one project.
type ValidationStatus string

const (
	ValidationPending  ValidationStatus = "pending"
	ValidationInReview ValidationStatus = "in-review"
	ValidationApproved ValidationStatus = "approved"
	ValidationRejected ValidationStatus = "rejected"
)

var validationStatuses = []ValidationStatus{
	ValidationPending, ValidationInReview, ValidationApproved, ValidationRejected,
}

func (s ValidationStatus) IsValid() bool {
	for _, vs := range validationStatuses {
		if vs == s {
			return true
		}
	}
	return false
}

func (s ValidationStatus) String() string { return string(s) }

// StageStatus is the coarse status of one stage for one project.
type StageStatus string

const (
	StagePending    StageStatus = "pending"
	StageInProgress StageStatus = "in-progress"
	StageCompleted  StageStatus = "completed"
	StageRejected   StageStatus = "rejected"
)

var stageStatuses = []StageStatus{StagePending, StageInProgress, StageCompleted, StageRejected}

func (s StageStatus) IsValid() bool {
	for _, ss := range stageStatuses {
		if ss == s {
			return true
		}
	}
	return false
}

func (s StageStatus) String() string { return string(s) }

// ProjectStatus is the overall status of a project.
type ProjectStatus string

const (
	StatusPending    ProjectStatus = "pending"
	StatusInProgress ProjectStatus = "in-progress"
	StatusApproved   ProjectStatus = "approved"
	StatusRejected   ProjectStatus = "rejected"
)

var projectStatuses = []ProjectStatus{StatusPending, StatusInProgress, StatusApproved, StatusRejected}

func (s ProjectStatus) IsValid() bool {
	for _, ps := range projectStatuses {
		if ps == s {
			return true
		}
	}
	return false
}

func (s ProjectStatus) String() string { return string(s) }

type Project struct {
	ID           string        `json:"id"`
	Code         string        `json:"code"` // unique, year-scoped sequence
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	OwnerID      string        `json:"owner_id"`
	Status       ProjectStatus `json:"status"`
	CurrentStage Stage         `json:"current_stage"`
	CreatedAt    time.Time     `json:"created_at"` // UTC
	UpdatedAt    time.Time     `json:"updated_at"` // UTC
}

type StageRecord struct {
	ID          string      `json:"id"`
	ProjectID   string      `json:"project_id"`
	Stage       Stage       `json:"stage"`
	Status      StageStatus `json:"status"`
	Comments    null.String `json:"comments"`
	CompletedAt null.Time   `json:"completed_at"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// RequirementValidation is the mutable approval status of one requirement for
// one project. Uniquely keyed by (project, stage, requirement); absence of a
// record is semantically "pending".
type RequirementValidation struct {
	ID            string           `json:"id"`
	ProjectID     string           `json:"project_id"`
	Stage         Stage            `json:"stage"`
	RequirementID string           `json:"requirement_id"`
	Status        ValidationStatus `json:"status"`
	Comments      null.String      `json:"comments"`
	ReviewerID    null.String      `json:"reviewer_id"`
	ReviewedAt    null.Time        `json:"reviewed_at"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

type Document struct {
	ID            string    `json:"id"`
	ProjectID     string    `json:"project_id"`
	Stage         Stage     `json:"stage"`
	RequirementID string    `json:"requirement_id"`
	Handle        string    `json:"-"` // file storage handle
	OriginalName  string    `json:"original_name"`
	Size          int64     `json:"size"`
	ContentType   string    `json:"content_type"`
	UploaderID    string    `json:"uploader_id"`
	UploadedAt    time.Time `json:"uploaded_at"`
	Current       bool      `json:"current"`
}

// NewProject contains information needed to register a new Project.
type NewProject struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
}

func (np *NewProject) Validate() error {
	np.Title = core.CleanString(np.Title)
	np.Description = core.CleanString(np.Description)
	return core.Validate.Struct(np)
}

// UploadInput describes one incoming document upload.
type UploadInput struct {
	ProjectID     string `json:"project_id" validate:"required"`
	Stage         Stage  `json:"stage" validate:"required,stage"`
	RequirementID string `json:"requirement_id" validate:"required"`
	FileName      string `json:"file_name" validate:"required"`
	ContentType   string `json:"content_type"`
	Size          int64  `json:"size" validate:"gt=0"`
}

func (in *UploadInput) Validate() error {
	in.FileName = core.CleanString(in.FileName)
	in.RequirementID = core.CleanString(in.RequirementID, true /* lower */)
	return core.Validate.Struct(in)
}

// UploadResult reports the registered document plus the correction
// classification made against the requirement's prior validation status.
type UploadResult struct {
	Document       Document         `json:"document"`
	IsCorrection   bool             `json:"is_correction"`
	PreviousStatus ValidationStatus `json:"previous_status"`
}

// ReviewInput mutates one requirement validation.
type ReviewInput struct {
	ProjectID     string           `json:"project_id" validate:"required"`
	Stage         Stage            `json:"stage" validate:"required,stage"`
	RequirementID string           `json:"requirement_id" validate:"required"`
	Status        ValidationStatus `json:"status" validate:"required,valstatus"`
	Comments      string           `json:"comments"`
}

func (in *ReviewInput) Validate() error {
	in.RequirementID = core.CleanString(in.RequirementID, true /* lower */)
	in.Comments = core.CleanString(in.Comments)
	return core.Validate.Struct(in)
}

// StageStatusInput is an explicit administrator stage mutation.
type StageStatusInput struct {
	ProjectID string      `json:"project_id" validate:"required"`
	Stage     Stage       `json:"stage" validate:"required,stage"`
	Status    StageStatus `json:"status" validate:"required,stagestatus"`
	Comments  string      `json:"comments"`
}

func (in *StageStatusInput) Validate() error {
	in.Comments = core.CleanString(in.Comments)
	return core.Validate.Struct(in)
}

// ChecklistItem is one row of the requirement checklist rendered per project.
type ChecklistItem struct {
	Stage           Stage            `json:"stage"`
	Requirement     RequirementDef   `json:"requirement"`
	Status          ValidationStatus `json:"status"`
	Comments        string           `json:"comments,omitempty"`
	ReviewedAt      null.Time        `json:"reviewed_at,omitempty"`
	CurrentDocument *Document        `json:"current_document,omitempty"`
	History         []Document       `json:"history,omitempty"`
}

type QueryFilter struct {
	Search  string        `query:"search"`
	OwnerID string        `query:"owner"`
	Status  ProjectStatus `query:"status"`
	Stage   Stage         `query:"stage"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.OwnerID == "" && qf.Status == "" && qf.Stage == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
