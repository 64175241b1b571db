package project

import "github.com/rmarban/approvio/core/user"

// Notifier receives workflow events for outbound delivery. Implementations
// must be fire-and-forget: the engine neither awaits nor depends on their
// outcome, so a failing dispatcher is structurally incapable of affecting
// the transactional result.
type Notifier interface {
	ProjectCreated(p Project, owner user.User)
	DocumentUploaded(p Project, doc Document, uploader user.User, isCorrection bool)
	RequirementReviewed(p Project, stage Stage, req RequirementDef, status ValidationStatus, comments string)
	StageCompleted(p Project, stage Stage)
}

// NopNotifier drops all events.
type NopNotifier struct{}

var _ Notifier = (*NopNotifier)(nil)

func (NopNotifier) ProjectCreated(Project, user.User)                 {}
func (NopNotifier) DocumentUploaded(Project, Document, user.User, bool) {}
func (NopNotifier) RequirementReviewed(Project, Stage, RequirementDef, ValidationStatus, string) {
}
func (NopNotifier) StageCompleted(Project, Stage) {}
