package notifsvc

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/rmarban/approvio/core"
	"github.com/rmarban/approvio/core/project"
	"github.com/rmarban/approvio/core/user"
)

const lookupTimeout = 10 * time.Second

// EmailNotifier turns workflow events into emails. Recipient lookups and
// delivery run in the background so callers never block on them.
type EmailNotifier struct {
	usrRepo user.Repository
	mailSvc core.EmailService
	logger  core.Logger
	conf    *core.Config
}

var _ project.Notifier = (*EmailNotifier)(nil)

func NewEmailNotifier(usrRepo user.Repository, mailSvc core.EmailService, logger core.Logger, conf *core.Config) *EmailNotifier {
	return &EmailNotifier{usrRepo: usrRepo, mailSvc: mailSvc, logger: logger, conf: conf}
}

func (n *EmailNotifier) ProjectCreated(p project.Project, owner user.User) {
	go func() {
		n.send(&core.EmailMessage{
			To:      []mail.Address{{Name: owner.Name, Address: owner.Email}},
			Subject: fmt.Sprintf("[%s] Project %s registered", n.conf.AppName, p.Code),
			BodyStr: fmt.Sprintf(
				"Hi %s,\n\nYour project %q has been registered under code %s.\n"+
					"Upload the required documents for each stage at %s to move it forward.",
				owner.Name, p.Title, p.Code, n.conf.FrontendBaseURL,
			),
		})
	}()
}

func (n *EmailNotifier) DocumentUploaded(p project.Project, doc project.Document, uploader user.User, isCorrection bool) {
	go func() {
		kind := "submitted"
		if isCorrection {
			kind = "corrected"
		}

		msgs := []*core.EmailMessage{{
			To:      []mail.Address{{Name: uploader.Name, Address: uploader.Email}},
			Subject: fmt.Sprintf("[%s] %s: document %s", n.conf.AppName, p.Code, kind),
			BodyStr: fmt.Sprintf(
				"Hi %s,\n\nYour document %q for requirement %q of project %s was %s and is now awaiting review.",
				uploader.Name, doc.OriginalName, doc.RequirementID, p.Code, kind,
			),
		}}

		if reviewers := n.reviewers(); len(reviewers) > 0 {
			msgs = append(msgs, &core.EmailMessage{
				To:      reviewers,
				Subject: fmt.Sprintf("[%s] %s: review needed", n.conf.AppName, p.Code),
				BodyStr: fmt.Sprintf(
					"A document was %s for requirement %q in the %s stage of project %s (%s) and needs review.",
					kind, doc.RequirementID, doc.Stage, p.Code, p.Title,
				),
			})
		}
		n.send(msgs...)
	}()
}

func (n *EmailNotifier) RequirementReviewed(p project.Project, stage project.Stage, req project.RequirementDef, status project.ValidationStatus, comments string) {
	go func() {
		owner, ok := n.owner(p)
		if !ok {
			return
		}
		body := fmt.Sprintf(
			"Hi %s,\n\nRequirement %q in the %s stage of project %s was reviewed: %s.",
			owner.Name, req.Name, stage, p.Code, status,
		)
		if comments != "" {
			body += "\n\nReviewer comments:\n" + comments
		}
		if status == project.ValidationRejected {
			body += "\n\nPlease upload a corrected document to continue."
		}
		n.send(&core.EmailMessage{
			To:      []mail.Address{{Name: owner.Name, Address: owner.Email}},
			Subject: fmt.Sprintf("[%s] %s: requirement %s", n.conf.AppName, p.Code, status),
			BodyStr: body,
		})
	}()
}

func (n *EmailNotifier) StageCompleted(p project.Project, stage project.Stage) {
	go func() {
		owner, ok := n.owner(p)
		if !ok {
			return
		}
		body := fmt.Sprintf(
			"Hi %s,\n\nThe %s stage of project %s is complete.",
			owner.Name, stage, p.Code,
		)
		if p.Status == project.StatusApproved {
			body += "\n\nAll stages are approved. Congratulations, the project is closed."
		} else {
			body += fmt.Sprintf("\n\nThe project has moved on to the %s stage.", p.CurrentStage)
		}
		n.send(&core.EmailMessage{
			To:      []mail.Address{{Name: owner.Name, Address: owner.Email}},
			Subject: fmt.Sprintf("[%s] %s: %s stage completed", n.conf.AppName, p.Code, stage),
			BodyStr: body,
		})
	}()
}

func (n *EmailNotifier) owner(p project.Project) (user.User, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()

	owner, err := n.usrRepo.GetUser(ctx, user.GetFilter{ID: p.OwnerID})
	if err != nil {
		n.logger.Warn(fmt.Sprintf("notifsvc: resolving owner of project %s: %v", p.Code, err), err)
		return user.User{}, false
	}
	if owner.Email == "" {
		return user.User{}, false
	}
	return owner, true
}

func (n *EmailNotifier) reviewers() []mail.Address {
	ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()

	active := true
	admins, err := n.usrRepo.QueryUsers(ctx, &user.QueryFilter{
		Roles:    []string{user.RoleAdmin, user.RoleAdminCoordinator},
		IsActive: &active,
	})
	if err != nil {
		n.logger.Warn(fmt.Sprintf("notifsvc: resolving reviewers: %v", err), err)
		return nil
	}

	addrs := make([]mail.Address, 0, len(admins))
	for _, adm := range admins {
		if adm.Email != "" {
			addrs = append(addrs, mail.Address{Name: adm.Name, Address: adm.Email})
		}
	}
	return addrs
}

func (n *EmailNotifier) send(msgs ...*core.EmailMessage) {
	if len(msgs) > 0 {
		n.mailSvc.SendMessages(msgs...)
	}
}
