package issuance

import (
	"github.com/pkg/errors"

	"github.com/certkeeper/certkeeper/storage/model"
)

// ApplicationRequest holds the fields of a new application
type ApplicationRequest struct {
	UserID          string         `json:"user_id" validate:"required,max=64"`
	HolderName      string         `json:"holder_name" validate:"required,max=255"`
	Title           string         `json:"title" validate:"required,max=255"`
	TemplateID      string         `json:"template_id" validate:"required"`
	ApplicationData map[string]any `json:"application_data"`
}

// ReviewRequest holds the auditor's decision input
type ReviewRequest struct {
	Auditor string `json:"auditor" validate:"required,max=255"`
	Comment string `json:"comment"`
}

// SubmitApplication creates a pending application for an active template
func (s *Service) SubmitApplication(req ApplicationRequest) (*model.CertificateApplication, error) {
	if err := s.validateStruct(req); err != nil {
		return nil, err
	}
	template, err := s.backends.Templates.Get(req.TemplateID)
	if err != nil {
		var notFound model.NotFoundError
		if errors.As(err, &notFound) {
			return nil, model.InvalidArgumentErrorFmt("unknown template '%s'", req.TemplateID)
		}
		return nil, err
	}
	if !template.Active {
		return nil, model.InvalidArgumentErrorFmt("template '%s' is not active", template.Name)
	}
	app := &model.CertificateApplication{
		UserID:          req.UserID,
		HolderName:      req.HolderName,
		Title:           req.Title,
		TemplateID:      template.ID,
		ApplicationData: req.ApplicationData,
		Status:          model.ApplicationStatusPending,
		AppliedAt:       s.now().UTC(),
	}
	if err = s.backends.Applications.Create(app); err != nil {
		return nil, err
	}
	app.Template = *template
	logEntry("submit_application", app.ID).WithField("user_id", app.UserID).Info("application submitted")
	return app, nil
}

// GetApplication returns an application
func (s *Service) GetApplication(id string) (*model.CertificateApplication, error) {
	return s.backends.Applications.Get(id)
}

// ListApplications returns all applications, optionally filtered by status
func (s *Service) ListApplications(status *model.ApplicationStatus) ([]model.CertificateApplication, error) {
	return s.backends.Applications.List(status)
}

// ListAudits returns the review history of an application
func (s *Service) ListAudits(applicationID string) ([]model.CertificateAudit, error) {
	if _, err := s.backends.Applications.Get(applicationID); err != nil {
		return nil, err
	}
	return s.backends.Audits.ListByApplication(applicationID)
}

// Approve approves a pending application
func (s *Service) Approve(id string, req ReviewRequest) (*model.CertificateApplication, error) {
	return s.review(id, req, model.ApplicationStatusApproved, model.AuditDecisionApproved)
}

// Reject rejects a pending application
func (s *Service) Reject(id string, req ReviewRequest) (*model.CertificateApplication, error) {
	return s.review(id, req, model.ApplicationStatusRejected, model.AuditDecisionRejected)
}

func (s *Service) review(
	id string, req ReviewRequest, status model.ApplicationStatus, decision model.AuditDecision,
) (*model.CertificateApplication, error) {
	if err := s.validateStruct(req); err != nil {
		return nil, err
	}
	app, err := s.backends.Applications.Get(id)
	if err != nil {
		return nil, err
	}
	if app.Status != model.ApplicationStatusPending {
		return nil, model.InvalidArgumentErrorFmt(
			"application is %s, only pending applications can be reviewed", app.Status,
		)
	}
	now := s.now().UTC()
	app.Status = status
	app.ReviewComment = req.Comment
	app.ReviewedAt = &now
	audit := &model.CertificateAudit{
		ApplicationID: app.ID,
		Decision:      decision,
		Comment:       req.Comment,
		Auditor:       req.Auditor,
		AuditTime:     now,
	}
	if err = s.backends.Applications.Review(app, audit); err != nil {
		return nil, err
	}
	logEntry("review_application", app.ID).WithField("decision", decision).Info("application reviewed")
	return app, nil
}
