package issuance

import (
	"time"

	"github.com/pkg/errors"

	"github.com/certkeeper/certkeeper/storage/model"
)

// IssueRequest holds optional input for issuing a certificate
type IssueRequest struct {
	// IssueDate defaults to today
	IssueDate *time.Time     `json:"issue_date"`
	ImageURL  string         `json:"image_url" validate:"omitempty,url"`
	Metadata  map[string]any `json:"metadata"`
}

// Issue creates a valid certificate and its record for an approved
// application. The expiry date is derived from the template's validity.
func (s *Service) Issue(applicationID string, req IssueRequest) (*model.CertificateRecord, error) {
	if err := s.validateStruct(req); err != nil {
		return nil, err
	}
	app, err := s.backends.Applications.Get(applicationID)
	if err != nil {
		return nil, err
	}
	if app.Status != model.ApplicationStatusApproved {
		return nil, model.InvalidArgumentErrorFmt(
			"application is %s, only approved applications can be issued", app.Status,
		)
	}
	issueDate := model.DateOf(s.now())
	if req.IssueDate != nil {
		issueDate = model.DateOf(*req.IssueDate)
	}
	var expiry *time.Time
	if app.Template.ValidityDays > 0 {
		e := issueDate.AddDate(0, 0, app.Template.ValidityDays)
		expiry = &e
	}

	for attempt := 0; ; attempt++ {
		number, err := generateNumber(issueDate)
		if err != nil {
			return nil, err
		}
		code, err := generateCode()
		if err != nil {
			return nil, err
		}
		certificate := &model.Certificate{
			Title:      app.Title,
			UserID:     app.UserID,
			HolderName: app.HolderName,
			ImageURL:   req.ImageURL,
			Valid:      true,
		}
		record := &model.CertificateRecord{
			CertificateNumber: number,
			VerificationCode:  code,
			CertificateType:   app.Template.CertificateType,
			IssueDate:         issueDate,
			ExpiryDate:        expiry,
			IssuingAuthority:  app.Template.IssuingAuthority,
			Metadata:          req.Metadata,
		}
		app.Status = model.ApplicationStatusIssued
		err = s.backends.Applications.Issue(app, certificate, record)
		if err == nil {
			logEntry("issue", certificate.ID).WithField("certificate_number", number).Info("certificate issued")
			return record, nil
		}
		app.Status = model.ApplicationStatusApproved
		app.CertificateID = nil
		var exists model.AlreadyExistsError
		if !errors.As(err, &exists) || attempt+1 >= maxGenerateAttempts {
			return nil, err
		}
		logEntry("issue", app.ID).WithError(err).Warn("generated certificate number collided, retrying")
	}
}

func (s *Service) record(certificateID string) (*model.CertificateRecord, error) {
	r, err := s.backends.Records.FindByCertificateID(certificateID)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, model.NotFoundErrorFmt("certificate record not found: %s", certificateID)
	}
	return r, nil
}

// Revoke invalidates a certificate
func (s *Service) Revoke(certificateID string) (*model.CertificateRecord, error) {
	return s.setValid(certificateID, false)
}

// Reinstate validates a previously revoked certificate again
func (s *Service) Reinstate(certificateID string) (*model.CertificateRecord, error) {
	return s.setValid(certificateID, true)
}

func (s *Service) setValid(certificateID string, valid bool) (*model.CertificateRecord, error) {
	r, err := s.record(certificateID)
	if err != nil {
		return nil, err
	}
	c, err := s.backends.Certificates.SetValid(certificateID, valid)
	if err != nil {
		return nil, err
	}
	r.Certificate = *c
	s.changed(r.CertificateNumber)
	logEntry("set_valid", certificateID).WithField("valid", valid).Info("certificate validity changed")
	return r, nil
}

// Renew sets a new expiry date; nil makes the certificate never expire. The
// expiry date must not be before the issue date.
func (s *Service) Renew(certificateID string, expiry *time.Time) (*model.CertificateRecord, error) {
	r, err := s.record(certificateID)
	if err != nil {
		return nil, err
	}
	if expiry != nil && model.DateOf(*expiry).Before(model.DateOf(r.IssueDate)) {
		return nil, model.InvalidArgumentError("expiry date must not be before the issue date")
	}
	r, err = s.backends.Records.UpdateExpiry(certificateID, expiry)
	if err != nil {
		return nil, err
	}
	s.changed(r.CertificateNumber)
	logEntry("renew", certificateID).Info("certificate renewed")
	return r, nil
}

// UpdateMetadata replaces the metadata of an issued certificate
func (s *Service) UpdateMetadata(certificateID string, metadata map[string]any) (*model.CertificateRecord, error) {
	r, err := s.backends.Records.UpdateMetadata(certificateID, metadata)
	if err != nil {
		return nil, err
	}
	s.changed(r.CertificateNumber)
	return r, nil
}
