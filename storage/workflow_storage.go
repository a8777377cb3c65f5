package storage

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/certkeeper/certkeeper/storage/model"
)

// TemplatesStorage implements model.TemplatesStore
type TemplatesStorage struct {
	db *gorm.DB
}

// List returns all templates
func (s *TemplatesStorage) List() ([]model.CertificateTemplate, error) {
	var items []model.CertificateTemplate
	if err := s.db.Order("name").Find(&items).Error; err != nil {
		return nil, errors.Wrap(err, "templates: list failed")
	}
	return items, nil
}

// Get returns a template by id
func (s *TemplatesStorage) Get(id string) (*model.CertificateTemplate, error) {
	var item model.CertificateTemplate
	if err := s.db.Where("id = ?", id).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.NotFoundErrorFmt("template not found: %s", id)
		}
		return nil, errors.Wrap(err, "templates: get failed")
	}
	return &item, nil
}

// Create inserts a new template
func (s *TemplatesStorage) Create(template *model.CertificateTemplate) error {
	if err := s.db.Create(template).Error; err != nil {
		if isUniqueConstraintError(err) {
			return model.AlreadyExistsErrorFmt("template already exists: %s", template.Name)
		}
		return errors.Wrap(err, "templates: create failed")
	}
	return nil
}

// Update saves all fields of an existing template
func (s *TemplatesStorage) Update(template *model.CertificateTemplate) error {
	if _, err := s.Get(template.ID); err != nil {
		return err
	}
	if err := s.db.Save(template).Error; err != nil {
		if isUniqueConstraintError(err) {
			return model.AlreadyExistsErrorFmt("template already exists: %s", template.Name)
		}
		return errors.Wrap(err, "templates: update failed")
	}
	return nil
}

// Delete removes a template
func (s *TemplatesStorage) Delete(id string) error {
	res := s.db.Where("id = ?", id).Delete(&model.CertificateTemplate{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "templates: delete failed")
	}
	if res.RowsAffected == 0 {
		return model.NotFoundErrorFmt("template not found: %s", id)
	}
	return nil
}

// ApplicationsStorage implements model.ApplicationsStore
type ApplicationsStorage struct {
	db *gorm.DB
}

// List returns all applications, optionally only those with a given status
func (s *ApplicationsStorage) List(status *model.ApplicationStatus) ([]model.CertificateApplication, error) {
	var items []model.CertificateApplication
	query := s.db.Preload("Template").Order("applied_at DESC")
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	if err := query.Find(&items).Error; err != nil {
		return nil, errors.Wrap(err, "applications: list failed")
	}
	return items, nil
}

// Get returns an application by id
func (s *ApplicationsStorage) Get(id string) (*model.CertificateApplication, error) {
	var item model.CertificateApplication
	if err := s.db.Preload("Template").Where("id = ?", id).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.NotFoundErrorFmt("application not found: %s", id)
		}
		return nil, errors.Wrap(err, "applications: get failed")
	}
	return &item, nil
}

// Create inserts a new application
func (s *ApplicationsStorage) Create(application *model.CertificateApplication) error {
	return errors.Wrap(
		s.db.Omit(clause.Associations).Create(application).Error,
		"applications: create failed",
	)
}

// Review stores the reviewed application and the audit entry. The
// application must still be pending in the database.
func (s *ApplicationsStorage) Review(application *model.CertificateApplication, audit *model.CertificateAudit) error {
	return s.db.Transaction(
		func(tx *gorm.DB) error {
			if err := saveApplication(tx, application, model.ApplicationStatusPending); err != nil {
				return err
			}
			return errors.Wrap(tx.Create(audit).Error, "applications: failed to store audit")
		},
	)
}

// Issue stores certificate and record and the issued application. The
// application must still be approved in the database; otherwise nothing is
// stored.
func (s *ApplicationsStorage) Issue(
	application *model.CertificateApplication, certificate *model.Certificate, record *model.CertificateRecord,
) error {
	return s.db.Transaction(
		func(tx *gorm.DB) error {
			if err := tx.Create(certificate).Error; err != nil {
				return errors.Wrap(err, "applications: failed to store certificate")
			}
			record.CertificateID = certificate.ID
			if err := createRecord(tx, record); err != nil {
				return err
			}
			record.Certificate = *certificate
			application.CertificateID = &certificate.ID
			return saveApplication(tx, application, model.ApplicationStatusApproved)
		},
	)
}

// saveApplication writes the workflow fields of application if its stored
// status is still from
func saveApplication(tx *gorm.DB, application *model.CertificateApplication, from model.ApplicationStatus) error {
	res := tx.Model(&model.CertificateApplication{}).
		Where("id = ? AND status = ?", application.ID, from).
		Updates(
			map[string]any{
				"status":         application.Status,
				"review_comment": application.ReviewComment,
				"reviewed_at":    application.ReviewedAt,
				"certificate_id": application.CertificateID,
			},
		)
	if res.Error != nil {
		return errors.Wrap(res.Error, "applications: update failed")
	}
	if res.RowsAffected > 0 {
		return nil
	}
	var current model.CertificateApplication
	if err := tx.Select("status").Where("id = ?", application.ID).First(&current).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.NotFoundErrorFmt("application not found: %s", application.ID)
		}
		return errors.Wrap(err, "applications: update failed")
	}
	return model.InvalidArgumentErrorFmt(
		"application is %s, expected %s", current.Status, from,
	)
}

// AuditsStorage implements model.AuditsStore
type AuditsStorage struct {
	db *gorm.DB
}

// ListByApplication returns all audit entries of an application, oldest first
func (s *AuditsStorage) ListByApplication(applicationID string) ([]model.CertificateAudit, error) {
	var items []model.CertificateAudit
	if err := s.db.Where("application_id = ?", applicationID).Order("audit_time").
		Find(&items).Error; err != nil {
		return nil, errors.Wrap(err, "audits: list failed")
	}
	return items, nil
}
