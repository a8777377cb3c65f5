package issuance

import (
	"github.com/certkeeper/certkeeper/storage/model"
)

// TemplateRequest holds the fields to create or update a template
type TemplateRequest struct {
	Name             string                `json:"name" validate:"required,max=255"`
	CertificateType  model.CertificateType `json:"certificate_type" validate:"required"`
	IssuingAuthority string                `json:"issuing_authority" validate:"required,max=255"`
	ValidityDays     int                   `json:"validity_days" validate:"gte=0"`
	// Active defaults to true
	Active      *bool          `json:"active"`
	Config      map[string]any `json:"config"`
	Description string         `json:"description"`
}

func (s *Service) applyTemplateRequest(t *model.CertificateTemplate, req TemplateRequest) error {
	if err := s.validateStruct(req); err != nil {
		return err
	}
	if err := s.checkCertificateType(req.CertificateType); err != nil {
		return err
	}
	t.Name = req.Name
	t.CertificateType = req.CertificateType
	t.IssuingAuthority = req.IssuingAuthority
	t.ValidityDays = req.ValidityDays
	t.Active = req.Active == nil || *req.Active
	t.Config = req.Config
	t.Description = req.Description
	return nil
}

// CreateTemplate creates a new certificate template
func (s *Service) CreateTemplate(req TemplateRequest) (*model.CertificateTemplate, error) {
	var t model.CertificateTemplate
	if err := s.applyTemplateRequest(&t, req); err != nil {
		return nil, err
	}
	if err := s.backends.Templates.Create(&t); err != nil {
		return nil, err
	}
	logEntry("create_template", t.ID).WithField("name", t.Name).Info("template created")
	return &t, nil
}

// UpdateTemplate replaces the fields of an existing template
func (s *Service) UpdateTemplate(id string, req TemplateRequest) (*model.CertificateTemplate, error) {
	t, err := s.backends.Templates.Get(id)
	if err != nil {
		return nil, err
	}
	if err = s.applyTemplateRequest(t, req); err != nil {
		return nil, err
	}
	if err = s.backends.Templates.Update(t); err != nil {
		return nil, err
	}
	return t, nil
}

// GetTemplate returns a template
func (s *Service) GetTemplate(id string) (*model.CertificateTemplate, error) {
	return s.backends.Templates.Get(id)
}

// ListTemplates returns all templates
func (s *Service) ListTemplates() ([]model.CertificateTemplate, error) {
	return s.backends.Templates.List()
}

// DeleteTemplate removes a template
func (s *Service) DeleteTemplate(id string) error {
	return s.backends.Templates.Delete(id)
}
