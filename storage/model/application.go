package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CertificateTemplate describes how certificates of a kind are issued
type CertificateTemplate struct {
	ID               string            `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
	Name             string            `gorm:"uniqueIndex;size:255" json:"name"`
	CertificateType  CertificateType   `gorm:"size:32" json:"certificate_type"`
	IssuingAuthority string            `gorm:"size:255" json:"issuing_authority"`
	// ValidityDays is the lifetime of issued certificates; 0 means they never
	// expire
	ValidityDays int               `json:"validity_days"`
	Active       bool              `json:"active"`
	Config       datatypes.JSONMap `json:"config,omitempty"`
	Description  string            `gorm:"type:text" json:"description"`
}

// BeforeCreate assigns a time-ordered ID if none is set
func (t *CertificateTemplate) BeforeCreate(_ *gorm.DB) error {
	return assignID(&t.ID)
}

// CertificateApplication is a request of a user to be issued a certificate
type CertificateApplication struct {
	ID              string              `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
	UserID          string              `gorm:"index;size:64" json:"user_id"`
	HolderName      string              `gorm:"size:255" json:"holder_name"`
	Title           string              `gorm:"size:255" json:"title"`
	TemplateID      string              `gorm:"index;size:36" json:"template_id"`
	Template        CertificateTemplate `json:"template"`
	ApplicationData datatypes.JSONMap   `json:"application_data,omitempty"`
	Status          ApplicationStatus   `gorm:"index" json:"status"`
	ReviewComment   string              `gorm:"type:text" json:"review_comment,omitempty"`
	AppliedAt       time.Time           `json:"applied_at"`
	ReviewedAt      *time.Time          `json:"reviewed_at,omitempty"`
	CertificateID   *string             `gorm:"size:36" json:"certificate_id,omitempty"`
}

// BeforeCreate assigns a time-ordered ID if none is set
func (a *CertificateApplication) BeforeCreate(_ *gorm.DB) error {
	return assignID(&a.ID)
}

// CertificateAudit records a review decision on an application
type CertificateAudit struct {
	ID            string        `gorm:"primaryKey;size:36" json:"id"`
	ApplicationID string        `gorm:"index;size:36" json:"application_id"`
	Decision      AuditDecision `gorm:"size:16" json:"decision"`
	Comment       string        `gorm:"type:text" json:"comment,omitempty"`
	Auditor       string        `gorm:"size:255" json:"auditor"`
	AuditTime     time.Time     `json:"audit_time"`
}

// BeforeCreate assigns a time-ordered ID if none is set
func (a *CertificateAudit) BeforeCreate(_ *gorm.DB) error {
	return assignID(&a.ID)
}
