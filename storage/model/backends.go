package model

import (
	"time"
)

// Backends groups all storage interfaces used by the application.
// It provides a single struct that can be passed around instead of
// multiple return values for each storage backend.
type Backends struct {
	Certificates  CertificatesStore
	Records       RecordsStore
	Verifications VerificationsStore
	Templates     TemplatesStore
	Applications  ApplicationsStore
	Audits        AuditsStore
}

// CertificatesStore gives access to Certificate entities
type CertificatesStore interface {
	// Get returns the certificate with the passed id or a NotFoundError
	Get(id string) (*Certificate, error)
	// SetValid sets the revocation flag of a certificate
	SetValid(id string, valid bool) (*Certificate, error)
}

// RecordsStore gives access to CertificateRecord entities.
// Lookups return (nil, nil) if no record matches.
type RecordsStore interface {
	FindByCertificateNumber(number string) (*CertificateRecord, error)
	FindByVerificationCode(code string) (*CertificateRecord, error)
	FindByCertificateID(certificateID string) (*CertificateRecord, error)
	FindByType(certificateType CertificateType) ([]CertificateRecord, error)
	FindByIssuingAuthority(authority string) ([]CertificateRecord, error)
	// FindExpiringBetween returns records with an expiry date in [from, to]
	FindExpiringBetween(from, to time.Time) ([]CertificateRecord, error)
	// FindExpiredBefore returns records with an expiry date before date
	FindExpiredBefore(date time.Time) ([]CertificateRecord, error)
	NumbersByType(certificateType CertificateType) ([]string, error)
	NumbersExpiringBetween(from, to time.Time) ([]string, error)
	NumbersByIssuingAuthority(authority string) ([]string, error)
	// Create inserts a new record; a duplicate number, code or certificate
	// results in an AlreadyExistsError
	Create(record *CertificateRecord) error
	UpdateExpiry(certificateID string, expiry *time.Time) (*CertificateRecord, error)
	UpdateMetadata(certificateID string, metadata map[string]any) (*CertificateRecord, error)
	// DeleteWithCertificates removes the passed records together with their
	// certificates
	DeleteWithCertificates(records []CertificateRecord) (int64, error)
}

// VerificationsStore gives access to the append-only verification log
type VerificationsStore interface {
	Create(entry *CertificateVerification) error
	// ListByCertificate returns all entries for a certificate, newest first
	ListByCertificate(certificateID string) ([]CertificateVerification, error)
	// CountSince counts the entries for a certificate with a verification
	// time at or after since
	CountSince(certificateID string, since time.Time) (int64, error)
	// Statistics aggregates entries in [from, to); nil bounds are open
	Statistics(from, to *time.Time) (VerificationStatistics, error)
	FindBefore(date time.Time) ([]CertificateVerification, error)
	DeleteBefore(date time.Time) (int64, error)
}

// TemplatesStore gives access to CertificateTemplate entities
type TemplatesStore interface {
	List() ([]CertificateTemplate, error)
	Get(id string) (*CertificateTemplate, error)
	Create(template *CertificateTemplate) error
	Update(template *CertificateTemplate) error
	Delete(id string) error
}

// ApplicationsStore gives access to CertificateApplication entities
type ApplicationsStore interface {
	List(status *ApplicationStatus) ([]CertificateApplication, error)
	Get(id string) (*CertificateApplication, error)
	Create(application *CertificateApplication) error
	// Review stores the new status of the application together with the
	// audit entry in one transaction
	Review(application *CertificateApplication, audit *CertificateAudit) error
	// Issue stores certificate and record and marks the application as issued
	// in one transaction
	Issue(application *CertificateApplication, certificate *Certificate, record *CertificateRecord) error
}

// AuditsStore gives access to CertificateAudit entities
type AuditsStore interface {
	ListByApplication(applicationID string) ([]CertificateAudit, error)
}
