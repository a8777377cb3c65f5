package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Certificate is the holder-facing, revocable credential.
type Certificate struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Title      string    `gorm:"size:255" json:"title"`
	UserID     string    `gorm:"index;size:64" json:"user_id"`
	HolderName string    `gorm:"size:255" json:"holder_name"`
	ImageURL   string    `gorm:"type:text" json:"image_url,omitempty"`
	// Valid is false until the certificate is issued and again after a
	// revocation
	Valid bool `gorm:"index;default:false" json:"valid"`
}

// BeforeCreate assigns a time-ordered ID if none is set
func (c *Certificate) BeforeCreate(_ *gorm.DB) error {
	return assignID(&c.ID)
}

// CertificateRecord holds the facts of an issued certificate. It is immutable
// except for ExpiryDate (renewal) and Metadata.
type CertificateRecord struct {
	ID                string            `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
	CertificateID     string            `gorm:"uniqueIndex;size:36;not null" json:"certificate_id"`
	Certificate       Certificate       `gorm:"constraint:OnDelete:CASCADE" json:"certificate"`
	CertificateNumber string            `gorm:"uniqueIndex;size:64;not null" json:"certificate_number"`
	VerificationCode  string            `gorm:"uniqueIndex;size:64;not null" json:"verification_code"`
	CertificateType   CertificateType   `gorm:"index;size:32" json:"certificate_type"`
	IssueDate         time.Time         `gorm:"type:date" json:"issue_date"`
	ExpiryDate        *time.Time        `gorm:"type:date;index" json:"expiry_date,omitempty"`
	IssuingAuthority  string            `gorm:"index;size:255" json:"issuing_authority"`
	Metadata          datatypes.JSONMap `json:"metadata,omitempty"`
}

// BeforeCreate assigns a time-ordered ID if none is set
func (r *CertificateRecord) BeforeCreate(_ *gorm.DB) error {
	return assignID(&r.ID)
}

// HasExpiry reports whether the record has an expiry date
func (r CertificateRecord) HasExpiry() bool {
	return r.ExpiryDate != nil
}

// assignID sets a UUIDv7 into id if it is empty
func assignID(id *string) error {
	if *id != "" {
		return nil
	}
	u, err := uuid.NewV7()
	if err != nil {
		return err
	}
	*id = u.String()
	return nil
}

// DateOf returns the UTC calendar date of t as midnight UTC. Dates in the
// database carry no time component, so all date comparisons go through this
// function.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
