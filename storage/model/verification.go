package model

import (
	"time"

	"gorm.io/gorm"
)

// CertificateData is the display data attached to a verification outcome
type CertificateData struct {
	CertificateNumber string          `json:"certificate_number"`
	CertificateType   CertificateType `json:"certificate_type"`
	HolderName        string          `json:"holder_name"`
	Title             string          `json:"title"`
	IssueDate         string          `json:"issue_date"`
	ExpiryDate        string          `json:"expiry_date,omitempty"`
	IssuingAuthority  string          `json:"issuing_authority"`
	RemainingDays     *int            `json:"remaining_days"`
}

// VerificationDetails is the structured outcome stored with every
// verification attempt. Extra holds additional values that are not part of
// the fixed schema, e.g. the GeoIP country of the requester.
type VerificationDetails struct {
	Valid      bool             `json:"valid"`
	MessageKey string           `json:"message_key"`
	Message    string           `json:"message"`
	Warnings   []string         `json:"warnings,omitempty"`
	Data       *CertificateData `json:"data,omitempty"`
	Extra      map[string]any   `json:"extra,omitempty"`
}

// CertificateVerification is an append-only audit entry for a single
// verification attempt. CertificateID is nil if the lookup failed.
type CertificateVerification struct {
	ID                  string              `gorm:"primaryKey;size:36" json:"id"`
	CertificateID       *string             `gorm:"index;size:36" json:"certificate_id"`
	VerificationMethod  VerificationMethod  `gorm:"size:32;index" json:"verification_method"`
	VerificationResult  bool                `gorm:"index" json:"verification_result"`
	VerificationDetails VerificationDetails `gorm:"serializer:json;type:text" json:"verification_details"`
	IPAddress           string              `gorm:"size:64" json:"ip_address,omitempty"`
	UserAgent           string              `gorm:"type:text" json:"user_agent,omitempty"`
	VerifierInfo        string              `gorm:"type:text" json:"verifier_info,omitempty"`
	VerificationTime    time.Time           `gorm:"index" json:"verification_time"`
}

// BeforeCreate assigns a time-ordered ID if none is set
func (v *CertificateVerification) BeforeCreate(_ *gorm.DB) error {
	return assignID(&v.ID)
}

// VerificationStatistics aggregates verification attempts
type VerificationStatistics struct {
	Total              int64   `json:"total"`
	Successful         int64   `json:"successful"`
	Failed             int64   `json:"failed"`
	SuccessRatePercent float64 `json:"success_rate"`
}
