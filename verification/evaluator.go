package verification

import (
	"time"

	"github.com/certkeeper/certkeeper/storage/model"
)

// DefaultExpiryWarningDays is the number of remaining days at or below which
// a valid certificate gets an expiry warning
const DefaultExpiryWarningDays = 30

const secondsPerDay = 24 * 60 * 60

// Verdict is the outcome of evaluating a certificate record
type Verdict struct {
	Valid         bool
	MessageKey    MessageKey
	Message       string
	Warnings      []string
	RemainingDays *int
}

// Evaluator decides whether a certificate record is currently valid
type Evaluator struct {
	Now         func() time.Time
	WarningDays int
	Catalog     *Catalog
}

// RemainingDays returns the signed number of calendar days from today until
// expiry, or nil if expiry is nil
func RemainingDays(expiry *time.Time, now time.Time) *int {
	if expiry == nil {
		return nil
	}
	// Unix seconds instead of time.Duration, which saturates after ~292 years
	days := int((model.DateOf(*expiry).Unix() - model.DateOf(now).Unix()) / secondsPerDay)
	return &days
}

// Evaluate computes the verdict for record and its certificate. A revoked
// certificate is invalid regardless of its expiry date.
func (e Evaluator) Evaluate(record model.CertificateRecord, certificate model.Certificate) Verdict {
	now := e.Now()
	remaining := RemainingDays(record.ExpiryDate, now)

	var v Verdict
	switch {
	case !certificate.Valid:
		v.MessageKey = KeyCertificateRevoked
	case remaining != nil && *remaining < 0:
		v.MessageKey = KeyCertificateExpired
	default:
		v.Valid = true
		v.MessageKey = KeyVerificationPassed
	}
	v.Message = e.Catalog.Message(v.MessageKey)
	v.RemainingDays = remaining

	if v.Valid && remaining != nil && *remaining <= e.WarningDays {
		v.Warnings = append(v.Warnings, e.Catalog.Message(KeyExpiringSoon, *remaining))
	}
	return v
}
