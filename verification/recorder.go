package verification

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/certkeeper/certkeeper/storage/model"
)

// CountryLookup resolves an IP address to an ISO country code
type CountryLookup interface {
	Country(ip string) (string, error)
}

// Outcome is what gets recorded for a single verification attempt
type Outcome struct {
	Valid      bool
	MessageKey MessageKey
	Message    string
	Warnings   []string
	Data       *model.CertificateData
}

// Recorder writes one audit entry per verification attempt
type Recorder struct {
	Store   model.VerificationsStore
	Catalog *Catalog
	Now     func() time.Time
	// Geo is optional; if set the requester's country is stored in the
	// entry's extra details
	Geo CountryLookup
}

// Record persists a new audit entry. certificate is nil if the lookup failed.
func (r Recorder) Record(
	ctx context.Context, certificate *model.Certificate, method model.VerificationMethod, outcome Outcome,
) (*model.CertificateVerification, error) {
	info := RequestInfoFromContext(ctx)
	entry := &model.CertificateVerification{
		VerificationMethod: method,
		VerificationResult: outcome.Valid,
		VerificationDetails: model.VerificationDetails{
			Valid:      outcome.Valid,
			MessageKey: string(outcome.MessageKey),
			Message:    outcome.Message,
			Warnings:   outcome.Warnings,
			Data:       outcome.Data,
		},
		IPAddress:        info.IP,
		UserAgent:        info.UserAgent,
		VerifierInfo:     info.VerifierInfo(r.Catalog),
		VerificationTime: r.Now().UTC(),
	}
	if certificate != nil {
		id := certificate.ID
		entry.CertificateID = &id
	}
	if r.Geo != nil && info.IP != "" {
		country, err := r.Geo.Country(info.IP)
		if err != nil {
			log.WithError(err).WithField("ip", info.IP).Debug("geoip lookup failed")
		} else if country != "" {
			entry.VerificationDetails.Extra = map[string]any{"country": country}
		}
	}
	if err := r.Store.Create(entry); err != nil {
		return nil, errors.Wrap(err, "could not record verification")
	}
	return entry, nil
}
