// Package issuance implements the certificate workflow from templates and
// applications through review to issuance, revocation and renewal.
package issuance

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"tideland.dev/go/slices"

	"github.com/certkeeper/certkeeper/storage/model"
)

const (
	numberPrefix      = "CERT"
	numberRandomChars = 8
	codeLength        = 12
	// maxGenerateAttempts bounds the retries when a generated number or code
	// collides with an existing one
	maxGenerateAttempts = 5
)

// Codes do not contain easily confused characters
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Service implements the issuance workflow
type Service struct {
	backends         model.Backends
	now              func() time.Time
	validate         *validator.Validate
	certificateTypes []model.CertificateType
	// Changed is called with the certificate number whenever an issued
	// certificate changes; optional
	Changed func(certificateNumber string)
}

// NewService creates a new Service. If no certificate types are passed the
// builtin types are allowed.
func NewService(
	backends model.Backends, now func() time.Time, certificateTypes ...model.CertificateType,
) *Service {
	if now == nil {
		now = time.Now
	}
	if len(certificateTypes) == 0 {
		certificateTypes = model.BuiltinCertificateTypes
	}
	return &Service{
		backends:         backends,
		now:              now,
		validate:         validator.New(validator.WithRequiredStructEnabled()),
		certificateTypes: certificateTypes,
	}
}

func (s *Service) changed(number string) {
	if s.Changed != nil {
		s.Changed(number)
	}
}

func (s *Service) validateStruct(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		if fe.Param() != "" {
			msgs[i] = fmt.Sprintf("%s must satisfy '%s=%s'", fe.Field(), fe.Tag(), fe.Param())
		} else {
			msgs[i] = fmt.Sprintf("%s must satisfy '%s'", fe.Field(), fe.Tag())
		}
	}
	return model.InvalidArgumentError(strings.Join(msgs, "; "))
}

func (s *Service) checkCertificateType(t model.CertificateType) error {
	if unsupported := slices.Subtract([]model.CertificateType{t}, s.certificateTypes); len(unsupported) > 0 {
		return model.InvalidArgumentErrorFmt("unsupported certificate type '%s'", t)
	}
	return nil
}

// generateNumber returns a certificate number of the form
// CERT-YYYYMMDD-XXXXXXXX
func generateNumber(issueDate time.Time) (string, error) {
	r, err := randomString(numberRandomChars)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%s", numberPrefix, issueDate.Format("20060102"), r), nil
}

func generateCode() (string, error) {
	return randomString(codeLength)
}

func randomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "failed to read random bytes")
	}
	for i := range b {
		b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	return string(b), nil
}

func logEntry(action, id string) *log.Entry {
	return log.WithFields(
		log.Fields{
			"action": action,
			"id":     id,
		},
	)
}
