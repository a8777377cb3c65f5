package verification

import (
	"context"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/certkeeper/certkeeper/internal/cache"
	"github.com/certkeeper/certkeeper/storage/model"
)

// DateFormat is the format used for dates in verification results
const DateFormat = "2006-01-02"

// DefaultDetailsCacheLifetime is the lifetime of cached certificate details
const DefaultDetailsCacheLifetime = 5 * time.Minute

// Result is the outcome of a single verification
type Result struct {
	Valid      bool                   `json:"valid"`
	MessageKey MessageKey             `json:"message_key"`
	Message    string                 `json:"message"`
	Warnings   []string               `json:"warnings"`
	Data       *model.CertificateData `json:"data"`
}

// DetailView is a read-only projection of a certificate record with its
// certificate and the computed expiry state
type DetailView struct {
	Record        model.CertificateRecord `json:"record"`
	Valid         bool                    `json:"valid"`
	Expired       bool                    `json:"expired"`
	RemainingDays *int                    `json:"remaining_days"`
}

// Options configures a Service
type Options struct {
	Locale             string
	ExpiryWarningDays  int
	FrequencyWindow    time.Duration
	FrequencyThreshold int
	// Now is the clock used for all time based decisions; defaults to
	// time.Now
	Now func() time.Time
	// Cache caches certificate details; optional
	Cache                cache.Cache
	DetailsCacheLifetime time.Duration
	// Geo enriches audit entries with the requester's country; optional
	Geo CountryLookup
}

// Service verifies certificates and gives access to the verification log
type Service struct {
	backends  model.Backends
	now       func() time.Time
	catalog   *Catalog
	evaluator Evaluator
	recorder  Recorder
	guard     FrequencyGuard
	cache     cache.Cache
	cacheTTL  time.Duration
}

// NewService creates a new Service on top of the passed backends
func NewService(backends model.Backends, opts Options) (*Service, error) {
	catalog, err := NewCatalog(opts.Locale)
	if err != nil {
		return nil, err
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	warningDays := opts.ExpiryWarningDays
	if warningDays <= 0 {
		warningDays = DefaultExpiryWarningDays
	}
	cacheTTL := opts.DetailsCacheLifetime
	if cacheTTL <= 0 {
		cacheTTL = DefaultDetailsCacheLifetime
	}
	return &Service{
		backends: backends,
		now:      now,
		catalog:  catalog,
		evaluator: Evaluator{
			Now:         now,
			WarningDays: warningDays,
			Catalog:     catalog,
		},
		recorder: Recorder{
			Store:   backends.Verifications,
			Catalog: catalog,
			Now:     now,
			Geo:     opts.Geo,
		},
		guard: FrequencyGuard{
			Store:     backends.Verifications,
			Now:       now,
			Window:    opts.FrequencyWindow,
			Threshold: opts.FrequencyThreshold,
		},
		cache:    opts.Cache,
		cacheTTL: cacheTTL,
	}, nil
}

// Catalog returns the message catalog used by the service
func (s *Service) Catalog() *Catalog {
	return s.catalog
}

// VerifyByCertificateNumber verifies the certificate with the passed number
func (s *Service) VerifyByCertificateNumber(ctx context.Context, number string) Result {
	return s.verify(
		ctx, model.VerificationMethodCertificateNumber, KeyCertificateNotFound,
		func() (*model.CertificateRecord, error) {
			return s.backends.Records.FindByCertificateNumber(number)
		},
	)
}

// VerifyByVerificationCode verifies the certificate with the passed
// verification code
func (s *Service) VerifyByVerificationCode(ctx context.Context, code string) Result {
	return s.verify(
		ctx, model.VerificationMethodVerificationCode, KeyVerificationCodeInvalid,
		func() (*model.CertificateRecord, error) {
			return s.backends.Records.FindByVerificationCode(code)
		},
	)
}

// VerifyByQRCode verifies the certificate referenced by a scanned QR code
// payload. The payload is either a verification code or a URL that carries
// the code in its "code" query parameter or as its last path segment.
func (s *Service) VerifyByQRCode(ctx context.Context, payload string) Result {
	code := CodeFromQRPayload(payload)
	return s.verify(
		ctx, model.VerificationMethodQRCode, KeyVerificationCodeInvalid,
		func() (*model.CertificateRecord, error) {
			return s.backends.Records.FindByVerificationCode(code)
		},
	)
}

// CodeFromQRPayload extracts the verification code from a QR code payload
func CodeFromQRPayload(payload string) string {
	payload = strings.TrimSpace(payload)
	if !strings.Contains(payload, "://") {
		return payload
	}
	u, err := url.Parse(payload)
	if err != nil {
		return payload
	}
	if code := u.Query().Get("code"); code != "" {
		return code
	}
	path := strings.TrimRight(u.Path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

// BatchVerify verifies each passed certificate number independently. Every
// element is verified and recorded, including duplicates.
func (s *Service) BatchVerify(ctx context.Context, numbers []string) map[string]Result {
	results := make(map[string]Result, len(numbers))
	for _, n := range numbers {
		results[n] = s.VerifyByCertificateNumber(ctx, n)
	}
	return results
}

func (s *Service) verify(
	ctx context.Context, method model.VerificationMethod, notFoundKey MessageKey,
	lookup func() (*model.CertificateRecord, error),
) Result {
	record, err := lookup()
	if err != nil {
		log.WithError(err).WithField("method", method).Error("certificate lookup failed")
		record = nil
	}

	var result Result
	var certificate *model.Certificate
	if record == nil {
		result = Result{
			MessageKey: notFoundKey,
			Message:    s.catalog.Message(notFoundKey),
			Warnings:   []string{},
		}
	} else {
		certificate = &record.Certificate
		verdict := s.evaluator.Evaluate(*record, record.Certificate)
		result = Result{
			Valid:      verdict.Valid,
			MessageKey: verdict.MessageKey,
			Message:    verdict.Message,
			Warnings:   verdict.Warnings,
			Data:       certificateData(*record, verdict.RemainingDays),
		}
		if result.Warnings == nil {
			result.Warnings = []string{}
		}
	}

	_, err = s.recorder.Record(
		ctx, certificate, method, Outcome{
			Valid:      result.Valid,
			MessageKey: result.MessageKey,
			Message:    result.Message,
			Warnings:   result.Warnings,
			Data:       result.Data,
		},
	)
	if err != nil {
		log.WithError(err).WithField("method", method).Error("verification result returned without audit entry")
	}
	return result
}

func certificateData(record model.CertificateRecord, remainingDays *int) *model.CertificateData {
	data := &model.CertificateData{
		CertificateNumber: record.CertificateNumber,
		CertificateType:   record.CertificateType,
		HolderName:        record.Certificate.HolderName,
		Title:             record.Certificate.Title,
		IssueDate:         model.DateOf(record.IssueDate).Format(DateFormat),
		IssuingAuthority:  record.IssuingAuthority,
		RemainingDays:     remainingDays,
	}
	if record.ExpiryDate != nil {
		data.ExpiryDate = model.DateOf(*record.ExpiryDate).Format(DateFormat)
	}
	return data
}

// GetCertificateDetails returns the details of the certificate with the
// passed number, or nil if there is none. Details are not recorded as a
// verification.
func (s *Service) GetCertificateDetails(number string) (*DetailView, error) {
	record, err := s.cachedRecord(number)
	if err != nil || record == nil {
		return nil, err
	}
	remaining := RemainingDays(record.ExpiryDate, s.now())
	return &DetailView{
		Record:        *record,
		Valid:         record.Certificate.Valid,
		Expired:       remaining != nil && *remaining < 0,
		RemainingDays: remaining,
	}, nil
}

func (s *Service) cachedRecord(number string) (*model.CertificateRecord, error) {
	key := cache.Key(cache.KeyCertificateDetails, number)
	if s.cache != nil {
		var record model.CertificateRecord
		found, err := s.cache.Get(key, &record)
		if err != nil {
			log.WithError(err).Warn("could not read certificate details from cache")
		} else if found {
			return &record, nil
		}
	}
	record, err := s.backends.Records.FindByCertificateNumber(number)
	if err != nil || record == nil {
		return nil, err
	}
	if s.cache != nil {
		if err = s.cache.Set(key, record, s.cacheTTL); err != nil {
			log.WithError(err).Warn("could not cache certificate details")
		}
	}
	return record, nil
}

// InvalidateDetails removes cached details for the passed certificate number
func (s *Service) InvalidateDetails(number string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(cache.Key(cache.KeyCertificateDetails, number)); err != nil {
		log.WithError(err).WithField("certificate_number", number).Warn("could not invalidate certificate details")
	}
}

// InvalidateAllDetails removes all cached certificate details
func (s *Service) InvalidateAllDetails() {
	if s.cache == nil {
		return
	}
	if err := s.cache.Clear(cache.KeyCertificateDetails); err != nil {
		log.WithError(err).Warn("could not clear certificate details cache")
	}
}

// GetVerificationHistory returns all verification entries of a certificate,
// newest first
func (s *Service) GetVerificationHistory(certificateID string) ([]model.CertificateVerification, error) {
	entries, err := s.backends.Verifications.ListByCertificate(certificateID)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []model.CertificateVerification{}
	}
	return entries, nil
}

// IsFrequentlyVerified reports whether a certificate was verified at least
// threshold times within window; zero values select the configured defaults
func (s *Service) IsFrequentlyVerified(certificateID string, window time.Duration, threshold int) (bool, error) {
	return s.guard.Check(certificateID, window, threshold)
}

// GetVerificationStatistics aggregates verification entries between start
// and end, both inclusive dates. A nil bound leaves that side open.
func (s *Service) GetVerificationStatistics(start, end *time.Time) (model.VerificationStatistics, error) {
	var from, to *time.Time
	if start != nil {
		d := model.DateOf(*start)
		from = &d
	}
	if end != nil {
		d := model.DateOf(*end).AddDate(0, 0, 1)
		to = &d
	}
	if from != nil && to != nil && !to.After(*from) {
		return model.VerificationStatistics{}, model.InvalidArgumentError("end date must not be before start date")
	}
	stats, err := s.backends.Verifications.Statistics(from, to)
	if err != nil {
		return stats, errors.WithMessage(err, "could not compute verification statistics")
	}
	stats.SuccessRatePercent = SuccessRate(stats.Successful, stats.Total)
	return stats, nil
}

// SuccessRate returns successful/total as a percentage rounded to two
// decimals, or 0 if total is 0
func SuccessRate(successful, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(successful)/float64(total)*10000) / 100
}
