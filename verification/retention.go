package verification

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/certkeeper/certkeeper/storage/model"
)

// Archiver stores verification entries before they are purged
type Archiver interface {
	Archive(entries []model.CertificateVerification) error
}

// RetentionPolicy configures a cleanup run. A non-positive number of days
// disables the respective part.
type RetentionPolicy struct {
	// VerificationDays is the number of days verification entries are kept
	VerificationDays int
	// ExpiredRecordDays is the number of days after their expiry that
	// certificate records are kept
	ExpiredRecordDays int
	// Archive is optional; if set, purged verification entries are written
	// to it first
	Archive Archiver
}

// CleanupResult reports what a cleanup run removed
type CleanupResult struct {
	VerificationsDeleted int64 `json:"verifications_deleted"`
	VerificationsArchive int   `json:"verifications_archived"`
	RecordsDeleted       int64 `json:"records_deleted"`
}

// Cleanup purges old verification entries and long expired certificates
func (s *Service) Cleanup(policy RetentionPolicy) (res CleanupResult, err error) {
	today := model.DateOf(s.now())
	if policy.VerificationDays > 0 {
		before := today.AddDate(0, 0, -policy.VerificationDays)
		if policy.Archive != nil {
			entries, err := s.backends.Verifications.FindBefore(before)
			if err != nil {
				return res, err
			}
			if err = policy.Archive.Archive(entries); err != nil {
				return res, errors.WithMessage(err, "verifications were not purged")
			}
			res.VerificationsArchive = len(entries)
		}
		res.VerificationsDeleted, err = s.backends.Verifications.DeleteBefore(before)
		if err != nil {
			return res, err
		}
	}
	if policy.ExpiredRecordDays > 0 {
		before := today.AddDate(0, 0, -policy.ExpiredRecordDays)
		records, err := s.backends.Records.FindExpiredBefore(before)
		if err != nil {
			return res, err
		}
		if len(records) > 0 {
			res.RecordsDeleted, err = s.backends.Records.DeleteWithCertificates(records)
			if err != nil {
				return res, err
			}
			for _, r := range records {
				s.InvalidateDetails(r.CertificateNumber)
			}
		}
	}
	log.WithFields(
		log.Fields{
			"verifications_deleted":  res.VerificationsDeleted,
			"verifications_archived": res.VerificationsArchive,
			"records_deleted":        res.RecordsDeleted,
		},
	).Info("retention cleanup finished")
	return res, nil
}
