package storage

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/certkeeper/certkeeper/storage/model"
)

// VerificationsStorage implements model.VerificationsStore. Entries are only
// ever inserted or deleted by a retention sweep, never updated.
type VerificationsStorage struct {
	db *gorm.DB
}

// Create appends a new verification entry
func (s *VerificationsStorage) Create(entry *model.CertificateVerification) error {
	if entry.VerificationTime.IsZero() {
		entry.VerificationTime = time.Now().UTC()
	}
	return errors.Wrap(s.db.Create(entry).Error, "verifications: create failed")
}

// ListByCertificate returns all entries for a certificate, newest first
func (s *VerificationsStorage) ListByCertificate(certificateID string) ([]model.CertificateVerification, error) {
	var entries []model.CertificateVerification
	if err := s.db.Where("certificate_id = ?", certificateID).
		Order("verification_time DESC").Order("id DESC").
		Find(&entries).Error; err != nil {
		return nil, errors.Wrap(err, "verifications: list failed")
	}
	return entries, nil
}

// CountSince counts the entries for a certificate at or after since
func (s *VerificationsStorage) CountSince(certificateID string, since time.Time) (int64, error) {
	var count int64
	if err := s.db.Model(&model.CertificateVerification{}).
		Where("certificate_id = ? AND verification_time >= ?", certificateID, since).
		Count(&count).Error; err != nil {
		return 0, errors.Wrap(err, "verifications: count failed")
	}
	return count, nil
}

// Statistics counts total and successful entries in [from, to). A nil bound
// leaves that side of the range open. The success rate is not computed here.
func (s *VerificationsStorage) Statistics(from, to *time.Time) (model.VerificationStatistics, error) {
	var row struct {
		Total      int64
		Successful int64
	}
	query := s.db.Model(&model.CertificateVerification{}).Select(
		"COUNT(*) AS total, " +
			"COALESCE(SUM(CASE WHEN verification_result = ? THEN 1 ELSE 0 END), 0) AS successful",
		true,
	)
	if from != nil {
		query = query.Where("verification_time >= ?", *from)
	}
	if to != nil {
		query = query.Where("verification_time < ?", *to)
	}
	if err := query.Scan(&row).Error; err != nil {
		return model.VerificationStatistics{}, errors.Wrap(err, "verifications: statistics failed")
	}
	return model.VerificationStatistics{
		Total:      row.Total,
		Successful: row.Successful,
		Failed:     row.Total - row.Successful,
	}, nil
}

// FindBefore returns all entries with a verification time before date
func (s *VerificationsStorage) FindBefore(date time.Time) ([]model.CertificateVerification, error) {
	var entries []model.CertificateVerification
	if err := s.db.Where("verification_time < ?", date).Order("verification_time").
		Find(&entries).Error; err != nil {
		return nil, errors.Wrap(err, "verifications: query failed")
	}
	return entries, nil
}

// DeleteBefore removes all entries with a verification time before date
func (s *VerificationsStorage) DeleteBefore(date time.Time) (int64, error) {
	res := s.db.Where("verification_time < ?", date).Delete(&model.CertificateVerification{})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "verifications: delete failed")
	}
	return res.RowsAffected, nil
}
