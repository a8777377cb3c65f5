package storage

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/certkeeper/certkeeper/storage/model"
)

// RecordsStorage implements model.RecordsStore. All returned records have
// their Certificate loaded.
type RecordsStorage struct {
	db *gorm.DB
}

func (s *RecordsStorage) findOne(column, value string) (*model.CertificateRecord, error) {
	var r model.CertificateRecord
	err := s.db.Preload("Certificate").Where(column+" = ?", value).First(&r).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "records: lookup by %s failed", column)
	}
	return &r, nil
}

// FindByCertificateNumber returns the record with the passed certificate number
func (s *RecordsStorage) FindByCertificateNumber(number string) (*model.CertificateRecord, error) {
	return s.findOne("certificate_number", number)
}

// FindByVerificationCode returns the record with the passed verification code
func (s *RecordsStorage) FindByVerificationCode(code string) (*model.CertificateRecord, error) {
	return s.findOne("verification_code", code)
}

// FindByCertificateID returns the record belonging to a certificate
func (s *RecordsStorage) FindByCertificateID(certificateID string) (*model.CertificateRecord, error) {
	return s.findOne("certificate_id", certificateID)
}

func (s *RecordsStorage) find(query *gorm.DB) ([]model.CertificateRecord, error) {
	var records []model.CertificateRecord
	if err := query.Preload("Certificate").Order("issue_date DESC").Find(&records).Error; err != nil {
		return nil, errors.Wrap(err, "records: query failed")
	}
	return records, nil
}

// FindByType returns all records of a certificate type
func (s *RecordsStorage) FindByType(certificateType model.CertificateType) ([]model.CertificateRecord, error) {
	return s.find(s.db.Where("certificate_type = ?", certificateType))
}

// FindByIssuingAuthority returns all records issued by an authority
func (s *RecordsStorage) FindByIssuingAuthority(authority string) ([]model.CertificateRecord, error) {
	return s.find(s.db.Where("issuing_authority = ?", authority))
}

// FindExpiringBetween returns all records with an expiry date in [from, to]
func (s *RecordsStorage) FindExpiringBetween(from, to time.Time) ([]model.CertificateRecord, error) {
	return s.find(s.expiringBetween(from, to))
}

// FindExpiredBefore returns all records that expired before date
func (s *RecordsStorage) FindExpiredBefore(date time.Time) ([]model.CertificateRecord, error) {
	return s.find(
		s.db.Where("expiry_date IS NOT NULL AND expiry_date < ?", model.DateOf(date)),
	)
}

func (s *RecordsStorage) expiringBetween(from, to time.Time) *gorm.DB {
	return s.db.Where(
		"expiry_date IS NOT NULL AND expiry_date >= ? AND expiry_date <= ?",
		model.DateOf(from), model.DateOf(to),
	)
}

// NumbersByType returns the certificate numbers of all records of a type
func (s *RecordsStorage) NumbersByType(certificateType model.CertificateType) (numbers []string, err error) {
	err = errors.Wrap(
		s.db.Model(&model.CertificateRecord{}).Where("certificate_type = ?", certificateType).
			Pluck("certificate_number", &numbers).Error,
		"records: failed to query certificate numbers",
	)
	return
}

// NumbersByIssuingAuthority returns the certificate numbers of all records
// issued by authority
func (s *RecordsStorage) NumbersByIssuingAuthority(authority string) (numbers []string, err error) {
	err = errors.Wrap(
		s.db.Model(&model.CertificateRecord{}).Where("issuing_authority = ?", authority).
			Pluck("certificate_number", &numbers).Error,
		"records: failed to query certificate numbers",
	)
	return
}

// NumbersExpiringBetween returns the certificate numbers of all records with
// an expiry date in [from, to]
func (s *RecordsStorage) NumbersExpiringBetween(from, to time.Time) (numbers []string, err error) {
	err = errors.Wrap(
		s.expiringBetween(from, to).Model(&model.CertificateRecord{}).
			Pluck("certificate_number", &numbers).Error,
		"records: failed to query certificate numbers",
	)
	return
}

// Create inserts a new record. The certificate must already exist.
func (s *RecordsStorage) Create(record *model.CertificateRecord) error {
	return createRecord(s.db, record)
}

func createRecord(tx *gorm.DB, record *model.CertificateRecord) error {
	if err := tx.Omit(clause.Associations).Create(record).Error; err != nil {
		if isUniqueConstraintError(err) {
			return model.AlreadyExistsErrorFmt(
				"certificate record already exists: %s", record.CertificateNumber,
			)
		}
		return errors.Wrap(err, "records: create failed")
	}
	return nil
}

func (s *RecordsStorage) update(certificateID string, column string, value any) (*model.CertificateRecord, error) {
	res := s.db.Model(&model.CertificateRecord{}).Where("certificate_id = ?", certificateID).Update(column, value)
	if res.Error != nil {
		return nil, errors.Wrapf(res.Error, "records: failed to update %s", column)
	}
	if res.RowsAffected == 0 {
		return nil, model.NotFoundErrorFmt("certificate record not found: %s", certificateID)
	}
	return s.FindByCertificateID(certificateID)
}

// UpdateExpiry sets a new expiry date; nil removes the expiry
func (s *RecordsStorage) UpdateExpiry(certificateID string, expiry *time.Time) (*model.CertificateRecord, error) {
	if expiry != nil {
		d := model.DateOf(*expiry)
		expiry = &d
	}
	return s.update(certificateID, "expiry_date", expiry)
}

// UpdateMetadata replaces the metadata of a record
func (s *RecordsStorage) UpdateMetadata(certificateID string, metadata map[string]any) (*model.CertificateRecord, error) {
	r, err := s.FindByCertificateID(certificateID)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, model.NotFoundErrorFmt("certificate record not found: %s", certificateID)
	}
	r.Metadata = metadata
	if err = s.db.Model(&model.CertificateRecord{}).Where("id = ?", r.ID).
		Update("metadata", r.Metadata).Error; err != nil {
		return nil, errors.Wrap(err, "records: failed to update metadata")
	}
	return r, nil
}

// DeleteWithCertificates removes the passed records and their certificates
// and returns the number of removed records
func (s *RecordsStorage) DeleteWithCertificates(records []model.CertificateRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}
	recordIDs := make([]string, len(records))
	certificateIDs := make([]string, len(records))
	for i, r := range records {
		recordIDs[i] = r.ID
		certificateIDs[i] = r.CertificateID
	}
	var deleted int64
	err := s.db.Transaction(
		func(tx *gorm.DB) error {
			res := tx.Where("id IN ?", recordIDs).Delete(&model.CertificateRecord{})
			if res.Error != nil {
				return res.Error
			}
			deleted = res.RowsAffected
			return tx.Where("id IN ?", certificateIDs).Delete(&model.Certificate{}).Error
		},
	)
	if err != nil {
		return 0, errors.Wrap(err, "records: delete failed")
	}
	return deleted, nil
}
