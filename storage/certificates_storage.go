package storage

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/certkeeper/certkeeper/storage/model"
)

// CertificatesStorage implements model.CertificatesStore
type CertificatesStorage struct {
	db *gorm.DB
}

// Get returns the certificate with the passed id
func (s *CertificatesStorage) Get(id string) (*model.Certificate, error) {
	var c model.Certificate
	if err := s.db.Where("id = ?", id).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.NotFoundErrorFmt("certificate not found: %s", id)
		}
		return nil, errors.Wrap(err, "certificates: get failed")
	}
	return &c, nil
}

// SetValid changes the revocation flag of a certificate
func (s *CertificatesStorage) SetValid(id string, valid bool) (*model.Certificate, error) {
	var c model.Certificate
	err := s.db.Transaction(
		func(tx *gorm.DB) error {
			if err := tx.Where("id = ?", id).First(&c).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return model.NotFoundErrorFmt("certificate not found: %s", id)
				}
				return err
			}
			c.Valid = valid
			return tx.Model(&c).Update("valid", valid).Error
		},
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
