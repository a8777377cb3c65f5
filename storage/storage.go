package storage

import (
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/certkeeper/certkeeper/storage/model"
)

// Storage is a GORM-based storage implementation
type Storage struct {
	db *gorm.DB
}

var models = []any{
	&model.Certificate{},
	&model.CertificateRecord{},
	&model.CertificateVerification{},
	&model.CertificateTemplate{},
	&model.CertificateApplication{},
	&model.CertificateAudit{},
}

// NewStorageFromDB creates a new Storage on an already opened gorm.DB and
// migrates the schemas
func NewStorageFromDB(db *gorm.DB) (*Storage, error) {
	if err := db.AutoMigrate(models...); err != nil {
		return nil, errors.Wrap(err, "failed to migrate database")
	}
	return &Storage{db: db}, nil
}

// DB returns the underlying gorm.DB
func (s *Storage) DB() *gorm.DB {
	return s.db
}

// Backends returns all storage backends of this warehouse
func (s *Storage) Backends() model.Backends {
	return model.Backends{
		Certificates:  s.CertificatesStorage(),
		Records:       s.RecordsStorage(),
		Verifications: s.VerificationsStorage(),
		Templates:     s.TemplatesStorage(),
		Applications:  s.ApplicationsStorage(),
		Audits:        s.AuditsStorage(),
	}
}

// CertificatesStorage returns a CertificatesStorage
func (s *Storage) CertificatesStorage() *CertificatesStorage {
	return &CertificatesStorage{db: s.db}
}

// RecordsStorage returns a RecordsStorage
func (s *Storage) RecordsStorage() *RecordsStorage {
	return &RecordsStorage{db: s.db}
}

// VerificationsStorage returns a VerificationsStorage
func (s *Storage) VerificationsStorage() *VerificationsStorage {
	return &VerificationsStorage{db: s.db}
}

// TemplatesStorage returns a TemplatesStorage
func (s *Storage) TemplatesStorage() *TemplatesStorage {
	return &TemplatesStorage{db: s.db}
}

// ApplicationsStorage returns an ApplicationsStorage
func (s *Storage) ApplicationsStorage() *ApplicationsStorage {
	return &ApplicationsStorage{db: s.db}
}

// AuditsStorage returns an AuditsStorage
func (s *Storage) AuditsStorage() *AuditsStorage {
	return &AuditsStorage{db: s.db}
}

// isUniqueConstraintError performs a cheap check across supported drivers.
func isUniqueConstraintError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return containsAny(
		msg,
		// SQLite
		"UNIQUE constraint failed",
		// MySQL
		"Duplicate entry", "Error 1062",
		// Postgres
		"duplicate key value", "violates unique constraint",
	)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
