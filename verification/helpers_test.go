package verification

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/certkeeper/certkeeper/storage"
	"github.com/certkeeper/certkeeper/storage/model"
)

var testNow = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time {
	return testNow
}

func newTestStorage(t *testing.T) *storage.Storage {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	s, err := storage.NewStorageFromDB(db)
	require.NoError(t, err)
	return s
}

func newTestService(t *testing.T) (*Service, *storage.Storage) {
	t.Helper()
	s := newTestStorage(t)
	svc, err := NewService(s.Backends(), Options{Now: fixedClock})
	require.NoError(t, err)
	return svc, s
}

func days(n int) *time.Time {
	d := model.DateOf(testNow).AddDate(0, 0, n)
	return &d
}

// seedRecord stores a certificate with its record; a nil expiry means
// the certificate never expires
func seedRecord(t *testing.T, s *storage.Storage, number string, expiry *time.Time, valid bool) *model.CertificateRecord {
	t.Helper()
	cert := model.Certificate{
		Title:      "Forklift Safety",
		UserID:     "user-1",
		HolderName: "Alex Doe",
	}
	require.NoError(t, s.DB().Create(&cert).Error)
	if valid {
		_, err := s.CertificatesStorage().SetValid(cert.ID, true)
		require.NoError(t, err)
	}
	record := &model.CertificateRecord{
		CertificateID:     cert.ID,
		CertificateNumber: number,
		VerificationCode:  "code-" + number,
		CertificateType:   model.CertificateTypeSafety,
		IssueDate:         model.DateOf(testNow).AddDate(-1, 0, 0),
		ExpiryDate:        expiry,
		IssuingAuthority:  "Safety Board",
	}
	require.NoError(t, s.RecordsStorage().Create(record))
	r, err := s.RecordsStorage().FindByCertificateNumber(number)
	require.NoError(t, err)
	require.NotNil(t, r)
	return r
}

func countVerifications(t *testing.T, s *storage.Storage) int64 {
	t.Helper()
	var n int64
	require.NoError(t, s.DB().Model(&model.CertificateVerification{}).Count(&n).Error)
	return n
}

type storageWithRecords struct {
	s       *storage.Storage
	cert001 *model.CertificateRecord
	cert002 *model.CertificateRecord
	cert003 *model.CertificateRecord
}
