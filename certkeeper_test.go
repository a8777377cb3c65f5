package certkeeper

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/certkeeper/certkeeper/api/adminapi"
	"github.com/certkeeper/certkeeper/internal/cache"
	"github.com/certkeeper/certkeeper/issuance"
	"github.com/certkeeper/certkeeper/storage"
	"github.com/certkeeper/certkeeper/storage/model"
	"github.com/certkeeper/certkeeper/verification"
)

type testEnv struct {
	ck      *CertKeeper
	storage *storage.Storage
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	s, err := storage.NewStorageFromDB(db)
	require.NoError(t, err)

	backends := s.Backends()
	verifier, err := verification.NewService(backends, verification.Options{Cache: cache.NewMemoryCache(0)})
	require.NoError(t, err)
	issuer := issuance.NewService(backends, nil)
	ck, err := NewCertKeeper(
		ServerConf{}, verifier, Options{
			AccessLog: &logger.Config{Output: io.Discard},
			AdminAPI: &adminapi.Services{
				Verifier: verifier,
				Issuer:   issuer,
				Records:  backends.Records,
			},
		},
	)
	require.NoError(t, err)
	return testEnv{
		ck:      ck,
		storage: s,
	}
}

func (e testEnv) do(t *testing.T, method, path string, body any, target any, headers ...string) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	res, err := e.ck.App().Test(req, -1)
	require.NoError(t, err)
	defer res.Body.Close()
	if target != nil {
		require.NoError(t, json.NewDecoder(res.Body).Decode(target))
	}
	return res.StatusCode
}

// issueCertificate runs the full workflow through the admin api
func (e testEnv) issueCertificate(t *testing.T, validityDays int) model.CertificateRecord {
	t.Helper()
	var tmpl model.CertificateTemplate
	status := e.do(
		t, http.MethodPost, "/api/v1/admin/templates", issuance.TemplateRequest{
			Name:             fmt.Sprintf("Template %d", validityDays),
			CertificateType:  model.CertificateTypeTraining,
			IssuingAuthority: "Academy",
			ValidityDays:     validityDays,
		}, &tmpl,
	)
	require.Equal(t, http.StatusCreated, status)

	var app model.CertificateApplication
	status = e.do(
		t, http.MethodPost, "/api/v1/admin/applications", issuance.ApplicationRequest{
			UserID:     "u-1",
			HolderName: "Jo Smith",
			Title:      "Go Basics",
			TemplateID: tmpl.ID,
		}, &app,
	)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, model.ApplicationStatusPending, app.Status)

	status = e.do(
		t, http.MethodPost, "/api/v1/admin/applications/"+app.ID+"/approve",
		issuance.ReviewRequest{Auditor: "admin"}, &app,
	)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, model.ApplicationStatusApproved, app.Status)

	var record model.CertificateRecord
	status = e.do(t, http.MethodPost, "/api/v1/admin/applications/"+app.ID+"/issue", nil, &record)
	require.Equal(t, http.StatusCreated, status)
	return record
}

func TestVerificationEndpoints(t *testing.T) {
	env := newTestEnv(t)
	record := env.issueCertificate(t, 20)

	var res verification.Result
	status := env.do(
		t, http.MethodGet, "/verify/number/"+record.CertificateNumber, nil, &res,
		"Referer", "https://employer.example", "Accept-Language", "en",
	)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, res.Valid)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "20")
	require.NotNil(t, res.Data)
	assert.Equal(t, "Jo Smith", res.Data.HolderName)

	status = env.do(t, http.MethodGet, "/verify/code/"+record.VerificationCode, nil, &res)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, res.Valid)

	status = env.do(t, http.MethodGet, "/verify/qr?payload=https://certs.example/v/"+record.VerificationCode, nil, &res)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, res.Valid)

	status = env.do(t, http.MethodGet, "/verify/qr", nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status = env.do(t, http.MethodGet, "/verify/number/UNKNOWN", nil, &res)
	assert.Equal(t, http.StatusOK, status)
	assert.False(t, res.Valid)
	assert.Equal(t, verification.KeyCertificateNotFound, res.MessageKey)

	var batch map[string]verification.Result
	status = env.do(
		t, http.MethodPost, "/verify/batch",
		batchVerifyRequest{CertificateNumbers: []string{record.CertificateNumber, "UNKNOWN", "UNKNOWN"}}, &batch,
	)
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, batch, 2)
	assert.True(t, batch[record.CertificateNumber].Valid)
	assert.False(t, batch["UNKNOWN"].Valid)

	var history []model.CertificateVerification
	status = env.do(
		t, http.MethodGet, "/api/v1/admin/certificates/"+record.CertificateID+"/verifications", nil, &history,
	)
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, history, 4)
	last := history[len(history)-1]
	assert.Equal(t, model.VerificationMethodCertificateNumber, last.VerificationMethod)
	assert.Equal(t, "source: https://employer.example, language: en", last.VerifierInfo)
	assert.Equal(t, model.VerificationMethodQRCode, history[1].VerificationMethod)

	var stats model.VerificationStatistics
	status = env.do(t, http.MethodGet, "/api/v1/admin/statistics", nil, &stats)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(7), stats.Total)
	assert.Equal(t, int64(4), stats.Successful)
	assert.Equal(t, int64(3), stats.Failed)
	assert.Equal(t, 57.14, stats.SuccessRatePercent)

	var frequency map[string]any
	status = env.do(
		t, http.MethodGet,
		"/api/v1/admin/certificates/"+record.CertificateID+"/frequency?threshold=4&window=1h", nil, &frequency,
	)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, frequency["frequently_verified"])
}

func TestVerificationEndpoints_EncodedPath(t *testing.T) {
	env := newTestEnv(t)
	record := env.issueCertificate(t, 20)
	number, code := "ACME #42", "code with spaces"
	require.NoError(
		t, env.storage.DB().Model(&model.CertificateRecord{}).
			Where("certificate_id = ?", record.CertificateID).
			Updates(map[string]any{"certificate_number": number, "verification_code": code}).Error,
	)

	var res verification.Result
	status := env.do(t, http.MethodGet, "/verify/number/"+url.PathEscape(number), nil, &res)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, res.Valid)
	require.NotNil(t, res.Data)
	assert.Equal(t, number, res.Data.CertificateNumber)

	status = env.do(t, http.MethodGet, "/verify/code/"+url.PathEscape(code), nil, &res)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, res.Valid)

	var details verification.DetailView
	status = env.do(t, http.MethodGet, "/certificates/"+url.PathEscape(number), nil, &details)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, details.Valid)
}

func TestCertificateDetailsAndRevocation(t *testing.T) {
	env := newTestEnv(t)
	record := env.issueCertificate(t, 0)

	var details verification.DetailView
	status := env.do(t, http.MethodGet, "/certificates/"+record.CertificateNumber, nil, &details)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, details.Valid)
	assert.False(t, details.Expired)
	assert.Nil(t, details.RemainingDays)

	status = env.do(t, http.MethodPost, "/api/v1/admin/certificates/"+record.CertificateID+"/revoke", nil, nil)
	assert.Equal(t, http.StatusOK, status)

	status = env.do(t, http.MethodGet, "/certificates/"+record.CertificateNumber, nil, &details)
	assert.Equal(t, http.StatusOK, status)
	assert.False(t, details.Valid, "details cache must be invalidated on revocation")

	var res verification.Result
	env.do(t, http.MethodGet, "/verify/number/"+record.CertificateNumber, nil, &res)
	assert.False(t, res.Valid)
	assert.Equal(t, verification.KeyCertificateRevoked, res.MessageKey)

	status = env.do(t, http.MethodPost, "/api/v1/admin/certificates/"+record.CertificateID+"/reinstate", nil, nil)
	assert.Equal(t, http.StatusOK, status)
	env.do(t, http.MethodGet, "/verify/number/"+record.CertificateNumber, nil, &res)
	assert.True(t, res.Valid)

	status = env.do(t, http.MethodGet, "/certificates/UNKNOWN", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status = env.do(t, http.MethodPost, "/api/v1/admin/certificates/unknown/revoke", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRenewal(t *testing.T) {
	env := newTestEnv(t)
	record := env.issueCertificate(t, 10)

	past := time.Now().AddDate(-1, 0, 0).Format(verification.DateFormat)
	status := env.do(
		t, http.MethodPut, "/api/v1/admin/certificates/"+record.CertificateID+"/expiry",
		map[string]string{"expiry_date": past}, nil,
	)
	assert.Equal(t, http.StatusBadRequest, status)

	future := time.Now().AddDate(0, 0, 100).Format(verification.DateFormat)
	var renewed model.CertificateRecord
	status = env.do(
		t, http.MethodPut, "/api/v1/admin/certificates/"+record.CertificateID+"/expiry",
		map[string]string{"expiry_date": future}, &renewed,
	)
	assert.Equal(t, http.StatusOK, status)

	var res verification.Result
	env.do(t, http.MethodGet, "/verify/number/"+record.CertificateNumber, nil, &res)
	assert.True(t, res.Valid)
	assert.Empty(t, res.Warnings)
}

func TestAdminErrors(t *testing.T) {
	env := newTestEnv(t)

	status := env.do(t, http.MethodPost, "/api/v1/admin/templates", map[string]string{"name": "x"}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status = env.do(t, http.MethodGet, "/api/v1/admin/templates/unknown", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status = env.do(t, http.MethodGet, "/api/v1/admin/applications?status=unknown", nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status = env.do(t, http.MethodGet, "/api/v1/admin/statistics?start=yesterday", nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status = env.do(t, http.MethodGet, "/api/v1/admin/records", nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status = env.do(t, http.MethodPost, "/verify/batch", batchVerifyRequest{}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRecordListingAndCleanup(t *testing.T) {
	env := newTestEnv(t)
	soon := env.issueCertificate(t, 15)
	env.issueCertificate(t, 400)

	var numbers []string
	status := env.do(
		t, http.MethodGet, "/api/v1/admin/records/numbers?type=training&expiring_within_days=30", nil, &numbers,
	)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{soon.CertificateNumber}, numbers)

	status = env.do(t, http.MethodGet, "/api/v1/admin/records/numbers?authority=Academy", nil, &numbers)
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, numbers, 2)

	status = env.do(
		t, http.MethodGet, "/api/v1/admin/records/numbers?authority=Academy&expiring_within_days=30", nil, &numbers,
	)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{soon.CertificateNumber}, numbers)

	status = env.do(t, http.MethodGet, "/api/v1/admin/records/numbers?type=training&authority=Nobody", nil, &numbers)
	assert.Equal(t, http.StatusOK, status)
	assert.Empty(t, numbers)

	status = env.do(t, http.MethodGet, "/api/v1/admin/records/numbers", nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	var records []model.CertificateRecord
	status = env.do(t, http.MethodGet, "/api/v1/admin/records?authority=Academy", nil, &records)
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, records, 2)

	var res verification.CleanupResult
	status = env.do(
		t, http.MethodPost, "/api/v1/admin/cleanup",
		map[string]int{"verification_days": 30, "expired_record_days": 30}, &res,
	)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, verification.CleanupResult{}, res)
}

func TestSeparateAdminServer(t *testing.T) {
	env := newTestEnv(t)
	backends := env.storage.Backends()
	verifier, err := verification.NewService(backends, verification.Options{})
	require.NoError(t, err)
	ck, err := NewCertKeeper(
		ServerConf{}, verifier, Options{
			AccessLog: &logger.Config{Output: io.Discard},
			AdminAPI: &adminapi.Services{
				Verifier: verifier,
				Issuer:   issuance.NewService(backends, nil),
				Records:  backends.Records,
			},
			AdminPort: 7673,
		},
	)
	require.NoError(t, err)
	require.NotSame(t, ck.App(), ck.AdminApp())

	res, err := ck.App().Test(httptest.NewRequest(http.MethodGet, "/api/v1/admin/templates", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	res, err = ck.AdminApp().Test(httptest.NewRequest(http.MethodGet, "/api/v1/admin/templates", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	res, err = ck.AdminApp().Test(httptest.NewRequest(http.MethodGet, "/verify/number/CERT-1", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}
