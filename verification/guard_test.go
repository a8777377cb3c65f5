package verification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certkeeper/certkeeper/storage/model"
)

func TestFrequencyGuard(t *testing.T) {
	s := newTestStorage(t)
	rec := seedRecord(t, s, "CERT-F", days(100), true)
	certID := rec.CertificateID

	for i := 0; i < 10; i++ {
		require.NoError(
			t, s.VerificationsStorage().Create(
				&model.CertificateVerification{
					CertificateID:      &certID,
					VerificationMethod: model.VerificationMethodCertificateNumber,
					VerificationResult: true,
					VerificationTime:   testNow.Add(-time.Duration(i+1) * time.Minute),
				},
			),
		)
	}
	// outside of the default window
	require.NoError(
		t, s.VerificationsStorage().Create(
			&model.CertificateVerification{
				CertificateID:      &certID,
				VerificationMethod: model.VerificationMethodCertificateNumber,
				VerificationTime:   testNow.Add(-2 * time.Hour),
			},
		),
	)

	g := FrequencyGuard{
		Store: s.VerificationsStorage(),
		Now:   fixedClock,
	}
	frequent, err := g.IsFrequentlyVerified(certID)
	require.NoError(t, err)
	assert.True(t, frequent)

	frequent, err = g.Check(certID, 0, 11)
	require.NoError(t, err)
	assert.False(t, frequent)

	frequent, err = g.Check(certID, 3*time.Hour, 11)
	require.NoError(t, err)
	assert.True(t, frequent)

	frequent, err = g.Check(certID, 5*time.Minute+time.Second, 0)
	require.NoError(t, err)
	assert.False(t, frequent)

	frequent, err = g.IsFrequentlyVerified("other")
	require.NoError(t, err)
	assert.False(t, frequent)
}

func TestService_IsFrequentlyVerified(t *testing.T) {
	s := newTestStorage(t)
	svc, err := NewService(
		s.Backends(), Options{
			Now:                fixedClock,
			FrequencyThreshold: 3,
		},
	)
	require.NoError(t, err)
	rec := seedRecord(t, s, "CERT-F", days(100), true)
	svc.BatchVerify(t.Context(), []string{"CERT-F", "CERT-F"})

	frequent, err := svc.IsFrequentlyVerified(rec.CertificateID, 0, 0)
	require.NoError(t, err)
	assert.False(t, frequent)

	svc.BatchVerify(t.Context(), []string{"CERT-F"})
	frequent, err = svc.IsFrequentlyVerified(rec.CertificateID, 0, 0)
	require.NoError(t, err)
	assert.True(t, frequent)
}
