package verification

import (
	"time"

	"github.com/certkeeper/certkeeper/storage/model"
)

// Defaults for the FrequencyGuard
const (
	DefaultFrequencyWindow    = time.Hour
	DefaultFrequencyThreshold = 10
)

// FrequencyGuard flags certificates that were verified suspiciously often
// within a trailing time window. It only reports, it never blocks.
type FrequencyGuard struct {
	Store     model.VerificationsStore
	Now       func() time.Time
	Window    time.Duration
	Threshold int
}

// IsFrequentlyVerified reports whether the certificate was verified at least
// Threshold times within the last Window
func (g FrequencyGuard) IsFrequentlyVerified(certificateID string) (bool, error) {
	return g.Check(certificateID, g.Window, g.Threshold)
}

// Check is like IsFrequentlyVerified but with an explicit window and
// threshold; non-positive values fall back to the guard's settings and then
// to the defaults
func (g FrequencyGuard) Check(certificateID string, window time.Duration, threshold int) (bool, error) {
	if window <= 0 {
		window = g.Window
	}
	if window <= 0 {
		window = DefaultFrequencyWindow
	}
	if threshold <= 0 {
		threshold = g.Threshold
	}
	if threshold <= 0 {
		threshold = DefaultFrequencyThreshold
	}
	count, err := g.Store.CountSince(certificateID, g.Now().Add(-window).UTC())
	if err != nil {
		return false, err
	}
	return count >= int64(threshold), nil
}
