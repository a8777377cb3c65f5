package config

import (
	"github.com/pkg/errors"

	"github.com/certkeeper/certkeeper/verification"
)

// retentionConf holds the defaults for manual cleanup runs
type retentionConf struct {
	// VerificationDays is the number of days verification entries are kept;
	// 0 keeps them forever
	VerificationDays int `yaml:"verification_days"`
	// ExpiredRecordDays is the number of days certificates are kept after
	// their expiry; 0 keeps them forever
	ExpiredRecordDays int `yaml:"expired_record_days"`
}

func (c *retentionConf) validate() error {
	if c.VerificationDays < 0 || c.ExpiredRecordDays < 0 {
		return errors.New("error in retention conf: days must not be negative")
	}
	return nil
}

// Policy converts the config into a verification.RetentionPolicy without an
// archive
func (c retentionConf) Policy() verification.RetentionPolicy {
	return verification.RetentionPolicy{
		VerificationDays:  c.VerificationDays,
		ExpiredRecordDays: c.ExpiredRecordDays,
	}
}

var defaultRetentionConf = retentionConf{
	VerificationDays:  365,
	ExpiredRecordDays: 0,
}
