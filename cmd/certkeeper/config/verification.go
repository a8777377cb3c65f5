package config

import (
	"time"

	"github.com/pkg/errors"
	"github.com/zachmann/go-utils/duration"
	"tideland.dev/go/slices"

	"github.com/certkeeper/certkeeper/storage/model"
	"github.com/certkeeper/certkeeper/verification"
)

// verificationConf configures certificate verification.
//
// YAML example:
//
//	verification:
//	  locale: en
//	  expiry_warning_days: 30
//	  frequency:
//	    window: 1h
//	    threshold: 10
//	  certificate_types:
//	    - training
//	    - first_aid
type verificationConf struct {
	Locale            string        `yaml:"locale"`
	ExpiryWarningDays int           `yaml:"expiry_warning_days"`
	Frequency         frequencyConf `yaml:"frequency"`
	// CertificateTypes lists additional certificate types besides the
	// builtin ones
	CertificateTypes []model.CertificateType `yaml:"certificate_types"`
}

type frequencyConf struct {
	Window    duration.DurationOption `yaml:"window"`
	Threshold int                     `yaml:"threshold"`
}

func (c *verificationConf) validate() error {
	if _, err := verification.NewCatalog(c.Locale); err != nil {
		return errors.Wrap(err, "error in verification conf")
	}
	if c.ExpiryWarningDays < 0 {
		return errors.New("error in verification conf: expiry_warning_days must not be negative")
	}
	if c.Frequency.Window.Duration() < 0 || c.Frequency.Threshold < 0 {
		return errors.New("error in verification conf: frequency window and threshold must not be negative")
	}
	for _, t := range c.CertificateTypes {
		if t == "" {
			return errors.New("error in verification conf: certificate types must not be empty")
		}
	}
	c.CertificateTypes = slices.Subtract(c.CertificateTypes, model.BuiltinCertificateTypes)
	return nil
}

// AllCertificateTypes returns the builtin and the configured certificate
// types
func (c verificationConf) AllCertificateTypes() []model.CertificateType {
	return append(append([]model.CertificateType{}, model.BuiltinCertificateTypes...), c.CertificateTypes...)
}

// ServiceOptions converts the config into verification.Options
func (c verificationConf) ServiceOptions() verification.Options {
	return verification.Options{
		Locale:             c.Locale,
		ExpiryWarningDays:  c.ExpiryWarningDays,
		FrequencyWindow:    c.Frequency.Window.Duration(),
		FrequencyThreshold: c.Frequency.Threshold,
	}
}

var defaultVerificationConf = verificationConf{
	Locale:            verification.DefaultLocale,
	ExpiryWarningDays: verification.DefaultExpiryWarningDays,
	Frequency: frequencyConf{
		Window:    duration.DurationOption(time.Hour),
		Threshold: verification.DefaultFrequencyThreshold,
	},
}
