package verification

import (
	"fmt"

	"github.com/pkg/errors"
)

// MessageKey identifies a user-facing message independent of its language
type MessageKey string

// Message keys
const (
	KeyVerificationPassed      MessageKey = "verification.passed"
	KeyCertificateRevoked      MessageKey = "certificate.revoked"
	KeyCertificateExpired      MessageKey = "certificate.expired"
	KeyCertificateNotFound     MessageKey = "certificate.not_found"
	KeyVerificationCodeInvalid MessageKey = "verification_code.invalid"
	KeyExpiringSoon            MessageKey = "certificate.expiring_soon"
	KeyVerifierSource          MessageKey = "verifier.source"
	KeyVerifierLanguage        MessageKey = "verifier.language"
)

// DefaultLocale is used when no locale is configured
const DefaultLocale = "en"

var catalogs = map[string]map[MessageKey]string{
	"en": {
		KeyVerificationPassed:      "certificate verification passed",
		KeyCertificateRevoked:      "certificate has been revoked or is invalid",
		KeyCertificateExpired:      "certificate has expired",
		KeyCertificateNotFound:     "certificate not found",
		KeyVerificationCodeInvalid: "verification code invalid",
		KeyExpiringSoon:            "certificate expires in %d days",
		KeyVerifierSource:          "source",
		KeyVerifierLanguage:        "language",
	},
	"zh": {
		KeyVerificationPassed:      "证书验证通过",
		KeyCertificateRevoked:      "证书已被撤销或无效",
		KeyCertificateExpired:      "证书已过期",
		KeyCertificateNotFound:     "证书不存在",
		KeyVerificationCodeInvalid: "验证码无效",
		KeyExpiringSoon:            "证书将在%d天后过期",
		KeyVerifierSource:          "来源",
		KeyVerifierLanguage:        "语言",
	},
}

// Locales returns the supported locales
func Locales() []string {
	locales := make([]string, 0, len(catalogs))
	for l := range catalogs {
		locales = append(locales, l)
	}
	return locales
}

// Catalog renders message keys in one locale
type Catalog struct {
	Locale    string
	templates map[MessageKey]string
}

// NewCatalog returns the Catalog for a locale; an empty locale selects
// DefaultLocale
func NewCatalog(locale string) (*Catalog, error) {
	if locale == "" {
		locale = DefaultLocale
	}
	templates, ok := catalogs[locale]
	if !ok {
		return nil, errors.Errorf("unsupported locale '%s'", locale)
	}
	return &Catalog{
		Locale:    locale,
		templates: templates,
	}, nil
}

// Message renders the message for key with the passed arguments. Unknown
// keys render as the key itself.
func (c *Catalog) Message(key MessageKey, args ...any) string {
	tmpl, ok := c.templates[key]
	if !ok {
		return string(key)
	}
	if len(args) == 0 {
		return tmpl
	}
	return fmt.Sprintf(tmpl, args...)
}
