package adminapi

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"

	"github.com/certkeeper/certkeeper/issuance"
	"github.com/certkeeper/certkeeper/storage/model"
	"github.com/certkeeper/certkeeper/verification"
)

// Services bundles what the admin API operates on
type Services struct {
	Verifier *verification.Service
	Issuer   *issuance.Service
	Records  model.RecordsStore
	// Archive receives purged verification entries during cleanup; optional
	Archive verification.Archiver
	// Retention holds the default cleanup policy; a request may override the
	// number of days
	Retention verification.RetentionPolicy
}

// Register mounts all admin API routes under the provided group.
func Register(r fiber.Router, services Services) error {
	if services.Verifier == nil || services.Issuer == nil || services.Records == nil {
		return errors.New("adminapi: verifier, issuer and records must be set")
	}
	// Templates
	registerTemplates(r, services.Issuer)
	// Applications, review and issuance
	registerApplications(r, services.Issuer)
	// Issued certificates
	registerCertificates(r, services.Issuer, services.Verifier)
	// Record reporting
	registerRecords(r, services.Records)
	// Verification log
	registerVerifications(r, services)
	return nil
}

const dateFormat = verification.DateFormat

// parseDate parses an optional date query or body value
func parseDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(dateFormat, value)
	if err != nil {
		return nil, model.InvalidArgumentErrorFmt("invalid date '%s', expected format %s", value, dateFormat)
	}
	return &t, nil
}

// queryInt parses an optional non-negative integer query parameter
func queryInt(c *fiber.Ctx, key string) (int, error) {
	v := c.Query(key)
	if v == "" {
		return 0, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil || i < 0 {
		return 0, model.InvalidArgumentErrorFmt("parameter '%s' must be a non-negative integer", key)
	}
	return i, nil
}

// queryDuration parses an optional duration query parameter such as "30m"
func queryDuration(c *fiber.Ctx, key string) (time.Duration, error) {
	v := c.Query(key)
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return 0, model.InvalidArgumentErrorFmt("parameter '%s' must be a positive duration", key)
	}
	return d, nil
}
