package adminapi

import (
	"time"

	arrays "github.com/adam-hanna/arrayOperations"
	"github.com/gofiber/fiber/v2"

	"github.com/certkeeper/certkeeper/api/apimodel"
	"github.com/certkeeper/certkeeper/storage/model"
)

func registerRecords(r fiber.Router, store model.RecordsStore) {
	g := r.Group("/records")

	// Lists records filtered by exactly one of type, authority or
	// expiring_within_days
	g.Get(
		"/", func(c *fiber.Ctx) error {
			days, err := queryInt(c, "expiring_within_days")
			if err != nil {
				return apimodel.SendError(c, err)
			}
			var records []model.CertificateRecord
			switch {
			case c.Query("type") != "":
				records, err = store.FindByType(model.CertificateType(c.Query("type")))
			case c.Query("authority") != "":
				records, err = store.FindByIssuingAuthority(c.Query("authority"))
			case days > 0:
				now := time.Now()
				records, err = store.FindExpiringBetween(now, now.AddDate(0, 0, days))
			default:
				return c.Status(fiber.StatusBadRequest).JSON(
					apimodel.ErrorInvalidRequest("one of 'type', 'authority' or 'expiring_within_days' is required"),
				)
			}
			if err != nil {
				return apimodel.SendError(c, err)
			}
			if records == nil {
				records = []model.CertificateRecord{}
			}
			return c.JSON(records)
		},
	)

	// Lists the certificate numbers matching all passed filters
	g.Get(
		"/numbers", func(c *fiber.Ctx) error {
			days, err := queryInt(c, "expiring_within_days")
			if err != nil {
				return apimodel.SendError(c, err)
			}
			var sets [][]string
			if t := c.Query("type"); t != "" {
				numbers, err := store.NumbersByType(model.CertificateType(t))
				if err != nil {
					return apimodel.SendError(c, err)
				}
				sets = append(sets, numbers)
			}
			if authority := c.Query("authority"); authority != "" {
				numbers, err := store.NumbersByIssuingAuthority(authority)
				if err != nil {
					return apimodel.SendError(c, err)
				}
				sets = append(sets, numbers)
			}
			if days > 0 {
				now := time.Now()
				numbers, err := store.NumbersExpiringBetween(now, now.AddDate(0, 0, days))
				if err != nil {
					return apimodel.SendError(c, err)
				}
				sets = append(sets, numbers)
			}
			if len(sets) == 0 {
				return c.Status(fiber.StatusBadRequest).JSON(
					apimodel.ErrorInvalidRequest("at least one of 'type', 'authority' or 'expiring_within_days' is required"),
				)
			}
			numbers := sets[0]
			if len(sets) > 1 {
				numbers = arrays.Intersect(sets...)
			}
			if numbers == nil {
				numbers = []string{}
			}
			return c.JSON(numbers)
		},
	)
}
