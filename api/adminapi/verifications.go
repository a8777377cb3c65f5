package adminapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/certkeeper/certkeeper/api/apimodel"
)

func registerVerifications(r fiber.Router, services Services) {
	verifier := services.Verifier

	r.Get(
		"/statistics", func(c *fiber.Ctx) error {
			start, err := parseDate(c.Query("start"))
			if err != nil {
				return apimodel.SendError(c, err)
			}
			end, err := parseDate(c.Query("end"))
			if err != nil {
				return apimodel.SendError(c, err)
			}
			stats, err := verifier.GetVerificationStatistics(start, end)
			if err != nil {
				return apimodel.SendError(c, err)
			}
			return c.JSON(stats)
		},
	)

	r.Post(
		"/cleanup", detailsCacheInvalidationMiddleware(verifier), func(c *fiber.Ctx) error {
			var req struct {
				VerificationDays  *int  `json:"verification_days"`
				ExpiredRecordDays *int  `json:"expired_record_days"`
				Archive           *bool `json:"archive"`
			}
			if len(c.Body()) > 0 {
				if err := c.BodyParser(&req); err != nil {
					return c.Status(fiber.StatusBadRequest).JSON(apimodel.ErrorInvalidRequest("invalid body"))
				}
			}
			policy := services.Retention
			if req.VerificationDays != nil {
				policy.VerificationDays = *req.VerificationDays
			}
			if req.ExpiredRecordDays != nil {
				policy.ExpiredRecordDays = *req.ExpiredRecordDays
			}
			policy.Archive = services.Archive
			if req.Archive != nil && !*req.Archive {
				policy.Archive = nil
			}
			res, err := verifier.Cleanup(policy)
			if err != nil {
				return apimodel.SendError(c, err)
			}
			return c.JSON(res)
		},
	)
}
