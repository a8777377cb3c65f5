package adminapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/certkeeper/certkeeper/api/apimodel"
	"github.com/certkeeper/certkeeper/issuance"
	"github.com/certkeeper/certkeeper/verification"
)

func registerCertificates(r fiber.Router, issuer *issuance.Service, verifier *verification.Service) {
	g := r.Group("/certificates/:certificateID")
	withCacheWipe := g.Use(detailsCacheInvalidationMiddleware(verifier))

	withCacheWipe.Post(
		"/revoke", func(c *fiber.Ctx) error {
			record, err := issuer.Revoke(c.Params("certificateID"))
			if err != nil {
				return apimodel.SendError(c, err)
			}
			return c.JSON(record)
		},
	)

	withCacheWipe.Post(
		"/reinstate", func(c *fiber.Ctx) error {
			record, err := issuer.Reinstate(c.Params("certificateID"))
			if err != nil {
				return apimodel.SendError(c, err)
			}
			return c.JSON(record)
		},
	)

	withCacheWipe.Put(
		"/expiry", func(c *fiber.Ctx) error {
			var req struct {
				ExpiryDate *string `json:"expiry_date"`
			}
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(apimodel.ErrorInvalidRequest("invalid body"))
			}
			var value string
			if req.ExpiryDate != nil {
				value = *req.ExpiryDate
				if value == "" {
					return c.Status(fiber.StatusBadRequest).JSON(apimodel.ErrorInvalidRequest("expiry_date must not be empty"))
				}
			}
			expiry, err := parseDate(value)
			if err != nil {
				return apimodel.SendError(c, err)
			}
			record, err := issuer.Renew(c.Params("certificateID"), expiry)
			if err != nil {
				return apimodel.SendError(c, err)
			}
			return c.JSON(record)
		},
	)

	withCacheWipe.Put(
		"/metadata", func(c *fiber.Ctx) error {
			var metadata map[string]any
			if err := c.BodyParser(&metadata); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(apimodel.ErrorInvalidRequest("invalid body"))
			}
			record, err := issuer.UpdateMetadata(c.Params("certificateID"), metadata)
			if err != nil {
				return apimodel.SendError(c, err)
			}
			return c.JSON(record)
		},
	)

	g.Get(
		"/verifications", func(c *fiber.Ctx) error {
			entries, err := verifier.GetVerificationHistory(c.Params("certificateID"))
			if err != nil {
				return apimodel.SendError(c, err)
			}
			return c.JSON(entries)
		},
	)

	g.Get(
		"/frequency", func(c *fiber.Ctx) error {
			window, err := queryDuration(c, "window")
			if err != nil {
				return apimodel.SendError(c, err)
			}
			threshold, err := queryInt(c, "threshold")
			if err != nil {
				return apimodel.SendError(c, err)
			}
			frequent, err := verifier.IsFrequentlyVerified(c.Params("certificateID"), window, threshold)
			if err != nil {
				return apimodel.SendError(c, err)
			}
			return c.JSON(
				fiber.Map{
					"certificate_id":      c.Params("certificateID"),
					"frequently_verified": frequent,
				},
			)
		},
	)
}
