package certkeeper

import (
	"github.com/gofiber/fiber/v2"

	"github.com/certkeeper/certkeeper/api/apimodel"
	"github.com/certkeeper/certkeeper/verification"
)

type batchVerifyRequest struct {
	CertificateNumbers []string `json:"certificate_numbers"`
}

// requestInfo extracts the requester information from a request
func requestInfo(c *fiber.Ctx) verification.RequestInfo {
	return verification.RequestInfo{
		IP:             c.IP(),
		UserAgent:      c.Get(fiber.HeaderUserAgent),
		Referer:        c.Get(fiber.HeaderReferer),
		AcceptLanguage: c.Get(fiber.HeaderAcceptLanguage),
	}
}

func (ck *CertKeeper) registerVerificationEndpoints() {
	verifier := ck.verifier
	withRequest := func(do func(c *fiber.Ctx) any) fiber.Handler {
		return func(c *fiber.Ctx) error {
			c.SetUserContext(verification.WithRequestInfo(c.UserContext(), requestInfo(c)))
			return c.JSON(do(c))
		}
	}

	ck.server.Get(
		"/verify/number/:number", withRequest(
			func(c *fiber.Ctx) any {
				return verifier.VerifyByCertificateNumber(c.UserContext(), c.Params("number"))
			},
		),
	)
	ck.server.Get(
		"/verify/code/:code", withRequest(
			func(c *fiber.Ctx) any {
				return verifier.VerifyByVerificationCode(c.UserContext(), c.Params("code"))
			},
		),
	)
	ck.server.Get(
		"/verify/qr", func(c *fiber.Ctx) error {
			if c.Query("payload") == "" {
				return c.Status(fiber.StatusBadRequest).JSON(apimodel.ErrorInvalidRequest("parameter 'payload' is required"))
			}
			return withRequest(
				func(c *fiber.Ctx) any {
					return verifier.VerifyByQRCode(c.UserContext(), c.Query("payload"))
				},
			)(c)
		},
	)
	ck.server.Post(
		"/verify/batch", func(c *fiber.Ctx) error {
			var req batchVerifyRequest
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(apimodel.ErrorInvalidRequest("invalid body"))
			}
			if len(req.CertificateNumbers) == 0 {
				return c.Status(fiber.StatusBadRequest).JSON(
					apimodel.ErrorInvalidRequest("certificate_numbers is required"),
				)
			}
			if len(req.CertificateNumbers) > maxBatchSize {
				return c.Status(fiber.StatusBadRequest).JSON(
					apimodel.ErrorInvalidRequest("too many certificate_numbers"),
				)
			}
			return withRequest(
				func(c *fiber.Ctx) any {
					return verifier.BatchVerify(c.UserContext(), req.CertificateNumbers)
				},
			)(c)
		},
	)
	ck.server.Get(
		"/certificates/:number", func(c *fiber.Ctx) error {
			details, err := verifier.GetCertificateDetails(c.Params("number"))
			if err != nil {
				return apimodel.SendError(c, err)
			}
			if details == nil {
				return c.Status(fiber.StatusNotFound).JSON(apimodel.ErrorNotFound("certificate not found"))
			}
			return c.JSON(details)
		},
	)
}
