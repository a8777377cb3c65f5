package adminapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/certkeeper/certkeeper/api/apimodel"
	"github.com/certkeeper/certkeeper/issuance"
	"github.com/certkeeper/certkeeper/storage/model"
)

func registerApplications(r fiber.Router, issuer *issuance.Service) {
	g := r.Group("/applications")

	g.Get(
		"/", func(c *fiber.Ctx) error {
			var status *model.ApplicationStatus
			if s := c.Query("status"); s != "" {
				parsed, err := model.ParseApplicationStatus(s)
				if err != nil {
					return c.Status(fiber.StatusBadRequest).JSON(apimodel.ErrorInvalidRequest(err.Error()))
				}
				status = &parsed
			}
			items, err := issuer.ListApplications(status)
			if err != nil {
				return apimodel.SendError(c, err)
			}
			return c.JSON(items)
		},
	)

	g.Post(
		"/", func(c *fiber.Ctx) error {
			var req issuance.ApplicationRequest
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(apimodel.ErrorInvalidRequest("invalid body"))
			}
			item, err := issuer.SubmitApplication(req)
			if err != nil {
				return apimodel.SendError(c, err)
			}
			return c.Status(fiber.StatusCreated).JSON(item)
		},
	)

	g.Get(
		"/:applicationID", func(c *fiber.Ctx) error {
			item, err := issuer.GetApplication(c.Params("applicationID"))
			if err != nil {
				return apimodel.SendError(c, err)
			}
			return c.JSON(item)
		},
	)

	g.Get(
		"/:applicationID/audits", func(c *fiber.Ctx) error {
			items, err := issuer.ListAudits(c.Params("applicationID"))
			if err != nil {
				return apimodel.SendError(c, err)
			}
			return c.JSON(items)
		},
	)

	review := func(do func(id string, req issuance.ReviewRequest) (*model.CertificateApplication, error)) fiber.Handler {
		return func(c *fiber.Ctx) error {
			var req issuance.ReviewRequest
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(apimodel.ErrorInvalidRequest("invalid body"))
			}
			item, err := do(c.Params("applicationID"), req)
			if err != nil {
				return apimodel.SendError(c, err)
			}
			return c.JSON(item)
		}
	}
	g.Post("/:applicationID/approve", review(issuer.Approve))
	g.Post("/:applicationID/reject", review(issuer.Reject))

	g.Post(
		"/:applicationID/issue", func(c *fiber.Ctx) error {
			var body struct {
				IssueDate string         `json:"issue_date"`
				ImageURL  string         `json:"image_url"`
				Metadata  map[string]any `json:"metadata"`
			}
			if len(c.Body()) > 0 {
				if err := c.BodyParser(&body); err != nil {
					return c.Status(fiber.StatusBadRequest).JSON(apimodel.ErrorInvalidRequest("invalid body"))
				}
			}
			issueDate, err := parseDate(body.IssueDate)
			if err != nil {
				return apimodel.SendError(c, err)
			}
			record, err := issuer.Issue(
				c.Params("applicationID"), issuance.IssueRequest{
					IssueDate: issueDate,
					ImageURL:  body.ImageURL,
					Metadata:  body.Metadata,
				},
			)
			if err != nil {
				return apimodel.SendError(c, err)
			}
			return c.Status(fiber.StatusCreated).JSON(record)
		},
	)
}
