package adminapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/certkeeper/certkeeper/api/apimodel"
	"github.com/certkeeper/certkeeper/issuance"
)

func registerTemplates(r fiber.Router, issuer *issuance.Service) {
	g := r.Group("/templates")

	g.Get(
		"/", func(c *fiber.Ctx) error {
			items, err := issuer.ListTemplates()
			if err != nil {
				return apimodel.SendError(c, err)
			}
			return c.JSON(items)
		},
	)

	g.Post(
		"/", func(c *fiber.Ctx) error {
			var req issuance.TemplateRequest
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(apimodel.ErrorInvalidRequest("invalid body"))
			}
			item, err := issuer.CreateTemplate(req)
			if err != nil {
				return apimodel.SendError(c, err)
			}
			return c.Status(fiber.StatusCreated).JSON(item)
		},
	)

	g.Get(
		"/:templateID", func(c *fiber.Ctx) error {
			item, err := issuer.GetTemplate(c.Params("templateID"))
			if err != nil {
				return apimodel.SendError(c, err)
			}
			return c.JSON(item)
		},
	)

	g.Put(
		"/:templateID", func(c *fiber.Ctx) error {
			var req issuance.TemplateRequest
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(apimodel.ErrorInvalidRequest("invalid body"))
			}
			item, err := issuer.UpdateTemplate(c.Params("templateID"), req)
			if err != nil {
				return apimodel.SendError(c, err)
			}
			return c.JSON(item)
		},
	)

	g.Delete(
		"/:templateID", func(c *fiber.Ctx) error {
			if err := issuer.DeleteTemplate(c.Params("templateID")); err != nil {
				return apimodel.SendError(c, err)
			}
			return c.SendStatus(fiber.StatusNoContent)
		},
	)
}
