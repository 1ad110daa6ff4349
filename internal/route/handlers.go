package route

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, managerOnly fiber.Handler) {
	r.Get("/", func(c *fiber.Ctx) error {
		routes, err := svc.ListTemplates(c.Context())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(routes)
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		rt, err := svc.Get(c.Context(), c.Params("id"))
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "route not found")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(rt)
	})

	r.Post("/", managerOnly, func(c *fiber.Ctx) error {
		var req Route
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.Name == "" || len(req.Points) < 2 {
			return fiber.NewError(fiber.StatusBadRequest, "name and at least 2 points required")
		}
		rt, err := svc.Create(c.Context(), req)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(rt)
	})

	r.Put("/:id", managerOnly, func(c *fiber.Ctx) error {
		var body struct {
			Points []Point `json:"points"`
		}
		if err := c.BodyParser(&body); err != nil || len(body.Points) < 2 {
			return fiber.NewError(fiber.StatusBadRequest, "at least 2 points required")
		}
		rt, err := svc.UpdatePoints(c.Context(), c.Params("id"), body.Points)
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "route not found")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(rt)
	})

	r.Delete("/:id", managerOnly, func(c *fiber.Ctx) error {
		if err := svc.Delete(c.Context(), c.Params("id")); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}
