package controllers

import (
	"github.com/gofiber/fiber/v2"
)

// ContentController fronts the protected-content collaborators. Content
// rendering itself lives in the static-content services; this surface only
// exists so the entitlement guard has endpoints to wrap.
type ContentController struct{}

// NewContentController wires the controller.
func NewContentController() *ContentController {
	return &ContentController{}
}

// HandleDailyContent serves today's protected item. The route is registered
// behind entitlement.RequireActiveSubscription.
func (ctl *ContentController) HandleDailyContent(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "OK",
		"data": fiber.Map{
			"kind": "daily",
		},
	})
}
