package controllers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/audit"
	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/env"
	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/jobqueue"
	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/metrics/counter"
	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/secured"
)

// SecureDController terminates the billing-partner webhook.
type SecureDController struct {
	Pipeline *jobqueue.Pipeline
	Audit    audit.Sink
	validate *validator.Validate
}

// NewSecureDController wires the controller.
func NewSecureDController(pipeline *jobqueue.Pipeline, sink audit.Sink) *SecureDController {
	if sink == nil {
		sink = audit.NopSink{}
	}
	return &SecureDController{
		Pipeline: pipeline,
		Audit:    sink,
		validate: validator.New(),
	}
}

// HandleNotification accepts one partner notification and enqueues it onto
// the SecureD lane.
func (ctl *SecureDController) HandleNotification(c *fiber.Ctx) error {
	var req secured.Request
	if err := c.BodyParser(&req); err != nil {
		log.Warnf("[SecureD] Malformed notification: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "BAD_REQUEST"})
	}
	if err := ctl.validate.Struct(req); err != nil {
		log.Warnf("[SecureD] Invalid notification: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "BAD_REQUEST"})
	}

	if err := ctl.Pipeline.EnqueueSecureDNotification(req); err != nil {
		log.Errorf("[SecureD] Failed to enqueue notification: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": "ERROR"})
	}

	if err := counter.AddHit(counter.ChannelSecureD); err != nil {
		log.Debugf("[SecureD] Failed to count hit: %v", err)
	}
	if !env.IsDev() {
		go ctl.Audit.Post("secured_hit", map[string]interface{}{
			"msisdn":    req.Msisdn,
			"productId": req.ProductID,
			"trxId":     req.TrxID,
		})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "OK"})
}
