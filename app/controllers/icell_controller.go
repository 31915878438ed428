package controllers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/audit"
	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/datasync"
	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/env"
	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/jobqueue"
	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/metrics/counter"
	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/sms"
)

// SMSNotificationRequest is the carrier's inbound SMS webhook body.
type SMSNotificationRequest struct {
	Message                string `json:"message" validate:"required"`
	ReceiverAddress        string `json:"receiverAddress"`
	SenderAddress          string `json:"senderAddress" validate:"required"`
	RequestDeliveryReceipt bool   `json:"requestDeliveryReceipt"`
	Created                string `json:"created"`
	ID                     string `json:"id"`
}

// IcellController terminates the carrier webhooks. Handlers do the minimum
// synchronous work (validate, enqueue) and return success immediately so slow
// processing can never trigger carrier-side retransmission storms.
type IcellController struct {
	Pipeline *jobqueue.Pipeline
	Audit    audit.Sink
	validate *validator.Validate
}

// NewIcellController wires the controller.
func NewIcellController(pipeline *jobqueue.Pipeline, sink audit.Sink) *IcellController {
	if sink == nil {
		sink = audit.NopSink{}
	}
	return &IcellController{
		Pipeline: pipeline,
		Audit:    sink,
		validate: validator.New(),
	}
}

// HandleSMSNotification accepts one inbound subscriber SMS and enqueues it.
func (ctl *IcellController) HandleSMSNotification(c *fiber.Ctx) error {
	var req SMSNotificationRequest
	if err := c.BodyParser(&req); err != nil {
		log.Warnf("[Icell] Malformed SMS notification: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "BAD_REQUEST"})
	}
	if err := ctl.validate.Struct(req); err != nil {
		log.Warnf("[Icell] Invalid SMS notification: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "BAD_REQUEST"})
	}

	if err := ctl.Pipeline.EnqueueSMSRequest(sms.InboundSMS{
		Message:         req.Message,
		SenderAddress:   req.SenderAddress,
		ReceiverAddress: req.ReceiverAddress,
	}); err != nil {
		log.Errorf("[Icell] Failed to enqueue SMS request: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": "ERROR"})
	}

	ctl.countHit(counter.ChannelSMS)
	ctl.mirrorHit("icell_sms_hit", map[string]interface{}{
		"sender":  req.SenderAddress,
		"message": req.Message,
	})
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "OK"})
}

// HandleDatasyncNotification accepts one raw datasync record and enqueues it.
func (ctl *IcellController) HandleDatasyncNotification(c *fiber.Ctx) error {
	var req datasync.Request
	if err := c.BodyParser(&req); err != nil {
		log.Warnf("[Icell] Malformed datasync notification: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "BAD_REQUEST"})
	}
	if err := ctl.validate.Struct(req); err != nil {
		log.Warnf("[Icell] Invalid datasync notification: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "BAD_REQUEST"})
	}

	if err := ctl.Pipeline.EnqueueDatasyncRequest(req); err != nil {
		log.Errorf("[Icell] Failed to enqueue datasync request: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": "ERROR"})
	}

	ctl.countHit(counter.ChannelDatasync)
	ctl.mirrorHit("icell_datasync_hit", map[string]interface{}{
		"seqId":      req.SeqID,
		"msisdn":     req.UserID,
		"updateType": req.UpdateType,
	})
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "OK"})
}

// mirrorHit ships production webhook hits to the audit channel, best effort.
func (ctl *IcellController) mirrorHit(event string, fields map[string]interface{}) {
	if env.IsDev() {
		return
	}
	go ctl.Audit.Post(event, fields)
}

func (ctl *IcellController) countHit(channel string) {
	if err := counter.AddHit(channel); err != nil {
		log.Debugf("[Icell] Failed to count %s hit: %v", channel, err)
	}
}
