package sms

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"

	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/carrier"
	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/catalog"
)

// Carrier is the slice of the carrier client the handler drives.
type Carrier interface {
	SendSMS(ctx context.Context, payload carrier.SMSPayload) carrier.Result
	Subscribe(ctx context.Context, msisdn string, svc *catalog.Service, prod *catalog.Product, channel string) carrier.Result
	Unsubscribe(ctx context.Context, msisdn string, svc *catalog.Service, prod *catalog.Product) carrier.Result
}

// InboundSMS is one subscriber message delivered by the carrier webhook.
type InboundSMS struct {
	Message         string `json:"message"`
	SenderAddress   string `json:"senderAddress"`
	ReceiverAddress string `json:"receiverAddress"`
}

// Handler orchestrates inbound SMS: resolve the keyword, drive the carrier
// transaction, and send exactly one reply to the original sender.
type Handler struct {
	Catalog *catalog.Catalog
	Carrier Carrier
	Channel string // provisioning channel reported to the carrier, e.g. "SMS"
}

// NewHandler wires the handler with its collaborators.
func NewHandler(cat *catalog.Catalog, car Carrier) *Handler {
	return &Handler{Catalog: cat, Carrier: car, Channel: "SMS"}
}

// HandleInbound processes one inbound message. The reply SMS is the handler's
// sole terminal side effect; its delivery result is returned for the job
// runtime to decide on retries.
func (h *Handler) HandleInbound(ctx context.Context, msg InboundSMS) error {
	return h.DeliverReply(ctx, msg.SenderAddress, h.ComposeReply(ctx, msg))
}

// ComposeReply resolves the keyword and drives the carrier transaction,
// returning the reply text to send. Separated from delivery so a redelivered
// job can resend a composed reply without firing the carrier transaction a
// second time.
func (h *Handler) ComposeReply(ctx context.Context, msg InboundSMS) string {
	resolution := h.Catalog.ResolveKeyword(msg.Message)

	switch resolution.Kind {
	case catalog.MatchSubscribe:
		return h.handleSubscribe(ctx, msg, resolution)
	case catalog.MatchUnsubscribe:
		return h.handleUnsubscribe(ctx, msg, resolution)
	default:
		return h.usageHelp()
	}
}

// DeliverReply sends the single reply SMS to the original sender.
func (h *Handler) DeliverReply(ctx context.Context, to, reply string) error {
	result := h.Carrier.SendSMS(ctx, carrier.SMSPayload{
		Message:         reply,
		ReceiverAddress: to,
	})
	if !result.Success {
		return fmt.Errorf("failed to deliver reply SMS to %s: %s", to, result.Message)
	}
	return nil
}

func (h *Handler) handleSubscribe(ctx context.Context, msg InboundSMS, res catalog.Resolution) string {
	svc, prod, ok := h.Catalog.FindProduct(res.ServiceID, res.ProductID)
	if !ok {
		// Keyword matched but catalog lookup failed; guide the user rather
		// than erroring.
		log.Warnf("[SMS] Keyword %q resolved to unknown product %s/%s", res.Keyword, res.ServiceID, res.ProductID)
		return h.usageHelp()
	}

	result := h.Carrier.Subscribe(ctx, msg.SenderAddress, svc, prod, h.Channel)
	if !result.Success {
		log.Errorf("[SMS] Subscribe failed for %s on %s: %s", msg.SenderAddress, prod.ID, result.Message)
		return "We could not complete your request at this time. Please try again later."
	}
	return fmt.Sprintf("Thank you! Your subscription to %s is now processing. You will receive a confirmation shortly.", prod.Name)
}

func (h *Handler) handleUnsubscribe(ctx context.Context, msg InboundSMS, res catalog.Resolution) string {
	svc, prod, ok := h.Catalog.FindProduct(res.ServiceID, res.ProductID)
	if !ok {
		log.Warnf("[SMS] Keyword %q resolved to unknown product %s/%s", res.Keyword, res.ServiceID, res.ProductID)
		return h.usageHelp()
	}

	result := h.Carrier.Unsubscribe(ctx, msg.SenderAddress, svc, prod)
	if !result.Success {
		log.Errorf("[SMS] Unsubscribe failed for %s on %s: %s", msg.SenderAddress, prod.ID, result.Message)
		return "We could not complete your request at this time. Please try again later."
	}
	return fmt.Sprintf("You have been unsubscribed from %s. Text %s to subscribe again.", prod.Name, prod.PrimaryOptInKeyword())
}

// usageHelp lists the opt-in keywords a subscriber can text.
func (h *Handler) usageHelp() string {
	var keywords []string
	for _, svc := range h.Catalog.Services() {
		for _, prod := range svc.Products {
			if kw := prod.PrimaryOptInKeyword(); kw != "" {
				keywords = append(keywords, strings.ToUpper(kw))
			}
		}
	}
	if len(keywords) == 0 {
		return "Sorry, we did not understand your message."
	}
	return "Sorry, we did not understand your message. Text one of: " + strings.Join(keywords, ", ")
}
