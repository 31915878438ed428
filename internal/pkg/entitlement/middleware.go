package entitlement

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/usercontext"
)

// RequireActiveSubscription wraps protected content routes. The access count
// is charged only after the wrapped handler returns without error: a failed
// content delivery never consumes entitlement.
func RequireActiveSubscription(guard *Guard) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uc := usercontext.GetUserContext(c)

		decision, err := guard.Check(uc)
		if err != nil {
			return err
		}

		switch decision.Kind {
		case DeniedUnauthenticated:
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":   "unauthorized",
				"message": "login required",
			})
		case DeniedNoSubscription:
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":   "no_subscription",
				"message": "You have no active subscription. Please subscribe to access this content.",
			})
		case DeniedExhausted:
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":   "access_exhausted",
				"message": "You have reached the maximum access for your subscription.",
			})
		case Bypassed:
			return c.Next()
		}

		if err := c.Next(); err != nil {
			return err
		}

		consumed, err := guard.Consume(decision.Subscription)
		if err != nil {
			// Content was already delivered; log the charge failure rather
			// than turning a served request into an error.
			log.Errorf("[Entitlement] Failed to consume access on subscription %d: %v", decision.Subscription.ID, err)
			return nil
		}
		if !consumed {
			log.Warnf("[Entitlement] Subscription %d exhausted concurrently; no access charged", decision.Subscription.ID)
		}
		return nil
	}
}
