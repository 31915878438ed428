package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/KizitoNaanma/MS-VAS-sub001/app/controllers"
	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/constants"
	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/entitlement"
)

// Router installs one route group on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

// Deps carries the wired controllers and guard the routers need.
type Deps struct {
	Icell   *controllers.IcellController
	SecureD *controllers.SecureDController
	Content *controllers.ContentController
	Guard   *entitlement.Guard
}

// InstallRouter registers all route groups.
func InstallRouter(app *fiber.App, deps Deps) {
	setup(app, NewWebhookRouter(deps), NewContentRouter(deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}

// WebhookRouter carries the carrier-facing notification routes. These are
// trusted by network origin only; there is no application auth on them.
type WebhookRouter struct {
	deps Deps
}

func NewWebhookRouter(deps Deps) *WebhookRouter {
	return &WebhookRouter{deps: deps}
}

func (r *WebhookRouter) InstallRouter(app *fiber.App) {
	icell := app.Group(constants.IcellRoute)
	icell.Post(constants.SMSNotificationRoute, r.deps.Icell.HandleSMSNotification)
	icell.Post(constants.DatasyncNotificationRoute, r.deps.Icell.HandleDatasyncNotification)

	app.Post(constants.SecureDNotificationRoute, r.deps.SecureD.HandleNotification)

	app.Get(constants.HealthRoute, func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "OK"})
	})
}

// ContentRouter carries the subscriber-facing protected routes.
type ContentRouter struct {
	deps Deps
}

func NewContentRouter(deps Deps) *ContentRouter {
	return &ContentRouter{deps: deps}
}

func (r *ContentRouter) InstallRouter(app *fiber.App) {
	content := app.Group(constants.ContentRoute, limiter.New())
	content.Get(constants.DailyContentRoute, entitlement.RequireActiveSubscription(r.deps.Guard), r.deps.Content.HandleDailyContent)
}
