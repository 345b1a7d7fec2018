package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/dialog-console/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Queue   *handlers.QueueHandler
	Dialogs *handlers.DialogsHandler
	Prefs   *handlers.PrefsHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	queue := app.Group("/queue")
	queue.Get("/", cfg.Queue.List)
	queue.Get("/summary", cfg.Queue.Summary)
	queue.Post("/query", cfg.Queue.UpdateQuery)
	queue.Post("/selection", cfg.Queue.UpdateSelection)
	queue.Delete("/selection", cfg.Queue.ClearSelection)
	queue.Post("/bulk", cfg.Queue.Bulk)

	dialogs := app.Group("/dialogs")
	dialogs.Post("/:id/open", cfg.Dialogs.Open)
	dialogs.Post("/:id/actions/:action", cfg.Dialogs.Action)
	dialogs.Post("/:id/reply", cfg.Dialogs.Reply)
	dialogs.Put("/:id/messages/:mid", cfg.Dialogs.EditMessage)
	dialogs.Delete("/:id/messages/:mid", cfg.Dialogs.DeleteMessage)
	dialogs.Post("/:id/media", cfg.Dialogs.UploadMedia)
	dialogs.Get("/:id/draft", cfg.Dialogs.Draft)
	dialogs.Put("/:id/draft", cfg.Dialogs.SaveDraft)
	dialogs.Delete("/:id/draft", cfg.Dialogs.DeleteDraft)

	app.Post("/session/visibility", cfg.Queue.Visibility)

	app.Get("/prefs", cfg.Prefs.Get)
	app.Put("/prefs", cfg.Prefs.Update)
}
