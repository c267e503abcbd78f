package router

import (
	"github.com/gofiber/fiber/v2"
)

// Router installs a route group on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

// InstallRouter mounts all route groups.
func InstallRouter(app *fiber.App, deps Dependencies) {
	setup(app, NewApiRouter(deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
