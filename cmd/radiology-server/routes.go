package main

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// routeRegistrar is implemented by every domain handler.
type routeRegistrar interface {
	RegisterRoutes(g *echo.Group)
}

// mount registers each handler on every group, so the cookie and bearer
// adapters expose the same operations.
func mount(handlers []routeRegistrar, groups ...*echo.Group) {
	for _, g := range groups {
		for _, h := range handlers {
			h.RegisterRoutes(g)
		}
	}
}

// probeSkipper exempts health checks and scrapes from rate limiting. Login
// stays limited.
func probeSkipper(c echo.Context) bool {
	p := c.Path()
	return p == "/metrics" || strings.HasPrefix(p, "/health")
}
