package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/festival-booking/internal/handler"
)

// Middlewares are the Redis-backed wrappers applied to selected routes.  Nil
// fields mean no wrapping.
type Middlewares struct {
	RateLimit echo.MiddlewareFunc // public write endpoints
	Cache     echo.MiddlewareFunc // immutable read endpoints
}

func (m Middlewares) rateLimit() []echo.MiddlewareFunc {
	if m.RateLimit == nil {
		return nil
	}
	return []echo.MiddlewareFunc{m.RateLimit}
}

func (m Middlewares) cache() []echo.MiddlewareFunc {
	if m.Cache == nil {
		return nil
	}
	return []echo.MiddlewareFunc{m.Cache}
}

// RegisterRoutes registers the health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterPublic registers unauthenticated programme and venue endpoints.
// Layouts never change at runtime so they go through the response cache;
// showtimes carry booking flags and are cached at the catalog layer instead.
func RegisterPublic(e *echo.Echo, p *handler.CatalogHandler, mw Middlewares) {
	e.GET("/v1/showtimes", p.Showtimes)
	e.GET("/v1/layouts/:id", p.Layout, mw.cache()...)
}
