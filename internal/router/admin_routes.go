package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/festival-booking/internal/handler"
	"github.com/iliyamo/festival-booking/internal/middleware"
)

// RegisterAdmin registers staff endpoints under /v1/admin.  Login is open
// (and rate limited); everything else requires a JWT with role ADMIN.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, p *handler.CatalogHandler, jwtSecret string, mw Middlewares) {
	e.POST("/v1/admin/login", h.Login, mw.rateLimit()...)

	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RoleAdmin),
	)
	g.GET("/bookings", h.List)
	g.DELETE("/bookings/:id", h.Cancel)
	g.POST("/catalog/refresh", p.Refresh)
}
