package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/festival-booking/internal/handler"
)

// RegisterBooking registers the customer booking flow.  Customers are not
// authenticated: the emailed token is their proof of ownership, so the
// write endpoints are rate limited instead.
func RegisterBooking(e *echo.Echo, h *handler.BookingHandler, mw Middlewares) {
	g := e.Group("/v1")
	g.POST("/bookings", h.Create, mw.rateLimit()...)
	g.POST("/bookings/confirm", h.Confirm, mw.rateLimit()...)
	g.GET("/bookings/check-token", h.CheckToken, mw.rateLimit()...)

	// occupancy changes with every confirm; never response-cached
	g.GET("/showtimes/:id/occupied-seats", h.Occupied)
	g.GET("/showtimes/:id/seat-map", h.SeatMap)
}
