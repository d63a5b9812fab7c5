package handler

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/festival-booking/internal/model"
	"github.com/iliyamo/festival-booking/internal/service"
)

const requestTimeout = 10 * time.Second

// BookingHandler serves the public booking endpoints.
type BookingHandler struct {
	svc *service.BookingService
	log *zap.Logger
}

// NewBookingHandler panics when svc is nil.
func NewBookingHandler(svc *service.BookingService, log *zap.Logger) *BookingHandler {
	if svc == nil {
		panic("nil service passed to NewBookingHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BookingHandler{svc: svc, log: log}
}

// ----- DTOs -----

type createBookingReq struct {
	ShowtimeID string   `json:"showtime_id"`
	EventID    string   `json:"event_id"`
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Phone      string   `json:"phone"`
	Quantity   int      `json:"quantity"`
	Seats      []string `json:"seats"`
}

type createBookingResp struct {
	ID             string    `json:"id"`
	Status         string    `json:"status"`
	ShowtimeID     string    `json:"showtime_id"`
	Quantity       int       `json:"quantity"`
	TokenExpiresAt time.Time `json:"token_expires_at"`
	Message        string    `json:"message"`
}

type confirmReq struct {
	Token string `json:"token"`
}

// bookingView is the public representation of a booking.  The token hash
// never leaves the server.
type bookingView struct {
	ID               string     `json:"id"`
	Status           string     `json:"status"`
	ShowtimeID       string     `json:"showtime_id"`
	EventID          string     `json:"event_id,omitempty"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	Phone            string     `json:"phone,omitempty"`
	Quantity         int        `json:"quantity"`
	RequestedSeats   []string   `json:"requested_seats,omitempty"`
	Seats            []string   `json:"seats"`
	CreatedAt        time.Time  `json:"created_at"`
	TokenExpiresAt   *time.Time `json:"token_expires_at,omitempty"`
	ConfirmedAt      *time.Time `json:"confirmed_at,omitempty"`
	AlreadyConfirmed bool       `json:"already_confirmed,omitempty"`
}

func viewOf(b *model.Booking) bookingView {
	v := bookingView{
		ID:             b.ID,
		Status:         string(b.Status),
		ShowtimeID:     b.ShowtimeID,
		EventID:        b.EventID,
		Name:           b.Customer.Name,
		Email:          b.Customer.Email,
		Phone:          b.Customer.Phone,
		Quantity:       b.RequestedQuantity,
		RequestedSeats: b.RequestedSeats,
		Seats:          b.AssignedSeats,
		CreatedAt:      b.CreatedAt,
		ConfirmedAt:    b.ConfirmedAt,
	}
	if v.Seats == nil {
		v.Seats = []string{}
	}
	if !b.TokenExpiresAt.IsZero() {
		t := b.TokenExpiresAt
		v.TokenExpiresAt = &t
	}
	return v
}

// Create handles POST /v1/bookings.  The confirmation token is only mailed,
// never returned: possession of the email proves the address.
func (h *BookingHandler) Create(c echo.Context) error {
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	b, err := h.svc.Create(ctx, service.CreateRequest{
		ShowtimeID: req.ShowtimeID,
		EventID:    req.EventID,
		Customer:   model.Customer{Name: req.Name, Email: req.Email, Phone: req.Phone},
		Quantity:   req.Quantity,
		Seats:      req.Seats,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	minutes := int(math.Round(b.TokenExpiresAt.Sub(b.CreatedAt).Minutes()))
	return c.JSON(http.StatusCreated, createBookingResp{
		ID:             b.ID,
		Status:         string(b.Status),
		ShowtimeID:     b.ShowtimeID,
		Quantity:       b.RequestedQuantity,
		TokenExpiresAt: b.TokenExpiresAt,
		Message:        fmt.Sprintf("check your email and confirm within %d minutes", minutes),
	})
}

// Confirm handles POST /v1/bookings/confirm.  Re-confirming an already
// confirmed booking is not an error; the response carries
// already_confirmed=true.
func (h *BookingHandler) Confirm(c echo.Context) error {
	var req confirmReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.svc.Confirm(ctx, req.Token)
	if err != nil {
		return writeError(c, h.log, err)
	}
	v := viewOf(res.Booking)
	v.AlreadyConfirmed = res.AlreadyConfirmed
	return c.JSON(http.StatusOK, v)
}

// CheckToken handles GET /v1/bookings/check-token?token=.  It lets the
// confirmation page show what is about to be confirmed.
func (h *BookingHandler) CheckToken(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	b, err := h.svc.CheckToken(ctx, c.QueryParam("token"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, viewOf(b))
}

// Occupied handles GET /v1/showtimes/:id/occupied-seats.  An unknown
// showtime simply has no occupied seats.
func (h *BookingHandler) Occupied(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	seats, err := h.svc.Occupied(ctx, id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"showtime_id": id, "occupied_seats": seats})
}

// SeatMap handles GET /v1/showtimes/:id/seat-map.
func (h *BookingHandler) SeatMap(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	m, err := h.svc.SeatMap(ctx, strings.TrimSpace(c.Param("id")))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, m)
}
