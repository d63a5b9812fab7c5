package model

import "time"

// Status is the lifecycle state of a booking.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusExpired   Status = "EXPIRED"
	StatusCancelled Status = "CANCELLED"
)

// Customer identifies the person who placed a booking.  It is captured at
// creation and never changes afterwards.
type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// Booking is a customer's request for seats at one showtime.
//
// Fields:
//
//	ID                – opaque identifier assigned at creation (UUID v4).
//	Customer          – who booked.
//	ShowtimeID        – the showtime being booked.
//	EventID           – event the customer booked through (optional).
//	RequestedQuantity – number of seats asked for.
//	RequestedSeats    – explicit seat ids when the customer picked seats.
//	AssignedSeats     – seat ids held by the booking; set at Confirm.
//	Status            – lifecycle state.
//	ConfirmationToken – raw token; only populated on the value returned by Create.
//	TokenHash         – SHA‑256 hex digest of the token, the persisted form.
//	TokenExpiresAt    – deadline for Confirm; zero once confirmed.
//	CreatedAt         – creation timestamp.
//	ConfirmedAt       – when the booking was confirmed.
type Booking struct {
	ID                string     `json:"id"`
	Customer          Customer   `json:"customer"`
	ShowtimeID        string     `json:"showtime_id"`
	EventID           string     `json:"event_id,omitempty"`
	RequestedQuantity int        `json:"requested_quantity"`
	RequestedSeats    []string   `json:"requested_seats,omitempty"`
	AssignedSeats     []string   `json:"assigned_seats"`
	Status            Status     `json:"status"`
	ConfirmationToken string     `json:"-"`
	TokenHash         string     `json:"-"`
	TokenExpiresAt    time.Time  `json:"token_expires_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	ConfirmedAt       *time.Time `json:"confirmed_at,omitempty"`
}

// IsExpired reports whether a pending booking's confirmation window has
// elapsed at now.  Confirmed bookings never expire.
func (b *Booking) IsExpired(now time.Time) bool {
	return b.Status == StatusPending && now.After(b.TokenExpiresAt)
}

// Clone returns a deep copy so callers can mutate the result without
// touching a stored value.
func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	cp := *b
	if b.RequestedSeats != nil {
		cp.RequestedSeats = append([]string(nil), b.RequestedSeats...)
	}
	if b.AssignedSeats != nil {
		cp.AssignedSeats = append([]string(nil), b.AssignedSeats...)
	}
	if b.ConfirmedAt != nil {
		t := *b.ConfirmedAt
		cp.ConfirmedAt = &t
	}
	return &cp
}
