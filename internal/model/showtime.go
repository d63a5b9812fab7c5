package model

import "time"

// DefaultMaxSeatsPerBooking applies when a showtime does not set its own limit.
const DefaultMaxSeatsPerBooking = 4

// Showtime is one screening slot as published by the festival catalog.  A
// single slot can belong to several events (short-film blocks) which is why
// EventIDs is a list.
//
// Fields:
//
//	ID                     – catalog identifier of the slot.
//	EventIDs               – events screened in this slot.
//	EventTitle             – display title used in emails and tickets.
//	StartsAt               – date and time of the screening.
//	LocationName           – venue name.
//	LocationAddress        – venue address (optional).
//	LayoutID               – seat layout of the venue.
//	BookingEnabled         – whether reservations are open.
//	BookingNotRequired     – free entry; reservations are refused.
//	BookingDisabledMessage – optional text shown when booking is closed.
//	VIPSeats               – seats never offered to the public.
//	DisabledSeats          – seats out of service.
//	MaxSeatsPerBooking     – per-booking quantity limit.
type Showtime struct {
	ID                     string    `json:"id"`
	EventIDs               []string  `json:"event_ids"`
	EventTitle             string    `json:"event_title"`
	StartsAt               time.Time `json:"starts_at"`
	LocationName           string    `json:"location_name"`
	LocationAddress        string    `json:"location_address,omitempty"`
	LayoutID               string    `json:"layout_id"`
	BookingEnabled         bool      `json:"booking_enabled"`
	BookingNotRequired     bool      `json:"booking_not_required"`
	BookingDisabledMessage string    `json:"booking_disabled_message,omitempty"`
	VIPSeats               []string  `json:"vip_seats,omitempty"`
	DisabledSeats          []string  `json:"disabled_seats,omitempty"`
	MaxSeatsPerBooking     int       `json:"max_seats_per_booking,omitempty"`
}

// MaxSeats returns the effective per-booking limit.
func (s *Showtime) MaxSeats() int {
	if s.MaxSeatsPerBooking <= 0 {
		return DefaultMaxSeatsPerBooking
	}
	return s.MaxSeatsPerBooking
}

// HasEvent reports whether eventID is screened in this slot.
func (s *Showtime) HasEvent(eventID string) bool {
	for _, id := range s.EventIDs {
		if id == eventID {
			return true
		}
	}
	return false
}

// Description formats the slot the way it appears in customer emails,
// e.g. "12/07/2025 - 21:30 @ Cinema Capitol".
func (s *Showtime) Description() string {
	out := s.StartsAt.Format("02/01/2006 - 15:04")
	if s.LocationName != "" {
		out += " @ " + s.LocationName
	}
	return out
}
