package service

import (
	"context"
	"time"

	"github.com/iliyamo/festival-booking/internal/model"
)

// BookingStore persists bookings.  Get, GetByTokenHash, Update, Delete and
// DeletePending return model.ErrNotFound when no row matches.
type BookingStore interface {
	Create(ctx context.Context, b *model.Booking) error
	Get(ctx context.Context, id string) (*model.Booking, error)
	GetByTokenHash(ctx context.Context, hash string) (*model.Booking, error)
	// Update stores the confirmation of a booking that is still pending.
	Update(ctx context.Context, b *model.Booking) error
	Delete(ctx context.Context, id string) error
	// DeletePending removes a booking only while it is pending, so an
	// expiry never deletes a booking confirmed in the meantime.
	DeletePending(ctx context.Context, id string) error
	List(ctx context.Context) ([]*model.Booking, error)
	// ListExpired returns pending bookings whose token expired before now,
	// oldest first.  limit <= 0 means no limit.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*model.Booking, error)
}

// Catalog resolves showtime metadata.  Unknown ids yield model.ErrNotFound.
type Catalog interface {
	Showtime(ctx context.Context, id string) (*model.Showtime, error)
}

// Notifier delivers customer emails.
type Notifier interface {
	// SendConfirmationRequest asks the customer to follow confirmURL.
	SendConfirmationRequest(ctx context.Context, b *model.Booking, st *model.Showtime, confirmURL string) error
	// SendBookingConfirmed delivers the ticket.  ticket may be nil when
	// rendering failed.
	SendBookingConfirmed(ctx context.Context, b *model.Booking, st *model.Showtime, ticket *model.Ticket) error
}

// TicketRenderer produces the admission document for a confirmed booking.
type TicketRenderer interface {
	Render(b *model.Booking, st *model.Showtime) (*model.Ticket, error)
}
