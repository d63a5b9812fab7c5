// Package service implements the booking engine: creating pending bookings,
// confirming them by token, cancelling them and answering occupancy queries.
//
// Seats are assigned at Confirm, never at Create.  Confirm and Cancel run
// under a per-showtime lock so the read-allocate-reserve sequence against the
// ledger is atomic with respect to other writers of the same showtime.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/festival-booking/internal/allocation"
	"github.com/iliyamo/festival-booking/internal/layout"
	"github.com/iliyamo/festival-booking/internal/ledger"
	"github.com/iliyamo/festival-booking/internal/lock"
	"github.com/iliyamo/festival-booking/internal/model"
	"github.com/iliyamo/festival-booking/internal/utils"
)

// DefaultTokenTTL is how long a customer has to confirm a booking.
const DefaultTokenTTL = 10 * time.Minute

// Deps are the collaborators of BookingService.  Store, Catalog, Ledger,
// Locker and Notifier are required.
type Deps struct {
	Store    BookingStore
	Catalog  Catalog
	Ledger   ledger.Ledger
	Locker   lock.Locker
	Notifier Notifier
	Tickets  TicketRenderer
	Logger   *zap.Logger
}

// Options tune BookingService.
type Options struct {
	TokenTTL   time.Duration
	ConfirmURL string           // base of the link mailed to customers; token is appended as ?token=
	Now        func() time.Time // clock, defaults to time.Now
}

// BookingService is the reservation state machine.
type BookingService struct {
	store    BookingStore
	catalog  Catalog
	ledger   ledger.Ledger
	locker   lock.Locker
	notifier Notifier
	tickets  TicketRenderer
	log      *zap.Logger

	tokenTTL   time.Duration
	confirmURL string
	now        func() time.Time
}

// NewBookingService wires a BookingService.  It panics when a required
// dependency is missing.
func NewBookingService(d Deps, opts Options) *BookingService {
	if d.Store == nil || d.Catalog == nil || d.Ledger == nil || d.Locker == nil || d.Notifier == nil {
		panic("nil dependency passed to NewBookingService")
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = DefaultTokenTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &BookingService{
		store:      d.Store,
		catalog:    d.Catalog,
		ledger:     d.Ledger,
		locker:     d.Locker,
		notifier:   d.Notifier,
		tickets:    d.Tickets,
		log:        d.Logger,
		tokenTTL:   opts.TokenTTL,
		confirmURL: opts.ConfirmURL,
		now:        func() time.Time { return opts.Now().UTC() },
	}
}

// CreateRequest is the input of Create.  Seats is optional; when set the
// customer picked exact seats and Quantity may be left zero.
type CreateRequest struct {
	ShowtimeID string
	EventID    string
	Customer   model.Customer
	Quantity   int
	Seats      []string
}

// ConfirmResult is returned by Confirm.  AlreadyConfirmed is set when the
// token belonged to a booking confirmed earlier; Booking is then the stored
// booking unchanged.
type ConfirmResult struct {
	Booking          *model.Booking
	AlreadyConfirmed bool
}

// Create validates the request, checks capacity and stores a pending
// booking, then mails the confirmation link.  The returned booking carries
// the raw ConfirmationToken; it is not retrievable afterwards.
func (s *BookingService) Create(ctx context.Context, req CreateRequest) (*model.Booking, error) {
	cust, err := normalizeCustomer(req.Customer)
	if err != nil {
		return nil, err
	}
	showtimeID := strings.TrimSpace(req.ShowtimeID)
	if showtimeID == "" {
		return nil, model.Validationf("showtime id is required")
	}
	seats := normalizeSeats(req.Seats)
	quantity := req.Quantity
	if len(seats) > 0 {
		if quantity == 0 {
			quantity = len(seats)
		}
		if quantity != len(seats) {
			return nil, model.Validationf("quantity %d does not match %d selected seats", quantity, len(seats))
		}
	}
	if quantity < 1 {
		return nil, model.Validationf("quantity must be at least 1")
	}

	st, err := s.catalog.Showtime(ctx, showtimeID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, model.Validationf("unknown showtime %s", showtimeID)
	}
	if err != nil {
		return nil, fmt.Errorf("load showtime %s: %w", showtimeID, err)
	}
	if quantity > st.MaxSeats() {
		return nil, model.Validationf("at most %d seats per booking", st.MaxSeats())
	}
	eventID := strings.TrimSpace(req.EventID)
	if eventID != "" && !st.HasEvent(eventID) {
		return nil, model.Validationf("event %s is not screened in showtime %s", eventID, st.ID)
	}
	if err := bookable(st); err != nil {
		return nil, err
	}

	l := layout.ForID(st.LayoutID)
	if len(seats) > 0 {
		if err := allocation.CheckSelection(seats, l, st.VIPSeats, st.DisabledSeats); err != nil {
			return nil, err
		}
	}
	occupied, err := s.ledger.Occupied(ctx, st.ID)
	if err != nil {
		return nil, fmt.Errorf("read occupancy %s: %w", st.ID, err)
	}
	available := allocation.Available(l, occupied, st.VIPSeats, st.DisabledSeats)
	if available < quantity {
		return nil, &model.CapacityError{Requested: quantity, Available: available}
	}
	for _, seat := range seats {
		if occupied.Has(seat) {
			return nil, &model.CapacityError{Requested: quantity, Available: available}
		}
	}

	token, err := utils.NewConfirmationToken()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	now := s.now()
	b := &model.Booking{
		ID:                uuid.NewString(),
		Customer:          cust,
		ShowtimeID:        st.ID,
		EventID:           eventID,
		RequestedQuantity: quantity,
		RequestedSeats:    seats,
		AssignedSeats:     []string{},
		Status:            model.StatusPending,
		TokenHash:         utils.HashToken(token),
		TokenExpiresAt:    now.Add(s.tokenTTL),
		CreatedAt:         now,
	}
	if err := s.store.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("store booking: %w", err)
	}

	if err := s.notifier.SendConfirmationRequest(ctx, b, st, s.confirmLink(token)); err != nil {
		// no orphan pending bookings for customers who never got the link
		if derr := s.store.DeletePending(context.WithoutCancel(ctx), b.ID); derr != nil && !errors.Is(derr, model.ErrNotFound) {
			s.log.Error("rollback booking after notification failure",
				zap.String("booking_id", b.ID), zap.Error(derr))
		}
		s.log.Warn("confirmation request not sent",
			zap.String("booking_id", b.ID), zap.String("showtime_id", st.ID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", model.ErrNotificationFailure, err)
	}

	s.log.Info("booking created",
		zap.String("booking_id", b.ID),
		zap.String("showtime_id", st.ID),
		zap.Int("quantity", quantity),
	)
	out := b.Clone()
	out.ConfirmationToken = token
	return out, nil
}

// Confirm moves the pending booking owning token to Confirmed and assigns
// its seats.  An expired token deletes the booking.  A shortfall leaves the
// booking pending so the customer can retry before expiry.
func (s *BookingService) Confirm(ctx context.Context, token string) (*ConfirmResult, error) {
	b, err := s.byToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if b.Status == model.StatusConfirmed {
		return &ConfirmResult{Booking: b, AlreadyConfirmed: true}, nil
	}
	if b.IsExpired(s.now()) {
		return nil, s.expire(ctx, b)
	}

	st, err := s.catalog.Showtime(ctx, b.ShowtimeID)
	if err != nil {
		return nil, fmt.Errorf("load showtime %s: %w", b.ShowtimeID, err)
	}

	unlock, err := s.locker.Lock(ctx, b.ShowtimeID)
	if err != nil {
		return nil, fmt.Errorf("lock showtime %s: %w", b.ShowtimeID, err)
	}
	confirmed, already, err := s.confirmLocked(ctx, b.ID, st)
	unlock()
	if err != nil {
		return nil, err
	}
	if already {
		return &ConfirmResult{Booking: confirmed, AlreadyConfirmed: true}, nil
	}

	s.log.Info("booking confirmed",
		zap.String("booking_id", confirmed.ID),
		zap.String("showtime_id", confirmed.ShowtimeID),
		zap.Strings("seats", confirmed.AssignedSeats),
	)
	s.deliverTicket(ctx, confirmed, st)
	return &ConfirmResult{Booking: confirmed}, nil
}

// confirmLocked must run while holding the showtime lock.  The booking is
// re-read because it may have been confirmed, cancelled or expired while
// waiting for the lock.
func (s *BookingService) confirmLocked(ctx context.Context, id string, st *model.Showtime) (*model.Booking, bool, error) {
	b, err := s.store.Get(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return nil, false, fmt.Errorf("%w: booking no longer exists", model.ErrTokenInvalid)
	}
	if err != nil {
		return nil, false, fmt.Errorf("load booking %s: %w", id, err)
	}
	if b.Status == model.StatusConfirmed {
		return b, true, nil
	}
	now := s.now()
	if b.IsExpired(now) {
		return nil, false, s.expire(ctx, b)
	}

	occupied, err := s.ledger.Occupied(ctx, b.ShowtimeID)
	if err != nil {
		return nil, false, fmt.Errorf("read occupancy %s: %w", b.ShowtimeID, err)
	}
	l := layout.ForID(st.LayoutID)
	var seats []string
	if len(b.RequestedSeats) > 0 {
		seats, err = allocation.Claim(b.RequestedSeats, l, occupied, st.VIPSeats, st.DisabledSeats)
	} else {
		seats, err = allocation.Allocate(b.RequestedQuantity, l, occupied, st.VIPSeats, st.DisabledSeats)
	}
	if err != nil {
		return nil, false, err
	}

	if err := s.ledger.Reserve(ctx, b.ShowtimeID, seats); err != nil {
		return nil, false, fmt.Errorf("reserve seats %s: %w", b.ShowtimeID, err)
	}
	b.AssignedSeats = seats
	b.Status = model.StatusConfirmed
	b.ConfirmedAt = &now
	b.TokenExpiresAt = time.Time{}
	if err := s.store.Update(ctx, b); err != nil {
		if rerr := s.ledger.Release(context.WithoutCancel(ctx), b.ShowtimeID, seats); rerr != nil {
			s.log.Error("release seats after failed confirm",
				zap.String("booking_id", b.ID), zap.Strings("seats", seats), zap.Error(rerr))
		}
		if errors.Is(err, model.ErrNotFound) {
			// expired and purged while the seats were being assigned
			return nil, false, fmt.Errorf("%w: booking no longer exists", model.ErrTokenInvalid)
		}
		return nil, false, fmt.Errorf("store confirmed booking %s: %w", b.ID, err)
	}
	return b, false, nil
}

// deliverTicket renders the ticket and mails it.  Failures are logged only:
// the seats are already committed.
func (s *BookingService) deliverTicket(ctx context.Context, b *model.Booking, st *model.Showtime) {
	var ticket *model.Ticket
	if s.tickets != nil {
		t, err := s.tickets.Render(b, st)
		if err != nil {
			s.log.Error("render ticket", zap.String("booking_id", b.ID), zap.Error(err))
		} else {
			ticket = t
		}
	}
	if err := s.notifier.SendBookingConfirmed(ctx, b, st, ticket); err != nil {
		s.log.Error("send confirmation email", zap.String("booking_id", b.ID), zap.Error(err))
	}
}

// CheckToken returns the pending booking for token without changing it.
// Confirmed bookings yield model.ErrAlreadyConfirmed and expired ones
// model.ErrTokenExpired.
func (s *BookingService) CheckToken(ctx context.Context, token string) (*model.Booking, error) {
	b, err := s.byToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if b.Status == model.StatusConfirmed {
		return nil, model.ErrAlreadyConfirmed
	}
	if b.IsExpired(s.now()) {
		return nil, model.ErrTokenExpired
	}
	return b, nil
}

// Cancel removes a booking.  A confirmed booking releases its seats first.
// The returned snapshot has status Cancelled.
func (s *BookingService) Cancel(ctx context.Context, id string) (*model.Booking, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, model.ErrNotFound
	}
	b, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "load booking %s", id)
	}

	unlock, err := s.locker.Lock(ctx, b.ShowtimeID)
	if err != nil {
		return nil, fmt.Errorf("lock showtime %s: %w", b.ShowtimeID, err)
	}
	defer unlock()

	b, err = s.store.Get(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "load booking %s", id)
	}
	held := b.Status == model.StatusConfirmed && len(b.AssignedSeats) > 0
	if held {
		if err := s.ledger.Release(ctx, b.ShowtimeID, b.AssignedSeats); err != nil {
			return nil, fmt.Errorf("release seats %s: %w", b.ShowtimeID, err)
		}
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if held {
			// put the seats back so the still-stored booking keeps them
			if rerr := s.ledger.Reserve(context.WithoutCancel(ctx), b.ShowtimeID, b.AssignedSeats); rerr != nil {
				s.log.Error("restore seats after failed cancel",
					zap.String("booking_id", id), zap.Error(rerr))
			}
		}
		return nil, notFoundOr(err, "delete booking %s", id)
	}

	s.log.Info("booking cancelled",
		zap.String("booking_id", id),
		zap.String("previous_status", string(b.Status)),
		zap.Strings("released", b.AssignedSeats),
	)
	b.Status = model.StatusCancelled
	return b, nil
}

// List returns every stored booking, newest first.
func (s *BookingService) List(ctx context.Context) ([]*model.Booking, error) {
	items, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return items, nil
}

// Occupied returns the taken seats of a showtime in lexical order.
func (s *BookingService) Occupied(ctx context.Context, showtimeID string) ([]string, error) {
	set, err := s.ledger.Occupied(ctx, showtimeID)
	if err != nil {
		return nil, fmt.Errorf("read occupancy %s: %w", showtimeID, err)
	}
	return set.Sorted(), nil
}

// SeatMap describes the booking state of one showtime for seat pickers.
type SeatMap struct {
	ShowtimeID     string   `json:"showtime_id"`
	LayoutID       string   `json:"layout_id"`
	Occupied       []string `json:"occupied_seats"`
	VIP            []string `json:"vip_seats"`
	Disabled       []string `json:"disabled_seats"`
	Available      int      `json:"available"`
	MaxPerBooking  int      `json:"max_seats_per_booking"`
	BookingEnabled bool     `json:"booking_enabled"`
	Message        string   `json:"message,omitempty"`
}

// SeatMap combines catalog flags, the layout and the ledger for a showtime.
func (s *BookingService) SeatMap(ctx context.Context, showtimeID string) (*SeatMap, error) {
	st, err := s.catalog.Showtime(ctx, showtimeID)
	if err != nil {
		return nil, notFoundOr(err, "load showtime %s", showtimeID)
	}
	occupied, err := s.ledger.Occupied(ctx, st.ID)
	if err != nil {
		return nil, fmt.Errorf("read occupancy %s: %w", st.ID, err)
	}
	l := layout.ForID(st.LayoutID)
	m := &SeatMap{
		ShowtimeID:     st.ID,
		LayoutID:       l.ID,
		Occupied:       occupied.Sorted(),
		VIP:            model.NewSeatSet(st.VIPSeats).Sorted(),
		Disabled:       model.NewSeatSet(st.DisabledSeats).Sorted(),
		Available:      allocation.Available(l, occupied, st.VIPSeats, st.DisabledSeats),
		MaxPerBooking:  st.MaxSeats(),
		BookingEnabled: true,
	}
	if err := bookable(st); err != nil {
		m.BookingEnabled = false
		m.Message = strings.TrimPrefix(err.Error(), model.ErrBookingNotEnabled.Error()+": ")
	}
	return m, nil
}

// IsExpired reports whether b is pending past its confirmation deadline.
func IsExpired(b *model.Booking, now time.Time) bool { return b.IsExpired(now) }

// PurgeExpired deletes up to limit pending bookings whose token expired and
// returns how many were removed.  Pending bookings hold no seats, so the
// ledger is not touched.  A booking confirmed after it was listed is kept.
func (s *BookingService) PurgeExpired(ctx context.Context, limit int) (int, error) {
	now := s.now()
	stale, err := s.store.ListExpired(ctx, now, limit)
	if err != nil {
		return 0, fmt.Errorf("list expired bookings: %w", err)
	}
	n := 0
	for _, b := range stale {
		if err := s.store.DeletePending(ctx, b.ID); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				continue
			}
			return n, fmt.Errorf("delete expired booking %s: %w", b.ID, err)
		}
		n++
		s.log.Info("booking expired",
			zap.String("booking_id", b.ID),
			zap.String("showtime_id", b.ShowtimeID),
			zap.Time("token_expires_at", b.TokenExpiresAt),
		)
	}
	return n, nil
}

func (s *BookingService) byToken(ctx context.Context, token string) (*model.Booking, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: token is empty", model.ErrTokenInvalid)
	}
	b, err := s.store.GetByTokenHash(ctx, utils.HashToken(token))
	if errors.Is(err, model.ErrNotFound) {
		return nil, model.ErrTokenInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("lookup token: %w", err)
	}
	return b, nil
}

// expire deletes a pending booking whose token ran out and returns
// model.ErrTokenExpired, or the storage error when the delete failed.  A
// booking that is no longer pending is left alone.
func (s *BookingService) expire(ctx context.Context, b *model.Booking) error {
	if err := s.store.DeletePending(ctx, b.ID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.ErrTokenExpired
		}
		return fmt.Errorf("delete expired booking %s: %w", b.ID, err)
	}
	s.log.Info("booking expired at confirm",
		zap.String("booking_id", b.ID),
		zap.String("showtime_id", b.ShowtimeID),
	)
	return model.ErrTokenExpired
}

func (s *BookingService) confirmLink(token string) string {
	base := s.confirmURL
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "token=" + url.QueryEscape(token)
}

// bookable applies the showtime's booking flags.
func bookable(st *model.Showtime) error {
	if st.BookingNotRequired {
		return fmt.Errorf("%w: booking is not required for this screening", model.ErrBookingNotEnabled)
	}
	if !st.BookingEnabled {
		msg := strings.TrimSpace(st.BookingDisabledMessage)
		if msg == "" {
			msg = "bookings are closed for this screening"
		}
		return fmt.Errorf("%w: %s", model.ErrBookingNotEnabled, msg)
	}
	return nil
}

func normalizeCustomer(c model.Customer) (model.Customer, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)
	if c.Name == "" {
		return c, model.Validationf("name is required")
	}
	addr, err := mail.ParseAddress(c.Email)
	if err != nil || addr.Name != "" || addr.Address != c.Email {
		return c, model.Validationf("invalid email address")
	}
	return c, nil
}

func normalizeSeats(seats []string) []string {
	if len(seats) == 0 {
		return nil
	}
	out := make([]string, 0, len(seats))
	for _, s := range seats {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func notFoundOr(err error, format string, args ...any) error {
	if errors.Is(err, model.ErrNotFound) {
		return model.ErrNotFound
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
