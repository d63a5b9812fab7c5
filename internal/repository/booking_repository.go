package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/festival-booking/internal/model"
)

// BookingRepo persists bookings in the bookings table.  Seat lists are
// stored comma separated; seat ids never contain commas.  Timestamps are
// UTC (the DSN sets loc=UTC).
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a BookingRepo bound to db.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, showtime_id, event_id, customer_name, customer_email, customer_phone,
       requested_quantity, requested_seats, assigned_seats, status, token_hash,
       token_expires_at, created_at, confirmed_at`

// Create inserts a new booking.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	const q = `INSERT INTO bookings (` + bookingColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q,
		b.ID, b.ShowtimeID, nullString(b.EventID),
		b.Customer.Name, b.Customer.Email, nullString(b.Customer.Phone),
		b.RequestedQuantity, joinSeats(b.RequestedSeats), joinSeats(b.AssignedSeats),
		string(b.Status), b.TokenHash,
		nullTime(b.TokenExpiresAt), b.CreatedAt, nullTimePtr(b.ConfirmedAt),
	)
	if isDuplicate(err) {
		return fmt.Errorf("booking %s: %w", b.ID, ErrConflict)
	}
	return err
}

// Get loads a booking by id.
func (r *BookingRepo) Get(ctx context.Context, id string) (*model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	return scanBooking(r.db.QueryRowContext(ctx, q, id))
}

// GetByTokenHash loads the booking owning a confirmation token digest,
// whatever its status.
func (r *BookingRepo) GetByTokenHash(ctx context.Context, hash string) (*model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE token_hash = ?`
	return scanBooking(r.db.QueryRowContext(ctx, q, hash))
}

// Update writes the confirmation of a pending booking: seats, status and
// the confirmation timestamps.  It yields model.ErrNotFound when the row is
// gone or no longer pending.
func (r *BookingRepo) Update(ctx context.Context, b *model.Booking) error {
	const q = `UPDATE bookings
               SET assigned_seats = ?, status = ?, token_expires_at = ?, confirmed_at = ?
               WHERE id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, q,
		joinSeats(b.AssignedSeats), string(b.Status),
		nullTime(b.TokenExpiresAt), nullTimePtr(b.ConfirmedAt),
		b.ID, string(model.StatusPending),
	)
	return affectedOne(res, err)
}

// Delete removes a booking.  A missing row yields model.ErrNotFound.
func (r *BookingRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	return affectedOne(res, err)
}

// DeletePending removes a booking only while it is still pending.  A
// missing or already confirmed row yields model.ErrNotFound.
func (r *BookingRepo) DeletePending(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ? AND status = ?`,
		id, string(model.StatusPending))
	return affectedOne(res, err)
}

func affectedOne(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// List returns all bookings, newest first.
func (r *BookingRepo) List(ctx context.Context) ([]*model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings ORDER BY created_at DESC, id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookings(rows)
}

// ListExpired returns pending bookings whose token expired before now,
// oldest first.  It uses the (status, token_expires_at) index.
func (r *BookingRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]*model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings
          WHERE status = ? AND token_expires_at < ?
          ORDER BY token_expires_at`
	args := []interface{}{string(model.StatusPending), now}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookings(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row rowScanner) (*model.Booking, error) {
	var (
		b                 model.Booking
		eventID, phone    sql.NullString
		requested, seats  string
		status            string
		expires, confirmd sql.NullTime
	)
	err := row.Scan(
		&b.ID, &b.ShowtimeID, &eventID, &b.Customer.Name, &b.Customer.Email, &phone,
		&b.RequestedQuantity, &requested, &seats, &status, &b.TokenHash,
		&expires, &b.CreatedAt, &confirmd,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	b.EventID = eventID.String
	b.Customer.Phone = phone.String
	b.RequestedSeats = splitSeats(requested)
	b.AssignedSeats = splitSeats(seats)
	if b.AssignedSeats == nil {
		b.AssignedSeats = []string{}
	}
	b.Status = model.Status(status)
	if expires.Valid {
		b.TokenExpiresAt = expires.Time.UTC()
	}
	b.CreatedAt = b.CreatedAt.UTC()
	if confirmd.Valid {
		t := confirmd.Time.UTC()
		b.ConfirmedAt = &t
	}
	return &b, nil
}

func scanBookings(rows *sql.Rows) ([]*model.Booking, error) {
	out := make([]*model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func joinSeats(seats []string) string { return strings.Join(seats, ",") }

func splitSeats(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func nullTimePtr(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return nullTime(*t)
}
