package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/festival-booking/internal/model"
)

// ShowtimeRepo reads the festival programme from the showtimes and
// showtime_events tables.  The programme is maintained by the festival's
// content editors; this service never writes it.
type ShowtimeRepo struct {
	db *sql.DB
}

// NewShowtimeRepo returns a ShowtimeRepo bound to db.
func NewShowtimeRepo(db *sql.DB) *ShowtimeRepo { return &ShowtimeRepo{db: db} }

const showtimeColumns = `id, event_title, starts_at, location_name, location_address, layout_id,
       booking_enabled, booking_not_required, booking_disabled_message,
       vip_seats, disabled_seats, max_seats_per_booking`

// Showtime loads one showtime with its event ids.  Unknown ids yield
// model.ErrNotFound.
func (r *ShowtimeRepo) Showtime(ctx context.Context, id string) (*model.Showtime, error) {
	const q = `SELECT ` + showtimeColumns + ` FROM showtimes WHERE id = ?`
	st, err := scanShowtime(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, err
	}
	events, err := r.eventIDs(ctx, st.ID)
	if err != nil {
		return nil, err
	}
	st.EventIDs = events
	return st, nil
}

// List returns every showtime ordered by start time.
func (r *ShowtimeRepo) List(ctx context.Context) ([]*model.Showtime, error) {
	const q = `SELECT ` + showtimeColumns + ` FROM showtimes ORDER BY starts_at, id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	var out []*model.Showtime
	for rows.Next() {
		st, err := scanShowtime(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()
	for _, st := range out {
		if st.EventIDs, err = r.eventIDs(ctx, st.ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *ShowtimeRepo) eventIDs(ctx context.Context, showtimeID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT event_id FROM showtime_events WHERE showtime_id = ? ORDER BY position, event_id`, showtimeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := make([]string, 0, 1)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanShowtime(row rowScanner) (*model.Showtime, error) {
	var (
		st               model.Showtime
		address, message sql.NullString
		vip, disabled    string
	)
	err := row.Scan(
		&st.ID, &st.EventTitle, &st.StartsAt, &st.LocationName, &address, &st.LayoutID,
		&st.BookingEnabled, &st.BookingNotRequired, &message,
		&vip, &disabled, &st.MaxSeatsPerBooking,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	st.StartsAt = st.StartsAt.UTC()
	st.LocationAddress = address.String
	st.BookingDisabledMessage = message.String
	st.VIPSeats = splitSeats(vip)
	st.DisabledSeats = splitSeats(disabled)
	return &st, nil
}
