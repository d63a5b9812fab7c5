package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/festival-booking/internal/model"
)

// LedgerRepo stores occupied seats in the occupied_seats table, one row per
// (showtime_id, seat_id).  The composite primary key makes INSERT IGNORE an
// idempotent union.
type LedgerRepo struct {
	db *sql.DB
}

// NewLedgerRepo returns a LedgerRepo bound to db.
func NewLedgerRepo(db *sql.DB) *LedgerRepo { return &LedgerRepo{db: db} }

// Occupied returns the seats held for a showtime.
func (r *LedgerRepo) Occupied(ctx context.Context, showtimeID string) (model.SeatSet, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT seat_id FROM occupied_seats WHERE showtime_id = ?`, showtimeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := model.SeatSet{}
	for rows.Next() {
		var seat string
		if err := rows.Scan(&seat); err != nil {
			return nil, err
		}
		out.Add(seat)
	}
	return out, rows.Err()
}

// Reserve adds seats in a single multi-row statement.
func (r *LedgerRepo) Reserve(ctx context.Context, showtimeID string, seats []string) error {
	if len(seats) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(`INSERT IGNORE INTO occupied_seats (showtime_id, seat_id) VALUES `)
	args := make([]interface{}, 0, len(seats)*2)
	for i, s := range seats {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?, ?)")
		args = append(args, showtimeID, s)
	}
	_, err := r.db.ExecContext(ctx, sb.String(), args...)
	return err
}

// Release removes seats; absent seats are ignored.
func (r *LedgerRepo) Release(ctx context.Context, showtimeID string, seats []string) error {
	if len(seats) == 0 {
		return nil
	}
	q := `DELETE FROM occupied_seats WHERE showtime_id = ? AND seat_id IN (?` + strings.Repeat(", ?", len(seats)-1) + `)`
	args := make([]interface{}, 0, len(seats)+1)
	args = append(args, showtimeID)
	for _, s := range seats {
		args = append(args, s)
	}
	_, err := r.db.ExecContext(ctx, q, args...)
	return err
}
