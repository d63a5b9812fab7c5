package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/festival-booking/internal/model"
)

var bookingCols = []string{
	"id", "showtime_id", "event_id", "customer_name", "customer_email", "customer_phone",
	"requested_quantity", "requested_seats", "assigned_seats", "status", "token_hash",
	"token_expires_at", "created_at", "confirmed_at",
}

func newMock(t *testing.T) (sqlmock.Sqlmock, func() *BookingRepo) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return mock, func() *BookingRepo { return NewBookingRepo(db) }
}

func TestBookingRepo_Create(t *testing.T) {
	mock, repo := newMock(t)
	created := time.Date(2025, 7, 12, 20, 0, 0, 0, time.UTC)
	b := &model.Booking{
		ID:                "b-1",
		ShowtimeID:        "st-1",
		Customer:          model.Customer{Name: "Ada", Email: "ada@example.org"},
		RequestedQuantity: 2,
		Status:            model.StatusPending,
		TokenHash:         "hash",
		TokenExpiresAt:    created.Add(10 * time.Minute),
		CreatedAt:         created,
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).
		WithArgs("b-1", "st-1", nil, "Ada", "ada@example.org", nil, 2, "", "", "PENDING", "hash",
			created.Add(10*time.Minute), created, nil).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo().Create(context.Background(), b))
}

func TestBookingRepo_CreateDuplicate(t *testing.T) {
	mock, repo := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err := repo().Create(context.Background(), &model.Booking{ID: "b-1"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestBookingRepo_GetByTokenHash(t *testing.T) {
	mock, repo := newMock(t)
	created := time.Date(2025, 7, 12, 20, 0, 0, 0, time.UTC)
	confirmed := created.Add(3 * time.Minute)
	rows := sqlmock.NewRows(bookingCols).AddRow(
		"b-1", "st-1", "ev-9", "Ada", "ada@example.org", "+39 000",
		2, "", "O1,O2", "CONFIRMED", "hash",
		nil, created, confirmed,
	)
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE token_hash = ?")).
		WithArgs("hash").
		WillReturnRows(rows)

	b, err := repo().GetByTokenHash(context.Background(), "hash")

	require.NoError(t, err)
	assert.Equal(t, "ev-9", b.EventID)
	assert.Equal(t, "+39 000", b.Customer.Phone)
	assert.Equal(t, []string{"O1", "O2"}, b.AssignedSeats)
	assert.Nil(t, b.RequestedSeats)
	assert.Equal(t, model.StatusConfirmed, b.Status)
	assert.True(t, b.TokenExpiresAt.IsZero())
	require.NotNil(t, b.ConfirmedAt)
	assert.Equal(t, confirmed, *b.ConfirmedAt)
}

func TestBookingRepo_GetNotFound(t *testing.T) {
	mock, repo := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE id = ?")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(bookingCols))

	_, err := repo().Get(context.Background(), "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestBookingRepo_Update(t *testing.T) {
	mock, repo := newMock(t)
	now := time.Date(2025, 7, 12, 20, 5, 0, 0, time.UTC)
	b := &model.Booking{ID: "b-1", AssignedSeats: []string{"L1", "L2"}, Status: model.StatusConfirmed, ConfirmedAt: &now}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings")).
		WithArgs("L1,L2", "CONFIRMED", nil, now, "b-1", "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo().Update(context.Background(), b))
}

func TestBookingRepo_UpdateRowGone(t *testing.T) {
	mock, repo := newMock(t)
	now := time.Date(2025, 7, 12, 20, 5, 0, 0, time.UTC)
	b := &model.Booking{ID: "b-1", AssignedSeats: []string{"L1"}, Status: model.StatusConfirmed, ConfirmedAt: &now}

	// deleted by the expiry sweep, or confirmed by someone else
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = ? AND status = ?")).
		WithArgs("L1", "CONFIRMED", nil, now, "b-1", "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo().Update(context.Background(), b), model.ErrNotFound)
}

func TestBookingRepo_DeletePending(t *testing.T) {
	mock, repo := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM bookings WHERE id = ? AND status = ?")).
		WithArgs("b-1", "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM bookings WHERE id = ? AND status = ?")).
		WithArgs("b-2", "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 0))

	r := repo()
	require.NoError(t, r.DeletePending(context.Background(), "b-1"))
	assert.ErrorIs(t, r.DeletePending(context.Background(), "b-2"), model.ErrNotFound)
}

func TestBookingRepo_Delete(t *testing.T) {
	mock, repo := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM bookings WHERE id = ?")).
		WithArgs("b-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM bookings WHERE id = ?")).
		WithArgs("b-2").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM bookings WHERE id = ?")).
		WithArgs("b-3").
		WillReturnError(errors.New("connection reset"))

	r := repo()
	require.NoError(t, r.Delete(context.Background(), "b-1"))
	assert.ErrorIs(t, r.Delete(context.Background(), "b-2"), model.ErrNotFound)
	err := r.Delete(context.Background(), "b-3")
	require.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrNotFound)
}

func TestBookingRepo_ListExpired(t *testing.T) {
	mock, repo := newMock(t)
	now := time.Date(2025, 7, 12, 21, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(bookingCols).
		AddRow("b-1", "st-1", nil, "Ada", "ada@example.org", nil, 1, "", "", "PENDING", "h1",
			now.Add(-time.Hour), now.Add(-70*time.Minute), nil).
		AddRow("b-2", "st-2", nil, "Bob", "bob@example.org", nil, 3, "E1,E2,E3", "", "PENDING", "h2",
			now.Add(-time.Minute), now.Add(-11*time.Minute), nil)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE status = ? AND token_expires_at < ?")).
		WithArgs("PENDING", now, 50).
		WillReturnRows(rows)

	got, err := repo().ListExpired(context.Background(), now, 50)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b-1", got[0].ID)
	assert.Equal(t, []string{"E1", "E2", "E3"}, got[1].RequestedSeats)
	assert.Equal(t, []string{}, got[1].AssignedSeats)
}

func TestBookingRepo_List(t *testing.T) {
	mock, repo := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC")).
		WillReturnRows(sqlmock.NewRows(bookingCols))

	got, err := repo().List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}
