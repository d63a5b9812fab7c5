package allocation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/festival-booking/internal/layout"
	"github.com/iliyamo/festival-booking/internal/model"
)

func TestAllocate_VillaFromEmpty(t *testing.T) {
	l := layout.ForID(layout.VillaCattolica)

	seats, err := Allocate(2, l, model.SeatSet{}, nil, nil)

	require.NoError(t, err)
	assert.Equal(t, []string{"L1", "L2"}, seats)
}

func TestAllocate_CapitolSkipsExclusions(t *testing.T) {
	l := layout.ForID(layout.CinemaCapitol)
	occupied := model.NewSeatSet([]string{"O1", "O2"})

	seats, err := Allocate(3, l, occupied, []string{"O3"}, []string{"O5"})

	require.NoError(t, err)
	assert.Equal(t, []string{"O4", "O6", "O7"}, seats)
}

func TestAllocate_SpillsIntoNextRow(t *testing.T) {
	l := layout.ForID(layout.CinemaCapitol)
	row, _ := l.Row("O")
	var occ []string
	for _, n := range row.Seats[:14] {
		occ = append(occ, layout.SeatID("O", n))
	}

	seats, err := Allocate(3, l, model.NewSeatSet(occ), nil, nil)

	require.NoError(t, err)
	assert.Equal(t, []string{"O15", "N1", "N2"}, seats)
}

func TestAllocate_Deterministic(t *testing.T) {
	l := layout.ForID(layout.CinemaCapitol)
	occupied := model.NewSeatSet([]string{"O1", "N4", "M9"})

	first, err := Allocate(4, l, occupied, []string{"O2"}, nil)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Allocate(4, l, occupied, []string{"O2"}, nil)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestAllocate_ExactlyEnough(t *testing.T) {
	l := layout.ForID(layout.VillaCattolica)
	all := l.AllSeats()
	occupied := model.NewSeatSet(all[:len(all)-3])

	seats, err := Allocate(3, l, occupied, nil, nil)

	require.NoError(t, err)
	assert.Equal(t, all[len(all)-3:], seats)
}

func TestAllocate_Shortfall(t *testing.T) {
	l := layout.ForID(layout.VillaCattolica)
	all := l.AllSeats()
	occupied := model.NewSeatSet(all[:len(all)-2])

	seats, err := Allocate(3, l, occupied, nil, nil)

	assert.Nil(t, seats)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInsufficientCapacity)
	var ce *model.CapacityError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, 2, ce.Available)
	assert.Equal(t, 3, ce.Requested)
}

func TestAllocate_InvalidQuantity(t *testing.T) {
	_, err := Allocate(0, layout.ForID(layout.CinemaCapitol), nil, nil, nil)
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestAvailable(t *testing.T) {
	l := layout.ForID(layout.VillaCattolica)
	occupied := model.NewSeatSet([]string{"L1", "L2"})

	// L2 appears both as occupied and VIP; it must only be excluded once
	n := Available(l, occupied, []string{"L2", "L3"}, []string{"A20"})

	assert.Equal(t, 200-4, n)
}

func TestClaim(t *testing.T) {
	l := layout.ForID(layout.CinemaCapitol)
	occupied := model.NewSeatSet([]string{"D5"})

	tests := []struct {
		name    string
		seats   []string
		wantErr error
	}{
		{name: "free seats", seats: []string{"E7", "E8"}},
		{name: "occupied seat", seats: []string{"D5", "D6"}, wantErr: model.ErrInsufficientCapacity},
		{name: "unknown seat", seats: []string{"A8"}, wantErr: model.ErrValidation},
		{name: "duplicate", seats: []string{"E7", "E7"}, wantErr: model.ErrValidation},
		{name: "vip seat", seats: []string{"F1"}, wantErr: model.ErrValidation},
		{name: "disabled seat", seats: []string{"F2"}, wantErr: model.ErrValidation},
		{name: "empty", seats: nil, wantErr: model.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Claim(tt.seats, l, occupied, []string{"F1"}, []string{"F2"})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.seats, got)
		})
	}
}
