// Package allocation picks concrete seats for a booking.
//
// All functions are pure: given the same layout and exclusion sets they
// always return the same answer, which keeps assignment reproducible across
// replicas and in tests.
package allocation

import (
	"github.com/iliyamo/festival-booking/internal/layout"
	"github.com/iliyamo/festival-booking/internal/model"
)

// Available counts the seats of l that are neither occupied, VIP nor
// disabled.
func Available(l *layout.Layout, occupied model.SeatSet, vip, disabled []string) int {
	excluded := exclusions(occupied, vip, disabled)
	n := 0
	for _, seat := range l.AllSeats() {
		if !excluded.Has(seat) {
			n++
		}
	}
	return n
}

// Allocate returns quantity free seats, scanning rows in the layout's
// assignment order and seats by ascending number.  When fewer than quantity
// seats are free it returns a *model.CapacityError and no seats.
func Allocate(quantity int, l *layout.Layout, occupied model.SeatSet, vip, disabled []string) ([]string, error) {
	if quantity <= 0 {
		return nil, model.Validationf("quantity must be positive")
	}
	excluded := exclusions(occupied, vip, disabled)
	free := 0
	picked := make([]string, 0, quantity)
	for _, seat := range l.AllSeats() {
		if excluded.Has(seat) {
			continue
		}
		free++
		if len(picked) < quantity {
			picked = append(picked, seat)
		}
	}
	if len(picked) < quantity {
		return nil, &model.CapacityError{Requested: quantity, Available: free}
	}
	return picked, nil
}

// Claim validates an explicit seat selection.  Seats must exist in the
// layout, be distinct and not be VIP or disabled; otherwise a validation
// error is returned.  Any seat already occupied yields a CapacityError.
// On success the seats are returned in request order.
func Claim(seats []string, l *layout.Layout, occupied model.SeatSet, vip, disabled []string) ([]string, error) {
	if err := CheckSelection(seats, l, vip, disabled); err != nil {
		return nil, err
	}
	for _, seat := range seats {
		if occupied.Has(seat) {
			return nil, &model.CapacityError{
				Requested: len(seats),
				Available: Available(l, occupied, vip, disabled),
			}
		}
	}
	return append([]string(nil), seats...), nil
}

// CheckSelection runs the structural checks of Claim without looking at
// occupancy.
func CheckSelection(seats []string, l *layout.Layout, vip, disabled []string) error {
	if len(seats) == 0 {
		return model.Validationf("no seats selected")
	}
	blocked := model.NewSeatSet(vip, disabled)
	seen := make(model.SeatSet, len(seats))
	for _, seat := range seats {
		if !l.Contains(seat) {
			return model.Validationf("seat %s does not exist in layout %s", seat, l.ID)
		}
		if seen.Has(seat) {
			return model.Validationf("seat %s selected twice", seat)
		}
		if blocked.Has(seat) {
			return model.Validationf("seat %s is not bookable", seat)
		}
		seen.Add(seat)
	}
	return nil
}

func exclusions(occupied model.SeatSet, vip, disabled []string) model.SeatSet {
	ex := model.NewSeatSet(vip, disabled)
	for seat := range occupied {
		ex.Add(seat)
	}
	return ex
}
