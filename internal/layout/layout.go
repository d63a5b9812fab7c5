// Package layout holds the fixed seat maps of the festival venues.
//
// Layouts are immutable and safe for concurrent use.  Seat ids are the row
// label followed by the seat number, e.g. "L1" or "O15".
package layout

import (
	"sort"
	"strconv"
)

// Built-in layout identifiers.
const (
	CinemaCapitol  = "cinema_capitol"
	VillaCattolica = "villa_cattolica"

	// Default is used when a showtime names an unknown layout.
	Default = CinemaCapitol
)

// Row is one row of seats in display order.
type Row struct {
	Label string `json:"label"`
	Seats []int  `json:"seats"`
}

// Layout is the physical seat map of a venue plus the order in which rows
// are filled by automatic assignment.
type Layout struct {
	ID              string   `json:"id"`
	Rows            []Row    `json:"rows"`
	AssignmentOrder []string `json:"assignment_order"`

	byLabel map[string]Row
	seats   map[string]struct{}
}

// SeatID formats a seat identifier.
func SeatID(row string, number int) string { return row + strconv.Itoa(number) }

func newLayout(id string, rows []Row, order []string) *Layout {
	l := &Layout{
		ID:              id,
		Rows:            rows,
		AssignmentOrder: order,
		byLabel:         make(map[string]Row, len(rows)),
		seats:           make(map[string]struct{}),
	}
	for _, r := range rows {
		l.byLabel[r.Label] = r
		for _, n := range r.Seats {
			l.seats[SeatID(r.Label, n)] = struct{}{}
		}
	}
	return l
}

// Row returns the row with the given label.
func (l *Layout) Row(label string) (Row, bool) {
	r, ok := l.byLabel[label]
	return r, ok
}

// Contains reports whether seat exists in the layout.
func (l *Layout) Contains(seat string) bool {
	_, ok := l.seats[seat]
	return ok
}

// Capacity is the number of physical seats.
func (l *Layout) Capacity() int { return len(l.seats) }

// AllSeats lists every seat id in assignment order, ascending seat number
// within a row.  Rows missing from AssignmentOrder are appended in display
// order so no seat is ever unreachable.
func (l *Layout) AllSeats() []string {
	out := make([]string, 0, len(l.seats))
	for _, label := range l.orderedLabels() {
		r := l.byLabel[label]
		nums := append([]int(nil), r.Seats...)
		sort.Ints(nums)
		for _, n := range nums {
			out = append(out, SeatID(label, n))
		}
	}
	return out
}

func (l *Layout) orderedLabels() []string {
	seen := make(map[string]bool, len(l.Rows))
	labels := make([]string, 0, len(l.Rows))
	for _, label := range l.AssignmentOrder {
		if _, ok := l.byLabel[label]; ok && !seen[label] {
			seen[label] = true
			labels = append(labels, label)
		}
	}
	for _, r := range l.Rows {
		if !seen[r.Label] {
			seen[r.Label] = true
			labels = append(labels, r.Label)
		}
	}
	return labels
}

var registry = map[string]*Layout{
	CinemaCapitol:  cinemaCapitol(),
	VillaCattolica: villaCattolica(),
}

// ForID returns the layout registered under id, falling back to Default.
func ForID(id string) *Layout {
	if l, ok := registry[id]; ok {
		return l
	}
	return registry[Default]
}

// Known reports whether id names a built-in layout.
func Known(id string) bool {
	_, ok := registry[id]
	return ok
}

// IDs lists the registered layout ids, sorted.
func IDs() []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func seatRange(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

// cinemaCapitol: 13 rows, no J or K.  The first three rows only have the
// side blocks; the centre of A-C is the stage apron.
func cinemaCapitol() *Layout {
	sides := append(seatRange(1, 4), seatRange(13, 16)...)
	rows := []Row{
		{Label: "A", Seats: sides},
		{Label: "B", Seats: sides},
		{Label: "C", Seats: sides},
	}
	for _, label := range []string{"D", "E", "F", "G", "H", "I", "L", "M", "N"} {
		rows = append(rows, Row{Label: label, Seats: seatRange(1, 16)})
	}
	rows = append(rows, Row{Label: "O", Seats: seatRange(1, 15)})
	order := []string{"O", "N", "M", "L", "I", "H", "G", "F", "E", "D", "C", "B", "A"}
	return newLayout(CinemaCapitol, rows, order)
}

// villaCattolica: ten rows of 20 (200 seats), filled from the back.
func villaCattolica() *Layout {
	labels := []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "L"}
	rows := make([]Row, 0, len(labels))
	for _, label := range labels {
		rows = append(rows, Row{Label: label, Seats: seatRange(1, 20)})
	}
	order := []string{"L", "I", "H", "G", "F", "E", "D", "C", "B", "A"}
	return newLayout(VillaCattolica, rows, order)
}
