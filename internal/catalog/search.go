package catalog

import (
	"strings"
	"time"

	"github.com/iliyamo/festival-booking/internal/model"
)

// Query filters and paginates a showtime listing.  Text filters are
// case-insensitive substring matches.  Time is "upcoming" (default, starts
// at or after now) or "any".
type Query struct {
	Title    string
	Location string
	EventID  string
	Time     string
	Page     int
	PageSize int
}

// Normalize clamps paging to 1..100 items per page and defaults the time
// filter.
func (q Query) Normalize() Query {
	q.Title = strings.ToLower(strings.TrimSpace(q.Title))
	q.Location = strings.ToLower(strings.TrimSpace(q.Location))
	q.EventID = strings.TrimSpace(q.EventID)
	q.Time = strings.ToLower(strings.TrimSpace(q.Time))
	if q.Time != "any" {
		q.Time = "upcoming"
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = 20
	}
	if q.PageSize > 100 {
		q.PageSize = 100
	}
	return q
}

// Search applies q to items (already ordered by start time) and returns the
// requested page and the total number of matches.
func Search(items []*model.Showtime, q Query, now time.Time) ([]*model.Showtime, int) {
	q = q.Normalize()
	matched := make([]*model.Showtime, 0, len(items))
	for _, st := range items {
		if q.Time == "upcoming" && st.StartsAt.Before(now) {
			continue
		}
		if q.Title != "" && !strings.Contains(strings.ToLower(st.EventTitle), q.Title) {
			continue
		}
		if q.Location != "" && !strings.Contains(strings.ToLower(st.LocationName), q.Location) {
			continue
		}
		if q.EventID != "" && !st.HasEvent(q.EventID) {
			continue
		}
		matched = append(matched, st)
	}
	total := len(matched)
	from := (q.Page - 1) * q.PageSize
	if from >= total {
		return []*model.Showtime{}, total
	}
	to := from + q.PageSize
	if to > total {
		to = total
	}
	return matched[from:to], total
}
