// Package catalog provides read-only access to the festival programme.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/iliyamo/festival-booking/internal/layout"
	"github.com/iliyamo/festival-booking/internal/model"
)

// Source is a showtime catalog.
type Source interface {
	Showtime(ctx context.Context, id string) (*model.Showtime, error)
	List(ctx context.Context) ([]*model.Showtime, error)
}

// Static serves a fixed set of showtimes held in memory.
type Static struct {
	byID  map[string]*model.Showtime
	order []string
}

// NewStatic indexes showtimes by id.  Later duplicates win.
func NewStatic(showtimes []*model.Showtime) *Static {
	s := &Static{byID: make(map[string]*model.Showtime, len(showtimes))}
	for _, st := range showtimes {
		if _, dup := s.byID[st.ID]; !dup {
			s.order = append(s.order, st.ID)
		}
		s.byID[st.ID] = st
	}
	sort.SliceStable(s.order, func(i, j int) bool {
		return s.byID[s.order[i]].StartsAt.Before(s.byID[s.order[j]].StartsAt)
	})
	return s
}

// LoadFile reads a JSON array of showtimes, as exported by the festival
// website, and validates it.
func LoadFile(path string) (*Static, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	var showtimes []*model.Showtime
	if err := json.Unmarshal(raw, &showtimes); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", path, err)
	}
	for i, st := range showtimes {
		if strings.TrimSpace(st.ID) == "" {
			return nil, fmt.Errorf("catalog %s: entry %d has no id", path, i)
		}
		if st.LayoutID == "" {
			st.LayoutID = layout.Default
		}
	}
	return NewStatic(showtimes), nil
}

func (s *Static) Showtime(_ context.Context, id string) (*model.Showtime, error) {
	st, ok := s.byID[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *st
	return &cp, nil
}

func (s *Static) List(_ context.Context) ([]*model.Showtime, error) {
	out := make([]*model.Showtime, 0, len(s.order))
	for _, id := range s.order {
		cp := *s.byID[id]
		out = append(out, &cp)
	}
	return out, nil
}
