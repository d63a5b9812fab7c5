package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/festival-booking/internal/catalog"
	"github.com/iliyamo/festival-booking/internal/layout"
	"github.com/iliyamo/festival-booking/internal/model"
)

// CatalogHandler exposes read-only venue and programme data to guests.
type CatalogHandler struct {
	src catalog.Source
	log *zap.Logger
}

func NewCatalogHandler(src catalog.Source, log *zap.Logger) *CatalogHandler {
	if src == nil {
		panic("nil catalog passed to NewCatalogHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CatalogHandler{src: src, log: log}
}

type layoutResp struct {
	*layout.Layout
	Capacity int `json:"capacity"`
}

// showtimeView hides nothing sensitive but flattens booking flags for the
// programme page.
type showtimeView struct {
	ID                     string    `json:"id"`
	EventIDs               []string  `json:"event_ids"`
	EventTitle             string    `json:"event_title"`
	StartsAt               time.Time `json:"starts_at"`
	Description            string    `json:"description"`
	LocationName           string    `json:"location_name"`
	LocationAddress        string    `json:"location_address,omitempty"`
	LayoutID               string    `json:"layout_id"`
	BookingEnabled         bool      `json:"booking_enabled"`
	BookingNotRequired     bool      `json:"booking_not_required"`
	BookingDisabledMessage string    `json:"booking_disabled_message,omitempty"`
	MaxSeatsPerBooking     int       `json:"max_seats_per_booking"`
}

func showtimeViewOf(st *model.Showtime) showtimeView {
	return showtimeView{
		ID:                     st.ID,
		EventIDs:               st.EventIDs,
		EventTitle:             st.EventTitle,
		StartsAt:               st.StartsAt,
		Description:            st.Description(),
		LocationName:           st.LocationName,
		LocationAddress:        st.LocationAddress,
		LayoutID:               layout.ForID(st.LayoutID).ID,
		BookingEnabled:         st.BookingEnabled,
		BookingNotRequired:     st.BookingNotRequired,
		BookingDisabledMessage: st.BookingDisabledMessage,
		MaxSeatsPerBooking:     st.MaxSeats(),
	}
}

// Layout handles GET /v1/layouts/:id.
func (h *CatalogHandler) Layout(c echo.Context) error {
	id := c.Param("id")
	if !layout.Known(id) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": model.KindNotFound, "message": "unknown layout " + id})
	}
	l := layout.ForID(id)
	return c.JSON(http.StatusOK, layoutResp{Layout: l, Capacity: l.Capacity()})
}

// Showtimes handles GET /v1/showtimes.  Query parameters: title, location,
// event_id, time (upcoming|any), page, page_size.
func (h *CatalogHandler) Showtimes(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("page_size"))
	q := catalog.Query{
		Title:    c.QueryParam("title"),
		Location: c.QueryParam("location"),
		EventID:  c.QueryParam("event_id"),
		Time:     c.QueryParam("time"),
		Page:     page,
		PageSize: size,
	}.Normalize()

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	all, err := h.src.List(ctx)
	if err != nil {
		return writeError(c, h.log, err)
	}
	items, total := catalog.Search(all, q, time.Now())
	out := make([]showtimeView, 0, len(items))
	for _, st := range items {
		out = append(out, showtimeViewOf(st))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items":     out,
		"count":     len(out),
		"total":     total,
		"page":      q.Page,
		"page_size": q.PageSize,
	})
}

type invalidator interface {
	Invalidate(ctx context.Context, ids ...string) error
}

type refreshReq struct {
	ShowtimeIDs []string `json:"showtime_ids"`
}

// Refresh handles POST /v1/admin/catalog/refresh.  It drops cached catalog
// entries after the programme was edited; with no ids only the listing is
// dropped.
func (h *CatalogHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid body")
		}
	}
	inv, ok := h.src.(invalidator)
	if !ok {
		return c.NoContent(http.StatusNoContent)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	if err := inv.Invalidate(ctx, req.ShowtimeIDs...); err != nil {
		return writeError(c, h.log, err)
	}
	h.log.Info("catalog cache invalidated", zap.Strings("showtime_ids", req.ShowtimeIDs))
	return c.NoContent(http.StatusNoContent)
}
