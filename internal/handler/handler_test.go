package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/festival-booking/internal/catalog"
	"github.com/iliyamo/festival-booking/internal/layout"
	"github.com/iliyamo/festival-booking/internal/ledger"
	"github.com/iliyamo/festival-booking/internal/lock"
	"github.com/iliyamo/festival-booking/internal/middleware"
	"github.com/iliyamo/festival-booking/internal/model"
	"github.com/iliyamo/festival-booking/internal/repository"
	"github.com/iliyamo/festival-booking/internal/service"
	"github.com/iliyamo/festival-booking/internal/ticket"
	"github.com/iliyamo/festival-booking/internal/utils"
)

const (
	jwtSecret     = "handler-test-secret"
	adminPassword = "correct horse"
)

// fakeNotifier records confirmation links instead of mailing them.
type fakeNotifier struct {
	mu        sync.Mutex
	links     []string
	confirmed []*model.Ticket
	fail      error
}

func (f *fakeNotifier) SendConfirmationRequest(_ context.Context, _ *model.Booking, _ *model.Showtime, link string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.links = append(f.links, link)
	return nil
}

func (f *fakeNotifier) SendBookingConfirmed(_ context.Context, _ *model.Booking, _ *model.Showtime, t *model.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmed = append(f.confirmed, t)
	return nil
}

func (f *fakeNotifier) lastToken(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.links)
	u, err := url.Parse(f.links[len(f.links)-1])
	require.NoError(t, err)
	return u.Query().Get("token")
}

type server struct {
	e        *echo.Echo
	notifier *fakeNotifier
	ledger   *ledger.Memory
}

func newServer(t *testing.T) *server {
	t.Helper()
	starts := time.Date(2025, 7, 12, 21, 30, 0, 0, time.UTC)
	cat := catalog.NewStatic([]*model.Showtime{
		{ID: "villa", EventIDs: []string{"ev-1"}, EventTitle: "Opening night", StartsAt: starts,
			LocationName: "Villa Cattolica", LayoutID: layout.VillaCattolica, BookingEnabled: true},
		{ID: "closed", EventIDs: []string{"ev-2"}, StartsAt: starts, LayoutID: layout.CinemaCapitol},
		{ID: "tiny", EventIDs: []string{"ev-3"}, StartsAt: starts, LayoutID: layout.VillaCattolica, BookingEnabled: true,
			DisabledSeats: layout.ForID(layout.VillaCattolica).AllSeats()[2:]},
	})
	s := &server{e: echo.New(), notifier: &fakeNotifier{}, ledger: ledger.NewMemory()}
	svc := service.NewBookingService(service.Deps{
		Store:    repository.NewMemoryBookingRepo(),
		Catalog:  cat,
		Ledger:   s.ledger,
		Locker:   lock.NewKeyedMutex(),
		Notifier: s.notifier,
		Tickets:  ticket.NewHTMLRenderer("Festival"),
		Logger:   zap.NewNop(),
	}, service.Options{ConfirmURL: "https://festival.example/confirm"})

	hash, err := utils.HashPassword(adminPassword, 4)
	require.NoError(t, err)

	b := NewBookingHandler(svc, zap.NewNop())
	a := NewAdminHandler(svc, AdminAuth{PasswordHash: hash, JWTSecret: jwtSecret, AccessTTLMin: 5}, zap.NewNop())
	p := NewCatalogHandler(cat, zap.NewNop())

	s.e.GET("/healthz", Health)
	s.e.POST("/v1/bookings", b.Create)
	s.e.POST("/v1/bookings/confirm", b.Confirm)
	s.e.GET("/v1/bookings/check-token", b.CheckToken)
	s.e.GET("/v1/showtimes/:id/occupied-seats", b.Occupied)
	s.e.GET("/v1/showtimes/:id/seat-map", b.SeatMap)
	s.e.GET("/v1/showtimes", p.Showtimes)
	s.e.GET("/v1/layouts/:id", p.Layout)
	s.e.POST("/v1/admin/login", a.Login)
	admin := s.e.Group("/v1/admin", middleware.JWTAuth(jwtSecret), middleware.RequireRole(middleware.RoleAdmin))
	admin.GET("/bookings", a.List)
	admin.DELETE("/bookings/:id", a.Cancel)
	return s
}

func (s *server) do(t *testing.T, method, target string, body interface{}, bearer string) (int, map[string]interface{}) {
	t.Helper()
	var rd *strings.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = strings.NewReader(string(raw))
	} else {
		rd = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, rd)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	out := map[string]interface{}{}
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

func booking(showtime string, qty int) map[string]interface{} {
	return map[string]interface{}{
		"showtime_id": showtime,
		"name":        "Ada Lovelace",
		"email":       "ada@example.org",
		"quantity":    qty,
	}
}

func TestBookingFlow(t *testing.T) {
	s := newServer(t)

	code, body := s.do(t, http.MethodPost, "/v1/bookings", booking("villa", 2), "")
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, "PENDING", body["status"])
	assert.Contains(t, body["message"], "10 minutes")
	assert.NotContains(t, body, "token")
	token := s.notifier.lastToken(t)

	code, body = s.do(t, http.MethodGet, "/v1/bookings/check-token?token="+url.QueryEscape(token), nil, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "PENDING", body["status"])
	assert.Equal(t, []interface{}{}, body["seats"])

	code, body = s.do(t, http.MethodPost, "/v1/bookings/confirm", map[string]string{"token": token}, "")
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "CONFIRMED", body["status"])
	assert.Equal(t, []interface{}{"L1", "L2"}, body["seats"])
	assert.NotContains(t, body, "already_confirmed")
	require.Len(t, s.notifier.confirmed, 1)
	assert.NotNil(t, s.notifier.confirmed[0])

	code, body = s.do(t, http.MethodPost, "/v1/bookings/confirm", map[string]string{"token": token}, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["already_confirmed"])

	code, body = s.do(t, http.MethodGet, "/v1/bookings/check-token?token="+url.QueryEscape(token), nil, "")
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, model.KindAlreadyConfirmed, body["error"])

	code, body = s.do(t, http.MethodGet, "/v1/showtimes/villa/occupied-seats", nil, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []interface{}{"L1", "L2"}, body["occupied_seats"])
}

func TestCreateErrors(t *testing.T) {
	s := newServer(t)

	code, body := s.do(t, http.MethodPost, "/v1/bookings", booking("villa", 5), "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, model.KindValidation, body["error"])

	code, body = s.do(t, http.MethodPost, "/v1/bookings", booking("closed", 1), "")
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, model.KindBookingNotEnabled, body["error"])

	code, body = s.do(t, http.MethodPost, "/v1/bookings", booking("tiny", 3), "")
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, model.KindInsufficientCapacity, body["error"])
	assert.Equal(t, float64(2), body["available"])

	s.notifier.fail = errors.New("broker down")
	code, body = s.do(t, http.MethodPost, "/v1/bookings", booking("villa", 1), "")
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, model.KindNotificationFailure, body["error"])
}

func TestConfirmErrors(t *testing.T) {
	s := newServer(t)

	code, body := s.do(t, http.MethodPost, "/v1/bookings/confirm", map[string]string{"token": "bogus"}, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, model.KindTokenInvalid, body["error"])

	code, _ = s.do(t, http.MethodPost, "/v1/bookings", booking("tiny", 2), "")
	require.Equal(t, http.StatusCreated, code)
	token := s.notifier.lastToken(t)
	require.NoError(t, s.ledger.Reserve(context.Background(), "tiny", []string{"L1"}))

	code, body = s.do(t, http.MethodPost, "/v1/bookings/confirm", map[string]string{"token": token}, "")
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, float64(1), body["available"])
}

func TestAdminEndpoints(t *testing.T) {
	s := newServer(t)

	code, _ := s.do(t, http.MethodGet, "/v1/admin/bookings", nil, "")
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = s.do(t, http.MethodPost, "/v1/admin/login", map[string]string{"password": "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body := s.do(t, http.MethodPost, "/v1/admin/login", map[string]string{"password": adminPassword}, "")
	require.Equal(t, http.StatusOK, code)
	jwt := body["token"].(string)

	code, _ = s.do(t, http.MethodPost, "/v1/bookings", booking("villa", 3), "")
	require.Equal(t, http.StatusCreated, code)
	_, _ = s.do(t, http.MethodPost, "/v1/bookings/confirm", map[string]string{"token": s.notifier.lastToken(t)}, "")

	code, body = s.do(t, http.MethodGet, "/v1/admin/bookings", nil, jwt)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["count"])
	id := body["items"].([]interface{})[0].(map[string]interface{})["id"].(string)

	code, body = s.do(t, http.MethodDelete, "/v1/admin/bookings/"+id, nil, jwt)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "CANCELLED", body["status"])
	assert.Equal(t, []interface{}{"L1", "L2", "L3"}, body["seats"])

	_, body = s.do(t, http.MethodGet, "/v1/showtimes/villa/occupied-seats", nil, "")
	assert.Equal(t, []interface{}{}, body["occupied_seats"])

	code, body = s.do(t, http.MethodDelete, "/v1/admin/bookings/"+id, nil, jwt)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, model.KindNotFound, body["error"])
}

func TestCatalogEndpoints(t *testing.T) {
	s := newServer(t)

	code, body := s.do(t, http.MethodGet, "/v1/layouts/villa_cattolica", nil, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(200), body["capacity"])
	assert.Equal(t, "L", body["assignment_order"].([]interface{})[0])

	code, _ = s.do(t, http.MethodGet, "/v1/layouts/nowhere", nil, "")
	assert.Equal(t, http.StatusNotFound, code)

	code, body = s.do(t, http.MethodGet, "/v1/showtimes?time=any", nil, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(3), body["count"])

	code, body = s.do(t, http.MethodGet, "/v1/showtimes?time=any&location=villa", nil, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["total"])

	code, body = s.do(t, http.MethodGet, "/v1/showtimes/closed/seat-map", nil, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["booking_enabled"])

	code, _ = s.do(t, http.MethodGet, "/v1/showtimes/nope/seat-map", nil, "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestWriteError_HidesInternalErrors(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	require.NoError(t, writeError(c, zap.NewNop(), errors.New("dial tcp 10.0.0.5:3306: refused")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
	assert.Contains(t, rec.Body.String(), model.KindInternal)
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
