package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/festival-booking/internal/config"
	"github.com/iliyamo/festival-booking/internal/utils"
)

const secret = "test-secret"

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func do(e *echo.Echo, method, target, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthAndRequireRole(t *testing.T) {
	e := echo.New()
	e.GET("/admin", func(c echo.Context) error {
		return c.String(http.StatusOK, c.Get(CtxUserID).(string))
	}, JWTAuth(secret), RequireRole(RoleAdmin))

	admin, err := utils.NewAccessToken(secret, "staff", RoleAdmin, 5)
	require.NoError(t, err)
	guest, err := utils.NewAccessToken(secret, "someone", "GUEST", 5)
	require.NoError(t, err)
	forged, err := utils.NewAccessToken("other-secret", "staff", RoleAdmin, 5)
	require.NoError(t, err)

	rec := do(e, http.MethodGet, "/admin", admin.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "staff", rec.Body.String())

	assert.Equal(t, http.StatusForbidden, do(e, http.MethodGet, "/admin", guest.Token).Code)
	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/admin", forged.Token).Code)
	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/admin", "").Code)
}

func TestTokenBucket_BlocksAfterCapacity(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled: true, Capacity: 2, RefillTokens: 1, RefillInterval: time.Minute,
		TTL: 10 * time.Minute, KeyStrategy: "ip_route", Prefix: "rl",
	}
	e := echo.New()
	e.POST("/v1/bookings", func(c echo.Context) error { return c.NoContent(http.StatusCreated) },
		NewTokenBucket(cfg, rdb, zap.NewNop()))

	assert.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/v1/bookings", "").Code)
	second := do(e, http.MethodPost, "/v1/bookings", "")
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "0", second.Header().Get("X-RateLimit-Remaining"))

	third := do(e, http.MethodPost, "/v1/bookings", "")
	assert.Equal(t, http.StatusTooManyRequests, third.Code)
	assert.Equal(t, "60", third.Header().Get("Retry-After"))
	assert.Contains(t, third.Body.String(), "too_many_requests")
}

func TestTokenBucket_FailsOpen(t *testing.T) {
	mr, rdb := newRedis(t)
	mr.Close()
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute}
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, NewTokenBucket(cfg, rdb, nil))

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/x", "").Code)
	}
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/bookings", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/bookings")

	assert.Equal(t, "rl:ip:10.0.0.1:route:POST /v1/bookings",
		buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_route"}, c))
	assert.Equal(t, "rl:user:anon",
		buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user"}, c))
}

func TestRedisCache_HitAfterMiss(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.CacheConfig{
		Enabled: true, Methods: map[string]bool{http.MethodGet: true},
		TTL: time.Minute, KeyStrategy: "route_query", Prefix: "cache", MaxBodyBytes: 1 << 20,
	}
	calls := 0
	e := echo.New()
	e.GET("/v1/layouts/:id", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"id": c.Param("id")})
	}, NewRedisCache(cfg, rdb, zap.NewNop()))

	first := do(e, http.MethodGet, "/v1/layouts/villa_cattolica", "")
	second := do(e, http.MethodGet, "/v1/layouts/villa_cattolica", "")
	other := do(e, http.MethodGet, "/v1/layouts/cinema_capitol", "")

	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, echo.MIMEApplicationJSON, second.Header().Get(echo.HeaderContentType))
	assert.Equal(t, "MISS", other.Header().Get("X-Cache"))
	assert.Equal(t, 2, calls)
}

func TestRedisCache_SkipsErrorsAndLargeBodies(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.CacheConfig{
		Enabled: true, Methods: map[string]bool{http.MethodGet: true},
		TTL: time.Minute, Prefix: "cache", MaxBodyBytes: 8,
	}
	calls := 0
	e := echo.New()
	e.GET("/big", func(c echo.Context) error {
		calls++
		return c.String(http.StatusOK, "this body is longer than eight bytes")
	}, NewRedisCache(cfg, rdb, nil))
	e.GET("/missing", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found"})
	}, NewRedisCache(cfg, rdb, nil))

	do(e, http.MethodGet, "/big", "")
	do(e, http.MethodGet, "/big", "")
	do(e, http.MethodGet, "/missing", "")
	assert.Equal(t, "MISS", do(e, http.MethodGet, "/missing", "").Header().Get("X-Cache"))
	assert.Equal(t, 4, calls)
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"a":1}`))
	require.NoError(t, err)

	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, hdr, got)
	assert.Equal(t, `{"a":1}`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 1})
	assert.False(t, ok)
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	e := echo.New()
	e.Use(echomw.RequestID(), RequestLogger(zap.New(core)))
	e.GET("/ok", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
	e.GET("/boom", func(c echo.Context) error { return errors.New("kaput") })

	do(e, http.MethodGet, "/ok", "")
	rec := do(e, http.MethodGet, "/boom", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, "request completed", entries[0].Message)
	assert.Equal(t, int64(http.StatusNoContent), entries[0].ContextMap()["status"])
	assert.NotEmpty(t, entries[0].ContextMap()["request_id"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "/boom", entries[1].ContextMap()["route"])
}
