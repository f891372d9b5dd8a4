package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/shop-api/internal/config"
	"github.com/iliyamo/shop-api/internal/utils"
)

func newCtx(e *echo.Echo, method, target, bearer string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, nil)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func okHandler(c echo.Context) error { return c.NoContent(http.StatusNoContent) }

func TestJWTAuth(t *testing.T) {
	e := echo.New()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	issuer := utils.NewTokenIssuer("secret", time.Hour).WithClock(func() time.Time { return now })
	tok, err := issuer.Issue(42, "USER")
	require.NoError(t, err)

	t.Run("valid", func(t *testing.T) {
		var gotID uint64
		var gotRole string
		h := JWTAuth(issuer)(func(c echo.Context) error {
			gotID, _ = UserID(c)
			gotRole, _ = c.Get(ContextKeyRole).(string)
			return okHandler(c)
		})
		c, rec := newCtx(e, http.MethodGet, "/", tok.Token)
		require.NoError(t, h(c))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, uint64(42), gotID)
		assert.Equal(t, "USER", gotRole)
	})

	t.Run("missing", func(t *testing.T) {
		c, _ := newCtx(e, http.MethodGet, "/", "")
		assert.ErrorIs(t, JWTAuth(issuer)(okHandler)(c), utils.ErrTokenInvalid)
	})

	t.Run("tampered", func(t *testing.T) {
		c, _ := newCtx(e, http.MethodGet, "/", tok.Token+"x")
		assert.ErrorIs(t, JWTAuth(issuer)(okHandler)(c), utils.ErrTokenInvalid)
	})

	t.Run("expired", func(t *testing.T) {
		later := issuer.WithClock(func() time.Time { return now.Add(time.Hour) })
		c, _ := newCtx(e, http.MethodGet, "/", tok.Token)
		assert.ErrorIs(t, JWTAuth(later)(okHandler)(c), utils.ErrTokenExpired)
	})
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	h := RequireRole("USER")(okHandler)

	c, rec := newCtx(e, http.MethodGet, "/", "")
	c.Set(ContextKeyRole, "USER")
	require.NoError(t, h(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	c, _ = newCtx(e, http.MethodGet, "/", "")
	c.Set(ContextKeyRole, "ADMIN")
	assert.ErrorIs(t, h(c), ErrForbidden)

	c, _ = newCtx(e, http.MethodGet, "/", "")
	assert.ErrorIs(t, h(c), ErrForbidden)
}

func TestUserID(t *testing.T) {
	e := echo.New()
	c, _ := newCtx(e, http.MethodGet, "/", "")
	_, ok := UserID(c)
	assert.False(t, ok)
	assert.Equal(t, "anon", currentUserID(c))

	c.Set(ContextKeyUserID, uint64(7))
	id, ok := UserID(c)
	assert.True(t, ok)
	assert.Equal(t, uint64(7), id)
	assert.Equal(t, "7", currentUserID(c))
}

func TestMemoryRateLimiter(t *testing.T) {
	e := echo.New()
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Minute,
		TTL:            10 * time.Minute,
		KeyStrategy:    "ip",
		Prefix:         "rl",
	}
	h := NewRateLimiter(cfg, nil, zerolog.Nop())(okHandler)

	for i := 0; i < 2; i++ {
		c, _ := newCtx(e, http.MethodGet, "/", "")
		require.NoError(t, h(c))
	}
	c, rec := newCtx(e, http.MethodGet, "/", "")
	assert.ErrorIs(t, h(c), ErrTooManyRequests)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestRateLimiter_Disabled(t *testing.T) {
	e := echo.New()
	h := NewRateLimiter(config.RateLimitConfig{Enabled: false}, nil, zerolog.Nop())(okHandler)
	for i := 0; i < 5; i++ {
		c, _ := newCtx(e, http.MethodGet, "/", "")
		require.NoError(t, h(c))
	}
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	c, _ := newCtx(e, http.MethodPost, "/api/products", "")
	c.SetPath("/api/products")
	c.Set(ContextKeyUserID, uint64(3))

	cases := map[string]string{
		"ip":         "rl:ip:192.0.2.1",
		"user":       "rl:user:3",
		"route":      "rl:route:POST /api/products",
		"user_route": "rl:user:3:route:POST /api/products",
		"":           "rl:ip:192.0.2.1:user:3:route:POST /api/products",
	}
	for strategy, want := range cases {
		cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: strategy}
		assert.Equal(t, want, buildRateKey(cfg, c), strategy)
	}
}

func TestParseBucketResult(t *testing.T) {
	allowed, remaining, retry, ok := parseBucketResult([]interface{}{int64(1), int64(4), int64(0)})
	assert.True(t, ok)
	assert.True(t, allowed)
	assert.Equal(t, int64(4), remaining)
	assert.Zero(t, retry)

	_, _, _, ok = parseBucketResult("nope")
	assert.False(t, ok)
}

func TestCacheKeyFrom(t *testing.T) {
	e := echo.New()
	cfg := config.CacheConfig{Prefix: "cache:products", KeyStrategy: "route_query"}

	key := func(target, id string) string {
		c, _ := newCtx(e, http.MethodGet, target, "")
		c.SetPath("/api/products/:id")
		c.SetParamNames("id")
		c.SetParamValues(id)
		return cacheKeyFrom(cfg, c)
	}
	k1 := key("/api/products/1", "1")
	assert.Regexp(t, `^cache:products:[0-9a-f]{40}$`, k1)
	assert.Equal(t, k1, key("/api/products/1", "1"))
	assert.NotEqual(t, k1, key("/api/products/2", "2"))
	assert.NotEqual(t, k1, key("/api/products/1?x=1", "1"))
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`[1]`))
	require.NoError(t, err)

	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, `[1]`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 1})
	assert.False(t, ok)
}

func TestCaptureWriter_Truncation(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 4}
	_, _ = cw.Write([]byte("abc"))
	assert.False(t, cw.truncated())
	_, _ = cw.Write([]byte("def"))
	assert.True(t, cw.truncated())
	assert.Equal(t, "abcdef", rec.Body.String())
}

func TestCache_NoRedisPassthrough(t *testing.T) {
	e := echo.New()
	cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}
	h := NewRedisCache(cfg, nil)(okHandler)
	c, rec := newCtx(e, http.MethodGet, "/", "")
	require.NoError(t, h(c))
	assert.Empty(t, rec.Header().Get("X-Cache"))

	h = PurgeOnSuccess(cfg, nil, zerolog.Nop())(okHandler)
	c, _ = newCtx(e, http.MethodPost, "/", "")
	require.NoError(t, h(c))
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	e.Use(RequestLogger(zerolog.New(&buf)))
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "GET", line["method"])
	assert.Equal(t, "/ping", line["uri"])
	assert.Equal(t, float64(200), line["status"])
	assert.Equal(t, "anon", line["user"])
}
