package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/jx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func newLimited(cfg RateLimitConfig) http.Handler {
	return RateLimit(cfg, NewLimiter(cfg.Max, cfg.Window))(okHandler())
}

func get(h http.Handler, remoteAddr string, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req.RemoteAddr = remoteAddr
	for _, m := range mutate {
		m(req)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimit_UnderLimit(t *testing.T) {
	h := newLimited(RateLimitConfig{Max: 5, Window: time.Minute})

	for i := range 5 {
		w := get(h, "192.168.1.1:12345")
		assert.Equal(t, http.StatusOK, w.Code, "request %d should pass", i+1)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	}
}

func TestRateLimit_OverLimit(t *testing.T) {
	h := newLimited(RateLimitConfig{Max: 2, Window: time.Minute})

	for range 2 {
		require.Equal(t, http.StatusOK, get(h, "10.0.0.1:9999").Code)
	}

	w := get(h, "10.0.0.1:9999")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var kind string
	err := jx.DecodeBytes(w.Body.Bytes()).ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "error" {
			return d.Skip()
		}
		var err error
		kind, err = d.Str()
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "RateLimited", kind)
}

func TestRateLimit_PerClient(t *testing.T) {
	h := newLimited(RateLimitConfig{Max: 1, Window: time.Minute})

	assert.Equal(t, http.StatusOK, get(h, "10.0.0.1:1234").Code)
	assert.Equal(t, http.StatusOK, get(h, "10.0.0.2:1234").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(h, "10.0.0.1:5678").Code)
}

func TestRateLimit_XForwardedFor(t *testing.T) {
	h := newLimited(RateLimitConfig{Max: 1, Window: time.Minute})
	xff := func(r *http.Request) { r.Header.Set("X-Forwarded-For", "203.0.113.50, 70.41.3.18") }

	assert.Equal(t, http.StatusOK, get(h, "192.168.1.1:4444", xff).Code)
	assert.Equal(t, http.StatusTooManyRequests, get(h, "192.168.1.2:5555", xff).Code)
}

func TestRateLimit_Skip(t *testing.T) {
	h := newLimited(RateLimitConfig{
		Max:    1,
		Window: time.Minute,
		Skip:   func(r *http.Request) bool { return r.URL.Path == "/livez" },
	})
	probe := func(r *http.Request) { r.URL.Path = "/livez" }

	for range 3 {
		assert.Equal(t, http.StatusOK, get(h, "10.0.0.9:1", probe).Code)
	}
	assert.Equal(t, http.StatusOK, get(h, "10.0.0.9:1").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(h, "10.0.0.9:1").Code)
}

func TestRateLimit_Disabled(t *testing.T) {
	h := RateLimit(RateLimitConfig{}, nil)(okHandler())

	for range 10 {
		w := get(h, "10.0.0.1:1")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}
}

func TestLimiter_SlidingWindow(t *testing.T) {
	l := NewLimiter(4, time.Minute)
	start := time.Date(2025, 11, 3, 14, 0, 0, 0, time.UTC)

	for range 4 {
		require.True(t, l.Allow("a", start).Allowed)
	}
	require.False(t, l.Allow("a", start.Add(30*time.Second)).Allowed)

	// A quarter into the next window the previous four still weigh three.
	d := l.Allow("a", start.Add(75*time.Second))
	assert.True(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.False(t, l.Allow("a", start.Add(75*time.Second)).Allowed)

	// Two idle windows reset the client.
	assert.True(t, l.Allow("a", start.Add(5*time.Minute)).Allowed)
}

func TestLimiter_Evict(t *testing.T) {
	l := NewLimiter(1, time.Minute)
	start := time.Date(2025, 11, 3, 14, 0, 0, 0, time.UTC)

	l.Allow("a", start)
	l.Allow("b", start.Add(2*time.Minute))
	l.Evict(start.Add(3 * time.Minute))

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.NotContains(t, l.clients, "a")
	assert.Contains(t, l.clients, "b")
}
