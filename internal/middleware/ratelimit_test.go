package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/issue-tracker/internal/apperror"
	"github.com/iliyamo/issue-tracker/internal/config"
)

func newMemStore(t *testing.T) *MemoryRateStore {
	t.Helper()
	s := NewMemoryRateStore(time.Hour) // sweep interval irrelevant for most tests
	t.Cleanup(s.Stop)
	return s
}

func TestMemoryStoreCountsWithinWindow(t *testing.T) {
	s := newMemStore(t)
	for i := 1; i <= 3; i++ {
		count, resetAt, err := s.Incr(context.Background(), "k", time.Minute)
		if err != nil {
			t.Fatalf("incr: %v", err)
		}
		if count != i {
			t.Fatalf("count = %d, want %d", count, i)
		}
		if !resetAt.After(time.Now()) {
			t.Fatalf("resetAt must be in the future")
		}
	}
}

func TestMemoryStoreResetsAfterWindow(t *testing.T) {
	s := newMemStore(t)
	if c, _, _ := s.Incr(context.Background(), "k", 30*time.Millisecond); c != 1 {
		t.Fatalf("first count = %d", c)
	}
	s.Incr(context.Background(), "k", 30*time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	if c, _, _ := s.Incr(context.Background(), "k", 30*time.Millisecond); c != 1 {
		t.Fatalf("count after window = %d, want 1", c)
	}
}

func TestMemoryStoreSweep(t *testing.T) {
	s := newMemStore(t)
	s.Incr(context.Background(), "stale", 10*time.Millisecond)
	s.Incr(context.Background(), "fresh", time.Hour)
	time.Sleep(20 * time.Millisecond)
	s.Sweep(time.Now())
	s.mu.Lock()
	_, staleKept := s.entries["stale"]
	_, freshKept := s.entries["fresh"]
	s.mu.Unlock()
	if staleKept {
		t.Fatalf("stale entry survived sweep")
	}
	if !freshKept {
		t.Fatalf("fresh entry was swept")
	}
}

func doLimited(t *testing.T, mw echo.MiddlewareFunc) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	return rec, mw(next)(c)
}

func TestRateLimitDeniesAfterMax(t *testing.T) {
	policy := config.RateLimitPolicy{Name: "auth", Window: time.Minute, MaxRequests: 3}
	mw := RateLimit(policy, newMemStore(t))

	for i := 1; i <= 3; i++ {
		rec, err := doLimited(t, mw)
		if err != nil {
			t.Fatalf("request %d: unexpected error %v", i, err)
		}
		want := strconv.Itoa(3 - i)
		if got := rec.Header().Get("X-RateLimit-Remaining"); got != want {
			t.Fatalf("request %d: remaining = %q, want %q", i, got, want)
		}
	}

	rec, err := doLimited(t, mw)
	ae, ok := err.(*apperror.Error)
	if !ok || ae.Status != http.StatusTooManyRequests {
		t.Fatalf("expected 429 apperror, got %v", err)
	}
	retry, ok := ae.Details["retry_after"].(int)
	if !ok || retry <= 0 {
		t.Fatalf("retry_after must be positive, got %v", ae.Details["retry_after"])
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("Retry-After header missing")
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("remaining should be 0 on denial")
	}
	if _, perr := time.Parse(time.RFC3339, rec.Header().Get("X-RateLimit-Reset")); perr != nil {
		t.Fatalf("X-RateLimit-Reset not RFC3339: %q", rec.Header().Get("X-RateLimit-Reset"))
	}
}

func TestRateLimitRecoversAfterWindow(t *testing.T) {
	policy := config.RateLimitPolicy{Name: "auth", Window: 30 * time.Millisecond, MaxRequests: 1}
	mw := RateLimit(policy, newMemStore(t))

	if _, err := doLimited(t, mw); err != nil {
		t.Fatalf("first request: %v", err)
	}
	if _, err := doLimited(t, mw); err == nil {
		t.Fatalf("second request should be denied")
	}
	time.Sleep(40 * time.Millisecond)
	if _, err := doLimited(t, mw); err != nil {
		t.Fatalf("request after window: %v", err)
	}
}

type failingStore struct{}

func (failingStore) Incr(context.Context, string, time.Duration) (int, time.Time, error) {
	return 0, time.Time{}, errors.New("store down")
}

func TestRateLimitFailsOpenOnStoreError(t *testing.T) {
	policy := config.RateLimitPolicy{Name: "auth", Window: time.Minute, MaxRequests: 1}
	mw := RateLimit(policy, failingStore{})
	rec, err := doLimited(t, mw)
	if err != nil {
		t.Fatalf("store errors must fail open, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
