// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// fakeClock is a settable time source for the limiter.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(t *testing.T, limit int, window time.Duration) (*RateLimiter, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(limit, window)
	rl.now = clock.now
	t.Cleanup(rl.Stop)
	return rl, clock
}

// limitedHandler chains ActingUser in front of the limiter, as the router does.
func limitedHandler(rl *RateLimiter) http.Handler {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	return ActingUser(rl.Middleware(ok))
}

func write(h http.Handler, user, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/posts", nil)
	req.RemoteAddr = remote
	if user != "" {
		req.Header.Set(UserHeader, user)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRateLimitIsPerActingUser(t *testing.T) {
	rl, _ := newTestLimiter(t, 2, time.Minute)
	h := limitedHandler(rl)
	const proxy = "10.0.0.1:4000"

	for i := 0; i < 2; i++ {
		if rr := write(h, "alice", proxy); rr.Code != http.StatusCreated {
			t.Fatalf("alice write %d: got %d, want 201", i+1, rr.Code)
		}
	}
	if rr := write(h, "alice", proxy); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("alice third write: got %d, want 429", rr.Code)
	}

	// Same proxy address, different user: separate budget.
	if rr := write(h, "bob", proxy); rr.Code != http.StatusCreated {
		t.Errorf("bob write: got %d, want 201", rr.Code)
	}
}

func TestRateLimitFallsBackToClientIP(t *testing.T) {
	rl, _ := newTestLimiter(t, 1, time.Minute)
	h := limitedHandler(rl)

	if rr := write(h, "", "192.168.1.7:1111"); rr.Code != http.StatusCreated {
		t.Fatalf("first anonymous write: got %d", rr.Code)
	}
	if rr := write(h, "", "192.168.1.7:2222"); rr.Code != http.StatusTooManyRequests {
		t.Errorf("second write from same host: got %d, want 429", rr.Code)
	}
	if rr := write(h, "", "192.168.1.8:1111"); rr.Code != http.StatusCreated {
		t.Errorf("write from another host: got %d, want 201", rr.Code)
	}
	// An acting user does not draw from the anonymous budget of its address.
	if rr := write(h, "carol", "192.168.1.7:3333"); rr.Code != http.StatusCreated {
		t.Errorf("carol write: got %d, want 201", rr.Code)
	}
}

func TestRateLimitRejectionIsJSON(t *testing.T) {
	rl, clock := newTestLimiter(t, 1, time.Minute)
	h := limitedHandler(rl)

	write(h, "alice", "10.0.0.1:1")
	clock.advance(20 * time.Second)
	rr := write(h, "alice", "10.0.0.1:1")

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("got %d, want 429", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type: got %q", ct)
	}
	if got := rr.Header().Get("Retry-After"); got != "40" {
		t.Errorf("Retry-After: got %q, want %q", got, "40")
	}

	var body map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["kind"] != "rate_limited" {
		t.Errorf("kind: got %q, want rate_limited", body["kind"])
	}
	if body["error"] == "" {
		t.Error("error message is empty")
	}
}

func TestRateLimitWindowSlides(t *testing.T) {
	rl, clock := newTestLimiter(t, 2, time.Minute)

	if ok, _ := rl.take("k"); !ok {
		t.Fatal("first take refused")
	}
	clock.advance(30 * time.Second)
	if ok, _ := rl.take("k"); !ok {
		t.Fatal("second take refused")
	}
	if ok, wait := rl.take("k"); ok || wait != 30*time.Second {
		t.Fatalf("third take: ok=%v wait=%v, want refused with 30s", ok, wait)
	}

	// The first request leaves the window; only one slot frees up.
	clock.advance(30 * time.Second)
	if ok, _ := rl.take("k"); !ok {
		t.Fatal("take after oldest expired refused")
	}
	if ok, wait := rl.take("k"); ok || wait != 30*time.Second {
		t.Errorf("take with full window: ok=%v wait=%v", ok, wait)
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want int
	}{
		{0, 1},
		{200 * time.Millisecond, 1},
		{time.Second, 1},
		{1500 * time.Millisecond, 2},
		{40 * time.Second, 40},
	}
	for _, tt := range tests {
		if got := retryAfterSeconds(tt.in); got != tt.want {
			t.Errorf("retryAfterSeconds(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestRateLimiterCleanupDropsIdleClients(t *testing.T) {
	rl, clock := newTestLimiter(t, 5, time.Minute)

	rl.take("user:idle")
	clock.advance(45 * time.Second)
	rl.take("user:active")
	clock.advance(30 * time.Second)

	rl.cleanup()

	rl.mu.Lock()
	_, idle := rl.hits["user:idle"]
	_, active := rl.hits["user:active"]
	rl.mu.Unlock()

	if idle {
		t.Error("idle client was kept")
	}
	if !active {
		t.Error("active client was dropped")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(1, time.Second)
	rl.Stop()
	rl.Stop()
}

func TestClientKey(t *testing.T) {
	tests := []struct {
		name   string
		user   string
		xff    string
		xri    string
		remote string
		want   string
	}{
		{name: "acting user wins", user: "u-1", xff: "10.0.0.1", remote: "1.2.3.4:5", want: "user:u-1"},
		{name: "forwarded leftmost", xff: "10.0.0.1, 172.16.0.1", remote: "1.2.3.4:5", want: "ip:10.0.0.1"},
		{name: "real ip", xri: " 10.0.0.2 ", remote: "1.2.3.4:5", want: "ip:10.0.0.2"},
		{name: "remote addr", remote: "1.2.3.4:5", want: "ip:1.2.3.4"},
		{name: "ipv6 remote addr", remote: "[2001:db8::1]:443", want: "ip:2001:db8::1"},
		{name: "remote addr without port", remote: "1.2.3.4", want: "ip:1.2.3.4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			if tt.user != "" {
				req = req.WithContext(WithUserID(req.Context(), tt.user))
			}
			if got := clientKey(req); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
