// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// cleanupInterval is how often idle clients are forgotten.
const cleanupInterval = 5 * time.Minute

// RateLimiter limits write requests per client over a sliding window. A
// client is the acting user when one is known, otherwise the remote IP,
// so users behind one proxy address do not share a budget.
type RateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	hits map[string][]time.Time // oldest first

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewRateLimiter allows limit requests per client per window and starts
// a goroutine that drops idle clients. Call Stop to end it.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		limit:  limit,
		window: window,
		now:    time.Now,
		hits:   make(map[string][]time.Time),
		stopCh: make(chan struct{}),
	}

	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rl.cleanup()
			case <-rl.stopCh:
				return
			}
		}
	}()

	return rl
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// take records a request for key. When the budget is spent it returns
// false and how long until the oldest request leaves the window.
func (rl *RateLimiter) take(key string) (bool, time.Duration) {
	now := rl.now()
	cutoff := now.Add(-rl.window)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	recent := rl.hits[key]
	drop := 0
	for drop < len(recent) && !recent[drop].After(cutoff) {
		drop++
	}
	recent = recent[drop:]

	if len(recent) >= rl.limit {
		rl.hits[key] = recent
		return false, recent[0].Sub(cutoff)
	}
	rl.hits[key] = append(recent, now)
	return true, 0
}

// cleanup forgets clients whose newest request has left the window.
func (rl *RateLimiter) cleanup() {
	cutoff := rl.now().Add(-rl.window)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, recent := range rl.hits {
		if len(recent) == 0 || !recent[len(recent)-1].After(cutoff) {
			delete(rl.hits, key)
		}
	}
}

// Middleware rejects over-budget requests with a JSON 429 and a
// Retry-After header in whole seconds. It must run after ActingUser.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, wait := rl.take(clientKey(r))
		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(wait)))
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many write requests, slow down")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func retryAfterSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

// clientKey identifies the budget a request draws from.
func clientKey(r *http.Request) string {
	if user := UserID(r.Context()); user != "" {
		return "user:" + user
	}
	return "ip:" + clientIP(r)
}

// clientIP returns the original client address, preferring the leftmost
// X-Forwarded-For entry, then X-Real-IP, then the connection's address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
