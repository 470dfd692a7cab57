// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"net/http"
	"strings"
)

// UserHeader carries the acting user's id, set by the authenticating proxy
// in front of the API.
const UserHeader = "X-User-ID"

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

// userKey is the context key for the acting user's id.
const userKey contextKey = "user"

// ActingUser stores the X-User-ID header value in the request context.
// It does not enforce anything; see RequireUser.
func ActingUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := strings.TrimSpace(r.Header.Get(UserHeader)); id != "" {
			r = r.WithContext(WithUserID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireUser rejects requests without an acting user with 403. Post
// mutations over HTTP must always run the ownership check.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserID(r.Context()) == "" {
			writeError(w, http.StatusForbidden, "permission", "an acting user is required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithUserID returns a copy of ctx carrying the acting user's id.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userKey, id)
}

// UserID returns the acting user's id, or "" if none was supplied.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userKey).(string)
	return id
}
