// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug derives category ids from display names.
package slug

import (
	"regexp"
	"strings"
)

// nonSlugRun matches every run of characters outside [a-z0-9].
var nonSlugRun = regexp.MustCompile(`[^a-z0-9]+`)

// Generate lower-cases and trims s, replaces each run of characters other
// than a-z and 0-9 with one hyphen, and strips leading and trailing hyphens.
// Example: "Tech News!" → "tech-news". The result may be empty.
func Generate(s string) string {
	result := strings.ToLower(strings.TrimSpace(s))
	result = nonSlugRun.ReplaceAllString(result, "-")
	return strings.Trim(result, "-")
}

// Valid reports whether s is a non-empty slug as produced by Generate.
func Valid(s string) bool {
	return s != "" && Generate(s) == s
}
