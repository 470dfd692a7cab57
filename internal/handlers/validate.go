package handlers

import (
	"unicode/utf8"
)

// Size limits for request fields. Presence and emptiness are checked by the
// access layer; these only bound what a client may send.
const (
	maxTitleLen        = 300
	maxContentLen      = 100_000
	maxAuthorLen       = 100
	maxTags            = 20
	maxTagLen          = 50
	maxCategoryNameLen = 60
	maxIconLen         = 40
)

// validatePostFields checks the size of post fields and returns the first
// error found.
func validatePostFields(title, content, author string, tags []string) string {
	if utf8.RuneCountInString(title) > maxTitleLen {
		return "Title is too long (max 300 characters)."
	}
	if utf8.RuneCountInString(content) > maxContentLen {
		return "Content is too long (max 100,000 characters)."
	}
	if utf8.RuneCountInString(author) > maxAuthorLen {
		return "Author is too long (max 100 characters)."
	}
	if len(tags) > maxTags {
		return "Too many tags (max 20)."
	}
	for _, tag := range tags {
		if utf8.RuneCountInString(tag) > maxTagLen {
			return "Tag is too long (max 50 characters)."
		}
	}
	return ""
}

// validateCategory checks category name and icon sizes.
func validateCategory(name, icon string) string {
	if utf8.RuneCountInString(name) > maxCategoryNameLen {
		return "Category name is too long (max 60 characters)."
	}
	if utf8.RuneCountInString(icon) > maxIconLen {
		return "Icon is too long (max 40 characters)."
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
