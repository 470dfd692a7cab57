// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package fault defines the error taxonomy returned by the content store
// access layer. Every failure a caller can observe is a *Error carrying a
// Kind; the message is safe to show to users, while the wrapped cause is
// kept for logs and errors.Is/As.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	// KindUnknown is reported for errors that did not originate in this layer.
	KindUnknown Kind = iota
	// KindTransient is a store hiccup that survived every retry.
	KindTransient
	// KindIndexRequired means a compound query needs an index the store lacks.
	KindIndexRequired
	// KindNotFound means the addressed document does not exist.
	KindNotFound
	// KindPermission means the acting principal does not own the target.
	KindPermission
	// KindValidation is malformed input or a violated invariant.
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindIndexRequired:
		return "index_required"
	case KindNotFound:
		return "not_found"
	case KindPermission:
		return "permission"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Error is a classified access-layer failure.
type Error struct {
	Kind    Kind
	Message string
	// Ref is an operator-facing remediation reference (IndexRequired only).
	Ref string
	Err error
}

// Error returns the caller-facing message. The cause is not included.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind and message, which lets the
// exported sentinels below be used with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == e.Message
}

// Sentinels for outcomes callers commonly branch on.
var (
	ErrUnavailable       = &Error{Kind: KindTransient, Message: "data is temporarily unavailable, try again"}
	ErrPostNotFound      = &Error{Kind: KindNotFound, Message: "no such post"}
	ErrCategoryNotFound  = &Error{Kind: KindNotFound, Message: "no such category"}
	ErrNotOwner          = &Error{Kind: KindPermission, Message: "you can only modify your own posts"}
	ErrAlreadyInCategory = &Error{Kind: KindValidation, Message: "post is already in that category"}
	ErrNameInUse         = &Error{Kind: KindValidation, Message: "name already in use"}
	ErrIDInUse           = &Error{Kind: KindValidation, Message: "category id already in use"}
	ErrSystemCategory    = &Error{Kind: KindValidation, Message: "system categories cannot be changed"}
	ErrNoUsableID        = &Error{Kind: KindValidation, Message: "no usable id could be derived"}
)

// Transient wraps cause as a retry-exhausted failure with the generic message.
func Transient(cause error) *Error {
	return &Error{Kind: KindTransient, Message: ErrUnavailable.Message, Err: cause}
}

// IndexRequired reports a missing index together with its remediation reference.
func IndexRequired(ref string, cause error) *Error {
	return &Error{
		Kind:    KindIndexRequired,
		Message: "the query requires an index that has not been created",
		Ref:     ref,
		Err:     cause,
	}
}

// Validation builds a validation failure with a formatted message.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches cause to a copy of sentinel, keeping its kind and message.
func Wrap(sentinel *Error, cause error) *Error {
	e := *sentinel
	e.Err = cause
	return &e
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
