// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers implements the JSON HTTP API over the posts reader and
// mutator and the category engine. Clients pull state and re-fetch after
// every write; there is no push channel.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"deskboard/internal/fault"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// errorResponse is the body of every non-2xx reply.
type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	// Ref is the index remediation for index_required failures.
	Ref string `json:"ref,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError maps an access-layer error to a status code and writes it.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var fe *fault.Error
	if !errors.As(err, &fe) {
		slog.Error("unclassified error", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error: "internal server error",
			Kind:  fault.KindUnknown.String(),
		})
		return
	}

	resp := errorResponse{Error: fe.Message, Kind: fe.Kind.String()}
	if fe.Kind == fault.KindIndexRequired {
		resp.Ref = fe.Ref
	}
	writeJSON(w, statusFor(fe.Kind), resp)
}

// statusFor returns the HTTP status for a fault kind.
func statusFor(k fault.Kind) int {
	switch k {
	case fault.KindValidation:
		return http.StatusBadRequest
	case fault.KindPermission:
		return http.StatusForbidden
	case fault.KindNotFound:
		return http.StatusNotFound
	case fault.KindTransient, fault.KindIndexRequired:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a single JSON object from the request body into v.
// Unknown fields are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fault.Validation("request body is empty")
		}
		return fault.Validation("invalid request body: %s", err.Error())
	}
	if dec.More() {
		return fault.Validation("request body must hold a single JSON object")
	}
	return nil
}
