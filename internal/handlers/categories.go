// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"deskboard/internal/categories"
	"deskboard/internal/fault"
)

// Categories serves the category endpoints.
type Categories struct {
	engine *categories.Engine
}

// NewCategories creates the category handlers.
func NewCategories(engine *categories.Engine) *Categories {
	return &Categories{engine: engine}
}

type categoryRequest struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

type reorderRequest struct {
	Order []string `json:"order"`
}

// List returns the categories in display order.
func (h *Categories) List(w http.ResponseWriter, r *http.Request) {
	cats, err := h.engine.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

// Create adds a category and returns its derived id.
func (h *Categories) Create(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if msg := validateCategory(req.Name, req.Icon); msg != "" {
		writeError(w, r, fault.Validation("%s", msg))
		return
	}

	id, err := h.engine.Add(r.Context(), req.Name, req.Icon)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// Rename changes a category's display name.
func (h *Categories) Rename(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Icon != "" {
		writeError(w, r, fault.Validation("only the name of a category can be changed"))
		return
	}
	if msg := validateCategory(req.Name, ""); msg != "" {
		writeError(w, r, fault.Validation("%s", msg))
		return
	}

	if err := h.engine.Rename(r.Context(), chi.URLParam(r, "id"), req.Name); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete removes a category; its posts move to the fallback category.
func (h *Categories) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reorder replaces the display order.
func (h *Categories) Reorder(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.engine.Reorder(r.Context(), req.Order); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
