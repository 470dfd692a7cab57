// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"deskboard/internal/fault"
	"deskboard/internal/middleware"
	"deskboard/internal/models"
	"deskboard/internal/posts"
)

// Posts serves the post endpoints.
type Posts struct {
	reader  *posts.Reader
	mutator *posts.Mutator
}

// NewPosts creates the post handlers.
func NewPosts(reader *posts.Reader, mutator *posts.Mutator) *Posts {
	return &Posts{reader: reader, mutator: mutator}
}

// List returns posts newest first. ?tag= filters by tag, ?category= by
// category; "all" or no filter returns everything.
func (h *Posts) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tag := strings.TrimSpace(q.Get("tag"))
	category := strings.TrimSpace(q.Get("category"))

	var (
		list []models.Post
		err  error
	)
	switch {
	case tag != "" && category != "":
		writeError(w, r, fault.Validation("filter by tag or by category, not both"))
		return
	case tag != "":
		list, err = h.reader.FetchByTag(r.Context(), tag)
	default:
		list, err = h.reader.FetchByCategory(r.Context(), category)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Get returns one post.
func (h *Posts) Get(w http.ResponseWriter, r *http.Request) {
	post, err := h.reader.FetchByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if post == nil {
		writeError(w, r, fault.ErrPostNotFound)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// Create stores a new post authored by the acting user.
func (h *Posts) Create(w http.ResponseWriter, r *http.Request) {
	var in models.PostInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if msg := validatePostFields(in.Title, in.Content, in.Author, in.Tags); msg != "" {
		writeError(w, r, fault.Validation("%s", msg))
		return
	}

	user := middleware.UserID(r.Context())
	if in.AuthorID != "" && in.AuthorID != user {
		writeError(w, r, fault.ErrNotOwner)
		return
	}
	in.AuthorID = user

	id, err := h.mutator.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/posts/"+id)
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// Update applies a partial update.
func (h *Posts) Update(w http.ResponseWriter, r *http.Request) {
	var patch models.PostPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	if msg := validatePostFields(deref(patch.Title), deref(patch.Content), deref(patch.Author), patch.Tags); msg != "" {
		writeError(w, r, fault.Validation("%s", msg))
		return
	}

	err := h.mutator.Update(r.Context(), chi.URLParam(r, "id"), patch, middleware.UserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete removes a post.
func (h *Posts) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.mutator.Delete(r.Context(), chi.URLParam(r, "id"), middleware.UserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type moveRequest struct {
	Category string `json:"category"`
}

// Move changes a post's category.
func (h *Posts) Move(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	err := h.mutator.Move(r.Context(), chi.URLParam(r, "id"), req.Category, middleware.UserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
