package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/notebook-be/internal/auth"
	"github.com/isdelr/notebook-be/internal/common"
	"github.com/isdelr/notebook-be/internal/services"
)

// NotebookHandler handles HTTP requests for the caller's notebooks.
type NotebookHandler struct {
	service services.NotebookServiceProvider
}

// NewNotebookHandler creates a new NotebookHandler.
func NewNotebookHandler(service services.NotebookServiceProvider) *NotebookHandler {
	return &NotebookHandler{service: service}
}

// GetAll lists the caller's notebooks, newest first.
func (h *NotebookHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	notebooks, err := h.service.List(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, notebooks)
}

// Create adds a notebook. Both title and cells are optional.
func (h *NotebookHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var payload services.NotebookInput
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, r, err)
		return
	}

	notebook, err := h.service.Create(r.Context(), userID, payload)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, notebook)
}

// Get returns a single notebook.
func (h *NotebookHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	notebook, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, notebook)
}

// Update replaces the title and/or cells of a notebook.
func (h *NotebookHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var payload services.NotebookInput
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, r, err)
		return
	}

	notebook, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), payload)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, notebook)
}

func (h *NotebookHandler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, common.ErrNotAuthenticated)
		return "", false
	}
	return user.ID, true
}
