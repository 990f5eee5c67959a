package handlers

import (
	"net/http"

	"github.com/isdelr/notebook-be/internal/execution"
)

// RunHandler executes notebook cells.
type RunHandler struct {
	service execution.ServiceProvider
}

// NewRunHandler creates a new RunHandler.
func NewRunHandler(service execution.ServiceProvider) *RunHandler {
	return &RunHandler{service: service}
}

// Run executes the posted code and returns its captured output.
func (h *RunHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req execution.Request
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.service.Execute(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
