package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/isdelr/notebook-be/internal/common"
	"github.com/isdelr/notebook-be/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"validation", fmt.Errorf("%w: missing email", common.ErrValidation), http.StatusBadRequest, "Missing email"},
		{"bare validation", common.ErrValidation, http.StatusBadRequest, "Invalid request"},
		{"unsupported", fmt.Errorf("%w: ruby", common.ErrUnsupportedLanguage), http.StatusBadRequest, "Unsupported language: ruby"},
		{"not authenticated", common.ErrNotAuthenticated, http.StatusUnauthorized, "Not authenticated"},
		{"invalid session", fmt.Errorf("%w: expired", common.ErrInvalidSession), http.StatusUnauthorized, "Invalid session"},
		{"credentials", common.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
		{"not found", fmt.Errorf("lookup: %w: no notebook with id nbk_1", common.ErrNotFound), http.StatusNotFound, "No notebook with id nbk_1"},
		{"conflict", fmt.Errorf("%w: email already registered", common.ErrConflict), http.StatusConflict, "Email already registered"},
		{"upstream", fmt.Errorf("run: %w", &common.UpstreamError{Service: "Piston", StatusCode: 502, Body: "bad gateway"}), http.StatusInternalServerError, "Piston error: 502 bad gateway"},
		{"unavailable", fmt.Errorf("%w: cpp", common.ErrLanguageUnavailable), http.StatusInternalServerError, "Language not available: cpp"},
		{"corrupt", fmt.Errorf("read: %w: users: bad json", store.ErrCorrupt), http.StatusInternalServerError, "internal error"},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := classify(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.msg, msg)
		})
	}
}
