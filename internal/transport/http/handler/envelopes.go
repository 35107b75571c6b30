package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lifeconnect/lifeconnect-api/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// AuthEnvelope wraps login responses.
type AuthEnvelope struct {
	Bearer string       `json:"Bearer,omitempty"`
	User   *domain.User `json:"user,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// BroadcastEnvelope wraps alert broadcast responses.
type BroadcastEnvelope struct {
	Success     bool          `json:"success"`
	Message     string        `json:"message"`
	SentCount   int           `json:"sent_count"`
	FailedCount int           `json:"failed_count"`
	Alert       *domain.Alert `json:"alert,omitempty"`
}

// ArchiveEnvelope wraps archive-expired responses.
type ArchiveEnvelope struct {
	Message       string `json:"message"`
	ArchivedCount int    `json:"archived_count"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// httpError maps domain sentinel errors to HTTP status codes.
func httpError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrInvalidState):
		status = http.StatusConflict
	}
	writeError(w, status, err.Error())
}
