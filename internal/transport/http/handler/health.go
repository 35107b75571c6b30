package handler

import (
	"net/http"

	"github.com/lifeconnect/lifeconnect-api/internal/infrastructure/smtp"
)

// HealthHandler handles health-check and mailer diagnostics endpoints.
type HealthHandler struct {
	mailer smtp.Mailer
}

func NewHealthHandler(mailer smtp.Mailer) *HealthHandler {
	return &HealthHandler{mailer: mailer}
}

func (h *HealthHandler) Ping(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "pong"})
}

// MailerTest verifies connectivity to the SMTP server.
func (h *HealthHandler) MailerTest(w http.ResponseWriter, _ *http.Request) {
	if err := h.mailer.Verify(); err != nil {
		writeError(w, http.StatusServiceUnavailable, "mailer connection failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "mailer connection ok"})
}
