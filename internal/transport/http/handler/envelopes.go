package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mridang-api/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SendEnvelope answers a send request. OTP is only present in mock mode.
type SendEnvelope struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	ExpiresIn string `json:"expiresIn"`
	OTP       string `json:"otp,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// VerifyEnvelope answers a verify request.
type VerifyEnvelope struct {
	Success           bool   `json:"success"`
	Verified          bool   `json:"verified"`
	Message           string `json:"message"`
	VerificationToken string `json:"verificationToken,omitempty"`
}

// CheckoutEnvelope answers a checkout submission.
type CheckoutEnvelope struct {
	Success  bool              `json:"success,omitempty"`
	Message  string            `json:"message,omitempty"`
	OrderRef string            `json:"orderRef,omitempty"`
	Error    string            `json:"error,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// httpError maps service errors to a status and a client-safe body.
// Causes are logged, never written.
func httpError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, http.StatusBadRequest, CheckoutEnvelope{Error: ve.Message, Fields: ve.Fields})
		return
	}

	var de *domain.Error
	if !errors.As(err, &de) {
		slog.Error("unhandled service error", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	switch {
	case errors.Is(de.Kind, domain.ErrBadRequest),
		errors.Is(de.Kind, domain.ErrNotFound),
		errors.Is(de.Kind, domain.ErrExpired),
		errors.Is(de.Kind, domain.ErrInvalidCode),
		errors.Is(de.Kind, domain.ErrTooManyAttempts):
		writeError(w, http.StatusBadRequest, de.Message)
	default:
		if de.Err != nil {
			slog.Error("request failed", "kind", de.Kind, "err", de.Err)
		}
		writeError(w, http.StatusInternalServerError, de.Message)
	}
}

// decode reads a JSON body into v, answering 400 itself when it cannot.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
