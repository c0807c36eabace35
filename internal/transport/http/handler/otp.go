package handler

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/mridang-api/internal/application/verification"
)

// OTPHandler serves the email and SMS send/verify endpoints.
type OTPHandler struct {
	svc verification.Service
}

func NewOTPHandler(svc verification.Service) *OTPHandler {
	return &OTPHandler{svc: svc}
}

// code accepts the OTP as a JSON string or a bare number.
type code string

func (c *code) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] != '"' && !bytes.Equal(b, []byte("null")) {
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		*c = code(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*c = code(s)
	return nil
}

type emailRequest struct {
	Email string `json:"email"`
	OTP   code   `json:"otp"`
}

type phoneRequest struct {
	Phone string `json:"phone"`
	OTP   code   `json:"otp"`
}

func (h *OTPHandler) SendEmail(w http.ResponseWriter, r *http.Request) {
	var body emailRequest
	if !decode(w, r, &body) {
		return
	}
	res, err := h.svc.SendEmail(r.Context(), body.Email)
	if err != nil {
		httpError(w, err)
		return
	}
	writeSent(w, res)
}

func (h *OTPHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var body emailRequest
	if !decode(w, r, &body) {
		return
	}
	res, err := h.svc.VerifyEmail(r.Context(), body.Email, string(body.OTP))
	if err != nil {
		httpError(w, err)
		return
	}
	writeVerified(w, res)
}

func (h *OTPHandler) SendSMS(w http.ResponseWriter, r *http.Request) {
	var body phoneRequest
	if !decode(w, r, &body) {
		return
	}
	res, err := h.svc.SendSMS(r.Context(), body.Phone)
	if err != nil {
		httpError(w, err)
		return
	}
	writeSent(w, res)
}

func (h *OTPHandler) VerifySMS(w http.ResponseWriter, r *http.Request) {
	var body phoneRequest
	if !decode(w, r, &body) {
		return
	}
	res, err := h.svc.VerifySMS(r.Context(), body.Phone, string(body.OTP))
	if err != nil {
		httpError(w, err)
		return
	}
	writeVerified(w, res)
}

func writeSent(w http.ResponseWriter, res *verification.SendResult) {
	writeJSON(w, http.StatusOK, SendEnvelope{
		Success:   true,
		Message:   res.Message,
		ExpiresIn: res.ExpiresIn,
		OTP:       res.Code,
		RequestID: res.RequestID,
	})
}

func writeVerified(w http.ResponseWriter, res *verification.VerifyResult) {
	writeJSON(w, http.StatusOK, VerifyEnvelope{
		Success:           true,
		Verified:          true,
		Message:           res.Message,
		VerificationToken: res.Token,
	})
}
