package handler

import (
	"net/http"

	"github.com/mridang-api/internal/application/checkout"
	"github.com/mridang-api/internal/domain"
)

// CheckoutHandler accepts the order form once both identifiers are verified.
type CheckoutHandler struct {
	svc checkout.Service
}

func NewCheckoutHandler(svc checkout.Service) *CheckoutHandler {
	return &CheckoutHandler{svc: svc}
}

func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var form domain.CheckoutForm
	if !decode(w, r, &form) {
		return
	}
	order, err := h.svc.Submit(r.Context(), form)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CheckoutEnvelope{
		Success:  true,
		Message:  checkout.MsgProceedingToPayment,
		OrderRef: order.Ref,
	})
}
