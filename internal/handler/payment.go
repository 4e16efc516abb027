package handler

import (
	"errors"
	"net/http"

	"github.com/ai0585413/bkash/internal/domain"
	"github.com/ai0585413/bkash/internal/service"
)

// PaymentHandler serves the merchant-facing RPC routes.
type PaymentHandler struct {
	svc *service.PaymentService
}

func NewPaymentHandler(svc *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

// CallbackURLs handles POST /payment/gateway/callback_urls.
func (h *PaymentHandler) CallbackURLs(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.svc.CallbackURLs())
}

// Create handles POST /payment/gateway/create.
func (h *PaymentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreatePaymentRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	resp, err := h.svc.CreatePayment(r.Context(), req)
	switch {
	case errors.Is(err, domain.ErrProviderNotConfigured), errors.Is(err, service.ErrPaymentNotCreated):
		// reported as a result, not a transport failure
		JSON(w, http.StatusOK, domain.ErrorResult{Error: err.Error()})
	case err != nil:
		Error(w, err)
	default:
		JSON(w, http.StatusOK, resp)
	}
}
