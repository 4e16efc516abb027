package handler

import (
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/ai0585413/bkash/internal/callback"
	"github.com/ai0585413/bkash/internal/service"
)

// StatusPath is the route of the payment status page.
const StatusPath = "/payment/status"

// CallbackHandler receives the payer's return from the gateway.
type CallbackHandler struct {
	svc    *service.PaymentService
	logger *zap.Logger
}

func NewCallbackHandler(svc *service.PaymentService, logger *zap.Logger) *CallbackHandler {
	return &CallbackHandler{svc: svc, logger: logger.Named("callback")}
}

// Return handles GET|POST /payment/gateway/return. It always redirects to the
// status page, whatever the reconciliation outcome.
func (h *CallbackHandler) Return(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.logger.Warn("malformed callback parameters", zap.Error(err))
	}

	ref := h.svc.HandleCallback(r.Context(), callback.Normalize(r.Form))

	http.Redirect(w, r, StatusPath+"?reference="+url.QueryEscape(ref), http.StatusSeeOther)
}
