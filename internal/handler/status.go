package handler

import (
	"mime"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ai0585413/bkash/internal/domain"
	"github.com/ai0585413/bkash/internal/service"
	"github.com/ai0585413/bkash/internal/view"
)

// StatusHandler renders the payment status page.
type StatusHandler struct {
	svc      *service.PaymentService
	renderer view.Renderer
	logger   *zap.Logger
}

func NewStatusHandler(svc *service.PaymentService, renderer view.Renderer, logger *zap.Logger) *StatusHandler {
	return &StatusHandler{svc: svc, renderer: renderer, logger: logger.Named("status")}
}

// Show handles GET /payment/status?reference=.
func (h *StatusHandler) Show(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("reference")

	tx, err := h.svc.Status(r.Context(), ref)
	if err != nil {
		Error(w, err)
		return
	}
	status := view.NewStatus(ref, tx)

	if wantsJSON(r) {
		if !status.Found {
			Error(w, domain.ErrNotFound(domain.ErrTransactionNotFound.Error()))
			return
		}
		JSON(w, http.StatusOK, status)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.renderer.Render(w, status); err != nil {
		h.logger.Error("failed to render status page", zap.String("reference", ref), zap.Error(err))
	}
}

func wantsJSON(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err == nil && mediaType == "application/json" {
			return true
		}
	}
	return false
}
