// Package view renders the payment status page.
package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/ai0585413/bkash/internal/domain"
)

//go:embed templates/*.html
var templates embed.FS

// Status is the presentation of a transaction on the status page.
type Status struct {
	Reference    string                  `json:"reference"`
	Found        bool                    `json:"found"`
	State        domain.TransactionState `json:"state,omitempty"`
	Amount       string                  `json:"amount,omitempty"`
	PaymentID    string                  `json:"paymentId,omitempty"`
	ErrorMessage string                  `json:"errorMessage,omitempty"`
	Message      string                  `json:"message"`
	UpdatedAt    *time.Time              `json:"updatedAt,omitempty"`
}

// NewStatus builds the presentation for reference. tx may be nil.
func NewStatus(reference string, tx *domain.Transaction) Status {
	if tx == nil {
		return Status{Reference: reference, Message: "We could not find this payment."}
	}
	updated := tx.UpdatedAt
	return Status{
		Reference:    tx.Reference,
		Found:        true,
		State:        tx.State,
		Amount:       tx.Amount.StringFixed(2),
		PaymentID:    tx.GatewayPaymentID,
		ErrorMessage: tx.ErrorMessage,
		Message:      message(tx.State),
		UpdatedAt:    &updated,
	}
}

func message(state domain.TransactionState) string {
	switch state {
	case domain.StateDone:
		return "Your payment was successful."
	case domain.StateCanceled:
		return "Your payment was cancelled."
	case domain.StateError:
		return "Your payment could not be completed."
	default:
		return "Your payment is being processed."
	}
}

// Renderer writes a status presentation.
type Renderer interface {
	Render(w io.Writer, s Status) error
}

// HTMLRenderer renders the embedded status template.
type HTMLRenderer struct {
	tmpl *template.Template
}

// NewHTMLRenderer parses the embedded templates.
func NewHTMLRenderer() (*HTMLRenderer, error) {
	tmpl, err := template.ParseFS(templates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &HTMLRenderer{tmpl: tmpl}, nil
}

func (r *HTMLRenderer) Render(w io.Writer, s Status) error {
	return r.tmpl.ExecuteTemplate(w, "status.html", s)
}
