// Package callback normalizes inbound gateway return callbacks and builds the
// return URLs handed to the gateway when a payment session is created.
package callback

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ai0585413/bkash/pkg/payment"
)

// ReturnPath is the route the gateway redirects the payer back to.
const ReturnPath = "/payment/gateway/return"

// Status is the explicit outcome discriminator some callbacks carry.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusCancel  Status = "cancel"
)

// Event is a normalized callback.
type Event struct {
	PaymentID string
	Reference string
	// Status is empty when the callback carries no discriminator and the
	// outcome has to be learned by executing the payment.
	Status Status
}

// HasStatus reports whether the gateway told us the outcome directly.
func (e Event) HasStatus() bool {
	return e.Status != ""
}

// Normalize extracts an Event from query or form values. Every value has
// surrounding whitespace trimmed, then the trailing slashes that some gateways
// append are stripped.
func Normalize(values url.Values) Event {
	get := func(key string) string {
		return strings.TrimRight(strings.TrimSpace(values.Get(key)), "/")
	}
	return Event{
		PaymentID: get("paymentID"),
		Reference: get("reference"),
		Status:    Status(strings.ToLower(get("status"))),
	}
}

// URLs is the flat callback mapping returned by get_callback_urls.
type URLs = payment.CallbackURLs

// URLBuilder builds the four callback URLs from a single public base.
type URLBuilder struct {
	base string
}

// NewURLBuilder validates publicBaseURL (scheme://host[:port]) and returns a builder.
func NewURLBuilder(publicBaseURL string) (*URLBuilder, error) {
	u, err := url.Parse(strings.TrimRight(publicBaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid public base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("public base url %q must include scheme and host", publicBaseURL)
	}
	return &URLBuilder{base: u.String() + ReturnPath}, nil
}

// Build returns the generic, success, failure and cancelled URLs.
func (b *URLBuilder) Build() URLs {
	return URLs{
		Callback:  b.base,
		Success:   b.withStatus(StatusSuccess),
		Failure:   b.withStatus(StatusFailure),
		Cancelled: b.withStatus(StatusCancel),
	}
}

func (b *URLBuilder) withStatus(s Status) string {
	return b.base + "?status=" + string(s)
}
