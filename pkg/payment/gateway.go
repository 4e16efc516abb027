package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultTimeout bounds every gateway call.
const DefaultTimeout = 30 * time.Second

// Gateway defines the operations the reconciliation flow needs from the payment provider.
//
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=Gateway --dir=. --output=./mocks --outpkg=mocks
type Gateway interface {
	// CreatePayment opens a payment session and returns where to send the payer.
	CreatePayment(ctx context.Context, req CreatePaymentRequest) (*CreatePaymentResult, error)
	// ExecutePayment finalizes or queries a previously created session.
	ExecutePayment(ctx context.Context, paymentID string) (*ExecutePaymentResult, error)
}

// CallbackURLs are the return endpoints handed to the gateway on create.
type CallbackURLs struct {
	Callback  string `json:"callbackURL"`
	Success   string `json:"successCallbackURL"`
	Failure   string `json:"failureCallbackURL"`
	Cancelled string `json:"cancelledCallbackURL"`
}

// CreatePaymentRequest is the input of Gateway.CreatePayment.
type CreatePaymentRequest struct {
	Amount         decimal.Decimal
	PayerReference string
	CallbackURLs   CallbackURLs
}

// CreatePaymentResult is the typed success shape of a create response.
type CreatePaymentResult struct {
	PaymentID   string
	RedirectURL string
	Raw         json.RawMessage
}

// TransactionStatus is the gateway-reported status of an executed payment.
type TransactionStatus string

const (
	TxStatusCompleted  TransactionStatus = "completed"
	TxStatusInitiated  TransactionStatus = "initiated"
	TxStatusProcessing TransactionStatus = "processing"
	TxStatusCancelled  TransactionStatus = "cancelled"
)

// ExecutePaymentResult is the typed shape of an execute response.
// TransactionStatus is lower-cased; it is empty when the gateway omitted it.
type ExecutePaymentResult struct {
	PaymentID         string
	TransactionStatus TransactionStatus
	StatusCode        string
	StatusMessage     string
	Raw               json.RawMessage
}

// Provider is the read-only gateway account the client talks to.
type Provider struct {
	Code    string
	BaseURL string
	AppKey  string
	Tokens  TokenSource
}

// Configured reports whether the provider has enough settings to reach the gateway.
func (p *Provider) Configured() bool {
	return p != nil && p.BaseURL != "" && p.AppKey != "" && p.Tokens != nil
}

// TokenSource supplies a valid bearer token on demand.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource returning a fixed token.
type StaticToken string

func (t StaticToken) Token(ctx context.Context) (string, error) {
	if t == "" {
		return "", fmt.Errorf("static token is empty")
	}
	return string(t), nil
}
