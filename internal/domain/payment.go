package domain

import "github.com/shopspring/decimal"

// CreatePaymentRequest is the input of the create_payment RPC.
type CreatePaymentRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	PartnerID string          `json:"partnerId" validate:"required,max=64"`
	Reference string          `json:"reference" validate:"required,max=128,excludesall=/?&#"`
}

// CreatePaymentResponse returns the URL to redirect the payer to.
type CreatePaymentResponse struct {
	RedirectURL          string `json:"redirectUrl"`
	TransactionReference string `json:"transactionReference"`
}

// ErrorResult is the structured {error} result of the RPC surface.
type ErrorResult struct {
	Error string `json:"error"`
}
