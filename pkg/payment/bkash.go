package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	createPath  = "/tokenized/checkout/create"
	executePath = "/tokenized/checkout/execute"
	grantPath   = "/tokenized/checkout/token/grant"

	maxResponseBody = 1 << 20
)

// BkashClient is the Gateway implementation for the bKash tokenized checkout API.
type BkashClient struct {
	provider *Provider
	http     *http.Client
	timeout  time.Duration
	logger   *zap.Logger
}

// Option customizes a BkashClient.
type Option func(*BkashClient)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(b *BkashClient) { b.http = c }
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(b *BkashClient) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithLogger attaches a logger for request/response diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(b *BkashClient) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBkashClient creates a client bound to provider.
func NewBkashClient(provider *Provider, opts ...Option) *BkashClient {
	c := &BkashClient{
		provider: provider,
		http:     &http.Client{},
		timeout:  DefaultTimeout,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type createPayload struct {
	Amount         string `json:"amount"`
	PayerReference string `json:"payerReference"`
	CallbackURLs
}

type executePayload struct {
	PaymentID string `json:"paymentID"`
}

// gatewayResponse is the union of the fields the gateway may return on create and execute.
type gatewayResponse struct {
	PaymentID         string `json:"paymentID"`
	BkashURL          string `json:"bkashURL"`
	RedirectURL       string `json:"redirect_url"`
	TransactionStatus string `json:"transactionStatus"`
	StatusCode        string `json:"statusCode"`
	StatusMessage     string `json:"statusMessage"`
	ErrorCode         string `json:"errorCode"`
	ErrorMessage      string `json:"errorMessage"`
}

func (r *gatewayResponse) gatewayError() string {
	switch {
	case r.ErrorCode != "" || r.ErrorMessage != "":
		return fmt.Sprintf("%s %s", r.ErrorCode, r.ErrorMessage)
	case r.StatusCode != "" && r.StatusCode != "0000":
		return fmt.Sprintf("%s %s", r.StatusCode, r.StatusMessage)
	}
	return ""
}

// CreatePayment calls POST {baseUrl}/tokenized/checkout/create.
func (c *BkashClient) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*CreatePaymentResult, error) {
	const op = "create"

	body := createPayload{
		Amount:         req.Amount.String(),
		PayerReference: req.PayerReference,
		CallbackURLs:   req.CallbackURLs,
	}

	var resp gatewayResponse
	raw, err := c.post(ctx, op, createPath, body, &resp)
	if err != nil {
		return nil, err
	}

	if resp.PaymentID == "" {
		detail := "response has no paymentID"
		if e := resp.gatewayError(); e != "" {
			detail = fmt.Sprintf("%s: %s", detail, strings.TrimSpace(e))
		}
		return nil, &ProtocolError{Op: op, Detail: detail, Body: raw}
	}

	redirect := resp.BkashURL
	if redirect == "" {
		redirect = resp.RedirectURL
	}
	if redirect == "" {
		return nil, &ProtocolError{Op: op, Detail: "response has no bkashURL or redirect_url", Body: raw}
	}

	return &CreatePaymentResult{
		PaymentID:   resp.PaymentID,
		RedirectURL: redirect,
		Raw:         raw,
	}, nil
}

// ExecutePayment calls POST {baseUrl}/tokenized/checkout/execute.
func (c *BkashClient) ExecutePayment(ctx context.Context, paymentID string) (*ExecutePaymentResult, error) {
	const op = "execute"

	if paymentID == "" {
		return nil, &ProtocolError{Op: op, Detail: "payment id is empty"}
	}

	var resp gatewayResponse
	raw, err := c.post(ctx, op, executePath, executePayload{PaymentID: paymentID}, &resp)
	if err != nil {
		return nil, err
	}

	return &ExecutePaymentResult{
		PaymentID:         resp.PaymentID,
		TransactionStatus: TransactionStatus(strings.ToLower(strings.TrimSpace(resp.TransactionStatus))),
		StatusCode:        resp.StatusCode,
		StatusMessage:     resp.StatusMessage,
		Raw:               raw,
	}, nil
}

// post sends one authenticated JSON request and decodes the JSON answer into out.
// The call is detached from ctx cancellation: only the client timeout ends it.
func (c *BkashClient) post(ctx context.Context, op, path string, payload, out any) ([]byte, error) {
	if !c.provider.Configured() {
		return nil, &ProtocolError{Op: op, Detail: "provider is not configured"}
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	token, err := c.provider.Tokens.Token(ctx)
	if err != nil {
		return nil, classify(op, fmt.Errorf("fetch token: %w", err))
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.provider.BaseURL, "/")+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-APP-Key", c.provider.AppKey)

	c.logger.Debug("gateway request", zap.String("op", op), zap.ByteString("payload", body))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classify(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, classify(op, err)
	}

	c.logger.Debug("gateway response",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode),
		zap.ByteString("body", raw),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return raw, &ProtocolError{Op: op, StatusCode: resp.StatusCode, Detail: http.StatusText(resp.StatusCode), Body: raw}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return raw, &ProtocolError{Op: op, StatusCode: resp.StatusCode, Detail: "malformed JSON: " + err.Error(), Body: raw}
	}

	return raw, nil
}

// classify turns a transport failure into an UnavailableError.
func classify(op string, err error) error {
	var protoErr *ProtocolError
	if errors.As(err, &protoErr) {
		return err
	}
	var netErr net.Error
	timeout := errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout())
	return &UnavailableError{Op: op, TimedOut: timeout, Err: err}
}

// GrantTokenSource obtains a fresh id_token from the grant endpoint on every call.
type GrantTokenSource struct {
	BaseURL   string
	AppKey    string
	AppSecret string
	Username  string
	Password  string
	HTTP      *http.Client
}

type grantResponse struct {
	IDToken       string `json:"id_token"`
	StatusCode    string `json:"statusCode"`
	StatusMessage string `json:"statusMessage"`
}

// Token implements TokenSource.
func (g *GrantTokenSource) Token(ctx context.Context) (string, error) {
	const op = "token grant"

	body, err := json.Marshal(map[string]string{
		"app_key":    g.AppKey,
		"app_secret": g.AppSecret,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(g.BaseURL, "/")+grantPath, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("username", g.Username)
	req.Header.Set("password", g.Password)

	client := g.HTTP
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &ProtocolError{Op: op, StatusCode: resp.StatusCode, Detail: http.StatusText(resp.StatusCode), Body: raw}
	}

	var out grantResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", &ProtocolError{Op: op, Detail: "malformed JSON: " + err.Error(), Body: raw}
	}
	if out.IDToken == "" {
		return "", &ProtocolError{Op: op, Detail: fmt.Sprintf("no id_token: %s %s", out.StatusCode, out.StatusMessage), Body: raw}
	}
	return out.IDToken, nil
}
