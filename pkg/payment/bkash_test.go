package payment

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	path    string
	headers http.Header
	body    map[string]string
}

func newGatewayServer(t *testing.T, status int, response string, got *recorded) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got != nil {
			got.path = r.URL.Path
			got.headers = r.Header.Clone()
			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, &got.body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func providerFor(baseURL string) *Provider {
	return &Provider{Code: "bkash", BaseURL: baseURL, AppKey: "app-key", Tokens: StaticToken("tok")}
}

var testURLs = CallbackURLs{
	Callback:  "http://203.0.113.7:8069/payment/gateway/return",
	Success:   "http://203.0.113.7:8069/payment/gateway/return?status=success",
	Failure:   "http://203.0.113.7:8069/payment/gateway/return?status=failure",
	Cancelled: "http://203.0.113.7:8069/payment/gateway/return?status=cancel",
}

func TestBkashClient_CreatePayment(t *testing.T) {
	var got recorded
	srv := newGatewayServer(t, http.StatusOK, `{"paymentID":"P1","bkashURL":"https://pay/x","statusCode":"0000"}`, &got)
	client := NewBkashClient(providerFor(srv.URL + "/"))

	res, err := client.CreatePayment(context.Background(), CreatePaymentRequest{
		Amount:         decimal.NewFromInt(100),
		PayerReference: "Customer_42",
		CallbackURLs:   testURLs,
	})

	require.NoError(t, err)
	require.Equal(t, "P1", res.PaymentID)
	require.Equal(t, "https://pay/x", res.RedirectURL)

	require.Equal(t, "/tokenized/checkout/create", got.path)
	require.Equal(t, "application/json", got.headers.Get("Content-Type"))
	require.Equal(t, "Bearer tok", got.headers.Get("Authorization"))
	require.Equal(t, "app-key", got.headers.Get("X-APP-Key"))
	require.Equal(t, map[string]string{
		"amount":               "100",
		"payerReference":       "Customer_42",
		"callbackURL":          testURLs.Callback,
		"successCallbackURL":   testURLs.Success,
		"failureCallbackURL":   testURLs.Failure,
		"cancelledCallbackURL": testURLs.Cancelled,
	}, got.body)
}

func TestBkashClient_CreatePaymentRedirectFallback(t *testing.T) {
	srv := newGatewayServer(t, http.StatusOK, `{"paymentID":"P1","redirect_url":"https://pay/y"}`, nil)

	res, err := NewBkashClient(providerFor(srv.URL)).CreatePayment(context.Background(), CreatePaymentRequest{Amount: decimal.NewFromInt(1)})

	require.NoError(t, err)
	require.Equal(t, "https://pay/y", res.RedirectURL)
}

func TestBkashClient_CreatePaymentProtocolErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		response string
		contains string
	}{
		{"missing payment id", http.StatusOK, `{"statusCode":"2001","statusMessage":"Invalid App Key"}`, "2001 Invalid App Key"},
		{"missing redirect", http.StatusOK, `{"paymentID":"P1"}`, "no bkashURL"},
		{"non-2xx", http.StatusUnauthorized, `{"message":"Unauthorized"}`, "http 401"},
		{"malformed json", http.StatusOK, `not json`, "malformed JSON"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newGatewayServer(t, tt.status, tt.response, nil)

			_, err := NewBkashClient(providerFor(srv.URL)).CreatePayment(context.Background(), CreatePaymentRequest{Amount: decimal.NewFromInt(1)})

			var protoErr *ProtocolError
			require.ErrorAs(t, err, &protoErr)
			require.Equal(t, "create", protoErr.Op)
			require.Contains(t, err.Error(), tt.contains)
			require.False(t, IsTimeout(err))
		})
	}
}

func TestBkashClient_ExecutePayment(t *testing.T) {
	var got recorded
	srv := newGatewayServer(t, http.StatusOK, `{"paymentID":"P1","transactionStatus":"Completed","statusCode":"0000","statusMessage":"Successful"}`, &got)

	res, err := NewBkashClient(providerFor(srv.URL)).ExecutePayment(context.Background(), "P1")

	require.NoError(t, err)
	require.Equal(t, TxStatusCompleted, res.TransactionStatus)
	require.Equal(t, "0000", res.StatusCode)
	require.JSONEq(t, `{"paymentID":"P1","transactionStatus":"Completed","statusCode":"0000","statusMessage":"Successful"}`, string(res.Raw))
	require.Equal(t, "/tokenized/checkout/execute", got.path)
	require.Equal(t, map[string]string{"paymentID": "P1"}, got.body)
}

func TestBkashClient_ExecutePaymentEmptyID(t *testing.T) {
	_, err := NewBkashClient(providerFor("http://unused")).ExecutePayment(context.Background(), "")

	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
}

func TestBkashClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	client := NewBkashClient(providerFor(srv.URL), WithTimeout(50*time.Millisecond))
	_, err := client.ExecutePayment(context.Background(), "P1")

	var unavailable *UnavailableError
	require.ErrorAs(t, err, &unavailable)
	require.True(t, unavailable.Timeout())
	require.True(t, IsTimeout(err))
}

func TestBkashClient_IgnoresCallerCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(30 * time.Millisecond)
		_, _ = io.WriteString(w, `{"paymentID":"P1","transactionStatus":"Completed"}`)
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := NewBkashClient(providerFor(srv.URL)).ExecutePayment(ctx, "P1")

	require.NoError(t, err)
	require.Equal(t, TxStatusCompleted, res.TransactionStatus)
}

func TestBkashClient_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewBkashClient(providerFor(url)).ExecutePayment(context.Background(), "P1")

	var unavailable *UnavailableError
	require.ErrorAs(t, err, &unavailable)
	require.False(t, unavailable.Timeout())
}

func TestBkashClient_ProviderNotConfigured(t *testing.T) {
	_, err := NewBkashClient(&Provider{Code: "bkash"}).ExecutePayment(context.Background(), "P1")

	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
	require.Contains(t, err.Error(), "not configured")
}

type failingTokens struct{}

func (failingTokens) Token(context.Context) (string, error) { return "", errors.New("grant refused") }

func TestBkashClient_TokenFailure(t *testing.T) {
	provider := providerFor("http://unused")
	provider.Tokens = failingTokens{}

	_, err := NewBkashClient(provider).ExecutePayment(context.Background(), "P1")

	var unavailable *UnavailableError
	require.ErrorAs(t, err, &unavailable)
	require.Contains(t, err.Error(), "grant refused")
}

func TestGrantTokenSource(t *testing.T) {
	var got recorded
	srv := newGatewayServer(t, http.StatusOK, `{"id_token":"fresh","token_type":"Bearer"}`, &got)

	src := &GrantTokenSource{BaseURL: srv.URL, AppKey: "k", AppSecret: "s", Username: "u", Password: "p"}
	token, err := src.Token(context.Background())

	require.NoError(t, err)
	require.Equal(t, "fresh", token)
	require.Equal(t, "/tokenized/checkout/token/grant", got.path)
	require.Equal(t, "u", got.headers.Get("username"))
	require.Equal(t, "p", got.headers.Get("password"))
	require.Equal(t, map[string]string{"app_key": "k", "app_secret": "s"}, got.body)
}

func TestGrantTokenSource_NoToken(t *testing.T) {
	srv := newGatewayServer(t, http.StatusOK, `{"statusCode":"2079","statusMessage":"Invalid username and password"}`, nil)

	_, err := (&GrantTokenSource{BaseURL: srv.URL}).Token(context.Background())

	require.ErrorContains(t, err, "2079")
}
