package callback

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		values url.Values
		want   Event
	}{
		{
			name:   "trailing slashes are stripped",
			values: url.Values{"paymentID": {"P1/"}, "status": {"success/"}},
			want:   Event{PaymentID: "P1", Status: StatusSuccess},
		},
		{
			name:   "status is lower-cased",
			values: url.Values{"paymentID": {"P1"}, "status": {"CANCEL"}, "reference": {" R1 "}},
			want:   Event{PaymentID: "P1", Reference: "R1", Status: StatusCancel},
		},
		{
			name:   "whitespace is trimmed before slashes",
			values: url.Values{"paymentID": {" P1/ "}, "status": {"\tsuccess/\n"}},
			want:   Event{PaymentID: "P1", Status: StatusSuccess},
		},
		{
			name:   "no discriminator",
			values: url.Values{"paymentID": {"P1"}},
			want:   Event{PaymentID: "P1"},
		},
		{
			name:   "unknown status is kept",
			values: url.Values{"paymentID": {"P1"}, "status": {"weird"}},
			want:   Event{PaymentID: "P1", Status: "weird"},
		},
		{
			name: "empty",
			want: Event{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Normalize(tt.values))
		})
	}

	require.False(t, Event{PaymentID: "P1"}.HasStatus())
	require.True(t, Event{Status: StatusFailure}.HasStatus())
}

func TestURLBuilder(t *testing.T) {
	b, err := NewURLBuilder("http://103.145.138.193:8069/")
	require.NoError(t, err)

	urls := b.Build()

	require.Equal(t, URLs{
		Callback:  "http://103.145.138.193:8069/payment/gateway/return",
		Success:   "http://103.145.138.193:8069/payment/gateway/return?status=success",
		Failure:   "http://103.145.138.193:8069/payment/gateway/return?status=failure",
		Cancelled: "http://103.145.138.193:8069/payment/gateway/return?status=cancel",
	}, urls)
	require.Equal(t, urls, b.Build())
}

func TestNewURLBuilder_Invalid(t *testing.T) {
	for _, base := range []string{"", "localhost:8069", "://broken", "/relative"} {
		_, err := NewURLBuilder(base)
		require.Error(t, err, base)
	}
}
