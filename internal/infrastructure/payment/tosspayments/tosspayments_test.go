package tosspayments

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	dompay "github.com/Zhima-Mochi/travelshop/internal/domain/payment"
	"github.com/Zhima-Mochi/travelshop/internal/observability"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{SecretKey: "test_sk_123", BaseURL: srv.URL}, srv.Client(), observability.Nop())
}

func TestInitiateCreatesCheckout(t *testing.T) {
	var got createRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, pathCreate, r.URL.Path)
		want := "Basic " + base64.StdEncoding.EncodeToString([]byte("test_sk_123:"))
		assert.Equal(t, want, r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"paymentKey": "pk_1", "orderId": "pay_1", "status": "READY",
			"requestedAt": "2026-10-14T10:00:00+09:00", "checkout": {"url": "https://pay.toss.im/checkout/pk_1"}}`))
	})

	init, err := c.Initiate(context.Background(), dompay.InitiateRequest{
		PaymentID:       "pay_1",
		ProviderOrderID: "pay_1",
		ItemName:        "Busan night tour",
		Amount:          150000,
		Callbacks:       dompay.Callbacks{SuccessURL: "https://shop/ok", FailURL: "https://shop/fail"},
	})
	require.NoError(t, err)
	assert.Equal(t, "pk_1", init.TransactionID)
	assert.Equal(t, "https://pay.toss.im/checkout/pk_1", init.RedirectURL)
	assert.False(t, init.CreatedAt.IsZero())

	assert.Equal(t, "CARD", got.Method)
	assert.Equal(t, "pay_1", got.OrderID)
	assert.Equal(t, int64(150000), got.Amount)
	assert.Equal(t, "https://shop/fail", got.FailURL)
}

func TestConfirm(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, pathConfirm, r.URL.Path)
		var req confirmRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "pk_1", req.PaymentKey)
		assert.Equal(t, "pay_1", req.OrderID)
		assert.Equal(t, int64(150000), req.Amount)
		_, _ = w.Write([]byte(`{"paymentKey": "pk_1", "orderId": "pay_1", "status": "DONE", "method": "카드",
			"totalAmount": 150000, "approvedAt": "2026-10-14T10:03:00+09:00"}`))
	})

	ap, err := c.Confirm(context.Background(), dompay.ConfirmRequest{Token: "pk_1", ProviderOrderID: "pay_1", Amount: 150000})
	require.NoError(t, err)
	assert.Equal(t, "pay_1", ap.ProviderOrderID)
	assert.True(t, ap.Amount.Equal(decimal.NewFromInt(150000)))
	assert.Equal(t, "카드", ap.Method)
	assert.False(t, ap.ApprovedAt.IsZero())
}

func TestConfirmNotDoneHasNoApprovalTime(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"paymentKey": "pk_1", "orderId": "pay_1", "status": "WAITING_FOR_DEPOSIT",
			"totalAmount": 150000, "approvedAt": "2026-10-14T10:03:00+09:00"}`))
	})
	ap, err := c.Confirm(context.Background(), dompay.ConfirmRequest{Token: "pk_1", ProviderOrderID: "pay_1", Amount: 150000})
	require.NoError(t, err)
	assert.True(t, ap.ApprovedAt.IsZero())
}

func TestErrorCodesAreMapped(t *testing.T) {
	tests := []struct {
		code string
		kind dompay.Kind
		want string
	}{
		{"REJECT_CARD_PAYMENT", dompay.KindDeclined, dompay.CodeCardRejected},
		{"ALREADY_PROCESSED_PAYMENT", dompay.KindDeclined, dompay.CodeDuplicate},
		{"EXCEED_MAX_DAILY_PAYMENT_COUNT", dompay.KindDeclined, dompay.CodeLimitExceeded},
		{"UNAUTHORIZED_KEY", dompay.KindGateway, dompay.CodeGateway},
		{"PROVIDER_ERROR", dompay.KindGateway, dompay.CodeProviderUnavailable},
		{"SOMETHING_NEW", dompay.KindUnknown, dompay.CodeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_ = json.NewEncoder(w).Encode(errorBody{Code: tt.code, Message: "raw provider text"})
			})
			_, err := c.Confirm(context.Background(), dompay.ConfirmRequest{Token: "pk", ProviderOrderID: "pay_1", Amount: 1})
			pe := dompay.AsError(err)
			assert.Equal(t, tt.kind, pe.Kind)
			assert.Equal(t, tt.want, pe.Code)
			assert.Equal(t, tt.code, pe.Details["providerCode"])
		})
	}
}

func TestServerErrorWithoutBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	_, err := c.Initiate(context.Background(), dompay.InitiateRequest{ProviderOrderID: "pay_1", Amount: 1})
	pe := dompay.AsError(err)
	assert.Equal(t, dompay.KindGateway, pe.Kind)
	assert.Equal(t, dompay.CodeProviderUnavailable, pe.Code)
}

func TestParseCallback(t *testing.T) {
	c := New(Config{SecretKey: "k"}, nil, nil)

	cb, err := c.ParseCallback(map[string][]string{
		"paymentId": {"pay_1"}, "result": {"success"},
		"paymentKey": {"pk_1"}, "orderId": {"pay_1"}, "amount": {"280000"},
	})
	require.NoError(t, err)
	assert.Equal(t, "pk_1", cb.Token)
	require.NotNil(t, cb.Amount)
	assert.True(t, cb.Amount.Equal(decimal.NewFromInt(280000)))

	cb, err = c.ParseCallback(map[string][]string{
		"orderId": {"pay_2"}, "code": {"PAY_PROCESS_CANCELED"}, "message": {"사용자에 의해 결제가 취소되었습니다."},
	})
	require.NoError(t, err)
	assert.Equal(t, "pay_2", cb.PaymentID)
	assert.Equal(t, dompay.CallbackCancel, cb.Result)

	_, err = c.ParseCallback(map[string][]string{"paymentId": {"pay_1"}, "paymentKey": {"pk"}, "amount": {"abc"}})
	assert.True(t, dompay.IsKind(err, dompay.KindVerificationFailed))
}

func TestMissingCredentialsFailLazily(t *testing.T) {
	_, err := New(Config{}, nil, nil).Confirm(context.Background(), dompay.ConfirmRequest{Token: "pk"})
	assert.Equal(t, dompay.CodeNotConfigured, dompay.AsError(err).Code)
}
