// Package tosspayments is the Toss Payments client: a server created
// checkout followed by the confirm call on the success redirect.
package tosspayments

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	dompay "github.com/Zhima-Mochi/travelshop/internal/domain/payment"
	"github.com/Zhima-Mochi/travelshop/internal/infrastructure/payment/pgclient"
	"github.com/Zhima-Mochi/travelshop/internal/observability"
	"github.com/shopspring/decimal"
)

const (
	Name           = "tosspayments"
	DefaultBaseURL = "https://api.tosspayments.com"

	pathCreate  = "/v1/payments"
	pathConfirm = "/v1/payments/confirm"

	statusDone = "DONE"
)

type Config struct {
	SecretKey string
	BaseURL   string
	// Method is the checkout method requested on create; CARD when empty.
	Method string
}

type Client struct {
	cfg Config
	pg  *pgclient.Client
}

func New(cfg Config, hc *http.Client, tel observability.Observability) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Method == "" {
		cfg.Method = "CARD"
	}
	return &Client{cfg: cfg, pg: pgclient.New(Name, cfg.BaseURL, hc, tel)}
}

func (c *Client) Name() string { return Name }

// ProviderOrderID is the local payment id. Toss requires a fresh orderId per
// attempt, so the payment id (not the order id) plays that role.
func (c *Client) ProviderOrderID(entry *dompay.Entry) string { return entry.ID }

type createRequest struct {
	Method     string `json:"method"`
	Amount     int64  `json:"amount"`
	OrderID    string `json:"orderId"`
	OrderName  string `json:"orderName"`
	SuccessURL string `json:"successUrl"`
	FailURL    string `json:"failUrl"`
}

type payment struct {
	PaymentKey  string      `json:"paymentKey"`
	OrderID     string      `json:"orderId"`
	OrderName   string      `json:"orderName"`
	Status      string      `json:"status"`
	Method      string      `json:"method"`
	TotalAmount json.Number `json:"totalAmount"`
	RequestedAt string      `json:"requestedAt"`
	ApprovedAt  string      `json:"approvedAt"`
	Checkout    struct {
		URL string `json:"url"`
	} `json:"checkout"`
}

func (c *Client) Initiate(ctx context.Context, req dompay.InitiateRequest) (*dompay.Initiation, error) {
	if c.cfg.SecretKey == "" {
		return nil, pgclient.NotConfigured(Name)
	}

	var out payment
	err := c.pg.PostJSON(ctx, "create", pathCreate, c.header(), createRequest{
		Method:     c.cfg.Method,
		Amount:     req.Amount,
		OrderID:    req.ProviderOrderID,
		OrderName:  req.ItemName,
		SuccessURL: req.Callbacks.SuccessURL,
		FailURL:    req.Callbacks.FailURL,
	}, &out)
	if err != nil {
		return nil, mapError(err)
	}
	if out.Checkout.URL == "" {
		return nil, dompay.NewError(dompay.KindGateway, dompay.CodeGateway, "toss create returned no checkout url", nil)
	}

	return &dompay.Initiation{
		TransactionID: out.PaymentKey,
		RedirectURL:   out.Checkout.URL,
		MobileURL:     out.Checkout.URL,
		CreatedAt:     parseTime(out.RequestedAt),
	}, nil
}

type confirmRequest struct {
	PaymentKey string `json:"paymentKey"`
	OrderID    string `json:"orderId"`
	Amount     int64  `json:"amount"`
}

func (c *Client) Confirm(ctx context.Context, req dompay.ConfirmRequest) (*dompay.Approval, error) {
	if c.cfg.SecretKey == "" {
		return nil, pgclient.NotConfigured(Name)
	}
	key := req.Token
	if key == "" {
		key = req.TransactionID
	}
	if key == "" {
		return nil, dompay.NewError(dompay.KindVerificationFailed, dompay.CodeInvalidRequest, "paymentKey is required", nil)
	}

	var out payment
	err := c.pg.PostJSON(ctx, "confirm", pathConfirm, c.header(), confirmRequest{
		PaymentKey: key,
		OrderID:    req.ProviderOrderID,
		Amount:     req.Amount,
	}, &out)
	if err != nil {
		return nil, mapError(err)
	}

	amount, err := decimal.NewFromString(out.TotalAmount.String())
	if err != nil {
		return nil, dompay.NewError(dompay.KindGateway, dompay.CodeGateway, "toss confirm returned no amount", err)
	}
	approvedAt := parseTime(out.ApprovedAt)
	if out.Status != statusDone {
		// Only DONE is a captured payment; anything else must not verify.
		approvedAt = time.Time{}
	}
	return &dompay.Approval{
		TransactionID:   out.PaymentKey,
		ProviderOrderID: out.OrderID,
		Amount:          amount,
		Method:          out.Method,
		ApprovedAt:      approvedAt,
		Raw:             map[string]any{"status": out.Status},
	}, nil
}

// ParseCallback reads our paymentId/result plus what Toss appends: the
// paymentKey, orderId and amount on success, code and message on failure.
func (c *Client) ParseCallback(query map[string][]string) (dompay.Callback, error) {
	get := func(k string) string {
		if vs := query[k]; len(vs) > 0 {
			return vs[0]
		}
		return ""
	}
	cb := dompay.Callback{
		PaymentID:     get("paymentId"),
		Result:        get("result"),
		Token:         get("paymentKey"),
		TransactionID: get("paymentKey"),
		ErrorCode:     get("code"),
		ErrorMsg:      get("message"),
	}
	if cb.PaymentID == "" {
		cb.PaymentID = get("orderId")
	}
	if cb.PaymentID == "" {
		return cb, dompay.NewError(dompay.KindVerificationFailed, dompay.CodeEntryNotFound, "callback carries no payment id", nil)
	}
	if cb.Result == "" {
		cb.Result = dompay.CallbackSuccess
		if cb.ErrorCode != "" {
			cb.Result = dompay.CallbackFail
		}
	}
	if cb.ErrorCode == "PAY_PROCESS_CANCELED" {
		cb.Result = dompay.CallbackCancel
	}
	if raw := get("amount"); raw != "" {
		amt, err := decimal.NewFromString(raw)
		if err != nil {
			return cb, dompay.NewError(dompay.KindVerificationFailed, dompay.CodeAmountMismatch, "callback amount is not a number", err)
		}
		cb.Amount = &amt
	}
	if cb.Result == dompay.CallbackSuccess && cb.Token == "" {
		return cb, dompay.NewError(dompay.KindVerificationFailed, dompay.CodeInvalidRequest, "callback carries no paymentKey", nil)
	}
	return cb, nil
}

func (c *Client) header() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(c.cfg.SecretKey+":")))
	return h
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type mapping struct {
	kind dompay.Kind
	code string
	msg  string
}

// codeTable maps Toss error codes onto the common taxonomy.
var codeTable = map[string]mapping{
	"ALREADY_PROCESSED_PAYMENT":                 {dompay.KindDeclined, dompay.CodeDuplicate, "payment already processed"},
	"DUPLICATED_ORDER_ID":                       {dompay.KindDeclined, dompay.CodeDuplicate, "order id already used"},
	"PAY_PROCESS_CANCELED":                      {dompay.KindDeclined, dompay.CodeCancelled, "payer cancelled"},
	"PAY_PROCESS_ABORTED":                       {dompay.KindDeclined, dompay.CodeDeclined, "payment aborted"},
	"REJECT_CARD_PAYMENT":                       {dompay.KindDeclined, dompay.CodeCardRejected, "card payment rejected"},
	"REJECT_CARD_COMPANY":                       {dompay.KindDeclined, dompay.CodeCardRejected, "card issuer rejected"},
	"INVALID_CARD_NUMBER":                       {dompay.KindDeclined, dompay.CodeCardRejected, "invalid card"},
	"INVALID_STOPPED_CARD":                      {dompay.KindDeclined, dompay.CodeCardRejected, "card suspended"},
	"INVALID_CARD_EXPIRATION":                   {dompay.KindDeclined, dompay.CodeCardRejected, "card expired"},
	"REJECT_ACCOUNT_PAYMENT":                    {dompay.KindDeclined, dompay.CodeInsufficientFunds, "insufficient balance"},
	"EXCEED_MAX_DAILY_PAYMENT_COUNT":            {dompay.KindDeclined, dompay.CodeLimitExceeded, "daily payment count exceeded"},
	"EXCEED_MAX_PAYMENT_AMOUNT":                 {dompay.KindDeclined, dompay.CodeLimitExceeded, "payment amount limit exceeded"},
	"EXCEED_MAX_AMOUNT":                         {dompay.KindDeclined, dompay.CodeLimitExceeded, "amount limit exceeded"},
	"NOT_FOUND_PAYMENT":                         {dompay.KindDeclined, dompay.CodeExpired, "payment not found at toss"},
	"NOT_FOUND_PAYMENT_SESSION":                 {dompay.KindDeclined, dompay.CodeExpired, "payment session expired"},
	"INVALID_REQUEST":                           {dompay.KindGateway, dompay.CodeInvalidRequest, "toss rejected the request"},
	"UNAUTHORIZED_KEY":                          {dompay.KindGateway, dompay.CodeGateway, "toss rejected the secret key"},
	"INVALID_API_KEY":                           {dompay.KindGateway, dompay.CodeGateway, "toss rejected the secret key"},
	"PROVIDER_ERROR":                            {dompay.KindGateway, dompay.CodeProviderUnavailable, "card network error"},
	"FAILED_INTERNAL_SYSTEM_PROCESSING":         {dompay.KindGateway, dompay.CodeProviderUnavailable, "toss internal error"},
	"FAILED_PAYMENT_INTERNAL_SYSTEM_PROCESSING": {dompay.KindGateway, dompay.CodeProviderUnavailable, "toss internal error"},
}

func mapError(err error) error {
	var he *pgclient.HTTPError
	if !errors.As(err, &he) {
		return err
	}
	var body errorBody
	if jerr := json.Unmarshal(he.Body, &body); jerr != nil || body.Code == "" {
		return pgclient.Fallback(he.Status, "", string(he.Body))
	}
	m, ok := codeTable[body.Code]
	if !ok {
		return pgclient.Fallback(he.Status, body.Code, body.Message)
	}
	return dompay.NewError(m.kind, m.code, m.msg, he).
		WithDetail("providerCode", body.Code).
		WithDetail("providerMessage", body.Message)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
