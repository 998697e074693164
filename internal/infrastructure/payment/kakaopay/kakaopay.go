// Package kakaopay is the KakaoPay online payment client (ready / approve).
package kakaopay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	dompay "github.com/Zhima-Mochi/travelshop/internal/domain/payment"
	"github.com/Zhima-Mochi/travelshop/internal/infrastructure/payment/pgclient"
	"github.com/Zhima-Mochi/travelshop/internal/observability"
	"github.com/shopspring/decimal"
)

const (
	Name           = "kakaopay"
	DefaultBaseURL = "https://open-api.kakaopay.com"
	// DefaultCID is KakaoPay's shared test merchant id.
	DefaultCID = "TC0ONETIME"

	pathReady   = "/online/v1/payment/ready"
	pathApprove = "/online/v1/payment/approve"
)

var kst = time.FixedZone("KST", 9*60*60)

type Config struct {
	SecretKey string
	CID       string
	BaseURL   string
}

type Client struct {
	cfg Config
	pg  *pgclient.Client
}

func New(cfg Config, hc *http.Client, tel observability.Observability) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.CID == "" {
		cfg.CID = DefaultCID
	}
	return &Client{cfg: cfg, pg: pgclient.New(Name, cfg.BaseURL, hc, tel)}
}

func (c *Client) Name() string { return Name }

// ProviderOrderID is the local order id; KakaoPay echoes it as partner_order_id.
func (c *Client) ProviderOrderID(entry *dompay.Entry) string { return entry.OrderID }

type readyRequest struct {
	CID            string `json:"cid"`
	PartnerOrderID string `json:"partner_order_id"`
	PartnerUserID  string `json:"partner_user_id"`
	ItemName       string `json:"item_name"`
	Quantity       int    `json:"quantity"`
	TotalAmount    int64  `json:"total_amount"`
	TaxFreeAmount  int64  `json:"tax_free_amount"`
	ApprovalURL    string `json:"approval_url"`
	CancelURL      string `json:"cancel_url"`
	FailURL        string `json:"fail_url"`
}

type readyResponse struct {
	TID                   string `json:"tid"`
	NextRedirectPCURL     string `json:"next_redirect_pc_url"`
	NextRedirectMobileURL string `json:"next_redirect_mobile_url"`
	NextRedirectAppURL    string `json:"next_redirect_app_url"`
	CreatedAt             string `json:"created_at"`
}

func (c *Client) Initiate(ctx context.Context, req dompay.InitiateRequest) (*dompay.Initiation, error) {
	if c.cfg.SecretKey == "" {
		return nil, pgclient.NotConfigured(Name)
	}
	qty := req.Quantity
	if qty <= 0 {
		qty = 1
	}

	var out readyResponse
	err := c.pg.PostJSON(ctx, "ready", pathReady, c.header(), readyRequest{
		CID:            c.cfg.CID,
		PartnerOrderID: req.ProviderOrderID,
		PartnerUserID:  req.UserID,
		ItemName:       req.ItemName,
		Quantity:       qty,
		TotalAmount:    req.Amount,
		ApprovalURL:    req.Callbacks.SuccessURL,
		CancelURL:      req.Callbacks.CancelURL,
		FailURL:        req.Callbacks.FailURL,
	}, &out)
	if err != nil {
		return nil, mapError(err)
	}
	if out.TID == "" {
		return nil, dompay.NewError(dompay.KindGateway, dompay.CodeGateway, "kakaopay ready returned no tid", nil)
	}

	return &dompay.Initiation{
		TransactionID: out.TID,
		RedirectURL:   out.NextRedirectPCURL,
		MobileURL:     out.NextRedirectMobileURL,
		AppURL:        out.NextRedirectAppURL,
		CreatedAt:     parseTime(out.CreatedAt),
	}, nil
}

type approveRequest struct {
	CID            string `json:"cid"`
	TID            string `json:"tid"`
	PartnerOrderID string `json:"partner_order_id"`
	PartnerUserID  string `json:"partner_user_id"`
	PGToken        string `json:"pg_token"`
}

type approveResponse struct {
	AID               string `json:"aid"`
	TID               string `json:"tid"`
	CID               string `json:"cid"`
	PartnerOrderID    string `json:"partner_order_id"`
	PartnerUserID     string `json:"partner_user_id"`
	PaymentMethodType string `json:"payment_method_type"`
	Amount            struct {
		Total   json.Number `json:"total"`
		TaxFree json.Number `json:"tax_free"`
		VAT     json.Number `json:"vat"`
	} `json:"amount"`
	ItemName   string `json:"item_name"`
	Quantity   int    `json:"quantity"`
	CreatedAt  string `json:"created_at"`
	ApprovedAt string `json:"approved_at"`
}

func (c *Client) Confirm(ctx context.Context, req dompay.ConfirmRequest) (*dompay.Approval, error) {
	if c.cfg.SecretKey == "" {
		return nil, pgclient.NotConfigured(Name)
	}
	if req.TransactionID == "" || req.Token == "" {
		return nil, dompay.NewError(dompay.KindVerificationFailed, dompay.CodeInvalidRequest, "tid and pg_token are required", nil)
	}

	var out approveResponse
	err := c.pg.PostJSON(ctx, "approve", pathApprove, c.header(), approveRequest{
		CID:            c.cfg.CID,
		TID:            req.TransactionID,
		PartnerOrderID: req.ProviderOrderID,
		PartnerUserID:  req.UserID,
		PGToken:        req.Token,
	}, &out)
	if err != nil {
		return nil, mapError(err)
	}

	amount, err := decimal.NewFromString(out.Amount.Total.String())
	if err != nil {
		return nil, dompay.NewError(dompay.KindGateway, dompay.CodeGateway, "kakaopay approve returned no amount", err)
	}
	return &dompay.Approval{
		TransactionID:   out.TID,
		ProviderOrderID: out.PartnerOrderID,
		Amount:          amount,
		Method:          methodName(out.PaymentMethodType),
		ApprovedAt:      parseTime(out.ApprovedAt),
		Raw: map[string]any{
			"aid":                 out.AID,
			"payment_method_type": out.PaymentMethodType,
		},
	}, nil
}

// ParseCallback reads paymentId/result from our own callback URL and the
// pg_token KakaoPay appends on approval.
func (c *Client) ParseCallback(query map[string][]string) (dompay.Callback, error) {
	get := func(k string) string {
		if vs := query[k]; len(vs) > 0 {
			return vs[0]
		}
		return ""
	}
	cb := dompay.Callback{
		PaymentID: get("paymentId"),
		Result:    get("result"),
		Token:     get("pg_token"),
	}
	if cb.PaymentID == "" {
		return cb, dompay.NewError(dompay.KindVerificationFailed, dompay.CodeEntryNotFound, "callback carries no payment id", nil)
	}
	if cb.Result == "" {
		cb.Result = dompay.CallbackSuccess
	}
	if cb.Result == dompay.CallbackSuccess && cb.Token == "" {
		return cb, dompay.NewError(dompay.KindVerificationFailed, dompay.CodeInvalidRequest, "callback carries no pg_token", nil)
	}
	return cb, nil
}

func (c *Client) header() http.Header {
	h := http.Header{}
	h.Set("Authorization", "SECRET_KEY "+c.cfg.SecretKey)
	return h
}

type errorBody struct {
	ErrorCode    int    `json:"error_code"`
	ErrorMessage string `json:"error_message"`
	Extras       struct {
		MethodResultCode    string `json:"method_result_code"`
		MethodResultMessage string `json:"method_result_message"`
	} `json:"extras"`
}

type mapping struct {
	kind dompay.Kind
	code string
	msg  string
}

// codeTable maps KakaoPay error_code values onto the common taxonomy.
var codeTable = map[int]mapping{
	-401: {dompay.KindGateway, dompay.CodeGateway, "kakaopay rejected the merchant credentials"},
	-702: {dompay.KindDeclined, dompay.CodeDuplicate, "payment already approved"},
	-703: {dompay.KindDeclined, dompay.CodeExpired, "payment request expired"},
	-708: {dompay.KindDeclined, dompay.CodeCancelled, "payer cancelled at kakaopay"},
	-710: {dompay.KindGateway, dompay.CodeInvalidRequest, "invalid tid"},
	-721: {dompay.KindGateway, dompay.CodeInvalidRequest, "invalid tid"},
	-722: {dompay.KindDeclined, dompay.CodeExpired, "payment not ready"},
	-780: {dompay.KindDeclined, dompay.CodeDeclined, "approval failed"},
	-781: {dompay.KindDeclined, dompay.CodeCardRejected, "payment method rejected"},
	-782: {dompay.KindDeclined, dompay.CodeInsufficientFunds, "insufficient balance"},
	-797: {dompay.KindDeclined, dompay.CodeLimitExceeded, "single payment limit exceeded"},
	-798: {dompay.KindDeclined, dompay.CodeLimitExceeded, "monthly payment limit exceeded"},
	-1:   {dompay.KindGateway, dompay.CodeProviderUnavailable, "kakaopay internal error"},
	-2:   {dompay.KindGateway, dompay.CodeInvalidRequest, "kakaopay rejected the request parameters"},
	-3:   {dompay.KindGateway, dompay.CodeProviderUnavailable, "kakaopay is under maintenance"},
}

func mapError(err error) error {
	var he *pgclient.HTTPError
	if !errors.As(err, &he) {
		return err
	}
	var body errorBody
	if jerr := json.Unmarshal(he.Body, &body); jerr != nil || body.ErrorCode == 0 {
		return pgclient.Fallback(he.Status, "", string(he.Body))
	}
	raw := strconv.Itoa(body.ErrorCode)
	m, ok := codeTable[body.ErrorCode]
	if !ok {
		return pgclient.Fallback(he.Status, raw, body.ErrorMessage)
	}
	pe := dompay.NewError(m.kind, m.code, m.msg, he).
		WithDetail("providerCode", raw).
		WithDetail("providerMessage", body.ErrorMessage)
	if body.Extras.MethodResultCode != "" {
		pe.WithDetail("methodResultCode", body.Extras.MethodResultCode)
	}
	return pe
}

func methodName(t string) string {
	switch t {
	case "CARD":
		return "card"
	case "MONEY":
		return "kakaomoney"
	default:
		return t
	}
}

// parseTime reads KakaoPay's local timestamps, which carry no zone.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	t, err := time.ParseInLocation("2006-01-02T15:04:05", s, kst)
	if err != nil {
		return time.Time{}
	}
	return t
}
