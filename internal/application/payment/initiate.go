package payment

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Zhima-Mochi/travelshop/internal/application"
	domorder "github.com/Zhima-Mochi/travelshop/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/travelshop/internal/domain/outbox"
	dompay "github.com/Zhima-Mochi/travelshop/internal/domain/payment"
	"github.com/Zhima-Mochi/travelshop/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	paymentService     = "payment-service"
	useCasePayInitiate = "payment.initiate"
	useCasePayConfirm  = "payment.confirm"
	useCasePayVerify   = "payment.verify"
)

// Ledger entry metadata keys.
const (
	metaOrderNumber  = "orderNumber"
	metaDisplayName  = "displayName"
	metaCustomerName = "customerName"
)

type InitiatePaymentInput struct {
	Actor    application.Actor
	Provider string
	OrderID  string
	// BaseURL is the public origin the provider redirects the payer back to.
	BaseURL string
}

type InitiatePaymentResult struct {
	PaymentID     string
	TransactionID string
	RedirectURL   string
	MobileURL     string
	AppURL        string
	Amount        int64
	Currency      string
}

// InitiatePaymentUseCase opens a ledger entry for an order and asks the
// provider for a checkout. The entry exists before the provider is called.
type InitiatePaymentUseCase struct {
	providers Providers
	orders    domorder.Repository
	ledger    dompay.Ledger
	ids       PaymentIDGenerator
	timeout   time.Duration
	rec       *recorder
	in        application.Instruments
}

func NewInitiatePaymentUseCase(
	providers Providers,
	orders domorder.Repository,
	ledger dompay.Ledger,
	ids PaymentIDGenerator,
	publisher domoutbox.Publisher,
	timeout time.Duration,
	tel observability.Observability,
) *InitiatePaymentUseCase {
	in := application.NewInstruments(tel, paymentService)
	return &InitiatePaymentUseCase{
		providers: providers,
		orders:    orders,
		ledger:    ledger,
		ids:       ids,
		timeout:   timeout,
		rec:       &recorder{ledger: ledger, orders: orders, publisher: publisher, in: in},
		in:        in,
	}
}

func (uc *InitiatePaymentUseCase) Execute(ctx context.Context, cmd InitiatePaymentInput) (_ *InitiatePaymentResult, err error) {
	ctx, call := uc.in.Begin(ctx, useCasePayInitiate, "InitiatePayment",
		attribute.String("payment.provider", cmd.Provider),
		attribute.String("order.id", cmd.OrderID),
	)
	call.Field("provider", cmd.Provider)
	call.Field("order_id", cmd.OrderID)
	defer func() { call.End(err) }()

	if !cmd.Actor.Authenticated() {
		call.Fail("UNAUTHENTICATED")
		return nil, application.ErrUnauthenticated
	}
	provider, ok := uc.providers.Get(cmd.Provider)
	if !ok {
		call.Fail("PROVIDER_UNKNOWN")
		return nil, application.Validation("unknown payment provider " + cmd.Provider)
	}
	base, verr := normalizeBaseURL(cmd.BaseURL)
	if verr != nil {
		call.Fail("BASE_URL_INVALID")
		return nil, verr
	}
	if cmd.OrderID == "" {
		call.Fail("ORDER_ID_REQUIRED")
		return nil, application.Validation("order id is required")
	}

	o, err := uc.orders.Get(ctx, cmd.OrderID)
	if err != nil {
		call.Fail("ORDER_LOOKUP_FAILED")
		return nil, fmt.Errorf("payment: load order %s: %w", cmd.OrderID, err)
	}
	if !cmd.Actor.IsAdmin() && !o.OwnedBy(cmd.Actor.ID) {
		call.Fail("FORBIDDEN")
		return nil, application.Permission("order belongs to another customer")
	}
	if !o.CanPay() {
		call.Fail("STATE_INVALID")
		return nil, fmt.Errorf("%w: order in %s cannot be paid", domorder.ErrInvalidTransition, o.Status)
	}

	name, qty := itemSummary(o)
	entry := dompay.NewEntry(uc.ids.NewPaymentID(), o.ID, o.Customer.UserID, provider.Name(), o.Total, o.Currency,
		map[string]string{
			metaOrderNumber:  o.Number,
			metaDisplayName:  name,
			metaCustomerName: o.Customer.Name,
		})
	entry.Callbacks = callbackURLs(base, provider.Name(), entry.ID)
	entry.ProviderOrderID = provider.ProviderOrderID(entry)
	call.Field("payment_id", entry.ID)
	call.Span().SetAttributes(attribute.String("payment.id", entry.ID))

	if err := uc.ledger.Insert(ctx, entry); err != nil {
		call.Fail("LEDGER_INSERT_FAILED")
		return nil, fmt.Errorf("payment: record entry: %w", err)
	}

	pctx, cancel := uc.providerContext(ctx)
	init, err := provider.Initiate(pctx, dompay.InitiateRequest{
		PaymentID:       entry.ID,
		OrderID:         o.ID,
		ProviderOrderID: entry.ProviderOrderID,
		UserID:          entry.UserID,
		ItemName:        name,
		Quantity:        qty,
		Amount:          entry.Amount,
		Currency:        entry.Currency,
		Callbacks:       entry.Callbacks,
	})
	cancel()
	if err != nil {
		perr := dompay.AsError(err)
		call.Fail(perr.Code)
		uc.rec.markFailed(ctx, call.Logger(), entry, perr.Code)
		return nil, perr
	}

	entry.TransactionID = init.TransactionID
	if err := uc.ledger.Update(ctx, entry); err != nil {
		call.Fail("LEDGER_UPDATE_FAILED")
		return nil, fmt.Errorf("payment: record transaction %s: %w", init.TransactionID, err)
	}

	o.MarkPaymentReady(provider.Name(), entry.ID, init.TransactionID)
	if err := uc.orders.Update(ctx, o); err != nil {
		// The ledger entry is authoritative; the order mirror catches up on confirm.
		call.Logger().Warn("order_payment_status_update_failed",
			observability.F("order_id", o.ID),
			observability.F("payment_id", entry.ID),
			observability.F("error", err.Error()),
		)
	}

	call.Field("transaction_id", init.TransactionID)
	return &InitiatePaymentResult{
		PaymentID:     entry.ID,
		TransactionID: init.TransactionID,
		RedirectURL:   init.RedirectURL,
		MobileURL:     init.MobileURL,
		AppURL:        init.AppURL,
		Amount:        entry.Amount,
		Currency:      entry.Currency,
	}, nil
}

func (uc *InitiatePaymentUseCase) providerContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if uc.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, uc.timeout)
}

var errBaseURL = errors.New("base url must be an absolute http(s) url")

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if raw == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", application.Validation(errBaseURL.Error())
	}
	return strings.TrimRight(u.Scheme+"://"+u.Host+u.Path, "/"), nil
}

func callbackURLs(base, provider, paymentID string) dompay.Callbacks {
	build := func(result string) string {
		q := url.Values{}
		q.Set("paymentId", paymentID)
		q.Set("result", result)
		return base + "/api/payments/" + url.PathEscape(provider) + "?" + q.Encode()
	}
	return dompay.Callbacks{
		SuccessURL: build(dompay.CallbackSuccess),
		FailURL:    build(dompay.CallbackFail),
		CancelURL:  build(dompay.CallbackCancel),
	}
}

// itemSummary names the checkout after its first item ("A 외 2건") and
// counts the units across all items.
func itemSummary(o *domorder.Order) (string, int) {
	qty := 0
	for _, it := range o.Items {
		qty += it.Units()
	}
	if len(o.Items) == 0 {
		return o.Number, qty
	}
	name := o.Items[0].Title
	if name == "" {
		name = o.Items[0].ProductID
	}
	if n := len(o.Items) - 1; n > 0 {
		name = fmt.Sprintf("%s 외 %d건", name, n)
	}
	return name, qty
}
