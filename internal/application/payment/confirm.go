package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/travelshop/internal/application"
	domorder "github.com/Zhima-Mochi/travelshop/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/travelshop/internal/domain/outbox"
	dompay "github.com/Zhima-Mochi/travelshop/internal/domain/payment"
	"github.com/Zhima-Mochi/travelshop/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	paymentActor      = "payment"
	orderWriteRetries = 3
)

type ConfirmPaymentInput struct {
	Provider string
	// Query is the raw callback query string sent by the provider redirect.
	Query map[string][]string
}

type ConfirmPaymentResult struct {
	PaymentID     string
	OrderID       string
	OrderNumber   string
	TransactionID string
	Amount        int64
	Currency      string
	Method        string
	OrderStatus   domorder.Status
	// AlreadyProcessed is set when the entry was completed by an earlier callback.
	AlreadyProcessed bool
}

// ConfirmPaymentUseCase handles the provider redirect: it captures the
// payment at the provider, verifies the approval against the ledger and
// only then marks the order paid.
type ConfirmPaymentUseCase struct {
	providers Providers
	orders    domorder.Repository
	ledger    dompay.Ledger
	verifier  *Verifier
	publisher domoutbox.Publisher
	timeout   time.Duration
	rec       *recorder
	in        application.Instruments
}

func NewConfirmPaymentUseCase(
	providers Providers,
	orders domorder.Repository,
	ledger dompay.Ledger,
	verifier *Verifier,
	publisher domoutbox.Publisher,
	timeout time.Duration,
	tel observability.Observability,
) *ConfirmPaymentUseCase {
	in := application.NewInstruments(tel, paymentService)
	return &ConfirmPaymentUseCase{
		providers: providers,
		orders:    orders,
		ledger:    ledger,
		verifier:  verifier,
		publisher: publisher,
		timeout:   timeout,
		rec:       &recorder{ledger: ledger, orders: orders, publisher: publisher, in: in},
		in:        in,
	}
}

func (uc *ConfirmPaymentUseCase) Execute(ctx context.Context, cmd ConfirmPaymentInput) (_ *ConfirmPaymentResult, err error) {
	ctx, call := uc.in.Begin(ctx, useCasePayConfirm, "ConfirmPayment", attribute.String("payment.provider", cmd.Provider))
	call.Field("provider", cmd.Provider)
	defer func() { call.End(err) }()

	provider, ok := uc.providers.Get(cmd.Provider)
	if !ok {
		call.Fail("PROVIDER_UNKNOWN")
		return nil, application.Validation("unknown payment provider " + cmd.Provider)
	}
	cb, err := provider.ParseCallback(cmd.Query)
	if err != nil {
		perr := dompay.AsError(err)
		call.Fail(perr.Code)
		return nil, perr
	}
	call.Field("payment_id", cb.PaymentID)
	call.Field("result", cb.Result)
	call.Span().SetAttributes(attribute.String("payment.id", cb.PaymentID))

	entry, err := uc.ledger.Get(ctx, cb.PaymentID)
	if errors.Is(err, dompay.ErrNotFound) {
		call.Fail(dompay.CodeEntryNotFound)
		return nil, dompay.NewError(dompay.KindVerificationFailed, dompay.CodeEntryNotFound, "unknown payment id", err)
	}
	if err != nil {
		call.Fail("LEDGER_LOOKUP_FAILED")
		return nil, fmt.Errorf("payment: load entry %s: %w", cb.PaymentID, err)
	}
	if entry.Provider != provider.Name() {
		call.Fail(dompay.CodeProviderMismatch)
		return nil, dompay.NewError(dompay.KindVerificationFailed, dompay.CodeProviderMismatch,
			"callback provider does not own this payment", nil).WithDetail("provider", entry.Provider)
	}
	call.Field("order_id", entry.OrderID)

	if cb.Result == dompay.CallbackFail || cb.Result == dompay.CallbackCancel {
		perr := declinedByPayer(cb)
		call.Fail(perr.Code)
		if entry.Status == dompay.StatusReady {
			uc.rec.markFailed(ctx, call.Logger(), entry, perr.Code)
		}
		return nil, perr
	}

	switch entry.Status {
	case dompay.StatusCompleted:
		call.Status = "ALREADY_COMPLETED"
		res, err := uc.settle(ctx, call.Logger(), entry)
		if err != nil {
			call.Fail("ORDER_UPDATE_FAILED")
			return nil, err
		}
		return res, nil
	case dompay.StatusFailed:
		call.Fail(dompay.CodeEntryClosed)
		return nil, dompay.NewError(dompay.KindVerificationFailed, dompay.CodeEntryClosed, "payment attempt already failed", nil).
			WithDetail("failureCode", entry.FailureCode)
	}

	if cb.Amount != nil && !cb.Amount.Equal(decimalOf(entry.Amount)) {
		call.Fail(dompay.CodeAmountMismatch)
		call.Logger().Error("payment_callback_amount_mismatch",
			observability.F("payment_id", entry.ID),
			observability.F("callback_amount", cb.Amount.String()),
			observability.F("ledger_amount", entry.Amount),
		)
		uc.rec.markFailed(ctx, call.Logger(), entry, dompay.CodeAmountMismatch)
		return nil, dompay.NewError(dompay.KindVerificationFailed, dompay.CodeAmountMismatch, "callback amount differs from ledger", nil)
	}

	// The order is checked before the provider captures any money: a second
	// attempt on a paid order, or an order cancelled after initiation, fails
	// the entry here.
	o, err := uc.orders.Get(ctx, entry.OrderID)
	if err != nil && !errors.Is(err, domorder.ErrNotFound) {
		call.Fail("ORDER_LOOKUP_FAILED")
		return nil, fmt.Errorf("payment: load order %s: %w", entry.OrderID, err)
	}
	if perr := payable(o, entry); perr != nil {
		call.Fail(perr.Code)
		call.Logger().Warn("payment_order_not_payable",
			observability.F("payment_id", entry.ID),
			observability.F("order_id", entry.OrderID),
			observability.F("code", perr.Code),
		)
		uc.rec.markFailed(ctx, call.Logger(), entry, perr.Code)
		return nil, perr
	}

	txID := entry.TransactionID
	if txID == "" {
		txID = cb.TransactionID
	}
	pctx, cancel := uc.providerContext(ctx)
	approval, err := provider.Confirm(pctx, dompay.ConfirmRequest{
		PaymentID:       entry.ID,
		OrderID:         entry.OrderID,
		ProviderOrderID: entry.ProviderOrderID,
		UserID:          entry.UserID,
		TransactionID:   txID,
		Token:           cb.Token,
		Amount:          entry.Amount,
	})
	cancel()
	if err != nil {
		perr := dompay.AsError(err)
		call.Fail(perr.Code)
		// A network failure leaves the outcome unknown; the entry stays ready
		// so a repeated callback can still confirm it.
		if perr.Kind != dompay.KindNetwork {
			uc.rec.markFailed(ctx, call.Logger(), entry, perr.Code)
		}
		return nil, perr
	}

	v, err := uc.verifier.Verify(ctx, provider.Name(), entry.ID, approval)
	if err != nil {
		call.Fail("VERIFICATION_ERROR")
		return nil, err
	}
	if !v.Valid {
		call.Fail(v.Code)
		call.Logger().Error("payment_verification_failed",
			observability.F("payment_id", entry.ID),
			observability.F("order_id", entry.OrderID),
			observability.F("code", v.Code),
			observability.F("reason", v.Reason),
		)
		if v.Entry != nil {
			uc.rec.markFailed(ctx, call.Logger(), v.Entry, v.Code)
		}
		return nil, dompay.NewError(dompay.KindVerificationFailed, v.Code, v.Reason, nil)
	}

	entry = v.Entry
	if err := entry.Complete(approval.TransactionID, approval.ApprovedAt); err != nil {
		call.Fail("LEDGER_STATE_INVALID")
		return nil, fmt.Errorf("payment: complete %s: %w", entry.ID, err)
	}
	if err := uc.ledger.Update(ctx, entry); err != nil {
		if errors.Is(err, dompay.ErrConflict) {
			if cur, gerr := uc.ledger.Get(ctx, entry.ID); gerr == nil && cur.Status == dompay.StatusCompleted {
				call.Status = "ALREADY_COMPLETED"
				res, serr := uc.settle(ctx, call.Logger(), cur)
				if serr != nil {
					call.Fail("ORDER_UPDATE_FAILED")
					return nil, serr
				}
				return res, nil
			}
		}
		call.Fail("LEDGER_UPDATE_FAILED")
		return nil, fmt.Errorf("payment: record completion %s: %w", entry.ID, err)
	}
	call.Field("transaction_id", entry.TransactionID)

	o, err = uc.markOrderPaid(ctx, entry, approval)
	if err != nil {
		call.Fail("ORDER_UPDATE_FAILED")
		call.Logger().Error("payment_captured_order_not_updated",
			observability.F("payment_id", entry.ID),
			observability.F("order_id", entry.OrderID),
			observability.F("error", err.Error()),
		)
		return nil, err
	}

	_ = uc.in.Publish(ctx, uc.publisher, dompay.NewPaymentCompletedEvent(entry))
	call.Span().AddEvent("payment.completed", trace.WithAttributes(attribute.String("order.id", o.ID)))

	return &ConfirmPaymentResult{
		PaymentID:     entry.ID,
		OrderID:       o.ID,
		OrderNumber:   o.Number,
		TransactionID: entry.TransactionID,
		Amount:        entry.Amount,
		Currency:      entry.Currency,
		Method:        o.Payment.Method,
		OrderStatus:   o.Status,
	}, nil
}

// markOrderPaid moves the order to paid, reloading on version conflicts. It
// publishes the status change once the write succeeded.
func (uc *ConfirmPaymentUseCase) markOrderPaid(ctx context.Context, entry *dompay.Entry, approval *dompay.Approval) (*domorder.Order, error) {
	actor := application.System(paymentActor).Label()
	approvedAt := approval.ApprovedAt.UTC()

	var lastErr error
	for attempt := 0; attempt < orderWriteRetries; attempt++ {
		o, err := uc.orders.Get(ctx, entry.OrderID)
		if err != nil {
			return nil, fmt.Errorf("payment: load order %s: %w", entry.OrderID, err)
		}
		if paidBy(o, entry) {
			return o, nil
		}
		from := o.Status
		if err := o.MarkPaid(domorder.Payment{
			Method:         approval.Method,
			Provider:       entry.Provider,
			PaymentID:      entry.ID,
			TransactionID:  entry.TransactionID,
			VerifiedAmount: entry.Amount,
			ApprovedAt:     &approvedAt,
		}, actor); err != nil {
			return nil, fmt.Errorf("payment: order %s: %w", o.ID, err)
		}
		err = uc.orders.Update(ctx, o)
		if err == nil {
			_ = uc.in.Publish(ctx, uc.publisher, domorder.NewOrderStatusChangedEvent(o, from, actor, "payment verified"))
			return o, nil
		}
		if !errors.Is(err, domorder.ErrConflict) {
			return nil, fmt.Errorf("payment: update order %s: %w", o.ID, err)
		}
		lastErr = err
	}
	return nil, fmt.Errorf("payment: update order %s: %w", entry.OrderID, lastErr)
}

// settle answers a callback for an entry an earlier callback completed. When
// that callback captured the payment but failed to write the order, the
// order is marked paid now.
func (uc *ConfirmPaymentUseCase) settle(ctx context.Context, logger observability.Logger, entry *dompay.Entry) (*ConfirmPaymentResult, error) {
	o, err := uc.orders.Get(ctx, entry.OrderID)
	if err != nil && !errors.Is(err, domorder.ErrNotFound) {
		return nil, fmt.Errorf("payment: load order %s: %w", entry.OrderID, err)
	}
	if o != nil && !paidBy(o, entry) {
		approval := &dompay.Approval{TransactionID: entry.TransactionID, ApprovedAt: time.Now()}
		if entry.ApprovedAt != nil {
			approval.ApprovedAt = *entry.ApprovedAt
		}
		if _, err := uc.markOrderPaid(ctx, entry, approval); err != nil {
			logger.Error("payment_captured_order_not_updated",
				observability.F("payment_id", entry.ID),
				observability.F("order_id", entry.OrderID),
				observability.F("error", err.Error()),
			)
			return nil, err
		}
		logger.Info("payment_order_settled",
			observability.F("payment_id", entry.ID),
			observability.F("order_id", entry.OrderID),
		)
		_ = uc.in.Publish(ctx, uc.publisher, dompay.NewPaymentCompletedEvent(entry))
	}
	return uc.priorResult(ctx, entry), nil
}

func paidBy(o *domorder.Order, entry *dompay.Entry) bool {
	return o.Payment.PaymentID == entry.ID && o.Payment.Status == domorder.PaymentStatusCompleted
}

// payable rejects an entry whose order can no longer take this payment.
func payable(o *domorder.Order, entry *dompay.Entry) *dompay.Error {
	if o == nil {
		return dompay.NewError(dompay.KindVerificationFailed, dompay.CodeOrderNotPayable, "order no longer exists", nil)
	}
	if o.Payment.Status == domorder.PaymentStatusCompleted && o.Payment.PaymentID != entry.ID {
		return dompay.NewError(dompay.KindVerificationFailed, dompay.CodeOrderAlreadyPaid, "order was paid by another attempt", nil).
			WithDetail("paymentId", o.Payment.PaymentID)
	}
	if !o.CanPay() {
		return dompay.NewError(dompay.KindVerificationFailed, dompay.CodeOrderNotPayable, "order cannot be paid in its current status", nil).
			WithDetail("orderStatus", string(o.Status))
	}
	return nil
}

func (uc *ConfirmPaymentUseCase) priorResult(ctx context.Context, entry *dompay.Entry) *ConfirmPaymentResult {
	res := &ConfirmPaymentResult{
		PaymentID:        entry.ID,
		OrderID:          entry.OrderID,
		TransactionID:    entry.TransactionID,
		Amount:           entry.Amount,
		Currency:         entry.Currency,
		AlreadyProcessed: true,
	}
	if o, err := uc.orders.Get(ctx, entry.OrderID); err == nil {
		res.OrderNumber = o.Number
		res.OrderStatus = o.Status
		res.Method = o.Payment.Method
	}
	return res
}

func (uc *ConfirmPaymentUseCase) providerContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if uc.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, uc.timeout)
}

func declinedByPayer(cb dompay.Callback) *dompay.Error {
	code, msg := dompay.CodeDeclined, "payer did not complete the payment"
	if cb.Result == dompay.CallbackCancel {
		code, msg = dompay.CodeCancelled, "payer cancelled the payment"
	}
	perr := dompay.NewError(dompay.KindDeclined, code, msg, nil)
	if cb.ErrorCode != "" {
		perr.WithDetail("providerCode", cb.ErrorCode)
	}
	if cb.ErrorMsg != "" {
		perr.WithDetail("providerMessage", cb.ErrorMsg)
	}
	return perr
}
