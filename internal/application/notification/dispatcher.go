package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Zhima-Mochi/travelshop/internal/application"
	domorder "github.com/Zhima-Mochi/travelshop/internal/domain/order"
	"github.com/Zhima-Mochi/travelshop/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	notificationService = "notification-service"
	useCaseNotifyStatus = "notification.order_status"
	mailPeer            = "mail"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers one message. Implementations live in infrastructure/mail.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Dispatcher mails the customer when an order changes status. A failed send
// is logged and dropped: there is no retry and the status change stands.
type Dispatcher struct {
	mailer   Mailer
	shopName string
	in       application.Instruments

	sent observability.Counter // notifications_sent_total{status,outcome}
}

func NewDispatcher(mailer Mailer, shopName string, tel observability.Observability) *Dispatcher {
	in := application.NewInstruments(tel, notificationService)
	if shopName == "" {
		shopName = "트래블샵"
	}
	return &Dispatcher{
		mailer:   mailer,
		shopName: shopName,
		in:       in,
		sent:     in.Metrics().Counter(observability.MNotificationsSent),
	}
}

// OrderStatusChanged always returns nil; delivery problems end up in the
// use_case_done line and the notifications_sent_total counter.
func (d *Dispatcher) OrderStatusChanged(ctx context.Context, evt domorder.OrderStatusChangedEvent) error {
	var err error
	ctx, call := d.in.Begin(ctx, useCaseNotifyStatus, "NotifyOrderStatus",
		attribute.String("order.id", evt.OrderID),
		attribute.String("order.status", string(evt.To)),
	)
	call.Field("order_id", evt.OrderID)
	call.Field("order_status", string(evt.To))
	defer func() { call.End(err) }()

	outcome := "sent"
	defer func() {
		d.sent.Add(1, observability.L("status", string(evt.To)), observability.L("outcome", outcome))
	}()

	to := strings.TrimSpace(evt.Customer.Email)
	if to == "" {
		outcome = "skipped"
		call.Status = "NO_RECIPIENT"
		return nil
	}
	msg, ok := Compose(d.shopName, evt)
	if !ok {
		outcome = "skipped"
		call.Status = "NO_TEMPLATE"
		return nil
	}
	msg.To = to

	start := time.Now()
	if err = d.mailer.Send(ctx, msg); err != nil {
		outcome = "error"
		call.Fail("MAIL_SEND_FAILED")
		d.in.External(mailPeer, "send", "error", start)
		call.Logger().Error("order_status_mail_failed",
			observability.F("order_id", evt.OrderID),
			observability.F("order_status", string(evt.To)),
			observability.F("error", err.Error()),
		)
		return nil
	}
	d.in.External(mailPeer, "send", "success", start)
	return nil
}

// Compose picks subject and body by the new status. Statuses without
// customer facing news (e.g. pending) yield false.
func Compose(shop string, evt domorder.OrderStatusChangedEvent) (Message, bool) {
	name := evt.Customer.Name
	if name == "" {
		name = "고객"
	}
	amount := formatAmount(evt.Total, evt.Currency)

	var subject, lead string
	switch evt.To {
	case domorder.StatusConfirmed:
		subject = "주문이 확인되었습니다"
		lead = "주문하신 상품의 예약이 확인되었습니다. 결제를 완료해 주시면 예약이 확정됩니다."
	case domorder.StatusPaid:
		subject = "결제가 완료되었습니다"
		lead = fmt.Sprintf("%s 결제가 정상적으로 완료되었습니다.", amount)
	case domorder.StatusProcessing:
		subject = "예약을 진행하고 있습니다"
		lead = "현지 파트너와 예약을 진행 중입니다. 확정되면 다시 안내해 드리겠습니다."
	case domorder.StatusReady:
		subject = "여행 준비가 완료되었습니다"
		lead = "모든 예약이 확정되었습니다. 즐거운 여행 되세요."
	case domorder.StatusCompleted:
		subject = "여행이 완료되었습니다"
		lead = "이용해 주셔서 감사합니다. 후기를 남겨 주시면 큰 힘이 됩니다."
	case domorder.StatusCancelled:
		subject = "주문이 취소되었습니다"
		lead = "요청하신 주문이 취소되었습니다. 결제하신 금액은 결제 수단에 따라 환불됩니다."
	case domorder.StatusRefunded:
		subject = "환불이 완료되었습니다"
		lead = fmt.Sprintf("%s 환불 처리가 완료되었습니다.", amount)
	default:
		return Message{}, false
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s님, 안녕하세요.\n\n", name)
	b.WriteString(lead)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "주문번호: %s\n", evt.OrderNumber)
	fmt.Fprintf(&b, "결제금액: %s\n", amount)
	if evt.Note != "" {
		fmt.Fprintf(&b, "안내사항: %s\n", evt.Note)
	}
	fmt.Fprintf(&b, "\n%s 드림\n", shop)

	return Message{
		Subject: fmt.Sprintf("[%s] %s (주문번호 %s)", shop, subject, evt.OrderNumber),
		Body:    b.String(),
	}, true
}

// formatAmount renders 280000 KRW as "280,000원".
func formatAmount(amount int64, currency string) string {
	n := message.NewPrinter(language.Korean).Sprintf("%d", amount)
	if currency == "" || currency == domorder.DefaultCurrency {
		return n + "원"
	}
	return n + " " + currency
}
