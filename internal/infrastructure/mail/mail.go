package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Zhima-Mochi/travelshop/internal/application/notification"
	"github.com/Zhima-Mochi/travelshop/internal/observability"
	"github.com/Zhima-Mochi/travelshop/internal/observability/logctx"

	gomail "github.com/wneessen/go-mail"
)

var ErrNoRecipient = errors.New("mail: no recipient")

const (
	defaultPort    = 587
	defaultTimeout = 15 * time.Second
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// Timeout bounds the dial and every SMTP command. It stays below the
	// event bus handler timeout.
	Timeout time.Duration
}

func (c SMTPConfig) Enabled() bool { return c.Host != "" && c.From != "" }

func (c SMTPConfig) options() []gomail.Option {
	port, timeout := c.Port, c.Timeout
	if port == 0 {
		port = defaultPort
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	opts := []gomail.Option{
		gomail.WithPort(port),
		gomail.WithTimeout(timeout),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
	}
	if c.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(c.Username),
			gomail.WithPassword(c.Password),
		)
	}
	return opts
}

type sendFunc func(ctx context.Context, msg *gomail.Msg) error

// SMTPMailer sends UTF-8 plain text mail through one relay.
type SMTPMailer struct {
	cfg  SMTPConfig
	send sendFunc
	now  func() time.Time
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	m := &SMTPMailer{cfg: cfg, now: time.Now}
	m.send = m.dialAndSend
	return m
}

func (m *SMTPMailer) dialAndSend(ctx context.Context, msg *gomail.Msg) error {
	client, err := gomail.NewClient(m.cfg.Host, m.cfg.options()...)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}

func (m *SMTPMailer) Send(ctx context.Context, msg notification.Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	out, err := m.build(msg)
	if err != nil {
		return err
	}
	if err := m.send(ctx, out); err != nil {
		return fmt.Errorf("mail: send via %s: %w", m.cfg.Host, err)
	}
	return nil
}

func (m *SMTPMailer) build(msg notification.Message) (*gomail.Msg, error) {
	out := gomail.NewMsg(gomail.WithCharset(gomail.CharsetUTF8), gomail.WithEncoding(gomail.EncodingB64))
	if err := out.From(m.cfg.From); err != nil {
		return nil, fmt.Errorf("mail: sender %q: %w", m.cfg.From, err)
	}
	if err := out.To(msg.To); err != nil {
		return nil, fmt.Errorf("mail: recipient %q: %w", msg.To, err)
	}
	out.Subject(msg.Subject)
	out.SetDateWithValue(m.now())
	out.SetBodyString(gomail.TypeTextPlain, msg.Body)
	return out, nil
}

// LogMailer writes the message to the log instead of sending it. It is used
// when no SMTP relay is configured.
type LogMailer struct {
	log observability.Logger
}

func NewLogMailer(logger observability.Logger) *LogMailer {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &LogMailer{log: logger.With(observability.F("component", "mail"))}
}

func (m *LogMailer) Send(ctx context.Context, msg notification.Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return ErrNoRecipient
	}
	logctx.FromOr(ctx, m.log).Info("mail_logged",
		observability.F("to", msg.To),
		observability.F("subject", msg.Subject),
		observability.F("body_bytes", len(msg.Body)),
	)
	return nil
}

// New picks the SMTP mailer when cfg is complete, the log mailer otherwise.
func New(cfg SMTPConfig, logger observability.Logger) notification.Mailer {
	if cfg.Enabled() {
		return NewSMTPMailer(cfg)
	}
	return NewLogMailer(logger)
}
