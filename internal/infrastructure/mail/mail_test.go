package mail

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"mime"
	netmail "net/mail"
	"strings"
	"testing"
	"time"

	"github.com/Zhima-Mochi/travelshop/internal/application/notification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gomail "github.com/wneessen/go-mail"
)

func stubMailer(cfg SMTPConfig, err error) (*SMTPMailer, *[]*gomail.Msg) {
	var sent []*gomail.Msg
	m := NewSMTPMailer(cfg)
	m.now = func() time.Time { return time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC) }
	m.send = func(_ context.Context, msg *gomail.Msg) error {
		if err != nil {
			return err
		}
		sent = append(sent, msg)
		return nil
	}
	return m, &sent
}

func TestSMTPMailerBuildsMessage(t *testing.T) {
	m, sent := stubMailer(SMTPConfig{Host: "smtp.example.com", Port: 2525, From: "shop@example.com"}, nil)

	err := m.Send(context.Background(), notification.Message{To: "a@example.com", Subject: "결제 완료", Body: "안녕하세요\n감사합니다"})
	require.NoError(t, err)
	require.Len(t, *sent, 1)

	var raw bytes.Buffer
	_, err = (*sent)[0].WriteTo(&raw)
	require.NoError(t, err)
	parsed, err := netmail.ReadMessage(&raw)
	require.NoError(t, err)

	assert.Contains(t, parsed.Header.Get("From"), "shop@example.com")
	assert.Contains(t, parsed.Header.Get("To"), "a@example.com")
	subject, err := new(mime.WordDecoder).DecodeHeader(parsed.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, "결제 완료", subject)
	assert.Contains(t, strings.ToLower(parsed.Header.Get("Content-Type")), "charset=utf-8")
	assert.Equal(t, "base64", strings.ToLower(parsed.Header.Get("Content-Transfer-Encoding")))

	encoded, err := io.ReadAll(parsed.Body)
	require.NoError(t, err)
	body, err := base64.StdEncoding.DecodeString(strings.NewReplacer("\r", "", "\n", "").Replace(string(encoded)))
	require.NoError(t, err)
	assert.Contains(t, string(body), "안녕하세요")
	assert.Contains(t, string(body), "감사합니다")
}

func TestSMTPMailerWrapsSendError(t *testing.T) {
	cause := errors.New("421 busy")
	m, _ := stubMailer(SMTPConfig{Host: "relay", From: "shop@example.com"}, cause)
	err := m.Send(context.Background(), notification.Message{To: "a@example.com"})
	assert.ErrorIs(t, err, cause)
}

func TestSMTPMailerRejectsInvalidAddresses(t *testing.T) {
	m, sent := stubMailer(SMTPConfig{Host: "relay", From: "not an address"}, nil)
	require.Error(t, m.Send(context.Background(), notification.Message{To: "a@example.com"}))
	assert.Empty(t, *sent)
}

func TestSMTPMailerStopsOnCancelledContext(t *testing.T) {
	m, sent := stubMailer(SMTPConfig{Host: "relay", From: "shop@example.com"}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.Send(ctx, notification.Message{To: "a@example.com"}), context.Canceled)
	assert.Empty(t, *sent)
}

func TestSMTPMailerHonoursDeadlineWhenDialing(t *testing.T) {
	// 192.0.2.0/24 is reserved for documentation and never answers.
	m := NewSMTPMailer(SMTPConfig{Host: "192.0.2.1", Port: 2525, From: "shop@example.com", Timeout: time.Minute})
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	started := time.Now()
	err := m.Send(ctx, notification.Message{To: "a@example.com", Subject: "s", Body: "b"})
	require.Error(t, err)
	assert.Less(t, time.Since(started), 10*time.Second)
}

func TestMailersRejectEmptyRecipient(t *testing.T) {
	m, _ := stubMailer(SMTPConfig{Host: "relay", From: "shop@example.com"}, nil)
	assert.ErrorIs(t, m.Send(context.Background(), notification.Message{}), ErrNoRecipient)
	assert.ErrorIs(t, NewLogMailer(nil).Send(context.Background(), notification.Message{}), ErrNoRecipient)
}

func TestNewPicksImplementation(t *testing.T) {
	_, isSMTP := New(SMTPConfig{Host: "relay", From: "shop@example.com"}, nil).(*SMTPMailer)
	assert.True(t, isSMTP)
	_, isLog := New(SMTPConfig{Host: "relay"}, nil).(*LogMailer)
	assert.True(t, isLog)
}

func TestOptionsDefaults(t *testing.T) {
	assert.Len(t, SMTPConfig{Host: "relay"}.options(), 3)
	assert.Len(t, SMTPConfig{Host: "relay", Username: "u", Password: "p"}.options(), 6)
}
