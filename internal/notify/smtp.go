package notify

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/jhillyerd/enmime"
)

// SendMailFunc matches smtp.SendMail
type SendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTP sends notifications through an SMTP relay
type SMTP struct {
	addr     string
	auth     smtp.Auth
	sendMail SendMailFunc
}

// NewSMTP creates an SMTP notifier. Auth is skipped when username is empty.
func NewSMTP(host string, port int, username, password string) *SMTP {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTP{
		addr:     net.JoinHostPort(host, strconv.Itoa(port)),
		auth:     auth,
		sendMail: smtp.SendMail,
	}
}

// NewSMTPWithSender creates an SMTP notifier with a custom send function for testing
func NewSMTPWithSender(addr string, sendMail SendMailFunc) *SMTP {
	return &SMTP{addr: addr, sendMail: sendMail}
}

// Send builds a multipart/alternative message and hands it to the relay.
// net/smtp has no context support; ctx is only checked before dialing.
func (s *SMTP) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := buildMIME(msg)
	if err != nil {
		return err
	}

	if err := s.sendMail(s.addr, s.auth, msg.From, msg.To, raw); err != nil {
		return fmt.Errorf("sending smtp email: %w", err)
	}

	slog.Info("Email notification sent", "to", msg.To, "relay", s.addr)
	return nil
}

func buildMIME(msg Message) ([]byte, error) {
	text, err := PlainText(msg.HTML)
	if err != nil {
		return nil, err
	}

	builder := enmime.Builder().
		From("", msg.From).
		Subject(msg.Subject).
		Date(time.Now()).
		HTML([]byte(msg.HTML)).
		Text([]byte(text))
	for _, to := range msg.To {
		builder = builder.To("", to)
	}

	part, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("building mime message: %w", err)
	}

	var buf bytes.Buffer
	if err := part.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encoding mime message: %w", err)
	}
	return buf.Bytes(), nil
}
