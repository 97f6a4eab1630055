package notify

import (
	"cactus/backend/models"
	"context"
	"errors"
	"fmt"
	"log"
	"net/smtp"
	"strings"
)

// Message is one outbound summary or reminder.
type Message struct {
	UserID  string
	To      string
	Kind    models.NotificationKind
	Subject string
	Body    string
}

type Channel interface {
	Send(ctx context.Context, msg Message) error
}

// LogChannel "delivers" by writing the message to the logger. It is the
// default when no mail server is configured.
type LogChannel struct {
	Logger *log.Logger
}

func (c LogChannel) Send(_ context.Context, msg Message) error {
	c.Logger.Printf("notification %s to %s: %s", msg.Kind, msg.UserID, msg.Subject)
	return nil
}

var ErrNoRecipient = errors.New("notify: no recipient address")

type SMTPChannel struct {
	Addr string
	Auth smtp.Auth
	From string
}

func NewSMTPChannel(host, port, user, password, from string) *SMTPChannel {
	var auth smtp.Auth
	if user != "" {
		auth = smtp.PlainAuth("", user, password, host)
	}
	return &SMTPChannel{Addr: host + ":" + port, Auth: auth, From: from}
}

func (c *SMTPChannel) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", c.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(msg.Body)

	if err := smtp.SendMail(c.Addr, c.Auth, c.From, []string{msg.To}, []byte(b.String())); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
