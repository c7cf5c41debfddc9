// Package mailer delivers the export to the configured recipient over
// SMTP.
package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/wneessen/go-mail"
)

// ErrDelivery is returned on transport or auth failure. No retry is
// attempted; the next scheduled run is an independent attempt.
var ErrDelivery = errors.New("mail delivery failed")

// Notifier sends the report attachment or a plain notice.
type Notifier interface {
	// SendReport transmits an email carrying the payload attached
	// under filename.
	SendReport(ctx context.Context, filename string, payload []byte, rowCount int) error

	// SendNotice transmits a plain notification email.
	SendNotice(ctx context.Context, subject, body string) error
}

// Config holds SMTP transport settings.
type Config struct {
	Server    string
	Port      int
	Username  string
	Password  string
	Recipient string
}

// SMTPNotifier implements Notifier over STARTTLS SMTP.
type SMTPNotifier struct {
	cfg Config
	log *slog.Logger
}

// New creates an SMTP notifier.
func New(cfg Config) *SMTPNotifier {
	return &SMTPNotifier{
		cfg: cfg,
		log: slog.With("component", "mailer"),
	}
}

func (n *SMTPNotifier) client() (*mail.Client, error) {
	return mail.NewClient(n.cfg.Server,
		mail.WithPort(n.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(n.cfg.Username),
		mail.WithPassword(n.cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
}

func (n *SMTPNotifier) message(subject, body string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(n.cfg.Username); err != nil {
		return nil, fmt.Errorf("set sender %s: %w", n.cfg.Username, err)
	}
	if err := msg.To(n.cfg.Recipient); err != nil {
		return nil, fmt.Errorf("set recipient %s: %w", n.cfg.Recipient, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)
	return msg, nil
}

// SendReport sends the attachment-bearing report email.
func (n *SMTPNotifier) SendReport(ctx context.Context, filename string, payload []byte, rowCount int) error {
	subject := fmt.Sprintf("Sales export: %d new rows", rowCount)
	body := "The attached file contains the sales rows recorded since the last export."

	msg, err := n.message(subject, body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	if err := msg.AttachReader(filename, bytes.NewReader(payload)); err != nil {
		return fmt.Errorf("%w: attach %s: %v", ErrDelivery, filename, err)
	}

	return n.send(ctx, msg)
}

// SendNotice sends a plain notification email.
func (n *SMTPNotifier) SendNotice(ctx context.Context, subject, body string) error {
	msg, err := n.message(subject, body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	return n.send(ctx, msg)
}

func (n *SMTPNotifier) send(ctx context.Context, msg *mail.Msg) error {
	c, err := n.client()
	if err != nil {
		return fmt.Errorf("%w: client: %v", ErrDelivery, err)
	}
	if err := c.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}

	n.log.Debug("mail accepted by relay", "server", n.cfg.Server, "recipient", n.cfg.Recipient)
	return nil
}
