// Package email delivers stocktake results over SMTP.
package email

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	gomail "gopkg.in/gomail.v2"

	"github.com/garyjia/stocktake/internal/application/port"
)

// Config holds SMTP settings
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// Enabled reports whether enough is configured to attempt delivery
func (c Config) Enabled() bool {
	return c.Host != "" && c.From != ""
}

// sendFunc hands built messages to a transport
type sendFunc func(msgs ...*gomail.Message) error

// Sender sends results emails through an SMTP server
type Sender struct {
	from    string
	timeout time.Duration
	send    sendFunc
	logger  *zap.Logger
}

// NewSender creates an SMTP sender. Port 465 uses implicit TLS; any other
// port upgrades with STARTTLS when the server offers it.
func NewSender(cfg Config, logger *zap.Logger) *Sender {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	s := newSender(cfg.From, d.DialAndSend, logger)
	s.timeout = cfg.Timeout
	return s
}

func newSender(from string, send sendFunc, logger *zap.Logger) *Sender {
	return &Sender{
		from:   from,
		send:   send,
		logger: logger,
	}
}

// Send builds and delivers msg. Every failure is returned as *DeliveryError.
func (s *Sender) Send(ctx context.Context, msg *port.Message) error {
	if err := ctx.Err(); err != nil {
		return &DeliveryError{Recipient: msg.To, Err: err}
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	m := buildMessage(s.from, msg)

	s.logger.Info("Sending email",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("attachments", len(msg.Attachments)),
	)

	done := make(chan error, 1)
	go func() { done <- s.send(m) }()

	select {
	case err := <-done:
		if err != nil {
			s.logger.Error("Failed to send email", zap.String("to", msg.To), zap.Error(err))
			return &DeliveryError{Recipient: msg.To, Err: err}
		}
	case <-ctx.Done():
		s.logger.Error("Email send abandoned", zap.String("to", msg.To), zap.Error(ctx.Err()))
		return &DeliveryError{Recipient: msg.To, Err: ctx.Err()}
	}

	s.logger.Info("Email sent", zap.String("to", msg.To))
	return nil
}

func buildMessage(from string, msg *port.Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	for _, att := range msg.Attachments {
		data := att.Data
		m.Attach(att.FileName,
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			}),
			gomail.SetHeader(map[string][]string{
				"Content-Type": {fmt.Sprintf("%s; name=%q", att.ContentType, att.FileName)},
			}),
		)
	}
	return m
}

// Disabled is the mailer used when SMTP is not configured. It reports every
// send as a delivery failure so callers surface a warning.
type Disabled struct{}

// Send always fails with ErrNotConfigured
func (Disabled) Send(ctx context.Context, msg *port.Message) error {
	return &DeliveryError{Recipient: msg.To, Err: ErrNotConfigured}
}

var (
	_ port.Mailer = (*Sender)(nil)
	_ port.Mailer = Disabled{}
)
