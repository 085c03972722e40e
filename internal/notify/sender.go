// Package notify renders contact-form submissions into HTML e-mail and hands
// them to a pluggable Transport (SMTP over implicit TLS, Amazon SES, or a log
// sink for development). Delivery is attempted exactly once; callers decide
// what a failure means.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/tbourn/site-backend/internal/domain"
)

// ErrTransport wraps every failure reported by a Transport.
var ErrTransport = errors.New("mail transport failure")

// SubjectPrefix precedes the requested service name in every subject line.
const SubjectPrefix = "Yeni Teklif Talebi - "

// Transport delivers one rendered message to its recipient.
type Transport interface {
	Deliver(ctx context.Context, msg Message) error
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, msg Message) error

// Deliver calls f.
func (f TransportFunc) Deliver(ctx context.Context, msg Message) error { return f(ctx, msg) }

// Sender turns submissions into messages for a single fixed recipient.
type Sender struct {
	from      string
	recipient string
	transport Transport
	now       func() time.Time
}

var validate = validator.New()

// NewSender validates the configured addresses and returns a Sender that
// delivers through t.
func NewSender(from, recipient string, t Transport) (*Sender, error) {
	if t == nil {
		return nil, errors.New("notify: nil transport")
	}
	if err := validate.Var(from, "required,email"); err != nil {
		return nil, fmt.Errorf("notify: invalid sender address %q: %w", from, err)
	}
	if err := validate.Var(recipient, "required,email"); err != nil {
		return nil, fmt.Errorf("notify: invalid recipient address %q: %w", recipient, err)
	}
	return &Sender{from: from, recipient: recipient, transport: t, now: time.Now}, nil
}

// Recipient returns the configured destination address.
func (s *Sender) Recipient() string { return s.recipient }

// Send renders sub and delivers it once. Transport failures are returned
// wrapped in ErrTransport.
func (s *Sender) Send(ctx context.Context, sub domain.ContactSubmission) error {
	msg, err := s.Compose(sub)
	if err != nil {
		return err
	}
	if err := s.transport.Deliver(ctx, msg); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return nil
}

// Compose builds the message for sub without delivering it.
func (s *Sender) Compose(sub domain.ContactSubmission) (Message, error) {
	body, err := RenderHTML(sub)
	if err != nil {
		return Message{}, err
	}
	return Message{
		ID:      messageID(s.from),
		From:    s.from,
		To:      s.recipient,
		ReplyTo: strings.TrimSpace(sub.Email),
		Subject: SubjectPrefix + sub.Service,
		HTML:    body,
		Date:    s.now().UTC(),
	}, nil
}

func messageID(from string) string {
	host := "localhost"
	if i := strings.LastIndexByte(from, '@'); i >= 0 && i < len(from)-1 {
		host = from[i+1:]
	}
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), host)
}

var bodyTmpl = template.Must(template.New("contact").Parse(`<html>
  <head>
    <style>
      body { font-family: Arial, sans-serif; }
      .container { max-width: 600px; margin: 0 auto; padding: 20px; }
      .header { background-color: #1e40af; color: white; padding: 20px; text-align: center; }
      .content { background-color: #f3f4f6; padding: 20px; }
      .field { margin-bottom: 15px; }
      .field-label { font-weight: bold; color: #1e40af; }
      .field-value { margin-top: 5px; }
    </style>
  </head>
  <body>
    <div class="container">
      <div class="header"><h2>⚡ Yeni Teklif Talebi</h2></div>
      <div class="content">
        <div class="field"><div class="field-label">👤 Ad Soyad:</div><div class="field-value">{{.Name}}</div></div>
        <div class="field"><div class="field-label">📞 Telefon:</div><div class="field-value">{{.Phone}}</div></div>
        <div class="field"><div class="field-label">📧 Email:</div><div class="field-value">{{.Email}}</div></div>
        <div class="field"><div class="field-label">🔧 Hizmet:</div><div class="field-value">{{.Service}}</div></div>
        <div class="field"><div class="field-label">💬 Mesaj:</div><div class="field-value">{{.Message}}</div></div>
      </div>
    </div>
  </body>
</html>
`))

// RenderHTML renders the labeled notification body. Submitted values are
// HTML-escaped.
func RenderHTML(sub domain.ContactSubmission) (string, error) {
	var buf bytes.Buffer
	if err := bodyTmpl.Execute(&buf, sub); err != nil {
		return "", fmt.Errorf("notify: render body: %w", err)
	}
	return buf.String(), nil
}
