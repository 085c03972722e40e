package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/tbourn/site-backend/internal/domain"
)

// Notifier delivers one notification per submission.
type Notifier interface {
	Send(ctx context.Context, sub domain.ContactSubmission) error
}

var contactNotifications = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "contact_notifications_total",
		Help: "Contact-form notifications by outcome (sent|failed).",
	},
	[]string{"outcome"},
)

func init() {
	prometheus.MustRegister(contactNotifications)
}

var validate = validator.New()

// ContactService validates submissions and forwards them to the operator.
type ContactService struct {
	Sender Notifier
}

// NewContactService constructs a ContactService.
func NewContactService(n Notifier) *ContactService {
	return &ContactService{Sender: n}
}

// Prepare trims every field and checks that none is blank and that Email is
// a valid address.
func (s *ContactService) Prepare(sub domain.ContactSubmission) (domain.ContactSubmission, error) {
	out := domain.ContactSubmission{
		Name:    strings.TrimSpace(sub.Name),
		Phone:   strings.TrimSpace(sub.Phone),
		Email:   strings.TrimSpace(sub.Email),
		Service: strings.TrimSpace(sub.Service),
		Message: strings.TrimSpace(sub.Message),
	}
	fields := []struct{ name, value string }{
		{"name", out.Name}, {"phone", out.Phone}, {"email", out.Email},
		{"service", out.Service}, {"message", out.Message},
	}
	for _, f := range fields {
		if f.value == "" {
			return out, fmt.Errorf("%w: %s must not be blank", ErrInvalidSubmission, f.name)
		}
	}
	if err := validate.Var(out.Email, "email"); err != nil {
		return out, fmt.Errorf("%w: email is not a valid address", ErrInvalidSubmission)
	}
	return out, nil
}

// Notify sends the notification once. Failures are logged and counted, never
// returned: the visitor has already been told the request was received.
func (s *ContactService) Notify(ctx context.Context, sub domain.ContactSubmission) bool {
	lg := zerolog.Ctx(ctx)
	start := time.Now()

	if err := s.Sender.Send(ctx, sub); err != nil {
		contactNotifications.WithLabelValues("failed").Inc()
		lg.Error().
			Err(err).
			Str("service", sub.Service).
			Dur("latency", time.Since(start)).
			Msg("contact notification failed")
		return false
	}
	contactNotifications.WithLabelValues("sent").Inc()
	lg.Info().
		Str("service", sub.Service).
		Dur("latency", time.Since(start)).
		Msg("contact notification sent")
	return true
}
