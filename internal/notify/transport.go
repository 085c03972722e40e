package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tbourn/site-backend/internal/config"
)

// NewTransport builds the Transport selected by cfg.Transport.
func NewTransport(ctx context.Context, cfg config.MailConfig, log zerolog.Logger) (Transport, error) {
	switch cfg.Transport {
	case config.TransportSMTP:
		return &SMTPTransport{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.From,
			Password: cfg.Password,
			Timeout:  cfg.Timeout,
		}, nil
	case config.TransportSES:
		return NewSESTransport(ctx, cfg.SESRegion)
	case config.TransportLog:
		return LogTransport{Logger: log}, nil
	default:
		return nil, fmt.Errorf("notify: unknown transport %q", cfg.Transport)
	}
}
