// Package logmail is a development notifier that writes messages to the log
// instead of delivering them.
package logmail

import (
	"context"
	"log/slog"
)

type Mailer struct {
	log *slog.Logger
}

func NewMailer(log *slog.Logger) *Mailer {
	if log == nil {
		log = slog.Default()
	}
	return &Mailer{log: log}
}

func (m *Mailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	m.log.InfoContext(ctx, "mail not delivered (log backend)", "to", to, "subject", subject, "body", htmlBody)
	return nil
}
