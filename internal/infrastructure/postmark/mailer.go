package postmark

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-otp-auth/internal/config"
	"github.com/mrz1836/postmark"
)

// Mailer sends mail through Postmark's transactional API.
type Mailer struct {
	client *postmark.Client
	from   string
	tag    string
}

// NewMailer requires both Postmark tokens and a sender address.
func NewMailer(cfg *config.Config) (*Mailer, error) {
	if cfg.PostmarkServerToken == "" || cfg.PostmarkAccountToken == "" {
		return nil, errors.New("postmark: POSTMARK_SERVER_TOKEN and POSTMARK_ACCOUNT_TOKEN are required")
	}
	if cfg.SMTPFrom == "" {
		return nil, errors.New("postmark: SMTP_FROM is required as sender address")
	}
	return &Mailer{
		client: postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken),
		from:   cfg.SMTPFrom,
		tag:    "verification-code",
	}, nil
}

func (m *Mailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	resp, err := m.client.SendEmail(ctx, postmark.Email{
		From:     m.from,
		To:       to,
		Subject:  subject,
		Tag:      m.tag,
		HTMLBody: htmlBody,
	})
	if err != nil {
		return fmt.Errorf("postmark send: %w", err)
	}
	if resp.ErrorCode > 0 {
		return fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message)
	}
	return nil
}
