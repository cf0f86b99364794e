package services

import (
	"context"
	"errors"
	"fmt"
	"html"

	"github.com/resend/resend-go/v2"

	"github.com/linguapal/linguapal/internal/config"
	"github.com/linguapal/linguapal/internal/logging"
)

var ErrUnknownEmailProvider = errors.New("unknown email provider")

type EmailSender interface {
	Send(ctx context.Context, to, subject, html, text string) error
}

// EmailService delivers transactional mail. Delivery is best-effort for
// the flows that use it: callers log and continue on failure.
type EmailService struct {
	sender EmailSender
	from   string
}

func NewEmailService(cfg *config.EmailConfig) (*EmailService, error) {
	from := fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromAddress)

	switch cfg.Provider {
	case "resend":
		return &EmailService{
			sender: &resendSender{client: resend.NewClient(cfg.ResendAPIKey), from: from},
			from:   from,
		}, nil
	case "console":
		return &EmailService{sender: consoleSender{}, from: from}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEmailProvider, cfg.Provider)
	}
}

// SendWelcome greets a new user. Failures are reported to the caller,
// which is expected to log and swallow them.
func (s *EmailService) SendWelcome(ctx context.Context, to, username string) error {
	subject := "Welcome to LinguaPal"
	html := fmt.Sprintf(
		`<p>Hi %s,</p><p>Welcome to LinguaPal! Complete your profile to get matched with language partners.</p>`,
		templateEscape(username),
	)
	text := fmt.Sprintf("Hi %s,\n\nWelcome to LinguaPal! Complete your profile to get matched with language partners.\n", username)
	return s.sender.Send(ctx, to, subject, html, text)
}

func templateEscape(s string) string {
	return html.EscapeString(s)
}

type resendSender struct {
	client *resend.Client
	from   string
}

func (r *resendSender) Send(ctx context.Context, to, subject, html, text string) error {
	_, err := r.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    r.from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
		Text:    text,
	})
	if err != nil {
		return fmt.Errorf("sending email via resend: %w", err)
	}
	return nil
}

// consoleSender logs mail instead of delivering it. Used in development.
type consoleSender struct{}

func (consoleSender) Send(ctx context.Context, to, subject, html, text string) error {
	logging.Info("Email (console provider)", map[string]interface{}{
		"to":      to,
		"subject": subject,
		"body":    text,
	})
	return nil
}
