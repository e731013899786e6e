package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/resend/resend-go/v2"
)

type EmailService struct {
	client        *resend.Client
	fromEmail     string
	isDev         bool
	appURL        string
	appName       string
	confirmExpiry time.Duration
}

func NewEmailService(apiKey, fromEmail, appURL, appName string, isDev bool, confirmExpiry time.Duration) *EmailService {
	var client *resend.Client
	if apiKey != "" && !isDev {
		client = resend.NewClient(apiKey)
	}

	return &EmailService{
		client:        client,
		fromEmail:     fromEmail,
		isDev:         isDev,
		appURL:        appURL,
		appName:       appName,
		confirmExpiry: confirmExpiry,
	}
}

// ConfirmURL is the link a new user follows to confirm their address.
func (s *EmailService) ConfirmURL(token string) string {
	return fmt.Sprintf("%s/auth/confirm/%s", s.appURL, token)
}

func (s *EmailService) SendConfirmationEmail(email, token string) error {
	confirmURL := s.ConfirmURL(token)
	subject, body := confirmEmailTemplate(confirmURL, s.appName, s.confirmExpiry)

	if s.isDev {
		slog.Info("email sent (dev mode)", "type", "confirm_signup", "to", email, "subject", subject, "url", confirmURL)
		return nil
	}

	if s.client == nil {
		return fmt.Errorf("email service not configured (missing RESEND_API_KEY)")
	}

	params := &resend.SendEmailRequest{
		From:    s.fromEmail,
		To:      []string{email},
		Subject: subject,
		Text:    body,
	}

	_, err := s.client.Emails.SendWithContext(context.Background(), params)
	if err == nil {
		slog.Info("email sent", "type", "confirm_signup", "to", email)
	}
	return err
}
