package services

import (
	"context"
	"fmt"
	"html"

	"gopkg.in/gomail.v2"

	"teamhub/internal/models"
)

type mailer interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailService mails notifications to users who opted in.
type EmailService struct {
	dialer  mailer
	from    string
	baseURL string
}

func NewEmailService(smtpHost string, smtpPort int, smtpUser, smtpPassword, fromEmail, baseURL string) *EmailService {
	dialer := gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPassword)
	return &EmailService{
		dialer:  dialer,
		from:    fromEmail,
		baseURL: baseURL,
	}
}

func (s *EmailService) Name() string { return "email" }

func (s *EmailService) Deliver(_ context.Context, to *models.User, n *models.Notification) error {
	if !to.NotifyEmail || to.Email == "" {
		return nil
	}
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to.Email)
	m.SetHeader("Subject", n.Title)
	m.SetBody("text/html", s.body(to, n))

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send notification email: %w", err)
	}
	return nil
}

func (s *EmailService) body(to *models.User, n *models.Notification) string {
	link := ""
	if n.ActionURL != "" {
		link = fmt.Sprintf(`<p><a href="%s%s">Open in TeamHub</a></p>`, s.baseURL, n.ActionURL)
	}
	return fmt.Sprintf(`
		<h3>%s</h3>
		<p>Hi %s,</p>
		<p>%s</p>
		%s
		<p>The TeamHub Team</p>
	`, html.EscapeString(n.Title), html.EscapeString(to.Name), html.EscapeString(n.Message), link)
}
