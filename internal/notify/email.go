package notify

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"

	"refurbtracker/internal/domain"
)

// SMTPConfig carries the connection settings for the email channel.
type SMTPConfig struct {
	Host     string
	Port     int
	From     string
	Password string
}

// EmailProvider delivers notifications over SMTP to users that registered an
// email address.
type EmailProvider struct {
	cfg SMTPConfig
	log logrus.FieldLogger
}

// NewEmailProvider creates the email channel from SMTP settings.
func NewEmailProvider(cfg SMTPConfig, logger logrus.FieldLogger) *EmailProvider {
	return &EmailProvider{
		cfg: cfg,
		log: logger.WithField("component", "email_provider"),
	}
}

// Name implements Provider.
func (p *EmailProvider) Name() string { return "email" }

// Send implements Provider.
func (p *EmailProvider) Send(_ context.Context, user domain.User, message string) error {
	if user.Email == "" {
		return fmt.Errorf("user %d has no email address configured", user.ID)
	}

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Refurb Tracker <%s>", p.cfg.From)
	mail.To = []string{user.Email}
	mail.Subject = "New refurbished products"
	mail.Text = []byte(message)

	addr := fmt.Sprintf("%s:%d", p.cfg.Host, p.cfg.Port)
	err := mail.Send(addr, smtp.PlainAuth("", p.cfg.From, p.cfg.Password, p.cfg.Host))
	if err != nil {
		p.log.WithError(err).WithField("user_id", user.ID).Error("Failed to send email")
		return fmt.Errorf("email send to user %d: %w", user.ID, err)
	}
	return nil
}
