package app

import (
	"github.com/charlesng35/authflow/internal/services"
	"github.com/charlesng35/authflow/pkg/mail"
)

// SMTPSettings converts EmailConfig to the mail package representation.
func (c EmailConfig) SMTPSettings() mail.SMTPSettings {
	return mail.SMTPSettings{
		Enabled:  c.SMTP.Enabled,
		Host:     c.SMTP.Host,
		Port:     c.SMTP.Port,
		Username: c.SMTP.Username,
		Password: c.SMTP.Password,
		From:     c.SMTP.From,
		UseTLS:   c.SMTP.UseTLS,
		Timeout:  c.SMTP.Timeout,
	}
}

// NotifierOptions derives the email notifier options.
func (c EmailConfig) NotifierOptions() []services.NotifierOption {
	return []services.NotifierOption{
		services.WithNotifierAppName(c.AppName),
		services.WithNotifierSender(c.SMTP.From),
		services.WithNotifierTimeout(c.SendTimeout),
	}
}
