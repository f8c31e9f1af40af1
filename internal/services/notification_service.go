package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/authflow/pkg/logger"
	"github.com/charlesng35/authflow/pkg/mail"
	"github.com/charlesng35/authflow/pkg/metrics"
)

const (
	defaultNotificationTimeout = 5 * time.Second
	defaultAppName             = "authflow"
)

// Notification kinds, used as the metrics label.
const (
	NotificationVerification = "verification"
	NotificationWelcome      = "welcome"
	NotificationResetRequest = "reset_request"
	NotificationResetSuccess = "reset_success"
)

// Notifier delivers the account lifecycle emails.
type Notifier interface {
	SendVerification(ctx context.Context, email, code string) error
	SendWelcome(ctx context.Context, email, name string) error
	SendResetRequest(ctx context.Context, email, resetURL string) error
	SendResetSuccess(ctx context.Context, email string) error
}

// NotifierOption customises the EmailNotifier.
type NotifierOption func(*EmailNotifier)

// WithNotifierAppName sets the product name used in subjects and bodies.
func WithNotifierAppName(name string) NotifierOption {
	return func(n *EmailNotifier) {
		if name = strings.TrimSpace(name); name != "" {
			n.appName = name
		}
	}
}

// WithNotifierSender overrides the From address; the mailer default applies otherwise.
func WithNotifierSender(from string) NotifierOption {
	return func(n *EmailNotifier) {
		n.from = strings.TrimSpace(from)
	}
}

// WithNotifierTimeout bounds each delivery attempt.
func WithNotifierTimeout(d time.Duration) NotifierOption {
	return func(n *EmailNotifier) {
		if d > 0 {
			n.timeout = d
		}
	}
}

// EmailNotifier renders lifecycle emails and hands them to a mail.Mailer.
type EmailNotifier struct {
	mailer  mail.Mailer
	from    string
	appName string
	timeout time.Duration
	log     *zap.Logger
}

// NewEmailNotifier builds a notifier over the supplied mailer.
func NewEmailNotifier(mailer mail.Mailer, opts ...NotifierOption) (*EmailNotifier, error) {
	if mailer == nil {
		return nil, errors.New("notifier: mailer is required")
	}

	n := &EmailNotifier{
		mailer:  mailer,
		appName: defaultAppName,
		timeout: defaultNotificationTimeout,
		log:     logger.WithModule("notifier"),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

func (n *EmailNotifier) SendVerification(ctx context.Context, email, code string) error {
	body, err := render(verificationTemplate, map[string]string{"AppName": n.appName, "Code": code})
	if err != nil {
		return err
	}
	return n.deliver(ctx, NotificationVerification, email, "Verify your email", body)
}

func (n *EmailNotifier) SendWelcome(ctx context.Context, email, name string) error {
	body, err := render(welcomeTemplate, map[string]string{"AppName": n.appName, "Name": name})
	if err != nil {
		return err
	}
	return n.deliver(ctx, NotificationWelcome, email, fmt.Sprintf("Welcome to %s!", n.appName), body)
}

func (n *EmailNotifier) SendResetRequest(ctx context.Context, email, resetURL string) error {
	body, err := render(resetRequestTemplate, map[string]string{"AppName": n.appName, "ResetURL": resetURL})
	if err != nil {
		return err
	}
	return n.deliver(ctx, NotificationResetRequest, email, "Reset your password", body)
}

func (n *EmailNotifier) SendResetSuccess(ctx context.Context, email string) error {
	body, err := render(resetSuccessTemplate, map[string]string{"AppName": n.appName})
	if err != nil {
		return err
	}
	return n.deliver(ctx, NotificationResetSuccess, email, "Password Reset Successful", body)
}

func (n *EmailNotifier) deliver(ctx context.Context, kind, to, subject, body string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	err := n.mailer.Send(ctx, mail.Message{
		From:    n.from,
		To:      []string{to},
		Subject: subject,
		Body:    body,
		HTML:    true,
	})
	switch {
	case err == nil:
		metrics.Notifications.WithLabelValues(kind, "sent").Inc()
		return nil
	case errors.Is(err, mail.ErrSMTPDisabled):
		metrics.Notifications.WithLabelValues(kind, "skipped").Inc()
		n.log.Warn("email delivery disabled, notification skipped", zap.String("kind", kind))
		return nil
	default:
		metrics.Notifications.WithLabelValues(kind, "failed").Inc()
		return fmt.Errorf("notifier: send %s: %w", kind, err)
	}
}

func render(tmpl *template.Template, data map[string]string) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("notifier: render %s: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

var (
	verificationTemplate = template.Must(template.New("verification").Parse(`<!DOCTYPE html>
<html><body style="font-family: Arial, sans-serif; color: #333;">
<h1>Verify your email</h1>
<p>Thank you for signing up for {{.AppName}}. Your verification code is:</p>
<p style="font-size: 32px; font-weight: bold; letter-spacing: 5px;">{{.Code}}</p>
<p>Enter this code on the verification page to complete your registration.</p>
<p>If you didn't create an account with us, please ignore this email.</p>
</body></html>`))

	welcomeTemplate = template.Must(template.New("welcome").Parse(`<!DOCTYPE html>
<html><body style="font-family: Arial, sans-serif; color: #333;">
<h1>Welcome to {{.AppName}}!</h1>
<p>Hello {{.Name}},</p>
<p>Your email address has been verified and your account is ready to use.</p>
<p>Best regards,<br>The {{.AppName}} Team</p>
</body></html>`))

	resetRequestTemplate = template.Must(template.New("reset_request").Parse(`<!DOCTYPE html>
<html><body style="font-family: Arial, sans-serif; color: #333;">
<h1>Password Reset</h1>
<p>We received a request to reset the password of your {{.AppName}} account.</p>
<p><a href="{{.ResetURL}}">Reset Password</a></p>
<p>The link can only be used once. If you didn't request a password reset, please ignore this email.</p>
</body></html>`))

	resetSuccessTemplate = template.Must(template.New("reset_success").Parse(`<!DOCTYPE html>
<html><body style="font-family: Arial, sans-serif; color: #333;">
<h1>Password Reset Successful</h1>
<p>The password of your {{.AppName}} account has been reset.</p>
<p>If you did not initiate this reset, please contact support immediately.</p>
</body></html>`))
)
