package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/quotedprintable"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrSMTPDisabled is returned by Send when delivery is switched off in configuration.
	ErrSMTPDisabled = errors.New("smtp: delivery disabled")
	// ErrNoRecipients is returned when a message has no usable To address.
	ErrNoRecipients = errors.New("smtp: at least one recipient is required")
)

const defaultSMTPTimeout = 10 * time.Second

// Message is a single outbound email.
type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
	HTML    bool
}

// Mailer sends email messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSettings configure the SMTP relay.
type SMTPSettings struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
	UseTLS   bool
	Timeout  time.Duration
}

func (s SMTPSettings) validate() error {
	if !s.Enabled {
		return nil
	}
	if strings.TrimSpace(s.Host) == "" {
		return errors.New("smtp: host is required when enabled")
	}
	if s.Port <= 0 {
		return errors.New("smtp: port is required when enabled")
	}
	return nil
}

// SMTPMailer delivers messages through one relay, opening a connection per message.
type SMTPMailer struct {
	settings SMTPSettings
	dial     dialFunc
	now      func() time.Time
}

// NewSMTPMailer validates settings. When delivery is disabled the returned
// mailer answers every Send with ErrSMTPDisabled.
func NewSMTPMailer(settings SMTPSettings) (*SMTPMailer, error) {
	if err := settings.validate(); err != nil {
		return nil, err
	}
	if settings.Timeout <= 0 {
		settings.Timeout = defaultSMTPTimeout
	}
	return &SMTPMailer{
		settings: settings,
		dial:     dialRelay,
		now:      time.Now,
	}, nil
}

// Send delivers msg. The exchange is bounded by the context deadline, or by
// the configured timeout when the context has none.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if !m.settings.Enabled {
		return ErrSMTPDisabled
	}
	if ctx == nil {
		ctx = context.Background()
	}

	env, err := newEnvelope(msg, m.settings.From)
	if err != nil {
		return err
	}

	var payload bytes.Buffer
	if err := writeMessage(&payload, env, msg, m.now()); err != nil {
		return err
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = m.now().Add(m.settings.Timeout)
	}

	sess, err := m.dial(ctx, m.settings)
	if err != nil {
		return err
	}
	defer sess.close()

	if err := sess.conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("smtp: set deadline: %w", err)
	}
	return sess.transmit(env, payload.Bytes())
}

// envelope holds the SMTP-level sender and recipients, already parsed.
type envelope struct {
	from *mail.Address
	to   []*mail.Address
}

func newEnvelope(msg Message, fallbackFrom string) (envelope, error) {
	var env envelope

	rawFrom := strings.TrimSpace(msg.From)
	if rawFrom == "" {
		rawFrom = strings.TrimSpace(fallbackFrom)
	}
	if rawFrom == "" {
		return env, errors.New("smtp: sender address is required")
	}
	from, err := mail.ParseAddress(rawFrom)
	if err != nil {
		return env, fmt.Errorf("smtp: invalid from address: %w", err)
	}
	env.from = from

	for _, raw := range uniqueAddresses(msg.To) {
		addr, err := mail.ParseAddress(raw)
		if err != nil {
			return env, fmt.Errorf("smtp: invalid recipient address %q: %w", raw, err)
		}
		env.to = append(env.to, addr)
	}
	if len(env.to) == 0 {
		return env, ErrNoRecipients
	}
	return env, nil
}

func (e envelope) recipients() []string {
	out := make([]string, len(e.to))
	for i, addr := range e.to {
		out[i] = addr.Address
	}
	return out
}

// uniqueAddresses trims entries and drops blanks and repeats, keeping order.
func uniqueAddresses(addresses []string) []string {
	seen := make(map[string]struct{}, len(addresses))
	out := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		key := strings.ToLower(addr)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, addr)
	}
	return out
}

// writeMessage renders headers and a quoted-printable body in RFC 5322 form.
func writeMessage(w io.Writer, env envelope, msg Message, now time.Time) error {
	contentType := "text/plain"
	if msg.HTML {
		contentType = "text/html"
	}

	to := make([]string, len(env.to))
	for i, addr := range env.to {
		to[i] = addr.String()
	}

	headers := [][2]string{
		{"From", env.from.String()},
		{"To", strings.Join(to, ", ")},
		{"Subject", encodeHeader(msg.Subject)},
		{"Date", now.UTC().Format(time.RFC1123Z)},
		{"Message-ID", messageID(env.from.Address)},
		{"MIME-Version", "1.0"},
		{"Content-Type", contentType + "; charset=UTF-8"},
		{"Content-Transfer-Encoding", "quoted-printable"},
	}
	for _, h := range headers {
		if _, err := fmt.Fprintf(w, "%s: %s\r\n", h[0], h[1]); err != nil {
			return fmt.Errorf("smtp: write headers: %w", err)
		}
	}
	if _, err := io.WriteString(w, "\r\n"); err != nil {
		return fmt.Errorf("smtp: write headers: %w", err)
	}

	qp := quotedprintable.NewWriter(w)
	if _, err := io.WriteString(qp, msg.Body); err != nil {
		return fmt.Errorf("smtp: encode body: %w", err)
	}
	if err := qp.Close(); err != nil {
		return fmt.Errorf("smtp: encode body: %w", err)
	}
	return nil
}

// encodeHeader flattens line breaks and Q-encodes non-ASCII text.
func encodeHeader(value string) string {
	value = strings.NewReplacer("\r", " ", "\n", " ").Replace(value)
	return mime.QEncoding.Encode("utf-8", value)
}

func messageID(from string) string {
	domain := "localhost"
	if at := strings.LastIndexByte(from, '@'); at >= 0 && at < len(from)-1 {
		domain = from[at+1:]
	}
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), domain)
}
