package mail

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewSMTPMailerSettings(t *testing.T) {
	_, err := NewSMTPMailer(SMTPSettings{Enabled: true})
	require.ErrorContains(t, err, "host is required")

	_, err = NewSMTPMailer(SMTPSettings{Enabled: true, Host: "smtp.example.com"})
	require.ErrorContains(t, err, "port is required")

	mailer, err := NewSMTPMailer(SMTPSettings{Enabled: true, Host: "smtp.example.com", Port: 587})
	require.NoError(t, err)
	require.Equal(t, defaultSMTPTimeout, mailer.settings.Timeout)

	disabled, err := NewSMTPMailer(SMTPSettings{})
	require.NoError(t, err)
	err = disabled.Send(context.Background(), Message{To: []string{"user@example.com"}})
	require.ErrorIs(t, err, ErrSMTPDisabled)
}

func TestNewEnvelope(t *testing.T) {
	tests := []struct {
		name     string
		msg      Message
		fallback string
		wantErr  string
		wantTo   []string
		wantFrom string
	}{
		{
			name:     "fallback sender",
			msg:      Message{To: []string{"user@example.com"}},
			fallback: "no-reply@example.com",
			wantFrom: "no-reply@example.com",
			wantTo:   []string{"user@example.com"},
		},
		{
			name:     "message sender wins",
			msg:      Message{From: "Authflow <team@example.com>", To: []string{"user@example.com"}},
			fallback: "no-reply@example.com",
			wantFrom: "team@example.com",
			wantTo:   []string{"user@example.com"},
		},
		{
			name:    "missing sender",
			msg:     Message{To: []string{"user@example.com"}},
			wantErr: "sender address is required",
		},
		{
			name:    "bad sender",
			msg:     Message{From: "invalid-from", To: []string{"user@example.com"}},
			wantErr: "invalid from address",
		},
		{
			name:     "blank recipients",
			msg:      Message{To: []string{"   ", "\t"}},
			fallback: "no-reply@example.com",
			wantErr:  ErrNoRecipients.Error(),
		},
		{
			name:     "bad recipient",
			msg:      Message{To: []string{"user@example.com", "bad-address"}},
			fallback: "no-reply@example.com",
			wantErr:  "invalid recipient address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := newEnvelope(tt.msg, tt.fallback)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantFrom, env.from.Address)
			require.Equal(t, tt.wantTo, env.recipients())
		})
	}
}

func TestUniqueAddresses(t *testing.T) {
	got := uniqueAddresses([]string{"alice@example.com", "bob@example.com", " Alice@example.com ", "", "bob@example.com"})
	require.Equal(t, []string{"alice@example.com", "bob@example.com"}, got)
}

func TestWriteMessage(t *testing.T) {
	env, err := newEnvelope(Message{To: []string{"a@example.com", "b@example.com"}}, "no-reply@example.com")
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	err = writeMessage(&buf, env, Message{
		Subject: "Vérifiez\r\nvotre email",
		Body:    `<a href="https://example.com/?a=1">Verify</a>`,
		HTML:    true,
	}, now)
	require.NoError(t, err)

	raw := buf.String()
	head, body, found := strings.Cut(raw, "\r\n\r\n")
	require.True(t, found, "headers must be separated from the body by a blank line")

	require.Contains(t, head, "From: <no-reply@example.com>")
	require.Contains(t, head, "To: <a@example.com>, <b@example.com>")
	require.Contains(t, head, "Date: "+now.Format(time.RFC1123Z))
	require.Contains(t, head, "Content-Type: text/html; charset=UTF-8")
	require.Contains(t, head, "Content-Transfer-Encoding: quoted-printable")
	require.Regexp(t, `Message-ID: <[0-9a-f-]{36}@example\.com>`, head)

	var subject string
	for _, line := range strings.Split(head, "\r\n") {
		if v, ok := strings.CutPrefix(line, "Subject: "); ok {
			subject = v
		}
	}
	decoded, err := new(mime.WordDecoder).DecodeHeader(subject)
	require.NoError(t, err)
	require.Equal(t, "Vérifiez  votre email", decoded)

	require.Contains(t, body, "a=3D1")
}

func TestWriteMessagePlainText(t *testing.T) {
	env, err := newEnvelope(Message{To: []string{"a@example.com"}}, "no-reply@example.com")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, writeMessage(&buf, env, Message{Subject: "Hi", Body: "Hello"}, time.Now()))
	require.Contains(t, buf.String(), "Content-Type: text/plain; charset=UTF-8")
	require.True(t, strings.HasSuffix(buf.String(), "\r\n\r\nHello"))
}

type fakeConn struct {
	net.Conn
	deadline time.Time
	closed   bool
}

func (c *fakeConn) SetDeadline(t time.Time) error {
	c.deadline = t
	return nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

type fakeClient struct {
	from    string
	rcpts   []string
	body    bytes.Buffer
	quit    bool
	rcptErr error
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func (c *fakeClient) Mail(from string) error { c.from = from; return nil }
func (c *fakeClient) Rcpt(to string) error {
	if c.rcptErr != nil {
		return c.rcptErr
	}
	c.rcpts = append(c.rcpts, to)
	return nil
}
func (c *fakeClient) Data() (io.WriteCloser, error) { return nopWriteCloser{&c.body}, nil }
func (c *fakeClient) Quit() error                   { c.quit = true; return nil }
func (c *fakeClient) Close() error                  { return nil }

func fakeMailer(conn *fakeConn, client *fakeClient, dialErr error) *SMTPMailer {
	return &SMTPMailer{
		settings: SMTPSettings{Enabled: true, Host: "smtp.example.com", Port: 25, From: "no-reply@example.com", Timeout: time.Minute},
		dial: func(context.Context, SMTPSettings) (*session, error) {
			if dialErr != nil {
				return nil, dialErr
			}
			return &session{conn: conn, client: client}, nil
		},
		now: time.Now,
	}
}

func TestSMTPMailerSendUsesContextDeadline(t *testing.T) {
	conn := &fakeConn{}
	client := &fakeClient{}
	mailer := fakeMailer(conn, client, nil)

	deadline := time.Now().Add(3 * time.Second)
	ctx, cancel := context.WithDeadline(context.Background(), deadline)
	defer cancel()

	err := mailer.Send(ctx, Message{To: []string{"user@example.com", "user@example.com"}, Subject: "Hello", Body: "World"})
	require.NoError(t, err)

	require.True(t, conn.deadline.Equal(deadline))
	require.Equal(t, "no-reply@example.com", client.from)
	require.Equal(t, []string{"user@example.com"}, client.rcpts)
	require.True(t, client.quit)
	require.True(t, strings.HasSuffix(client.body.String(), "World"))
	require.True(t, conn.closed)
}

func TestSMTPMailerSendFallsBackToConfiguredTimeout(t *testing.T) {
	conn := &fakeConn{}
	mailer := fakeMailer(conn, &fakeClient{}, nil)
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mailer.now = func() time.Time { return fixed }

	require.NoError(t, mailer.Send(context.Background(), Message{To: []string{"user@example.com"}}))
	require.Equal(t, fixed.Add(time.Minute), conn.deadline)
}

func TestSMTPMailerSendErrors(t *testing.T) {
	dialErr := errors.New("connection refused")
	err := fakeMailer(nil, nil, dialErr).Send(context.Background(), Message{To: []string{"user@example.com"}})
	require.ErrorIs(t, err, dialErr)

	rejected := errors.New("550 mailbox unavailable")
	conn := &fakeConn{}
	err = fakeMailer(conn, &fakeClient{rcptErr: rejected}, nil).Send(context.Background(), Message{To: []string{"user@example.com"}})
	require.ErrorIs(t, err, rejected)
	require.True(t, conn.closed)
}

func TestMemoryMailer(t *testing.T) {
	m := NewMemoryMailer()
	ctx := context.Background()
	require.NoError(t, m.Send(ctx, Message{To: []string{"a@example.com"}, Subject: "first"}))
	require.NoError(t, m.Send(ctx, Message{To: []string{"a@example.com"}, Subject: "second"}))

	last, ok := m.Last("a@example.com")
	require.True(t, ok)
	require.Equal(t, "second", last.Subject)
	_, ok = m.Last("b@example.com")
	require.False(t, ok)

	boom := errors.New("boom")
	m.SetError(boom)
	require.ErrorIs(t, m.Send(ctx, Message{To: []string{"a@example.com"}}), boom)
	require.Len(t, m.Messages(), 2)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	m.SetError(nil)
	require.ErrorIs(t, m.Send(cancelled, Message{To: []string{"a@example.com"}}), context.Canceled)
}
