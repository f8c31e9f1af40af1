package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"strconv"
	"strings"
)

// smtpClient is the subset of *smtp.Client used during a delivery.
type smtpClient interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// session is one open connection to the relay, already authenticated.
type session struct {
	conn   net.Conn
	client smtpClient
}

type dialFunc func(ctx context.Context, settings SMTPSettings) (*session, error)

func (s *session) transmit(env envelope, payload []byte) error {
	if err := s.client.Mail(env.from.Address); err != nil {
		return fmt.Errorf("smtp: mail from: %w", err)
	}
	for _, rcpt := range env.recipients() {
		if err := s.client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp: rcpt to %s: %w", rcpt, err)
		}
	}

	wc, err := s.client.Data()
	if err != nil {
		return fmt.Errorf("smtp: data command: %w", err)
	}
	if _, err := wc.Write(payload); err != nil {
		_ = wc.Close()
		return fmt.Errorf("smtp: write message: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("smtp: close data writer: %w", err)
	}
	return s.client.Quit()
}

func (s *session) close() {
	_ = s.client.Close()
	_ = s.conn.Close()
}

// dialRelay connects with implicit TLS when UseTLS is set, otherwise upgrades
// via STARTTLS if the server offers it, then authenticates when a username is
// configured.
func dialRelay(ctx context.Context, settings SMTPSettings) (*session, error) {
	address := net.JoinHostPort(settings.Host, strconv.Itoa(settings.Port))
	tlsConfig := &tls.Config{ServerName: settings.Host, MinVersion: tls.VersionTLS12}
	netDialer := &net.Dialer{Timeout: settings.Timeout}

	var (
		conn net.Conn
		err  error
	)
	if settings.UseTLS {
		conn, err = (&tls.Dialer{NetDialer: netDialer, Config: tlsConfig}).DialContext(ctx, "tcp", address)
	} else {
		conn, err = netDialer.DialContext(ctx, "tcp", address)
	}
	if err != nil {
		return nil, fmt.Errorf("smtp: dial %s: %w", address, err)
	}

	client, err := smtp.NewClient(conn, settings.Host)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("smtp: handshake: %w", err)
	}
	sess := &session{conn: conn, client: client}

	if !settings.UseTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsConfig); err != nil {
				sess.close()
				return nil, fmt.Errorf("smtp: start tls: %w", err)
			}
		}
	}

	if strings.TrimSpace(settings.Username) != "" {
		auth := smtp.PlainAuth("", settings.Username, settings.Password, settings.Host)
		if err := client.Auth(auth); err != nil {
			sess.close()
			return nil, fmt.Errorf("smtp: auth: %w", err)
		}
	}
	return sess, nil
}
