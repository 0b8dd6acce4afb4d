package mail

import (
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"strconv"
)

// Session is one live, reusable relay connection. Implementations are not
// safe for concurrent use; the pool serializes access.
type Session interface {
	// Noop probes liveness cheaply.
	Noop() error
	// Login authenticates the session. Idempotent per session: once
	// authenticated, subsequent calls are no-ops.
	Login(user, pass string) error
	// Send transmits one message through the session's envelope.
	Send(from, rcpt string, msg io.WriterTo) error
	// Close ends the session with QUIT.
	Close() error
}

// Dialer opens new relay sessions. Swapped for a fake in tests.
type Dialer interface {
	Dial() (Session, error)
}

// RelayDialer dials the configured relay endpoint over the requested
// TLS mode and wraps the connection in a Session.
type RelayDialer struct {
	Relay Relay
}

func (d *RelayDialer) Dial() (Session, error) {
	addr := net.JoinHostPort(d.Relay.Host, strconv.Itoa(d.Relay.Port))
	tlsCfg := &tls.Config{
		ServerName:         d.Relay.Host,
		InsecureSkipVerify: d.Relay.InsecureSkipVerify, // dev only
	}

	var c *smtp.Client
	switch d.Relay.TLSMode {
	case "ssl":
		conn, err := tls.Dial("tcp", addr, tlsCfg)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", addr, err)
		}
		c, err = smtp.NewClient(conn, d.Relay.Host)
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("smtp handshake %s: %w", addr, err)
		}
	default: // "auto" | "starttls" | "none"
		var err error
		c, err = smtp.Dial(addr)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", addr, err)
		}
		if d.Relay.TLSMode != "none" {
			if ok, _ := c.Extension("STARTTLS"); ok {
				if err := c.StartTLS(tlsCfg); err != nil {
					_ = c.Close()
					return nil, fmt.Errorf("starttls %s: %w", addr, err)
				}
			} else if d.Relay.TLSMode == "starttls" {
				_ = c.Close()
				return nil, fmt.Errorf("relay %s does not offer STARTTLS", addr)
			}
		}
	}

	return &smtpSession{c: c, host: d.Relay.Host}, nil
}

type smtpSession struct {
	c      *smtp.Client
	host   string
	authed bool
}

func (s *smtpSession) Noop() error {
	return s.c.Noop()
}

func (s *smtpSession) Login(user, pass string) error {
	if s.authed {
		return nil
	}
	if err := s.c.Auth(smtp.PlainAuth("", user, pass, s.host)); err != nil {
		return err
	}
	s.authed = true
	return nil
}

func (s *smtpSession) Send(from, rcpt string, msg io.WriterTo) error {
	if err := s.c.Mail(from); err != nil {
		return err
	}
	if err := s.c.Rcpt(rcpt); err != nil {
		// Abort the envelope so the session stays usable for the
		// remaining recipients of the batch.
		_ = s.c.Reset()
		return err
	}
	w, err := s.c.Data()
	if err != nil {
		_ = s.c.Reset()
		return err
	}
	if _, err := msg.WriteTo(w); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (s *smtpSession) Close() error {
	return s.c.Quit()
}
