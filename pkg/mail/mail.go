// Package mail sends HTML email over SMTP.
//
// Usage:
//
//	m := mail.New(mail.SMTP{Host: "smtp-relay.brevo.com", Port: "587", ...})
//	err := m.Send(ctx, mail.NewMessage().
//	    To("admin@example.com").
//	    Subject("New Order #42").
//	    Body(html))
package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// ErrNotConfigured is returned by Send when no SMTP host is set.
var ErrNotConfigured = errors.New("mail: SMTP host not configured")

// ------------------- Config -------------------

// SMTP holds connection credentials.
type SMTP struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

// ------------------- Message -------------------

// Message is a fluent builder for an email.
type Message struct {
	to      []string
	cc      []string
	subject string
	body    string
	isHTML  bool
}

// NewMessage starts an HTML message.
func NewMessage() *Message {
	return &Message{isHTML: true}
}

// To adds primary recipients.
func (m *Message) To(addresses ...string) *Message {
	m.to = append(m.to, addresses...)
	return m
}

// CC adds CC recipients.
func (m *Message) CC(addresses ...string) *Message {
	m.cc = append(m.cc, addresses...)
	return m
}

// Subject sets the email subject.
func (m *Message) Subject(s string) *Message {
	m.subject = s
	return m
}

// Body sets an HTML body.
func (m *Message) Body(html string) *Message {
	m.body = html
	m.isHTML = true
	return m
}

// Text sets a plain-text body.
func (m *Message) Text(text string) *Message {
	m.body = text
	m.isHTML = false
	return m
}

// Recipients returns every envelope recipient.
func (m *Message) Recipients() []string {
	return append(append([]string(nil), m.to...), m.cc...)
}

// SubjectLine returns the subject as set.
func (m *Message) SubjectLine() string { return m.subject }

// Content returns the body as set.
func (m *Message) Content() string { return m.body }

// ------------------- Sending -------------------

// Mailer delivers messages through one SMTP account.
type Mailer struct {
	cfg     SMTP
	timeout time.Duration
}

// New returns a Mailer for cfg.
func New(cfg SMTP) *Mailer {
	return &Mailer{cfg: cfg, timeout: 15 * time.Second}
}

// Configured reports whether a host is set.
func (ml *Mailer) Configured() bool { return ml.cfg.Host != "" }

// Send delivers m. Port 465 uses implicit TLS; other ports upgrade with
// STARTTLS when the server offers it.
func (ml *Mailer) Send(ctx context.Context, m *Message) error {
	cfg := ml.cfg
	if cfg.Host == "" {
		return ErrNotConfigured
	}
	rcpts := m.Recipients()
	if len(rcpts) == 0 {
		return errors.New("mail: no recipients")
	}

	addr := net.JoinHostPort(cfg.Host, cfg.Port)
	deadline := time.Now().Add(ml.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	dialer := &net.Dialer{Deadline: deadline}
	var conn net.Conn
	var err error
	if cfg.Port == "465" {
		conn, err = tls.DialWithDialer(dialer, "tcp", addr, &tls.Config{ServerName: cfg.Host})
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("mail: dial %s: %w", addr, err)
	}
	_ = conn.SetDeadline(deadline)

	client, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("mail: handshake: %w", err)
	}
	defer client.Close()

	if cfg.Port != "465" {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: cfg.Host}); err != nil {
				return fmt.Errorf("mail: starttls: %w", err)
			}
		}
	}
	if cfg.Username != "" {
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)); err != nil {
				return fmt.Errorf("mail: auth: %w", err)
			}
		}
	}

	if err := client.Mail(cfg.From); err != nil {
		return fmt.Errorf("mail: MAIL FROM: %w", err)
	}
	for _, rcpt := range rcpts {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("mail: RCPT TO %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("mail: DATA: %w", err)
	}
	if _, err := w.Write(m.build(cfg)); err != nil {
		return fmt.Errorf("mail: write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("mail: end DATA: %w", err)
	}
	return client.Quit()
}

func (m *Message) build(cfg SMTP) []byte {
	contentType := "text/plain"
	if m.isHTML {
		contentType = "text/html"
	}

	from := cfg.From
	if cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", cfg.FromName), cfg.From)
	}

	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + strings.Join(m.to, ", ") + "\r\n")
	if len(m.cc) > 0 {
		b.WriteString("Cc: " + strings.Join(m.cc, ", ") + "\r\n")
	}
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", m.subject) + "\r\n")
	b.WriteString("Date: " + time.Now().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString(fmt.Sprintf("Content-Type: %s; charset=\"UTF-8\"\r\n", contentType))
	b.WriteString("\r\n")
	b.WriteString(m.body)
	return []byte(b.String())
}
