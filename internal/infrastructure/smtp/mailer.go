package smtp

import (
	"context"
	"crypto/rand"
	"crypto/tls"
	"encoding/hex"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strings"
	"time"

	"github.com/mridang-api/internal/config"
)

var (
	// ErrNoRecipient is returned when a message has no To address.
	ErrNoRecipient = errors.New("no recipient provided")
	// ErrAuthUnsupported is returned when credentials are configured but the
	// relay does not offer AUTH. Mail is never sent unauthenticated then.
	ErrAuthUnsupported = errors.New("smtp relay does not support AUTH")
)

// Message is an outbound email. When both bodies are set the mail is sent as multipart/alternative.
type Message struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Mailer sends emails.
type Mailer interface {
	SendEmail(ctx context.Context, msg Message) error
}

type mailer struct {
	host     string
	port     string
	from     string
	username string
	password string
	timeout  time.Duration
}

func NewMailer(cfg *config.Config) Mailer {
	return &mailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		from:     cfg.MailFrom,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		timeout:  cfg.MailTimeout,
	}
}

// SendEmail delivers msg through the configured relay. The whole SMTP exchange
// is bounded by the mailer timeout and by ctx.
func (m *mailer) SendEmail(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}
	sender, err := mail.ParseAddress(m.from)
	if err != nil {
		return fmt.Errorf("parse sender %q: %w", m.from, err)
	}

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	addr := net.JoinHostPort(m.host, m.port)
	conn, err := (&net.Dialer{}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial smtp %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, m.host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: m.host, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}
	if m.username != "" {
		if ok, _ := c.Extension("AUTH"); !ok {
			return fmt.Errorf("smtp %s: %w", addr, ErrAuthUnsupported)
		}
		if err := c.Auth(smtp.PlainAuth("", m.username, m.password, m.host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := c.Mail(sender.Address); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	if err := c.Rcpt(msg.To); err != nil {
		return fmt.Errorf("smtp RCPT TO: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := w.Write([]byte(buildMessage(m.from, msg))); err != nil {
		return fmt.Errorf("smtp write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp end DATA: %w", err)
	}
	return c.Quit()
}

func buildMessage(from string, msg Message) string {
	body, contentType := buildBody(msg)

	headers := []string{
		fmt.Sprintf("From: %s", from),
		fmt.Sprintf("To: %s", msg.To),
		fmt.Sprintf("Subject: %s", mime.QEncoding.Encode("utf-8", msg.Subject)),
		fmt.Sprintf("Date: %s", time.Now().Format(time.RFC1123Z)),
		"MIME-Version: 1.0",
		fmt.Sprintf("Content-Type: %s", contentType),
	}
	return strings.Join(headers, "\r\n") + "\r\n\r\n" + body
}

func buildBody(msg Message) (body string, contentType string) {
	if msg.HTMLBody != "" && msg.TextBody != "" {
		boundary := multipartBoundary()
		var sb strings.Builder
		fmt.Fprintf(&sb, "--%s\r\n", boundary)
		sb.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
		sb.WriteString(msg.TextBody)
		sb.WriteString("\r\n")
		fmt.Fprintf(&sb, "--%s\r\n", boundary)
		sb.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
		sb.WriteString(msg.HTMLBody)
		sb.WriteString("\r\n")
		fmt.Fprintf(&sb, "--%s--", boundary)
		return sb.String(), fmt.Sprintf("multipart/alternative; boundary=%s", boundary)
	}
	if msg.HTMLBody != "" {
		return msg.HTMLBody, "text/html; charset=UTF-8"
	}
	return msg.TextBody, "text/plain; charset=UTF-8"
}

func multipartBoundary() string {
	var b [12]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "mridang-boundary"
	}
	return "mridang-" + hex.EncodeToString(b[:])
}
