package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"
)

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	// From is the envelope sender; FromName only decorates the header.
	From     string
	FromName string
	ReplyTo  string
	// RootCAs verifies the server certificate after STARTTLS; nil uses the
	// system pool.
	RootCAs *x509.CertPool
}

type SMTP struct {
	config SMTPConfig
	auth   smtp.Auth
}

func NewSMTP(config SMTPConfig) *SMTP {
	var auth smtp.Auth
	if config.User != "" && config.Password != "" {
		auth = smtp.PlainAuth("", config.User, config.Password, config.Host)
	}
	if config.From == "" {
		config.From = config.User
	}
	return &SMTP{config: config, auth: auth}
}

func (s *SMTP) addr() string {
	return net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
}

// Send delivers msg, giving up when ctx is done. net/smtp has no context
// support, so the dial honours the deadline and the session runs in a goroutine.
func (s *SMTP) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	body := s.compose(msg)

	dialer := &net.Dialer{Timeout: 30 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", s.addr())
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	done := make(chan error, 1)
	go func() { done <- s.session(conn, sanitizeHeader(msg.To), body) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		_ = conn.Close()
		<-done
		return ctx.Err()
	}
}

func (s *SMTP) session(conn net.Conn, to string, body []byte) error {
	c, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer func() { _ = c.Close() }()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(s.tlsConfig()); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if s.auth != nil {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(s.auth); err != nil {
				return fmt.Errorf("auth: %w", err)
			}
		}
	}
	if err := c.Mail(s.config.From); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := c.Rcpt(to); err != nil {
		return fmt.Errorf("rcpt to: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return c.Quit()
}

func (s *SMTP) tlsConfig() *tls.Config {
	return &tls.Config{
		ServerName: s.config.Host,
		RootCAs:    s.config.RootCAs,
		MinVersion: tls.VersionTLS12,
	}
}

func (s *SMTP) compose(msg Message) []byte {
	from := s.config.From
	if strings.TrimSpace(s.config.FromName) != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	headers := []string{
		"From: " + sanitizeHeader(from),
		"To: " + sanitizeHeader(msg.To),
		"Subject: " + sanitizeHeader(msg.Subject),
	}
	if s.config.ReplyTo != "" {
		headers = append(headers, "Reply-To: "+sanitizeHeader(s.config.ReplyTo))
	}
	headers = append(headers, "MIME-Version: 1.0")

	var buf bytes.Buffer
	switch {
	case msg.HTML != "" && msg.Text != "":
		mw := multipart.NewWriter(&buf)
		headers = append(headers, "Content-Type: multipart/alternative; boundary="+mw.Boundary())
		writePart(mw, "text/plain; charset=UTF-8", msg.Text)
		writePart(mw, "text/html; charset=UTF-8", msg.HTML)
		_ = mw.Close()
	case msg.HTML != "":
		headers = append(headers, "Content-Type: text/html; charset=UTF-8")
		buf.WriteString(normalizeNewlines(msg.HTML))
	default:
		headers = append(headers, "Content-Type: text/plain; charset=UTF-8")
		buf.WriteString(normalizeNewlines(msg.Text))
	}

	lines := append(headers, "", buf.String())
	return []byte(strings.Join(lines, "\r\n"))
}

// writePart appends one alternative; writes go to a bytes.Buffer and cannot fail.
func writePart(mw *multipart.Writer, contentType, content string) {
	part, _ := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {contentType}})
	_, _ = part.Write([]byte(normalizeNewlines(content)))
}

func sanitizeHeader(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	return strings.ReplaceAll(s, "\n", "")
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", "\r\n")
}
