// Package email delivers verification codes through an authenticated
// STARTTLS mail relay.
package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"profreg/internal/platform/config"
	emailutil "profreg/pkg/email"
)

// Failure kinds of a dispatch. All of them surface to the user as the same
// message; the distinction is for logs and metrics.
var (
	ErrNotConfigured  = errors.New("smtp credentials not configured")
	ErrAuthentication = errors.New("smtp authentication failed")
	ErrTransport      = errors.New("smtp transport failure")
)

const verificationSubject = "Your Verification Code"

// SMTPDispatcher sends one message per call over a fresh relay connection.
type SMTPDispatcher struct {
	from      string
	password  string
	host      string
	port      int
	timeout   time.Duration
	tlsConfig *tls.Config
}

// Option customizes an SMTPDispatcher.
type Option func(*SMTPDispatcher)

// WithRelay points the dispatcher at another relay.
func WithRelay(host string, port int) Option {
	return func(d *SMTPDispatcher) {
		d.host = host
		d.port = port
	}
}

// WithTLSConfig replaces the TLS settings used for STARTTLS.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(d *SMTPDispatcher) {
		d.tlsConfig = cfg
	}
}

// New creates a dispatcher authenticating as cfg.Email.
func New(cfg config.SMTPConfig, opts ...Option) *SMTPDispatcher {
	d := &SMTPDispatcher{
		from:     cfg.Email,
		password: cfg.Password,
		host:     cfg.Host,
		port:     cfg.Port,
		timeout:  cfg.Timeout,
	}
	if d.host == "" {
		d.host = config.SMTPHost
	}
	if d.port == 0 {
		d.port = config.SMTPPort
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SendVerification mails code to the address to, greeting the recipient by
// name.
func (d *SMTPDispatcher) SendVerification(ctx context.Context, to, name, code string) error {
	if d.from == "" || d.password == "" {
		return ErrNotConfigured
	}
	msg := composeMessage(d.from, to, emailutil.DisplayName(name, to), code)
	return d.send(ctx, to, msg)
}

func (d *SMTPDispatcher) send(ctx context.Context, to string, msg []byte) error {
	addr := net.JoinHostPort(d.host, strconv.Itoa(d.port))
	dialer := net.Dialer{Timeout: d.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", ErrTransport, addr, err)
	}
	if deadline, ok := d.deadline(ctx); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, d.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("%w: greeting: %v", ErrTransport, err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); !ok {
		return fmt.Errorf("%w: relay does not offer STARTTLS", ErrTransport)
	}
	if err := c.StartTLS(d.tls()); err != nil {
		return fmt.Errorf("%w: starttls: %v", ErrTransport, err)
	}
	if err := c.Auth(smtp.PlainAuth("", d.from, d.password, d.host)); err != nil {
		return fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	if err := c.Mail(d.from); err != nil {
		return fmt.Errorf("%w: mail from: %v", ErrTransport, err)
	}
	if err := c.Rcpt(to); err != nil {
		return fmt.Errorf("%w: rcpt to: %v", ErrTransport, err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("%w: data: %v", ErrTransport, err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("%w: write body: %v", ErrTransport, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("%w: end data: %v", ErrTransport, err)
	}
	if err := c.Quit(); err != nil {
		return fmt.Errorf("%w: quit: %v", ErrTransport, err)
	}
	return nil
}

func (d *SMTPDispatcher) deadline(ctx context.Context) (time.Time, bool) {
	deadline, ok := ctx.Deadline()
	if d.timeout > 0 {
		byTimeout := time.Now().Add(d.timeout)
		if !ok || byTimeout.Before(deadline) {
			return byTimeout, true
		}
	}
	return deadline, ok
}

func (d *SMTPDispatcher) tls() *tls.Config {
	cfg := &tls.Config{}
	if d.tlsConfig != nil {
		cfg = d.tlsConfig.Clone()
	}
	if cfg.ServerName == "" {
		cfg.ServerName = d.host
	}
	if cfg.MinVersion == 0 {
		cfg.MinVersion = tls.VersionTLS12
	}
	return cfg
}

func composeMessage(from, to, name, code string) []byte {
	body := fmt.Sprintf("Hello %s,\n\nYour verification code is: %s\n\nPlease enter this code to complete your registration.", name, code)

	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", verificationSubject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	b.WriteString("\r\n")
	return []byte(b.String())
}
