// Package mailalert provides email alerting utilities: one-shot plain-text
// and HTML alert senders over authenticated SMTP, and a zapcore.Core that
// batches error-level log entries into a single alert email.
package mailalert

import (
	"crypto/tls"
	"net"
	"net/smtp"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/code19m/errx"
)

const (
	// DefaultSMTPPort is the standard mail submission port, used when the
	// caller passes a zero port.
	DefaultSMTPPort = 587

	dialTimeout = 10 * time.Second

	contentTypePlain = "text/plain"
	contentTypeHTML  = "text/html"
)

// Send sends a plain-text alert email.
//
// to may contain one or more addresses; they are joined with ", " for the
// To header and each becomes an envelope recipient. pwdFile is resolved
// relative to the user's home directory and its stripped contents is used
// as the SMTP password. A zero port selects DefaultSMTPPort.
//
// One SMTP session is opened per call. Any file-read, transport or
// authentication failure is returned to the caller; nothing is retried.
func Send(from string, to []string, subject, body, pwdFile, host string, port int) error {
	return send(from, to, subject, body, pwdFile, host, port, contentTypePlain)
}

// SendHTML sends an alert email with an HTML body.
// It behaves exactly like Send apart from the message content type.
func SendHTML(from string, to []string, subject, htmlBody, pwdFile, host string, port int) error {
	return send(from, to, subject, htmlBody, pwdFile, host, port, contentTypeHTML)
}

func send(from string, to []string, subject, body, pwdFile, host string, port int, contentType string) error {
	pwd, err := readPassword(pwdFile)
	if err != nil {
		return err
	}

	msg := buildMessage(from, to, subject, body, contentType)

	return submit(host, port, from, pwd, to, msg)
}

// readPassword reads the SMTP password from a file under the user's home
// directory. The entire file contents, stripped of surrounding whitespace,
// is the password.
func readPassword(pwdFile string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errx.Wrap(err)
	}

	raw, err := os.ReadFile(filepath.Join(home, pwdFile))
	if err != nil {
		return "", errx.Wrap(err)
	}

	return strings.TrimSpace(string(raw)), nil
}

// buildMessage constructs the raw message: CRLF-separated headers, a blank
// line, then the body.
func buildMessage(from string, to []string, subject, body, contentType string) []byte {
	var msg strings.Builder

	msg.WriteString("From: " + sanitizeHeader(from) + "\r\n")
	msg.WriteString("To: " + sanitizeHeader(strings.Join(to, ", ")) + "\r\n")
	msg.WriteString("Subject: " + sanitizeHeader(subject) + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: " + contentType + "; charset=\"utf-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	return []byte(msg.String())
}

// submit opens one SMTP session: dial, STARTTLS, authenticate, send, quit.
func submit(host string, port int, from, pwd string, to []string, msg []byte) error {
	if port == 0 {
		port = DefaultSMTPPort
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	dialer := &net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.Dial("tcp", addr)
	if err != nil {
		return errx.Wrap(err)
	}
	defer conn.Close() //nolint:errcheck // best-effort cleanup

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		return errx.Wrap(err)
	}
	defer client.Close() //nolint:errcheck // best-effort cleanup

	tlsConfig := &tls.Config{
		ServerName: host,
		MinVersion: tls.VersionTLS12,
	}
	if err = client.StartTLS(tlsConfig); err != nil {
		return errx.Wrap(err)
	}

	auth := smtp.PlainAuth("", from, pwd, host)
	if err = client.Auth(auth); err != nil {
		return errx.Wrap(err)
	}

	if err = client.Mail(from); err != nil {
		return errx.Wrap(err)
	}
	for _, rcpt := range to {
		if err = client.Rcpt(rcpt); err != nil {
			return errx.Wrap(err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return errx.Wrap(err)
	}
	if _, err = w.Write(msg); err != nil {
		return errx.Wrap(err)
	}
	if err = w.Close(); err != nil {
		return errx.Wrap(err)
	}

	return errx.Wrap(client.Quit())
}

// sanitizeHeader strips CR and LF to prevent header injection.
func sanitizeHeader(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	return s
}
