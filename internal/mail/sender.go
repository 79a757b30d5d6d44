package mail

import (
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// Sender delivers mail over SMTP and captures the protocol dialogue so
// handlers can attach it as a debug trace.
type Sender struct {
	Host     string
	Port     int
	From     string
	Username string
	Password string
}

// NewSender creates a sender; Username/Password empty disables AUTH
func NewSender(host string, port int, from, username, password string) *Sender {
	return &Sender{Host: host, Port: port, From: from, Username: username, Password: password}
}

// Send delivers one message to all recipients. The returned transcript is
// rendered even when the send fails, so callers can surface the dialogue
// either way.
func (s *Sender) Send(to []string, subject, body string) (string, error) {
	addr := net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return "", fmt.Errorf("smtp dial %s: %w", addr, err)
	}
	tc := newTranscriptConn(conn)
	defer tc.Close()

	c, err := smtp.NewClient(tc, s.Host)
	if err != nil {
		return tc.Markdown(), fmt.Errorf("smtp handshake: %w", err)
	}

	if s.Username != "" {
		if ok, _ := c.Extension("AUTH"); ok {
			auth := smtp.PlainAuth("", s.Username, s.Password, s.Host)
			if err := c.Auth(auth); err != nil {
				return tc.Markdown(), fmt.Errorf("smtp auth: %w", err)
			}
		}
	}

	if err := c.Mail(s.From); err != nil {
		return tc.Markdown(), fmt.Errorf("smtp mail from: %w", err)
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return tc.Markdown(), fmt.Errorf("smtp rcpt %s: %w", rcpt, err)
		}
	}

	w, err := c.Data()
	if err != nil {
		return tc.Markdown(), fmt.Errorf("smtp data: %w", err)
	}
	msg := s.buildMessage(to, subject, body)
	if _, err := w.Write([]byte(msg)); err != nil {
		return tc.Markdown(), fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return tc.Markdown(), fmt.Errorf("smtp close data: %w", err)
	}

	if err := c.Quit(); err != nil {
		// message is already accepted at this point
		return tc.Markdown(), nil
	}
	return tc.Markdown(), nil
}

// buildMessage renders headers plus body with CRLF line endings
func (s *Sender) buildMessage(to []string, subject, body string) string {
	var b strings.Builder
	b.WriteString("From: " + s.From + "\r\n")
	b.WriteString("To: " + strings.Join(to, ", ") + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("Date: " + time.Now().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	b.WriteString("\r\n")
	return b.String()
}
