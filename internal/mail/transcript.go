package mail

import (
	"net"
	"strings"
	"sync"
)

// maxTranscriptLines caps each side of the recorded dialogue so a large
// message body cannot blow up the details field
const maxTranscriptLines = 100

// transcriptConn wraps a net.Conn and records the SMTP dialogue: every
// line the client sends and every line the server replies. AUTH payloads
// are redacted.
type transcriptConn struct {
	net.Conn

	mu     sync.Mutex
	client []string
	server []string

	clientRest string
	serverRest string
}

func newTranscriptConn(conn net.Conn) *transcriptConn {
	return &transcriptConn{Conn: conn}
}

// Write records outgoing lines before passing them on
func (t *transcriptConn) Write(p []byte) (int, error) {
	t.mu.Lock()
	t.clientRest = recordLines(t.clientRest+string(p), &t.client, true)
	t.mu.Unlock()
	return t.Conn.Write(p)
}

// Read records incoming lines after receiving them
func (t *transcriptConn) Read(p []byte) (int, error) {
	n, err := t.Conn.Read(p)
	if n > 0 {
		t.mu.Lock()
		t.serverRest = recordLines(t.serverRest+string(p[:n]), &t.server, false)
		t.mu.Unlock()
	}
	return n, err
}

// recordLines appends complete lines from buf to dst and returns the
// unterminated remainder
func recordLines(buf string, dst *[]string, redactAuth bool) string {
	for {
		i := strings.IndexByte(buf, '\n')
		if i < 0 {
			return buf
		}
		line := strings.TrimRight(buf[:i], "\r")
		buf = buf[i+1:]
		if len(*dst) >= maxTranscriptLines {
			continue
		}
		if redactAuth && strings.HasPrefix(strings.ToUpper(line), "AUTH ") {
			line = "AUTH [redacted]"
		}
		*dst = append(*dst, line)
	}
}

// Markdown renders the dialogue as two blockquoted sections
func (t *transcriptConn) Markdown() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return FormatTranscript(t.client, t.server)
}

// FormatTranscript renders client-sent and server-received line sections,
// each original line blockquoted
func FormatTranscript(clientLines, serverLines []string) string {
	var b strings.Builder
	b.WriteString("### Client Sent\n\n")
	for _, line := range clientLines {
		b.WriteString("> " + line + "\n")
	}
	b.WriteString("\n### Server Received\n\n")
	for _, line := range serverLines {
		b.WriteString("> " + line + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
