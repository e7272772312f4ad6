// Package message builds transport-ready email representations from logical
// send requests, independent of the provider that transmits them.
package message

import (
	"encoding/base64"
	"strings"

	"github.com/szhangbiao/mailsend/internal/b64url"
	"github.com/szhangbiao/mailsend/internal/core"
)

// Header is a single name/value header pair. Order matters in the composed
// output, so headers are kept as a slice, not a map.
type Header struct {
	Name  string
	Value string
}

// Composed is an RFC 5322 message: an ordered header block and a
// transport-encoded body, separated by exactly one blank line.
type Composed struct {
	Headers []Header
	Body    string
}

// Compose builds the transport-ready representation of a logical send
// request. The body is standard-Base64 encoded to match the declared
// Content-Transfer-Encoding; non-ASCII subjects are RFC 2047 encoded-word
// wrapped.
func Compose(email *core.Email) *Composed {
	contentType := "text/plain; charset=utf-8"
	if email.HTML {
		contentType = "text/html; charset=utf-8"
	}

	headers := []Header{
		{Name: "To", Value: email.To},
		{Name: "Subject", Value: encodeSubject(email.Subject)},
	}
	if email.From != "" && email.From != core.SentinelSelf {
		headers = append(headers, Header{Name: "From", Value: email.From})
	}
	if len(email.Cc) > 0 {
		headers = append(headers, Header{Name: "Cc", Value: strings.Join(email.Cc, ", ")})
	}
	if len(email.Bcc) > 0 {
		headers = append(headers, Header{Name: "Bcc", Value: strings.Join(email.Bcc, ", ")})
	}
	if email.ReplyTo != "" {
		headers = append(headers, Header{Name: "Reply-To", Value: email.ReplyTo})
	}
	headers = append(headers,
		Header{Name: "Content-Type", Value: contentType},
		Header{Name: "MIME-Version", Value: "1.0"},
		Header{Name: "Content-Transfer-Encoding", Value: "base64"},
	)

	return &Composed{
		Headers: headers,
		Body:    base64.StdEncoding.EncodeToString([]byte(email.Content)),
	}
}

// String renders the message: CRLF between header lines, one blank line
// between the header block and the body.
func (c *Composed) String() string {
	var b strings.Builder
	for _, h := range c.Headers {
		b.WriteString(h.Name)
		b.WriteString(": ")
		b.WriteString(h.Value)
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	b.WriteString(c.Body)
	return b.String()
}

// Envelope returns the whole rendered message Base64URL-encoded, the raw-blob
// payload shape expected by Gmail-style send endpoints.
func (c *Composed) Envelope() string {
	return b64url.EncodeString(c.String())
}

// Header returns the value of the first header with the given name, or ""
// when absent.
func (c *Composed) Header(name string) string {
	for _, h := range c.Headers {
		if h.Name == name {
			return h.Value
		}
	}
	return ""
}

// encodeSubject wraps the subject as an RFC 2047 encoded-word when any byte
// falls outside printable ASCII. Pure-ASCII subjects pass through unchanged.
func encodeSubject(subject string) string {
	ascii := true
	for i := 0; i < len(subject); i++ {
		if subject[i] > 0x7f {
			ascii = false
			break
		}
	}
	if ascii {
		return subject
	}
	return "=?UTF-8?B?" + base64.StdEncoding.EncodeToString([]byte(subject)) + "?="
}
