package notify

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime"
	"strings"
	"time"
)

// Message is a fully rendered notification, ready for a Transport.
type Message struct {
	ID      string // RFC 5322 Message-ID, angle brackets included
	From    string
	To      string
	ReplyTo string
	Subject string
	HTML    string
	Date    time.Time
}

// Bytes encodes m as an RFC 5322 message with a base64 text/html body.
// Header values are folded onto one line so user input cannot inject headers.
func (m Message) Bytes() []byte {
	var b bytes.Buffer
	header := func(k, v string) {
		if v != "" {
			fmt.Fprintf(&b, "%s: %s\r\n", k, v)
		}
	}
	header("From", oneLine(m.From))
	header("To", oneLine(m.To))
	header("Reply-To", oneLine(m.ReplyTo))
	header("Subject", mime.QEncoding.Encode("UTF-8", oneLine(m.Subject)))
	header("Date", m.Date.Format(time.RFC1123Z))
	header("Message-ID", m.ID)
	header("MIME-Version", "1.0")
	header("Content-Type", "text/html; charset=UTF-8")
	header("Content-Transfer-Encoding", "base64")
	b.WriteString("\r\n")

	enc := base64.StdEncoding.EncodeToString([]byte(m.HTML))
	for len(enc) > 76 {
		b.WriteString(enc[:76])
		b.WriteString("\r\n")
		enc = enc[76:]
	}
	b.WriteString(enc)
	b.WriteString("\r\n")
	return b.Bytes()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(strings.NewReplacer("\r", " ", "\n", " ").Replace(s)), " ")
}
