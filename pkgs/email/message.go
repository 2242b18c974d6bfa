package email

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"
)

// BuildMessage builds the test message for t, dated now in local time and
// carrying a fresh Message-Id.
func BuildMessage(t Template) (*Message, error) {
	return buildMessage(t, time.Now())
}

func buildMessage(t Template, now time.Time) (*Message, error) {
	var header mail.Header
	header.SetDate(now)
	header.SetSubject(t.Subject)
	header.SetAddressList("From", []*mail.Address{{
		Name:    t.From.Name,
		Address: t.From.Email,
	}})
	header.SetAddressList("To", []*mail.Address{{
		Name:    t.To.Name,
		Address: t.To.Email,
	}})

	messageID := GenerateMessageID()
	header.Set("Message-Id", messageID)

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, header)
	if err != nil {
		return nil, fmt.Errorf("failed to create message writer: %w", err)
	}

	var h mail.InlineHeader
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	w, err := mw.CreateSingleInline(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create text part: %w", err)
	}
	if _, err := io.WriteString(w, t.Body); err != nil {
		return nil, fmt.Errorf("failed to write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	return &Message{
		From:      t.From,
		To:        t.To,
		Subject:   t.Subject,
		Body:      t.Body,
		Date:      header.Get("Date"),
		MessageID: messageID,
		Raw:       buf.Bytes(),
	}, nil
}

// GenerateMessageID produces a RFC 5322 Message-ID that is unique across
// hosts and processes.
// Format: <nanos.pid.uuid@hostname>
func GenerateMessageID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "localhost"
	}
	host = strings.Map(func(r rune) rune {
		if r <= ' ' || r == '<' || r == '>' || r == '@' {
			return -1
		}
		return r
	}, host)
	if host == "" {
		host = "localhost"
	}

	return fmt.Sprintf("<%d.%d.%s@%s>", time.Now().UnixNano(), os.Getpid(),
		strings.ReplaceAll(uuid.NewString(), "-", ""), host)
}
