package email

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	gomessage "github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

// ParseMessage parses a raw RFC 5322 message as fetched from a mailbox.
// Unknown charsets are tolerated; the body is then left undecoded.
func ParseMessage(raw []byte) (*Message, error) {
	entity, err := gomessage.Read(bytes.NewReader(raw))
	if err != nil && !gomessage.IsUnknownCharset(err) {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	header := mail.Header{Header: entity.Header}
	msg := &Message{
		Date:      header.Get("Date"),
		MessageID: header.Get("Message-Id"),
		Raw:       raw,
	}
	if msg.Subject, err = header.Subject(); err != nil {
		msg.Subject = header.Get("Subject")
	}
	msg.From = firstAddress(header, "From")
	msg.To = firstAddress(header, "To")
	msg.Body = textBody(entity)

	return msg, nil
}

func firstAddress(h mail.Header, key string) Address {
	addrs, err := h.AddressList(key)
	if err != nil || len(addrs) == 0 {
		return Address{}
	}
	return Address{Name: addrs[0].Name, Email: addrs[0].Address}
}

// textBody returns the first text/plain part of entity, walking nested
// multiparts.
func textBody(entity *gomessage.Entity) string {
	if mr := entity.MultipartReader(); mr != nil {
		for {
			part, err := mr.NextPart()
			if err != nil {
				return ""
			}
			if body := textBody(part); body != "" {
				return body
			}
		}
	}

	ct, _, _ := entity.Header.ContentType()
	if ct != "" && !strings.HasPrefix(ct, "text/plain") {
		return ""
	}
	body, err := io.ReadAll(entity.Body)
	if err != nil {
		return ""
	}
	return string(body)
}
