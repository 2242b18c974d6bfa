package email

import (
	"github.com/emersion/go-message/mail"
)

// Message is a test message, either built for sending or parsed from a
// mailbox.
type Message struct {
	From    Address
	To      Address
	Subject string
	Body    string

	// Date is the Date header exactly as it appears on the wire.
	Date      string
	MessageID string

	// SeqNum is the IMAP sequence number of a retrieved message. Zero for
	// built messages.
	SeqNum uint32

	// Raw is the encoded RFC 5322 message.
	Raw []byte
}

// Address represents an email address
type Address struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// String formats the address as `"Display Name" <address>`.
func (a Address) String() string {
	addr := mail.Address{Name: a.Name, Address: a.Email}
	return addr.String()
}

// Template describes the message a check sends.
type Template struct {
	From    Address
	To      Address
	Subject string
	Body    string
}
