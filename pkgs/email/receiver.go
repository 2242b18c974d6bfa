package email

import "context"

// Sender is implemented by SMTPClient. It lets the check runner submit a
// message without depending on the transport.
type Sender interface {
	// Send submits msg and terminates the session.
	Send(ctx context.Context, msg *Message) error
}

// Receiver is implemented by IMAPClient.
type Receiver interface {
	// Find scans the mailbox once for a message matching sent. A match is
	// deleted before Find returns true.
	Find(ctx context.Context, sent *Message) (bool, error)
}

var (
	_ Sender   = (*SMTPClient)(nil)
	_ Receiver = (*IMAPClient)(nil)
)
