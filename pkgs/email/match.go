package email

import (
	"go.uber.org/zap"
)

// Match reports whether rcvd is a copy of sent. Only the subject and the
// formatted date are compared; the Message-Id, body and recipients are not.
func Match(sent, rcvd *Message, log *zap.Logger) bool {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.Uint32("seq", rcvd.SeqNum))

	if sent.Subject != rcvd.Subject {
		log.Debug("The subjects are different",
			zap.String("sent", sent.Subject),
			zap.String("received", rcvd.Subject))
		return false
	}

	if sent.Date != rcvd.Date {
		log.Debug("The dates are different",
			zap.String("sent", sent.Date),
			zap.String("received", rcvd.Date))
		return false
	}

	log.Debug("Messages are the same", zap.String("message_id", rcvd.MessageID))
	return true
}
