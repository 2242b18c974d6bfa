// Package check runs the send, poll and delete round trip.
package check

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/takar/mailtest/pkgs/email"
)

// State is the phase a check ended in.
type State int

const (
	Sending State = iota + 1
	Polling
	Found
	NotFound
	Failed
)

func (s State) String() string {
	switch s {
	case Sending:
		return "sending"
	case Polling:
		return "polling"
	case Found:
		return "found"
	case NotFound:
		return "not found"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Result describes a finished check.
type Result struct {
	State State
	// Message is the built message, also set when sending failed. It is
	// nil only when building failed.
	Message *email.Message
	// Attempts is the number of mailbox scans made.
	Attempts int
}

// Checker sends one test message and polls for it.
type Checker struct {
	template email.Template
	sender   email.Sender
	receiver email.Receiver
	policy   Policy
	log      *zap.Logger
}

// New returns a Checker. A nil log discards output.
func New(tmpl email.Template, sender email.Sender, receiver email.Receiver, policy Policy, log *zap.Logger) *Checker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Checker{
		template: tmpl,
		sender:   sender,
		receiver: receiver,
		policy:   policy,
		log:      log,
	}
}

// Run builds and sends the message, then scans the mailbox until the
// message is found and deleted or the retry budget is spent. Not finding
// the message is not an error: the Result state is NotFound.
func (c *Checker) Run(ctx context.Context) (*Result, error) {
	msg, err := email.BuildMessage(c.template)
	if err != nil {
		return &Result{State: Failed}, err
	}
	c.log.Debug("Built test message",
		zap.String("subject", msg.Subject),
		zap.String("date", msg.Date),
		zap.String("message_id", msg.MessageID))

	if err := c.sender.Send(ctx, msg); err != nil {
		return &Result{State: Failed, Message: msg}, fmt.Errorf("failed to send test message: %w", err)
	}

	c.log.Info("Polling for test message",
		zap.Int("attempts", c.policy.Attempts),
		zap.Duration("interval", c.policy.Interval))

	found, attempts, err := Retry(ctx, c.policy, c.log, func(ctx context.Context) (bool, error) {
		return c.receiver.Find(ctx, msg)
	})
	res := &Result{Message: msg, Attempts: attempts}
	switch {
	case err != nil:
		res.State = Failed
		return res, fmt.Errorf("failed to retrieve test message: %w", err)
	case found:
		res.State = Found
	default:
		res.State = NotFound
	}

	c.log.Info("Check finished", zap.Stringer("state", res.State), zap.Int("attempts", attempts))
	return res, nil
}
