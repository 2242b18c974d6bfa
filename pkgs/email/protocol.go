package email

import (
	"errors"
	"fmt"
	"strings"
)

// SendProtocol selects how the submission session is set up.
type SendProtocol int

const (
	// SendSMTP is a plaintext session.
	SendSMTP SendProtocol = iota + 1
	// SendSMTPS encrypts the session from the first byte.
	SendSMTPS
	// SendStartTLS connects in plaintext and upgrades with STARTTLS.
	SendStartTLS
)

// ParseSendProtocol parses the protocol names used in the config file.
func ParseSendProtocol(s string) (SendProtocol, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "smtp":
		return SendSMTP, nil
	case "smtps":
		return SendSMTPS, nil
	case "starttls":
		return SendStartTLS, nil
	}
	return 0, &ConfigError{Field: "sending.protocol", Value: s, Reason: "want smtp, smtps or starttls"}
}

func (p SendProtocol) String() string {
	switch p {
	case SendSMTP:
		return "smtp"
	case SendSMTPS:
		return "smtps"
	case SendStartTLS:
		return "starttls"
	}
	return fmt.Sprintf("SendProtocol(%d)", int(p))
}

// DefaultPort returns the port used when none is configured.
func (p SendProtocol) DefaultPort() int {
	switch p {
	case SendSMTP:
		return 25
	case SendSMTPS:
		return 465
	case SendStartTLS:
		return 587
	}
	return 0
}

// ReceiveProtocol selects how the retrieval session is set up.
type ReceiveProtocol int

const (
	// ReceiveIMAP is a plaintext session.
	ReceiveIMAP ReceiveProtocol = iota + 1
	// ReceiveIMAPS encrypts the session from the first byte.
	ReceiveIMAPS
)

// ParseReceiveProtocol parses the protocol names used in the config file.
func ParseReceiveProtocol(s string) (ReceiveProtocol, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "imap":
		return ReceiveIMAP, nil
	case "imaps":
		return ReceiveIMAPS, nil
	}
	return 0, &ConfigError{Field: "receiving.protocol", Value: s, Reason: "want imap or imaps"}
}

func (p ReceiveProtocol) String() string {
	switch p {
	case ReceiveIMAP:
		return "imap"
	case ReceiveIMAPS:
		return "imaps"
	}
	return fmt.Sprintf("ReceiveProtocol(%d)", int(p))
}

// DefaultPort returns the port used when none is configured.
func (p ReceiveProtocol) DefaultPort() int {
	switch p {
	case ReceiveIMAP:
		return 143
	case ReceiveIMAPS:
		return 993
	}
	return 0
}

// ConfigError reports a configuration value that cannot be used. It is
// always returned before any network activity.
type ConfigError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid %s %q", e.Field, e.Value)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// TransportError reports a failure talking to a mail server: connection,
// TLS negotiation, authentication or a rejected command.
type TransportError struct {
	// Op is the step that failed, e.g. "dial", "starttls", "auth", "select".
	Op   string
	Addr string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsConfigError reports whether err is or wraps a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
