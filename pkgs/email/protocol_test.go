package email

import (
	"errors"
	"fmt"
	"testing"
)

func TestParseSendProtocol(t *testing.T) {
	tests := []struct {
		in   string
		want SendProtocol
		port int
	}{
		{"smtp", SendSMTP, 25},
		{"smtps", SendSMTPS, 465},
		{"starttls", SendStartTLS, 587},
		{" STARTTLS ", SendStartTLS, 587},
	}
	for _, tc := range tests {
		got, err := ParseSendProtocol(tc.in)
		if err != nil {
			t.Fatalf("ParseSendProtocol(%q) error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("ParseSendProtocol(%q) = %v, want %v", tc.in, got, tc.want)
		}
		if got.DefaultPort() != tc.port {
			t.Errorf("%v.DefaultPort() = %d, want %d", got, got.DefaultPort(), tc.port)
		}
	}
}

func TestParseReceiveProtocol(t *testing.T) {
	tests := []struct {
		in   string
		want ReceiveProtocol
		port int
	}{
		{"imap", ReceiveIMAP, 143},
		{"imaps", ReceiveIMAPS, 993},
	}
	for _, tc := range tests {
		got, err := ParseReceiveProtocol(tc.in)
		if err != nil {
			t.Fatalf("ParseReceiveProtocol(%q) error: %v", tc.in, err)
		}
		if got != tc.want || got.DefaultPort() != tc.port {
			t.Errorf("ParseReceiveProtocol(%q) = %v (port %d), want %v (port %d)",
				tc.in, got, got.DefaultPort(), tc.want, tc.port)
		}
	}
}

func TestParseProtocol_Unsupported(t *testing.T) {
	for _, in := range []string{"pop3", "", "lmtp", "imaps+starttls"} {
		if _, err := ParseSendProtocol(in); !IsConfigError(err) {
			t.Errorf("ParseSendProtocol(%q) error = %v, want ConfigError", in, err)
		}
		if _, err := ParseReceiveProtocol(in); !IsConfigError(err) {
			t.Errorf("ParseReceiveProtocol(%q) error = %v, want ConfigError", in, err)
		}
	}
}

func TestTransportErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("check: %w", &TransportError{Op: "dial", Addr: "localhost:25", Err: cause})

	if !errors.Is(err, cause) {
		t.Error("errors.Is does not reach the cause")
	}
	var te *TransportError
	if !errors.As(err, &te) || te.Op != "dial" {
		t.Errorf("errors.As = %v, op %q", te, te.Op)
	}
	if IsConfigError(err) {
		t.Error("transport error reported as config error")
	}
}
