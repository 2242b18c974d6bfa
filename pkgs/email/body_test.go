package email

import (
	"strings"
	"testing"
)

func TestParseMessage_PlainText(t *testing.T) {
	msg, err := ParseMessage([]byte(testMailRFC822))
	if err != nil {
		t.Fatalf("ParseMessage() error: %v", err)
	}

	if msg.Subject != "Test Subject" {
		t.Errorf("unexpected Subject: %q", msg.Subject)
	}
	if msg.Date != "Mon, 09 Feb 2026 08:00:00 +0000" {
		t.Errorf("unexpected Date: %q", msg.Date)
	}
	if msg.MessageID != "<test-1@example.com>" {
		t.Errorf("unexpected MessageID: %q", msg.MessageID)
	}
	if msg.From != (Address{Name: "Sender", Email: "sender@example.com"}) {
		t.Errorf("unexpected From: %+v", msg.From)
	}
	if msg.To.Email != "rcpt@example.com" {
		t.Errorf("unexpected To: %+v", msg.To)
	}
	if msg.Body != "Hello, World!" {
		t.Errorf("unexpected Body: %q", msg.Body)
	}
}

func TestParseMessage_MultipartSkipsAttachment(t *testing.T) {
	msg, err := ParseMessage([]byte(testMailMultipart))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(msg.Body, "Plain text body") {
		t.Errorf("unexpected Body: %q", msg.Body)
	}
}

func TestParseMessage_NestedMultipart(t *testing.T) {
	msg, err := ParseMessage([]byte(testMailNested))
	if err != nil {
		t.Fatal(err)
	}
	if msg.Subject != "Nested Mültipart" {
		t.Errorf("encoded subject not decoded: %q", msg.Subject)
	}
	if !strings.Contains(msg.Body, "Plain version") {
		t.Errorf("expected text/plain alternative, got %q", msg.Body)
	}
}

func TestParseMessage_KeepsRaw(t *testing.T) {
	raw := []byte(testMailRFC822)
	msg, err := ParseMessage(raw)
	if err != nil {
		t.Fatal(err)
	}
	if string(msg.Raw) != testMailRFC822 {
		t.Error("Raw does not hold the original bytes")
	}
}
