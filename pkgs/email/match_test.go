package email

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMatch_SubjectAndDateDecide(t *testing.T) {
	sent := &Message{
		From:      Address{Email: "sender@example.com"},
		To:        Address{Email: "rcpt@example.com"},
		Subject:   "Mailtest test message",
		Body:      "sent body",
		Date:      "Mon, 09 Feb 2026 08:00:00 +0100",
		MessageID: "<a@example.com>",
	}

	tests := []struct {
		name string
		rcvd Message
		want bool
	}{
		{
			name: "identical",
			rcvd: *sent,
			want: true,
		},
		{
			name: "other fields differ",
			rcvd: Message{
				From:      Address{Email: "someone@example.org"},
				To:        Address{Email: "other@example.org"},
				Subject:   sent.Subject,
				Body:      "different body",
				Date:      sent.Date,
				MessageID: "<b@example.org>",
			},
			want: true,
		},
		{
			name: "subject differs",
			rcvd: Message{Subject: "Other subject", Date: sent.Date},
			want: false,
		},
		{
			name: "date differs",
			rcvd: Message{Subject: sent.Subject, Date: "Mon, 09 Feb 2026 08:00:01 +0100"},
			want: false,
		},
		{
			name: "same instant in another zone",
			rcvd: Message{Subject: sent.Subject, Date: "Mon, 09 Feb 2026 07:00:00 +0000"},
			want: false,
		},
		{
			name: "both differ",
			rcvd: Message{Subject: "x", Date: "y"},
			want: false,
		},
	}

	for _, tc := range tests {
		rcvd := tc.rcvd
		if got := Match(sent, &rcvd, zap.NewNop()); got != tc.want {
			t.Errorf("%s: Match() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestMatch_LogsDifferingField(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core)

	sent := &Message{Subject: "a", Date: "d1"}
	Match(sent, &Message{Subject: "b", Date: "d1", SeqNum: 3}, log)
	Match(sent, &Message{Subject: "a", Date: "d2", SeqNum: 4}, log)

	if n := logs.FilterMessage("The subjects are different").Len(); n != 1 {
		t.Errorf("expected 1 subject diagnostic, got %d", n)
	}
	dates := logs.FilterMessage("The dates are different").All()
	if len(dates) != 1 {
		t.Fatalf("expected 1 date diagnostic, got %d", len(dates))
	}
	fields := dates[0].ContextMap()
	if fields["sent"] != "d1" || fields["received"] != "d2" {
		t.Errorf("unexpected diagnostic fields: %v", fields)
	}
}

func TestMatch_DiagnosticsAreDebugOnly(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	Match(&Message{Subject: "a"}, &Message{Subject: "b"}, zap.New(core))
	if logs.Len() != 0 {
		t.Errorf("expected no output at info level, got %d entries", logs.Len())
	}
}
