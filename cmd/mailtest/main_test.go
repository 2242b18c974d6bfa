package main

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/takar/mailtest/pkgs/config"
	"github.com/takar/mailtest/pkgs/email"
	"github.com/takar/mailtest/pkgs/email/emailtest"
)

type testEnv struct {
	smtp *emailtest.SMTPServer
	imap *emailtest.IMAPServer
	cfg  *config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	imapSrv := emailtest.NewIMAPServer(t, nil)
	smtpSrv := emailtest.NewSMTPServer(t, emailtest.SMTPOptions{Deliver: imapSrv.Deliver})

	cfg := config.Default()
	cfg.Sending.Host, cfg.Sending.Port = emailtest.SplitHostPort(t, smtpSrv.Addr)
	cfg.Receiving.Host, cfg.Receiving.Port = emailtest.SplitHostPort(t, imapSrv.Addr)
	cfg.Receiving.Username = emailtest.User
	cfg.Receiving.Password = emailtest.Password
	cfg.Message.FromAddr = "sender@example.com"
	cfg.Message.ToAddr = "receiver@example.com"

	return &testEnv{smtp: smtpSrv, imap: imapSrv, cfg: cfg}
}

func (e *testEnv) write(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".mailtest")
	if err := config.Save(path, e.cfg); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun_Found(t *testing.T) {
	env := newTestEnv(t)
	archive := filepath.Join(t.TempDir(), "found.mbox")
	env.cfg.Receiving.Archive = archive

	err := run(context.Background(), &options{configPath: env.write(t)}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("run() error: %v", err)
	}

	msgs := env.smtp.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 submitted message, got %d", len(msgs))
	}
	if msgs[0].From != "sender@example.com" {
		t.Errorf("MAIL FROM = %q", msgs[0].From)
	}
	if n := env.imap.Count(t); n != 0 {
		t.Errorf("expected the message to be deleted, %d left", n)
	}
	if _, err := os.Stat(archive); err != nil {
		t.Errorf("archive not written: %v", err)
	}
}

func TestRun_NotFound(t *testing.T) {
	env := newTestEnv(t)
	// Accepted mail goes nowhere, so the mailbox stays empty.
	env.smtp = emailtest.NewSMTPServer(t, emailtest.SMTPOptions{})
	env.cfg.Sending.Host, env.cfg.Sending.Port = emailtest.SplitHostPort(t, env.smtp.Addr)
	env.cfg.Retry.Attempts = 1

	err := run(context.Background(), &options{configPath: env.write(t)}, zap.NewNop())
	if !errors.Is(err, errNotFound) {
		t.Fatalf("run() error = %v, want errNotFound", err)
	}
	if len(env.smtp.Messages()) != 1 {
		t.Error("message was not submitted")
	}
}

func TestRun_UnsupportedProtocol(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.Receiving.Protocol = "pop3"

	err := run(context.Background(), &options{configPath: env.write(t)}, zap.NewNop())
	if !email.IsConfigError(err) {
		t.Fatalf("run() error = %v, want ConfigError", err)
	}
	if env.smtp.Sessions() != 0 || env.imap.Sessions() != 0 {
		t.Errorf("connections made before failing: smtp %d, imap %d", env.smtp.Sessions(), env.imap.Sessions())
	}
}

func TestRun_SendFailure(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.Sending.Port = 1
	env.cfg.Sending.Timeout = 1

	err := run(context.Background(), &options{configPath: env.write(t)}, zap.NewNop())
	var te *email.TransportError
	if !errors.As(err, &te) || te.Op != "dial" {
		t.Fatalf("run() error = %v, want dial TransportError", err)
	}
	if n := env.imap.Sessions(); n != 0 {
		t.Errorf("polled after a failed send: %d sessions", n)
	}
}

func TestRootCmd_Flags(t *testing.T) {
	cmd := newRootCmd()
	if err := cmd.ParseFlags([]string{"-d", "-c", "/tmp/other"}); err != nil {
		t.Fatal(err)
	}
	debug, err := cmd.Flags().GetBool("debug")
	if err != nil || !debug {
		t.Errorf("debug = %v, %v", debug, err)
	}
	path, err := cmd.Flags().GetString("config")
	if err != nil || path != "/tmp/other" {
		t.Errorf("config = %q, %v", path, err)
	}
}

func TestRootCmd_RejectsArgs(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"extra"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	if err := cmd.Execute(); err == nil {
		t.Error("expected an error for positional arguments")
	}
}

func TestTLSConfig(t *testing.T) {
	if c := tlsConfig(config.Transport{Host: "mail.example.com"}); c != nil {
		t.Errorf("tlsConfig() = %+v, want nil when verifying", c)
	}
	c := tlsConfig(config.Transport{Host: "mail.example.com", InsecureSkipVerify: true})
	if c == nil || !c.InsecureSkipVerify || c.ServerName != "mail.example.com" {
		t.Errorf("tlsConfig() = %+v", c)
	}
}
