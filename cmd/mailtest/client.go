package main

import (
	"crypto/tls"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/takar/mailtest/pkgs/check"
	"github.com/takar/mailtest/pkgs/config"
	"github.com/takar/mailtest/pkgs/email"
)

// newChecker wires the clients described by cfg. Every protocol is parsed
// here, so an unsupported one fails before any connection is made.
func newChecker(cfg *config.Config, log *zap.Logger) (*check.Checker, error) {
	smtpClient, err := newSMTPClient(cfg.Sending, log)
	if err != nil {
		return nil, err
	}
	imapClient, err := newIMAPClient(cfg.Receiving, log)
	if err != nil {
		return nil, err
	}

	onError, err := check.ParseErrorPolicy(cfg.Retry.OnError)
	if err != nil {
		return nil, err
	}
	policy := check.Policy{
		Attempts: cfg.Retry.Attempts,
		Interval: time.Duration(cfg.Retry.Interval) * time.Second,
		OnError:  onError,
		Sleep:    check.Sleep,
	}

	tmpl := email.Template{
		From:    email.Address{Name: cfg.Message.FromName, Email: cfg.Message.FromAddr},
		To:      email.Address{Name: cfg.Message.ToName, Email: cfg.Message.ToAddr},
		Subject: cfg.Message.Subject,
		Body:    cfg.Message.Body,
	}

	return check.New(tmpl, smtpClient, imapClient, policy, log), nil
}

func newSMTPClient(s config.Sending, log *zap.Logger) (*email.SMTPClient, error) {
	protocol, err := email.ParseSendProtocol(s.Protocol)
	if err != nil {
		return nil, err
	}

	var signer *email.DKIMSigner
	if s.DKIM != nil {
		signer, err = email.LoadDKIMSigner(s.DKIM.Domain, s.DKIM.Selector, expandHome(s.DKIM.PrivateKey))
		if err != nil {
			return nil, err
		}
	}

	return email.NewSMTPClient(email.SMTPConfig{
		Host:      s.Host,
		Port:      s.Port,
		Protocol:  protocol,
		Username:  s.Username,
		Password:  s.Password,
		Helo:      s.Helo,
		TLSConfig: tlsConfig(s.Transport),
		Timeout:   time.Duration(s.Timeout) * time.Second,
		DKIM:      signer,
	}, log), nil
}

func newIMAPClient(r config.Receiving, log *zap.Logger) (*email.IMAPClient, error) {
	protocol, err := email.ParseReceiveProtocol(r.Protocol)
	if err != nil {
		return nil, err
	}

	var archive *email.Archive
	if r.Archive != "" {
		archive = email.NewArchive(expandHome(r.Archive))
	}

	return email.NewIMAPClient(email.IMAPConfig{
		Host:      r.Host,
		Port:      r.Port,
		Protocol:  protocol,
		Username:  r.Username,
		Password:  r.Password,
		Mailbox:   r.Mailbox,
		TLSConfig: tlsConfig(r.Transport),
		Timeout:   time.Duration(r.Timeout) * time.Second,
		Archive:   archive,
	}, log), nil
}

// tlsConfig returns nil unless verification is disabled, leaving the
// clients to verify against the configured host.
func tlsConfig(t config.Transport) *tls.Config {
	if !t.InsecureSkipVerify {
		return nil
	}
	return &tls.Config{ServerName: t.Host, InsecureSkipVerify: true}
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
