package emailtest

import (
	"crypto/tls"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/emersion/go-sasl"
	gosmtp "github.com/emersion/go-smtp"
)

// Envelope is a message accepted by the SMTP server together with the
// state of the session that delivered it.
type Envelope struct {
	From string
	To   []string
	Data []byte

	// Hostname is the name the client sent with EHLO.
	Hostname string
	// TLS reports whether the session was encrypted at MAIL FROM.
	TLS bool
	// Authenticated reports whether the client authenticated.
	Authenticated bool
}

// Greeting is one HELO/EHLO received by the server.
type Greeting struct {
	Hostname string
	// TLS reports whether the greeting arrived over an encrypted channel.
	TLS bool
}

// SMTPOptions configures an SMTPServer.
type SMTPOptions struct {
	// ImplicitTLS serves TLS from the first byte.
	ImplicitTLS *tls.Config
	// StartTLS advertises STARTTLS. AUTH is then only offered after the
	// upgrade.
	StartTLS *tls.Config
	// Deliver is called with every accepted message.
	Deliver func(data []byte) error
}

// SMTPServer is an in-process SMTP server recording accepted mail.
type SMTPServer struct {
	Addr string

	mu        sync.Mutex
	messages  []*Envelope
	greetings []Greeting
	deliver   func([]byte) error
}

// NewSMTPServer starts a mock SMTP server. It is closed when the test ends.
func NewSMTPServer(t testing.TB, opts SMTPOptions) *SMTPServer {
	t.Helper()

	s := &SMTPServer{deliver: opts.Deliver}
	srv := gosmtp.NewServer(s)
	srv.Domain = "localhost"
	srv.AllowInsecureAuth = opts.StartTLS == nil
	srv.TLSConfig = opts.StartTLS

	ln := listen(t)
	s.Addr = ln.Addr().String()
	if opts.ImplicitTLS != nil {
		ln = tls.NewListener(ln, opts.ImplicitTLS)
	}

	go srv.Serve(ln)
	t.Cleanup(func() { srv.Close() })

	return s
}

// Messages returns the messages accepted so far.
func (s *SMTPServer) Messages() []*Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Envelope(nil), s.messages...)
}

// Sessions returns the number of sessions opened so far. The server opens
// a session for every greeting, so a STARTTLS connection counts twice.
func (s *SMTPServer) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.greetings)
}

// Greetings returns the HELO/EHLO commands received so far, in order.
func (s *SMTPServer) Greetings() []Greeting {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Greeting(nil), s.greetings...)
}

// NewSession is called by go-smtp after each HELO/EHLO. STARTTLS discards
// the session, so the client must greet again.
func (s *SMTPServer) NewSession(c *gosmtp.Conn) (gosmtp.Session, error) {
	_, isTLS := c.TLSConnectionState()
	s.mu.Lock()
	s.greetings = append(s.greetings, Greeting{Hostname: c.Hostname(), TLS: isTLS})
	s.mu.Unlock()
	return &smtpSession{server: s, conn: c}, nil
}

type smtpSession struct {
	server        *SMTPServer
	conn          *gosmtp.Conn
	authenticated bool
	env           *Envelope
}

var _ gosmtp.AuthSession = (*smtpSession)(nil)

func (s *smtpSession) AuthMechanisms() []string { return []string{sasl.Plain} }

func (s *smtpSession) Auth(mech string) (sasl.Server, error) {
	return sasl.NewPlainServer(func(_, username, password string) error {
		if username != User || password != Password {
			return errors.New("invalid credentials")
		}
		s.authenticated = true
		return nil
	}), nil
}

func (s *smtpSession) Mail(from string, _ *gosmtp.MailOptions) error {
	_, isTLS := s.conn.TLSConnectionState()
	s.env = &Envelope{
		From:          from,
		Hostname:      s.conn.Hostname(),
		TLS:           isTLS,
		Authenticated: s.authenticated,
	}
	return nil
}

func (s *smtpSession) Rcpt(to string, _ *gosmtp.RcptOptions) error {
	s.env.To = append(s.env.To, to)
	return nil
}

func (s *smtpSession) Data(r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.env.Data = b

	if s.server.deliver != nil {
		if err := s.server.deliver(b); err != nil {
			return &gosmtp.SMTPError{
				Code:         451,
				EnhancedCode: gosmtp.EnhancedCode{4, 3, 0},
				Message:      err.Error(),
			}
		}
	}

	s.server.mu.Lock()
	s.server.messages = append(s.server.messages, s.env)
	s.server.mu.Unlock()
	return nil
}

func (s *smtpSession) Reset() { s.env = nil }
func (s *smtpSession) Logout() error { return nil }
