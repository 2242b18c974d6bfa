package emailtest

import (
	"crypto/tls"
	"fmt"
	"net"
	"sync/atomic"
	"testing"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-imap/v2/imapserver"
	"github.com/emersion/go-imap/v2/imapserver/imapmemserver"
)

// IMAPServer is an in-memory IMAP server with a single user owning an
// INBOX.
type IMAPServer struct {
	Addr string

	tls      bool
	sessions atomic.Int32
}

// NewIMAPServer starts an in-memory IMAP server. A non-nil tlsConfig serves
// implicit TLS. The server is closed when the test ends.
func NewIMAPServer(t testing.TB, tlsConfig *tls.Config) *IMAPServer {
	t.Helper()

	memSrv := imapmemserver.New()
	user := imapmemserver.NewUser(User, Password)
	if err := user.Create("INBOX", nil); err != nil {
		t.Fatal(err)
	}
	memSrv.AddUser(user)

	s := &IMAPServer{tls: tlsConfig != nil}
	srv := imapserver.New(&imapserver.Options{
		NewSession: func(_ *imapserver.Conn) (imapserver.Session, *imapserver.GreetingData, error) {
			s.sessions.Add(1)
			return memSrv.NewSession(), nil, nil
		},
		InsecureAuth: true,
		Caps: imap.CapSet{
			imap.CapIMAP4rev1: {},
		},
	})

	ln := listen(t)
	s.Addr = ln.Addr().String()
	if tlsConfig != nil {
		ln = tls.NewListener(ln, tlsConfig)
	}

	go srv.Serve(ln)
	t.Cleanup(func() { srv.Close() })

	return s
}

// Sessions returns the number of sessions opened so far, including those
// opened by Deliver and Count.
func (s *IMAPServer) Sessions() int {
	return int(s.sessions.Load())
}

func (s *IMAPServer) dial() (*imapclient.Client, error) {
	var conn net.Conn
	var err error
	if s.tls {
		conn, err = tls.Dial("tcp", s.Addr, InsecureTLSConfig())
	} else {
		conn, err = net.Dial("tcp", s.Addr)
	}
	if err != nil {
		return nil, err
	}
	c := imapclient.New(conn, nil)
	if err := c.Login(User, Password).Wait(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// Deliver appends a raw RFC 5322 message to INBOX.
func (s *IMAPServer) Deliver(raw []byte) error {
	c, err := s.dial()
	if err != nil {
		return err
	}
	defer c.Close()

	appendCmd := c.Append("INBOX", int64(len(raw)), nil)
	if _, err := appendCmd.Write(raw); err != nil {
		return err
	}
	if err := appendCmd.Close(); err != nil {
		return err
	}
	if _, err := appendCmd.Wait(); err != nil {
		return fmt.Errorf("append: %w", err)
	}
	return c.Logout().Wait()
}

// Append appends a raw message to INBOX, failing the test on error.
func (s *IMAPServer) Append(t testing.TB, raw string) {
	t.Helper()
	if err := s.Deliver([]byte(raw)); err != nil {
		t.Fatal(err)
	}
}

// Count returns the number of messages in INBOX.
func (s *IMAPServer) Count(t testing.TB) int {
	t.Helper()
	c, err := s.dial()
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	data, err := c.Select("INBOX", nil).Wait()
	if err != nil {
		t.Fatal(err)
	}
	return int(data.NumMessages)
}
