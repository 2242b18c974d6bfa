package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// IMAPClient looks for sent test messages in a mailbox.
type IMAPClient struct {
	config IMAPConfig
	log    *zap.Logger
}

// IMAPConfig holds IMAP configuration
type IMAPConfig struct {
	Host     string
	Port     int // 0 selects the protocol default
	Protocol ReceiveProtocol
	Username string
	Password string

	// Mailbox is the mailbox scanned for the message. Defaults to INBOX.
	Mailbox string
	// TLSConfig overrides the TLS settings for imaps.
	TLSConfig *tls.Config
	// Timeout bounds dialing. Zero keeps the library default.
	Timeout time.Duration

	// Archive receives a copy of the found message before it is deleted.
	Archive *Archive
	// LookupTXT resolves DKIM selector records; nil uses DNS.
	LookupTXT func(domain string) ([]string, error)
}

// NewIMAPClient creates a new IMAP client
func NewIMAPClient(config IMAPConfig, log *zap.Logger) *IMAPClient {
	if log == nil {
		log = zap.NewNop()
	}
	return &IMAPClient{
		config: config,
		log:    log.With(zap.String("protocol", config.Protocol.String())),
	}
}

// Addr returns the host:port the client connects to.
func (c *IMAPClient) Addr() string {
	port := c.config.Port
	if port == 0 {
		port = c.config.Protocol.DefaultPort()
	}
	return net.JoinHostPort(c.config.Host, strconv.Itoa(port))
}

func (c *IMAPClient) mailbox() string {
	if c.config.Mailbox == "" {
		return "INBOX"
	}
	return c.config.Mailbox
}

// Find scans the mailbox in ascending sequence order for a copy of sent.
// The first match is deleted and expunged and Find returns true. A scan
// without a match returns false and no error.
func (c *IMAPClient) Find(ctx context.Context, sent *Message) (bool, error) {
	client, err := c.connect()
	if err != nil {
		return false, err
	}
	defer c.logout(client)

	mailbox := c.mailbox()
	if _, err := client.Select(mailbox, nil).Wait(); err != nil {
		return false, &TransportError{Op: "select " + mailbox, Addr: c.Addr(), Err: err}
	}

	searchData, err := client.Search(&imap.SearchCriteria{}, nil).Wait()
	if err != nil {
		return false, &TransportError{Op: "search", Addr: c.Addr(), Err: err}
	}
	seqNums := searchData.AllSeqNums()
	slices.Sort(seqNums)
	c.log.Debug("Scanning mailbox", zap.String("mailbox", mailbox), zap.Int("messages", len(seqNums)))

	for _, seq := range seqNums {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		rcvd, err := c.fetch(client, seq)
		if err != nil {
			return false, err
		}
		if rcvd == nil || !Match(sent, rcvd, c.log) {
			continue
		}

		c.verifyDKIM(rcvd)
		c.archive(rcvd)
		if err := c.delete(client, seq); err != nil {
			return false, err
		}
		c.log.Info("Message found and deleted",
			zap.Uint32("seq", seq),
			zap.String("message_id", rcvd.MessageID))
		return true, nil
	}

	return false, nil
}

// connect establishes a connection to the IMAP server and logs in.
func (c *IMAPClient) connect() (*imapclient.Client, error) {
	addr := c.Addr()
	opts := &imapclient.Options{
		TLSConfig: c.tlsConfig(),
		Dialer:    &net.Dialer{Timeout: c.config.Timeout},
	}
	if c.log.Core().Enabled(zapcore.DebugLevel) {
		opts.DebugWriter = &traceWriter{log: c.log.Named("imap")}
	}

	var client *imapclient.Client
	var err error
	switch c.config.Protocol {
	case ReceiveIMAP:
		client, err = imapclient.DialInsecure(addr, opts)
	case ReceiveIMAPS:
		client, err = imapclient.DialTLS(addr, opts)
	default:
		return nil, &ConfigError{Field: "receiving.protocol", Value: c.config.Protocol.String()}
	}
	if err != nil {
		return nil, &TransportError{Op: "dial", Addr: addr, Err: err}
	}

	if err := client.Login(c.config.Username, c.config.Password).Wait(); err != nil {
		client.Close()
		return nil, &TransportError{Op: "login", Addr: addr, Err: err}
	}
	c.log.Debug("Logged in", zap.String("addr", addr), zap.String("username", c.config.Username))

	return client, nil
}

// fetch retrieves and parses one message. It returns nil when the message
// vanished or cannot be parsed; such messages never match.
func (c *IMAPClient) fetch(client *imapclient.Client, seq uint32) (*Message, error) {
	bodySection := &imap.FetchItemBodySection{
		Peek: true,
	}
	fetchOptions := &imap.FetchOptions{
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	msgs, err := client.Fetch(imap.SeqSetNum(seq), fetchOptions).Collect()
	if err != nil {
		return nil, &TransportError{Op: fmt.Sprintf("fetch %d", seq), Addr: c.Addr(), Err: err}
	}
	if len(msgs) == 0 {
		return nil, nil
	}

	raw := msgs[0].FindBodySection(bodySection)
	if raw == nil {
		c.log.Debug("Message has no body", zap.Uint32("seq", seq))
		return nil, nil
	}

	msg, err := ParseMessage(raw)
	if err != nil {
		c.log.Debug("Skipping unparsable message", zap.Uint32("seq", seq), zap.Error(err))
		return nil, nil
	}
	msg.SeqNum = seq
	return msg, nil
}

func (c *IMAPClient) delete(client *imapclient.Client, seq uint32) error {
	store := &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagDeleted},
	}
	if err := client.Store(imap.SeqSetNum(seq), store, nil).Close(); err != nil {
		return &TransportError{Op: "store", Addr: c.Addr(), Err: err}
	}
	if err := client.Expunge().Close(); err != nil {
		return &TransportError{Op: "expunge", Addr: c.Addr(), Err: err}
	}
	return nil
}

func (c *IMAPClient) tlsConfig() *tls.Config {
	if c.config.TLSConfig != nil {
		return c.config.TLSConfig
	}
	return &tls.Config{ServerName: c.config.Host}
}

// traceWriter logs the IMAP protocol trace at debug level. It reports every
// write as complete; imapclient treats a short write as a failed command.
type traceWriter struct {
	log *zap.Logger
}

func (w *traceWriter) Write(p []byte) (int, error) {
	if line := strings.TrimSpace(string(p)); line != "" {
		w.log.Debug(line)
	}
	return len(p), nil
}

func (c *IMAPClient) logout(client *imapclient.Client) {
	if err := client.Logout().Wait(); err != nil {
		c.log.Debug("IMAP logout failed", zap.Error(err))
	}
	client.Close()
}

// verifyDKIM logs the result of every DKIM signature on msg. It never
// affects the outcome of a check.
func (c *IMAPClient) verifyDKIM(msg *Message) {
	if !c.log.Core().Enabled(zapcore.DebugLevel) {
		return
	}
	verifications, err := VerifyDKIM(msg.Raw, c.config.LookupTXT)
	if err != nil {
		c.log.Debug("DKIM verification failed", zap.Error(err))
		return
	}
	for _, v := range verifications {
		if v.Err != nil {
			c.log.Debug("DKIM signature invalid", zap.String("domain", v.Domain), zap.Error(v.Err))
		} else {
			c.log.Debug("DKIM signature valid", zap.String("domain", v.Domain))
		}
	}
}

func (c *IMAPClient) archive(msg *Message) {
	if c.config.Archive == nil {
		return
	}
	if err := c.config.Archive.Append(msg, time.Now()); err != nil {
		c.log.Warn("Failed to archive message", zap.String("path", c.config.Archive.Path), zap.Error(err))
		return
	}
	c.log.Debug("Archived message", zap.String("path", c.config.Archive.Path))
}
