package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"go.uber.org/zap"
)

// SMTPClient submits test messages to a mail server.
type SMTPClient struct {
	config SMTPConfig
	log    *zap.Logger
}

// SMTPConfig holds SMTP configuration
type SMTPConfig struct {
	Host     string
	Port     int // 0 selects the protocol default
	Protocol SendProtocol
	Username string
	Password string

	// Helo is the name sent with EHLO. Defaults to "localhost". Ignored for
	// starttls, which always greets as "localhost".
	Helo string
	// TLSConfig overrides the TLS settings for smtps and starttls.
	TLSConfig *tls.Config
	// Timeout bounds dialing and each command. Zero keeps library defaults.
	Timeout time.Duration
	// DKIM signs messages before submission when set.
	DKIM *DKIMSigner
}

// NewSMTPClient creates a new SMTP client
func NewSMTPClient(config SMTPConfig, log *zap.Logger) *SMTPClient {
	if log == nil {
		log = zap.NewNop()
	}
	return &SMTPClient{
		config: config,
		log:    log.With(zap.String("protocol", config.Protocol.String())),
	}
}

// Addr returns the host:port the client connects to.
func (c *SMTPClient) Addr() string {
	port := c.config.Port
	if port == 0 {
		port = c.config.Protocol.DefaultPort()
	}
	return net.JoinHostPort(c.config.Host, strconv.Itoa(port))
}

// Send delivers msg from its From address to its To address. The session
// is always terminated, whether or not the delivery succeeds.
func (c *SMTPClient) Send(ctx context.Context, msg *Message) error {
	client, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer c.quit(client)

	if c.config.Username != "" {
		auth := sasl.NewPlainClient("", c.config.Username, c.config.Password)
		if err := client.Auth(auth); err != nil {
			return &TransportError{Op: "auth", Addr: c.Addr(), Err: err}
		}
		c.log.Debug("Authenticated", zap.String("username", c.config.Username))
	}

	raw := msg.Raw
	if c.config.DKIM != nil {
		if raw, err = c.config.DKIM.Sign(raw); err != nil {
			return err
		}
		c.log.Debug("Signed message", zap.String("dkim_domain", c.config.DKIM.Domain))
	}

	if err := client.SendMail(msg.From.Email, []string{msg.To.Email}, bytes.NewReader(raw)); err != nil {
		return &TransportError{Op: "send", Addr: c.Addr(), Err: err}
	}

	c.log.Info("Message sent",
		zap.String("addr", c.Addr()),
		zap.String("message_id", msg.MessageID))
	return nil
}

// connect dials the server and sets up the session for the configured
// protocol, leaving it ready for AUTH.
func (c *SMTPClient) connect(ctx context.Context) (*smtp.Client, error) {
	addr := c.Addr()
	dialer := &net.Dialer{Timeout: c.config.Timeout}

	var conn net.Conn
	var err error
	switch c.config.Protocol {
	case SendSMTP, SendStartTLS:
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	case SendSMTPS:
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: c.tlsConfig()}
		conn, err = tlsDialer.DialContext(ctx, "tcp", addr)
	default:
		return nil, &ConfigError{Field: "sending.protocol", Value: c.config.Protocol.String()}
	}
	if err != nil {
		return nil, &TransportError{Op: "dial", Addr: addr, Err: err}
	}
	c.log.Debug("Connected", zap.String("addr", addr))

	var client *smtp.Client
	if c.config.Protocol == SendStartTLS {
		// EHLO, STARTTLS and a second EHLO over the encrypted channel. The
		// library greets as "localhost" here, so Helo does not apply.
		client, err = smtp.NewClientStartTLS(conn, c.tlsConfig())
		if err != nil {
			conn.Close()
			return nil, &TransportError{Op: "starttls", Addr: addr, Err: err}
		}
		c.log.Debug("Upgraded connection to TLS")
	} else {
		client = smtp.NewClient(conn)
		if err := client.Hello(c.helo()); err != nil {
			client.Close()
			return nil, &TransportError{Op: "hello", Addr: addr, Err: err}
		}
	}

	if c.config.Timeout > 0 {
		client.CommandTimeout = c.config.Timeout
		client.SubmissionTimeout = c.config.Timeout
	}

	return client, nil
}

func (c *SMTPClient) helo() string {
	if c.config.Helo == "" {
		return "localhost"
	}
	return c.config.Helo
}

func (c *SMTPClient) quit(client *smtp.Client) {
	if err := client.Quit(); err != nil {
		c.log.Debug("SMTP QUIT failed, closing connection", zap.Error(err))
		client.Close()
	}
}

func (c *SMTPClient) tlsConfig() *tls.Config {
	if c.config.TLSConfig != nil {
		return c.config.TLSConfig
	}
	return &tls.Config{ServerName: c.config.Host}
}
