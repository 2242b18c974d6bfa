package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/takar/mailtest/pkgs/check"
	"github.com/takar/mailtest/pkgs/email"
)

// Transport holds connection settings shared by sending and receiving.
type Transport struct {
	Host string `json:"host" mapstructure:"host"`
	// Port 0 selects the protocol default when connecting.
	Port     int    `json:"port,omitempty" mapstructure:"port"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`

	InsecureSkipVerify bool `json:"insecure_skip_verify,omitempty" mapstructure:"insecure_skip_verify"`
	// Timeout is in seconds.
	Timeout int `json:"timeout,omitempty" mapstructure:"timeout"`
}

// DKIM configures signing of outgoing test messages.
type DKIM struct {
	Domain     string `json:"domain" mapstructure:"domain"`
	Selector   string `json:"selector" mapstructure:"selector"`
	PrivateKey string `json:"private_key" mapstructure:"private_key"`
}

// Sending holds the submission settings.
type Sending struct {
	Transport `mapstructure:",squash"`

	Helo string `json:"helo,omitempty" mapstructure:"helo"`
	DKIM *DKIM  `json:"dkim,omitempty" mapstructure:"dkim"`
}

// Receiving holds the retrieval settings.
type Receiving struct {
	Transport `mapstructure:",squash"`

	Mailbox string `json:"mailbox,omitempty" mapstructure:"mailbox"`
	// Archive is an mbox file receiving found messages.
	Archive string `json:"archive,omitempty" mapstructure:"archive"`
}

// Message describes the test message.
type Message struct {
	FromAddr string `json:"from_addr" mapstructure:"from_addr"`
	FromName string `json:"from_name" mapstructure:"from_name"`
	ToAddr   string `json:"to_addr" mapstructure:"to_addr"`
	ToName   string `json:"to_name" mapstructure:"to_name"`
	Subject  string `json:"subject" mapstructure:"subject"`
	Body     string `json:"body" mapstructure:"body"`
}

// Retry bounds the polling loop.
type Retry struct {
	Attempts int `json:"attempts" mapstructure:"attempts"`
	// Interval is in seconds.
	Interval int    `json:"interval" mapstructure:"interval"`
	OnError  string `json:"on_error" mapstructure:"on_error"`
}

// Config holds the run configuration
type Config struct {
	Sending   Sending   `json:"sending" mapstructure:"sending"`
	Receiving Receiving `json:"receiving" mapstructure:"receiving"`
	Message   Message   `json:"message" mapstructure:"message"`
	Retry     Retry     `json:"retry" mapstructure:"retry"`
}

// Default returns the configuration written when no config file exists.
// The bracketed values are placeholders meant to be edited.
func Default() *Config {
	return &Config{
		Sending: Sending{
			Transport: Transport{
				Host:     "localhost",
				Protocol: "smtp",
			},
		},
		Receiving: Receiving{
			Transport: Transport{
				Host:     "localhost",
				Protocol: "imap",
				Username: "[username]",
				Password: "[password]",
			},
			Mailbox: "INBOX",
		},
		Message: Message{
			FromAddr: "[sender@example.com]",
			FromName: "[Sender Example]",
			ToAddr:   "[receiver@example.com]",
			ToName:   "[Receiver Example]",
			Subject:  "Mailtest test message",
			Body:     "This test message is sent by mailtest.",
		},
		Retry: Retry{
			Attempts: 6,
			Interval: 10,
			OnError:  check.RetryOnError.String(),
		},
	}
}

// Load reads the config file at path and merges it over Default. A missing
// file is created with the default values, which are then used.
func Load(path string, log *zap.Logger) (*Config, error) {
	if log == nil {
		log = zap.NewNop()
	}

	cfg := Default()
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
		log.Info("Created default config file", zap.String("path", path))
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType(configType(path))
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var user Config
	if err := v.Unmarshal(&user); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	Merge(cfg, user)

	return cfg, nil
}

// configType maps the file extension to a viper format. Files without a
// recognised extension, like ~/.mailtest, are JSON.
func configType(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	switch ext {
	case "yaml", "yml", "toml":
		return ext
	}
	return "json"
}

// Save writes cfg to path as indented JSON.
func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge copies every non-zero value of src into dst. Zero values count as
// absent, so src cannot reset a field of dst to zero or empty.
func Merge(dst *Config, src Config) {
	mergeTransport(&dst.Sending.Transport, src.Sending.Transport)
	mergeString(&dst.Sending.Helo, src.Sending.Helo)
	if src.Sending.DKIM != nil {
		dkim := *src.Sending.DKIM
		dst.Sending.DKIM = &dkim
	}

	mergeTransport(&dst.Receiving.Transport, src.Receiving.Transport)
	mergeString(&dst.Receiving.Mailbox, src.Receiving.Mailbox)
	mergeString(&dst.Receiving.Archive, src.Receiving.Archive)

	mergeString(&dst.Message.FromAddr, src.Message.FromAddr)
	mergeString(&dst.Message.FromName, src.Message.FromName)
	mergeString(&dst.Message.ToAddr, src.Message.ToAddr)
	mergeString(&dst.Message.ToName, src.Message.ToName)
	mergeString(&dst.Message.Subject, src.Message.Subject)
	mergeString(&dst.Message.Body, src.Message.Body)

	mergeInt(&dst.Retry.Attempts, src.Retry.Attempts)
	mergeInt(&dst.Retry.Interval, src.Retry.Interval)
	mergeString(&dst.Retry.OnError, src.Retry.OnError)
}

func mergeTransport(dst *Transport, src Transport) {
	mergeString(&dst.Host, src.Host)
	mergeInt(&dst.Port, src.Port)
	mergeString(&dst.Protocol, src.Protocol)
	mergeString(&dst.Username, src.Username)
	mergeString(&dst.Password, src.Password)
	if src.InsecureSkipVerify {
		dst.InsecureSkipVerify = true
	}
	mergeInt(&dst.Timeout, src.Timeout)
}

func mergeString(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

func mergeInt(dst *int, src int) {
	if src != 0 {
		*dst = src
	}
}

// Validate checks the values that can be judged without connecting.
func (c *Config) Validate() error {
	if _, err := email.ParseSendProtocol(c.Sending.Protocol); err != nil {
		return err
	}
	if _, err := email.ParseReceiveProtocol(c.Receiving.Protocol); err != nil {
		return err
	}
	if _, err := check.ParseErrorPolicy(c.Retry.OnError); err != nil {
		return err
	}

	if c.Sending.Host == "" {
		return &email.ConfigError{Field: "sending.host", Reason: "host is required"}
	}
	if c.Receiving.Host == "" {
		return &email.ConfigError{Field: "receiving.host", Reason: "host is required"}
	}
	for field, port := range map[string]int{"sending.port": c.Sending.Port, "receiving.port": c.Receiving.Port} {
		if port < 0 || port > 65535 {
			return &email.ConfigError{Field: field, Value: fmt.Sprint(port), Reason: "out of range"}
		}
	}
	if c.Retry.Attempts < 1 {
		return &email.ConfigError{Field: "retry.attempts", Value: fmt.Sprint(c.Retry.Attempts), Reason: "must be at least 1"}
	}
	if c.Retry.Interval < 0 {
		return &email.ConfigError{Field: "retry.interval", Value: fmt.Sprint(c.Retry.Interval), Reason: "must not be negative"}
	}
	if c.Message.FromAddr == "" || c.Message.ToAddr == "" {
		return &email.ConfigError{Field: "message", Reason: "from_addr and to_addr are required"}
	}
	if d := c.Sending.DKIM; d != nil && (d.Domain == "" || d.Selector == "" || d.PrivateKey == "") {
		return &email.ConfigError{Field: "sending.dkim", Reason: "domain, selector and private_key are required"}
	}

	return nil
}

// Redacted returns a copy of the config with passwords masked, for logging.
func (c *Config) Redacted() Config {
	r := *c
	if r.Sending.Password != "" {
		r.Sending.Password = "***"
	}
	if r.Receiving.Password != "" {
		r.Receiving.Password = "***"
	}
	if c.Sending.DKIM != nil {
		dkim := *c.Sending.DKIM
		r.Sending.DKIM = &dkim
	}
	return r
}
