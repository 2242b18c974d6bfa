package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/takar/mailtest/pkgs/check"
	"github.com/takar/mailtest/pkgs/config"
)

const version = "1.0.0"

// errNotFound ends the run with exit status 1 without printing an error.
var errNotFound = errors.New("test message not found")

// options holds the parsed command line.
type options struct {
	debug      bool
	configPath string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	switch {
	case err == nil:
		os.Exit(0)
	case errors.Is(err, errNotFound):
		os.Exit(1)
	default:
		fatal("%v", err)
	}
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func newRootCmd() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:   "mailtest",
		Short: "Check that mail sent over SMTP arrives in an IMAP mailbox",
		Long: `mailtest sends a test message through the configured SMTP server, then
polls the configured IMAP mailbox until the same message shows up and
deletes it. The exit status is 0 when the message was found and 1 otherwise.

A default config file is written on first run.`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, err := newLogger(o.debug)
			if err != nil {
				return err
			}
			defer log.Sync()

			return run(cmd.Context(), o, log)
		},
	}
	bindFlags(cmd.Flags(), o)
	return cmd
}

func bindFlags(fs *flag.FlagSet, o *options) {
	fs.BoolVarP(&o.debug, "debug", "d", false, "Show protocol traces and match diagnostics")
	fs.StringVarP(&o.configPath, "config", "c", defaultConfigPath(), "Config file")
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mailtest"
	}
	return filepath.Join(home, ".mailtest")
}

// run performs one check and maps its outcome to an error.
func run(ctx context.Context, o *options, log *zap.Logger) error {
	log.Debug("Setting log level to debug")

	cfg, err := config.Load(o.configPath, log)
	if err != nil {
		return err
	}
	log.Debug("Loaded config", zap.String("path", o.configPath), zap.Any("config", cfg.Redacted()))

	if err := cfg.Validate(); err != nil {
		return err
	}

	checker, err := newChecker(cfg, log)
	if err != nil {
		return err
	}

	res, err := checker.Run(ctx)
	if err != nil {
		return err
	}
	if res.State != check.Found {
		log.Info("Test message not found", zap.Int("attempts", res.Attempts))
		return errNotFound
	}
	log.Info("Test message received", zap.Int("attempts", res.Attempts))
	return nil
}
