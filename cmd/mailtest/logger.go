package main

import (
	"fmt"

	"go.uber.org/zap"
)

// newLogger writes human-readable logs to stderr. Debug enables protocol
// traces and match diagnostics.
func newLogger(debug bool) (*zap.Logger, error) {
	logConfig := zap.NewDevelopmentConfig()
	logConfig.Development = false
	logConfig.DisableStacktrace = true
	if debug {
		logConfig.Level.SetLevel(zap.DebugLevel)
	} else {
		logConfig.Level.SetLevel(zap.InfoLevel)
	}
	log, err := logConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return log, nil
}
