package check

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/takar/mailtest/pkgs/email"
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the Sleeper backed by a timer.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ErrorPolicy decides what a failed retrieval attempt does to the loop.
type ErrorPolicy int

const (
	// RetryOnError logs the error and spends the attempt.
	RetryOnError ErrorPolicy = iota + 1
	// AbortOnError ends the loop with the error.
	AbortOnError
)

// ParseErrorPolicy parses the retry.on_error config value. Empty selects
// RetryOnError.
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "retry":
		return RetryOnError, nil
	case "abort":
		return AbortOnError, nil
	}
	return 0, &email.ConfigError{Field: "retry.on_error", Value: s, Reason: "want retry or abort"}
}

func (p ErrorPolicy) String() string {
	switch p {
	case RetryOnError:
		return "retry"
	case AbortOnError:
		return "abort"
	}
	return "unknown"
}

// Policy bounds the polling loop.
type Policy struct {
	// Attempts is the total number of calls, not the number of repeats.
	Attempts int
	// Interval is the fixed wait between two attempts.
	Interval time.Duration
	OnError  ErrorPolicy
	// Sleep defaults to Sleep.
	Sleep Sleeper
}

// DefaultPolicy returns 6 attempts 10 seconds apart.
func DefaultPolicy() Policy {
	return Policy{
		Attempts: 6,
		Interval: 10 * time.Second,
		OnError:  RetryOnError,
		Sleep:    Sleep,
	}
}

// Retry calls fn until it reports true or p.Attempts calls have been made,
// waiting p.Interval between calls. There is no wait after the last call.
// It returns whether fn succeeded and the number of calls made.
func Retry(ctx context.Context, p Policy, log *zap.Logger, fn func(ctx context.Context) (bool, error)) (bool, int, error) {
	if log == nil {
		log = zap.NewNop()
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	attempts := max(p.Attempts, 1)

	for i := 1; i <= attempts; i++ {
		ok, err := fn(ctx)
		switch {
		case err == nil && ok:
			return true, i, nil
		case err == nil:
			log.Debug("Attempt failed", zap.Int("attempt", i), zap.Int("attempts", attempts))
		case email.IsConfigError(err), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return false, i, err
		case p.OnError == AbortOnError:
			return false, i, err
		default:
			log.Warn("Attempt failed with error", zap.Int("attempt", i), zap.Int("attempts", attempts), zap.Error(err))
		}

		if i == attempts {
			break
		}
		log.Debug("Waiting before next attempt", zap.Duration("interval", p.Interval))
		if err := sleep(ctx, p.Interval); err != nil {
			return false, i, err
		}
	}

	return false, attempts, nil
}
