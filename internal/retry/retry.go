// Package retry runs calls to external services with bounded exponential
// backoff. Whether an error is worth another attempt is decided by a
// Classifier so every adapter shares the same policy.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultMaxAttempts = 4
	DefaultBaseDelay   = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
)

// Decision is the outcome of classifying an error.
type Decision struct {
	Retry bool
	// After overrides the backoff delay when positive (Retry-After).
	After time.Duration
}

type Classifier func(err error) Decision

type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Classify    Classifier
	// Sleep replaces the real timer in tests.
	Sleep  func(time.Duration)
	Logger *slog.Logger
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
		Classify:    Classify,
	}
}

// Do calls fn until it succeeds, the classifier marks the error fatal, the
// context ends, or attempts run out.
func Do(ctx context.Context, p Policy, op string, fn func(ctx context.Context) error) error {
	_, err := Value(ctx, p, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Value is Do for calls that return a result.
func Value[T any](ctx context.Context, p Policy, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	classify := p.Classify
	if classify == nil {
		classify = Classify
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if attempt >= attempts || ctx.Err() != nil || isContextErr(err) {
			lastErr = err
			break
		}
		d := classify(err)
		if !d.Retry {
			return zero, err
		}
		delay := p.capDelay(d.After)
		if d.After <= 0 {
			delay = p.backoff(attempt)
		}
		if p.Logger != nil {
			p.Logger.Warn("retrying after error", "op", op, "attempt", attempt, "delay", delay, "error", err)
		}
		if err := p.sleep(ctx, delay); err != nil {
			return zero, err
		}
		lastErr = err
	}
	if attempts == 1 {
		return zero, lastErr
	}
	return zero, fmt.Errorf("%s: failed after %d attempts: %w", op, attempts, lastErr)
}

func (p Policy) backoff(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		return 0
	}
	maxDelay := p.maxDelay()
	// attempt 1 -> base, attempt 2 -> base*2, attempt 3 -> base*4, ...
	delay := base
	for i := 1; i < attempt; i++ {
		if delay > maxDelay/2 {
			delay = maxDelay
			break
		}
		delay *= 2
	}
	return p.capDelay(delay)
}

func (p Policy) maxDelay() time.Duration {
	if p.MaxDelay > 0 {
		return p.MaxDelay
	}
	return DefaultMaxDelay
}

func (p Policy) capDelay(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if m := p.maxDelay(); d > m {
		return m
	}
	return d
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	if p.Sleep != nil {
		p.Sleep(d)
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// StatusError is an HTTP failure reported by an upstream API.
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: http %d: %s", e.Service, e.StatusCode, strings.TrimSpace(e.Body))
}

// EmptyContentError means the upstream answered but with nothing usable.
type EmptyContentError struct {
	Op string
}

func (e *EmptyContentError) Error() string { return e.Op + ": empty content" }

// TimeoutError is a single attempt that ran past its own deadline while the
// caller's context was still live.
type TimeoutError struct {
	Op    string
	After time.Duration
}

func (e *TimeoutError) Error() string { return fmt.Sprintf("%s: timeout after %s", e.Op, e.After) }

type permanent struct{ err error }

func (p permanent) Error() string { return p.err.Error() }
func (p permanent) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanent{err: err}
}

// fatalMarkers are body fragments of errors no retry can fix.
var fatalMarkers = []string{
	"content policy",
	"content_policy",
	"safety system",
	"billing",
	"insufficient_quota",
	"invalid_api_key",
	"incorrect api key",
}

// Classify is the default classifier: 408, 429 and 5xx, network timeouts and
// empty content are retried. Auth, billing, content policy and other 4xx
// responses are fatal.
func Classify(err error) Decision {
	if err == nil || isContextErr(err) {
		return Decision{}
	}
	var perm permanent
	if errors.As(err, &perm) {
		return Decision{}
	}
	if IsFatalMessage(err.Error()) {
		return Decision{}
	}

	var empty *EmptyContentError
	if errors.As(err, &empty) {
		return Decision{Retry: true}
	}
	var timeout *TimeoutError
	if errors.As(err, &timeout) {
		return Decision{Retry: true}
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if RetryableStatus(statusErr.StatusCode) {
			return Decision{Retry: true, After: statusErr.RetryAfter}
		}
		return Decision{}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Decision{Retry: true}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return Decision{Retry: true}
	}
	return Decision{}
}

// RetryableStatus reports whether an HTTP status is transient.
func RetryableStatus(code int) bool {
	return code == http.StatusRequestTimeout ||
		code == http.StatusTooManyRequests ||
		code >= http.StatusInternalServerError
}

// IsFatalMessage reports whether an error text names a condition that will
// not go away on retry.
func IsFatalMessage(msg string) bool {
	m := strings.ToLower(msg)
	for _, marker := range fatalMarkers {
		if strings.Contains(m, marker) {
			return true
		}
	}
	return false
}

// ParseRetryAfter reads a Retry-After header in seconds or HTTP date form.
func ParseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}
