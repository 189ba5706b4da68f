package session

import (
	"context"
	"time"

	"github.com/SAP-F-2025/portfolio-quiz/internal/client"
	"github.com/SAP-F-2025/portfolio-quiz/internal/models"
	"github.com/SAP-F-2025/portfolio-quiz/internal/utils"
	"github.com/golang-jwt/jwt/v5"
	"k8s.io/utils/clock"
)

const (
	MinCheckInterval     = 5 * time.Second
	MaxCheckInterval     = 24 * time.Hour
	DefaultCheckInterval = 5 * time.Minute
)

type StatusChecker interface {
	SessionStatus(ctx context.Context) (*models.SessionStatusResponse, error)
}

// Watcher polls the session endpoint and expires the provider once the
// backend stops recognising the session.
type Watcher struct {
	provider *Provider
	checker  StatusChecker
	clock    clock.Clock
	logger   utils.Logger
}

func NewWatcher(provider *Provider, checker StatusChecker, c clock.Clock, logger utils.Logger) *Watcher {
	if c == nil {
		c = clock.RealClock{}
	}
	if logger == nil {
		logger = utils.NewDefaultLogger()
	}
	return &Watcher{
		provider: provider,
		checker:  checker,
		clock:    c,
		logger:   logger.With("component", "SessionWatcher"),
	}
}

// Run checks immediately and then again whenever the previous answer says
// the session would lapse. It returns nil once the session has expired and
// ctx.Err() when cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		next, expired := w.Check(ctx)
		if expired {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		timer := w.clock.NewTimer(next)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-w.provider.Done():
			timer.Stop()
			return nil
		case <-timer.C():
		}
	}
}

// Check asks the backend once and returns the delay until the next check.
func (w *Watcher) Check(ctx context.Context) (time.Duration, bool) {
	if w.provider.Expired() {
		return 0, true
	}

	status, err := w.checker.SessionStatus(ctx)
	switch {
	case client.IsSessionExpired(err):
		w.provider.Expire(ctx, ReasonUnauthorized)
		return 0, true
	case err != nil:
		// A 5xx envelope is the backend failing, not an answer about the session.
		if api, ok := client.AsAPIError(err); ok && api.Status < 500 {
			w.provider.Expire(ctx, api.Message)
			return 0, true
		}
		w.logger.WarnContext(ctx, "session check failed", "error", err)
		return DefaultCheckInterval, false
	case !status.Success:
		w.provider.Expire(ctx, status.Message)
		return 0, true
	}

	return NextCheck(status.ExpiresInMs, w.provider.Token(), w.clock.Now()), false
}

// NextCheck picks the delay until the next session check: the backend's
// expiresInMs when present, else the token's exp claim, else the default.
// The result is clamped to [MinCheckInterval, MaxCheckInterval].
func NextCheck(expiresInMs *int64, token string, now time.Time) time.Duration {
	next := DefaultCheckInterval
	if expiresInMs != nil {
		next = time.Duration(*expiresInMs) * time.Millisecond
	} else if exp, ok := TokenExpiry(token); ok {
		next = exp.Sub(now)
	}
	return clamp(next)
}

func clamp(d time.Duration) time.Duration {
	if d < MinCheckInterval {
		return MinCheckInterval
	}
	if d > MaxCheckInterval {
		return MaxCheckInterval
	}
	return d
}

// TokenExpiry reads the exp claim of a JWT without verifying it. The
// backend verifies tokens; the client only schedules around them.
func TokenExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
