// Package session holds the signed-in user's context (user, role, token and
// current classroom) and ends it when the backend reports it expired.
package session

import (
	"context"
	"sync"

	"github.com/SAP-F-2025/portfolio-quiz/internal/events"
	"github.com/SAP-F-2025/portfolio-quiz/internal/models"
	"github.com/SAP-F-2025/portfolio-quiz/internal/utils"
	"github.com/SAP-F-2025/portfolio-quiz/internal/validator"
)

const ReasonUnauthorized = "unauthorized"

// Provider is the single owner of session state. Controllers read the
// classroom from it and call Expire when a request comes back 401.
type Provider struct {
	mu       sync.RWMutex
	store    Store
	data     Data
	expired  bool
	reason   string
	done     chan struct{}
	onExpire []func(reason string)

	validator *validator.Validator
	notifier  *events.Notifier
	logger    utils.Logger
}

func NewProvider(store Store, notifier *events.Notifier, logger utils.Logger) *Provider {
	if logger == nil {
		logger = utils.NewDefaultLogger()
	}
	return &Provider{
		store:     store,
		done:      make(chan struct{}),
		validator: validator.New(),
		notifier:  notifier,
		logger:    logger.With("component", "SessionProvider"),
	}
}

// Load restores the persisted session, if any.
func (p *Provider) Load(ctx context.Context) error {
	if p.store == nil {
		return nil
	}
	data, err := p.store.Load(ctx)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.data = data
	p.mu.Unlock()
	return nil
}

func (p *Provider) Current() Data {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.data
}

// Token satisfies client.TokenSource.
func (p *Provider) Token() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.data.Token
}

func (p *Provider) ClassCode() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.data.ClassCode()
}

// SetUser signs a user in. After an expiry it starts a new session: Expired
// reports false again and Done returns a fresh channel.
func (p *Provider) SetUser(ctx context.Context, user models.User, token string) error {
	if err := p.validator.ValidateStruct(&user); err != nil {
		return err
	}

	p.mu.Lock()
	if p.expired {
		p.expired = false
		p.reason = ""
		p.done = make(chan struct{})
	}
	p.mu.Unlock()

	return p.update(ctx, func(d *Data) {
		d.User = &user
		d.Token = token
	})
}

func (p *Provider) SetClassroom(ctx context.Context, classroom *models.Classroom) error {
	return p.update(ctx, func(d *Data) {
		d.Classroom = classroom
	})
}

func (p *Provider) update(ctx context.Context, fn func(*Data)) error {
	p.mu.Lock()
	fn(&p.data)
	data := p.data
	p.mu.Unlock()

	if p.store == nil {
		return nil
	}
	return p.store.Save(ctx, data)
}

// Clear signs out locally without marking the session expired.
func (p *Provider) Clear(ctx context.Context) error {
	p.mu.Lock()
	p.data = Data{}
	p.mu.Unlock()

	if p.store == nil {
		return nil
	}
	return p.store.Clear(ctx)
}

// OnExpire registers fn to run each time a session expires.
func (p *Provider) OnExpire(fn func(reason string)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onExpire = append(p.onExpire, fn)
}

// Expire ends the session. Repeated calls are no-ops until SetUser starts
// a new one.
func (p *Provider) Expire(ctx context.Context, reason string) {
	p.mu.Lock()
	if p.expired {
		p.mu.Unlock()
		return
	}
	p.expired = true
	p.reason = reason
	p.data = Data{}
	close(p.done)
	callbacks := append([]func(string){}, p.onExpire...)
	p.mu.Unlock()

	p.logger.WarnContext(ctx, "session expired", "reason", reason)
	if p.store != nil {
		if err := p.store.Clear(context.WithoutCancel(ctx)); err != nil {
			p.logger.WarnContext(ctx, "failed to clear expired session", "error", err)
		}
	}
	p.notifier.Emit(ctx, events.EventSessionExpired, events.SessionExpiredEvent{Reason: reason})
	for _, fn := range callbacks {
		fn(reason)
	}
}

func (p *Provider) Expired() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.expired
}

// Reason is the reason the current session expired with.
func (p *Provider) Reason() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.reason
}

// Done is closed when the current session expires.
func (p *Provider) Done() <-chan struct{} {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.done
}
