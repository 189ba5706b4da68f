package events

import (
	"context"

	"github.com/SAP-F-2025/portfolio-quiz/internal/utils"
	"k8s.io/utils/clock"
)

// Notifier turns controller outcomes into published events. Publishing is
// best effort: failures are logged and never reach the caller.
type Notifier struct {
	publisher EventPublisher
	clock     clock.PassiveClock
	logger    utils.Logger
}

func NewNotifier(publisher EventPublisher, c clock.PassiveClock, logger utils.Logger) *Notifier {
	if c == nil {
		c = clock.RealClock{}
	}
	if logger == nil {
		logger = utils.NewDefaultLogger()
	}
	return &Notifier{publisher: publisher, clock: c, logger: logger.With("component", "Notifier")}
}

func (n *Notifier) Success(ctx context.Context, message string) {
	n.Toast(ctx, LevelSuccess, message)
}

func (n *Notifier) Error(ctx context.Context, message string) {
	n.Toast(ctx, LevelError, message)
}

func (n *Notifier) Info(ctx context.Context, message string) {
	n.Toast(ctx, LevelInfo, message)
}

func (n *Notifier) Toast(ctx context.Context, level Level, message string) {
	if n == nil {
		return
	}
	n.publish(ctx, NewToastEvent(level, message, n.clock.Now()))
}

// Emit publishes a domain event alongside the toasts.
func (n *Notifier) Emit(ctx context.Context, eventType EventType, data interface{}) {
	if n == nil {
		return
	}
	n.publish(ctx, NewNotificationEvent(eventType, n.clock.Now(), data))
}

func (n *Notifier) publish(ctx context.Context, event *NotificationEvent) {
	if n.publisher == nil {
		return
	}
	if err := n.publisher.PublishNotificationEvent(context.WithoutCancel(ctx), event); err != nil {
		n.logger.WarnContext(ctx, "notification dropped", "event_type", event.Type, "error", err)
	}
}
