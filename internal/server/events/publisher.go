package events

import (
	"context"
	"time"

	"github.com/distrischool/authservice/internal/logging"
	"github.com/distrischool/authservice/internal/server/models"
)

// Publisher delivers one lifecycle event to the broker.
type Publisher interface {
	Publish(ctx context.Context, event LifecycleEvent) error
}

// Notifier publishes lifecycle events on a best-effort basis: failures are
// logged and never returned, and each attempt is bounded by timeout.
type Notifier struct {
	publisher Publisher
	timeout   time.Duration
	clock     func() time.Time
	logger    logging.Logger
}

func NewNotifier(p Publisher, timeout time.Duration, clock func() time.Time, logger logging.Logger) *Notifier {
	if clock == nil {
		clock = time.Now
	}
	return &Notifier{
		publisher: p,
		timeout:   timeout,
		clock:     clock,
		logger:    logger.With("module", "events"),
	}
}

func (n *Notifier) Notify(ctx context.Context, eventType string, account *models.Account) {
	event := NewLifecycleEvent(eventType, account, n.clock())

	// Publishing outlives the request context.
	ctx = context.WithoutCancel(ctx)
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	if err := n.publisher.Publish(ctx, event); err != nil {
		n.logger.Error(ctx, "publish event failed", "event_type", eventType, "account_id", account.ID, "error", err)
		return
	}
	n.logger.Debug(ctx, "event published", "event_type", eventType, "account_id", account.ID)
}

// LogPublisher is used when no broker is configured.
type LogPublisher struct {
	logger logging.Logger
}

func NewLogPublisher(logger logging.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.With("module", "events_disabled")}
}

func (p *LogPublisher) Publish(ctx context.Context, e LifecycleEvent) error {
	p.logger.Info(ctx, "event", "event_type", e.EventType, "account_id", e.AccountID, "email", e.Email, "role", e.Role)
	return nil
}
