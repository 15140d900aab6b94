package audit

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"ploxora/internal/model"
)

// EventName is the realtime event carrying new audit entries
const EventName = "audit:event"

// Broadcaster pushes an event to connected realtime clients
type Broadcaster interface {
	Broadcast(event string, data any)
}

// Notifier forwards a message to an external channel
type Notifier interface {
	Notify(ctx context.Context, message, level string)
}

// Auditor persists audit entries, broadcasts them and relays notifications
type Auditor struct {
	store       Store
	broadcaster Broadcaster
	notifier    Notifier
	logger      *logrus.Entry
	now         func() time.Time
}

// NewAuditor creates an auditor. broadcaster and notifier may be nil.
func NewAuditor(store Store, broadcaster Broadcaster, notifier Notifier, logger *logrus.Entry) *Auditor {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Auditor{
		store:       store,
		broadcaster: broadcaster,
		notifier:    notifier,
		logger:      logger.WithField("component", "audit"),
		now:         time.Now,
	}
}

// Record stores an audit entry. A failed write is logged, the action itself
// has already happened.
func (a *Auditor) Record(ctx context.Context, actor, action, details string) {
	e := &model.AuditEntry{
		Timestamp: a.now().UTC(),
		Admin:     actor,
		Action:    action,
		Details:   details,
	}
	if err := a.store.Append(ctx, e); err != nil {
		a.logger.WithError(err).WithField("action", action).Error("Failed to record audit entry")
		return
	}
	a.logger.WithFields(logrus.Fields{
		"admin":  actor,
		"action": action,
	}).Info(details)

	if a.broadcaster != nil {
		a.broadcaster.Broadcast(EventName, e)
	}
}

// Notify relays a message to the configured notifier
func (a *Auditor) Notify(ctx context.Context, message, level string) {
	if a.notifier == nil {
		return
	}
	a.notifier.Notify(ctx, message, level)
}

// List returns the latest entries, newest first
func (a *Auditor) List(ctx context.Context, limit int) ([]*model.AuditEntry, error) {
	return a.store.List(ctx, limit)
}
