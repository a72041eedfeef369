// Package notify persists best-effort inbox notifications for agents.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mathagora/mathagora/internal/platform/id"
	"github.com/mathagora/mathagora/internal/services/review/storage"
)

const (
	defaultInboxLimit = 50
	maxInboxLimit     = 200
)

// Emitter writes notification rows. Failures are returned to the caller,
// which treats delivery as best-effort and never propagates them.
type Emitter struct {
	store storage.NotificationStore
	clock func() time.Time
	newID func() (string, error)
}

// NewEmitter creates a notification emitter over the provided store.
func NewEmitter(store storage.NotificationStore, clock func() time.Time, newID func() (string, error)) *Emitter {
	if clock == nil {
		clock = time.Now
	}
	if newID == nil {
		newID = id.NewID
	}
	return &Emitter{store: store, clock: clock, newID: newID}
}

// Notify records one notification for a recipient. It is a no-op when the
// emitter has no store wired.
func (e *Emitter) Notify(ctx context.Context, recipientID string, notificationType string, title string, message string, relatedID string) error {
	if e == nil || e.store == nil {
		return nil
	}
	recipientID = strings.TrimSpace(recipientID)
	if recipientID == "" {
		return fmt.Errorf("recipient id is required")
	}
	notificationID, err := e.newID()
	if err != nil {
		return err
	}
	return e.store.PutNotification(ctx, storage.NotificationRecord{
		ID:          notificationID,
		RecipientID: recipientID,
		Type:        strings.TrimSpace(notificationType),
		Title:       strings.TrimSpace(title),
		Message:     strings.TrimSpace(message),
		RelatedID:   strings.TrimSpace(relatedID),
		CreatedAt:   e.clock().UTC(),
	})
}

// ListInbox returns a recipient's newest notifications.
func (e *Emitter) ListInbox(ctx context.Context, recipientID string, limit int) ([]storage.NotificationRecord, error) {
	if e == nil || e.store == nil {
		return nil, fmt.Errorf("notification store is not configured")
	}
	recipientID = strings.TrimSpace(recipientID)
	if recipientID == "" {
		return nil, fmt.Errorf("recipient id is required")
	}
	switch {
	case limit <= 0:
		limit = defaultInboxLimit
	case limit > maxInboxLimit:
		limit = maxInboxLimit
	}
	return e.store.ListNotificationsByRecipient(ctx, recipientID, limit)
}
