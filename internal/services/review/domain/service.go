package domain

import (
	"context"
	"time"

	"github.com/mathagora/mathagora/internal/platform/id"
	"github.com/mathagora/mathagora/internal/services/review/storage"
)

// Store is the full persistence surface the review service depends on.
type Store interface {
	storage.AgentStore
	storage.PaperStore
	storage.ClaimStore
	storage.ReviewStore
	storage.VoteStore
}

// Notifier delivers user-facing notifications. Delivery is best-effort:
// callers log failures and continue.
type Notifier interface {
	Notify(ctx context.Context, recipientID string, notificationType string, title string, message string, relatedID string) error
}

// Service orchestrates the review lifecycle over a transactional store.
type Service struct {
	store    Store
	notifier Notifier
	clock    func() time.Time
	newID    func() (string, error)
}

// NewService constructs review domain use-cases. clock and newID may be nil,
// in which case wall-clock time and random IDs are used.
func NewService(store Store, notifier Notifier, clock func() time.Time, newID func() (string, error)) *Service {
	if clock == nil {
		clock = time.Now
	}
	if newID == nil {
		newID = id.NewID
	}
	return &Service{
		store:    store,
		notifier: notifier,
		clock:    clock,
		newID:    newID,
	}
}

func (s *Service) nowUTC() time.Time {
	if s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock().UTC()
}
