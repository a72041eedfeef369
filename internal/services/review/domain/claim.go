package domain

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/mathagora/mathagora/internal/services/review/storage"
)

// claimLifetime is the cooperative timeout on a review claim. Expiry is
// derived from the timestamp on every read; the stored state is a cache.
const claimLifetime = 7 * 24 * time.Hour

// ClaimResult reports a granted claim and remaining slot capacity.
type ClaimResult struct {
	ClaimID        string
	ExpiresAt      time.Time
	SlotsRemaining int
}

// ClaimOverview reports slot occupancy and the caller's own claim, if any.
type ClaimOverview struct {
	SlotsTotal int
	SlotsTaken int
	YourClaim  *storage.ClaimRecord
}

// claimExpired reports whether the claim's window has elapsed at now,
// independent of the stored state field.
func claimExpired(claim storage.ClaimRecord, now time.Time) bool {
	return now.After(claim.ExpiresAt)
}

// ClaimReview reserves a review slot on a paper for an agent.
//
// The existence pre-check gives friendly errors, but the unique
// (paper, reviewer) index is the authoritative duplicate guard: a racing
// insert loses with a conflict and is reported as an already-held claim.
func (s *Service) ClaimReview(ctx context.Context, paperID string, agentID string) (ClaimResult, error) {
	if s == nil || s.store == nil {
		return ClaimResult{}, errStoreNotConfigured
	}
	paperID = strings.TrimSpace(paperID)
	agentID = strings.TrimSpace(agentID)

	paper, err := s.GetPaper(ctx, paperID)
	if err != nil {
		return ClaimResult{}, err
	}
	if paper.Type == storage.PaperTypeProblem {
		return ClaimResult{}, errNotReviewable(string(paper.Status))
	}
	if paper.Status.IsTerminal() {
		return ClaimResult{}, errNotReviewable(string(paper.Status))
	}
	if paper.AuthorID == agentID {
		return ClaimResult{}, errSelfReview()
	}
	if _, err := s.GetAgent(ctx, agentID); err != nil {
		return ClaimResult{}, err
	}

	now := s.nowUTC()
	existing, err := s.store.GetClaim(ctx, paperID, agentID)
	switch {
	case err == nil:
		if existing.State == storage.ClaimStateSubmitted {
			return ClaimResult{}, errAlreadyReviewed()
		}
		if !claimExpired(existing, now) && existing.State == storage.ClaimStateClaimed {
			return ClaimResult{}, errAlreadyClaimed()
		}
		// The agent's previous claim lapsed. Its slot was never released, so
		// re-arm the same row instead of taking a second slot.
		return s.renewExpiredClaim(ctx, paper, existing, now)
	case errors.Is(err, storage.ErrNotFound):
		// fresh claim below
	default:
		return ClaimResult{}, err
	}

	if err := s.store.ClaimReviewerSlot(ctx, paperID, now); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return ClaimResult{}, errSlotsExhausted()
		}
		return ClaimResult{}, err
	}

	claimID, err := s.newID()
	if err != nil {
		return ClaimResult{}, err
	}
	claim := storage.ClaimRecord{
		ID:         claimID,
		PaperID:    paperID,
		ReviewerID: agentID,
		State:      storage.ClaimStateClaimed,
		ExpiresAt:  now.Add(claimLifetime),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.PutClaim(ctx, claim); err != nil {
		// Undo the slot we took before failing.
		if releaseErr := s.store.ReleaseReviewerSlot(ctx, paperID, now); releaseErr != nil {
			log.Printf("review: release slot after failed claim insert on paper %s: %v", paperID, releaseErr)
		}
		if errors.Is(err, storage.ErrConflict) {
			return ClaimResult{}, errAlreadyClaimed()
		}
		return ClaimResult{}, err
	}

	if paper.Status == storage.PaperStatusOpen {
		if err := s.store.MarkPaperInProgress(ctx, paperID, now); err != nil {
			log.Printf("review: mark paper %s in progress: %v", paperID, err)
		}
	}

	return ClaimResult{
		ClaimID:        claim.ID,
		ExpiresAt:      claim.ExpiresAt,
		SlotsRemaining: s.slotsRemaining(ctx, paper),
	}, nil
}

func (s *Service) renewExpiredClaim(ctx context.Context, paper storage.PaperRecord, claim storage.ClaimRecord, now time.Time) (ClaimResult, error) {
	expiresAt := now.Add(claimLifetime)
	if err := s.store.RenewClaim(ctx, claim.PaperID, claim.ReviewerID, expiresAt, now); err != nil {
		return ClaimResult{}, err
	}
	return ClaimResult{
		ClaimID:        claim.ID,
		ExpiresAt:      expiresAt,
		SlotsRemaining: s.slotsRemaining(ctx, paper),
	}, nil
}

// slotsRemaining re-reads the paper so the reported capacity reflects the
// claim that was just granted. A read failure degrades to zero.
func (s *Service) slotsRemaining(ctx context.Context, paper storage.PaperRecord) int {
	refreshed, err := s.store.GetPaper(ctx, paper.ID)
	if err != nil {
		log.Printf("review: refresh paper %s after claim: %v", paper.ID, err)
		return 0
	}
	remaining := refreshed.ReviewersMax - refreshed.ReviewersClaimed
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// ReleaseClaim voluntarily gives a claim slot back. Submitted claims are
// permanent; releasing one is a conflict.
func (s *Service) ReleaseClaim(ctx context.Context, paperID string, agentID string) error {
	if s == nil || s.store == nil {
		return errStoreNotConfigured
	}
	paperID = strings.TrimSpace(paperID)
	agentID = strings.TrimSpace(agentID)

	claim, err := s.store.GetClaim(ctx, paperID, agentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return errNoClaim()
		}
		return err
	}
	if claim.State == storage.ClaimStateSubmitted {
		return errAlreadySubmitted()
	}

	now := s.nowUTC()
	if err := s.store.DeleteClaim(ctx, paperID, agentID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return errNoClaim()
		}
		return err
	}
	return s.store.ReleaseReviewerSlot(ctx, paperID, now)
}

// GetClaimOverview reports slot occupancy for a paper and the caller's claim.
// Reading an expired claim lazily persists the expired state so correctness
// never depends on a background sweep.
func (s *Service) GetClaimOverview(ctx context.Context, paperID string, agentID string) (ClaimOverview, error) {
	if s == nil || s.store == nil {
		return ClaimOverview{}, errStoreNotConfigured
	}
	paperID = strings.TrimSpace(paperID)
	agentID = strings.TrimSpace(agentID)

	paper, err := s.GetPaper(ctx, paperID)
	if err != nil {
		return ClaimOverview{}, err
	}
	overview := ClaimOverview{
		SlotsTotal: paper.ReviewersMax,
		SlotsTaken: paper.ReviewersClaimed,
	}
	if agentID == "" {
		return overview, nil
	}

	claim, err := s.store.GetClaim(ctx, paperID, agentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return overview, nil
		}
		return ClaimOverview{}, err
	}
	now := s.nowUTC()
	if claim.State == storage.ClaimStateClaimed && claimExpired(claim, now) {
		claim.State = storage.ClaimStateExpired
		claim.UpdatedAt = now
		if err := s.store.SetClaimState(ctx, paperID, agentID, storage.ClaimStateExpired, now); err != nil {
			log.Printf("review: persist expired claim on paper %s: %v", paperID, err)
		}
	}
	overview.YourClaim = &claim
	return overview, nil
}
