package domain

import (
	"context"
	"testing"
	"time"

	apperrors "github.com/mathagora/mathagora/internal/platform/errors"
	"github.com/mathagora/mathagora/internal/services/review/storage"
)

func TestClaimReviewGrantsSlotAndMovesPaperInProgress(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
	store := newFakeStore()
	seedAgent(store, "author-1", "euclid", now)
	seedAgent(store, "reviewer-1", "archimedes", now)
	seedPaper(store, storage.PaperRecord{ID: "paper-1", AuthorID: "author-1", Title: "Elements"})
	svc := NewService(store, nil, fixedClock(now), sequentialIDGenerator("claim-1"))

	result, err := svc.ClaimReview(context.Background(), "paper-1", "reviewer-1")
	if err != nil {
		t.Fatalf("claim review: %v", err)
	}
	if result.ClaimID != "claim-1" {
		t.Fatalf("claim id = %q, want claim-1", result.ClaimID)
	}
	if want := now.Add(7 * 24 * time.Hour); !result.ExpiresAt.Equal(want) {
		t.Fatalf("expires_at = %v, want %v", result.ExpiresAt, want)
	}
	if result.SlotsRemaining != 4 {
		t.Fatalf("slots remaining = %d, want 4", result.SlotsRemaining)
	}
	if got := store.paperStatus("paper-1"); got != storage.PaperStatusInProgress {
		t.Fatalf("paper status = %q, want %q", got, storage.PaperStatusInProgress)
	}
}

func TestClaimReviewRejectsAuthorAndProblems(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
	store := newFakeStore()
	seedAgent(store, "author-1", "diophantus", now)
	seedAgent(store, "reviewer-1", "hypatia", now)
	seedPaper(store, storage.PaperRecord{ID: "paper-1", AuthorID: "author-1", Title: "Arithmetica"})
	seedPaper(store, storage.PaperRecord{
		ID:       "problem-1",
		AuthorID: "author-1",
		Title:    "An open problem",
		Type:     storage.PaperTypeProblem,
	})
	seedPaper(store, storage.PaperRecord{
		ID:       "paper-2",
		AuthorID: "author-1",
		Title:    "Already resolved",
		Status:   storage.PaperStatusPublished,
	})
	svc := NewService(store, nil, fixedClock(now), sequentialIDGenerator("claim-1"))

	_, err := svc.ClaimReview(context.Background(), "paper-1", "author-1")
	if got := apperrors.GetCode(err); got != apperrors.CodeReviewSelfReview {
		t.Fatalf("self claim code = %v, want %v", got, apperrors.CodeReviewSelfReview)
	}

	_, err = svc.ClaimReview(context.Background(), "problem-1", "reviewer-1")
	if got := apperrors.GetCode(err); got != apperrors.CodePaperNotReviewable {
		t.Fatalf("problem claim code = %v, want %v", got, apperrors.CodePaperNotReviewable)
	}

	_, err = svc.ClaimReview(context.Background(), "paper-2", "reviewer-1")
	if got := apperrors.GetCode(err); got != apperrors.CodePaperNotReviewable {
		t.Fatalf("terminal claim code = %v, want %v", got, apperrors.CodePaperNotReviewable)
	}

	_, err = svc.ClaimReview(context.Background(), "paper-1", "ghost")
	if got := apperrors.GetCode(err); got != apperrors.CodeNotFound {
		t.Fatalf("unknown reviewer code = %v, want %v", got, apperrors.CodeNotFound)
	}
}

func TestClaimReviewDuplicateActiveClaim(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
	store := newFakeStore()
	seedAgent(store, "author-1", "pascal", now)
	seedAgent(store, "reviewer-1", "descartes", now)
	seedPaper(store, storage.PaperRecord{ID: "paper-1", AuthorID: "author-1", Title: "On conics"})
	svc := NewService(store, nil, fixedClock(now), sequentialIDGenerator("claim-1", "claim-2"))

	if _, err := svc.ClaimReview(context.Background(), "paper-1", "reviewer-1"); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	_, err := svc.ClaimReview(context.Background(), "paper-1", "reviewer-1")
	if got := apperrors.GetCode(err); got != apperrors.CodeClaimAlreadyHeld {
		t.Fatalf("duplicate claim code = %v, want %v", got, apperrors.CodeClaimAlreadyHeld)
	}
}

func TestClaimReviewSlotsExhausted(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
	store := newFakeStore()
	seedAgent(store, "author-1", "bernoulli", now)
	seedAgent(store, "reviewer-1", "euler-jr", now)
	seedPaper(store, storage.PaperRecord{
		ID:               "paper-1",
		AuthorID:         "author-1",
		Title:            "Ars conjectandi",
		ReviewersMax:     2,
		ReviewersClaimed: 2,
	})
	svc := NewService(store, nil, fixedClock(now), sequentialIDGenerator("claim-1"))

	_, err := svc.ClaimReview(context.Background(), "paper-1", "reviewer-1")
	if got := apperrors.GetCode(err); got != apperrors.CodeClaimSlotsExhausted {
		t.Fatalf("exhausted claim code = %v, want %v", got, apperrors.CodeClaimSlotsExhausted)
	}
}

func TestClaimReviewRenewsExpiredClaimWithoutSecondSlot(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
	store := newFakeStore()
	seedAgent(store, "author-1", "cauchy", start)
	seedAgent(store, "reviewer-1", "liouville", start)
	seedPaper(store, storage.PaperRecord{ID: "paper-1", AuthorID: "author-1", Title: "Cours d'analyse"})
	svc := NewService(store, nil, fixedClock(start), sequentialIDGenerator("claim-1", "claim-never"))

	first, err := svc.ClaimReview(context.Background(), "paper-1", "reviewer-1")
	if err != nil {
		t.Fatalf("first claim: %v", err)
	}

	// Past the claim window the same reviewer re-arms the original claim.
	later := start.Add(8 * 24 * time.Hour)
	svc.clock = fixedClock(later)
	renewed, err := svc.ClaimReview(context.Background(), "paper-1", "reviewer-1")
	if err != nil {
		t.Fatalf("renew claim: %v", err)
	}
	if renewed.ClaimID != first.ClaimID {
		t.Fatalf("renewed claim id = %q, want original %q", renewed.ClaimID, first.ClaimID)
	}
	if want := later.Add(7 * 24 * time.Hour); !renewed.ExpiresAt.Equal(want) {
		t.Fatalf("renewed expires_at = %v, want %v", renewed.ExpiresAt, want)
	}
	if renewed.SlotsRemaining != 4 {
		t.Fatalf("slots remaining = %d, want 4 (no second slot taken)", renewed.SlotsRemaining)
	}
}

func TestReleaseClaimReturnsSlot(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
	store := newFakeStore()
	seedAgent(store, "author-1", "fourier", start)
	seedAgent(store, "reviewer-1", "dirichlet", start)
	seedPaper(store, storage.PaperRecord{ID: "paper-1", AuthorID: "author-1", Title: "On heat"})
	svc := NewService(store, nil, fixedClock(start), sequentialIDGenerator("claim-1"))

	if _, err := svc.ClaimReview(context.Background(), "paper-1", "reviewer-1"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := svc.ReleaseClaim(context.Background(), "paper-1", "reviewer-1"); err != nil {
		t.Fatalf("release: %v", err)
	}

	paper, err := store.GetPaper(context.Background(), "paper-1")
	if err != nil {
		t.Fatalf("get paper: %v", err)
	}
	if paper.ReviewersClaimed != 0 {
		t.Fatalf("reviewers_claimed = %d, want 0", paper.ReviewersClaimed)
	}

	err = svc.ReleaseClaim(context.Background(), "paper-1", "reviewer-1")
	if got := apperrors.GetCode(err); got != apperrors.CodeClaimMissing {
		t.Fatalf("release without claim code = %v, want %v", got, apperrors.CodeClaimMissing)
	}
}

func TestReleaseClaimRefusesSubmitted(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
	store := newFakeStore()
	seedAgent(store, "author-1", "green", start)
	seedAgent(store, "reviewer-1", "stokes", start)
	seedPaper(store, storage.PaperRecord{ID: "paper-1", AuthorID: "author-1", Title: "An essay on potentials"})
	store.claims[pairKey("paper-1", "reviewer-1")] = storage.ClaimRecord{
		ID:         "claim-1",
		PaperID:    "paper-1",
		ReviewerID: "reviewer-1",
		State:      storage.ClaimStateSubmitted,
		ExpiresAt:  start.Add(7 * 24 * time.Hour),
		CreatedAt:  start,
		UpdatedAt:  start,
	}
	svc := NewService(store, nil, fixedClock(start), nil)

	err := svc.ReleaseClaim(context.Background(), "paper-1", "reviewer-1")
	if got := apperrors.GetCode(err); got != apperrors.CodeClaimAlreadySubmitted {
		t.Fatalf("release submitted code = %v, want %v", got, apperrors.CodeClaimAlreadySubmitted)
	}
}

func TestGetClaimOverviewPersistsLazyExpiry(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
	store := newFakeStore()
	seedAgent(store, "author-1", "klein", start)
	seedAgent(store, "reviewer-1", "lie", start)
	seedPaper(store, storage.PaperRecord{
		ID:               "paper-1",
		AuthorID:         "author-1",
		Title:            "Erlangen program",
		ReviewersClaimed: 1,
	})
	store.claims[pairKey("paper-1", "reviewer-1")] = storage.ClaimRecord{
		ID:         "claim-1",
		PaperID:    "paper-1",
		ReviewerID: "reviewer-1",
		State:      storage.ClaimStateClaimed,
		ExpiresAt:  start.Add(-time.Hour),
		CreatedAt:  start.Add(-8 * 24 * time.Hour),
		UpdatedAt:  start.Add(-8 * 24 * time.Hour),
	}
	svc := NewService(store, nil, fixedClock(start), nil)

	overview, err := svc.GetClaimOverview(context.Background(), "paper-1", "reviewer-1")
	if err != nil {
		t.Fatalf("get overview: %v", err)
	}
	if overview.SlotsTotal != 5 || overview.SlotsTaken != 1 {
		t.Fatalf("slots = %d/%d, want 1/5", overview.SlotsTaken, overview.SlotsTotal)
	}
	if overview.YourClaim == nil {
		t.Fatal("expected claim in overview")
	}
	if overview.YourClaim.State != storage.ClaimStateExpired {
		t.Fatalf("claim state = %q, want %q", overview.YourClaim.State, storage.ClaimStateExpired)
	}

	persisted, err := store.GetClaim(context.Background(), "paper-1", "reviewer-1")
	if err != nil {
		t.Fatalf("get persisted claim: %v", err)
	}
	if persisted.State != storage.ClaimStateExpired {
		t.Fatalf("persisted state = %q, want %q", persisted.State, storage.ClaimStateExpired)
	}
}
