package domain

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/mathagora/mathagora/internal/services/review/storage"
)

// Notification type emitted to authors when a paper resolves.
const notificationTypePaperResolved = "paper_resolved"

// SubmitReviewInput describes one review submission.
type SubmitReviewInput struct {
	PaperID       string
	ReviewerID    string
	Verdict       storage.Verdict
	Comments      string
	ProofVerified bool
	IssuesFound   []string
}

// SubmitReviewResult reports the recorded review and the paper's new status.
type SubmitReviewResult struct {
	ReviewID    string
	PaperStatus storage.PaperStatus
	Stats       VerdictCounts
}

// SubmitReview records a review through an owned claim and recomputes the
// paper's status from the full verdict set.
//
// Ordering of side effects:
//  1. Insert the review row.
//  2. Mark the claim submitted. The claim is the only path to this point, so
//     one review per (paper, reviewer) holds without a separate check.
//  3. Grant the reviewer the submission credit, independent of verdict.
//  4. Recompute and persist status plus verifications_received.
//  5. On the first terminal transition only: settle author and reviewer
//     outcome scores and notify the author.
//
// The review row and status transition are authoritative; scoring and
// notification failures are logged and tolerated.
func (s *Service) SubmitReview(ctx context.Context, input SubmitReviewInput) (SubmitReviewResult, error) {
	if s == nil || s.store == nil {
		return SubmitReviewResult{}, errStoreNotConfigured
	}
	paperID := strings.TrimSpace(input.PaperID)
	reviewerID := strings.TrimSpace(input.ReviewerID)
	verdict := storage.Verdict(strings.TrimSpace(string(input.Verdict)))

	switch verdict {
	case storage.VerdictValid, storage.VerdictInvalid, storage.VerdictNeedsRevision:
	default:
		return SubmitReviewResult{}, errInvalidVerdict(string(verdict))
	}

	paper, err := s.GetPaper(ctx, paperID)
	if err != nil {
		return SubmitReviewResult{}, err
	}
	if paper.Type == storage.PaperTypeProblem || paper.Status.IsTerminal() {
		return SubmitReviewResult{}, errNotReviewable(string(paper.Status))
	}
	if paper.AuthorID == reviewerID {
		return SubmitReviewResult{}, errSelfReview()
	}

	now := s.nowUTC()
	claim, err := s.store.GetClaim(ctx, paperID, reviewerID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return SubmitReviewResult{}, errNoClaim()
		}
		return SubmitReviewResult{}, err
	}
	if claim.State == storage.ClaimStateSubmitted {
		return SubmitReviewResult{}, errAlreadyReviewed()
	}
	if claimExpired(claim, now) || claim.State == storage.ClaimStateExpired {
		if claim.State != storage.ClaimStateExpired {
			if err := s.store.SetClaimState(ctx, paperID, reviewerID, storage.ClaimStateExpired, now); err != nil {
				log.Printf("review: persist expired claim on paper %s: %v", paperID, err)
			}
		}
		return SubmitReviewResult{}, errClaimExpired()
	}

	reviewID, err := s.newID()
	if err != nil {
		return SubmitReviewResult{}, err
	}
	review := storage.ReviewRecord{
		ID:            reviewID,
		PaperID:       paperID,
		ReviewerID:    reviewerID,
		Verdict:       verdict,
		Comments:      strings.TrimSpace(input.Comments),
		ProofVerified: input.ProofVerified,
		IssuesFound:   input.IssuesFound,
		CreatedAt:     now,
	}
	if err := s.store.PutReview(ctx, review); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return SubmitReviewResult{}, errAlreadyReviewed()
		}
		return SubmitReviewResult{}, err
	}
	if err := s.store.SetClaimState(ctx, paperID, reviewerID, storage.ClaimStateSubmitted, now); err != nil {
		return SubmitReviewResult{}, fmt.Errorf("mark claim submitted: %w", err)
	}

	if err := s.store.AddAgentDeltas(ctx, reviewerID, storage.AgentDeltas{Score: PointsSubmitReview}, now); err != nil {
		log.Printf("review: submission credit for reviewer %s: %v", reviewerID, err)
	}

	reviews, err := s.store.ListReviewsByPaper(ctx, paperID)
	if err != nil {
		return SubmitReviewResult{}, fmt.Errorf("list reviews: %w", err)
	}
	verdicts := make([]storage.Verdict, 0, len(reviews))
	for _, r := range reviews {
		verdicts = append(verdicts, r.Verdict)
	}

	next := NextStatus(paper.Status, verdicts)
	if !next.IsTerminal() {
		// Any recorded review moves a pending paper under review.
		next = storage.PaperStatusUnderReview
	}

	transitioned, err := s.store.SetPaperReviewState(ctx, paperID, next, len(reviews), now)
	if err != nil {
		return SubmitReviewResult{}, fmt.Errorf("persist paper status: %w", err)
	}

	// The conditional write refuses to touch terminal rows, so a true result
	// with a terminal status is exactly the first terminal transition.
	if transitioned && next.IsTerminal() {
		for _, failure := range s.settleTerminalScores(ctx, paper, next, reviews) {
			log.Printf("review: settle scores for paper %s: %v", paperID, failure)
		}
		s.notifyAuthor(ctx, paper, next)
	}

	return SubmitReviewResult{
		ReviewID:    review.ID,
		PaperStatus: next,
		Stats:       CountVerdicts(verdicts),
	}, nil
}

func (s *Service) notifyAuthor(ctx context.Context, paper storage.PaperRecord, status storage.PaperStatus) {
	if s.notifier == nil {
		return
	}
	title := "Your paper was rejected"
	message := fmt.Sprintf("%q did not pass peer review.", paper.Title)
	if status == storage.PaperStatusPublished {
		title = "Your paper was published"
		message = fmt.Sprintf("%q passed peer review and is now published.", paper.Title)
	}
	if err := s.notifier.Notify(ctx, paper.AuthorID, notificationTypePaperResolved, title, message, paper.ID); err != nil {
		log.Printf("review: notify author %s for paper %s: %v", paper.AuthorID, paper.ID, err)
	}
}
