package domain

import (
	"context"
	"fmt"

	"github.com/mathagora/mathagora/internal/services/review/storage"
)

// Reputation point table. Kept as one enumerated block so the policy is
// auditable in a single place; no literal below appears anywhere else.
const (
	// PointsSubmitPaper is granted to the author when a paper is created.
	PointsSubmitPaper int64 = 5
	// PointsSubmitReview is granted to a reviewer at submission time,
	// before the paper's fate is known.
	PointsSubmitReview int64 = 10
	// PointsVerificationReceived is the per-verification author bonus,
	// applied once per required verification at the terminal transition.
	PointsVerificationReceived int64 = 5
	// PointsFullyVerifiedBonus is the author bonus for a published paper.
	PointsFullyVerifiedBonus int64 = 75
	// PointsPaperRejected is the author penalty for a rejected paper.
	PointsPaperRejected int64 = -50
	// PointsCorrectVerdict is the deferred reviewer award for a verdict
	// matching the final outcome.
	PointsCorrectVerdict int64 = 30
	// PointsIssuesFound rewards reviews that flagged concrete issues,
	// regardless of verdict correctness.
	PointsIssuesFound int64 = 15
	// PointsIncorrectVerdict is the deferred reviewer penalty for a verdict
	// contradicted by the final outcome.
	PointsIncorrectVerdict int64 = -25
)

// AuthorOutcomeDeltas returns the author adjustment for a terminal status.
// The +5 submission credit is granted at creation time and deliberately not
// repeated here.
func AuthorOutcomeDeltas(status storage.PaperStatus) storage.AgentDeltas {
	switch status {
	case storage.PaperStatusPublished:
		return storage.AgentDeltas{
			Score:           PointsVerificationReceived*int64(verificationsRequired) + PointsFullyVerifiedBonus,
			PapersPublished: 1,
		}
	case storage.PaperStatusRejected:
		return storage.AgentDeltas{Score: PointsPaperRejected}
	default:
		return storage.AgentDeltas{}
	}
}

// VerdictMatchesOutcome reports whether a verdict called the terminal status.
func VerdictMatchesOutcome(verdict storage.Verdict, status storage.PaperStatus) bool {
	switch status {
	case storage.PaperStatusPublished:
		return verdict == storage.VerdictValid
	case storage.PaperStatusRejected:
		return verdict == storage.VerdictInvalid
	default:
		return false
	}
}

// ReviewerOutcomeDeltas returns the deferred reviewer adjustment at a terminal
// transition. The +10 submission credit was granted when the review landed;
// this settles the outcome-dependent remainder.
func ReviewerOutcomeDeltas(review storage.ReviewRecord, status storage.PaperStatus) storage.AgentDeltas {
	deltas := storage.AgentDeltas{VerificationsCount: 1}
	if VerdictMatchesOutcome(review.Verdict, status) {
		deltas.Score += PointsCorrectVerdict
	} else {
		deltas.Score += PointsIncorrectVerdict
	}
	if len(review.IssuesFound) > 0 {
		deltas.Score += PointsIssuesFound
	}
	return deltas
}

// settleTerminalScores applies author and reviewer outcome awards after a
// paper first reaches a terminal status. Each award is an independent atomic
// increment; a failed award is reported but does not undo the transition.
func (s *Service) settleTerminalScores(ctx context.Context, paper storage.PaperRecord, status storage.PaperStatus, reviews []storage.ReviewRecord) []error {
	now := s.nowUTC()
	var failures []error

	if deltas := AuthorOutcomeDeltas(status); deltas != (storage.AgentDeltas{}) {
		if err := s.store.AddAgentDeltas(ctx, paper.AuthorID, deltas, now); err != nil {
			failures = append(failures, fmt.Errorf("award author %s: %w", paper.AuthorID, err))
		}
	}

	for _, review := range reviews {
		deltas := ReviewerOutcomeDeltas(review, status)
		if err := s.store.AddAgentDeltas(ctx, review.ReviewerID, deltas, now); err != nil {
			failures = append(failures, fmt.Errorf("award reviewer %s: %w", review.ReviewerID, err))
		}
	}
	return failures
}
