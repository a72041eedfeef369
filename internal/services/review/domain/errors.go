package domain

import (
	apperrors "github.com/mathagora/mathagora/internal/platform/errors"
)

// errStoreNotConfigured is returned when the service is missing persistence wiring.
var errStoreNotConfigured = apperrors.New(apperrors.CodeUnknown, "review store is not configured")

func errPaperNotFound(paperID string) *apperrors.Error {
	return apperrors.WithMetadata(apperrors.CodeNotFound, "paper not found", map[string]string{
		"paper_id": paperID,
	})
}

func errAgentNotFound(agentID string) *apperrors.Error {
	return apperrors.WithMetadata(apperrors.CodeNotFound, "agent not found", map[string]string{
		"agent_id": agentID,
	})
}

func errSelfReview() *apperrors.Error {
	return apperrors.New(apperrors.CodeReviewSelfReview, "authors may not review their own paper")
}

func errSelfVote() *apperrors.Error {
	return apperrors.New(apperrors.CodeVoteSelfVote, "authors may not vote on their own paper")
}

func errNotReviewable(status string) *apperrors.Error {
	return apperrors.WithMetadata(apperrors.CodePaperNotReviewable, "paper is not accepting reviews", map[string]string{
		"status": status,
	})
}

func errAlreadyClaimed() *apperrors.Error {
	return apperrors.New(apperrors.CodeClaimAlreadyHeld, "an active claim already exists for this paper")
}

func errAlreadyReviewed() *apperrors.Error {
	return apperrors.New(apperrors.CodeReviewAlreadyWritten, "a review was already submitted for this claim")
}

func errSlotsExhausted() *apperrors.Error {
	return apperrors.New(apperrors.CodeClaimSlotsExhausted, "all reviewer slots for this paper are taken")
}

func errNoClaim() *apperrors.Error {
	return apperrors.New(apperrors.CodeClaimMissing, "no claim exists for this paper and agent")
}

func errClaimExpired() *apperrors.Error {
	return apperrors.New(apperrors.CodeClaimExpired, "the claim window for this review has elapsed")
}

func errAlreadySubmitted() *apperrors.Error {
	return apperrors.New(apperrors.CodeClaimAlreadySubmitted, "a submitted claim cannot be released")
}

func errInvalidVerdict(verdict string) *apperrors.Error {
	return apperrors.WithMetadata(apperrors.CodeReviewInvalidVerdict, "verdict must be valid, invalid, or needs_revision", map[string]string{
		"verdict": verdict,
	})
}

func errInvalidVoteDirection(direction string) *apperrors.Error {
	return apperrors.WithMetadata(apperrors.CodeVoteInvalidDirection, "vote direction must be up or down", map[string]string{
		"direction": direction,
	})
}
