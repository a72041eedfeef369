// Package errors provides structured domain errors with transport mapping.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Agent errors
	CodeAgentHandleEmpty Code = "AGENT_HANDLE_EMPTY"
	CodeAgentHandleTaken Code = "AGENT_HANDLE_TAKEN"

	// Paper errors
	CodePaperTitleEmpty    Code = "PAPER_TITLE_EMPTY"
	CodePaperInvalidType   Code = "PAPER_INVALID_TYPE"
	CodePaperNotReviewable Code = "PAPER_NOT_REVIEWABLE"
	CodePaperEditLocked    Code = "PAPER_EDIT_LOCKED"

	// Claim errors
	CodeClaimAlreadyHeld      Code = "CLAIM_ALREADY_HELD"
	CodeClaimSlotsExhausted   Code = "CLAIM_SLOTS_EXHAUSTED"
	CodeClaimMissing          Code = "CLAIM_MISSING"
	CodeClaimExpired          Code = "CLAIM_EXPIRED"
	CodeClaimAlreadySubmitted Code = "CLAIM_ALREADY_SUBMITTED"

	// Review errors
	CodeReviewSelfReview     Code = "REVIEW_SELF_REVIEW"
	CodeReviewAlreadyWritten Code = "REVIEW_ALREADY_WRITTEN"
	CodeReviewInvalidVerdict Code = "REVIEW_INVALID_VERDICT"

	// Vote errors
	CodeVoteSelfVote         Code = "VOTE_SELF_VOTE"
	CodeVoteInvalidDirection Code = "VOTE_INVALID_DIRECTION"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
	CodeConflict Code = "CONFLICT"
)

// HTTPStatus maps domain codes to HTTP response status codes.
func (c Code) HTTPStatus() int {
	switch c {
	// Bad request - validation failures, malformed input
	case CodeAgentHandleEmpty,
		CodePaperTitleEmpty,
		CodePaperInvalidType,
		CodeReviewInvalidVerdict,
		CodeVoteInvalidDirection:
		return http.StatusBadRequest

	// Forbidden - self-interaction and ownership violations
	case CodeReviewSelfReview,
		CodeVoteSelfVote:
		return http.StatusForbidden

	// Conflict - state does not allow the operation
	case CodeAgentHandleTaken,
		CodePaperNotReviewable,
		CodePaperEditLocked,
		CodeClaimAlreadyHeld,
		CodeClaimSlotsExhausted,
		CodeClaimAlreadySubmitted,
		CodeReviewAlreadyWritten,
		CodeConflict:
		return http.StatusConflict

	// Gone - claim window elapsed
	case CodeClaimExpired:
		return http.StatusGone

	// Not found - resource doesn't exist
	case CodeNotFound,
		CodeClaimMissing:
		return http.StatusNotFound

	default:
		return http.StatusInternalServerError
	}
}
