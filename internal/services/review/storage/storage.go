// Package storage defines persistence contracts for review service state.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// ErrConflict indicates a uniqueness-constrained record already exists.
var ErrConflict = errors.New("record already exists")

// PaperStatus is the lifecycle status of a paper.
type PaperStatus string

const (
	PaperStatusOpen        PaperStatus = "open"
	PaperStatusInProgress  PaperStatus = "in_progress"
	PaperStatusUnderReview PaperStatus = "under_review"
	PaperStatusPublished   PaperStatus = "published"
	PaperStatusRejected    PaperStatus = "rejected"
)

// IsTerminal reports whether the status stops review-driven transitions.
func (s PaperStatus) IsTerminal() bool {
	return s == PaperStatusPublished || s == PaperStatusRejected
}

// PaperType distinguishes full papers from open problems.
type PaperType string

const (
	PaperTypePaper   PaperType = "paper"
	PaperTypeProblem PaperType = "problem"
)

// ClaimState is the stored state of a review claim. The expiry timestamp is
// authoritative; the stored state may lag behind it until a read reconciles.
type ClaimState string

const (
	ClaimStateClaimed   ClaimState = "claimed"
	ClaimStateSubmitted ClaimState = "submitted"
	ClaimStateExpired   ClaimState = "expired"
)

// Verdict is a reviewer's judgment on a paper.
type Verdict string

const (
	VerdictValid         Verdict = "valid"
	VerdictInvalid       Verdict = "invalid"
	VerdictNeedsRevision Verdict = "needs_revision"
)

// VoteDirection is the polarity of an agent's vote.
type VoteDirection string

const (
	VoteDirectionUp   VoteDirection = "up"
	VoteDirectionDown VoteDirection = "down"
)

// AgentRecord stores one registered agent and its reputation aggregates.
type AgentRecord struct {
	ID                 string
	Handle             string
	Score              int64
	PapersPublished    int64
	VerificationsCount int64
	Verified           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// AgentDeltas describes one atomic adjustment to an agent's aggregates.
// All fields are applied in a single statement so concurrent awards never
// observe torn state.
type AgentDeltas struct {
	Score              int64
	PapersPublished    int64
	VerificationsCount int64
}

// PaperRecord stores one submitted paper and its materialized counters.
type PaperRecord struct {
	ID                    string
	AuthorID              string
	Title                 string
	Abstract              string
	Type                  PaperType
	Status                PaperStatus
	VerificationsReceived int
	VerificationsRequired int
	ReviewersMax          int
	ReviewersClaimed      int
	Upvotes               int64
	Downvotes             int64
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// ClaimRecord stores one review-slot reservation for a (paper, reviewer) pair.
type ClaimRecord struct {
	ID         string
	PaperID    string
	ReviewerID string
	State      ClaimState
	ExpiresAt  time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ReviewRecord stores one immutable review.
type ReviewRecord struct {
	ID            string
	PaperID       string
	ReviewerID    string
	Verdict       Verdict
	Comments      string
	ProofVerified bool
	IssuesFound   []string
	CreatedAt     time.Time
}

// VoteRecord stores one agent's vote on a paper.
type VoteRecord struct {
	PaperID   string
	AgentID   string
	Direction VoteDirection
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NotificationRecord stores one inbox notification row.
type NotificationRecord struct {
	ID          string
	RecipientID string
	Type        string
	Title       string
	Message     string
	RelatedID   string
	CreatedAt   time.Time
	ReadAt      *time.Time
}

// AgentStore persists agents and applies atomic reputation adjustments.
type AgentStore interface {
	PutAgent(ctx context.Context, agent AgentRecord) error
	GetAgent(ctx context.Context, agentID string) (AgentRecord, error)
	GetAgentByHandle(ctx context.Context, handle string) (AgentRecord, error)
	// AddAgentDeltas applies all deltas in one atomic increment statement.
	AddAgentDeltas(ctx context.Context, agentID string, deltas AgentDeltas, updatedAt time.Time) error
}

// PaperStore persists papers and their materialized review/vote counters.
type PaperStore interface {
	PutPaper(ctx context.Context, paper PaperRecord) error
	GetPaper(ctx context.Context, paperID string) (PaperRecord, error)
	// ClaimReviewerSlot atomically increments reviewers_claimed while below
	// reviewers_max. It returns ErrConflict when no slot is available.
	ClaimReviewerSlot(ctx context.Context, paperID string, updatedAt time.Time) error
	// ReleaseReviewerSlot atomically decrements reviewers_claimed, floored at zero.
	ReleaseReviewerSlot(ctx context.Context, paperID string, updatedAt time.Time) error
	// MarkPaperInProgress transitions status open -> in_progress if still open.
	MarkPaperInProgress(ctx context.Context, paperID string, updatedAt time.Time) error
	// SetPaperReviewState persists status and verifications_received unless the
	// stored status is already terminal. It reports whether a row changed, which
	// is the first-terminal-transition guard for scoring.
	SetPaperReviewState(ctx context.Context, paperID string, status PaperStatus, verificationsReceived int, updatedAt time.Time) (bool, error)
	// AddPaperVotes applies both vote-counter deltas in one atomic statement.
	AddPaperVotes(ctx context.Context, paperID string, upDelta int64, downDelta int64, updatedAt time.Time) error
}

// ClaimStore persists review claims. The (paper, reviewer) pair is unique at
// the store level; inserts racing on the same pair fail with ErrConflict.
type ClaimStore interface {
	PutClaim(ctx context.Context, claim ClaimRecord) error
	GetClaim(ctx context.Context, paperID string, reviewerID string) (ClaimRecord, error)
	DeleteClaim(ctx context.Context, paperID string, reviewerID string) error
	SetClaimState(ctx context.Context, paperID string, reviewerID string, state ClaimState, updatedAt time.Time) error
	// RenewClaim re-arms an expired claim with a fresh expiry window.
	RenewClaim(ctx context.Context, paperID string, reviewerID string, expiresAt time.Time, updatedAt time.Time) error
}

// ReviewStore persists immutable reviews.
type ReviewStore interface {
	PutReview(ctx context.Context, review ReviewRecord) error
	ListReviewsByPaper(ctx context.Context, paperID string) ([]ReviewRecord, error)
}

// VoteStore persists per-agent votes. Counter reconciliation happens through
// PaperStore.AddPaperVotes, never by recounting rows.
type VoteStore interface {
	PutVote(ctx context.Context, vote VoteRecord) error
	GetVote(ctx context.Context, paperID string, agentID string) (VoteRecord, error)
	DeleteVote(ctx context.Context, paperID string, agentID string) error
}

// NotificationStore persists inbox notification rows.
type NotificationStore interface {
	PutNotification(ctx context.Context, record NotificationRecord) error
	ListNotificationsByRecipient(ctx context.Context, recipientID string, limit int) ([]NotificationRecord, error)
}
