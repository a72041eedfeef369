// Package sqlite provides SQLite-backed persistence for review service state.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mathagora/mathagora/internal/platform/storage/sqlitemigrate"
	"github.com/mathagora/mathagora/internal/services/review/storage"
	"github.com/mathagora/mathagora/internal/services/review/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed persistence for review state.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a review SQLite store at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_pragma=foreign_keys(ON)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := ensureForeignKeysEnabled(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	store := &Store{sqlDB: sqlDB}
	if err := store.runMigrations(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close closes the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) runMigrations() error {
	return sqlitemigrate.ApplyMigrations(s.sqlDB, migrations.FS, "")
}

func ensureForeignKeysEnabled(db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("sqlite db is required")
	}
	var enabled int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&enabled); err != nil {
		return fmt.Errorf("check sqlite foreign key pragma: %w", err)
	}
	if enabled != 1 {
		return fmt.Errorf("sqlite foreign keys are disabled")
	}
	return nil
}

func (s *Store) ready() error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

type scanner func(dest ...any) error

// PutAgent inserts one agent row. Duplicate IDs or handles conflict.
func (s *Store) PutAgent(ctx context.Context, agent storage.AgentRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	agent.ID = strings.TrimSpace(agent.ID)
	agent.Handle = strings.TrimSpace(agent.Handle)
	if agent.ID == "" {
		return fmt.Errorf("agent id is required")
	}
	if agent.Handle == "" {
		return fmt.Errorf("agent handle is required")
	}
	if agent.CreatedAt.IsZero() || agent.UpdatedAt.IsZero() {
		return fmt.Errorf("agent timestamps are required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
	INSERT INTO agents (
		id, handle, score, papers_published, verifications_count, verified, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		agent.ID,
		agent.Handle,
		agent.Score,
		agent.PapersPublished,
		agent.VerificationsCount,
		boolToInt(agent.Verified),
		toMillis(agent.CreatedAt),
		toMillis(agent.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("put agent: %w", err)
	}
	return nil
}

// GetAgent loads one agent by ID.
func (s *Store) GetAgent(ctx context.Context, agentID string) (storage.AgentRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.AgentRecord{}, err
	}
	if err := s.ready(); err != nil {
		return storage.AgentRecord{}, err
	}
	agentID = strings.TrimSpace(agentID)
	if agentID == "" {
		return storage.AgentRecord{}, storage.ErrNotFound
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, handle, score, papers_published, verifications_count, verified, created_at, updated_at
FROM agents
WHERE id = ?
`, agentID)
	record, err := scanAgent(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.AgentRecord{}, storage.ErrNotFound
		}
		return storage.AgentRecord{}, fmt.Errorf("get agent: %w", err)
	}
	return record, nil
}

// GetAgentByHandle loads one agent by unique handle.
func (s *Store) GetAgentByHandle(ctx context.Context, handle string) (storage.AgentRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.AgentRecord{}, err
	}
	if err := s.ready(); err != nil {
		return storage.AgentRecord{}, err
	}
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return storage.AgentRecord{}, storage.ErrNotFound
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, handle, score, papers_published, verifications_count, verified, created_at, updated_at
FROM agents
WHERE handle = ?
`, handle)
	record, err := scanAgent(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.AgentRecord{}, storage.ErrNotFound
		}
		return storage.AgentRecord{}, fmt.Errorf("get agent by handle: %w", err)
	}
	return record, nil
}

// AddAgentDeltas applies score and counter deltas in one atomic statement.
// Never read-modify-write agent aggregates in application code: concurrent
// settlements on the same agent must not lose updates.
func (s *Store) AddAgentDeltas(ctx context.Context, agentID string, deltas storage.AgentDeltas, updatedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	agentID = strings.TrimSpace(agentID)
	if agentID == "" {
		return storage.ErrNotFound
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE agents
SET score = score + ?,
    papers_published = papers_published + ?,
    verifications_count = verifications_count + ?,
    updated_at = ?
WHERE id = ?
`, deltas.Score, deltas.PapersPublished, deltas.VerificationsCount, toMillis(updatedAt), agentID)
	if err != nil {
		return fmt.Errorf("add agent deltas: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("add agent deltas rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// PutPaper inserts one paper row.
func (s *Store) PutPaper(ctx context.Context, paper storage.PaperRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	paper.ID = strings.TrimSpace(paper.ID)
	paper.AuthorID = strings.TrimSpace(paper.AuthorID)
	paper.Title = strings.TrimSpace(paper.Title)
	if paper.ID == "" {
		return fmt.Errorf("paper id is required")
	}
	if paper.AuthorID == "" {
		return fmt.Errorf("paper author id is required")
	}
	if paper.Title == "" {
		return fmt.Errorf("paper title is required")
	}
	if paper.CreatedAt.IsZero() || paper.UpdatedAt.IsZero() {
		return fmt.Errorf("paper timestamps are required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
	INSERT INTO papers (
		id, author_id, title, abstract, paper_type, status,
		verifications_received, verifications_required,
		reviewers_max, reviewers_claimed, upvotes, downvotes,
		created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		paper.ID,
		paper.AuthorID,
		paper.Title,
		paper.Abstract,
		string(paper.Type),
		string(paper.Status),
		paper.VerificationsReceived,
		paper.VerificationsRequired,
		paper.ReviewersMax,
		paper.ReviewersClaimed,
		paper.Upvotes,
		paper.Downvotes,
		toMillis(paper.CreatedAt),
		toMillis(paper.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("put paper: %w", err)
	}
	return nil
}

// GetPaper loads one paper by ID.
func (s *Store) GetPaper(ctx context.Context, paperID string) (storage.PaperRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.PaperRecord{}, err
	}
	if err := s.ready(); err != nil {
		return storage.PaperRecord{}, err
	}
	paperID = strings.TrimSpace(paperID)
	if paperID == "" {
		return storage.PaperRecord{}, storage.ErrNotFound
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, author_id, title, abstract, paper_type, status,
       verifications_received, verifications_required,
       reviewers_max, reviewers_claimed, upvotes, downvotes,
       created_at, updated_at
FROM papers
WHERE id = ?
`, paperID)
	record, err := scanPaper(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.PaperRecord{}, storage.ErrNotFound
		}
		return storage.PaperRecord{}, fmt.Errorf("get paper: %w", err)
	}
	return record, nil
}

// ClaimReviewerSlot atomically takes one reviewer slot while capacity remains.
func (s *Store) ClaimReviewerSlot(ctx context.Context, paperID string, updatedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	paperID = strings.TrimSpace(paperID)
	if paperID == "" {
		return storage.ErrNotFound
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE papers
SET reviewers_claimed = reviewers_claimed + 1, updated_at = ?
WHERE id = ? AND reviewers_claimed < reviewers_max
`, toMillis(updatedAt), paperID)
	if err != nil {
		return fmt.Errorf("claim reviewer slot: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("claim reviewer slot rows affected: %w", err)
	}
	if affected == 0 {
		// Distinguish a missing paper from a full one.
		if _, getErr := s.GetPaper(ctx, paperID); getErr != nil {
			return getErr
		}
		return storage.ErrConflict
	}
	return nil
}

// ReleaseReviewerSlot atomically gives one reviewer slot back, floored at zero.
func (s *Store) ReleaseReviewerSlot(ctx context.Context, paperID string, updatedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	paperID = strings.TrimSpace(paperID)
	if paperID == "" {
		return storage.ErrNotFound
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE papers
SET reviewers_claimed = MAX(reviewers_claimed - 1, 0), updated_at = ?
WHERE id = ?
`, toMillis(updatedAt), paperID)
	if err != nil {
		return fmt.Errorf("release reviewer slot: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("release reviewer slot rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// MarkPaperInProgress transitions status open -> in_progress. Losing the
// conditional write to a concurrent transition is not an error.
func (s *Store) MarkPaperInProgress(ctx context.Context, paperID string, updatedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	paperID = strings.TrimSpace(paperID)
	if paperID == "" {
		return storage.ErrNotFound
	}

	_, err := s.sqlDB.ExecContext(ctx, `
UPDATE papers
SET status = ?, updated_at = ?
WHERE id = ? AND status = ?
`, string(storage.PaperStatusInProgress), toMillis(updatedAt), paperID, string(storage.PaperStatusOpen))
	if err != nil {
		return fmt.Errorf("mark paper in progress: %w", err)
	}
	return nil
}

// SetPaperReviewState persists review-driven paper state unless the stored
// status is already terminal. The report of whether a row changed is the
// first-terminal-transition guard used by scoring.
func (s *Store) SetPaperReviewState(ctx context.Context, paperID string, status storage.PaperStatus, verificationsReceived int, updatedAt time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := s.ready(); err != nil {
		return false, err
	}
	paperID = strings.TrimSpace(paperID)
	if paperID == "" {
		return false, storage.ErrNotFound
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE papers
SET status = ?, verifications_received = ?, updated_at = ?
WHERE id = ? AND status NOT IN (?, ?)
`,
		string(status),
		verificationsReceived,
		toMillis(updatedAt),
		paperID,
		string(storage.PaperStatusPublished),
		string(storage.PaperStatusRejected),
	)
	if err != nil {
		return false, fmt.Errorf("set paper review state: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set paper review state rows affected: %w", err)
	}
	return affected > 0, nil
}

// AddPaperVotes applies both vote-counter deltas in one statement so a
// concurrent vote never observes a torn aggregate.
func (s *Store) AddPaperVotes(ctx context.Context, paperID string, upDelta int64, downDelta int64, updatedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	paperID = strings.TrimSpace(paperID)
	if paperID == "" {
		return storage.ErrNotFound
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE papers
SET upvotes = MAX(upvotes + ?, 0),
    downvotes = MAX(downvotes + ?, 0),
    updated_at = ?
WHERE id = ?
`, upDelta, downDelta, toMillis(updatedAt), paperID)
	if err != nil {
		return fmt.Errorf("add paper votes: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("add paper votes rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// PutClaim inserts one claim row. The (paper, reviewer) primary key makes a
// racing duplicate insert fail with ErrConflict.
func (s *Store) PutClaim(ctx context.Context, claim storage.ClaimRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	claim.ID = strings.TrimSpace(claim.ID)
	claim.PaperID = strings.TrimSpace(claim.PaperID)
	claim.ReviewerID = strings.TrimSpace(claim.ReviewerID)
	if claim.ID == "" || claim.PaperID == "" || claim.ReviewerID == "" {
		return fmt.Errorf("claim id, paper id, and reviewer id are required")
	}
	if claim.ExpiresAt.IsZero() {
		return fmt.Errorf("claim expiry is required")
	}
	if claim.CreatedAt.IsZero() || claim.UpdatedAt.IsZero() {
		return fmt.Errorf("claim timestamps are required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
	INSERT INTO review_claims (
		id, paper_id, reviewer_id, state, expires_at, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		claim.ID,
		claim.PaperID,
		claim.ReviewerID,
		string(claim.State),
		toMillis(claim.ExpiresAt),
		toMillis(claim.CreatedAt),
		toMillis(claim.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("put claim: %w", err)
	}
	return nil
}

// GetClaim loads the claim for one (paper, reviewer) pair.
func (s *Store) GetClaim(ctx context.Context, paperID string, reviewerID string) (storage.ClaimRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.ClaimRecord{}, err
	}
	if err := s.ready(); err != nil {
		return storage.ClaimRecord{}, err
	}
	paperID = strings.TrimSpace(paperID)
	reviewerID = strings.TrimSpace(reviewerID)
	if paperID == "" || reviewerID == "" {
		return storage.ClaimRecord{}, storage.ErrNotFound
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, paper_id, reviewer_id, state, expires_at, created_at, updated_at
FROM review_claims
WHERE paper_id = ? AND reviewer_id = ?
`, paperID, reviewerID)
	record, err := scanClaim(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ClaimRecord{}, storage.ErrNotFound
		}
		return storage.ClaimRecord{}, fmt.Errorf("get claim: %w", err)
	}
	return record, nil
}

// DeleteClaim removes the claim for one (paper, reviewer) pair.
func (s *Store) DeleteClaim(ctx context.Context, paperID string, reviewerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	paperID = strings.TrimSpace(paperID)
	reviewerID = strings.TrimSpace(reviewerID)
	if paperID == "" || reviewerID == "" {
		return storage.ErrNotFound
	}

	result, err := s.sqlDB.ExecContext(ctx, `
DELETE FROM review_claims
WHERE paper_id = ? AND reviewer_id = ?
`, paperID, reviewerID)
	if err != nil {
		return fmt.Errorf("delete claim: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete claim rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// SetClaimState updates the stored claim state.
func (s *Store) SetClaimState(ctx context.Context, paperID string, reviewerID string, state storage.ClaimState, updatedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	paperID = strings.TrimSpace(paperID)
	reviewerID = strings.TrimSpace(reviewerID)
	if paperID == "" || reviewerID == "" {
		return storage.ErrNotFound
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE review_claims
SET state = ?, updated_at = ?
WHERE paper_id = ? AND reviewer_id = ?
`, string(state), toMillis(updatedAt), paperID, reviewerID)
	if err != nil {
		return fmt.Errorf("set claim state: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set claim state rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// RenewClaim re-arms an existing claim with a fresh expiry window.
func (s *Store) RenewClaim(ctx context.Context, paperID string, reviewerID string, expiresAt time.Time, updatedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	paperID = strings.TrimSpace(paperID)
	reviewerID = strings.TrimSpace(reviewerID)
	if paperID == "" || reviewerID == "" {
		return storage.ErrNotFound
	}
	if expiresAt.IsZero() {
		return fmt.Errorf("claim expiry is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE review_claims
SET state = ?, expires_at = ?, updated_at = ?
WHERE paper_id = ? AND reviewer_id = ?
`, string(storage.ClaimStateClaimed), toMillis(expiresAt), toMillis(updatedAt), paperID, reviewerID)
	if err != nil {
		return fmt.Errorf("renew claim: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("renew claim rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// PutReview inserts one immutable review row.
func (s *Store) PutReview(ctx context.Context, review storage.ReviewRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	review.ID = strings.TrimSpace(review.ID)
	review.PaperID = strings.TrimSpace(review.PaperID)
	review.ReviewerID = strings.TrimSpace(review.ReviewerID)
	if review.ID == "" || review.PaperID == "" || review.ReviewerID == "" {
		return fmt.Errorf("review id, paper id, and reviewer id are required")
	}
	if review.CreatedAt.IsZero() {
		return fmt.Errorf("review created_at is required")
	}

	issuesJSON, err := json.Marshal(review.IssuesFound)
	if err != nil {
		return fmt.Errorf("encode review issues: %w", err)
	}
	if review.IssuesFound == nil {
		issuesJSON = []byte("[]")
	}

	_, err = s.sqlDB.ExecContext(ctx, `
	INSERT INTO reviews (
		id, paper_id, reviewer_id, verdict, comments, proof_verified, issues_json, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		review.ID,
		review.PaperID,
		review.ReviewerID,
		string(review.Verdict),
		review.Comments,
		boolToInt(review.ProofVerified),
		string(issuesJSON),
		toMillis(review.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("put review: %w", err)
	}
	return nil
}

// ListReviewsByPaper lists a paper's reviews oldest-first.
func (s *Store) ListReviewsByPaper(ctx context.Context, paperID string) ([]storage.ReviewRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	paperID = strings.TrimSpace(paperID)
	if paperID == "" {
		return nil, storage.ErrNotFound
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, paper_id, reviewer_id, verdict, comments, proof_verified, issues_json, created_at
FROM reviews
WHERE paper_id = ?
ORDER BY created_at ASC, id ASC
`, paperID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var results []storage.ReviewRecord
	for rows.Next() {
		record, scanErr := scanReview(rows.Scan)
		if scanErr != nil {
			return nil, fmt.Errorf("scan review row: %w", scanErr)
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review rows: %w", err)
	}
	return results, nil
}

// PutVote upserts one vote row for a (paper, agent) pair.
func (s *Store) PutVote(ctx context.Context, vote storage.VoteRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	vote.PaperID = strings.TrimSpace(vote.PaperID)
	vote.AgentID = strings.TrimSpace(vote.AgentID)
	if vote.PaperID == "" || vote.AgentID == "" {
		return fmt.Errorf("vote paper id and agent id are required")
	}
	if vote.CreatedAt.IsZero() || vote.UpdatedAt.IsZero() {
		return fmt.Errorf("vote timestamps are required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
	INSERT INTO votes (
		paper_id, agent_id, direction, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(paper_id, agent_id) DO UPDATE SET
		direction = excluded.direction,
		updated_at = excluded.updated_at
	`,
		vote.PaperID,
		vote.AgentID,
		string(vote.Direction),
		toMillis(vote.CreatedAt),
		toMillis(vote.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put vote: %w", err)
	}
	return nil
}

// GetVote loads the vote for one (paper, agent) pair.
func (s *Store) GetVote(ctx context.Context, paperID string, agentID string) (storage.VoteRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.VoteRecord{}, err
	}
	if err := s.ready(); err != nil {
		return storage.VoteRecord{}, err
	}
	paperID = strings.TrimSpace(paperID)
	agentID = strings.TrimSpace(agentID)
	if paperID == "" || agentID == "" {
		return storage.VoteRecord{}, storage.ErrNotFound
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT paper_id, agent_id, direction, created_at, updated_at
FROM votes
WHERE paper_id = ? AND agent_id = ?
`, paperID, agentID)
	record, err := scanVote(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.VoteRecord{}, storage.ErrNotFound
		}
		return storage.VoteRecord{}, fmt.Errorf("get vote: %w", err)
	}
	return record, nil
}

// DeleteVote removes the vote for one (paper, agent) pair.
func (s *Store) DeleteVote(ctx context.Context, paperID string, agentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	paperID = strings.TrimSpace(paperID)
	agentID = strings.TrimSpace(agentID)
	if paperID == "" || agentID == "" {
		return storage.ErrNotFound
	}

	result, err := s.sqlDB.ExecContext(ctx, `
DELETE FROM votes
WHERE paper_id = ? AND agent_id = ?
`, paperID, agentID)
	if err != nil {
		return fmt.Errorf("delete vote: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete vote rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// PutNotification inserts one inbox notification row.
func (s *Store) PutNotification(ctx context.Context, record storage.NotificationRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	record.ID = strings.TrimSpace(record.ID)
	record.RecipientID = strings.TrimSpace(record.RecipientID)
	if record.ID == "" {
		return fmt.Errorf("notification id is required")
	}
	if record.RecipientID == "" {
		return fmt.Errorf("notification recipient id is required")
	}
	if record.CreatedAt.IsZero() {
		return fmt.Errorf("notification created_at is required")
	}

	var readAt sql.NullInt64
	if record.ReadAt != nil {
		readAt = sql.NullInt64{Int64: toMillis(*record.ReadAt), Valid: true}
	}

	_, err := s.sqlDB.ExecContext(ctx, `
	INSERT INTO notifications (
		id, recipient_id, notification_type, title, message, related_id, created_at, read_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		record.ID,
		record.RecipientID,
		record.Type,
		record.Title,
		record.Message,
		record.RelatedID,
		toMillis(record.CreatedAt),
		readAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("put notification: %w", err)
	}
	return nil
}

// ListNotificationsByRecipient lists one recipient inbox newest-first.
func (s *Store) ListNotificationsByRecipient(ctx context.Context, recipientID string, limit int) ([]storage.NotificationRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	recipientID = strings.TrimSpace(recipientID)
	if recipientID == "" {
		return nil, storage.ErrNotFound
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, recipient_id, notification_type, title, message, related_id, created_at, read_at
FROM notifications
WHERE recipient_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?
`, recipientID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	results := make([]storage.NotificationRecord, 0, limit)
	for rows.Next() {
		record, scanErr := scanNotification(rows.Scan)
		if scanErr != nil {
			return nil, fmt.Errorf("scan notification row: %w", scanErr)
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notification rows: %w", err)
	}
	return results, nil
}

func scanAgent(scan scanner) (storage.AgentRecord, error) {
	var record storage.AgentRecord
	var verified int
	var createdAt int64
	var updatedAt int64
	if err := scan(
		&record.ID,
		&record.Handle,
		&record.Score,
		&record.PapersPublished,
		&record.VerificationsCount,
		&verified,
		&createdAt,
		&updatedAt,
	); err != nil {
		return storage.AgentRecord{}, err
	}
	record.Verified = verified != 0
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}

func scanPaper(scan scanner) (storage.PaperRecord, error) {
	var record storage.PaperRecord
	var paperType string
	var status string
	var createdAt int64
	var updatedAt int64
	if err := scan(
		&record.ID,
		&record.AuthorID,
		&record.Title,
		&record.Abstract,
		&paperType,
		&status,
		&record.VerificationsReceived,
		&record.VerificationsRequired,
		&record.ReviewersMax,
		&record.ReviewersClaimed,
		&record.Upvotes,
		&record.Downvotes,
		&createdAt,
		&updatedAt,
	); err != nil {
		return storage.PaperRecord{}, err
	}
	record.Type = storage.PaperType(paperType)
	record.Status = storage.PaperStatus(status)
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}

func scanClaim(scan scanner) (storage.ClaimRecord, error) {
	var record storage.ClaimRecord
	var state string
	var expiresAt int64
	var createdAt int64
	var updatedAt int64
	if err := scan(
		&record.ID,
		&record.PaperID,
		&record.ReviewerID,
		&state,
		&expiresAt,
		&createdAt,
		&updatedAt,
	); err != nil {
		return storage.ClaimRecord{}, err
	}
	record.State = storage.ClaimState(state)
	record.ExpiresAt = fromMillis(expiresAt)
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}

func scanReview(scan scanner) (storage.ReviewRecord, error) {
	var record storage.ReviewRecord
	var verdict string
	var proofVerified int
	var issuesJSON string
	var createdAt int64
	if err := scan(
		&record.ID,
		&record.PaperID,
		&record.ReviewerID,
		&verdict,
		&record.Comments,
		&proofVerified,
		&issuesJSON,
		&createdAt,
	); err != nil {
		return storage.ReviewRecord{}, err
	}
	record.Verdict = storage.Verdict(verdict)
	record.ProofVerified = proofVerified != 0
	record.CreatedAt = fromMillis(createdAt)
	if issuesJSON != "" && issuesJSON != "[]" {
		if err := json.Unmarshal([]byte(issuesJSON), &record.IssuesFound); err != nil {
			return storage.ReviewRecord{}, fmt.Errorf("decode review issues: %w", err)
		}
	}
	return record, nil
}

func scanVote(scan scanner) (storage.VoteRecord, error) {
	var record storage.VoteRecord
	var direction string
	var createdAt int64
	var updatedAt int64
	if err := scan(
		&record.PaperID,
		&record.AgentID,
		&direction,
		&createdAt,
		&updatedAt,
	); err != nil {
		return storage.VoteRecord{}, err
	}
	record.Direction = storage.VoteDirection(direction)
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}

func scanNotification(scan scanner) (storage.NotificationRecord, error) {
	var record storage.NotificationRecord
	var createdAt int64
	var readAt sql.NullInt64
	if err := scan(
		&record.ID,
		&record.RecipientID,
		&record.Type,
		&record.Title,
		&record.Message,
		&record.RelatedID,
		&createdAt,
		&readAt,
	); err != nil {
		return storage.NotificationRecord{}, err
	}
	record.CreatedAt = fromMillis(createdAt)
	if readAt.Valid {
		value := fromMillis(readAt.Int64)
		record.ReadAt = &value
	}
	return record, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	value := strings.ToLower(err.Error())
	return strings.Contains(value, "unique constraint failed")
}
