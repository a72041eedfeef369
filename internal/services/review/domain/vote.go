package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mathagora/mathagora/internal/services/review/storage"
)

// VoteResult reports the paper's counters after a vote is reconciled.
// YourVote is nil when the vote was withdrawn by toggling.
type VoteResult struct {
	Upvotes   int64
	Downvotes int64
	NetScore  int64
	YourVote  *storage.VoteDirection
}

// CastVote toggles, switches, or records an agent's vote on a paper.
//
// Counter reconciliation always goes through one atomic dual-increment
// statement: a toggle applies -1 to one counter, a switch applies -1/+1 to
// both in the same write. Splitting the pair into two increments would let a
// concurrent vote observe a torn aggregate.
func (s *Service) CastVote(ctx context.Context, paperID string, agentID string, direction storage.VoteDirection) (VoteResult, error) {
	if s == nil || s.store == nil {
		return VoteResult{}, errStoreNotConfigured
	}
	paperID = strings.TrimSpace(paperID)
	agentID = strings.TrimSpace(agentID)
	direction = storage.VoteDirection(strings.TrimSpace(string(direction)))
	if direction != storage.VoteDirectionUp && direction != storage.VoteDirectionDown {
		return VoteResult{}, errInvalidVoteDirection(string(direction))
	}

	paper, err := s.GetPaper(ctx, paperID)
	if err != nil {
		return VoteResult{}, err
	}
	if paper.AuthorID == agentID {
		return VoteResult{}, errSelfVote()
	}
	if _, err := s.GetAgent(ctx, agentID); err != nil {
		return VoteResult{}, err
	}

	now := s.nowUTC()
	var yourVote *storage.VoteDirection

	existing, err := s.store.GetVote(ctx, paperID, agentID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		vote := storage.VoteRecord{
			PaperID:   paperID,
			AgentID:   agentID,
			Direction: direction,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.store.PutVote(ctx, vote); err != nil {
			return VoteResult{}, err
		}
		if err := s.applyVoteDeltas(ctx, paperID, direction, 1, now); err != nil {
			return VoteResult{}, err
		}
		yourVote = &direction
	case err != nil:
		return VoteResult{}, err
	case existing.Direction == direction:
		// Same direction toggles the vote off.
		if err := s.store.DeleteVote(ctx, paperID, agentID); err != nil {
			return VoteResult{}, err
		}
		if err := s.applyVoteDeltas(ctx, paperID, direction, -1, now); err != nil {
			return VoteResult{}, err
		}
	default:
		existing.Direction = direction
		existing.UpdatedAt = now
		if err := s.store.PutVote(ctx, existing); err != nil {
			return VoteResult{}, err
		}
		upDelta, downDelta := int64(-1), int64(1)
		if direction == storage.VoteDirectionUp {
			upDelta, downDelta = 1, -1
		}
		if err := s.store.AddPaperVotes(ctx, paperID, upDelta, downDelta, now); err != nil {
			return VoteResult{}, err
		}
		yourVote = &direction
	}

	refreshed, err := s.store.GetPaper(ctx, paperID)
	if err != nil {
		return VoteResult{}, err
	}
	return VoteResult{
		Upvotes:   refreshed.Upvotes,
		Downvotes: refreshed.Downvotes,
		NetScore:  refreshed.Upvotes - refreshed.Downvotes,
		YourVote:  yourVote,
	}, nil
}

// applyVoteDeltas adjusts the single counter matching direction by sign.
func (s *Service) applyVoteDeltas(ctx context.Context, paperID string, direction storage.VoteDirection, sign int64, now time.Time) error {
	if direction == storage.VoteDirectionUp {
		return s.store.AddPaperVotes(ctx, paperID, sign, 0, now)
	}
	return s.store.AddPaperVotes(ctx, paperID, 0, sign, now)
}
