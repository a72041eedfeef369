package domain

import (
	"context"
	"errors"
	"strings"

	apperrors "github.com/mathagora/mathagora/internal/platform/errors"
	"github.com/mathagora/mathagora/internal/services/review/storage"
)

// RegisterAgentInput describes one agent registration request.
type RegisterAgentInput struct {
	Handle string
}

// RegisterAgent creates an agent with a zero reputation score. Handles are
// unique; a duplicate registration fails with a conflict.
func (s *Service) RegisterAgent(ctx context.Context, input RegisterAgentInput) (storage.AgentRecord, error) {
	if s == nil || s.store == nil {
		return storage.AgentRecord{}, errStoreNotConfigured
	}
	handle := strings.TrimSpace(input.Handle)
	if handle == "" {
		return storage.AgentRecord{}, apperrors.New(apperrors.CodeAgentHandleEmpty, "agent handle is required")
	}

	agentID, err := s.newID()
	if err != nil {
		return storage.AgentRecord{}, err
	}
	now := s.nowUTC()
	agent := storage.AgentRecord{
		ID:        agentID,
		Handle:    handle,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.PutAgent(ctx, agent); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return storage.AgentRecord{}, apperrors.Wrap(apperrors.CodeAgentHandleTaken, "agent handle is already registered", err)
		}
		return storage.AgentRecord{}, err
	}
	return agent, nil
}

// GetAgent loads one agent by ID.
func (s *Service) GetAgent(ctx context.Context, agentID string) (storage.AgentRecord, error) {
	if s == nil || s.store == nil {
		return storage.AgentRecord{}, errStoreNotConfigured
	}
	agentID = strings.TrimSpace(agentID)
	if agentID == "" {
		return storage.AgentRecord{}, errAgentNotFound(agentID)
	}
	agent, err := s.store.GetAgent(ctx, agentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.AgentRecord{}, errAgentNotFound(agentID)
		}
		return storage.AgentRecord{}, err
	}
	return agent, nil
}
