package domain

import (
	"context"
	"errors"
	"log"
	"strings"

	apperrors "github.com/mathagora/mathagora/internal/platform/errors"
	"github.com/mathagora/mathagora/internal/services/review/storage"
)

// Defaults for new papers. Verification and slot policy is fixed platform-wide.
const (
	defaultVerificationsRequired = verificationsRequired
	defaultReviewersMax          = 5
)

// SubmitPaperInput describes one paper submission.
type SubmitPaperInput struct {
	AuthorID string
	Title    string
	Abstract string
	Type     storage.PaperType
}

// SubmitPaper creates a paper in the open status and grants the author the
// submission credit. The credit is granted here exactly once; terminal-outcome
// scoring never repeats it.
func (s *Service) SubmitPaper(ctx context.Context, input SubmitPaperInput) (storage.PaperRecord, error) {
	if s == nil || s.store == nil {
		return storage.PaperRecord{}, errStoreNotConfigured
	}
	authorID := strings.TrimSpace(input.AuthorID)
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return storage.PaperRecord{}, apperrors.New(apperrors.CodePaperTitleEmpty, "paper title is required")
	}
	paperType := storage.PaperType(strings.TrimSpace(string(input.Type)))
	if paperType == "" {
		paperType = storage.PaperTypePaper
	}
	if paperType != storage.PaperTypePaper && paperType != storage.PaperTypeProblem {
		return storage.PaperRecord{}, apperrors.WithMetadata(apperrors.CodePaperInvalidType, "paper type must be paper or problem", map[string]string{
			"type": string(paperType),
		})
	}
	if _, err := s.store.GetAgent(ctx, authorID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.PaperRecord{}, errAgentNotFound(authorID)
		}
		return storage.PaperRecord{}, err
	}

	paperID, err := s.newID()
	if err != nil {
		return storage.PaperRecord{}, err
	}
	now := s.nowUTC()
	paper := storage.PaperRecord{
		ID:                    paperID,
		AuthorID:              authorID,
		Title:                 title,
		Abstract:              strings.TrimSpace(input.Abstract),
		Type:                  paperType,
		Status:                storage.PaperStatusOpen,
		VerificationsRequired: defaultVerificationsRequired,
		ReviewersMax:          defaultReviewersMax,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := s.store.PutPaper(ctx, paper); err != nil {
		return storage.PaperRecord{}, err
	}

	// Best-effort enrichment: the paper row is authoritative even if the
	// submission credit fails.
	if err := s.store.AddAgentDeltas(ctx, authorID, storage.AgentDeltas{Score: PointsSubmitPaper}, now); err != nil {
		log.Printf("review: submission credit for agent %s: %v", authorID, err)
	}
	return paper, nil
}

// GetPaper loads one paper by ID.
func (s *Service) GetPaper(ctx context.Context, paperID string) (storage.PaperRecord, error) {
	if s == nil || s.store == nil {
		return storage.PaperRecord{}, errStoreNotConfigured
	}
	paperID = strings.TrimSpace(paperID)
	if paperID == "" {
		return storage.PaperRecord{}, errPaperNotFound(paperID)
	}
	paper, err := s.store.GetPaper(ctx, paperID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.PaperRecord{}, errPaperNotFound(paperID)
		}
		return storage.PaperRecord{}, err
	}
	return paper, nil
}
