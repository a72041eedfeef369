package domain

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mathagora/mathagora/internal/services/review/storage"
)

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func sequentialIDGenerator(ids ...string) func() (string, error) {
	index := 0
	return func() (string, error) {
		if index >= len(ids) {
			return "", fmt.Errorf("id generator exhausted after %d ids", len(ids))
		}
		id := ids[index]
		index++
		return id, nil
	}
}

type fakeNotifier struct {
	mu    sync.Mutex
	sent  []fakeNotification
	fail  error
	calls int
}

type fakeNotification struct {
	RecipientID string
	Type        string
	Title       string
	Message     string
	RelatedID   string
}

func (n *fakeNotifier) Notify(_ context.Context, recipientID string, notificationType string, title string, message string, relatedID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	if n.fail != nil {
		return n.fail
	}
	n.sent = append(n.sent, fakeNotification{
		RecipientID: recipientID,
		Type:        notificationType,
		Title:       title,
		Message:     message,
		RelatedID:   relatedID,
	})
	return nil
}

type fakeStore struct {
	mu      sync.Mutex
	agents  map[string]storage.AgentRecord
	papers  map[string]storage.PaperRecord
	claims  map[string]storage.ClaimRecord
	reviews []storage.ReviewRecord
	votes   map[string]storage.VoteRecord

	addAgentDeltasErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		agents: make(map[string]storage.AgentRecord),
		papers: make(map[string]storage.PaperRecord),
		claims: make(map[string]storage.ClaimRecord),
		votes:  make(map[string]storage.VoteRecord),
	}
}

func pairKey(paperID string, agentID string) string {
	return paperID + "|" + agentID
}

func (f *fakeStore) PutAgent(_ context.Context, agent storage.AgentRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.agents[agent.ID]; ok {
		return storage.ErrConflict
	}
	for _, existing := range f.agents {
		if existing.Handle == agent.Handle {
			return storage.ErrConflict
		}
	}
	f.agents[agent.ID] = agent
	return nil
}

func (f *fakeStore) GetAgent(_ context.Context, agentID string) (storage.AgentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	agent, ok := f.agents[agentID]
	if !ok {
		return storage.AgentRecord{}, storage.ErrNotFound
	}
	return agent, nil
}

func (f *fakeStore) GetAgentByHandle(_ context.Context, handle string) (storage.AgentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, agent := range f.agents {
		if agent.Handle == handle {
			return agent, nil
		}
	}
	return storage.AgentRecord{}, storage.ErrNotFound
}

func (f *fakeStore) AddAgentDeltas(_ context.Context, agentID string, deltas storage.AgentDeltas, updatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addAgentDeltasErr != nil {
		return f.addAgentDeltasErr
	}
	agent, ok := f.agents[agentID]
	if !ok {
		return storage.ErrNotFound
	}
	agent.Score += deltas.Score
	agent.PapersPublished += deltas.PapersPublished
	agent.VerificationsCount += deltas.VerificationsCount
	agent.UpdatedAt = updatedAt
	f.agents[agentID] = agent
	return nil
}

func (f *fakeStore) PutPaper(_ context.Context, paper storage.PaperRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.papers[paper.ID]; ok {
		return storage.ErrConflict
	}
	f.papers[paper.ID] = paper
	return nil
}

func (f *fakeStore) GetPaper(_ context.Context, paperID string) (storage.PaperRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	paper, ok := f.papers[paperID]
	if !ok {
		return storage.PaperRecord{}, storage.ErrNotFound
	}
	return paper, nil
}

func (f *fakeStore) ClaimReviewerSlot(_ context.Context, paperID string, updatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	paper, ok := f.papers[paperID]
	if !ok {
		return storage.ErrNotFound
	}
	if paper.ReviewersClaimed >= paper.ReviewersMax {
		return storage.ErrConflict
	}
	paper.ReviewersClaimed++
	paper.UpdatedAt = updatedAt
	f.papers[paperID] = paper
	return nil
}

func (f *fakeStore) ReleaseReviewerSlot(_ context.Context, paperID string, updatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	paper, ok := f.papers[paperID]
	if !ok {
		return storage.ErrNotFound
	}
	if paper.ReviewersClaimed > 0 {
		paper.ReviewersClaimed--
	}
	paper.UpdatedAt = updatedAt
	f.papers[paperID] = paper
	return nil
}

func (f *fakeStore) MarkPaperInProgress(_ context.Context, paperID string, updatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	paper, ok := f.papers[paperID]
	if !ok {
		return storage.ErrNotFound
	}
	if paper.Status == storage.PaperStatusOpen {
		paper.Status = storage.PaperStatusInProgress
		paper.UpdatedAt = updatedAt
		f.papers[paperID] = paper
	}
	return nil
}

func (f *fakeStore) SetPaperReviewState(_ context.Context, paperID string, status storage.PaperStatus, verificationsReceived int, updatedAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	paper, ok := f.papers[paperID]
	if !ok {
		return false, storage.ErrNotFound
	}
	if paper.Status.IsTerminal() {
		return false, nil
	}
	paper.Status = status
	paper.VerificationsReceived = verificationsReceived
	paper.UpdatedAt = updatedAt
	f.papers[paperID] = paper
	return true, nil
}

func (f *fakeStore) AddPaperVotes(_ context.Context, paperID string, upDelta int64, downDelta int64, updatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	paper, ok := f.papers[paperID]
	if !ok {
		return storage.ErrNotFound
	}
	paper.Upvotes += upDelta
	if paper.Upvotes < 0 {
		paper.Upvotes = 0
	}
	paper.Downvotes += downDelta
	if paper.Downvotes < 0 {
		paper.Downvotes = 0
	}
	paper.UpdatedAt = updatedAt
	f.papers[paperID] = paper
	return nil
}

func (f *fakeStore) PutClaim(_ context.Context, claim storage.ClaimRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := pairKey(claim.PaperID, claim.ReviewerID)
	if _, ok := f.claims[key]; ok {
		return storage.ErrConflict
	}
	f.claims[key] = claim
	return nil
}

func (f *fakeStore) GetClaim(_ context.Context, paperID string, reviewerID string) (storage.ClaimRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	claim, ok := f.claims[pairKey(paperID, reviewerID)]
	if !ok {
		return storage.ClaimRecord{}, storage.ErrNotFound
	}
	return claim, nil
}

func (f *fakeStore) DeleteClaim(_ context.Context, paperID string, reviewerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := pairKey(paperID, reviewerID)
	if _, ok := f.claims[key]; !ok {
		return storage.ErrNotFound
	}
	delete(f.claims, key)
	return nil
}

func (f *fakeStore) SetClaimState(_ context.Context, paperID string, reviewerID string, state storage.ClaimState, updatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := pairKey(paperID, reviewerID)
	claim, ok := f.claims[key]
	if !ok {
		return storage.ErrNotFound
	}
	claim.State = state
	claim.UpdatedAt = updatedAt
	f.claims[key] = claim
	return nil
}

func (f *fakeStore) RenewClaim(_ context.Context, paperID string, reviewerID string, expiresAt time.Time, updatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := pairKey(paperID, reviewerID)
	claim, ok := f.claims[key]
	if !ok {
		return storage.ErrNotFound
	}
	claim.State = storage.ClaimStateClaimed
	claim.ExpiresAt = expiresAt
	claim.UpdatedAt = updatedAt
	f.claims[key] = claim
	return nil
}

func (f *fakeStore) PutReview(_ context.Context, review storage.ReviewRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.reviews {
		if existing.PaperID == review.PaperID && existing.ReviewerID == review.ReviewerID {
			return storage.ErrConflict
		}
	}
	f.reviews = append(f.reviews, review)
	return nil
}

func (f *fakeStore) ListReviewsByPaper(_ context.Context, paperID string) ([]storage.ReviewRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var results []storage.ReviewRecord
	for _, review := range f.reviews {
		if review.PaperID == paperID {
			results = append(results, review)
		}
	}
	return results, nil
}

func (f *fakeStore) PutVote(_ context.Context, vote storage.VoteRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.votes[pairKey(vote.PaperID, vote.AgentID)] = vote
	return nil
}

func (f *fakeStore) GetVote(_ context.Context, paperID string, agentID string) (storage.VoteRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	vote, ok := f.votes[pairKey(paperID, agentID)]
	if !ok {
		return storage.VoteRecord{}, storage.ErrNotFound
	}
	return vote, nil
}

func (f *fakeStore) DeleteVote(_ context.Context, paperID string, agentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := pairKey(paperID, agentID)
	if _, ok := f.votes[key]; !ok {
		return storage.ErrNotFound
	}
	delete(f.votes, key)
	return nil
}

func (f *fakeStore) agentScore(agentID string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.agents[agentID].Score
}

func (f *fakeStore) paperStatus(paperID string) storage.PaperStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.papers[paperID].Status
}

func seedAgent(store *fakeStore, id string, handle string, at time.Time) {
	store.agents[id] = storage.AgentRecord{
		ID:        id,
		Handle:    handle,
		CreatedAt: at,
		UpdatedAt: at,
	}
}

func seedPaper(store *fakeStore, paper storage.PaperRecord) {
	if paper.Type == "" {
		paper.Type = storage.PaperTypePaper
	}
	if paper.Status == "" {
		paper.Status = storage.PaperStatusOpen
	}
	if paper.VerificationsRequired == 0 {
		paper.VerificationsRequired = 3
	}
	if paper.ReviewersMax == 0 {
		paper.ReviewersMax = 5
	}
	store.papers[paper.ID] = paper
}
