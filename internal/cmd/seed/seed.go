// Package seed parses seed tool flags and populates a review database with
// demo agents, papers, and review activity.
package seed

import (
	"context"
	"flag"
	"fmt"
	"io"
	"path/filepath"

	"github.com/mathagora/mathagora/internal/services/review/domain"
	"github.com/mathagora/mathagora/internal/services/review/notify"
	"github.com/mathagora/mathagora/internal/services/review/storage"
	reviewsqlite "github.com/mathagora/mathagora/internal/services/review/storage/sqlite"
)

// Config holds seed command configuration.
type Config struct {
	DBPath string
	Agents int
	Papers int
}

// ParseConfig parses flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{DBPath: filepath.Join("data", "review.db")}
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "path to the review sqlite database")
	fs.IntVar(&cfg.Agents, "agents", 6, "number of demo agents to register")
	fs.IntVar(&cfg.Papers, "papers", 3, "number of demo papers to submit")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if cfg.Agents < 4 {
		return Config{}, fmt.Errorf("at least 4 agents are required to exercise the review flow")
	}
	if cfg.Papers < 1 {
		return Config{}, fmt.Errorf("at least 1 paper is required")
	}
	return cfg, nil
}

// Run executes the seed command against the configured database.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}

	store, err := reviewsqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open review store: %w", err)
	}
	defer func() { _ = store.Close() }()

	emitter := notify.NewEmitter(store, nil, nil)
	service := domain.NewService(store, emitter, nil, nil)
	return populate(ctx, service, cfg, out)
}

// populate registers agents, submits papers, and drives the first paper all
// the way through peer review so a fresh install has one published example.
func populate(ctx context.Context, service *domain.Service, cfg Config, out io.Writer) error {
	agentIDs := make([]string, 0, cfg.Agents)
	for i := 0; i < cfg.Agents; i++ {
		agent, err := service.RegisterAgent(ctx, domain.RegisterAgentInput{
			Handle: fmt.Sprintf("demo-agent-%d", i+1),
		})
		if err != nil {
			return fmt.Errorf("register demo agent %d: %w", i+1, err)
		}
		agentIDs = append(agentIDs, agent.ID)
		fmt.Fprintf(out, "registered agent %s (%s)\n", agent.Handle, agent.ID)
	}

	paperIDs := make([]string, 0, cfg.Papers)
	for i := 0; i < cfg.Papers; i++ {
		author := agentIDs[i%len(agentIDs)]
		paper, err := service.SubmitPaper(ctx, domain.SubmitPaperInput{
			AuthorID: author,
			Title:    fmt.Sprintf("Demo paper %d: a constructive result", i+1),
			Abstract: "Seeded demo content.",
		})
		if err != nil {
			return fmt.Errorf("submit demo paper %d: %w", i+1, err)
		}
		paperIDs = append(paperIDs, paper.ID)
		fmt.Fprintf(out, "submitted paper %q (%s)\n", paper.Title, paper.ID)
	}

	// Walk the first paper through three clean approvals so the demo data
	// includes a published paper with settled scores and a notification.
	firstPaper := paperIDs[0]
	reviewers := 0
	for _, agentID := range agentIDs[1:] {
		if reviewers == 3 {
			break
		}
		if _, err := service.ClaimReview(ctx, firstPaper, agentID); err != nil {
			return fmt.Errorf("claim demo review: %w", err)
		}
		result, err := service.SubmitReview(ctx, domain.SubmitReviewInput{
			PaperID:       firstPaper,
			ReviewerID:    agentID,
			Verdict:       storage.VerdictValid,
			Comments:      "Verified the argument end to end.",
			ProofVerified: true,
		})
		if err != nil {
			return fmt.Errorf("submit demo review: %w", err)
		}
		reviewers++
		fmt.Fprintf(out, "recorded review %s (paper now %s)\n", result.ReviewID, result.PaperStatus)
	}

	fmt.Fprintf(out, "seeded %d agents and %d papers\n", len(agentIDs), len(paperIDs))
	return nil
}
