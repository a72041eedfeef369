package domain

import "github.com/mathagora/mathagora/internal/services/review/storage"

// Publication thresholds. A paper needs verificationsRequired clean approvals,
// or overwhelming approval despite dissent, before it publishes.
const (
	verificationsRequired   = 3
	rejectionsRequired      = 3
	overrideApprovalsNeeded = 5
)

// VerdictCounts summarizes a paper's accumulated review verdicts.
type VerdictCounts struct {
	Approvals  int
	Rejections int
	Total      int
}

// CountVerdicts tallies verdicts. needs_revision counts toward Total only.
func CountVerdicts(verdicts []storage.Verdict) VerdictCounts {
	counts := VerdictCounts{Total: len(verdicts)}
	for _, verdict := range verdicts {
		switch verdict {
		case storage.VerdictValid:
			counts.Approvals++
		case storage.VerdictInvalid:
			counts.Rejections++
		}
	}
	return counts
}

// NextStatus maps a paper's accumulated verdicts to its next lifecycle status.
// It must be recomputed from the full verdict multiset on every new review:
// the same review count can resolve differently depending on the mix.
//
// Precedence:
//  1. >= 3 valid with zero invalid publishes.
//  2. >= 5 valid with valid > 2x invalid publishes despite dissent.
//  3. >= 3 invalid with zero valid rejects.
//  4. Anything else leaves the status unchanged.
//
// Terminal statuses never change. The open -> under_review fold on first
// review belongs to the caller, not this function.
func NextStatus(current storage.PaperStatus, verdicts []storage.Verdict) storage.PaperStatus {
	if current.IsTerminal() {
		return current
	}

	counts := CountVerdicts(verdicts)
	switch {
	case counts.Approvals >= verificationsRequired && counts.Rejections == 0:
		return storage.PaperStatusPublished
	case counts.Approvals >= overrideApprovalsNeeded && counts.Approvals > counts.Rejections*2:
		return storage.PaperStatusPublished
	case counts.Rejections >= rejectionsRequired && counts.Approvals == 0:
		return storage.PaperStatusRejected
	default:
		return current
	}
}
