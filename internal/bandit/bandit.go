// Package bandit implements a per-user multi-armed bandit over content
// feature arms. Scoring is the deterministic Beta mean rather than a random
// Thompson draw: exploration comes from the uniform prior pulling low-evidence
// arms toward 0.5, so back-to-back score reads are always identical.
package bandit

import (
	"sort"
	"sync"
	"time"
)

// DefaultImpressionTimeout is how long an impression may stay pending before
// it resolves as a failure.
const DefaultImpressionTimeout = 25 * time.Second

// ArmStats holds the evidence for one arm. Values are real-valued because a
// click's credit is split evenly across the document's arms.
type ArmStats struct {
	Successes float64 `json:"successes"`
	Failures  float64 `json:"failures"`
}

// PendingImpression is an unresolved impression awaiting click-or-timeout.
type PendingImpression struct {
	Arms      []string
	QueryID   string
	SourceID  string
	Timestamp time.Time
}

// ArmScore pairs an arm with its Beta-mean score.
type ArmScore struct {
	Arm   string  `json:"arm"`
	Score float64 `json:"score"`
}

// Bandit is one user's arm statistics plus pending impressions. All methods
// are mutually exclusive on the same bandit; distinct users' bandits never
// interact.
type Bandit struct {
	mu      sync.Mutex
	arms    map[string]*ArmStats
	pending []PendingImpression
	timeout time.Duration
}

// New creates an empty bandit with the given impression timeout (zero for
// the default).
func New(timeout time.Duration) *Bandit {
	if timeout <= 0 {
		timeout = DefaultImpressionTimeout
	}
	return &Bandit{
		arms:    make(map[string]*ArmStats),
		timeout: timeout,
	}
}

// RecordPendingImpression notes that a source with the given arms was shown.
// Arm stats are untouched until the impression resolves.
func (b *Bandit) RecordPendingImpression(arms []string, queryID, sourceID string, now time.Time) {
	if len(arms) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(b.pending, PendingImpression{
		Arms:      append([]string(nil), arms...),
		QueryID:   queryID,
		SourceID:  sourceID,
		Timestamp: now,
	})
}

// RecordClick credits each arm with 1/len(arms) success, so a five-feature
// document does not count five times a one-feature one, and clears the
// matching pending impression: by source ID when given, otherwise the first
// pending entry with the same arm set.
func (b *Bandit) RecordClick(arms []string, sourceID string) {
	if len(arms) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	credit := 1.0 / float64(len(arms))
	for _, arm := range arms {
		b.stats(arm).Successes += credit
	}

	for i, p := range b.pending {
		if sourceID != "" {
			if p.SourceID == sourceID {
				b.pending = append(b.pending[:i], b.pending[i+1:]...)
				return
			}
			continue
		}
		if sameArms(p.Arms, arms) {
			b.pending = append(b.pending[:i], b.pending[i+1:]...)
			return
		}
	}
}

// ResolvePending turns every pending impression older than the timeout into
// fractional failures and removes it. Each impression resolves exactly once.
func (b *Bandit) ResolvePending(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var kept []PendingImpression
	for _, p := range b.pending {
		if now.Sub(p.Timestamp) <= b.timeout {
			kept = append(kept, p)
			continue
		}
		penalty := 1.0 / float64(len(p.Arms))
		for _, arm := range p.Arms {
			b.stats(arm).Failures += penalty
		}
	}
	b.pending = kept
}

// Scores returns the Beta-mean score for every tracked arm:
// (successes+1)/(successes+failures+2). Untracked arms are absent.
func (b *Bandit) Scores() map[string]float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	scores := make(map[string]float64, len(b.arms))
	for arm, stats := range b.arms {
		scores[arm] = (stats.Successes + 1) / (stats.Successes + stats.Failures + 2)
	}
	return scores
}

// TopK returns the k highest-scoring arms, descending.
func (b *Bandit) TopK(k int) []ArmScore {
	scores := b.Scores()
	ranked := make([]ArmScore, 0, len(scores))
	for arm, score := range scores {
		ranked = append(ranked, ArmScore{Arm: arm, Score: score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Arm < ranked[j].Arm
	})
	if k > 0 && len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}

// Stats returns a copy of every tracked arm's evidence.
func (b *Bandit) Stats() map[string]ArmStats {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[string]ArmStats, len(b.arms))
	for arm, stats := range b.arms {
		out[arm] = *stats
	}
	return out
}

// PendingCount reports how many impressions are awaiting resolution.
func (b *Bandit) PendingCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// stats returns the mutable stats for an arm, creating it if new. Caller
// holds the lock.
func (b *Bandit) stats(arm string) *ArmStats {
	s, ok := b.arms[arm]
	if !ok {
		s = &ArmStats{}
		b.arms[arm] = s
	}
	return s
}

func sameArms(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, arm := range a {
		set[arm] = true
	}
	for _, arm := range b {
		if !set[arm] {
			return false
		}
	}
	return true
}
