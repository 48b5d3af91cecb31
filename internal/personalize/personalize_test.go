package personalize

import (
	"strings"
	"testing"

	"clarion/internal/core"
)

func doc(id string, score float64, features *core.ContentFeatures) core.RankedDoc {
	return core.RankedDoc{
		ID:            id,
		Score:         score,
		Features:      features,
		RankingReason: "matched query",
	}
}

func expertFeatures() *core.ContentFeatures {
	return &core.ContentFeatures{
		Depth: "expert", Style: "technical", Format: "tutorial",
		Approach: "practical", Density: "comprehensive",
	}
}

func TestApplyIsIdentityWithoutEvidence(t *testing.T) {
	docs := []core.RankedDoc{
		doc("a", 0.8, expertFeatures()),
		doc("b", 0.6, nil),
	}

	got := Apply(docs, nil)

	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("Expected unchanged order, got %v", got)
	}
	if got[0].Score != 0.8 || got[1].Score != 0.6 {
		t.Errorf("Expected unchanged scores, got %f and %f", got[0].Score, got[1].Score)
	}
	if strings.Contains(got[0].RankingReason, "personalized") {
		t.Errorf("Expected no personalization tag, got %q", got[0].RankingReason)
	}
}

func TestApplyBoostsPreferredFeatures(t *testing.T) {
	docs := []core.RankedDoc{
		doc("plain", 0.60, nil),
		doc("preferred", 0.58, expertFeatures()),
	}
	armScores := map[string]float64{
		"depth:expert":    0.9,
		"style:technical": 0.8,
	}

	got := Apply(docs, armScores)

	if got[0].ID != "preferred" {
		t.Errorf("Expected preferred doc boosted to first place, got %s", got[0].ID)
	}
	if got[0].Score <= 0.58 {
		t.Errorf("Expected boosted score above 0.58, got %f", got[0].Score)
	}
	if !strings.Contains(got[0].RankingReason, "personalized") {
		t.Errorf("Expected personalization tag, got %q", got[0].RankingReason)
	}
}

func TestApplyCapsMultiplier(t *testing.T) {
	docs := []core.RankedDoc{doc("a", 1.0, expertFeatures())}
	armScores := map[string]float64{
		"depth:expert":          1.0,
		"style:technical":       1.0,
		"format:tutorial":       1.0,
		"approach:practical":    1.0,
		"density:comprehensive": 1.0,
	}

	got := Apply(docs, armScores)

	if got[0].Score > 1.3+1e-9 {
		t.Errorf("Expected multiplier capped at 1.3, got score %f", got[0].Score)
	}
}

func TestApplyTagNamesTopTwoValues(t *testing.T) {
	docs := []core.RankedDoc{doc("a", 0.5, expertFeatures())}
	armScores := map[string]float64{
		"depth:expert":    0.95,
		"style:technical": 0.90,
		"format:tutorial": 0.60,
	}

	got := Apply(docs, armScores)

	if !strings.Contains(got[0].RankingReason, "personalized (expert, technical)") {
		t.Errorf("Expected top two preferred values in tag, got %q", got[0].RankingReason)
	}
}

func TestApplySkipsLowBoostTag(t *testing.T) {
	docs := []core.RankedDoc{doc("a", 0.5, expertFeatures())}
	// Scores near the prior mean produce a negligible boost.
	armScores := map[string]float64{"depth:expert": 0.02}

	got := Apply(docs, armScores)

	if strings.Contains(got[0].RankingReason, "personalized") {
		t.Errorf("Expected no tag for a sub-threshold boost, got %q", got[0].RankingReason)
	}
}

func TestApplyLeavesUntaggedDocsAlone(t *testing.T) {
	docs := []core.RankedDoc{doc("a", 0.7, nil)}
	armScores := map[string]float64{"depth:expert": 0.9}

	got := Apply(docs, armScores)

	if got[0].Score != 0.7 {
		t.Errorf("Expected untagged doc score unchanged, got %f", got[0].Score)
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	docs := []core.RankedDoc{
		doc("a", 0.5, expertFeatures()),
		doc("b", 0.9, nil),
	}
	armScores := map[string]float64{"depth:expert": 1.0}

	Apply(docs, armScores)

	if docs[0].Score != 0.5 {
		t.Errorf("Expected input slice untouched, score changed to %f", docs[0].Score)
	}
}
