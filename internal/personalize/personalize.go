// Package personalize re-scores ranked documents with a user's learned
// feature preferences.
package personalize

import (
	"fmt"
	"sort"

	"clarion/internal/core"
)

const (
	// boostWeight scales the bandit preference into a multiplier.
	boostWeight = 0.3
	// maxMultiplier caps how much personalization may inflate a score.
	maxMultiplier = 1.3
	// reasonThreshold is the minimum boost worth mentioning in the reason.
	reasonThreshold = 0.05
)

// Apply boosts documents whose features the user has shown preference for
// and stably re-sorts by the new scores. With no bandit evidence it is the
// identity: same order, same scores.
func Apply(docs []core.RankedDoc, armScores map[string]float64) []core.RankedDoc {
	if len(armScores) == 0 {
		return docs
	}

	boosted := make([]core.RankedDoc, len(docs))
	copy(boosted, docs)

	for i := range boosted {
		doc := &boosted[i]
		if doc.Features == nil {
			continue
		}

		matched := matchedArms(doc.Features, armScores)
		if len(matched) == 0 {
			continue
		}

		boost := 0.0
		for _, m := range matched {
			boost += m.score
		}
		boost /= float64(len(matched))

		multiplier := 1 + boostWeight*boost
		if multiplier > maxMultiplier {
			multiplier = maxMultiplier
		}
		doc.Score *= multiplier

		if boost > reasonThreshold {
			doc.RankingReason += personalizedTag(matched)
		}
	}

	sort.SliceStable(boosted, func(i, j int) bool {
		return boosted[i].Score > boosted[j].Score
	})
	return boosted
}

type armMatch struct {
	value string
	score float64
}

// matchedArms returns the document's arms that the bandit has evidence for,
// highest-scoring first, keyed by the bare feature value.
func matchedArms(features *core.ContentFeatures, armScores map[string]float64) []armMatch {
	arms := features.Arms()
	values := features.Values()

	var matched []armMatch
	for i, arm := range arms {
		if score, ok := armScores[arm]; ok {
			matched = append(matched, armMatch{value: values[i], score: score})
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].score > matched[j].score
	})
	return matched
}

// personalizedTag names the top two preferred values, e.g.
// " + personalized (expert, technical)".
func personalizedTag(matched []armMatch) string {
	if len(matched) == 1 {
		return fmt.Sprintf(" + personalized (%s)", matched[0].value)
	}
	return fmt.Sprintf(" + personalized (%s, %s)", matched[0].value, matched[1].value)
}
