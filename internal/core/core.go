// Package core defines the shared domain types passed between pipeline stages.
package core

import (
	"fmt"
	"time"
)

// PlanStrategy identifies how a query plan was produced.
type PlanStrategy string

const (
	// StrategyLLM means the planner decomposed the query via the LLM.
	StrategyLLM PlanStrategy = "llm"
	// StrategyFallback means planning failed and the plan is the raw query.
	StrategyFallback PlanStrategy = "fallback"
)

// Plan is the decomposition of a user query into search sub-queries.
type Plan struct {
	OriginalQuery string       `json:"originalQuery"`
	SubQueries    []string     `json:"subQueries"`
	Strategy      PlanStrategy `json:"strategy"`
}

// Provenance records which sub-query produced a hit and at what rank.
type Provenance struct {
	SourceQuery  string `json:"sourceQuery"`
	OriginalRank int    `json:"originalRank"`
}

// SearchHit is a normalized result from a search provider.
// ID is a short hex hash of the normalized URL, so the same page found by
// different sub-queries collapses to one hit.
type SearchHit struct {
	ID            string     `json:"id"`
	URL           string     `json:"url"`
	Title         string     `json:"title"`
	Snippet       string     `json:"snippet"`
	Domain        string     `json:"domain"`
	PublishedHint string     `json:"publishedHint,omitempty"`
	Provenance    Provenance `json:"provenance"`
}

// PageExtract is the readable content pulled out of a fetched page.
// Features is nil when tagging was skipped or failed.
type PageExtract struct {
	URL           string           `json:"url"`
	Title         string           `json:"title"`
	Body          string           `json:"body"`
	Excerpt       string           `json:"excerpt"`
	PublishedDate *time.Time       `json:"publishedDate,omitempty"`
	Features      *ContentFeatures `json:"features,omitempty"`
}

// ContentFeatures is the fixed 5-tuple of closed-vocabulary content dimensions.
type ContentFeatures struct {
	Depth    string `json:"depth"`
	Style    string `json:"style"`
	Format   string `json:"format"`
	Approach string `json:"approach"`
	Density  string `json:"density"`
}

// Closed vocabulary for each feature dimension. Arm identifiers are
// "dimension:value" pairs drawn only from these sets (17 arms total).
var (
	DepthValues    = []string{"introductory", "intermediate", "expert"}
	StyleValues    = []string{"academic", "technical", "journalistic", "conversational"}
	FormatValues   = []string{"tutorial", "research", "opinion", "reference"}
	ApproachValues = []string{"conceptual", "practical", "data-driven"}
	DensityValues  = []string{"concise", "moderate", "comprehensive"}
)

// NeutralFeatures is the default tuple substituted when tagging fails.
func NeutralFeatures() *ContentFeatures {
	return &ContentFeatures{
		Depth:    "intermediate",
		Style:    "journalistic",
		Format:   "reference",
		Approach: "practical",
		Density:  "moderate",
	}
}

// Valid reports whether every dimension carries a vocabulary value.
func (f *ContentFeatures) Valid() bool {
	return contains(DepthValues, f.Depth) &&
		contains(StyleValues, f.Style) &&
		contains(FormatValues, f.Format) &&
		contains(ApproachValues, f.Approach) &&
		contains(DensityValues, f.Density)
}

// Arms returns the five "dimension:value" arm identifiers for this tuple.
func (f *ContentFeatures) Arms() []string {
	return []string{
		"depth:" + f.Depth,
		"style:" + f.Style,
		"format:" + f.Format,
		"approach:" + f.Approach,
		"density:" + f.Density,
	}
}

// Values returns the bare feature values in dimension order.
func (f *ContentFeatures) Values() []string {
	return []string{f.Depth, f.Style, f.Format, f.Approach, f.Density}
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// Signals are the individual ranking components, each in [0,1].
type Signals struct {
	Relevance     float64 `json:"relevance"`
	Recency       float64 `json:"recency"`
	SourceQuality float64 `json:"sourceQuality"`
	Coverage      float64 `json:"coverage"`
}

// RankedDoc is a scored, explainable document ready for synthesis.
type RankedDoc struct {
	ID            string           `json:"id"`
	URL           string           `json:"url"`
	Title         string           `json:"title"`
	Excerpt       string           `json:"excerpt"`
	Domain        string           `json:"domain"`
	PublishedDate *time.Time       `json:"publishedDate,omitempty"`
	Features      *ContentFeatures `json:"features,omitempty"`
	Signals       Signals          `json:"signals"`
	Score         float64          `json:"score"`
	RankingReason string           `json:"rankingReason"`
}

// Citation links an inline [n] marker in the answer text to a source.
type Citation struct {
	Index    int    `json:"index"`
	SourceID string `json:"sourceId"`
	Passage  string `json:"passage"`
}

// AnswerPacket is the final synthesized answer with its citation ledger.
// Every citation index in Text is 1-based and at most len(Sources).
type AnswerPacket struct {
	QueryID   string      `json:"queryId"`
	Text      string      `json:"text"`
	Citations []Citation  `json:"citations"`
	Sources   []RankedDoc `json:"sources"`
}

// EventType enumerates the interaction events the client may report.
type EventType string

const (
	EventSourceClicked   EventType = "SOURCE_CLICKED"
	EventCitationClicked EventType = "CITATION_CLICKED"
	EventCitationHovered EventType = "CITATION_HOVERED"
	EventSourceExpanded  EventType = "SOURCE_EXPANDED"
	EventAnswerSaved     EventType = "ANSWER_SAVED"
)

// ValidEventType reports whether t is one of the known event types.
func ValidEventType(t EventType) bool {
	switch t {
	case EventSourceClicked, EventCitationClicked, EventCitationHovered,
		EventSourceExpanded, EventAnswerSaved:
		return true
	}
	return false
}

// EventMeta is the closed union of metadata an event may carry.
// Unknown keys in incoming JSON are ignored by construction.
type EventMeta struct {
	Features          *ContentFeatures  `json:"features,omitempty"`
	CitationNumber    int               `json:"citationNumber,omitempty"`
	AllSourceFeatures []ContentFeatures `json:"allSourceFeatures,omitempty"`
}

// UserEvent is one client-reported interaction. The event log is append-only.
type UserEvent struct {
	UserID    string     `json:"userId"`
	Timestamp time.Time  `json:"timestamp"`
	EventType EventType  `json:"eventType"`
	SourceID  string     `json:"sourceId,omitempty"`
	QueryID   string     `json:"queryId,omitempty"`
	Meta      *EventMeta `json:"meta,omitempty"`
}

// Validate checks the fields event intake requires before persisting.
func (e *UserEvent) Validate() error {
	if e.UserID == "" {
		return fmt.Errorf("event has no userId")
	}
	if !ValidEventType(e.EventType) {
		return fmt.Errorf("unknown event type %q", e.EventType)
	}
	return nil
}
