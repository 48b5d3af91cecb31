// Package pipeline sequences one answer request end to end: plan, search,
// extract, tag, rank, personalize, synthesize. Progress and answer chunks
// stream out through an emit callback; every request ends with exactly one
// terminal complete or error event (unless the request was cancelled, in
// which case the stream is already dead).
package pipeline

import (
	"context"
	"time"

	"clarion/internal/core"
	"clarion/internal/events"
	"clarion/internal/logger"
	"clarion/internal/personalize"
	"clarion/internal/rank"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Pipeline stage names, in emission order.
const (
	StagePlanning     = "planning"
	StageSearching    = "searching"
	StageAnalyzing    = "analyzing"
	StageSynthesizing = "synthesizing"
)

// Event frame types.
const (
	TypeProgress = "progress"
	TypeChunk    = "chunk"
	TypeComplete = "complete"
	TypeError    = "error"
)

// Event is one frame on the answer stream.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ProgressData reports which stage the pipeline has reached.
type ProgressData struct {
	Stage   string `json:"stage"`
	Message string `json:"message,omitempty"`
}

// ErrorData is the payload of a terminal error frame.
type ErrorData struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Planner decomposes a query; it degrades internally and never fails.
type Planner interface {
	Plan(ctx context.Context, query string) core.Plan
}

// Searcher executes a plan into a merged hit list.
type Searcher interface {
	SearchPlan(ctx context.Context, plan core.Plan) ([]core.SearchHit, error)
}

// Extractor fetches one URL into a page extract.
type Extractor interface {
	Extract(ctx context.Context, url string) (*core.PageExtract, error)
}

// Tagger classifies a page; nil means the page carries no features.
type Tagger interface {
	Tag(ctx context.Context, title, body string) *core.ContentFeatures
}

// Ranker orders extracted documents by score.
type Ranker interface {
	Rank(query string, inputs []rank.Input) []core.RankedDoc
}

// Synthesizer produces the cited answer from ranked documents.
type Synthesizer interface {
	Synthesize(ctx context.Context, query, queryID string, docs []core.RankedDoc, onChunk func(string)) (*core.AnswerPacket, error)
}

// Options tune a pipeline. Zero values take defaults.
type Options struct {
	FetchConcurrency int
	MaxSources       int
}

// Pipeline wires the stages together for the lifetime of the process;
// individual requests are independent.
type Pipeline struct {
	planner     Planner
	searcher    Searcher
	extractor   Extractor
	tagger      Tagger
	ranker      Ranker
	synthesizer Synthesizer
	store       *events.Store

	fetchConcurrency int
	maxSources       int
}

// New creates a pipeline from its stage implementations.
func New(planner Planner, searcher Searcher, extractor Extractor, tagger Tagger, ranker Ranker, synthesizer Synthesizer, store *events.Store, opts Options) *Pipeline {
	p := &Pipeline{
		planner:          planner,
		searcher:         searcher,
		extractor:        extractor,
		tagger:           tagger,
		ranker:           ranker,
		synthesizer:      synthesizer,
		store:            store,
		fetchConcurrency: opts.FetchConcurrency,
		maxSources:       opts.MaxSources,
	}
	if p.fetchConcurrency <= 0 {
		p.fetchConcurrency = 8
	}
	if p.maxSources <= 0 {
		p.maxSources = 8
	}
	return p
}

// Request is one answer request.
type Request struct {
	Query  string
	UserID string
	// Plan, when set, skips the planning stage (the client already has one).
	Plan *core.Plan
}

// Answer runs the full pipeline for one request, streaming events through
// emit. It never emits after the terminal frame.
func (p *Pipeline) Answer(ctx context.Context, req Request, emit func(Event)) {
	queryID := uuid.NewString()

	// Resolve the previous request's unclicked impressions before this
	// request reads the user's scores.
	if req.UserID != "" {
		p.store.Bandit(req.UserID).ResolvePending(time.Now())
	}

	emit(Event{Type: TypeProgress, Data: ProgressData{Stage: StagePlanning}})
	var plan core.Plan
	if req.Plan != nil && len(req.Plan.SubQueries) > 0 {
		plan = *req.Plan
	} else {
		plan = p.planner.Plan(ctx, req.Query)
	}
	if ctx.Err() != nil {
		return
	}

	emit(Event{Type: TypeProgress, Data: ProgressData{Stage: StageSearching}})
	hits, err := p.searcher.SearchPlan(ctx, plan)
	if err != nil {
		p.fatal(ctx, emit, "search_failed", err)
		return
	}
	if len(hits) == 0 {
		p.fatal(ctx, emit, "no_results", nil)
		return
	}

	inputs := p.extractAndTag(ctx, req.Query, hits)
	if ctx.Err() != nil {
		return
	}

	emit(Event{Type: TypeProgress, Data: ProgressData{Stage: StageAnalyzing}})
	docs := p.ranker.Rank(req.Query, inputs)

	if req.UserID != "" {
		userBandit := p.store.Bandit(req.UserID)
		docs = personalize.Apply(docs, userBandit.Scores())

		now := time.Now()
		for i, doc := range docs {
			if i >= p.maxSources {
				break
			}
			if doc.Features == nil {
				continue
			}
			userBandit.RecordPendingImpression(doc.Features.Arms(), queryID, doc.ID, now)
		}
	}

	emit(Event{Type: TypeProgress, Data: ProgressData{Stage: StageSynthesizing}})
	packet, err := p.synthesizer.Synthesize(ctx, req.Query, queryID, docs, func(chunk string) {
		emit(Event{Type: TypeChunk, Data: chunk})
	})
	if err != nil {
		p.fatal(ctx, emit, "synthesis_failed", err)
		return
	}
	if ctx.Err() != nil {
		return
	}

	emit(Event{Type: TypeComplete, Data: packet})
}

// extractAndTag fetches and classifies all hits concurrently, keeping
// whatever succeeded in hit order.
func (p *Pipeline) extractAndTag(ctx context.Context, query string, hits []core.SearchHit) []rank.Input {
	pages := make([]*core.PageExtract, len(hits))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.fetchConcurrency)
	for i, hit := range hits {
		g.Go(func() error {
			page, err := p.extractor.Extract(gctx, hit.URL)
			if err != nil {
				logger.Debug("page extraction failed", "url", hit.URL, "error", err.Error())
				return nil
			}
			page.Features = p.tagger.Tag(gctx, page.Title, page.Body)
			pages[i] = page
			return nil
		})
	}
	_ = g.Wait()

	var inputs []rank.Input
	for i, page := range pages {
		if page == nil {
			continue
		}
		inputs = append(inputs, rank.Input{Hit: hits[i], Page: page})
	}
	logger.Info("extraction complete", "query", query, "hits", len(hits), "extracted", len(inputs))
	return inputs
}

// SearchOnly runs plan + search for the first-pass results endpoint.
func (p *Pipeline) SearchOnly(ctx context.Context, query string) (core.Plan, []core.SearchHit, error) {
	plan := p.planner.Plan(ctx, query)
	hits, err := p.searcher.SearchPlan(ctx, plan)
	if err != nil {
		return plan, nil, err
	}
	return plan, hits, nil
}

// fatal emits the terminal error frame, unless the request is already
// cancelled and nobody is listening.
func (p *Pipeline) fatal(ctx context.Context, emit func(Event), kind string, err error) {
	if ctx.Err() != nil {
		return
	}
	message := kind
	if err != nil {
		message = err.Error()
		logger.Error("pipeline request failed", err, "kind", kind)
	}
	emit(Event{Type: TypeError, Data: ErrorData{Error: kind, Message: message}})
}
