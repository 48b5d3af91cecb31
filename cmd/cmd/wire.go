package cmd

import (
	"fmt"

	"clarion/internal/config"
	"clarion/internal/events"
	"clarion/internal/features"
	"clarion/internal/fetch"
	"clarion/internal/llm"
	"clarion/internal/pipeline"
	"clarion/internal/planner"
	"clarion/internal/rank"
	"clarion/internal/search"
	"clarion/internal/synthesis"
)

// app is the fully wired application: every pipeline stage constructed from
// one loaded config. Both serve and ask build one of these.
type app struct {
	cfg      *config.Config
	pipeline *pipeline.Pipeline
	store    *events.Store
	provider search.Provider
}

func buildApp(configFile string) (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	provider, err := search.NewProviderFactory().CreateProvider(
		search.ProviderType(cfg.Search.Provider),
		map[string]string{"api_key": cfg.Search.APIKey},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create search provider %q: %w", cfg.Search.Provider, err)
	}

	llmClient, err := llm.NewClient(cfg.LLM.APIKey, cfg.LLM.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	store, err := events.NewStore(cfg.Events.DataDir, cfg.Pipeline.ImpressionTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to open event store: %w", err)
	}

	searcher := search.NewParallelSearcher(provider, search.ParallelOptions{
		Concurrency: cfg.Search.Concurrency,
		Timeout:     cfg.Search.Timeout,
		MaxPerQuery: cfg.Search.MaxPerQuery,
	})

	p := pipeline.New(
		planner.NewPlanner(llmClient),
		searcher,
		fetch.NewExtractor(cfg.Pipeline.FetchTimeout),
		features.NewTagger(llmClient),
		rank.NewRanker(),
		synthesis.NewSynthesizer(llmClient),
		store,
		pipeline.Options{MaxSources: cfg.Pipeline.MaxSources},
	)

	return &app{
		cfg:      cfg,
		pipeline: p,
		store:    store,
		provider: provider,
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		fmt.Printf("Warning: failed to close event store: %v\n", err)
	}
}
