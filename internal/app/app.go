package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"PubMedCurator/internal/cascade"
	"PubMedCurator/internal/config"
	"PubMedCurator/internal/domain"
	"PubMedCurator/internal/feedio"
	"PubMedCurator/internal/infrastructure/cachestore"
	"PubMedCurator/internal/infrastructure/llm"
	"PubMedCurator/internal/infrastructure/pubmed"
	"PubMedCurator/internal/ports"
	"PubMedCurator/internal/usecase"
)

// Application wires configuration into the pipeline variants.
type Application struct {
	cfg    config.Config
	logger *slog.Logger
}

// New builds a runnable application instance.
func New(cfg config.Config, logger *slog.Logger) *Application {
	return &Application{cfg: cfg, logger: logger}
}

// RunFilter executes the accept/reject variant: cascade fetch, per-record
// classification, two feed artifacts.
func (a *Application) RunFilter(ctx context.Context) error {
	// Required instruction is read before any network call so a missing
	// file fails fast as a configuration error.
	instruction, err := a.cfg.ClassifierInstruction()
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}

	// The nil check happens before the interface assignment so a missing
	// cache stays a nil interface inside the cascade.
	var cache ports.CacheStore
	if store := a.openCache(); store != nil {
		defer store.Close()
		cache = store
	}

	manager := cascade.NewManager(a.buildStrategies(cache), cache, a.logger.With("component", "cascade"))

	classifier := llm.NewClassifier(
		llm.NewClient(a.cfg.LLM),
		instruction,
		a.cfg.Classifier.MaxPromptChars,
		a.cfg.Classifier.FailOpen(),
	)

	assembler := feedio.NewAssembler(0, a.logger.With("component", "assembler"))

	pipeline := usecase.NewFilterPipeline(
		manager,
		classifier,
		assembler,
		domain.Query{
			Text:         a.cfg.Source.Query,
			LookbackDays: a.cfg.Source.LookbackDays,
			Limit:        a.cfg.Source.Limit,
		},
		a.cfg.LLM.Delay(),
		a.logger.With("component", "pipeline"),
	)
	pipeline.AcceptedPath = filepath.Join(a.cfg.Output.Dir, a.cfg.Output.AcceptedFile)
	pipeline.RejectedPath = filepath.Join(a.cfg.Output.Dir, a.cfg.Output.RejectedFile)
	pipeline.AcceptedChannel = feedio.Channel{
		Title:       "PubMed Curator - Accepted Papers",
		Link:        a.cfg.Output.ChannelLink,
		Description: "Papers classified as relevant by the automated classifier",
	}
	pipeline.RejectedChannel = feedio.Channel{
		Title:       "PubMed Curator - Rejected Papers",
		Link:        a.cfg.Output.ChannelLink,
		Description: "Papers rejected by the automated classifier",
	}

	return pipeline.Run(ctx)
}

// RunBestOf executes the ranking variant on the filter run's accepted feed.
func (a *Application) RunBestOf(ctx context.Context) error {
	criteria, err := a.cfg.ScorerCriteria()
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}

	scorer := llm.NewScorer(llm.NewClient(a.cfg.LLM), criteria)
	assembler := feedio.NewAssembler(a.cfg.Scorer.TopN, a.logger.With("component", "assembler"))

	pipeline := usecase.NewBestOfPipeline(scorer, assembler, a.cfg.LLM.Delay(),
		a.logger.With("component", "pipeline"))
	pipeline.InputPath = filepath.Join(a.cfg.Output.Dir, a.cfg.Output.AcceptedFile)
	pipeline.OutputPath = filepath.Join(a.cfg.Output.Dir, a.cfg.Output.BestOfFile)
	pipeline.Channel = feedio.Channel{
		Title:       "PubMed Curator - Best Of",
		Link:        a.cfg.Output.ChannelLink,
		Description: fmt.Sprintf("Top %d most impactful papers, selected by AI", a.cfg.Scorer.TopN),
	}

	return pipeline.Run(ctx)
}

// openCache opens the last-batch store. A broken cache never blocks a run;
// it only removes the fallback strategy.
func (a *Application) openCache() *cachestore.SQLiteStore {
	store, err := cachestore.Open(a.cfg.Cache.Path)
	if err != nil {
		a.logger.Warn("cache store unavailable, continuing without fallback", "path", a.cfg.Cache.Path, "error", err)
		return nil
	}
	return store
}

func (a *Application) buildStrategies(store ports.CacheStore) []ports.FetchStrategy {
	httpClient := &http.Client{Timeout: 30 * time.Second}

	var strategies []ports.FetchStrategy
	for _, mirror := range a.cfg.Source.Mirrors {
		strategies = append(strategies, pubmed.NewRSSStrategy(
			mirror.Name, mirror.URL, httpClient,
			a.logger.With("component", "source."+mirror.Name)))
	}

	if a.cfg.Source.Entrez.IsEnabled() && a.cfg.Source.Query != "" {
		strategies = append(strategies, pubmed.NewEntrezStrategy(
			a.cfg.Source.Entrez.BaseURL,
			a.cfg.Source.Entrez.APIKey,
			httpClient,
			a.logger.With("component", "source.entrez")))
	}

	if store != nil {
		strategies = append(strategies, cascade.NewCacheStrategy(store))
	}

	return strategies
}
