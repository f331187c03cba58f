// Package engine orchestrates one commit's analysis: normalize, match, run
// the deterministic layers per file on a worker pool, merge advisory events,
// then deduplicate and order the batch.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Sumatoshi-tech/codedrift/pkg/ai"
	"github.com/Sumatoshi-tech/codedrift/pkg/classify"
	"github.com/Sumatoshi-tech/codedrift/pkg/event"
	"github.com/Sumatoshi-tech/codedrift/pkg/match"
	"github.com/Sumatoshi-tech/codedrift/pkg/normalize"
)

// FileInput is one changed file as supplied by the VCS collaborator. Nil
// BeforeText signals an added file, nil AfterText a removed one.
type FileInput struct {
	Path       string
	OldPath    string
	Language   normalize.Language
	BeforeText []byte
	AfterText  []byte
}

// Commit is the unit of analysis: metadata plus its ordered changed files.
type Commit struct {
	Meta  event.Meta
	Files []FileInput
}

// Engine drives the analysis pipeline. It holds no per-commit state; one
// engine serves any number of AnalyzeCommit calls concurrently.
type Engine struct {
	cfg      Config
	registry *normalize.Registry
	matcher  *match.Matcher
	layers   *classify.Set
	advisor  ai.Classifier
	obs      Observer
	log      *slog.Logger
}

// Option configures an engine at construction.
type Option func(*Engine)

// WithAdvisor wires the advisory classifier. Without it the advisory layer
// is silently absent.
func WithAdvisor(advisor ai.Classifier) Option {
	return func(e *Engine) { e.advisor = advisor }
}

// WithObserver wires analysis counters.
func WithObserver(obs Observer) Option {
	return func(e *Engine) { e.obs = obs }
}

// WithRegistry replaces the built-in language registry.
func WithRegistry(registry *normalize.Registry) Option {
	return func(e *Engine) { e.registry = registry }
}

// New creates an engine. The configuration is validated and then read-only.
func New(cfg Config, log *slog.Logger, opts ...Option) *Engine {
	cfg.Validate()

	if log == nil {
		log = slog.Default()
	}

	eng := &Engine{
		cfg:      cfg,
		registry: normalize.NewRegistry(),
		matcher:  match.New(cfg.Matcher),
		layers:   classify.NewSet(cfg.Thresholds, log),
		obs:      noopObserver{},
		log:      log,
	}

	for _, opt := range opts {
		opt(eng)
	}

	eng.layers.OnFault(func(layer event.Layer) {
		eng.obs.ClassifierFault(layer)
	})

	return eng
}

// AnalyzeCommit analyzes every changed file of one commit and returns the
// finalized batch. Per-file work runs on a bounded worker pool; the result
// ordering is a pure function of the input, independent of scheduling. On
// cancellation partial state is discarded and ctx.Err() returned.
func (e *Engine) AnalyzeCommit(ctx context.Context, commit Commit) (*event.Batch, error) {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := e.runDeterministic(ctx, commit.Files)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	advisory := e.runAdvisory(ctx, commit.Files)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	batch := event.NewBatch(commit.Meta)
	for _, events := range results {
		batch.Append(events...)
	}

	for _, events := range advisory {
		batch.Append(events...)
	}

	batch.Finalize()

	for layer, count := range batch.CountByLayer() {
		e.obs.EventsEmitted(layer, count)
	}

	e.obs.CommitAnalyzed(time.Since(start))

	return batch, nil
}

// runDeterministic fans the files out to the worker pool. Results are stored
// by input index so ordering never depends on completion order.
func (e *Engine) runDeterministic(ctx context.Context, files []FileInput) [][]event.Event {
	results := make([][]event.Event, len(files))

	jobs := make(chan int)

	var wg sync.WaitGroup

	workers := e.cfg.Workers
	if workers > len(files) {
		workers = len(files)
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for idx := range jobs {
				if ctx.Err() != nil {
					continue
				}

				results[idx] = e.analyzeFile(ctx, &files[idx])
			}
		}()
	}

	for idx := range files {
		jobs <- idx
	}

	close(jobs)
	wg.Wait()

	return results
}

// analyzeFile runs normalize, match, and the deterministic layers for one
// file. A parse failure yields the structural marker only; it never aborts
// sibling files.
func (e *Engine) analyzeFile(ctx context.Context, file *FileInput) []event.Event {
	change := &classify.FileChange{Path: file.Path}

	beforePath := file.Path
	if file.OldPath != "" {
		beforePath = file.OldPath
	}

	var parseFailed bool

	if file.BeforeText != nil {
		before, err := e.registry.Parse(ctx, file.BeforeText, beforePath, file.Language)
		if err != nil {
			parseFailed = true

			e.reportParseFailure(file.Path, err)
		} else {
			change.Before = before
		}
	}

	if file.AfterText != nil {
		after, err := e.registry.Parse(ctx, file.AfterText, file.Path, file.Language)
		if err != nil {
			parseFailed = true

			e.reportParseFailure(file.Path, err)
		} else {
			change.After = after
		}
	}

	if parseFailed {
		change.Before = nil
		change.After = nil
		change.ParseFailed = true
		change.BeforeText = file.BeforeText
		change.AfterText = file.AfterText
	} else if change.Before != nil && change.After != nil {
		change.Match = e.matcher.Match(change.Before, change.After)
	}

	e.obs.FileAnalyzed()

	return e.layers.Run(change)
}

func (e *Engine) reportParseFailure(path string, err error) {
	e.obs.ParseFailure()
	e.log.Warn("parse failure",
		slog.String("file", path),
		slog.String("error", err.Error()))
}

// runAdvisory collects advisory events for each file under a bounded
// concurrency semaphore. Failures after retries exhaust are omitted;
// deterministic events are never gated on this path.
func (e *Engine) runAdvisory(ctx context.Context, files []FileInput) [][]event.Event {
	if e.advisor == nil {
		return nil
	}

	results := make([][]event.Event, len(files))
	sem := make(chan struct{}, e.cfg.AI.Concurrency)

	var wg sync.WaitGroup

	for idx := range files {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)

		go func(idx int) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			results[idx] = e.classifyAdvisory(ctx, &files[idx])
		}(idx)
	}

	wg.Wait()

	return results
}

// classifyAdvisory calls the advisor with a per-call timeout and bounded
// retries with exponential backoff.
func (e *Engine) classifyAdvisory(ctx context.Context, file *FileInput) []event.Event {
	backoff := e.cfg.AI.Backoff

	for attempt := 0; attempt <= e.cfg.AI.Retries; attempt++ {
		if ctx.Err() != nil {
			return nil
		}

		callCtx, cancel := context.WithTimeout(ctx, e.cfg.AI.Timeout)
		events, err := e.advisor.Classify(callCtx, file.BeforeText, file.AfterText, file.Path)

		cancel()

		if err == nil {
			return events
		}

		if attempt < e.cfg.AI.Retries {
			e.obs.AIRetry()

			if !sleepCtx(ctx, backoff) {
				return nil
			}

			backoff *= 2
		}
	}

	e.obs.AIFailure()
	e.log.Warn("advisory classification failed", slog.String("file", file.Path))

	return nil
}

// sleepCtx waits for the duration unless the context ends first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
