// Package runner walks a repository's history through the analysis engine
// and persists the resulting event batches. It is the shared orchestration
// behind the analyze CLI command and the MCP analyze tool.
package runner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Sumatoshi-tech/codedrift/internal/observability"
	"github.com/Sumatoshi-tech/codedrift/internal/storage"
	"github.com/Sumatoshi-tech/codedrift/internal/vcs"
	"github.com/Sumatoshi-tech/codedrift/pkg/engine"
	"github.com/Sumatoshi-tech/codedrift/pkg/event"
)

// Stats summarizes one analysis run.
type Stats struct {
	// Commits is the number of commits analyzed in this run.
	Commits int `json:"commits"`

	// Skipped is the number of commits already present in the store.
	Skipped int `json:"skipped"`

	// Events is the number of events emitted in this run.
	Events int `json:"events"`
}

// Progress receives per-commit completion notifications.
type Progress func(meta event.Meta, events int)

// Runner drives commit analysis for one repository store pair.
type Runner struct {
	engine   *engine.Engine
	store    *storage.Store
	log      *slog.Logger
	progress Progress
}

// Option configures a Runner.
type Option func(*Runner)

// WithProgress installs a per-commit progress callback.
func WithProgress(progress Progress) Option {
	return func(r *Runner) {
		r.progress = progress
	}
}

// New creates a runner over the given engine and store.
func New(eng *engine.Engine, store *storage.Store, log *slog.Logger, opts ...Option) *Runner {
	runner := &Runner{
		engine: eng,
		store:  store,
		log:    log,
	}

	for _, opt := range opts {
		opt(runner)
	}

	return runner
}

// Run analyzes every commit of the repository at path in history order,
// persisting one batch per commit. Commits already present in the store are
// skipped, so interrupted runs resume where they stopped.
func (r *Runner) Run(ctx context.Context, path string) (Stats, error) {
	repo, err := vcs.Open(path, r.log)
	if err != nil {
		return Stats{}, err
	}
	defer repo.Close()

	var stats Stats

	err = repo.Commits(ctx, func(commit engine.Commit) error {
		done, err := r.store.Has(ctx, commit.Meta.Hash)
		if err != nil {
			return err
		}

		if done {
			stats.Skipped++

			return nil
		}

		commitCtx := observability.WithCommit(ctx, commit.Meta.Hash)

		batch, err := r.engine.AnalyzeCommit(commitCtx, commit)
		if err != nil {
			return fmt.Errorf("analyze commit %s: %w", commit.Meta.Hash, err)
		}

		if err := r.store.SaveBatch(commitCtx, batch); err != nil {
			return err
		}

		r.log.DebugContext(commitCtx, "commit analyzed", slog.Int("events", len(batch.Events)))

		stats.Commits++
		stats.Events += len(batch.Events)

		if r.progress != nil {
			r.progress(batch.Commit, len(batch.Events))
		}

		return nil
	})
	if err != nil {
		return stats, err
	}

	return stats, nil
}
