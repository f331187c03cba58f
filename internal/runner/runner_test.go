package runner_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	git2go "github.com/libgit2/git2go/v34"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/codedrift/internal/runner"
	"github.com/Sumatoshi-tech/codedrift/internal/storage"
	"github.com/Sumatoshi-tech/codedrift/pkg/engine"
	"github.com/Sumatoshi-tech/codedrift/pkg/event"
)

func commitFile(t *testing.T, repo *git2go.Repository, dir, name, content, message string) {
	t.Helper()

	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))

	index, err := repo.Index()
	require.NoError(t, err)

	defer index.Free()

	require.NoError(t, index.AddAll([]string{"*"}, git2go.IndexAddDefault, nil))
	require.NoError(t, index.Write())

	treeID, err := index.WriteTree()
	require.NoError(t, err)

	tree, err := repo.LookupTree(treeID)
	require.NoError(t, err)

	defer tree.Free()

	sig := &git2go.Signature{Name: "Test", Email: "test@test.com", When: time.Now()}

	var parents []*git2go.Commit

	head, err := repo.Head()
	if err == nil {
		headCommit, lookupErr := repo.LookupCommit(head.Target())
		require.NoError(t, lookupErr)

		parents = append(parents, headCommit)

		head.Free()
	}

	_, err = repo.CreateCommit("HEAD", sig, sig, message, tree, parents...)
	require.NoError(t, err)

	for _, parent := range parents {
		parent.Free()
	}
}

func fixtureRepo(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()

	repo, err := git2go.InitRepository(dir, false)
	require.NoError(t, err)

	t.Cleanup(repo.Free)

	commitFile(t, repo, dir, "app.py",
		"def fetch(url):\n    return url\n", "add fetch")
	commitFile(t, repo, dir, "app.py",
		"def fetch(url, timeout):\n    if timeout:\n        return url\n    return None\n", "add timeout")

	return dir
}

func openStore(t *testing.T) *storage.Store {
	t.Helper()

	store, err := storage.Open(storage.InMemoryConfig())
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})

	return store
}

func TestRunAnalyzesAndPersists(t *testing.T) {
	t.Parallel()

	dir := fixtureRepo(t)
	store := openStore(t)
	eng := engine.New(engine.DefaultConfig(), slog.Default())

	var progressCalls int

	run := runner.New(eng, store, slog.Default(),
		runner.WithProgress(func(event.Meta, int) { progressCalls++ }))

	stats, err := run.Run(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Commits)
	assert.Zero(t, stats.Skipped)
	assert.Positive(t, stats.Events)
	assert.Equal(t, 2, progressCalls)

	stored := 0

	require.NoError(t, store.Scan(context.Background(), func(*event.Batch) error {
		stored++

		return nil
	}))
	assert.Equal(t, 2, stored)
}

func TestRunSkipsAnalyzedCommits(t *testing.T) {
	t.Parallel()

	dir := fixtureRepo(t)
	store := openStore(t)
	eng := engine.New(engine.DefaultConfig(), slog.Default())
	run := runner.New(eng, store, slog.Default())

	_, err := run.Run(context.Background(), dir)
	require.NoError(t, err)

	stats, err := run.Run(context.Background(), dir)
	require.NoError(t, err)

	assert.Zero(t, stats.Commits)
	assert.Equal(t, 2, stats.Skipped)
	assert.Zero(t, stats.Events)
}

func TestRunMissingRepository(t *testing.T) {
	t.Parallel()

	store := openStore(t)
	eng := engine.New(engine.DefaultConfig(), slog.Default())
	run := runner.New(eng, store, slog.Default())

	_, err := run.Run(context.Background(), filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}
