// Package vcs supplies commit inputs to the engine from a local git
// repository. The core never performs git operations itself; this package is
// the only layer touching libgit2.
package vcs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	git2go "github.com/libgit2/git2go/v34"

	"github.com/Sumatoshi-tech/codedrift/pkg/engine"
	"github.com/Sumatoshi-tech/codedrift/pkg/event"
)

// ErrNoHead is returned when the repository has no commits to walk.
var ErrNoHead = errors.New("repository has no HEAD")

// Repository wraps a libgit2 repository handle.
type Repository struct {
	repo *git2go.Repository
	path string
	log  *slog.Logger
}

// Open opens the git repository at path.
func Open(path string, log *slog.Logger) (*Repository, error) {
	if log == nil {
		log = slog.Default()
	}

	repo, err := git2go.OpenRepository(path)
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", path, err)
	}

	return &Repository{repo: repo, path: path, log: log}, nil
}

// Path returns the repository path.
func (r *Repository) Path() string {
	return r.path
}

// Close releases the repository resources.
func (r *Repository) Close() {
	if r.repo != nil {
		r.repo.Free()
		r.repo = nil
	}
}

// Commits walks HEAD history in topological order, oldest first, handing
// each commit's inputs to fn. Merge commits diff against their first parent.
// A non-nil error from fn stops the walk.
func (r *Repository) Commits(ctx context.Context, fn func(engine.Commit) error) error {
	walk, err := r.repo.Walk()
	if err != nil {
		return fmt.Errorf("create revwalk: %w", err)
	}
	defer walk.Free()

	walk.Sorting(git2go.SortTopological | git2go.SortReverse)

	if err := walk.PushHead(); err != nil {
		return fmt.Errorf("%w: %s", ErrNoHead, err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		oid := new(git2go.Oid)

		err := walk.Next(oid)
		if err != nil {
			if git2go.IsErrorCode(err, git2go.ErrorCodeIterOver) {
				return nil
			}

			return fmt.Errorf("revwalk next: %w", err)
		}

		commit, err := r.repo.LookupCommit(oid)
		if err != nil {
			return fmt.Errorf("lookup commit %s: %w", oid.String(), err)
		}

		input, err := r.commitInputs(commit)

		commit.Free()

		if err != nil {
			return err
		}

		if err := fn(input); err != nil {
			return err
		}
	}
}

// commitInputs builds one engine commit from a libgit2 commit: metadata plus
// the analyzed file inputs of its first-parent diff.
func (r *Repository) commitInputs(commit *git2go.Commit) (engine.Commit, error) {
	author := commit.Author()

	result := engine.Commit{
		Meta: event.Meta{
			Hash:      commit.Id().String(),
			Author:    fmt.Sprintf("%s <%s>", author.Name, author.Email),
			Timestamp: author.When,
		},
	}

	newTree, err := commit.Tree()
	if err != nil {
		return engine.Commit{}, fmt.Errorf("commit tree: %w", err)
	}
	defer newTree.Free()

	var oldTree *git2go.Tree

	if commit.ParentCount() > 0 {
		parent := commit.Parent(0)
		defer parent.Free()

		oldTree, err = parent.Tree()
		if err != nil {
			return engine.Commit{}, fmt.Errorf("parent tree: %w", err)
		}
		defer oldTree.Free()
	}

	files, err := r.diffFiles(oldTree, newTree)
	if err != nil {
		return engine.Commit{}, err
	}

	result.Files = files

	return result, nil
}

func (r *Repository) diffFiles(oldTree, newTree *git2go.Tree) ([]engine.FileInput, error) {
	opts, err := git2go.DefaultDiffOptions()
	if err != nil {
		return nil, fmt.Errorf("diff options: %w", err)
	}

	diff, err := r.repo.DiffTreeToTree(oldTree, newTree, &opts)
	if err != nil {
		return nil, fmt.Errorf("diff trees: %w", err)
	}
	defer func() { _ = diff.Free() }()

	// Rename detection keeps a moved file as one input instead of a
	// delete plus add.
	findOpts, err := git2go.DefaultDiffFindOptions()
	if err == nil {
		_ = diff.FindSimilar(&findOpts)
	}

	numDeltas, err := diff.NumDeltas()
	if err != nil {
		return nil, fmt.Errorf("num deltas: %w", err)
	}

	files := make([]engine.FileInput, 0, numDeltas)

	for idx := 0; idx < numDeltas; idx++ {
		delta, deltaErr := diff.Delta(idx)
		if deltaErr != nil {
			continue
		}

		input, ok, inputErr := r.fileInput(delta)
		if inputErr != nil {
			return nil, inputErr
		}

		if ok {
			files = append(files, input)
		}
	}

	return files, nil
}

// fileInput converts one diff delta into an engine input. Binary, vendored,
// and unsupported-language files are skipped.
func (r *Repository) fileInput(delta git2go.DiffDelta) (engine.FileInput, bool, error) {
	input := engine.FileInput{}

	switch delta.Status {
	case git2go.DeltaAdded:
		input.Path = delta.NewFile.Path
	case git2go.DeltaDeleted:
		input.Path = delta.OldFile.Path
	case git2go.DeltaModified, git2go.DeltaRenamed, git2go.DeltaCopied:
		input.Path = delta.NewFile.Path
		if delta.OldFile.Path != delta.NewFile.Path {
			input.OldPath = delta.OldFile.Path
		}
	default:
		return engine.FileInput{}, false, nil
	}

	if delta.Status != git2go.DeltaAdded {
		text, err := r.blobText(delta.OldFile.Oid)
		if err != nil {
			return engine.FileInput{}, false, err
		}

		input.BeforeText = text
	}

	if delta.Status != git2go.DeltaDeleted {
		text, err := r.blobText(delta.NewFile.Oid)
		if err != nil {
			return engine.FileInput{}, false, err
		}

		input.AfterText = text
	}

	sample := input.AfterText
	if sample == nil {
		sample = input.BeforeText
	}

	lang, ok := DetectLanguage(input.Path, sample)
	if !ok {
		return engine.FileInput{}, false, nil
	}

	input.Language = lang

	return input, true, nil
}

// blobText loads a blob's content. An empty file yields a non-nil empty
// slice; nil is reserved for the absent side of an add or delete.
func (r *Repository) blobText(oid *git2go.Oid) ([]byte, error) {
	if oid == nil || oid.IsZero() {
		return []byte{}, nil
	}

	blob, err := r.repo.LookupBlob(oid)
	if err != nil {
		return nil, fmt.Errorf("lookup blob %s: %w", oid.String(), err)
	}
	defer blob.Free()

	contents := blob.Contents()

	text := make([]byte, len(contents))
	copy(text, contents)

	return text, nil
}
