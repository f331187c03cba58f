package classify

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/Sumatoshi-tech/codedrift/pkg/event"
	"github.com/Sumatoshi-tech/codedrift/pkg/node"
)

// Structural detects file-level and node-level presence changes: files and
// nodes appearing or disappearing, dependency set changes, and recovered
// renames and moves.
type Structural struct{}

// NewStructural creates the structural layer.
func NewStructural() *Structural {
	return &Structural{}
}

// Layer returns the structural layer tag.
func (c *Structural) Layer() event.Layer {
	return event.LayerStructural
}

// Classify emits the structural events for one file change.
func (c *Structural) Classify(change *FileChange) []event.Event {
	if change.ParseFailed {
		return []event.Event{{
			Kind:    event.KindFileModifiedUnparseable,
			File:    change.Path,
			Details: lineChurn(change.BeforeText, change.AfterText),
			Layer:   event.LayerStructural,
		}}
	}

	switch {
	case change.Before == nil && change.After != nil:
		return c.fileAdded(change)
	case change.Before != nil && change.After == nil:
		return c.fileRemoved(change)
	case change.Match != nil:
		return c.fileModified(change)
	default:
		return nil
	}
}

// fileAdded reports the new file plus one node_added per top-level entity.
// There is no before side, so the deeper layers have nothing to diff.
func (c *Structural) fileAdded(change *FileChange) []event.Event {
	events := []event.Event{{
		Kind:  event.KindFileAdded,
		File:  change.Path,
		Span:  change.After.Span,
		Layer: event.LayerStructural,
	}}

	for _, child := range change.After.Children {
		if child.Kind == node.KindImport {
			continue
		}

		events = append(events, event.Event{
			Kind:    event.KindNodeAdded,
			NodeID:  child.Path,
			File:    change.Path,
			Span:    child.Span,
			Details: child.Kind.String(),
			Layer:   event.LayerStructural,
		})
	}

	for _, dep := range sortedUnique(change.After.Imports) {
		events = append(events, dependencyEvent(event.KindDependencyAdded, change.Path, dep))
	}

	return events
}

func (c *Structural) fileRemoved(change *FileChange) []event.Event {
	events := []event.Event{{
		Kind:  event.KindFileRemoved,
		File:  change.Path,
		Span:  change.Before.Span,
		Layer: event.LayerStructural,
	}}

	for _, child := range change.Before.Children {
		if child.Kind == node.KindImport {
			continue
		}

		events = append(events, event.Event{
			Kind:    event.KindNodeRemoved,
			NodeID:  child.Path,
			File:    change.Path,
			Span:    child.Span,
			Details: child.Kind.String(),
			Layer:   event.LayerStructural,
		})
	}

	for _, dep := range sortedUnique(change.Before.Imports) {
		events = append(events, dependencyEvent(event.KindDependencyRemoved, change.Path, dep))
	}

	return events
}

func (c *Structural) fileModified(change *FileChange) []event.Event {
	var events []event.Event

	addedDeps, removedDeps := stringSetDiff(change.Before.Imports, change.After.Imports)
	for _, dep := range addedDeps {
		events = append(events, dependencyEvent(event.KindDependencyAdded, change.Path, dep))
	}

	for _, dep := range removedDeps {
		events = append(events, dependencyEvent(event.KindDependencyRemoved, change.Path, dep))
	}

	// Rename and move pairs are never reported as removed plus added; the
	// matcher already explained them.
	for _, pair := range change.Match.Pairs {
		if pair.Renamed {
			events = append(events, event.Event{
				Kind:    event.KindNodeRenamed,
				NodeID:  pair.After.Path,
				File:    change.Path,
				Span:    pair.After.Span,
				Details: fmt.Sprintf("%s -> %s", pair.Before.Name, pair.After.Name),
				Layer:   event.LayerStructural,
			})
		}

		if pair.Moved {
			events = append(events, event.Event{
				Kind:    event.KindNodeMoved,
				NodeID:  pair.After.Path,
				File:    change.Path,
				Span:    pair.After.Span,
				Details: fmt.Sprintf("%s -> %s", scopeName(pair.Before.ParentPath()), scopeName(pair.After.ParentPath())),
				Layer:   event.LayerStructural,
			})
		}
	}

	// Only module-level nodes are structural subjects here, mirroring the
	// added/removed file paths. Member-level churn inside a surviving class
	// belongs to the behavioral layer.
	for _, added := range change.Match.Added {
		if added.Kind == node.KindImport || added.ParentPath() != "" {
			continue
		}

		events = append(events, event.Event{
			Kind:    event.KindNodeAdded,
			NodeID:  added.Path,
			File:    change.Path,
			Span:    added.Span,
			Details: added.Kind.String(),
			Layer:   event.LayerStructural,
		})
	}

	for _, removed := range change.Match.Removed {
		if removed.Kind == node.KindImport || removed.ParentPath() != "" {
			continue
		}

		events = append(events, event.Event{
			Kind:    event.KindNodeRemoved,
			NodeID:  removed.Path,
			File:    change.Path,
			Span:    removed.Span,
			Details: removed.Kind.String(),
			Layer:   event.LayerStructural,
		})
	}

	return events
}

func dependencyEvent(kind event.Kind, path, dep string) event.Event {
	return event.Event{
		Kind:    kind,
		File:    path,
		Details: dep,
		Layer:   event.LayerStructural,
	}
}

// scopeName renders a parent path for move details, naming the module scope
// explicitly when the path is empty.
func scopeName(parentPath string) string {
	if parentPath == "" {
		return "<module>"
	}

	return parentPath
}

func sortedUnique(values []string) []string {
	added, _ := stringSetDiff(nil, values)

	return added
}

// joinNames renders a sorted name list for detail strings.
func joinNames(names []string) string {
	return strings.Join(names, ", ")
}

// lineChurn summarizes an unparseable change as textual line counts, the
// only signal still available once syntax is broken.
func lineChurn(beforeText, afterText []byte) string {
	dmp := diffmatchpatch.New()

	beforeChars, afterChars, lines := dmp.DiffLinesToChars(string(beforeText), string(afterText))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(beforeChars, afterChars, false), lines)

	var added, removed int

	for _, diff := range diffs {
		count := countLines(diff.Text)

		switch diff.Type {
		case diffmatchpatch.DiffInsert:
			added += count
		case diffmatchpatch.DiffDelete:
			removed += count
		case diffmatchpatch.DiffEqual:
		}
	}

	return fmt.Sprintf("lines +%d -%d", added, removed)
}

func countLines(text string) int {
	if text == "" {
		return 0
	}

	count := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		count++
	}

	return count
}
