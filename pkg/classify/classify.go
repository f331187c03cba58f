// Package classify implements the deterministic detection layers. Each layer
// consumes one file's match result and emits typed events; layers are
// independent and fault-isolated, so a panic in one contributes zero events
// without disturbing its siblings.
package classify

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/Sumatoshi-tech/codedrift/pkg/event"
	"github.com/Sumatoshi-tech/codedrift/pkg/match"
	"github.com/Sumatoshi-tech/codedrift/pkg/node"
)

// FileChange is one file's aligned revision pair, as handed to the layers.
// Before is nil for added files and After is nil for removed ones; Match is
// populated only when both sides parsed.
type FileChange struct {
	Path        string
	Before      *node.Node
	After       *node.Node
	Match       *match.Result
	ParseFailed bool

	// BeforeText and AfterText are the raw revisions, kept for the textual
	// fallback when parsing failed.
	BeforeText []byte
	AfterText  []byte
}

// Classifier is one detection layer. Classify must be a pure function of the
// change: no shared mutable state, identical inputs yield identical events.
type Classifier interface {
	Layer() event.Layer
	Classify(change *FileChange) []event.Event
}

// Set runs every layer against a file change with per-layer fault isolation.
type Set struct {
	classifiers []Classifier
	log         *slog.Logger
	onFault     func(layer event.Layer)
}

// OnFault registers a hook invoked when a classifier panics, after the fault
// is logged. The hook must be safe for concurrent use.
func (s *Set) OnFault(hook func(layer event.Layer)) {
	s.onFault = hook
}

// NewSet creates the full deterministic layer set under one threshold policy.
func NewSet(thresholds Thresholds, log *slog.Logger) *Set {
	if log == nil {
		log = slog.Default()
	}

	return &Set{
		classifiers: []Classifier{
			NewStructural(),
			NewSyntactic(),
			NewSemantic(),
			NewBehavioral(thresholds),
		},
		log: log,
	}
}

// NewSetWith creates a set from an explicit classifier list, preserving
// order. Used to swap or subset layers in tests and tooling.
func NewSetWith(log *slog.Logger, classifiers ...Classifier) *Set {
	if log == nil {
		log = slog.Default()
	}

	return &Set{classifiers: classifiers, log: log}
}

// Run collects the events of every layer for one file change. A classifier
// fault is logged and yields zero events from that layer; the remaining
// layers still run.
func (s *Set) Run(change *FileChange) []event.Event {
	var events []event.Event

	for _, classifier := range s.classifiers {
		events = append(events, s.runOne(classifier, change)...)
	}

	return events
}

func (s *Set) runOne(classifier Classifier, change *FileChange) (events []event.Event) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("classifier fault",
				slog.String("layer", classifier.Layer().String()),
				slog.String("file", change.Path),
				slog.String("fault", fmt.Sprint(r)))

			if s.onFault != nil {
				s.onFault(classifier.Layer())
			}

			events = nil
		}
	}()

	return classifier.Classify(change)
}

// stringSetDiff returns the elements of after missing from before and the
// elements of before missing from after, each sorted.
func stringSetDiff(before, after []string) (added, removed []string) {
	beforeSet := make(map[string]bool, len(before))
	for _, s := range before {
		beforeSet[s] = true
	}

	afterSet := make(map[string]bool, len(after))
	for _, s := range after {
		afterSet[s] = true
	}

	for s := range afterSet {
		if !beforeSet[s] {
			added = append(added, s)
		}
	}

	for s := range beforeSet {
		if !afterSet[s] {
			removed = append(removed, s)
		}
	}

	sort.Strings(added)
	sort.Strings(removed)

	return added, removed
}

// sameStringSet reports set equality ignoring order and duplicates.
func sameStringSet(a, b []string) bool {
	added, removed := stringSetDiff(a, b)

	return len(added) == 0 && len(removed) == 0
}

// delta formats a count transition for event details.
func delta(label string, before, after int) string {
	return fmt.Sprintf("%s %d -> %d", label, before, after)
}
