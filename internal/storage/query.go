package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Sumatoshi-tech/codedrift/pkg/event"
)

// Filter narrows a query over stored events. Zero-valued fields match
// everything.
type Filter struct {
	// Kinds restricts results to the named event kinds. Names use the wire
	// form, for example "signature_changed".
	Kinds []string

	// NodeID matches the exact node identity path.
	NodeID string

	// Location matches file paths containing this substring.
	Location string

	// Author matches commit authors containing this substring,
	// case-insensitively.
	Author string

	// Since and Until bound the commit timestamp, inclusive.
	Since time.Time
	Until time.Time

	// MinConfidence drops advisory events below this confidence.
	// Deterministic events carry certainty 1.0 and always pass.
	MinConfidence float64
}

// Result pairs a matched event with the commit it was observed in.
type Result struct {
	Commit event.Meta  `json:"commit"`
	Event  event.Event `json:"event"`
}

// compiledFilter is a Filter with kind names resolved to Kind values.
type compiledFilter struct {
	Filter
	kinds map[event.Kind]bool
}

func compileFilter(f Filter) (compiledFilter, error) {
	compiled := compiledFilter{Filter: f}

	if len(f.Kinds) > 0 {
		compiled.kinds = make(map[event.Kind]bool, len(f.Kinds))

		for _, name := range f.Kinds {
			kind, ok := event.ParseKind(name)
			if !ok {
				return compiledFilter{}, fmt.Errorf("unknown event kind %q", name)
			}

			compiled.kinds[kind] = true
		}
	}

	return compiled, nil
}

func (f compiledFilter) matchesCommit(meta event.Meta) bool {
	if f.Author != "" && !strings.Contains(strings.ToLower(meta.Author), strings.ToLower(f.Author)) {
		return false
	}

	if !f.Since.IsZero() && meta.Timestamp.Before(f.Since) {
		return false
	}

	if !f.Until.IsZero() && meta.Timestamp.After(f.Until) {
		return false
	}

	return true
}

func (f compiledFilter) matchesEvent(evt event.Event) bool {
	if f.kinds != nil && !f.kinds[evt.Kind] {
		return false
	}

	if f.NodeID != "" && evt.NodeID != f.NodeID {
		return false
	}

	if f.Location != "" && !strings.Contains(evt.File, f.Location) {
		return false
	}

	if f.MinConfidence > 0 {
		confidence := 1.0
		if evt.Confidence != nil {
			confidence = *evt.Confidence
		}

		if confidence < f.MinConfidence {
			return false
		}
	}

	return true
}

// Query returns all stored events matching the filter, in commit insertion
// order and batch order within each commit.
func (s *Store) Query(ctx context.Context, f Filter) ([]Result, error) {
	compiled, err := compileFilter(f)
	if err != nil {
		return nil, err
	}

	var results []Result

	err = s.Scan(ctx, func(batch *event.Batch) error {
		if !compiled.matchesCommit(batch.Commit) {
			return nil
		}

		for _, evt := range batch.Events {
			if compiled.matchesEvent(evt) {
				results = append(results, Result{Commit: batch.Commit, Event: evt})
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return results, nil
}
