package event

import "sort"

// Batch is the ordered event sequence for one commit. It is created by the
// engine, finalized once (dedup then sort), and never mutated afterwards.
type Batch struct {
	Commit Meta    `json:"commit"`
	Events []Event `json:"events"`
}

// NewBatch creates a batch for the given commit metadata.
func NewBatch(meta Meta) *Batch {
	return &Batch{Commit: meta}
}

// Append adds events to the batch. Ordering is established by Finalize, so
// appends may arrive in any per-file completion order.
func (b *Batch) Append(events ...Event) {
	b.Events = append(b.Events, events...)
}

// Finalize deduplicates and orders the batch. Events are sorted by file path,
// then layer (structural < syntactic < semantic < behavioral < advisory),
// then detection order within the layer. The result is a pure function of the
// appended set, independent of append order.
func (b *Batch) Finalize() {
	b.dedup()
	b.sortEvents()
}

// dedup drops exact subject repeats, keeping the first occurrence. This is
// defensive: classifiers honor the single-emission invariant themselves, and
// the advisory collaborator may not.
func (b *Batch) dedup() {
	seen := make(map[subjectKey]bool, len(b.Events))
	kept := b.Events[:0]

	for _, evt := range b.Events {
		key := evt.subject()
		if seen[key] {
			continue
		}

		seen[key] = true

		kept = append(kept, evt)
	}

	b.Events = kept
}

func (b *Batch) sortEvents() {
	sort.SliceStable(b.Events, func(i, j int) bool {
		left, right := b.Events[i], b.Events[j]

		if left.File != right.File {
			return left.File < right.File
		}

		if left.Layer != right.Layer {
			return left.Layer < right.Layer
		}

		if left.Kind != right.Kind {
			return left.Kind < right.Kind
		}

		if left.NodeID != right.NodeID {
			return left.NodeID < right.NodeID
		}

		if left.Advisory != right.Advisory {
			return left.Advisory < right.Advisory
		}

		return left.Details < right.Details
	})
}

// CountByLayer tallies events per layer, for summaries and metrics.
func (b *Batch) CountByLayer() map[Layer]int {
	counts := make(map[Layer]int)
	for _, evt := range b.Events {
		counts[evt.Layer]++
	}

	return counts
}
