package classify

import (
	"fmt"
	"strings"

	"github.com/Sumatoshi-tech/codedrift/pkg/event"
	"github.com/Sumatoshi-tech/codedrift/pkg/match"
	"github.com/Sumatoshi-tech/codedrift/pkg/node"
)

// Syntactic detects declaration-surface changes on matched pairs: signatures,
// decorators, sync/async flips, and inheritance lists.
type Syntactic struct{}

// NewSyntactic creates the syntactic layer.
func NewSyntactic() *Syntactic {
	return &Syntactic{}
}

// Layer returns the syntactic layer tag.
func (c *Syntactic) Layer() event.Layer {
	return event.LayerSyntactic
}

// Classify emits the syntactic events for one file change.
func (c *Syntactic) Classify(change *FileChange) []event.Event {
	if change.Match == nil {
		return nil
	}

	var events []event.Event

	for idx := range change.Match.Pairs {
		pair := &change.Match.Pairs[idx]

		switch pair.After.Kind {
		case node.KindModule, node.KindImport:
			continue
		case node.KindClass:
			events = append(events, c.baseEvents(pair, change.Path)...)
			events = append(events, c.decoratorEvents(pair, change.Path)...)
		default:
			events = append(events, c.signatureEvents(pair, change.Path)...)
			events = append(events, c.decoratorEvents(pair, change.Path)...)
			events = append(events, c.asyncEvents(pair, change.Path)...)
		}
	}

	return events
}

// signatureEvents diffs the ordered parameter lists. Presence-only changes
// (defaults, annotations) get their specific kinds and suppress the generic
// signature event; arity or name changes produce the generic event carrying
// every positional diff.
func (c *Syntactic) signatureEvents(pair *match.Pair, path string) []event.Event {
	diff := diffSignatures(pair.Before.Signature, pair.After.Signature)
	if diff.empty() {
		return nil
	}

	if diff.core {
		return []event.Event{{
			Kind:    event.KindSignatureChanged,
			NodeID:  pair.After.Path,
			File:    path,
			Span:    pair.After.Span,
			Details: strings.Join(diff.details, "; "),
			Layer:   event.LayerSyntactic,
		}}
	}

	var events []event.Event

	appendNamed := func(kind event.Kind, names []string) {
		for _, name := range names {
			events = append(events, event.Event{
				Kind:    kind,
				NodeID:  pair.After.Path,
				File:    path,
				Span:    pair.After.Span,
				Details: name,
				Layer:   event.LayerSyntactic,
			})
		}
	}

	appendNamed(event.KindDefaultParameterAdded, diff.defaultsAdded)
	appendNamed(event.KindDefaultParameterRemoved, diff.defaultsRemoved)
	appendNamed(event.KindTypeAnnotationAdded, diff.annotationsAdded)
	appendNamed(event.KindTypeAnnotationRemoved, diff.annotationsRemoved)

	return events
}

// signatureDiff is the positional comparison of two parameter lists.
type signatureDiff struct {
	core               bool
	details            []string
	defaultsAdded      []string
	defaultsRemoved    []string
	annotationsAdded   []string
	annotationsRemoved []string
}

func (d *signatureDiff) empty() bool {
	return !d.core &&
		len(d.defaultsAdded) == 0 && len(d.defaultsRemoved) == 0 &&
		len(d.annotationsAdded) == 0 && len(d.annotationsRemoved) == 0
}

func diffSignatures(before, after []node.Param) signatureDiff {
	var diff signatureDiff

	if len(before) != len(after) {
		diff.core = true
		diff.details = append(diff.details, delta("arity", len(before), len(after)))
	}

	common := len(before)
	if len(after) < common {
		common = len(after)
	}

	for idx := 0; idx < common; idx++ {
		b, a := before[idx], after[idx]

		if b.Name != a.Name {
			diff.core = true
			diff.details = append(diff.details, fmt.Sprintf("[%d] %s -> %s", idx, b.Name, a.Name))

			continue
		}

		switch {
		case !b.HasDefault && a.HasDefault:
			diff.defaultsAdded = append(diff.defaultsAdded, a.Name)
			diff.details = append(diff.details, fmt.Sprintf("[%d] %s default added", idx, a.Name))
		case b.HasDefault && !a.HasDefault:
			diff.defaultsRemoved = append(diff.defaultsRemoved, a.Name)
			diff.details = append(diff.details, fmt.Sprintf("[%d] %s default removed", idx, a.Name))
		}

		switch {
		case !b.HasAnnotation && a.HasAnnotation:
			diff.annotationsAdded = append(diff.annotationsAdded, a.Name)
			diff.details = append(diff.details, fmt.Sprintf("[%d] %s annotation added", idx, a.Name))
		case b.HasAnnotation && !a.HasAnnotation:
			diff.annotationsRemoved = append(diff.annotationsRemoved, a.Name)
			diff.details = append(diff.details, fmt.Sprintf("[%d] %s annotation removed", idx, a.Name))
		}
	}

	for idx := common; idx < len(before); idx++ {
		diff.details = append(diff.details, fmt.Sprintf("[%d] -%s", idx, before[idx].Name))
	}

	for idx := common; idx < len(after); idx++ {
		diff.details = append(diff.details, fmt.Sprintf("[%d] +%s", idx, after[idx].Name))
	}

	return diff
}

// decoratorEvents emits one event per decorator entering or leaving the set.
func (c *Syntactic) decoratorEvents(pair *match.Pair, path string) []event.Event {
	added, removed := stringSetDiff(pair.Before.Decorators, pair.After.Decorators)

	var events []event.Event

	for _, name := range added {
		events = append(events, event.Event{
			Kind:    event.KindDecoratorAdded,
			NodeID:  pair.After.Path,
			File:    path,
			Span:    pair.After.Span,
			Details: name,
			Layer:   event.LayerSyntactic,
		})
	}

	for _, name := range removed {
		events = append(events, event.Event{
			Kind:    event.KindDecoratorRemoved,
			NodeID:  pair.After.Path,
			File:    path,
			Span:    pair.After.Span,
			Details: name,
			Layer:   event.LayerSyntactic,
		})
	}

	return events
}

func (c *Syntactic) asyncEvents(pair *match.Pair, path string) []event.Event {
	if pair.Before.Async == pair.After.Async {
		return nil
	}

	kind := event.KindFunctionMadeAsync
	if pair.Before.Async {
		kind = event.KindFunctionMadeSync
	}

	return []event.Event{{
		Kind:   kind,
		NodeID: pair.After.Path,
		File:   path,
		Span:   pair.After.Span,
		Layer:  event.LayerSyntactic,
	}}
}

// baseEvents diffs the ordered base-class list, distinguishing membership
// changes from pure reorders.
func (c *Syntactic) baseEvents(pair *match.Pair, path string) []event.Event {
	before, after := pair.Before.Bases, pair.After.Bases

	added, removed := stringSetDiff(before, after)

	var events []event.Event

	for _, name := range added {
		events = append(events, event.Event{
			Kind:    event.KindBaseClassAdded,
			NodeID:  pair.After.Path,
			File:    path,
			Span:    pair.After.Span,
			Details: name,
			Layer:   event.LayerSyntactic,
		})
	}

	for _, name := range removed {
		events = append(events, event.Event{
			Kind:    event.KindBaseClassRemoved,
			NodeID:  pair.After.Path,
			File:    path,
			Span:    pair.After.Span,
			Details: name,
			Layer:   event.LayerSyntactic,
		})
	}

	if len(added) == 0 && len(removed) == 0 && !equalOrdered(before, after) {
		events = append(events, event.Event{
			Kind:    event.KindBaseClassReordered,
			NodeID:  pair.After.Path,
			File:    path,
			Span:    pair.After.Span,
			Details: fmt.Sprintf("%s -> %s", joinNames(before), joinNames(after)),
			Layer:   event.LayerSyntactic,
		})
	}

	return events
}

func equalOrdered(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}

	for idx := range a {
		if a[idx] != b[idx] {
			return false
		}
	}

	return true
}
