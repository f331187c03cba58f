package classify

import (
	"github.com/Sumatoshi-tech/codedrift/pkg/event"
	"github.com/Sumatoshi-tech/codedrift/pkg/match"
	"github.com/Sumatoshi-tech/codedrift/pkg/node"
)

// Behavioral detects usage-pattern shifts on matched pairs: complexity,
// higher-order style, access and assignment counts, operator and literal
// histograms, assertions, and class member sets.
type Behavioral struct {
	thresholds Thresholds
}

// NewBehavioral creates the behavioral layer under a threshold policy.
func NewBehavioral(thresholds Thresholds) *Behavioral {
	thresholds.Validate()

	return &Behavioral{thresholds: thresholds}
}

// Layer returns the behavioral layer tag.
func (c *Behavioral) Layer() event.Layer {
	return event.LayerBehavioral
}

// Classify emits the behavioral events for one file change.
func (c *Behavioral) Classify(change *FileChange) []event.Event {
	if change.Match == nil {
		return nil
	}

	var events []event.Event

	for idx := range change.Match.Pairs {
		pair := &change.Match.Pairs[idx]
		if pair.Before.Shape == nil || pair.After.Shape == nil {
			continue
		}

		if pair.After.Kind == node.KindClass {
			events = append(events, c.classMemberEvents(pair, change.Path)...)

			continue
		}

		if pair.After.IsCallable() {
			events = append(events, c.callableEvents(pair, change.Path)...)
		}
	}

	return events
}

func (c *Behavioral) callableEvents(pair *match.Pair, path string) []event.Event {
	before, after := pair.Before.Shape, pair.After.Shape

	emit := func(kind event.Kind, details string) event.Event {
		return event.Event{
			Kind:    kind,
			NodeID:  pair.After.Path,
			File:    path,
			Span:    pair.After.Span,
			Details: details,
			Layer:   event.LayerBehavioral,
		}
	}

	var events []event.Event

	if evt, ok := c.complexityEvent(before, after, emit); ok {
		events = append(events, evt)
	}

	if evt, ok := c.higherOrderEvent(before, after, emit); ok {
		events = append(events, evt)
	}

	countKinds := []struct {
		kind          event.Kind
		label         string
		before, after int
	}{
		{event.KindAttributeAccessChanged, "attribute accesses", before.AttributeAccesses, after.AttributeAccesses},
		{event.KindSubscriptAccessChanged, "subscript accesses", before.SubscriptAccesses, after.SubscriptAccesses},
		{event.KindAssignmentUsageChanged, "assignments", before.Assignments, after.Assignments},
		{event.KindAugmentedAssignmentChanged, "augmented assignments", before.AugAssignments, after.AugAssignments},
		{event.KindStringLiteralUsageChanged, "string literals", before.StringLits, after.StringLits},
		{event.KindNumericLiteralUsageChanged, "numeric literals", before.NumberLits, after.NumberLits},
		{event.KindBooleanLiteralUsageChanged, "boolean literals", before.BoolLits, after.BoolLits},
		{event.KindAssertionCountChanged, "assertions", before.Assertions, after.Assertions},
	}

	for _, ck := range countKinds {
		if ck.before != ck.after {
			events = append(events, emit(ck.kind, delta(ck.label, ck.before, ck.after)))
		}
	}

	histKinds := []struct {
		kind          event.Kind
		label         string
		before, after map[string]int
	}{
		{event.KindBinaryOperatorUsageChanged, "binary operators", before.BinaryOps, after.BinaryOps},
		{event.KindUnaryOperatorUsageChanged, "unary operators", before.UnaryOps, after.UnaryOps},
		{event.KindComparisonOperatorUsageChanged, "comparison operators", before.ComparisonOps, after.ComparisonOps},
		{event.KindLogicalOperatorUsageChanged, "logical operators", before.LogicalOps, after.LogicalOps},
	}

	for _, hk := range histKinds {
		if !histogramsEqual(hk.before, hk.after) {
			events = append(events, emit(hk.kind,
				delta(hk.label, node.OperatorTotal(hk.before), node.OperatorTotal(hk.after))))
		}
	}

	return events
}

// complexityEvent fires when the cyclomatic complexity delta reaches the
// configured threshold.
func (c *Behavioral) complexityEvent(
	before, after *node.BodyShape,
	emit func(event.Kind, string) event.Event,
) (event.Event, bool) {
	beforeCx, afterCx := before.Complexity(), after.Complexity()

	diff := afterCx - beforeCx
	if diff < 0 {
		diff = -diff
	}

	if diff < c.thresholds.ComplexityDelta {
		return event.Event{}, false
	}

	return emit(event.KindFunctionComplexityChanged, delta("complexity", beforeCx, afterCx)), true
}

// higherOrderEvent tracks the callable-argument call ratio crossing the
// configured threshold, one event per node.
func (c *Behavioral) higherOrderEvent(
	before, after *node.BodyShape,
	emit func(event.Kind, string) event.Event,
) (event.Event, bool) {
	limit := c.thresholds.HigherOrderRatio

	beforeHigh := before.HigherOrderRatio() >= limit && before.CallableArgCalls > 0
	afterHigh := after.HigherOrderRatio() >= limit && after.CallableArgCalls > 0

	switch {
	case !beforeHigh && afterHigh:
		return emit(event.KindHigherOrderAdopted,
			delta("callable-arg calls", before.CallableArgCalls, after.CallableArgCalls)), true
	case beforeHigh && !afterHigh:
		return emit(event.KindHigherOrderRemoved,
			delta("callable-arg calls", before.CallableArgCalls, after.CallableArgCalls)), true
	case beforeHigh && afterHigh && before.CallableArgCalls != after.CallableArgCalls:
		return emit(event.KindHigherOrderChanged,
			delta("callable-arg calls", before.CallableArgCalls, after.CallableArgCalls)), true
	default:
		return event.Event{}, false
	}
}

// classMemberEvents diffs the method and attribute sets of a matched class
// pair, distinct from node-level add and remove of the class itself.
func (c *Behavioral) classMemberEvents(pair *match.Pair, path string) []event.Event {
	before, after := pair.Before.Shape, pair.After.Shape

	emit := func(kind event.Kind, name string) event.Event {
		return event.Event{
			Kind:    kind,
			NodeID:  pair.After.Path,
			File:    path,
			Span:    pair.After.Span,
			Details: name,
			Layer:   event.LayerBehavioral,
		}
	}

	var events []event.Event

	addedMethods, removedMethods := stringSetDiff(before.ClassMethods, after.ClassMethods)
	for _, name := range addedMethods {
		events = append(events, emit(event.KindClassMethodAdded, name))
	}

	for _, name := range removedMethods {
		events = append(events, emit(event.KindClassMethodRemoved, name))
	}

	addedAttrs, removedAttrs := stringSetDiff(before.ClassAttributes, after.ClassAttributes)
	for _, name := range addedAttrs {
		events = append(events, emit(event.KindClassAttributeAdded, name))
	}

	for _, name := range removedAttrs {
		events = append(events, emit(event.KindClassAttributeRemoved, name))
	}

	return events
}

func histogramsEqual(a, b map[string]int) bool {
	if len(a) != len(b) {
		return false
	}

	for key, count := range a {
		if b[key] != count {
			return false
		}
	}

	return true
}
