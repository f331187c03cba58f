package classify

import (
	"github.com/Sumatoshi-tech/codedrift/pkg/event"
	"github.com/Sumatoshi-tech/codedrift/pkg/match"
	"github.com/Sumatoshi-tech/codedrift/pkg/node"
)

// Semantic detects meaning-level body changes on matched callable pairs:
// control flow, generator status, suspension and return patterns, exception
// handling, internal call graph, and scope bindings.
type Semantic struct{}

// NewSemantic creates the semantic layer.
func NewSemantic() *Semantic {
	return &Semantic{}
}

// Layer returns the semantic layer tag.
func (c *Semantic) Layer() event.Layer {
	return event.LayerSemantic
}

// Classify emits the semantic events for one file change.
func (c *Semantic) Classify(change *FileChange) []event.Event {
	if change.Match == nil {
		return nil
	}

	beforeDefs := definedNames(change.Before)
	afterDefs := definedNames(change.After)

	var events []event.Event

	for idx := range change.Match.Pairs {
		pair := &change.Match.Pairs[idx]
		if !pair.After.IsCallable() || pair.Before.Shape == nil || pair.After.Shape == nil {
			continue
		}

		events = append(events, c.pairEvents(pair, change.Path, beforeDefs, afterDefs)...)
	}

	return events
}

func (c *Semantic) pairEvents(pair *match.Pair, path string, beforeDefs, afterDefs map[string]bool) []event.Event {
	before, after := pair.Before.Shape, pair.After.Shape

	emit := func(kind event.Kind, details string) event.Event {
		return event.Event{
			Kind:    kind,
			NodeID:  pair.After.Path,
			File:    path,
			Span:    pair.After.Span,
			Details: details,
			Layer:   event.LayerSemantic,
		}
	}

	var events []event.Event

	if before.Branches != after.Branches || before.Loops != after.Loops || before.MaxNesting != after.MaxNesting {
		events = append(events, emit(event.KindControlFlowChanged,
			delta("branches", before.Branches, after.Branches)+"; "+
				delta("loops", before.Loops, after.Loops)+"; "+
				delta("nesting", before.MaxNesting, after.MaxNesting)))
	}

	events = append(events, c.suspensionEvents(pair, emit)...)
	events = append(events, c.handlerEvents(before, after, emit)...)

	beforeInternal := intersectNames(before.Calls, beforeDefs)
	afterInternal := intersectNames(after.Calls, afterDefs)

	addedCalls, removedCalls := stringSetDiff(beforeInternal, afterInternal)
	for _, name := range addedCalls {
		events = append(events, emit(event.KindInternalCallAdded, name))
	}

	for _, name := range removedCalls {
		events = append(events, emit(event.KindInternalCallRemoved, name))
	}

	if before.Comprehensions != after.Comprehensions {
		events = append(events, emit(event.KindComprehensionUsageChanged,
			delta("comprehensions", before.Comprehensions, after.Comprehensions)))
	}

	if before.Lambdas != after.Lambdas {
		events = append(events, emit(event.KindLambdaUsageChanged,
			delta("lambdas", before.Lambdas, after.Lambdas)))
	}

	if !sameStringSet(before.OuterBindings, after.OuterBindings) {
		addedBinds, removedBinds := stringSetDiff(before.OuterBindings, after.OuterBindings)
		events = append(events, emit(event.KindScopeBindingChanged,
			"+["+joinNames(addedBinds)+"] -["+joinNames(removedBinds)+"]"))
	}

	return events
}

// suspensionEvents handles the generator transition and the yield/return
// pattern kinds. A transition explains the suspension-point delta by itself,
// so pattern events fire alongside it only when the non-suspension return
// structure also changed on both sides.
func (c *Semantic) suspensionEvents(pair *match.Pair, emit func(event.Kind, string) event.Event) []event.Event {
	before, after := pair.Before.Shape, pair.After.Shape

	var events []event.Event

	transitioned := before.IsGenerator() != after.IsGenerator()

	switch {
	case transitioned && after.IsGenerator():
		events = append(events, emit(event.KindFunctionMadeGenerator,
			delta("suspension points", before.Suspensions(), after.Suspensions())))
	case transitioned:
		events = append(events, emit(event.KindGeneratorMadeFunction,
			delta("suspension points", before.Suspensions(), after.Suspensions())))
	case before.IsGenerator() && before.Yields != after.Yields:
		events = append(events, emit(event.KindYieldPatternChanged,
			delta("yields", before.Yields, after.Yields)))
	}

	returnsChanged := before.Returns != after.Returns || before.ValueReturns != after.ValueReturns
	if returnsChanged && (!transitioned || (before.Returns > 0 && after.Returns > 0)) {
		events = append(events, emit(event.KindReturnPatternChanged,
			delta("returns", before.Returns, after.Returns)+"; "+
				delta("value returns", before.ValueReturns, after.ValueReturns)))
	}

	return events
}

// handlerEvents reports exception-handler set transitions. Introduction and
// removal are distinct from a type-set change between non-empty sides.
func (c *Semantic) handlerEvents(before, after *node.BodyShape, emit func(event.Kind, string) event.Event) []event.Event {
	switch {
	case before.Handlers == 0 && after.Handlers > 0:
		return []event.Event{emit(event.KindExceptionHandlingAdded,
			joinNames(after.SortedHandlerTypes()))}
	case before.Handlers > 0 && after.Handlers == 0:
		return []event.Event{emit(event.KindExceptionHandlingRemoved,
			joinNames(before.SortedHandlerTypes()))}
	case before.Handlers > 0 && after.Handlers > 0:
		if before.Handlers != after.Handlers || !sameStringSet(before.HandlerTypes, after.HandlerTypes) {
			return []event.Event{emit(event.KindExceptionHandlingChanged,
				joinNames(before.SortedHandlerTypes()) + " -> " + joinNames(after.SortedHandlerTypes()))}
		}
	}

	return nil
}

// definedNames collects the callable and class names a module defines, for
// restricting call diffs to the internal call graph.
func definedNames(module *node.Node) map[string]bool {
	names := make(map[string]bool)

	if module == nil {
		return names
	}

	module.Walk(func(curr *node.Node) {
		switch curr.Kind {
		case node.KindFunction, node.KindMethod, node.KindClass:
			names[curr.Name] = true
		}
	})

	return names
}

func intersectNames(calls []string, defined map[string]bool) []string {
	var result []string

	for _, name := range calls {
		if defined[name] {
			result = append(result, name)
		}
	}

	return result
}
