package node

import "sort"

// BodyShape is the structural digest of a node body: counts and histograms
// used for similarity scoring and for semantic/behavioral diffing. All fields
// describe the body only, not nested function or class definitions.
type BodyShape struct {
	Branches   int `json:"branches,omitempty"`
	Loops      int `json:"loops,omitempty"`
	MaxNesting int `json:"max_nesting,omitempty"`

	Handlers     int      `json:"handlers,omitempty"`
	HandlerTypes []string `json:"handler_types,omitempty"`

	Yields       int `json:"yields,omitempty"`
	Awaits       int `json:"awaits,omitempty"`
	Returns      int `json:"returns,omitempty"`
	ValueReturns int `json:"value_returns,omitempty"`

	Calls            []string `json:"calls,omitempty"`
	CallableArgCalls int      `json:"callable_arg_calls,omitempty"`

	Comprehensions int `json:"comprehensions,omitempty"`
	Lambdas        int `json:"lambdas,omitempty"`

	Assignments       int `json:"assignments,omitempty"`
	AugAssignments    int `json:"aug_assignments,omitempty"`
	AttributeAccesses int `json:"attribute_accesses,omitempty"`
	SubscriptAccesses int `json:"subscript_accesses,omitempty"`
	Assertions        int `json:"assertions,omitempty"`

	OuterBindings []string `json:"outer_bindings,omitempty"`

	BinaryOps     map[string]int `json:"binary_ops,omitempty"`
	UnaryOps      map[string]int `json:"unary_ops,omitempty"`
	ComparisonOps map[string]int `json:"comparison_ops,omitempty"`
	LogicalOps    map[string]int `json:"logical_ops,omitempty"`

	StringLits int `json:"string_lits,omitempty"`
	NumberLits int `json:"number_lits,omitempty"`
	BoolLits   int `json:"bool_lits,omitempty"`

	// Class-level members, populated for class nodes only.
	ClassMethods    []string `json:"class_methods,omitempty"`
	ClassAttributes []string `json:"class_attributes,omitempty"`
}

// Suspensions returns the number of points where the body can yield control
// back to a caller and later resume.
func (bs *BodyShape) Suspensions() int {
	return bs.Yields + bs.Awaits
}

// IsGenerator reports whether the body contains at least one yield.
func (bs *BodyShape) IsGenerator() bool {
	return bs.Yields > 0
}

// logicalDecisionWeight converts short-circuit operator usage into decision
// points: each and/or adds one path.
func (bs *BodyShape) logicalDecisionPoints() int {
	total := 0
	for _, count := range bs.LogicalOps {
		total += count
	}

	return total
}

// Complexity returns the cyclomatic complexity of the body: one base path
// plus one per branch, loop, handler, and short-circuit operator.
func (bs *BodyShape) Complexity() int {
	return 1 + bs.Branches + bs.Loops + bs.Handlers + bs.logicalDecisionPoints()
}

// HigherOrderRatio returns the fraction of calls that receive a callable
// argument. Zero when the body makes no calls.
func (bs *BodyShape) HigherOrderRatio() float64 {
	if len(bs.Calls) == 0 {
		return 0
	}

	return float64(bs.CallableArgCalls) / float64(len(bs.Calls))
}

// OperatorTotal sums a single operator histogram.
func OperatorTotal(hist map[string]int) int {
	total := 0
	for _, count := range hist {
		total += count
	}

	return total
}

// SortedHandlerTypes returns the handler type set in deterministic order.
func (bs *BodyShape) SortedHandlerTypes() []string {
	return sortedCopy(bs.HandlerTypes)
}

// SortedCalls returns the call name set in deterministic order.
func (bs *BodyShape) SortedCalls() []string {
	return sortedCopy(bs.Calls)
}

func sortedCopy(values []string) []string {
	result := make([]string, len(values))
	copy(result, values)
	sort.Strings(result)

	return result
}

// shapeFeature is one comparable scalar dimension of a body shape.
type shapeFeature struct {
	before int
	after  int
}

// similarity of one feature pair: 1 when equal, otherwise the smaller count
// divided by the larger.
func (f shapeFeature) similarity() float64 {
	if f.before == f.after {
		return 1
	}

	lo, hi := f.before, f.after
	if lo > hi {
		lo, hi = hi, lo
	}

	if hi == 0 {
		return 1
	}

	return float64(lo) / float64(hi)
}

// ShapeSimilarity scores how structurally alike two body digests are,
// in [0, 1]. Nil shapes compare as empty digests. The score is the mean of
// per-feature ratios over branch/loop/handler/suspension/return counts, call
// set overlap, and operator/literal volumes; it is symmetric and pure, which
// the matcher relies on for deterministic tie-breaking.
func ShapeSimilarity(before, after *BodyShape) float64 {
	if before == nil {
		before = &BodyShape{}
	}

	if after == nil {
		after = &BodyShape{}
	}

	features := []shapeFeature{
		{before.Branches, after.Branches},
		{before.Loops, after.Loops},
		{before.Handlers, after.Handlers},
		{before.Suspensions(), after.Suspensions()},
		{before.Returns, after.Returns},
		{before.Assignments + before.AugAssignments, after.Assignments + after.AugAssignments},
		{OperatorTotal(before.BinaryOps) + OperatorTotal(before.ComparisonOps),
			OperatorTotal(after.BinaryOps) + OperatorTotal(after.ComparisonOps)},
		{before.StringLits + before.NumberLits + before.BoolLits,
			after.StringLits + after.NumberLits + after.BoolLits},
	}

	total := 0.0
	for _, feature := range features {
		total += feature.similarity()
	}

	total += callOverlap(before.Calls, after.Calls)

	return total / float64(len(features)+1)
}

// callOverlap is the Jaccard similarity of the two call-name sets. Two empty
// sets count as identical.
func callOverlap(before, after []string) float64 {
	if len(before) == 0 && len(after) == 0 {
		return 1
	}

	seen := make(map[string]bool, len(before))
	for _, name := range before {
		seen[name] = true
	}

	afterSet := make(map[string]bool, len(after))

	shared := 0

	for _, name := range after {
		if afterSet[name] {
			continue
		}

		afterSet[name] = true

		if seen[name] {
			shared++
		}
	}

	union := len(seen) + len(afterSet) - shared
	if union == 0 {
		return 1
	}

	return float64(shared) / float64(union)
}

// StableEqual reports whether two digests are identical for idempotence
// purposes: a node whose shape, signature, and markers are unchanged must
// produce no events.
func StableEqual(before, after *BodyShape) bool {
	if before == nil && after == nil {
		return true
	}

	if before == nil || after == nil {
		return false
	}

	return before.Branches == after.Branches &&
		before.Loops == after.Loops &&
		before.MaxNesting == after.MaxNesting &&
		before.Handlers == after.Handlers &&
		stringSetEqual(before.HandlerTypes, after.HandlerTypes) &&
		before.Yields == after.Yields &&
		before.Awaits == after.Awaits &&
		before.Returns == after.Returns &&
		before.ValueReturns == after.ValueReturns &&
		stringSetEqual(before.Calls, after.Calls) &&
		before.CallableArgCalls == after.CallableArgCalls &&
		before.Comprehensions == after.Comprehensions &&
		before.Lambdas == after.Lambdas &&
		before.Assignments == after.Assignments &&
		before.AugAssignments == after.AugAssignments &&
		before.AttributeAccesses == after.AttributeAccesses &&
		before.SubscriptAccesses == after.SubscriptAccesses &&
		before.Assertions == after.Assertions &&
		stringSetEqual(before.OuterBindings, after.OuterBindings) &&
		histEqual(before.BinaryOps, after.BinaryOps) &&
		histEqual(before.UnaryOps, after.UnaryOps) &&
		histEqual(before.ComparisonOps, after.ComparisonOps) &&
		histEqual(before.LogicalOps, after.LogicalOps) &&
		before.StringLits == after.StringLits &&
		before.NumberLits == after.NumberLits &&
		before.BoolLits == after.BoolLits &&
		stringSetEqual(before.ClassMethods, after.ClassMethods) &&
		stringSetEqual(before.ClassAttributes, after.ClassAttributes)
}

func stringSetEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}

	sortedA := sortedCopy(a)
	sortedB := sortedCopy(b)

	for idx := range sortedA {
		if sortedA[idx] != sortedB[idx] {
			return false
		}
	}

	return true
}

func histEqual(a, b map[string]int) bool {
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
