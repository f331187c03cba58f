// Package event defines the typed semantic change events emitted by the
// classification layers, and the per-commit batch that orders them.
package event

import (
	"time"

	"github.com/Sumatoshi-tech/codedrift/pkg/node"
)

// Layer identifies the classifier family an event belongs to. The numeric
// order is the batch sort order.
type Layer int

// Layer constants, in batch sort order.
const (
	LayerStructural Layer = iota
	LayerSyntactic
	LayerSemantic
	LayerBehavioral
	LayerAdvisory
)

// layerNames maps layers to their wire names.
var layerNames = map[Layer]string{
	LayerStructural: "structural",
	LayerSyntactic:  "syntactic",
	LayerSemantic:   "semantic",
	LayerBehavioral: "behavioral",
	LayerAdvisory:   "advisory",
}

func (l Layer) String() string {
	if name, ok := layerNames[l]; ok {
		return name
	}

	return "unknown"
}

// Kind is the closed set of deterministic event types plus KindAdvisory for
// externally supplied events. Classifiers switch over it exhaustively; open
// string tags are confined to the Advisory field.
type Kind int

// Structural event kinds.
const (
	KindFileAdded Kind = iota + 1
	KindFileRemoved
	KindFileModifiedUnparseable
	KindDependencyAdded
	KindDependencyRemoved
	KindNodeAdded
	KindNodeRemoved
	KindNodeRenamed
	KindNodeMoved
)

// Syntactic event kinds.
const (
	KindSignatureChanged Kind = iota + 100
	KindDefaultParameterAdded
	KindDefaultParameterRemoved
	KindTypeAnnotationAdded
	KindTypeAnnotationRemoved
	KindDecoratorAdded
	KindDecoratorRemoved
	KindFunctionMadeAsync
	KindFunctionMadeSync
	KindBaseClassAdded
	KindBaseClassRemoved
	KindBaseClassReordered
)

// Semantic event kinds.
const (
	KindControlFlowChanged Kind = iota + 200
	KindFunctionMadeGenerator
	KindGeneratorMadeFunction
	KindYieldPatternChanged
	KindReturnPatternChanged
	KindExceptionHandlingAdded
	KindExceptionHandlingRemoved
	KindExceptionHandlingChanged
	KindInternalCallAdded
	KindInternalCallRemoved
	KindComprehensionUsageChanged
	KindLambdaUsageChanged
	KindScopeBindingChanged
)

// Behavioral event kinds.
const (
	KindFunctionComplexityChanged Kind = iota + 300
	KindHigherOrderAdopted
	KindHigherOrderRemoved
	KindHigherOrderChanged
	KindAttributeAccessChanged
	KindSubscriptAccessChanged
	KindAssignmentUsageChanged
	KindAugmentedAssignmentChanged
	KindBinaryOperatorUsageChanged
	KindUnaryOperatorUsageChanged
	KindComparisonOperatorUsageChanged
	KindLogicalOperatorUsageChanged
	KindStringLiteralUsageChanged
	KindNumericLiteralUsageChanged
	KindBooleanLiteralUsageChanged
	KindAssertionCountChanged
	KindClassMethodAdded
	KindClassMethodRemoved
	KindClassAttributeAdded
	KindClassAttributeRemoved
)

// KindAdvisory marks an event supplied by the external advisory classifier.
// Its open-ended label lives in Event.Advisory, keeping the deterministic
// kinds a closed set.
const KindAdvisory Kind = 900

// kindNames maps kinds to their snake_case wire names.
var kindNames = map[Kind]string{
	KindFileAdded:                      "file_added",
	KindFileRemoved:                    "file_removed",
	KindFileModifiedUnparseable:        "file_modified_unparseable",
	KindDependencyAdded:                "dependency_added",
	KindDependencyRemoved:              "dependency_removed",
	KindNodeAdded:                      "node_added",
	KindNodeRemoved:                    "node_removed",
	KindNodeRenamed:                    "node_renamed",
	KindNodeMoved:                      "node_moved",
	KindSignatureChanged:               "signature_changed",
	KindDefaultParameterAdded:          "default_parameter_added",
	KindDefaultParameterRemoved:        "default_parameter_removed",
	KindTypeAnnotationAdded:            "type_annotation_added",
	KindTypeAnnotationRemoved:          "type_annotation_removed",
	KindDecoratorAdded:                 "decorator_added",
	KindDecoratorRemoved:               "decorator_removed",
	KindFunctionMadeAsync:              "function_made_async",
	KindFunctionMadeSync:               "function_made_sync",
	KindBaseClassAdded:                 "base_class_added",
	KindBaseClassRemoved:               "base_class_removed",
	KindBaseClassReordered:             "base_class_reordered",
	KindControlFlowChanged:             "control_flow_changed",
	KindFunctionMadeGenerator:          "function_made_generator",
	KindGeneratorMadeFunction:          "generator_made_function",
	KindYieldPatternChanged:            "yield_pattern_changed",
	KindReturnPatternChanged:           "return_pattern_changed",
	KindExceptionHandlingAdded:         "exception_handling_added",
	KindExceptionHandlingRemoved:       "exception_handling_removed",
	KindExceptionHandlingChanged:       "exception_handling_changed",
	KindInternalCallAdded:              "internal_call_added",
	KindInternalCallRemoved:            "internal_call_removed",
	KindComprehensionUsageChanged:      "comprehension_usage_changed",
	KindLambdaUsageChanged:             "lambda_usage_changed",
	KindScopeBindingChanged:            "scope_binding_changed",
	KindFunctionComplexityChanged:      "function_complexity_changed",
	KindHigherOrderAdopted:             "higher_order_adopted",
	KindHigherOrderRemoved:             "higher_order_removed",
	KindHigherOrderChanged:             "higher_order_changed",
	KindAttributeAccessChanged:         "attribute_access_changed",
	KindSubscriptAccessChanged:         "subscript_access_changed",
	KindAssignmentUsageChanged:         "assignment_usage_changed",
	KindAugmentedAssignmentChanged:     "augmented_assignment_changed",
	KindBinaryOperatorUsageChanged:     "binary_operator_usage_changed",
	KindUnaryOperatorUsageChanged:      "unary_operator_usage_changed",
	KindComparisonOperatorUsageChanged: "comparison_operator_usage_changed",
	KindLogicalOperatorUsageChanged:    "logical_operator_usage_changed",
	KindStringLiteralUsageChanged:      "string_literal_usage_changed",
	KindNumericLiteralUsageChanged:     "numeric_literal_usage_changed",
	KindBooleanLiteralUsageChanged:     "boolean_literal_usage_changed",
	KindAssertionCountChanged:          "assertion_count_changed",
	KindClassMethodAdded:               "class_method_added",
	KindClassMethodRemoved:             "class_method_removed",
	KindClassAttributeAdded:            "class_attribute_added",
	KindClassAttributeRemoved:          "class_attribute_removed",
	KindAdvisory:                       "advisory",
}

// kindsByName is the reverse lookup for parsing wire names.
var kindsByName = buildKindsByName()

func buildKindsByName() map[string]Kind {
	result := make(map[string]Kind, len(kindNames))
	for kind, name := range kindNames {
		result[name] = kind
	}

	return result
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return "unknown"
}

// ParseKind resolves a wire name back to its Kind. The second return is
// false for unknown names.
func ParseKind(name string) (Kind, bool) {
	kind, ok := kindsByName[name]

	return kind, ok
}

// Impact grades how disruptive an event likely is to callers of the subject.
type Impact int

// Impact constants.
const (
	ImpactNone Impact = iota
	ImpactLow
	ImpactMedium
	ImpactHigh
)

// impactNames maps impact levels to wire names.
var impactNames = map[Impact]string{
	ImpactNone:   "none",
	ImpactLow:    "low",
	ImpactMedium: "medium",
	ImpactHigh:   "high",
}

func (i Impact) String() string {
	if name, ok := impactNames[i]; ok {
		return name
	}

	return "none"
}

// Event is one classified, typed description of a change to a node or file.
// Deterministic-layer events carry a nil Confidence (certainty 1.0); advisory
// events always carry one.
type Event struct {
	Kind       Kind      `json:"kind"`
	Advisory   string    `json:"advisory,omitempty"`
	NodeID     string    `json:"node_id,omitempty"`
	File       string    `json:"file"`
	Span       node.Span `json:"span"`
	Details    string    `json:"details,omitempty"`
	Layer      Layer     `json:"layer"`
	Confidence *float64  `json:"confidence,omitempty"`
	Reasoning  string    `json:"reasoning,omitempty"`
	Impact     Impact    `json:"impact,omitempty"`
}

// subjectKey identifies an event for exact-repeat deduplication. Details is
// part of the identity: set-diff kinds legitimately emit several events of
// one kind for the same node, distinguished by their detail strings.
type subjectKey struct {
	kind     Kind
	advisory string
	file     string
	nodeID   string
	layer    Layer
	details  string
}

func (e *Event) subject() subjectKey {
	return subjectKey{
		kind:     e.Kind,
		advisory: e.Advisory,
		file:     e.File,
		nodeID:   e.NodeID,
		layer:    e.Layer,
		details:  e.Details,
	}
}

// Meta is the commit metadata stored alongside a batch.
type Meta struct {
	Hash      string    `json:"hash"`
	Author    string    `json:"author"`
	Timestamp time.Time `json:"timestamp"`
}
