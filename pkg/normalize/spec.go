package normalize

import (
	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/Sumatoshi-tech/codedrift/pkg/node"
)

// stringSet is a membership table for tree-sitter node types.
type stringSet map[string]bool

func setOf(values ...string) stringSet {
	set := make(stringSet, len(values))
	for _, value := range values {
		set[value] = true
	}

	return set
}

// langSpec is the per-language grammar table driving the generic builder.
// Every syntactic category the node model cares about is expressed as a set
// of tree-sitter node types (or a small extraction hook), so the walker
// itself stays language-agnostic.
type langSpec struct {
	language   Language
	extensions []string
	sitterLang *sitter.Language

	// Definitions.
	functionDefs     stringSet
	classDefs        stringSet
	lambdaDefs       stringSet
	importDefs       stringSet
	decoratorWrapper string // wrapper node carrying decorators, "" when inline
	decorators       stringSet

	// Control flow.
	branches stringSet
	loops    stringSet
	handlers stringSet

	// Suspension and returns.
	yields  stringSet
	awaits  stringSet
	returns stringSet

	// Expressions.
	calls          stringSet
	comprehensions stringSet
	assignments    stringSet
	augAssignments stringSet
	attributes     stringSet
	subscripts     stringSet
	assertions     stringSet
	assertCalls    stringSet // call names counted as assertions
	outerBindings  stringSet

	// Operators. Languages with a single binary node type classify by the
	// operator token instead.
	binaryOps          stringSet
	unaryOps           stringSet
	comparisonOps      stringSet
	logicalOps         stringSet
	comparisonOpTokens stringSet
	logicalOpTokens    stringSet

	// Literals.
	stringLits stringSet
	numberLits stringSet
	boolLits   stringSet

	// Field names on definition nodes.
	nameField   string
	paramsField string
	bodyField   string

	// asyncKeyword is the anonymous token marking an async definition, ""
	// when the language has no sync/async distinction.
	asyncKeyword string

	// classifyParam converts one parameter node into a Param descriptor.
	// Returns false for separator-only parameter children.
	classifyParam func(param sitter.Node, src []byte) (node.Param, bool)

	// extractBases returns the ordered declared parents of a class node.
	extractBases func(def sitter.Node, src []byte) []string

	// extractHandlerType names the caught type of one handler clause.
	extractHandlerType func(handler sitter.Node, src []byte) string

	// callCalleeName names the callee of a call node, "" when unnameable.
	callCalleeName func(call sitter.Node, src []byte) string

	// importTarget names the dependency a single import node introduces.
	importTarget func(imp sitter.Node, src []byte) string
}

// nodeText returns the source text of a tree-sitter node.
func nodeText(tsNode sitter.Node, src []byte) string {
	start := tsNode.StartByte()
	end := tsNode.EndByte()

	if end > uint(len(src)) || start > end {
		return ""
	}

	return string(src[start:end])
}

// spanOf converts tree-sitter points to a 1-based line span.
func spanOf(tsNode sitter.Node) node.Span {
	return node.Span{
		StartLine: int(tsNode.StartPoint().Row) + 1,
		EndLine:   int(tsNode.EndPoint().Row) + 1,
	}
}

// fieldText returns the text of a named field child, or "".
func fieldText(tsNode sitter.Node, field string, src []byte) string {
	child := tsNode.ChildByFieldName(field)
	if child.IsNull() {
		return ""
	}

	return nodeText(child, src)
}

// hasAnonToken reports whether a node has an anonymous child token of the
// given type (e.g. the async keyword).
func hasAnonToken(tsNode sitter.Node, token string) bool {
	if token == "" {
		return false
	}

	for idx := uint32(0); idx < tsNode.ChildCount(); idx++ {
		if tsNode.Child(idx).Type() == token {
			return true
		}
	}

	return false
}

// namedChildTexts returns the source text of every named child.
func namedChildTexts(tsNode sitter.Node, src []byte) []string {
	count := tsNode.NamedChildCount()
	texts := make([]string, 0, count)

	for idx := uint32(0); idx < count; idx++ {
		text := nodeText(tsNode.NamedChild(idx), src)
		if text != "" {
			texts = append(texts, text)
		}
	}

	return texts
}
