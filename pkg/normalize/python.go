package normalize

import (
	sitter "github.com/alexaandru/go-tree-sitter-bare"
	"github.com/alexaandru/go-sitter-forest/python"

	"github.com/Sumatoshi-tech/codedrift/pkg/node"
)

// pythonSpec builds the grammar table for tree-sitter-python.
func pythonSpec() *langSpec {
	return &langSpec{
		language:   LangPython,
		extensions: []string{".py", ".pyi"},
		sitterLang: sitter.NewLanguage(python.GetLanguage()),

		functionDefs:     setOf("function_definition"),
		classDefs:        setOf("class_definition"),
		lambdaDefs:       setOf("lambda"),
		importDefs:       setOf("import_statement", "import_from_statement"),
		decoratorWrapper: "decorated_definition",
		decorators:       setOf("decorator"),

		branches: setOf("if_statement", "elif_clause", "conditional_expression", "match_statement"),
		loops:    setOf("for_statement", "while_statement"),
		handlers: setOf("except_clause", "except_group_clause"),

		yields:  setOf("yield"),
		awaits:  setOf("await"),
		returns: setOf("return_statement"),

		calls: setOf("call"),
		comprehensions: setOf(
			"list_comprehension", "set_comprehension",
			"dictionary_comprehension", "generator_expression",
		),
		assignments:    setOf("assignment"),
		augAssignments: setOf("augmented_assignment"),
		attributes:     setOf("attribute"),
		subscripts:     setOf("subscript"),
		assertions:     setOf("assert_statement"),
		assertCalls:    setOf(),
		outerBindings:  setOf("global_statement", "nonlocal_statement"),

		binaryOps:     setOf("binary_operator"),
		unaryOps:      setOf("unary_operator", "not_operator"),
		comparisonOps: setOf("comparison_operator"),
		logicalOps:    setOf("boolean_operator"),

		stringLits: setOf("string"),
		numberLits: setOf("integer", "float"),
		boolLits:   setOf("true", "false"),

		nameField:    "name",
		paramsField:  "parameters",
		bodyField:    "body",
		asyncKeyword: "async",

		classifyParam:      pythonParam,
		extractBases:       pythonBases,
		extractHandlerType: pythonHandlerType,
		callCalleeName:     pythonCallee,
		importTarget:       pythonImport,
	}
}

func pythonParam(param sitter.Node, src []byte) (node.Param, bool) {
	switch param.Type() {
	case "identifier":
		return node.Param{Name: nodeText(param, src)}, true
	case "typed_parameter":
		return node.Param{Name: firstNamedText(param, src), HasAnnotation: true}, true
	case "default_parameter":
		return node.Param{Name: fieldText(param, "name", src), HasDefault: true}, true
	case "typed_default_parameter":
		return node.Param{Name: fieldText(param, "name", src), HasDefault: true, HasAnnotation: true}, true
	case "list_splat_pattern", "dictionary_splat_pattern":
		return node.Param{Name: nodeText(param, src)}, true
	case "tuple_pattern":
		return node.Param{Name: nodeText(param, src)}, true
	default:
		// Positional and keyword separators carry no binding.
		return node.Param{}, false
	}
}

func firstNamedText(tsNode sitter.Node, src []byte) string {
	if tsNode.NamedChildCount() == 0 {
		return nodeText(tsNode, src)
	}

	return nodeText(tsNode.NamedChild(0), src)
}

// pythonBases lists positional superclasses, skipping keyword arguments such
// as metaclass bindings.
func pythonBases(def sitter.Node, src []byte) []string {
	supers := def.ChildByFieldName("superclasses")
	if supers.IsNull() {
		return nil
	}

	var bases []string

	count := supers.NamedChildCount()
	for idx := uint32(0); idx < count; idx++ {
		child := supers.NamedChild(idx)
		if child.Type() == "keyword_argument" {
			continue
		}

		bases = append(bases, nodeText(child, src))
	}

	return bases
}

// pythonHandlerType names the caught expression; bare except clauses return
// the empty string.
func pythonHandlerType(handler sitter.Node, src []byte) string {
	if handler.NamedChildCount() == 0 {
		return ""
	}

	first := handler.NamedChild(0)
	if first.Type() == "block" {
		return ""
	}

	return nodeText(first, src)
}

func pythonCallee(call sitter.Node, src []byte) string {
	fn := call.ChildByFieldName("function")
	if fn.IsNull() {
		return ""
	}

	switch fn.Type() {
	case "identifier":
		return nodeText(fn, src)
	case "attribute":
		return fieldText(fn, "attribute", src)
	default:
		return ""
	}
}

func pythonImport(imp sitter.Node, src []byte) string {
	if module := imp.ChildByFieldName("module_name"); !module.IsNull() {
		return nodeText(module, src)
	}

	if imp.NamedChildCount() == 0 {
		return ""
	}

	first := imp.NamedChild(0)
	if first.Type() == "aliased_import" {
		return fieldText(first, "name", src)
	}

	return nodeText(first, src)
}
