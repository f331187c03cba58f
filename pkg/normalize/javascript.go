package normalize

import (
	"strings"

	sitter "github.com/alexaandru/go-tree-sitter-bare"
	"github.com/alexaandru/go-sitter-forest/javascript"

	"github.com/Sumatoshi-tech/codedrift/pkg/node"
)

// javascriptSpec builds the grammar table for tree-sitter-javascript.
func javascriptSpec() *langSpec {
	return &langSpec{
		language:   LangJavaScript,
		extensions: []string{".js", ".mjs", ".cjs", ".jsx"},
		sitterLang: sitter.NewLanguage(javascript.GetLanguage()),

		functionDefs: setOf(
			"function_declaration", "generator_function_declaration",
			"function_expression", "generator_function", "method_definition",
		),
		classDefs:  setOf("class_declaration", "class"),
		lambdaDefs: setOf("arrow_function"),
		importDefs: setOf("import_statement"),
		decorators: setOf("decorator"),

		branches: setOf("if_statement", "ternary_expression", "switch_statement"),
		loops: setOf(
			"for_statement", "for_in_statement",
			"while_statement", "do_statement",
		),
		handlers: setOf("catch_clause"),

		yields:  setOf("yield_expression"),
		awaits:  setOf("await_expression"),
		returns: setOf("return_statement"),

		calls:          setOf("call_expression", "new_expression"),
		comprehensions: setOf(),
		assignments:    setOf("variable_declarator", "assignment_expression"),
		augAssignments: setOf("augmented_assignment_expression", "update_expression"),
		attributes:     setOf("member_expression"),
		subscripts:     setOf("subscript_expression"),
		assertions:     setOf(),
		assertCalls:    setOf("assert"),
		outerBindings:  setOf(),

		binaryOps:          setOf("binary_expression"),
		unaryOps:           setOf("unary_expression"),
		comparisonOps:      setOf(),
		logicalOps:         setOf(),
		comparisonOpTokens: setOf("==", "===", "!=", "!==", "<", ">", "<=", ">=", "in", "instanceof"),
		logicalOpTokens:    setOf("&&", "||", "??"),

		stringLits: setOf("string", "template_string"),
		numberLits: setOf("number"),
		boolLits:   setOf("true", "false"),

		nameField:    "name",
		paramsField:  "parameters",
		bodyField:    "body",
		asyncKeyword: "async",

		classifyParam:      javascriptParam,
		extractBases:       javascriptBases,
		extractHandlerType: javascriptHandlerType,
		callCalleeName:     javascriptCallee,
		importTarget:       javascriptImport,
	}
}

func javascriptParam(param sitter.Node, src []byte) (node.Param, bool) {
	switch param.Type() {
	case "identifier", "private_property_identifier":
		return node.Param{Name: nodeText(param, src)}, true
	case "assignment_pattern":
		return node.Param{Name: fieldText(param, "left", src), HasDefault: true}, true
	case "rest_pattern", "object_pattern", "array_pattern":
		return node.Param{Name: nodeText(param, src)}, true
	default:
		return node.Param{}, false
	}
}

// javascriptBases resolves the extends clause. The grammar wraps it in a
// class_heritage child rather than a field.
func javascriptBases(def sitter.Node, src []byte) []string {
	count := def.NamedChildCount()
	for idx := uint32(0); idx < count; idx++ {
		child := def.NamedChild(idx)
		if child.Type() == "class_heritage" {
			if child.NamedChildCount() > 0 {
				return namedChildTexts(child, src)
			}

			text := strings.TrimSpace(strings.TrimPrefix(nodeText(child, src), "extends"))
			if text == "" {
				return nil
			}

			return []string{text}
		}
	}

	return nil
}

// javascriptHandlerType is always empty: catch clauses are untyped.
func javascriptHandlerType(_ sitter.Node, _ []byte) string {
	return ""
}

func javascriptCallee(call sitter.Node, src []byte) string {
	fn := call.ChildByFieldName("function")
	if fn.IsNull() {
		fn = call.ChildByFieldName("constructor")
	}

	if fn.IsNull() {
		return ""
	}

	switch fn.Type() {
	case "identifier":
		return nodeText(fn, src)
	case "member_expression":
		return fieldText(fn, "property", src)
	default:
		return ""
	}
}

func javascriptImport(imp sitter.Node, src []byte) string {
	source := imp.ChildByFieldName("source")
	if source.IsNull() {
		return ""
	}

	return strings.Trim(nodeText(source, src), `"'`)
}
