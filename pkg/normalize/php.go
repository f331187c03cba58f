package normalize

import (
	"strings"

	sitter "github.com/alexaandru/go-tree-sitter-bare"
	"github.com/alexaandru/go-sitter-forest/php"

	"github.com/Sumatoshi-tech/codedrift/pkg/node"
)

// phpSpec builds the grammar table for tree-sitter-php.
func phpSpec() *langSpec {
	return &langSpec{
		language:   LangPHP,
		extensions: []string{".php"},
		sitterLang: sitter.NewLanguage(php.GetLanguage()),

		functionDefs: setOf("function_definition", "method_declaration"),
		classDefs: setOf(
			"class_declaration", "interface_declaration",
			"trait_declaration", "enum_declaration",
		),
		lambdaDefs: setOf(
			"anonymous_function_creation_expression",
			"anonymous_function", "arrow_function",
		),
		importDefs: setOf(
			"namespace_use_declaration",
			"require_expression", "require_once_expression",
			"include_expression", "include_once_expression",
		),
		decorators: setOf("attribute_list"),

		branches: setOf(
			"if_statement", "else_if_clause",
			"conditional_expression", "switch_statement", "match_expression",
		),
		loops: setOf(
			"for_statement", "foreach_statement",
			"while_statement", "do_statement",
		),
		handlers: setOf("catch_clause"),

		yields:  setOf("yield_expression"),
		awaits:  setOf(),
		returns: setOf("return_statement"),

		calls: setOf(
			"function_call_expression", "member_call_expression",
			"scoped_call_expression", "nullsafe_member_call_expression",
			"object_creation_expression",
		),
		comprehensions: setOf(),
		assignments:    setOf("assignment_expression", "property_declaration"),
		augAssignments: setOf("augmented_assignment_expression", "update_expression"),
		attributes:     setOf("member_access_expression", "nullsafe_member_access_expression"),
		subscripts:     setOf("subscript_expression"),
		assertions:     setOf(),
		assertCalls:    setOf("assert"),
		outerBindings:  setOf("global_declaration", "anonymous_function_use_clause"),

		binaryOps:     setOf("binary_expression"),
		unaryOps:      setOf("unary_op_expression"),
		comparisonOps: setOf(),
		logicalOps:    setOf(),
		comparisonOpTokens: setOf(
			"==", "===", "!=", "!==", "<>", "<", ">", "<=", ">=", "<=>",
		),
		logicalOpTokens: setOf("&&", "||", "and", "or", "xor", "??"),

		stringLits: setOf("string", "encapsed_string", "heredoc"),
		numberLits: setOf("integer", "float"),
		boolLits:   setOf("boolean", "true", "false"),

		nameField:   "name",
		paramsField: "parameters",
		bodyField:   "body",

		classifyParam:      phpParam,
		extractBases:       phpBases,
		extractHandlerType: phpHandlerType,
		callCalleeName:     phpCallee,
		importTarget:       phpImport,
	}
}

func phpParam(param sitter.Node, src []byte) (node.Param, bool) {
	switch param.Type() {
	case "simple_parameter", "property_promotion_parameter", "variadic_parameter":
		return node.Param{
			Name:          fieldText(param, "name", src),
			HasDefault:    !param.ChildByFieldName("default_value").IsNull(),
			HasAnnotation: !param.ChildByFieldName("type").IsNull(),
		}, true
	default:
		return node.Param{}, false
	}
}

// phpBases merges the extends clause and implemented interfaces, in
// declaration order.
func phpBases(def sitter.Node, src []byte) []string {
	var bases []string

	count := def.NamedChildCount()
	for idx := uint32(0); idx < count; idx++ {
		child := def.NamedChild(idx)

		switch child.Type() {
		case "base_clause", "class_interface_clause":
			bases = append(bases, namedChildTexts(child, src)...)
		}
	}

	return bases
}

func phpHandlerType(handler sitter.Node, src []byte) string {
	count := handler.NamedChildCount()
	for idx := uint32(0); idx < count; idx++ {
		child := handler.NamedChild(idx)
		if child.Type() == "type_list" {
			return nodeText(child, src)
		}
	}

	return ""
}

func phpCallee(call sitter.Node, src []byte) string {
	switch call.Type() {
	case "function_call_expression":
		fn := call.ChildByFieldName("function")
		if fn.IsNull() {
			return ""
		}

		return strings.TrimPrefix(nodeText(fn, src), "\\")
	case "member_call_expression", "scoped_call_expression", "nullsafe_member_call_expression":
		return fieldText(call, "name", src)
	case "object_creation_expression":
		if call.NamedChildCount() == 0 {
			return ""
		}

		return nodeText(call.NamedChild(0), src)
	default:
		return ""
	}
}

func phpImport(imp sitter.Node, src []byte) string {
	switch imp.Type() {
	case "namespace_use_declaration":
		count := imp.NamedChildCount()
		for idx := uint32(0); idx < count; idx++ {
			child := imp.NamedChild(idx)
			if child.Type() == "namespace_use_clause" {
				return firstNamedText(child, src)
			}
		}

		return ""
	default:
		if imp.NamedChildCount() == 0 {
			return ""
		}

		return strings.Trim(nodeText(imp.NamedChild(0), src), `"'`)
	}
}
