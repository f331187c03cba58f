package normalize

import (
	"path/filepath"
	"strings"

	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/Sumatoshi-tech/codedrift/pkg/node"
)

// builder converts one parsed tree-sitter tree into the node model, driven
// entirely by the language's grammar table.
type builder struct {
	spec   *langSpec
	src    []byte
	path   string
	module *node.Node
}

// walkCtx carries the traversal state for one enclosing scope.
type walkCtx struct {
	owner      *node.Node
	shape      *node.BodyShape
	nesting    int
	anon       map[node.Kind]int
	decorators []string
}

func (b *builder) build(root sitter.Node) *node.Node {
	b.module = &node.Node{
		Kind: node.KindModule,
		Name: moduleName(b.path),
		Path: "",
		Span: spanOf(root),
	}

	b.walkChildren(root, &walkCtx{
		owner: b.module,
		anon:  make(map[node.Kind]int),
	})

	return b.module
}

// moduleName derives the module's display name from the file path.
func moduleName(path string) string {
	base := filepath.Base(path)

	if idx := strings.LastIndex(base, "."); idx > 0 {
		base = base[:idx]
	}

	return base
}

func (b *builder) walkChildren(tsNode sitter.Node, ctx *walkCtx) {
	count := tsNode.NamedChildCount()
	for idx := uint32(0); idx < count; idx++ {
		b.visit(tsNode.NamedChild(idx), ctx)
	}
}

// visit dispatches one named node against the grammar table, accumulating
// body-shape counts and attaching definitions to the enclosing owner.
//
//nolint:gocyclo // the dispatch table is inherently wide.
func (b *builder) visit(tsNode sitter.Node, ctx *walkCtx) {
	typ := tsNode.Type()

	switch {
	case typ == b.spec.decoratorWrapper && b.spec.decoratorWrapper != "":
		b.visitDecorated(tsNode, ctx)
	case b.spec.functionDefs[typ]:
		b.addCallable(tsNode, ctx, true)
	case b.spec.lambdaDefs[typ]:
		if ctx.shape != nil {
			ctx.shape.Lambdas++
		}

		b.addCallable(tsNode, ctx, false)
	case b.spec.classDefs[typ]:
		b.addClass(tsNode, ctx)
	case b.spec.importDefs[typ]:
		b.addImport(tsNode, ctx)
	case b.spec.branches[typ]:
		b.countNested(tsNode, ctx, func(shape *node.BodyShape) { shape.Branches++ })
	case b.spec.loops[typ]:
		b.countNested(tsNode, ctx, func(shape *node.BodyShape) { shape.Loops++ })
	case b.spec.handlers[typ]:
		b.visitHandler(tsNode, ctx)
	case b.spec.yields[typ]:
		b.countAndDescend(tsNode, ctx, func(shape *node.BodyShape) { shape.Yields++ })
	case b.spec.awaits[typ]:
		b.countAndDescend(tsNode, ctx, func(shape *node.BodyShape) { shape.Awaits++ })
	case b.spec.returns[typ]:
		b.visitReturn(tsNode, ctx)
	case b.spec.calls[typ]:
		b.visitCall(tsNode, ctx)
	case b.spec.comprehensions[typ]:
		b.countAndDescend(tsNode, ctx, func(shape *node.BodyShape) { shape.Comprehensions++ })
	case b.spec.assignments[typ]:
		b.visitAssignment(tsNode, ctx)
	case b.spec.augAssignments[typ]:
		b.countAndDescend(tsNode, ctx, func(shape *node.BodyShape) { shape.AugAssignments++ })
	case b.spec.attributes[typ]:
		b.countAndDescend(tsNode, ctx, func(shape *node.BodyShape) { shape.AttributeAccesses++ })
	case b.spec.subscripts[typ]:
		b.countAndDescend(tsNode, ctx, func(shape *node.BodyShape) { shape.SubscriptAccesses++ })
	case b.spec.assertions[typ]:
		b.countAndDescend(tsNode, ctx, func(shape *node.BodyShape) { shape.Assertions++ })
	case b.spec.outerBindings[typ]:
		b.visitOuterBinding(tsNode, ctx)
	case b.spec.binaryOps[typ]:
		b.visitBinaryOp(tsNode, ctx)
	case b.spec.unaryOps[typ]:
		b.visitOperator(tsNode, ctx, func(shape *node.BodyShape) *map[string]int { return &shape.UnaryOps })
	case b.spec.comparisonOps[typ]:
		b.visitOperator(tsNode, ctx, func(shape *node.BodyShape) *map[string]int { return &shape.ComparisonOps })
	case b.spec.logicalOps[typ]:
		b.visitOperator(tsNode, ctx, func(shape *node.BodyShape) *map[string]int { return &shape.LogicalOps })
	case b.spec.stringLits[typ]:
		b.count(ctx, func(shape *node.BodyShape) { shape.StringLits++ })
	case b.spec.numberLits[typ]:
		b.count(ctx, func(shape *node.BodyShape) { shape.NumberLits++ })
	case b.spec.boolLits[typ]:
		b.count(ctx, func(shape *node.BodyShape) { shape.BoolLits++ })
	default:
		b.walkChildren(tsNode, ctx)
	}
}

func (b *builder) count(ctx *walkCtx, inc func(*node.BodyShape)) {
	if ctx.shape != nil {
		inc(ctx.shape)
	}
}

func (b *builder) countAndDescend(tsNode sitter.Node, ctx *walkCtx, inc func(*node.BodyShape)) {
	b.count(ctx, inc)
	b.walkChildren(tsNode, ctx)
}

// countNested counts a branching construct and descends one nesting level
// deeper, tracking the maximum depth reached.
func (b *builder) countNested(tsNode sitter.Node, ctx *walkCtx, inc func(*node.BodyShape)) {
	if ctx.shape == nil {
		b.walkChildren(tsNode, ctx)

		return
	}

	inc(ctx.shape)

	nested := *ctx
	nested.nesting++

	if nested.nesting > ctx.shape.MaxNesting {
		ctx.shape.MaxNesting = nested.nesting
	}

	b.walkChildren(tsNode, &nested)
}

func (b *builder) visitHandler(tsNode sitter.Node, ctx *walkCtx) {
	if ctx.shape != nil {
		ctx.shape.Handlers++

		handlerType := b.spec.extractHandlerType(tsNode, b.src)
		if handlerType == "" {
			handlerType = "*"
		}

		ctx.shape.HandlerTypes = append(ctx.shape.HandlerTypes, handlerType)
	}

	b.walkChildren(tsNode, ctx)
}

func (b *builder) visitReturn(tsNode sitter.Node, ctx *walkCtx) {
	if ctx.shape != nil {
		ctx.shape.Returns++

		if tsNode.NamedChildCount() > 0 {
			ctx.shape.ValueReturns++
		}
	}

	b.walkChildren(tsNode, ctx)
}

func (b *builder) visitCall(tsNode sitter.Node, ctx *walkCtx) {
	if ctx.shape != nil {
		callee := b.spec.callCalleeName(tsNode, b.src)
		if callee != "" {
			ctx.shape.Calls = append(ctx.shape.Calls, callee)

			if b.spec.assertCalls[callee] {
				ctx.shape.Assertions++
			}
		}

		if b.callHasCallableArg(tsNode) {
			ctx.shape.CallableArgCalls++
		}
	}

	b.walkChildren(tsNode, ctx)
}

// callHasCallableArg reports whether any argument is a function literal.
// Callable detection is purely syntactic; identifier arguments would need
// type inference to resolve.
func (b *builder) callHasCallableArg(call sitter.Node) bool {
	args := call.ChildByFieldName("arguments")
	if args.IsNull() {
		return false
	}

	count := args.NamedChildCount()
	for idx := uint32(0); idx < count; idx++ {
		typ := args.NamedChild(idx).Type()
		if b.spec.lambdaDefs[typ] || b.spec.functionDefs[typ] {
			return true
		}
	}

	return false
}

func (b *builder) visitAssignment(tsNode sitter.Node, ctx *walkCtx) {
	if ctx.owner.Kind == node.KindClass && ctx.owner.Shape != nil {
		target := fieldText(tsNode, "left", b.src)
		if target == "" {
			target = fieldText(tsNode, "name", b.src)
		}

		if target == "" {
			// Property declarations nest the binding one level down.
			count := tsNode.NamedChildCount()
			for idx := uint32(0); idx < count; idx++ {
				if named := fieldText(tsNode.NamedChild(idx), "name", b.src); named != "" {
					target = named

					break
				}
			}
		}

		if target != "" {
			ctx.owner.Shape.ClassAttributes = append(ctx.owner.Shape.ClassAttributes, target)
		}
	}

	b.countAndDescend(tsNode, ctx, func(shape *node.BodyShape) { shape.Assignments++ })
}

func (b *builder) visitOuterBinding(tsNode sitter.Node, ctx *walkCtx) {
	if ctx.shape != nil {
		ctx.shape.OuterBindings = append(ctx.shape.OuterBindings, namedChildTexts(tsNode, b.src)...)
	}
}

// visitBinaryOp counts one binary node, reclassifying comparison and logical
// operator tokens for grammars that fold everything into one node type.
func (b *builder) visitBinaryOp(tsNode sitter.Node, ctx *walkCtx) {
	if ctx.shape == nil {
		b.walkChildren(tsNode, ctx)

		return
	}

	op := fieldText(tsNode, "operator", b.src)

	switch {
	case b.spec.comparisonOpTokens[op]:
		bumpHist(&ctx.shape.ComparisonOps, op)
	case b.spec.logicalOpTokens[op]:
		bumpHist(&ctx.shape.LogicalOps, op)
	default:
		bumpHist(&ctx.shape.BinaryOps, op)
	}

	b.walkChildren(tsNode, ctx)
}

func (b *builder) visitOperator(tsNode sitter.Node, ctx *walkCtx, hist func(*node.BodyShape) *map[string]int) {
	if ctx.shape != nil {
		op := fieldText(tsNode, "operator", b.src)
		if op == "" {
			op = operatorFromTokens(tsNode, b.src)
		}

		bumpHist(hist(ctx.shape), op)
	}

	b.walkChildren(tsNode, ctx)
}

// operatorFromTokens joins a node's anonymous tokens, for grammars without an
// operator field (e.g. chained comparisons).
func operatorFromTokens(tsNode sitter.Node, src []byte) string {
	var tokens []string

	count := tsNode.ChildCount()
	for idx := uint32(0); idx < count; idx++ {
		child := tsNode.Child(idx)
		if !child.IsNamed() {
			tokens = append(tokens, nodeText(child, src))
		}
	}

	if len(tokens) == 0 {
		return "?"
	}

	return strings.Join(tokens, " ")
}

func bumpHist(hist *map[string]int, key string) {
	if key == "" {
		key = "?"
	}

	if *hist == nil {
		*hist = make(map[string]int)
	}

	(*hist)[key]++
}

// visitDecorated unwraps a decorator wrapper node: decorators collect onto
// the inner definition.
func (b *builder) visitDecorated(tsNode sitter.Node, ctx *walkCtx) {
	inner := *ctx
	inner.decorators = append(inner.decorators, b.collectDecorators(tsNode)...)

	count := tsNode.NamedChildCount()
	for idx := uint32(0); idx < count; idx++ {
		child := tsNode.NamedChild(idx)
		if !b.spec.decorators[child.Type()] {
			b.visit(child, &inner)
		}
	}
}

// collectDecorators extracts decorator names from a node's direct children.
func (b *builder) collectDecorators(tsNode sitter.Node) []string {
	var names []string

	count := tsNode.NamedChildCount()
	for idx := uint32(0); idx < count; idx++ {
		child := tsNode.NamedChild(idx)
		if b.spec.decorators[child.Type()] {
			names = append(names, strings.TrimPrefix(nodeText(child, b.src), "@"))
		}
	}

	return names
}

// addCallable attaches a function, method, or lambda node and walks its body
// with a fresh shape.
func (b *builder) addCallable(tsNode sitter.Node, ctx *walkCtx, named bool) {
	kind := node.KindFunction

	switch {
	case !named:
		kind = node.KindLambda
	case ctx.owner.Kind == node.KindClass:
		kind = node.KindMethod
	}

	name := fieldText(tsNode, b.spec.nameField, b.src)
	if name == "" {
		ordinal := ctx.anon[kind]
		ctx.anon[kind]++
		name = node.AnonymousName(kind, ordinal)

		kind = node.KindLambda
	}

	callable := &node.Node{
		Kind:       kind,
		Name:       name,
		Path:       ctx.owner.ChildPath(name),
		Signature:  b.parseSignature(tsNode),
		Decorators: append(ctx.decorators, b.collectDecorators(tsNode)...),
		Async:      hasAnonToken(tsNode, b.spec.asyncKeyword),
		Span:       spanOf(tsNode),
		Shape:      &node.BodyShape{},
	}

	ctx.owner.AddChild(callable)

	if kind == node.KindMethod && ctx.owner.Shape != nil {
		ctx.owner.Shape.ClassMethods = append(ctx.owner.Shape.ClassMethods, name)
	}

	bodyCtx := &walkCtx{
		owner: callable,
		shape: callable.Shape,
		anon:  make(map[node.Kind]int),
	}

	// Expression-bodied lambdas put a countable node directly under the
	// body field, so the body is visited, not just its children.
	body := tsNode.ChildByFieldName(b.spec.bodyField)
	if body.IsNull() {
		b.walkChildren(tsNode, bodyCtx)

		return
	}

	b.visit(body, bodyCtx)
}

// addClass attaches a class node; its shape carries the member sets only.
func (b *builder) addClass(tsNode sitter.Node, ctx *walkCtx) {
	name := fieldText(tsNode, b.spec.nameField, b.src)
	if name == "" {
		ordinal := ctx.anon[node.KindClass]
		ctx.anon[node.KindClass]++
		name = node.AnonymousName(node.KindClass, ordinal)
	}

	class := &node.Node{
		Kind:       node.KindClass,
		Name:       name,
		Path:       ctx.owner.ChildPath(name),
		Decorators: append(ctx.decorators, b.collectDecorators(tsNode)...),
		Bases:      b.spec.extractBases(tsNode, b.src),
		Span:       spanOf(tsNode),
		Shape:      &node.BodyShape{},
	}

	ctx.owner.AddChild(class)

	body := tsNode.ChildByFieldName(b.spec.bodyField)
	if body.IsNull() {
		body = tsNode
	}

	b.walkChildren(body, &walkCtx{
		owner: class,
		anon:  make(map[node.Kind]int),
	})
}

// addImport records a dependency on the module and, at top level, an Import
// child node so dependency changes have a matchable subject.
func (b *builder) addImport(tsNode sitter.Node, ctx *walkCtx) {
	target := b.spec.importTarget(tsNode, b.src)
	if target == "" {
		return
	}

	b.module.Imports = append(b.module.Imports, target)

	if ctx.owner == b.module {
		b.module.AddChild(&node.Node{
			Kind: node.KindImport,
			Name: target,
			Path: b.module.ChildPath(target),
			Span: spanOf(tsNode),
		})
	}
}

func (b *builder) parseSignature(tsNode sitter.Node) []node.Param {
	params := tsNode.ChildByFieldName(b.spec.paramsField)
	if params.IsNull() {
		// Arrow functions with a bare identifier carry it on a singular field.
		single := tsNode.ChildByFieldName("parameter")
		if single.IsNull() {
			return nil
		}

		param, ok := b.spec.classifyParam(single, b.src)
		if !ok {
			return nil
		}

		return []node.Param{param}
	}

	count := params.NamedChildCount()
	signature := make([]node.Param, 0, count)

	for idx := uint32(0); idx < count; idx++ {
		param, ok := b.spec.classifyParam(params.NamedChild(idx), b.src)
		if ok {
			signature = append(signature, param)
		}
	}

	return signature
}
