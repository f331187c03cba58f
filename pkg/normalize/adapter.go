package normalize

import (
	"context"
	"fmt"
	"sync"

	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/Sumatoshi-tech/codedrift/pkg/node"
)

// errorNodeType is tree-sitter's synthetic node type for unparseable regions.
const errorNodeType = "ERROR"

// adapter is the shared tree-sitter based LanguageNormalizer. All
// language-specific knowledge lives in the langSpec table.
type adapter struct {
	spec *langSpec
	pool sync.Pool
}

func newAdapter(spec *langSpec) *adapter {
	return &adapter{
		spec: spec,
		pool: sync.Pool{
			New: func() any {
				tsParser := sitter.NewParser()
				tsParser.SetLanguage(spec.sitterLang)

				return tsParser
			},
		},
	}
}

// Language returns the adapter's language name.
func (a *adapter) Language() Language {
	return a.spec.language
}

// Extensions returns the file extensions the adapter handles.
func (a *adapter) Extensions() []string {
	return a.spec.extensions
}

// Parse parses source text into an immutable node tree. A grammar-level
// error anywhere in the tree is a ParseError: the caller skips the deeper
// layers for this file but continues with its siblings.
func (a *adapter) Parse(ctx context.Context, text []byte, path string) (*node.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	tsParser, ok := a.pool.Get().(*sitter.Parser)
	if !ok {
		tsParser = sitter.NewParser()
		tsParser.SetLanguage(a.spec.sitterLang)
	}
	defer a.pool.Put(tsParser)

	tree, err := tsParser.ParseString(ctx, nil, text)
	if err != nil {
		return nil, &ParseError{Path: path, Line: 1, Msg: err.Error()}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.IsNull() {
		return nil, &ParseError{Path: path, Line: 1, Msg: "no root node"}
	}

	if errNode, msg, found := findErrorNode(root); found {
		return nil, &ParseError{
			Path: path,
			Line: int(errNode.StartPoint().Row) + 1,
			Msg:  msg,
		}
	}

	bld := &builder{spec: a.spec, src: text, path: path}

	return bld.build(root), nil
}

// findErrorNode locates the first ERROR or MISSING node in document order.
// MISSING tokens are zero-width repairs the parser inserted to keep going; a
// tree containing one does not describe the source as written. The walk
// covers anonymous children because missing punctuation is unnamed.
func findErrorNode(root sitter.Node) (sitter.Node, string, bool) {
	stack := []sitter.Node{root}

	for len(stack) > 0 {
		curr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if curr.Type() == errorNodeType {
			return curr, "syntax error", true
		}

		if curr.IsMissing() {
			return curr, fmt.Sprintf("missing %s", curr.Type()), true
		}

		for idx := curr.ChildCount(); idx > 0; idx-- {
			stack = append(stack, curr.Child(idx-1))
		}
	}

	return sitter.Node{}, "", false
}
