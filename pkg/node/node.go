// Package node defines the language-agnostic tree representation produced by
// the normalizer and consumed read-only by the matcher and classifiers.
package node

import (
	"strconv"
	"strings"
)

// Kind identifies the syntactic category of a node.
type Kind int

// Node kind constants.
const (
	KindModule Kind = iota
	KindClass
	KindFunction
	KindMethod
	KindLambda
	KindImport
)

// kindNames maps kinds to their wire names.
var kindNames = map[Kind]string{
	KindModule:   "module",
	KindClass:    "class",
	KindFunction: "function",
	KindMethod:   "method",
	KindLambda:   "lambda",
	KindImport:   "import",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return "unknown"
}

// PathSeparator joins scope names inside a qualified path.
const PathSeparator = "."

// Span locates a node within its source file (1-based lines, inclusive).
type Span struct {
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`
}

// Param describes one positional parameter in a signature.
type Param struct {
	Name          string `json:"name"`
	HasDefault    bool   `json:"has_default"`
	HasAnnotation bool   `json:"has_annotation"`
}

// Node is one parsed syntactic unit. The normalizer owns construction; after
// Parse returns, the tree is immutable and shared read-only.
type Node struct {
	Kind       Kind       `json:"kind"`
	Name       string     `json:"name"`
	Path       string     `json:"path"`
	Signature  []Param    `json:"signature,omitempty"`
	Decorators []string   `json:"decorators,omitempty"`
	Bases      []string   `json:"bases,omitempty"`
	Imports    []string   `json:"imports,omitempty"`
	Async      bool       `json:"async,omitempty"`
	Span       Span       `json:"span"`
	Shape      *BodyShape `json:"shape,omitempty"`
	Children   []*Node    `json:"children,omitempty"`
}

// Key is the identity key used by the matcher: kind plus qualified path.
// Two nodes from different revisions are candidate matches only when their
// kinds agree; path equality is the primary match signal.
type Key struct {
	Kind Kind
	Path string
}

// Key returns the node's identity key.
func (n *Node) Key() Key {
	return Key{Kind: n.Kind, Path: n.Path}
}

// Depth returns the nesting depth of the node's qualified path. The module
// root has depth zero.
func (n *Node) Depth() int {
	if n.Path == "" {
		return 0
	}

	return strings.Count(n.Path, PathSeparator)
}

// ParentPath returns the qualified path of the enclosing scope, or "" for
// top-level nodes.
func (n *Node) ParentPath() string {
	idx := strings.LastIndex(n.Path, PathSeparator)
	if idx < 0 {
		return ""
	}

	return n.Path[:idx]
}

// ChildPath derives the qualified path for a named child of n.
func (n *Node) ChildPath(name string) string {
	if n.Path == "" {
		return name
	}

	return n.Path + PathSeparator + name
}

// AnonymousName builds the positional name for an anonymous construct so two
// anonymous siblings never collide (ordinal index within the parent).
func AnonymousName(kind Kind, ordinal int) string {
	return kind.String() + "#" + strconv.Itoa(ordinal)
}

// AddChild appends a child node.
func (n *Node) AddChild(child *Node) {
	n.Children = append(n.Children, child)
}

// Walk visits the node and all descendants in pre-order.
func (n *Node) Walk(fn func(*Node)) {
	if n == nil {
		return
	}

	stack := []*Node{n}

	for len(stack) > 0 {
		curr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		fn(curr)

		for idx := len(curr.Children) - 1; idx >= 0; idx-- {
			stack = append(stack, curr.Children[idx])
		}
	}
}

// Descendants returns every node below n (excluding n itself) in pre-order.
func (n *Node) Descendants() []*Node {
	var result []*Node

	n.Walk(func(curr *Node) {
		if curr != n {
			result = append(result, curr)
		}
	})

	return result
}

// Index maps every descendant (including n) by identity key. Later duplicates
// are dropped so the mapping is deterministic for any tree.
func (n *Node) Index() map[Key]*Node {
	index := make(map[Key]*Node)

	n.Walk(func(curr *Node) {
		key := curr.Key()
		if _, exists := index[key]; !exists {
			index[key] = curr
		}
	})

	return index
}

// ParamNames returns the ordered parameter names of the signature.
func (n *Node) ParamNames() []string {
	names := make([]string, len(n.Signature))
	for idx, param := range n.Signature {
		names[idx] = param.Name
	}

	return names
}

// DefaultCount returns the number of parameters carrying a default value.
func (n *Node) DefaultCount() int {
	count := 0

	for _, param := range n.Signature {
		if param.HasDefault {
			count++
		}
	}

	return count
}

// IsCallable reports whether the node is a function-like unit with a body.
func (n *Node) IsCallable() bool {
	switch n.Kind {
	case KindFunction, KindMethod, KindLambda:
		return true
	case KindModule, KindClass, KindImport:
		return false
	default:
		return false
	}
}
