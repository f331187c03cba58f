// Package match aligns two node trees of the same file. Exact identity keys
// pair first; leftovers of equal kind fall back to similarity scoring so
// renames and moves are not reported as delete plus add.
package match

import (
	"sort"

	"github.com/Sumatoshi-tech/codedrift/pkg/node"
)

// Pair is one matched (before, after) node pair. Renamed and Moved record how
// the pair was recovered when identity keys differed; Score is zero for
// exact-key pairs.
type Pair struct {
	Before  *node.Node
	After   *node.Node
	Renamed bool
	Moved   bool
	Score   float64
}

// Result is the alignment of one file's two revisions. It is created fresh
// per file per commit, consumed once by the classifiers, then discarded.
type Result struct {
	Pairs   []Pair
	Added   []*node.Node
	Removed []*node.Node
}

// Matcher aligns node trees under a fixed similarity policy. Matching is a
// pure function of the two trees: identical inputs always yield an identical
// Result, which per-file parallel execution relies on.
type Matcher struct {
	cfg Config
}

// New creates a matcher with the given similarity policy.
func New(cfg Config) *Matcher {
	return &Matcher{cfg: cfg}
}

// Match aligns the descendants of two module roots. The roots themselves
// always pair (same file), so import diffs have a subject even when every
// inner node changed.
func (m *Matcher) Match(before, after *node.Node) *Result {
	result := &Result{}
	result.Pairs = append(result.Pairs, Pair{Before: before, After: after})

	beforeNodes := before.Descendants()
	afterNodes := after.Descendants()

	matchedBefore := make(map[*node.Node]bool, len(beforeNodes))
	matchedAfter := make(map[*node.Node]bool, len(afterNodes))

	m.matchExact(beforeNodes, afterNodes, matchedBefore, matchedAfter, result)
	m.matchSimilar(beforeNodes, afterNodes, matchedBefore, matchedAfter, result)

	for _, n := range beforeNodes {
		if !matchedBefore[n] {
			result.Removed = append(result.Removed, n)
		}
	}

	for _, n := range afterNodes {
		if !matchedAfter[n] {
			result.Added = append(result.Added, n)
		}
	}

	sortNodes(result.Removed)
	sortNodes(result.Added)

	return result
}

// matchExact pairs nodes whose (kind, qualified path) keys are equal. This is
// the common case of unchanged structural position.
func (m *Matcher) matchExact(
	beforeNodes, afterNodes []*node.Node,
	matchedBefore, matchedAfter map[*node.Node]bool,
	result *Result,
) {
	afterByKey := make(map[node.Key]*node.Node, len(afterNodes))

	for _, n := range afterNodes {
		key := n.Key()
		if _, exists := afterByKey[key]; !exists {
			afterByKey[key] = n
		}
	}

	for _, beforeNode := range beforeNodes {
		afterNode, ok := afterByKey[beforeNode.Key()]
		if !ok || matchedAfter[afterNode] {
			continue
		}

		matchedBefore[beforeNode] = true
		matchedAfter[afterNode] = true

		result.Pairs = append(result.Pairs, Pair{Before: beforeNode, After: afterNode})
	}
}

// candidate is one scored cross-revision pairing under consideration.
type candidate struct {
	before *node.Node
	after  *node.Node
	score  float64
}

// matchSimilar recovers renames and moves among leftover nodes of equal kind
// via greedy stable matching, highest score first. Ties break by shallowest
// combined depth, then lexicographic paths, so the outcome never depends on
// map iteration order.
func (m *Matcher) matchSimilar(
	beforeNodes, afterNodes []*node.Node,
	matchedBefore, matchedAfter map[*node.Node]bool,
	result *Result,
) {
	candidates := m.collectCandidates(beforeNodes, afterNodes, matchedBefore, matchedAfter)

	sort.SliceStable(candidates, func(i, j int) bool {
		return lessCandidate(candidates[i], candidates[j])
	})

	for _, cand := range candidates {
		if matchedBefore[cand.before] || matchedAfter[cand.after] {
			continue
		}

		matchedBefore[cand.before] = true
		matchedAfter[cand.after] = true

		result.Pairs = append(result.Pairs, Pair{
			Before:  cand.before,
			After:   cand.after,
			Renamed: cand.before.Name != cand.after.Name,
			Moved:   cand.before.ParentPath() != cand.after.ParentPath(),
			Score:   cand.score,
		})
	}
}

func (m *Matcher) collectCandidates(
	beforeNodes, afterNodes []*node.Node,
	matchedBefore, matchedAfter map[*node.Node]bool,
) []candidate {
	var candidates []candidate

	for _, beforeNode := range beforeNodes {
		if matchedBefore[beforeNode] {
			continue
		}

		for _, afterNode := range afterNodes {
			if matchedAfter[afterNode] || afterNode.Kind != beforeNode.Kind {
				continue
			}

			score := m.cfg.score(beforeNode, afterNode)
			if score >= m.cfg.Threshold {
				candidates = append(candidates, candidate{
					before: beforeNode,
					after:  afterNode,
					score:  score,
				})
			}
		}
	}

	return candidates
}

func lessCandidate(a, b candidate) bool {
	if a.score != b.score {
		return a.score > b.score
	}

	depthA := a.before.Depth() + a.after.Depth()
	depthB := b.before.Depth() + b.after.Depth()

	if depthA != depthB {
		return depthA < depthB
	}

	if a.before.Path != b.before.Path {
		return a.before.Path < b.before.Path
	}

	return a.after.Path < b.after.Path
}

func sortNodes(nodes []*node.Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].Path != nodes[j].Path {
			return nodes[i].Path < nodes[j].Path
		}

		return nodes[i].Kind < nodes[j].Kind
	})
}
