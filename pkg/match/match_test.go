package match_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/codedrift/pkg/match"
	"github.com/Sumatoshi-tech/codedrift/pkg/node"
)

func moduleWith(children ...*node.Node) *node.Node {
	module := &node.Node{Kind: node.KindModule, Name: "app", Path: ""}
	for _, child := range children {
		module.AddChild(child)
	}

	return module
}

func fn(name string, shape *node.BodyShape, params ...node.Param) *node.Node {
	return &node.Node{
		Kind:      node.KindFunction,
		Name:      name,
		Path:      name,
		Signature: params,
		Shape:     shape,
	}
}

func filterShape() *node.BodyShape {
	return &node.BodyShape{
		Branches: 1,
		Loops:    1,
		Calls:    []string{"append"},
		Returns:  1,
	}
}

func TestMatch_ExactPathsPair(t *testing.T) {
	t.Parallel()

	before := moduleWith(fn("process", filterShape(), node.Param{Name: "items"}))
	after := moduleWith(fn("process", filterShape(), node.Param{Name: "items"}))

	result := match.New(match.DefaultConfig()).Match(before, after)

	// Module root pair plus the function pair.
	require.Len(t, result.Pairs, 2)
	assert.Empty(t, result.Added)
	assert.Empty(t, result.Removed)

	pair := result.Pairs[1]
	assert.False(t, pair.Renamed)
	assert.False(t, pair.Moved)
	assert.Zero(t, pair.Score)
}

func TestMatch_RenameRecoveredNotAddedRemoved(t *testing.T) {
	t.Parallel()

	before := moduleWith(fn("process_items", filterShape(), node.Param{Name: "items"}))
	after := moduleWith(fn("process_entries", filterShape(), node.Param{Name: "items"}))

	result := match.New(match.DefaultConfig()).Match(before, after)

	require.Len(t, result.Pairs, 2)
	assert.Empty(t, result.Added)
	assert.Empty(t, result.Removed)

	pair := result.Pairs[1]
	assert.True(t, pair.Renamed)
	assert.False(t, pair.Moved)
	assert.GreaterOrEqual(t, pair.Score, match.DefaultThreshold)
}

func TestMatch_DissimilarNodesBecomeAddedRemoved(t *testing.T) {
	t.Parallel()

	before := moduleWith(fn("load_config", &node.BodyShape{
		Calls:   []string{"open", "read"},
		Returns: 1,
	}))
	after := moduleWith(fn("render_chart", &node.BodyShape{
		Branches: 4,
		Loops:    3,
		Calls:    []string{"plot", "axis", "legend"},
	}, node.Param{Name: "series"}, node.Param{Name: "axes"}))

	result := match.New(match.DefaultConfig()).Match(before, after)

	require.Len(t, result.Pairs, 1) // module roots only
	require.Len(t, result.Removed, 1)
	require.Len(t, result.Added, 1)
	assert.Equal(t, "load_config", result.Removed[0].Name)
	assert.Equal(t, "render_chart", result.Added[0].Name)
}

func TestMatch_MoveAcrossClassDetected(t *testing.T) {
	t.Parallel()

	method := func(class, name string) *node.Node {
		return &node.Node{
			Kind:      node.KindMethod,
			Name:      name,
			Path:      class + "." + name,
			Signature: []node.Param{{Name: "self"}},
			Shape:     filterShape(),
		}
	}

	beforeClass := &node.Node{Kind: node.KindClass, Name: "Reader", Path: "Reader"}
	beforeClass.AddChild(method("Reader", "parse"))

	afterClass := &node.Node{Kind: node.KindClass, Name: "Loader", Path: "Loader"}
	afterClass.AddChild(method("Loader", "parse"))

	result := match.New(match.DefaultConfig()).Match(moduleWith(beforeClass), moduleWith(afterClass))

	var methodPair *match.Pair

	for idx := range result.Pairs {
		if result.Pairs[idx].Before != nil && result.Pairs[idx].Before.Kind == node.KindMethod {
			methodPair = &result.Pairs[idx]
		}
	}

	require.NotNil(t, methodPair)
	assert.True(t, methodPair.Moved)
	assert.False(t, methodPair.Renamed)
}

func TestMatch_Deterministic(t *testing.T) {
	t.Parallel()

	build := func() (*node.Node, *node.Node) {
		before := moduleWith(
			fn("alpha", filterShape(), node.Param{Name: "x"}),
			fn("beta", filterShape(), node.Param{Name: "x"}),
		)
		after := moduleWith(
			fn("alpha_renamed", filterShape(), node.Param{Name: "x"}),
			fn("beta_renamed", filterShape(), node.Param{Name: "x"}),
		)

		return before, after
	}

	matcher := match.New(match.DefaultConfig())

	beforeA, afterA := build()
	first := matcher.Match(beforeA, afterA)

	beforeB, afterB := build()
	second := matcher.Match(beforeB, afterB)

	require.Len(t, first.Pairs, len(second.Pairs))

	for idx := range first.Pairs {
		assert.Equal(t, first.Pairs[idx].Before.Path, second.Pairs[idx].Before.Path)
		assert.Equal(t, first.Pairs[idx].After.Path, second.Pairs[idx].After.Path)
		assert.InDelta(t, first.Pairs[idx].Score, second.Pairs[idx].Score, 1e-12)
	}
}

func TestMatch_BestMutualScoreWins(t *testing.T) {
	t.Parallel()

	// One removed function and one renamed function compete for the same
	// after-side candidate; the closer name must win.
	before := moduleWith(
		fn("fetch_user", filterShape(), node.Param{Name: "uid"}),
		fn("fetch_users", filterShape(), node.Param{Name: "uid"}),
	)
	after := moduleWith(
		fn("fetch_users_list", filterShape(), node.Param{Name: "uid"}),
	)

	result := match.New(match.DefaultConfig()).Match(before, after)

	require.Len(t, result.Pairs, 2)
	assert.Equal(t, "fetch_users", result.Pairs[1].Before.Name)
	require.Len(t, result.Removed, 1)
	assert.Equal(t, "fetch_user", result.Removed[0].Name)
	assert.Empty(t, result.Added)
}

func TestConfig_ScoreThresholdRejectsKindMismatch(t *testing.T) {
	t.Parallel()

	before := moduleWith(&node.Node{Kind: node.KindClass, Name: "Worker", Path: "Worker"})
	after := moduleWith(fn("Worker", nil))

	result := match.New(match.DefaultConfig()).Match(before, after)

	require.Len(t, result.Pairs, 1)
	assert.Len(t, result.Removed, 1)
	assert.Len(t, result.Added, 1)
}
