package event_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/codedrift/pkg/event"
)

func testMeta() event.Meta {
	return event.Meta{
		Hash:      "abc123",
		Author:    "dev@example.com",
		Timestamp: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestKind_WireNamesRoundTrip(t *testing.T) {
	t.Parallel()

	cases := []event.Kind{
		event.KindFileAdded,
		event.KindDecoratorAdded,
		event.KindFunctionMadeGenerator,
		event.KindExceptionHandlingAdded,
		event.KindFunctionComplexityChanged,
		event.KindAdvisory,
	}

	for _, kind := range cases {
		parsed, ok := event.ParseKind(kind.String())
		require.True(t, ok, kind.String())
		assert.Equal(t, kind, parsed)
	}

	_, ok := event.ParseKind("no_such_event")
	assert.False(t, ok)
}

func TestLayer_Ordering(t *testing.T) {
	t.Parallel()

	assert.Less(t, event.LayerStructural, event.LayerSyntactic)
	assert.Less(t, event.LayerSyntactic, event.LayerSemantic)
	assert.Less(t, event.LayerSemantic, event.LayerBehavioral)
	assert.Less(t, event.LayerBehavioral, event.LayerAdvisory)
}

func TestBatch_FinalizeOrdersDeterministically(t *testing.T) {
	t.Parallel()

	first := event.NewBatch(testMeta())
	first.Append(
		event.Event{Kind: event.KindFunctionComplexityChanged, File: "b.py", NodeID: "f", Layer: event.LayerBehavioral},
		event.Event{Kind: event.KindFileAdded, File: "a.py", Layer: event.LayerStructural},
		event.Event{Kind: event.KindDecoratorAdded, File: "a.py", NodeID: "g", Layer: event.LayerSyntactic},
	)
	first.Finalize()

	second := event.NewBatch(testMeta())
	second.Append(
		event.Event{Kind: event.KindDecoratorAdded, File: "a.py", NodeID: "g", Layer: event.LayerSyntactic},
		event.Event{Kind: event.KindFileAdded, File: "a.py", Layer: event.LayerStructural},
		event.Event{Kind: event.KindFunctionComplexityChanged, File: "b.py", NodeID: "f", Layer: event.LayerBehavioral},
	)
	second.Finalize()

	assert.Equal(t, first.Events, second.Events)

	require.Len(t, first.Events, 3)
	assert.Equal(t, event.KindFileAdded, first.Events[0].Kind)
	assert.Equal(t, event.KindDecoratorAdded, first.Events[1].Kind)
	assert.Equal(t, event.KindFunctionComplexityChanged, first.Events[2].Kind)
}

func TestBatch_DedupDropsExactRepeats(t *testing.T) {
	t.Parallel()

	batch := event.NewBatch(testMeta())
	evt := event.Event{
		Kind:   event.KindDecoratorAdded,
		File:   "a.py",
		NodeID: "handler",
		Layer:  event.LayerSyntactic,
	}
	batch.Append(evt, evt, evt)

	other := evt
	other.NodeID = "other"
	batch.Append(other)

	batch.Finalize()

	assert.Len(t, batch.Events, 2)
}

func TestBatch_DedupKeepsDistinctAdvisoryLabels(t *testing.T) {
	t.Parallel()

	confidence := 0.8

	batch := event.NewBatch(testMeta())
	batch.Append(
		event.Event{Kind: event.KindAdvisory, Advisory: "api_break_risk", File: "a.py", Layer: event.LayerAdvisory, Confidence: &confidence},
		event.Event{Kind: event.KindAdvisory, Advisory: "style_shift", File: "a.py", Layer: event.LayerAdvisory, Confidence: &confidence},
	)
	batch.Finalize()

	assert.Len(t, batch.Events, 2)
}

func TestBatch_CountByLayer(t *testing.T) {
	t.Parallel()

	batch := event.NewBatch(testMeta())
	batch.Append(
		event.Event{Kind: event.KindFileAdded, File: "a.py", Layer: event.LayerStructural},
		event.Event{Kind: event.KindNodeAdded, File: "a.py", NodeID: "f", Layer: event.LayerStructural},
		event.Event{Kind: event.KindControlFlowChanged, File: "a.py", NodeID: "f", Layer: event.LayerSemantic},
	)

	counts := batch.CountByLayer()
	assert.Equal(t, 2, counts[event.LayerStructural])
	assert.Equal(t, 1, counts[event.LayerSemantic])
	assert.Zero(t, counts[event.LayerAdvisory])
}
