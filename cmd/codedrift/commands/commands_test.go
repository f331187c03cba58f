package commands

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/codedrift/internal/storage"
	"github.com/Sumatoshi-tech/codedrift/pkg/event"
)

func sampleResults() []storage.Result {
	return []storage.Result{
		{
			Commit: event.Meta{
				Hash:      "abcdef0123456789",
				Author:    "Ada <ada@example.com>",
				Timestamp: time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC),
			},
			Event: event.Event{
				Kind:    event.KindSignatureChanged,
				NodeID:  "pkg/api.py::handler",
				File:    "pkg/api.py",
				Details: "arity 2 -> 3",
				Layer:   event.LayerSyntactic,
			},
		},
	}
}

func TestBuildFilter(t *testing.T) {
	t.Parallel()

	filter, err := buildFilter(queryFlags{
		kinds:         []string{"signature_changed"},
		location:      "api",
		author:        "ada",
		since:         "2024-01-01",
		until:         "2024-06-01T00:00:00Z",
		minConfidence: 0.5,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"signature_changed"}, filter.Kinds)
	assert.Equal(t, "api", filter.Location)
	assert.Equal(t, "ada", filter.Author)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), filter.Since)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), filter.Until)
	assert.InEpsilon(t, 0.5, filter.MinConfidence, 1e-9)
}

func TestBuildFilterRejectsBadTime(t *testing.T) {
	t.Parallel()

	_, err := buildFilter(queryFlags{since: "yesterday"})
	require.ErrorIs(t, err, ErrInvalidQueryTime)
}

func TestWriteResultsJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, writeResults(&buf, sampleResults(), formatJSON))

	var decoded []storage.Result

	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "abcdef0123456789", decoded[0].Commit.Hash)
}

func TestWriteResultsTable(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, writeResults(&buf, sampleResults(), formatTable))

	output := buf.String()
	assert.Contains(t, output, "abcdef01")
	assert.Contains(t, output, "signature_changed")
	assert.Contains(t, output, "pkg/api.py::handler")
}

func TestWriteResultsUnknownFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	err := writeResults(&buf, sampleResults(), "csv")
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func TestEventCountLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1 event", eventCountLabel(1))
	assert.Equal(t, "4 events", eventCountLabel(4))
}

func TestBuildTimelineChart(t *testing.T) {
	t.Parallel()

	points := []timelinePoint{
		{label: "c1", counts: map[event.Layer]int{event.LayerStructural: 2}},
		{label: "c2", counts: map[event.Layer]int{event.LayerSemantic: 1}},
	}

	bar := buildTimelineChart(points)
	require.NotNil(t, bar)
	assert.Len(t, bar.MultiSeries, len(timelineLayers))
}
