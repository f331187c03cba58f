package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/codedrift/internal/storage"
	"github.com/Sumatoshi-tech/codedrift/pkg/event"
	"github.com/Sumatoshi-tech/codedrift/pkg/node"
)

func openStore(t *testing.T) *storage.Store {
	t.Helper()

	store, err := storage.Open(storage.InMemoryConfig())
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})

	return store
}

func confidence(value float64) *float64 {
	return &value
}

func batchFor(hash, author string, when time.Time, events ...event.Event) *event.Batch {
	batch := event.NewBatch(event.Meta{
		Hash:      hash,
		Author:    author,
		Timestamp: when,
	})
	batch.Append(events...)
	batch.Finalize()

	return batch
}

func signatureEvent(file, nodeID string) event.Event {
	return event.Event{
		Kind:   event.KindSignatureChanged,
		NodeID: nodeID,
		File:   file,
		Span:   node.Span{StartLine: 3, EndLine: 9},
		Layer:  event.LayerSyntactic,
	}
}

func TestSaveAndLoadBatch(t *testing.T) {
	t.Parallel()

	store := openStore(t)
	ctx := context.Background()

	when := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	saved := batchFor("abc123", "Ada <ada@example.com>", when,
		signatureEvent("pkg/api.py", "pkg/api.py::handler"),
	)

	require.NoError(t, store.SaveBatch(ctx, saved))

	loaded, err := store.Batch(ctx, "abc123")
	require.NoError(t, err)

	assert.Equal(t, saved.Commit, loaded.Commit)
	assert.Equal(t, saved.Events, loaded.Events)
}

func TestBatchNotFound(t *testing.T) {
	t.Parallel()

	store := openStore(t)

	_, err := store.Batch(context.Background(), "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSaveBatchIdempotent(t *testing.T) {
	t.Parallel()

	store := openStore(t)
	ctx := context.Background()

	when := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	batch := batchFor("abc123", "Ada <ada@example.com>", when,
		signatureEvent("pkg/api.py", "pkg/api.py::handler"),
	)

	require.NoError(t, store.SaveBatch(ctx, batch))
	require.NoError(t, store.SaveBatch(ctx, batch))

	count := 0

	require.NoError(t, store.Scan(ctx, func(*event.Batch) error {
		count++

		return nil
	}))

	assert.Equal(t, 1, count)
}

func TestSaveBatchRejectsMissingHash(t *testing.T) {
	t.Parallel()

	store := openStore(t)

	batch := event.NewBatch(event.Meta{})

	require.Error(t, store.SaveBatch(context.Background(), batch))
}

func TestHas(t *testing.T) {
	t.Parallel()

	store := openStore(t)
	ctx := context.Background()

	when := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveBatch(ctx, batchFor("abc123", "Ada", when)))

	found, err := store.Has(ctx, "abc123")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = store.Has(ctx, "def456")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestScanPreservesInsertionOrder(t *testing.T) {
	t.Parallel()

	store := openStore(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	hashes := []string{"c1", "c2", "c3"}

	for i, hash := range hashes {
		batch := batchFor(hash, "Ada", base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, store.SaveBatch(ctx, batch))
	}

	var seen []string

	require.NoError(t, store.Scan(ctx, func(batch *event.Batch) error {
		seen = append(seen, batch.Commit.Hash)

		return nil
	}))

	assert.Equal(t, hashes, seen)
}

func seedQueryFixture(t *testing.T, store *storage.Store) {
	t.Helper()

	ctx := context.Background()
	base := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	first := batchFor("c1", "Ada <ada@example.com>", base,
		signatureEvent("pkg/api.py", "pkg/api.py::handler"),
		event.Event{
			Kind:   event.KindControlFlowChanged,
			NodeID: "pkg/api.py::handler",
			File:   "pkg/api.py",
			Layer:  event.LayerSemantic,
		},
	)

	second := batchFor("c2", "Grace <grace@example.com>", base.Add(24*time.Hour),
		signatureEvent("lib/util.js", "lib/util.js::format"),
		event.Event{
			Kind:       event.KindAdvisory,
			Advisory:   "api_contract_drift",
			File:       "lib/util.js",
			Layer:      event.LayerAdvisory,
			Confidence: confidence(0.4),
		},
	)

	require.NoError(t, store.SaveBatch(ctx, first))
	require.NoError(t, store.SaveBatch(ctx, second))
}

func TestQueryFilters(t *testing.T) {
	t.Parallel()

	store := openStore(t)
	seedQueryFixture(t, store)

	tests := []struct {
		name       string
		filter     storage.Filter
		wantHashes []string
		wantKinds  []event.Kind
	}{
		{
			name:       "by kind",
			filter:     storage.Filter{Kinds: []string{"signature_changed"}},
			wantHashes: []string{"c1", "c2"},
			wantKinds:  []event.Kind{event.KindSignatureChanged, event.KindSignatureChanged},
		},
		{
			name:       "by node id",
			filter:     storage.Filter{NodeID: "pkg/api.py::handler"},
			wantHashes: []string{"c1", "c1"},
			wantKinds:  []event.Kind{event.KindSignatureChanged, event.KindControlFlowChanged},
		},
		{
			name:       "by location substring",
			filter:     storage.Filter{Location: "util"},
			wantHashes: []string{"c2", "c2"},
			wantKinds:  []event.Kind{event.KindSignatureChanged, event.KindAdvisory},
		},
		{
			name:       "by author",
			filter:     storage.Filter{Author: "grace"},
			wantHashes: []string{"c2", "c2"},
			wantKinds:  []event.Kind{event.KindSignatureChanged, event.KindAdvisory},
		},
		{
			name: "by date range",
			filter: storage.Filter{
				Since: time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC),
			},
			wantHashes: []string{"c2", "c2"},
			wantKinds:  []event.Kind{event.KindSignatureChanged, event.KindAdvisory},
		},
		{
			name:       "min confidence drops weak advisory",
			filter:     storage.Filter{MinConfidence: 0.6},
			wantHashes: []string{"c1", "c1", "c2"},
			wantKinds: []event.Kind{
				event.KindSignatureChanged,
				event.KindControlFlowChanged,
				event.KindSignatureChanged,
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			results, err := store.Query(context.Background(), tc.filter)
			require.NoError(t, err)
			require.Len(t, results, len(tc.wantHashes))

			for i, result := range results {
				assert.Equal(t, tc.wantHashes[i], result.Commit.Hash)
				assert.Equal(t, tc.wantKinds[i], result.Event.Kind)
			}
		})
	}
}

func TestQueryRejectsUnknownKind(t *testing.T) {
	t.Parallel()

	store := openStore(t)

	_, err := store.Query(context.Background(), storage.Filter{Kinds: []string{"no_such_kind"}})
	require.Error(t, err)
}
