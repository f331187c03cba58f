package mcp_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/codedrift/internal/mcp"
	"github.com/Sumatoshi-tech/codedrift/internal/storage"
	"github.com/Sumatoshi-tech/codedrift/pkg/event"
)

func testStore(t *testing.T) *storage.Store {
	t.Helper()

	store, err := storage.Open(storage.InMemoryConfig())
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})

	return store
}

func TestNewServerToolsRegistered(t *testing.T) {
	t.Parallel()

	srv := mcp.NewServer(mcp.ServerDeps{Store: testStore(t)})

	tools := srv.ListToolNames()
	assert.Equal(t, []string{"codedrift_analyze", "codedrift_query"}, tools)
}

func TestServerRunCancelledContext(t *testing.T) {
	t.Parallel()

	srv := mcp.NewServer(mcp.ServerDeps{Store: testStore(t)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := srv.Run(ctx)
	require.Error(t, err)
}

func connect(t *testing.T, ctx context.Context, srv *mcp.Server) *mcpsdk.ClientSession {
	t.Helper()

	clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()

	serverDone := make(chan error, 1)

	go func() {
		serverDone <- srv.RunWithTransport(ctx, serverTransport)
	}()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = session.Close()
		<-serverDone
	})

	return session
}

func TestToolsListOverInMemoryTransport(t *testing.T) {
	t.Parallel()

	srv := mcp.NewServer(mcp.ServerDeps{Store: testStore(t)})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	session := connect(t, ctx, srv)

	toolsResult, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	require.Len(t, toolsResult.Tools, 2)

	for _, tool := range toolsResult.Tools {
		assert.NotNil(t, tool.InputSchema, "tool %s missing input schema", tool.Name)
	}
}

func TestQueryToolReturnsStoredEvents(t *testing.T) {
	t.Parallel()

	store := testStore(t)

	batch := event.NewBatch(event.Meta{
		Hash:      "abc123",
		Author:    "Ada <ada@example.com>",
		Timestamp: time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC),
	})
	batch.Append(event.Event{
		Kind:   event.KindSignatureChanged,
		NodeID: "pkg/api.py::handler",
		File:   "pkg/api.py",
		Layer:  event.LayerSyntactic,
	})
	batch.Finalize()

	require.NoError(t, store.SaveBatch(context.Background(), batch))

	srv := mcp.NewServer(mcp.ServerDeps{Store: store})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	session := connect(t, ctx, srv)

	result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      mcp.ToolNameQuery,
		Arguments: map[string]any{"kinds": []string{"signature_changed"}},
	})
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.NotEmpty(t, result.Content)

	text, ok := result.Content[0].(*mcpsdk.TextContent)
	require.True(t, ok)

	var output struct {
		Results []storage.Result `json:"results"`
	}

	require.NoError(t, json.Unmarshal([]byte(text.Text), &output))
	require.Len(t, output.Results, 1)
	assert.Equal(t, "abc123", output.Results[0].Commit.Hash)
}

func TestQueryToolRejectsBadTime(t *testing.T) {
	t.Parallel()

	srv := mcp.NewServer(mcp.ServerDeps{Store: testStore(t)})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	session := connect(t, ctx, srv)

	result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      mcp.ToolNameQuery,
		Arguments: map[string]any{"since": "not-a-time"},
	})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestAnalyzeToolRejectsRelativePath(t *testing.T) {
	t.Parallel()

	srv := mcp.NewServer(mcp.ServerDeps{Store: testStore(t)})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	session := connect(t, ctx, srv)

	result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      mcp.ToolNameAnalyze,
		Arguments: map[string]any{"repo_path": "relative/repo"},
	})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}
