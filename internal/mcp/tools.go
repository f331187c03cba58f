package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/codedrift/internal/runner"
	"github.com/Sumatoshi-tech/codedrift/internal/storage"
)

// Tool name constants.
const (
	ToolNameQuery   = "codedrift_query"
	ToolNameAnalyze = "codedrift_analyze"
)

// maxQueryResults caps one query response to keep tool output bounded.
const maxQueryResults = 500

// Sentinel errors for tool input validation.
var (
	// ErrEmptyRepoPath indicates the repo_path parameter is empty.
	ErrEmptyRepoPath = errors.New("repo_path parameter is required and must not be empty")
	// ErrRepoPathNotAbsolute indicates the repo_path is not an absolute path.
	ErrRepoPathNotAbsolute = errors.New("repo_path must be an absolute path")
	// ErrRepoNotFound indicates the repository path does not exist.
	ErrRepoNotFound = errors.New("repository path does not exist")
	// ErrInvalidTime indicates a since/until value could not be parsed.
	ErrInvalidTime = errors.New("time must be RFC3339 or YYYY-MM-DD")
)

// QueryInput is the input schema for the codedrift_query tool.
type QueryInput struct {
	Kinds         []string `json:"kinds,omitempty"          jsonschema:"optional list of event kind names (e.g. signature_changed)"`
	NodeID        string   `json:"node_id,omitempty"        jsonschema:"exact node identity path to match"`
	Location      string   `json:"location,omitempty"       jsonschema:"substring matched against file paths"`
	Author        string   `json:"author,omitempty"         jsonschema:"substring matched against commit authors"`
	Since         string   `json:"since,omitempty"          jsonschema:"earliest commit time (RFC3339 or YYYY-MM-DD)"`
	Until         string   `json:"until,omitempty"          jsonschema:"latest commit time (RFC3339 or YYYY-MM-DD)"`
	MinConfidence float64  `json:"min_confidence,omitempty" jsonschema:"drop advisory events below this confidence (0 to 1)"`
	Limit         int      `json:"limit,omitempty"          jsonschema:"maximum number of results (default 500)"`
}

// AnalyzeInput is the input schema for the codedrift_analyze tool.
type AnalyzeInput struct {
	RepoPath string `json:"repo_path" jsonschema:"absolute path to a Git repository"`
}

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

// QueryOutput is the structured result of the query tool.
type QueryOutput struct {
	Results   []storage.Result `json:"results"`
	Truncated bool             `json:"truncated"`
}

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}

// parseTime accepts RFC3339 timestamps and bare dates.
func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}

	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return parsed, nil
	}

	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: got %q", ErrInvalidTime, raw)
	}

	return parsed, nil
}

func (s *Server) handleQuery(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input QueryInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	since, err := parseTime(input.Since)
	if err != nil {
		return errorResult(err)
	}

	until, err := parseTime(input.Until)
	if err != nil {
		return errorResult(err)
	}

	results, err := s.store.Query(ctx, storage.Filter{
		Kinds:         input.Kinds,
		NodeID:        input.NodeID,
		Location:      input.Location,
		Author:        input.Author,
		Since:         since,
		Until:         until,
		MinConfidence: input.MinConfidence,
	})
	if err != nil {
		return errorResult(err)
	}

	limit := input.Limit
	if limit <= 0 || limit > maxQueryResults {
		limit = maxQueryResults
	}

	truncated := len(results) > limit
	if truncated {
		results = results[:limit]
	}

	return jsonResult(QueryOutput{Results: results, Truncated: truncated})
}

func validateRepoPath(path string) error {
	if path == "" {
		return ErrEmptyRepoPath
	}

	if !filepath.IsAbs(path) {
		return fmt.Errorf("%w: got %q", ErrRepoPathNotAbsolute, path)
	}

	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %q", ErrRepoNotFound, path)
	}

	return nil
}

func (s *Server) handleAnalyze(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input AnalyzeInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if err := validateRepoPath(input.RepoPath); err != nil {
		return errorResult(err)
	}

	run := runner.New(s.engine, s.store, s.log)

	stats, err := run.Run(ctx, input.RepoPath)
	if err != nil {
		return errorResult(fmt.Errorf("analyze repository: %w", err))
	}

	return jsonResult(stats)
}
