package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/checkstat/internal/api"
	"github.com/Sumatoshi-tech/checkstat/internal/render"
)

// Tool name constants.
const (
	ToolNameStatistics = "checkpoint_statistics"
	ToolNameListJobs   = "list_jobs"
	ToolNameSchema     = "checkpoint_schema"
)

// Sentinel errors for tool input validation.
var (
	// ErrEmptyJobID indicates the job_id parameter is empty.
	ErrEmptyJobID = errors.New("job_id parameter is required and must not be empty")
	// ErrNoSource indicates the server was built without a statistics source.
	ErrNoSource = errors.New("no statistics source configured")
)

// StatisticsInput is the input schema for the checkpoint_statistics tool.
type StatisticsInput struct {
	JobID  string `json:"job_id"           jsonschema:"id of the job to inspect"`
	Format string `json:"format,omitempty" jsonschema:"output format: json (default), table or yaml"`
}

// ListJobsInput is the input schema for the list_jobs tool.
type ListJobsInput struct{}

// SchemaInput is the input schema for the checkpoint_schema tool.
type SchemaInput struct{}

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

func (s *Server) handleStatistics(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input StatisticsInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	jobID := strings.TrimSpace(input.JobID)
	if jobID == "" {
		return errorResult(ErrEmptyJobID)
	}

	format := render.FormatJSON

	if input.Format != "" {
		parsed, err := render.ParseFormat(input.Format)
		if err != nil {
			return errorResult(err)
		}

		format = parsed
	}

	if s.source == nil {
		return errorResult(ErrNoSource)
	}

	doc, err := s.source.Statistics(ctx, jobID)
	if err != nil {
		return errorResult(fmt.Errorf("job %s: %w", jobID, err))
	}

	if format == render.FormatJSON {
		return jsonResult(doc)
	}

	var buf bytes.Buffer

	err = render.Write(&buf, doc, format, render.Options{JobID: jobID})
	if err != nil {
		return errorResult(err)
	}

	return textResult(buf.String(), doc)
}

func (s *Server) handleListJobs(
	ctx context.Context, _ *mcpsdk.CallToolRequest, _ ListJobsInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if s.source == nil {
		return errorResult(ErrNoSource)
	}

	jobs, err := s.source.Jobs(ctx)
	if err != nil {
		return errorResult(fmt.Errorf("list jobs: %w", err))
	}

	return jsonResult(api.JobsBody{Jobs: jobs})
}

func handleSchema(
	_ context.Context, _ *mcpsdk.CallToolRequest, _ SchemaInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return textResult(string(api.Schema()), json.RawMessage(api.Schema()))
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

	return textResult(string(data), value)
}

func textResult(text string, value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: text},
		},
	}, ToolOutput{Data: value}, nil
}
