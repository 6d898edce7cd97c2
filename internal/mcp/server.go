// Package mcp implements a Model Context Protocol server exposing checkpoint
// statistics of a running service as MCP tools over stdio transport.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/checkstat/internal/api"
	"github.com/Sumatoshi-tech/checkstat/pkg/observability"
	"github.com/Sumatoshi-tech/checkstat/pkg/version"
)

const (
	serverName = "checkstat"

	toolCount = 3
)

// StatisticsSource fetches statistics documents, usually over HTTP from a
// running checkstat server.
type StatisticsSource interface {
	Statistics(ctx context.Context, jobID string) (api.Statistics, error)
	Jobs(ctx context.Context) ([]api.JobEntry, error)
}

// ServerDeps holds injectable dependencies for the MCP server.
// Zero-value fields use production defaults.
type ServerDeps struct {
	// Source answers the tool calls. Required.
	Source StatisticsSource

	// Logger is an optional structured logger. Nil uses slog default.
	Logger *slog.Logger

	// Metrics is an optional RED metrics recorder. Nil disables per-tool metrics.
	Metrics *observability.REDMetrics

	// Tracer is an optional OTel tracer for per-tool-call spans. Nil disables tracing.
	Tracer trace.Tracer
}

// Server wraps the MCP SDK server with the checkpoint tools registered.
type Server struct {
	inner   *mcpsdk.Server
	source  StatisticsSource
	metrics *observability.REDMetrics
	tracer  trace.Tracer
	mu      sync.RWMutex
	tools   []string
}

// NewServer creates a new MCP server with all tools registered.
func NewServer(deps ServerDeps) *Server {
	opts := &mcpsdk.ServerOptions{}
	if deps.Logger != nil {
		opts.Logger = deps.Logger
	}

	inner := mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    serverName,
			Version: version.Version,
		},
		opts,
	)

	srv := &Server{
		inner:   inner,
		source:  deps.Source,
		tools:   make([]string, 0, toolCount),
		metrics: deps.Metrics,
		tracer:  deps.Tracer,
	}

	srv.registerTools()

	return srv
}

// ListToolNames returns the sorted names of all registered tools.
func (s *Server) ListToolNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.tools))
	copy(names, s.tools)
	sort.Strings(names)

	return names
}

// Run starts the MCP server on stdio transport. It blocks until the context
// is canceled or the connection closes.
func (s *Server) Run(ctx context.Context) error {
	return s.RunWithTransport(ctx, &mcpsdk.StdioTransport{})
}

// RunWithTransport starts the MCP server on the given transport. It blocks
// until the context is canceled or the connection closes.
func (s *Server) RunWithTransport(ctx context.Context, transport mcpsdk.Transport) error {
	err := s.inner.Run(ctx, transport)
	if err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

func (s *Server) registerTools() {
	addTool[StatisticsInput](s, ToolNameStatistics, statisticsToolDescription, s.handleStatistics)
	addTool[ListJobsInput](s, ToolNameListJobs, listJobsToolDescription, s.handleListJobs)
	addTool[SchemaInput](s, ToolNameSchema, schemaToolDescription, handleSchema)
}

func addTool[Input any](s *Server, name, description string, handler mcpsdk.ToolHandlerFor[Input, ToolOutput]) {
	wrapped := withMetrics(s.metrics, name, withTracing(s.tracer, name, handler))

	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        name,
		Description: description,
	}, wrapped)

	s.trackTool(name)
}

// mcpSpanPrefix is the prefix for MCP tool span names.
const mcpSpanPrefix = "mcp."

// traceIDMetaKey is the metadata key for trace_id in MCP tool responses.
const traceIDMetaKey = "trace_id"

// withTracing wraps an MCP tool handler to create an OTel span per invocation
// and include trace_id in the response content when sampled.
func withTracing[Input any](tracer trace.Tracer, toolName string, handler mcpsdk.ToolHandlerFor[Input, ToolOutput]) mcpsdk.ToolHandlerFor[Input, ToolOutput] {
	if tracer == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		ctx, span := tracer.Start(ctx, mcpSpanPrefix+toolName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("mcp.tool", toolName)),
		)
		defer span.End()

		result, output, err := handler(ctx, req, input)

		sc := span.SpanContext()
		if sc.IsSampled() && result != nil {
			traceContent := &mcpsdk.TextContent{Text: fmt.Sprintf("%s=%s", traceIDMetaKey, sc.TraceID().String())}
			result.Content = append(result.Content, traceContent)
		}

		return result, output, err
	}
}

// withMetrics wraps an MCP tool handler to record RED metrics per invocation.
func withMetrics[Input any](metrics *observability.REDMetrics, toolName string, handler mcpsdk.ToolHandlerFor[Input, ToolOutput]) mcpsdk.ToolHandlerFor[Input, ToolOutput] {
	if metrics == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		finish := metrics.Begin(ctx, mcpSpanPrefix+toolName)

		result, output, err := handler(ctx, req, input)

		status := observability.StatusOK
		if err != nil || (result != nil && result.IsError) {
			status = observability.StatusError
		}

		finish(status)

		return result, output, err
	}
}

func (s *Server) trackTool(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools = append(s.tools, name)
}

// Tool description constants.
const (
	statisticsToolDescription = "Fetch checkpoint statistics of a streaming job: counts, " +
		"min/max/avg summary, latest completed, savepoint, failed and restored checkpoints, " +
		"and the recent checkpoint history. Accepts a job id and an optional format."

	listJobsToolDescription = "List the jobs known to the checkstat server and whether " +
		"checkpointing is enabled for each."

	schemaToolDescription = "Return the JSON schema of the checkpoint statistics document."
)
