package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/faultlinestack/faultline/internal/engine"
	"github.com/faultlinestack/faultline/internal/mcp/tools"
)

// Tool is the interface every exposed analysis tool implements.
type Tool interface {
	Execute(ctx context.Context, input json.RawMessage) (interface{}, error)
}

// Server exposes the analysis engine over the Model Context Protocol.
type Server struct {
	mcpServer *server.MCPServer
	engine    *engine.Engine
	logger    *slog.Logger
	tools     map[string]Tool
	version   string
}

// NewServer builds the MCP server and registers every analysis tool.
func NewServer(e *engine.Engine, logger *slog.Logger, version string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	mcpServer := server.NewMCPServer(
		"Faultline Incident Analysis",
		version,
		server.WithToolCapabilities(false),
		server.WithLogging(),
	)

	s := &Server{
		mcpServer: mcpServer,
		engine:    e,
		logger:    logger,
		tools:     make(map[string]Tool),
		version:   version,
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	incidentIDSchema := func(description string) map[string]interface{} {
		return map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"incident_id": map[string]interface{}{
					"type":        "string",
					"description": description,
				},
			},
			"required": []string{"incident_id"},
		}
	}

	s.registerTool(
		"analyze_incident",
		"Run the full analysis pipeline for an incident: fault patterns, anomalies, correlated events, root cause, risk and recommendations",
		tools.NewAnalyzeIncidentTool(s.engine),
		incidentIDSchema("Incident id to analyze"),
	)
	s.registerTool(
		"detect_anomalies",
		"Detect statistically unusual points in an entity's metric series over a time range",
		tools.NewDetectAnomaliesTool(s.engine),
		map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"entity_id": map[string]interface{}{
					"type":        "string",
					"description": "Entity to examine",
				},
				"start_time": map[string]interface{}{
					"type":        "string",
					"description": "Range start (RFC3339)",
				},
				"end_time": map[string]interface{}{
					"type":        "string",
					"description": "Range end (RFC3339)",
				},
			},
			"required": []string{"entity_id", "start_time", "end_time"},
		},
	)
	s.registerTool(
		"find_similar_incidents",
		"Find historical incidents similar to the given one (same entity, last 90 days)",
		tools.NewFindSimilarIncidentsTool(s.engine),
		incidentIDSchema("Incident id to match against history"),
	)
	s.registerTool(
		"detect_fault_patterns",
		"Match known fault signatures against the incident's performance data",
		tools.NewDetectFaultPatternsTool(s.engine),
		incidentIDSchema("Incident id to match signatures against"),
	)
	s.registerTool(
		"find_correlated_events",
		"Score deployment and infrastructure events near the incident by causal relatedness",
		tools.NewFindCorrelatedEventsTool(s.engine),
		incidentIDSchema("Incident id to correlate against"),
	)
	s.registerTool(
		"assess_incident_risk",
		"Derive risk factors, escalation probability, business impact and a resolution estimate",
		tools.NewAssessRiskTool(s.engine),
		incidentIDSchema("Incident id to assess"),
	)
	s.registerTool(
		"analyze_cascade_failure",
		"Order affected systems into a failure chain with containment and recovery plans",
		tools.NewAnalyzeCascadeTool(s.engine),
		incidentIDSchema("Incident id to analyze for cascade failure"),
	)
	s.registerTool(
		"generate_action_plan",
		"Regroup the incident's recommendations into immediate, short-term and long-term buckets",
		tools.NewGenerateActionPlanTool(s.engine),
		incidentIDSchema("Incident id to plan for"),
	)
	s.registerTool(
		"create_incident_report",
		"Assemble the complete incident report: analysis, cascade picture, similar incidents and action plan",
		tools.NewCreateIncidentReportTool(s.engine),
		incidentIDSchema("Incident id to report on"),
	)
	s.registerTool(
		"learn_from_incident",
		"Feed a resolution back into the fault-pattern registry to reinforce matched signatures",
		tools.NewLearnFromIncidentTool(s.engine),
		map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"incident_id": map[string]interface{}{
					"type":        "string",
					"description": "Resolved incident id",
				},
				"root_cause": map[string]interface{}{
					"type":        "string",
					"description": "Confirmed root cause",
				},
				"fix_applied": map[string]interface{}{
					"type":        "string",
					"description": "Fix that resolved the incident",
				},
				"resolved_at": map[string]interface{}{
					"type":        "string",
					"description": "Optional resolution time (RFC3339)",
				},
				"notes": map[string]interface{}{
					"type":        "string",
					"description": "Optional operator notes",
				},
			},
			"required": []string{"incident_id", "root_cause", "fix_applied"},
		},
	)
}

func (s *Server) registerTool(name, description string, tool Tool, inputSchema map[string]interface{}) {
	s.tools[name] = tool

	schemaJSON, err := json.Marshal(inputSchema)
	if err != nil {
		panic(fmt.Sprintf("failed to marshal schema for tool %s: %v", name, err))
	}

	mcpTool := mcp.NewToolWithRawSchema(name, description, schemaJSON)
	s.mcpServer.AddTool(mcpTool, s.createToolHandler(name, tool))
}

func (s *Server) createToolHandler(name string, tool Tool) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := json.Marshal(request.Params.Arguments)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		result, err := tool.Execute(ctx, args)
		if err != nil {
			s.logger.Warn("tool execution failed", slog.String("tool", name), slog.Any("error", err))
			return mcp.NewToolResultError(fmt.Sprintf("tool %s failed: %v", name, err)), nil
		}

		resultJSON, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to format result: %v", err)), nil
		}
		return mcp.NewToolResultText(string(resultJSON)), nil
	}
}

// ServeStdio blocks serving the MCP protocol over stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeHTTP blocks serving the streamable HTTP transport until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) ServeHTTP(ctx context.Context, addr, endpointPath string) error {
	if endpointPath == "" {
		endpointPath = "/mcp"
	} else if endpointPath[0] != '/' {
		endpointPath = "/" + endpointPath
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	streamableServer := server.NewStreamableHTTPServer(
		s.mcpServer,
		server.WithEndpointPath(endpointPath),
		server.WithStateLess(true),
		server.WithStreamableHTTPServer(httpSrv),
	)
	mux.Handle(endpointPath, streamableServer)

	errCh := make(chan error, 1)
	go func() {
		if err := streamableServer.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	s.logger.Info("mcp http transport listening", slog.String("addr", addr), slog.String("endpoint", endpointPath))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return streamableServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
