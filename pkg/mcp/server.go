package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"cpathways/cprules/pkg/engine"
	"cpathways/cprules/pkg/model"
	"cpathways/cprules/pkg/rules"
)

// RulesURI is the resource listing the registered rules.
const RulesURI = "cprules://rules"

// EvaluateArgs are the arguments of the evaluate tool.
type EvaluateArgs struct {
	Action    string         `json:"action"`
	Context   *model.Context `json:"context,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
}

// EvaluateResult is the structured result of the evaluate tool.
type EvaluateResult struct {
	Action    string        `json:"action"`
	Verdict   rules.Verdict `json:"verdict"`
	Permitted bool          `json:"permitted"`
	Fallback  bool          `json:"fallback"`
	Error     string        `json:"error,omitempty"`
}

// RuleInfo is the number of decision functions registered for an action.
type RuleInfo struct {
	Action string `json:"action"`
	Rules  int    `json:"rules"`
}

// RulesResult is the structured result of the list_rules tool.
type RulesResult struct {
	Rules []RuleInfo `json:"rules"`
}

// Server exposes an engine to MCP clients, so assistants can ask which
// modeling actions a pathway diagram allows.
type Server struct {
	engine    *engine.Engine
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates an MCP server for eng.
func NewServer(eng *engine.Engine, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		engine:    eng,
		logger:    logger.With("component", "mcp"),
		mcpServer: server.NewMCPServer("cprules", version),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// Listen serves requests read from in until ctx is done or in is closed.
func (s *Server) Listen(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, in, out)
}

func (s *Server) registerTools() {
	evaluateTool := mcp.NewTool("evaluate",
		mcp.WithDescription("Decide whether a clinical pathway modeling action is allowed. "+
			"Returns the verdict (null when no rule decided, true/false, or a connection type) "+
			"and the final permitted answer after the fallback."),
		mcp.WithString("action", mcp.Required(),
			mcp.Description("Action name: shape.create, elements.move, connection.create, "+
				"connection.reconnectStart or connection.reconnectEnd")),
		mcp.WithObject("context",
			mcp.Description("Action payload with optional shape, source, target, hover and connection elements, each with a type")),
		mcp.WithString("session_id", mcp.Description("Editing session identifier (optional)")),
	)
	s.mcpServer.AddTool(evaluateTool, mcp.NewStructuredToolHandler(s.handleEvaluate))

	rulesTool := mcp.NewTool("list_rules",
		mcp.WithDescription("List the modeling actions and how many decision functions are registered for each."),
	)
	s.mcpServer.AddTool(rulesTool, mcp.NewStructuredToolHandler(s.handleListRules))
}

func (s *Server) handleEvaluate(ctx context.Context, request mcp.CallToolRequest, args EvaluateArgs) (EvaluateResult, error) {
	if args.Action == "" {
		return EvaluateResult{}, fmt.Errorf("action is required")
	}

	d, err := s.engine.Evaluate(ctx, &engine.Request{
		Action:    args.Action,
		Context:   args.Context,
		SessionID: args.SessionID,
	})
	if err != nil {
		s.logger.Warn("evaluate rejected", "action", args.Action, "error", err)
		return EvaluateResult{}, err
	}

	return EvaluateResult{
		Action:    d.Action.String(),
		Verdict:   d.Verdict,
		Permitted: d.Permitted,
		Fallback:  d.Fallback,
		Error:     d.Error,
	}, nil
}

func (s *Server) handleListRules(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (RulesResult, error) {
	return RulesResult{Rules: s.ruleInfo()}, nil
}

func (s *Server) ruleInfo() []RuleInfo {
	chain := s.engine.Chain()
	infos := make([]RuleInfo, 0, len(rules.Actions()))
	for _, action := range rules.Actions() {
		infos = append(infos, RuleInfo{Action: action.String(), Rules: chain.Len(action)})
	}
	return infos
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(RulesURI, "Registered rules",
		mcp.WithResourceDescription("Decision functions registered per modeling action"),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		data, err := json.Marshal(s.ruleInfo())
		if err != nil {
			return nil, fmt.Errorf("failed to encode rules: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      RulesURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}
