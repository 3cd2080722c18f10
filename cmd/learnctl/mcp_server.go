package main

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"gopkg.in/yaml.v3"

	"learnshell/internal/domain"
)

const serverVersion = "0.1.0"

// mcpServer exposes ask and scholar search as MCP tools.
type mcpServer struct {
	env        cliEnv
	configPath string
	mcp        *mcpserver.MCPServer
}

func newMCPServer(env cliEnv, configPath string) *mcpServer {
	s := &mcpServer{
		env:        env,
		configPath: configPath,
		mcp:        mcpserver.NewMCPServer("learnctl", serverVersion),
	}
	s.registerTools()
	return s
}

func (s *mcpServer) serve(transport string, port int) error {
	switch transport {
	case "stdio":
		return mcpserver.ServeStdio(s.mcp)
	case "streamable-http":
		httpServer := mcpserver.NewStreamableHTTPServer(s.mcp)
		return httpServer.Start(fmt.Sprintf(":%d", port))
	default:
		return fmt.Errorf("unsupported transport: %s (use stdio or streamable-http)", transport)
	}
}

func (s *mcpServer) registerTools() {
	s.mcp.AddTool(
		mcp.NewTool("ask",
			mcp.WithDescription("Answer a learner's question with the local or global model, followed by related academic papers"),
			mcp.WithString("question", mcp.Description("The question to answer"), mcp.Required()),
			mcp.WithString("mode", mcp.Description("Answering model: local or global (default: global)")),
			mcp.WithBoolean("scholar", mcp.Description("Look up related papers (default: true)")),
		),
		s.handleAsk,
	)

	s.mcp.AddTool(
		mcp.NewTool("scholar_search",
			mcp.WithDescription("Search academic papers"),
			mcp.WithString("query", mcp.Description("Search terms"), mcp.Required()),
		),
		s.handleScholar,
	)
}

func (s *mcpServer) handleAsk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	question := stringParam(params, "question", "")
	if question == "" {
		return mcp.NewToolResultError("question is required"), nil
	}

	result, err := ask(ctx, s.env, question, askOptions{
		ConfigPath: s.configPath,
		Mode:       domain.SearchMode(stringParam(params, "mode", string(domain.SearchModeGlobal))),
		NoScholar:  !boolParam(params, "scholar", true),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if result.Error != "" {
		return mcp.NewToolResultError(toText(result)), nil
	}
	return mcp.NewToolResultText(toText(result)), nil
}

func (s *mcpServer) handleScholar(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := stringParam(request.GetArguments(), "query", "")
	if query == "" {
		return mcp.NewToolResultError("query is required"), nil
	}
	result, err := searchScholar(ctx, s.env, query)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(toText(result)), nil
}

func toText(v any) string {
	b, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	return string(b)
}

func stringParam(params map[string]any, key string, fallback string) string {
	if value, ok := params[key].(string); ok && value != "" {
		return value
	}
	return fallback
}

func boolParam(params map[string]any, key string, fallback bool) bool {
	if value, ok := params[key].(bool); ok {
		return value
	}
	return fallback
}
