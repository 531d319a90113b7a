// Package mcp exposes the fusion engine over the Model Context
// Protocol so AI agents can query applications directly.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/cbitforge/forge/internal/app"
	"github.com/cbitforge/forge/internal/fusion"
	"github.com/cbitforge/forge/internal/llm"
	"github.com/cbitforge/forge/internal/policy"
	"github.com/cbitforge/forge/internal/retrieval"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes answering and retrieval tools.
type Server struct {
	apps     *app.Store
	policies *policy.Store
	engine   *fusion.Engine
	qa       retrieval.FixedQAMatcher
	provider llm.Provider
	model    string
	mcp      *server.MCPServer
}

// NewServer creates an MCP server over the given stores and engine.
// provider may be nil, in which case the ask tool degrades to the
// retrieval decision without generated text.
func NewServer(apps *app.Store, policies *policy.Store, engine *fusion.Engine, qa retrieval.FixedQAMatcher, provider llm.Provider, model string) *Server {
	s := &Server{
		apps:     apps,
		policies: policies,
		engine:   engine,
		qa:       qa,
		provider: provider,
		model:    model,
	}

	s.mcp = server.NewMCPServer(
		"forge",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

func (s *Server) registerTools() {
	s.mcp.AddTool(askTool, s.handleAsk)
	s.mcp.AddTool(testRetrievalTool, s.handleTestRetrieval)
	s.mcp.AddTool(searchFixedQATool, s.handleSearchFixedQA)
	s.mcp.AddTool(listAppsTool, s.handleListApps)
}

// Serve starts the MCP server on stdio. Stdout carries MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
