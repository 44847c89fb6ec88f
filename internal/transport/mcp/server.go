package mcp

import (
	"context"
	"log/slog"
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"

	promptsvc "github.com/alanyang/prompt-manager/internal/service/prompt"
)

// Server wraps the mark3labs/mcp-go MCPServer and its StreamableHTTPServer.
// [SRP] HTTP server lifecycle only (session open/close).
//
//	Tools are registered in tools.go, prompts in prompts.go, session state in registry.go.
//
// [OCP] Adding new tools or prompts never requires changes to this file.
type Server struct {
	httpSrv *mcpserver.StreamableHTTPServer
	reg     *SessionRegistry
}

func New(reg *SessionRegistry, promptSvc *promptsvc.Service) *Server {
	s := &Server{reg: reg}

	hooks := &mcpserver.Hooks{}
	hooks.OnRegisterSession = append(hooks.OnRegisterSession, s.onSessionOpen)
	hooks.OnUnregisterSession = append(hooks.OnUnregisterSession, s.onSessionClose)

	mcpSrv := mcpserver.NewMCPServer(
		"prompt-manager",
		"1.0.0",
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithPromptCapabilities(true),
		mcpserver.WithHooks(hooks),
	)

	// Inject the mcp-go server into the registry (breaks the init cycle).
	reg.SetMCPServer(mcpSrv)

	RegisterTools(mcpSrv, promptSvc)
	RegisterPrompts(mcpSrv, promptSvc)

	s.httpSrv = mcpserver.NewStreamableHTTPServer(mcpSrv)
	return s
}

// Handler returns an http.Handler that serves the MCP endpoint.
func (s *Server) Handler() http.Handler {
	return s.httpSrv
}

func (s *Server) Registry() *SessionRegistry {
	return s.reg
}

func (s *Server) onSessionOpen(ctx context.Context, session mcpserver.ClientSession) {
	s.reg.Add(session.SessionID())
	slog.DebugContext(ctx, "mcp: session opened", "session_id", session.SessionID())
}

func (s *Server) onSessionClose(ctx context.Context, session mcpserver.ClientSession) {
	if s.reg.Remove(session.SessionID()) {
		slog.DebugContext(ctx, "mcp: session closed", "session_id", session.SessionID())
	}
}
