package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	mcpserver "github.com/mark3labs/mcp-go/server"
)

// SessionRegistry tracks open MCP sessions so prompt events can be pushed to
// every connected client.
// [SRP] Session bookkeeping and notification dispatch only.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]struct{}

	// mcpSrv is set after the MCP server is constructed (avoids circular init dependency).
	mcpMu  sync.RWMutex
	mcpSrv *mcpserver.MCPServer
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]struct{}),
	}
}

// SetMCPServer injects the mcp-go server after construction (breaks the init cycle).
func (r *SessionRegistry) SetMCPServer(s *mcpserver.MCPServer) {
	r.mcpMu.Lock()
	r.mcpSrv = s
	r.mcpMu.Unlock()
}

func (r *SessionRegistry) Add(sessionID string) {
	r.mu.Lock()
	r.sessions[sessionID] = struct{}{}
	r.mu.Unlock()
}

// Remove forgets a session and reports whether it was known.
func (r *SessionRegistry) Remove(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[sessionID]; !ok {
		return false
	}
	delete(r.sessions, sessionID)
	return true
}

func (r *SessionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Notify sends event as a notifications/message to every open session.
// With no sessions, or before the server is set, it is a no-op.
func (r *SessionRegistry) Notify(_ context.Context, event any) error {
	r.mu.RLock()
	targets := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		targets = append(targets, id)
	}
	r.mu.RUnlock()

	if len(targets) == 0 {
		return nil
	}

	r.mcpMu.RLock()
	srv := r.mcpSrv
	r.mcpMu.RUnlock()
	if srv == nil {
		return nil
	}

	params, err := toParams(event)
	if err != nil {
		return fmt.Errorf("serialize notification: %w", err)
	}

	var lastErr error
	for _, id := range targets {
		if err := srv.SendNotificationToSpecificClient(id, "notifications/message", params); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

func toParams(event any) (map[string]any, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	var params map[string]any
	if err := json.Unmarshal(data, &params); err != nil {
		return map[string]any{"data": event}, nil
	}
	return params, nil
}
