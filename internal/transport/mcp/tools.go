package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcpmcp "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	domainprompt "github.com/alanyang/prompt-manager/internal/domain/prompt"
	promptsvc "github.com/alanyang/prompt-manager/internal/service/prompt"
)

// RegisterTools registers the prompt CRUD tools on the server.
// [SRP] Tool registration only.
// [OCP] Add a new tool by adding a new AddTool call. server.go never changes.
func RegisterTools(s *mcpserver.MCPServer, promptSvc *promptsvc.Service) {
	s.AddTool(mcpmcp.NewTool("list_prompts",
		mcpmcp.WithDescription("List saved prompts in storage order: newest first on the remote table, insertion order locally. Pass query to keep only prompts whose title or description contains it (case-insensitive)."),
		mcpmcp.WithString("query", mcpmcp.Description("Optional search text")),
	), listPromptsHandler(promptSvc))

	s.AddTool(mcpmcp.NewTool("get_prompt",
		mcpmcp.WithDescription("Return one saved prompt by id."),
		mcpmcp.WithString("id", mcpmcp.Required(), mcpmcp.Description("Prompt id")),
	), getPromptHandler(promptSvc))

	s.AddTool(mcpmcp.NewTool("add_prompt",
		mcpmcp.WithDescription("Save a new prompt. Title and description are required; color must be one of the palette colors."),
		mcpmcp.WithString("title", mcpmcp.Required(), mcpmcp.Description("Prompt title")),
		mcpmcp.WithString("description", mcpmcp.Required(), mcpmcp.Description("Prompt text")),
		mcpmcp.WithString("color", mcpmcp.Description("Card color, e.g. #22c55e")),
	), addPromptHandler(promptSvc))

	s.AddTool(mcpmcp.NewTool("update_prompt",
		mcpmcp.WithDescription("Replace the title, description and color of a saved prompt."),
		mcpmcp.WithString("id", mcpmcp.Required(), mcpmcp.Description("Prompt id")),
		mcpmcp.WithString("title", mcpmcp.Required(), mcpmcp.Description("Prompt title")),
		mcpmcp.WithString("description", mcpmcp.Required(), mcpmcp.Description("Prompt text")),
		mcpmcp.WithString("color", mcpmcp.Description("Card color, e.g. #22c55e")),
	), updatePromptHandler(promptSvc))

	s.AddTool(mcpmcp.NewTool("delete_prompt",
		mcpmcp.WithDescription("Delete a saved prompt. Deleting an unknown id succeeds without change."),
		mcpmcp.WithString("id", mcpmcp.Required(), mcpmcp.Description("Prompt id")),
	), deletePromptHandler(promptSvc))
}

// ── Tool handlers ─────────────────────────────────────────────────────────

func listPromptsHandler(svc *promptsvc.Service) mcpserver.ToolHandlerFunc {
	return func(_ context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		prompts := domainprompt.Filter(svc.Prompts(), mcpmcp.ParseString(req, "query", ""))
		return jsonResult(prompts)
	}
}

func getPromptHandler(svc *promptsvc.Service) mcpserver.ToolHandlerFunc {
	return func(_ context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		p, err := svc.Get(mcpmcp.ParseString(req, "id", ""))
		if err != nil {
			return errorResult(err), nil
		}
		return jsonResult(p)
	}
}

func addPromptHandler(svc *promptsvc.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		p, err := svc.Add(ctx, draftFrom(req))
		if err != nil {
			return errorResult(err), nil
		}
		return jsonResult(p)
	}
}

func updatePromptHandler(svc *promptsvc.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		p, err := svc.Update(ctx, mcpmcp.ParseString(req, "id", ""), draftFrom(req))
		if err != nil {
			return errorResult(err), nil
		}
		return jsonResult(p)
	}
}

func deletePromptHandler(svc *promptsvc.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		id := mcpmcp.ParseString(req, "id", "")
		if err := svc.Delete(ctx, id); err != nil {
			return errorResult(err), nil
		}
		return jsonResult(map[string]string{"deleted": id})
	}
}

func draftFrom(req mcpmcp.CallToolRequest) domainprompt.Draft {
	return domainprompt.Draft{
		Title:       mcpmcp.ParseString(req, "title", ""),
		Description: mcpmcp.ParseString(req, "description", ""),
		Color:       mcpmcp.ParseString(req, "color", ""),
	}
}

func jsonResult(v any) (*mcpmcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal tool result: %w", err)
	}
	return mcpmcp.NewToolResultText(string(data)), nil
}

// errorResult reports a failure to the calling model instead of failing the
// JSON-RPC request.
func errorResult(err error) *mcpmcp.CallToolResult {
	return mcpmcp.NewToolResultError(fmt.Sprintf("error: %s", err))
}
