package mcp

import (
	"context"
	"fmt"

	mcpmcp "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	promptsvc "github.com/alanyang/prompt-manager/internal/service/prompt"
)

// SavedPromptName is the MCP prompt that serves a stored prompt's text.
const SavedPromptName = "saved_prompt"

// RegisterPrompts exposes stored prompts through the MCP prompts capability.
// [SRP] Prompt registration only. Separated from server lifecycle and tool definitions.
func RegisterPrompts(s *mcpserver.MCPServer, promptSvc *promptsvc.Service) {
	s.AddPrompt(
		mcpmcp.NewPrompt(SavedPromptName,
			mcpmcp.WithPromptDescription("Text of a saved prompt, ready to send as a user message."),
			mcpmcp.WithArgument("id",
				mcpmcp.ArgumentDescription("Prompt id, as returned by list_prompts."),
				mcpmcp.RequiredArgument(),
			),
		),
		savedPromptHandler(promptSvc),
	)
}

func savedPromptHandler(promptSvc *promptsvc.Service) mcpserver.PromptHandlerFunc {
	return func(_ context.Context, req mcpmcp.GetPromptRequest) (*mcpmcp.GetPromptResult, error) {
		p, err := promptSvc.Get(req.Params.Arguments["id"])
		if err != nil {
			return nil, fmt.Errorf("get saved prompt: %w", err)
		}

		return mcpmcp.NewGetPromptResult(
			p.Title,
			[]mcpmcp.PromptMessage{
				mcpmcp.NewPromptMessage(
					mcpmcp.RoleUser,
					mcpmcp.TextContent{
						Type: "text",
						Text: p.Description,
					},
				),
			},
		), nil
	}
}
