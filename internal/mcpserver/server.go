// Package mcpserver exposes prompt processing as Model Context Protocol
// tools so an agent can turn editing requests into ChatCut actions.
package mcpserver

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/chatcut/chatcut/internal/action"
	"github.com/chatcut/chatcut/internal/service"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

// Tool names.
const (
	ToolProcessPrompt = "process_prompt"
	ToolProviderInfo  = "provider_info"
)

// ProcessPromptInput is the process_prompt argument object.
type ProcessPromptInput struct {
	Prompt        string         `json:"prompt" jsonschema:"the editing request, for example zoom in by 120%"`
	ContextParams map[string]any `json:"context_params,omitempty" jsonschema:"optional extra context such as the number of selected clips"`
}

type providerInfoInput struct{}

// New builds an MCP server backed by svc.
func New(svc *service.Service, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "chatcut", Version: version}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolProcessPrompt,
		Description: "Convert a natural-language video editing request into ChatCut actions. " + catalogSummary(svc.Catalog()),
	}, func(ctx context.Context, req *mcp.CallToolRequest, in ProcessPromptInput) (*mcp.CallToolResult, action.Result, error) {
		res := svc.ProcessPrompt(ctx, in.Prompt, in.ContextParams)
		log.Debug().Str("tool", ToolProcessPrompt).Str("action", res.Action).Str("error", res.Error).Msg("MCP tool call")
		return textResult(res, res.IsError()), res, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolProviderInfo,
		Description: "Report which AI provider the backend uses and whether it is configured.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, _ providerInfoInput) (*mcp.CallToolResult, service.Info, error) {
		info := svc.ProviderInfo()
		return textResult(info, false), info, nil
	})

	return server
}

// Run serves MCP over stdin/stdout until ctx is cancelled or the client
// disconnects.
func Run(ctx context.Context, svc *service.Service, version string) error {
	return New(svc, version).Run(ctx, &mcp.StdioTransport{})
}

func textResult(v any, isError bool) *mcp.CallToolResult {
	data, err := json.Marshal(v)
	if err != nil {
		data = []byte(`{}`)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		IsError: isError,
	}
}

func catalogSummary(c action.Catalog) string {
	return "Supported actions: " + strings.Join(c.Names(), ", ") + "."
}
