// Package mcp exposes ticket resolution as an MCP tool over stdio. The tool
// honors the same external contract as the HTTP endpoint.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sweetpotato0/support-assistant/pkg/logging"
	"github.com/sweetpotato0/support-assistant/rag/pipeline"
	"github.com/sweetpotato0/support-assistant/schema"
)

// Resolver runs a ticket through the resolution pipeline.
type Resolver interface {
	Resolve(ctx context.Context, ticket string) (*pipeline.Resolution, error)
}

// NewServer builds an MCP server with the resolve_ticket tool registered.
func NewServer(name string, resolver Resolver) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    name,
		Version: "1.0.0",
		Title:   "Support Knowledge Assistant",
	}, nil)

	addResolveTool(server, resolver)
	return server
}

// Serve runs the server over stdio until the transport closes.
func Serve(ctx context.Context, name string, resolver Resolver) error {
	return NewServer(name, resolver).Run(ctx, &mcp.StdioTransport{})
}

func addResolveTool(server *mcp.Server, resolver Resolver) {
	logger := logging.WithComponent("mcp")

	type args struct {
		TicketText string `json:"ticket_text" jsonschema:"Raw customer support ticket text (5 to 5000 characters)"`
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "resolve_ticket",
		Description: "Resolve a customer support ticket against the knowledge base, returning a grounded answer, references, and any required follow-up action",
	}, func(ctx context.Context, req *mcp.CallToolRequest, a args) (*mcp.CallToolResult, any, error) {
		ticket := schema.TicketRequest{TicketText: a.TicketText}
		if err := ticket.Validate(); err != nil {
			return nil, nil, err
		}

		logger.Info("received ticket", "ticket_length", len(a.TicketText))
		result, err := resolver.Resolve(ctx, a.TicketText)
		if err != nil {
			logger.Error("ticket resolution failed", "error", err)
			return nil, nil, fmt.Errorf("failed to resolve support ticket")
		}

		payload, err := json.Marshal(result.Response)
		if err != nil {
			return nil, nil, fmt.Errorf("encode response: %w", err)
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: string(payload)},
			},
		}, result.Response, nil
	})
}
