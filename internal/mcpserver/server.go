// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the admin console operations as tools for LLM integration via
// stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/raido/internal/console"
	"github.com/starford/raido/internal/filters"
	"github.com/starford/raido/internal/record"
)

// Server wraps the MCP server with admin console tools.
type Server struct {
	mcp *server.MCPServer
	con *console.Console
}

// New creates a new MCP server with all console tools registered.
func New(con *console.Console) *Server {
	s := &Server{con: con}

	s.mcp = server.NewMCPServer(
		"Raido",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_resources",
		mcp.WithDescription("List the admin resource families available to the other tools."),
	), s.listResources)

	s.mcp.AddTool(mcp.NewTool("list_records",
		mcp.WithDescription("List records of a resource, paginated and filterable by search text and status."),
		mcp.WithString("resource", mcp.Required(), mcp.Description("Resource name (see list_resources)")),
		mcp.WithString("search", mcp.Description("Free-text search filter")),
		mcp.WithString("status", mcp.Description("Status filter (omit or 'all' for no filter)")),
		mcp.WithNumber("page", mcp.Description("Page number, 1-based")),
		mcp.WithNumber("limit", mcp.Description("Page size")),
	), s.listRecords)

	s.mcp.AddTool(mcp.NewTool("get_record",
		mcp.WithDescription("Fetch a single record by id."),
		mcp.WithString("resource", mcp.Required(), mcp.Description("Resource name")),
		mcp.WithString("id", mcp.Required(), mcp.Description("Record id")),
	), s.getRecord)

	s.mcp.AddTool(mcp.NewTool("create_record",
		mcp.WithDescription("Create a record. The payload MUST follow the admin tool contract; "+
			"read it first via the get_admin_contract tool or the raido://admin-contract resource."),
		mcp.WithString("resource", mcp.Required(), mcp.Description("Resource name")),
		mcp.WithString("payload", mcp.Required(), mcp.Description("JSON object with the record fields")),
	), s.createRecord)

	s.mcp.AddTool(mcp.NewTool("update_record",
		mcp.WithDescription("Update a record. Fetch it first and reuse the field names it already has."),
		mcp.WithString("resource", mcp.Required(), mcp.Description("Resource name")),
		mcp.WithString("id", mcp.Required(), mcp.Description("Record id")),
		mcp.WithString("payload", mcp.Required(), mcp.Description("JSON object with the fields to change")),
	), s.updateRecord)

	s.mcp.AddTool(mcp.NewTool("delete_record",
		mcp.WithDescription("Delete a record by id."),
		mcp.WithString("resource", mcp.Required(), mcp.Description("Resource name")),
		mcp.WithString("id", mcp.Required(), mcp.Description("Record id")),
	), s.deleteRecord)

	s.mcp.AddTool(mcp.NewTool("transition_record",
		mcp.WithDescription("Apply a named state transition (status, verify, reject, toggle) to a record."),
		mcp.WithString("resource", mcp.Required(), mcp.Description("Resource name")),
		mcp.WithString("id", mcp.Required(), mcp.Description("Record id")),
		mcp.WithString("action", mcp.Required(), mcp.Description("Transition action name")),
		mcp.WithString("payload", mcp.Description("Optional JSON object, e.g. {\"status\": \"active\"}")),
	), s.transitionRecord)

	s.mcp.AddTool(mcp.NewTool("get_admin_contract",
		mcp.WithDescription("Returns the admin tool contract. Call this before issuing mutations."),
	), s.getAdminContract)

	// Resource: admin tool contract.
	s.mcp.AddResource(
		mcp.NewResource("raido://admin-contract", "Admin Tool Contract",
			mcp.WithResourceDescription("Conventions for reading and mutating admin records through these tools."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listResources(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(strings.Join(s.con.Resources(), "\n")), nil
}

func (s *Server) listRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resource, err := req.RequireString("resource")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	st := filters.State{Status: filters.Unset, Payment: filters.Unset, Category: filters.Unset, DateRange: filters.RangeAll}
	if v, err := req.RequireString("search"); err == nil {
		st.Search = v
	}
	if v, err := req.RequireString("status"); err == nil && v != "" {
		st.Status = v
	}
	if v, err := req.RequireFloat("page"); err == nil {
		st.Page = int(v)
	}
	if v, err := req.RequireFloat("limit"); err == nil {
		st.Limit = int(v)
	}

	page, err := s.con.List(ctx, resource, st)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(page, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resource, err := req.RequireString("resource")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := s.con.Get(ctx, resource, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get %s/%s: %v", resource, id, err)), nil
	}
	out, _ := json.MarshalIndent(rec, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) createRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resource, err := req.RequireString("resource")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	payload, err := decodePayload(req, "payload")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := s.con.Create(ctx, resource, payload)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(rec, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) updateRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resource, err := req.RequireString("resource")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	payload, err := decodePayload(req, "payload")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := s.con.Update(ctx, resource, id, payload)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(rec, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) deleteRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resource, err := req.RequireString("resource")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.con.Delete(ctx, resource, id); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s/%s", resource, id)), nil
}

func (s *Server) transitionRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resource, err := req.RequireString("resource")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	action, err := req.RequireString("action")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var payload record.Record
	if raw, err := req.RequireString("payload"); err == nil && raw != "" {
		payload, err = parsePayload(raw)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	rec, err := s.con.Transition(ctx, resource, id, action, payload)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(rec, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getAdminContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(AdminContract), nil
}

func (s *Server) readContractResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "raido://admin-contract",
			MIMEType: "text/markdown",
			Text:     AdminContract,
		},
	}, nil
}

func decodePayload(req mcp.CallToolRequest, key string) (record.Record, error) {
	raw, err := req.RequireString(key)
	if err != nil {
		return nil, err
	}
	return parsePayload(raw)
}

func parsePayload(raw string) (record.Record, error) {
	var rec record.Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("payload is not a JSON object: %w", err)
	}
	return rec, nil
}
