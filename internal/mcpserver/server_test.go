package mcpserver

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/raido/internal/console"
	"github.com/starford/raido/internal/session"
	"github.com/starford/raido/internal/testutil"
	"github.com/starford/raido/internal/transport"
)

func testMCP(t *testing.T) *Server {
	t.Helper()

	backend, reg := testutil.TestServer(t)

	sess := session.New()
	sess.Set(testutil.Token, time.Now().Add(time.Hour))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := transport.New(backend.URL, 5*time.Second, sess, transport.WithLogger(logger))

	return New(console.New(client, reg, sess, logger))
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_resources":
		result, err = srv.listResources(ctx, req)
	case "list_records":
		result, err = srv.listRecords(ctx, req)
	case "get_record":
		result, err = srv.getRecord(ctx, req)
	case "create_record":
		result, err = srv.createRecord(ctx, req)
	case "update_record":
		result, err = srv.updateRecord(ctx, req)
	case "delete_record":
		result, err = srv.deleteRecord(ctx, req)
	case "transition_record":
		result, err = srv.transitionRecord(ctx, req)
	case "get_admin_contract":
		result, err = srv.getAdminContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestListResources(t *testing.T) {
	srv := testMCP(t)

	r := callTool(t, srv, "list_resources", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, "orders") || !strings.Contains(text, "kyc") {
		t.Errorf("list_resources = %q, want orders and kyc listed", text)
	}
}

func TestListAndGetRecord(t *testing.T) {
	srv := testMCP(t)

	r := callTool(t, srv, "list_records", map[string]interface{}{
		"resource": "orders",
		"status":   "pending",
	})
	text := resultText(r)
	if !strings.Contains(text, "ord-1001") {
		t.Errorf("list_records missing seeded pending order: %q", text)
	}
	if strings.Contains(text, "ord-1002") {
		t.Errorf("list_records leaked non-pending order: %q", text)
	}

	r = callTool(t, srv, "get_record", map[string]interface{}{
		"resource": "orders",
		"id":       "ord-1001",
	})
	if !strings.Contains(resultText(r), `"orderNumber": "A-1001"`) {
		t.Errorf("get_record = %q", resultText(r))
	}
}

func TestGetRecordMissing(t *testing.T) {
	srv := testMCP(t)

	r := callTool(t, srv, "get_record", map[string]interface{}{
		"resource": "orders",
		"id":       "nope",
	})
	if !r.IsError {
		t.Error("expected error for missing record")
	}
}

func TestMutationLifecycle(t *testing.T) {
	srv := testMCP(t)

	r := callTool(t, srv, "create_record", map[string]interface{}{
		"resource": "products",
		"payload":  `{"id": "prd-9999", "name": "Filter Papers", "status": "active"}`,
	})
	if r.IsError {
		t.Fatalf("create_record failed: %q", resultText(r))
	}

	r = callTool(t, srv, "update_record", map[string]interface{}{
		"resource": "products",
		"id":       "prd-9999",
		"payload":  `{"status": "inactive"}`,
	})
	if !strings.Contains(resultText(r), `"status": "inactive"`) {
		t.Errorf("update_record = %q", resultText(r))
	}

	r = callTool(t, srv, "delete_record", map[string]interface{}{
		"resource": "products",
		"id":       "prd-9999",
	})
	if got := resultText(r); got != "deleted: products/prd-9999" {
		t.Errorf("delete_record = %q", got)
	}
}

func TestTransitionRecord(t *testing.T) {
	srv := testMCP(t)

	r := callTool(t, srv, "transition_record", map[string]interface{}{
		"resource": "kyc",
		"id":       "6f1d2a3b4c5d6e7f8091a2b3c4d5e6f7",
		"action":   "verify",
	})
	if !strings.Contains(resultText(r), `"status": "verified"`) {
		t.Errorf("transition_record = %q", resultText(r))
	}

	r = callTool(t, srv, "transition_record", map[string]interface{}{
		"resource": "orders",
		"id":       "ord-1001",
		"action":   "verify",
	})
	if !r.IsError {
		t.Error("expected error for transition not declared by resource")
	}
}

func TestInvalidPayload(t *testing.T) {
	srv := testMCP(t)

	r := callTool(t, srv, "create_record", map[string]interface{}{
		"resource": "products",
		"payload":  `not json`,
	})
	if !r.IsError {
		t.Error("expected error for malformed payload")
	}
}

func TestAdminContract(t *testing.T) {
	srv := testMCP(t)

	r := callTool(t, srv, "get_admin_contract", map[string]interface{}{})
	if !strings.Contains(resultText(r), "Admin Tool Contract") {
		t.Error("contract text missing")
	}
}
