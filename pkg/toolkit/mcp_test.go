// Copyright 2026 © The Troupe Authors
// SPDX-License-Identifier: Apache-2.0

package toolkit

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func textContent(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("expected tool result content")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", result.Content[0])
	}
	return tc.Text
}

func TestNewMCPServer(t *testing.T) {
	reg := quietRegistry()
	if err := reg.Register(Function{
		Name:        "GetWeather",
		Description: "Current weather for a city",
		Action:      echoAction,
		Schema:      `{"type":"object"}`,
	}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	s := NewMCPServer("troupe", "0.1.0", reg)
	if s == nil || s.mcpServer == nil {
		t.Fatal("expected non-nil MCP server")
	}
}

func TestToolHandlerEncodesArguments(t *testing.T) {
	var gotName, gotArgs string
	fn := Function{
		Name: "GetHotel",
		Action: func(_ context.Context, name, arguments string) (string, error) {
			gotName, gotArgs = name, arguments
			return `{"hotel":"Grand Plaza"}`, nil
		},
		Schema: `{"type":"object"}`,
	}

	request := mcp.CallToolRequest{}
	request.Params.Arguments = map[string]interface{}{"city": "Lisbon"}

	result, err := toolHandler(fn)(context.Background(), request)
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if result.IsError {
		t.Fatalf("expected success, got tool error: %s", textContent(t, result))
	}
	if textContent(t, result) != `{"hotel":"Grand Plaza"}` {
		t.Errorf("unexpected result text: %s", textContent(t, result))
	}
	if gotName != "GetHotel" {
		t.Errorf("expected action to receive the function name, got %q", gotName)
	}

	var args map[string]string
	if err := json.Unmarshal([]byte(gotArgs), &args); err != nil {
		t.Fatalf("arguments are not a JSON document: %v", err)
	}
	if args["city"] != "Lisbon" {
		t.Errorf("expected city argument, got %s", gotArgs)
	}
}

func TestToolHandlerActionError(t *testing.T) {
	fn := Function{
		Name: "GetHotel",
		Action: func(_ context.Context, _, _ string) (string, error) {
			return "", fmt.Errorf("no rooms available")
		},
		Schema: `{"type":"object"}`,
	}

	result, err := toolHandler(fn)(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatalf("expected action failure as tool error, got protocol error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected IsError on action failure")
	}
	if textContent(t, result) != "no rooms available" {
		t.Errorf("unexpected error text: %s", textContent(t, result))
	}
}
