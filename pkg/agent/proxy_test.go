// Copyright 2026 © The Troupe Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/aldasoro/troupe/pkg/core"
	"github.com/aldasoro/troupe/pkg/errors"
	"github.com/aldasoro/troupe/pkg/llm"
	"github.com/aldasoro/troupe/pkg/toolkit"
)

func travelDirectory(t *testing.T) *core.Directory {
	t.Helper()
	dir := core.NewDirectory()
	if err := dir.RegisterRole("TravelPlanner", core.Role{
		Name:    "TravelPlanner",
		Persona: "You are a travel planner.",
	}); err != nil {
		t.Fatalf("RegisterRole failed: %v", err)
	}
	if err := dir.RegisterTask("TravelPlanner", "PlanTrip", core.Task{
		Instructions: "Plan a trip for the given destination.",
		Output:       core.OutputText,
	}); err != nil {
		t.Fatalf("RegisterTask failed: %v", err)
	}
	return dir
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestProxy(t *testing.T, provider llm.Provider, opts ...Option) *Proxy {
	t.Helper()
	opts = append([]Option{
		WithProvider(provider),
		WithDirectory(travelDirectory(t)),
		WithLogger(quietLogger()),
	}, opts...)
	p, err := New("TravelPlanner", opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return p
}

func TestProxyInvoke(t *testing.T) {
	mock := &llm.MockProvider{Response: "Three days in Lisbon."}
	p := newTestProxy(t, mock)

	out, err := p.Invoke(context.Background(), "PlanTrip", "Lisbon, 3 days")
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if out != "Three days in Lisbon." {
		t.Errorf("unexpected reply: %q", out)
	}

	// First request carries the synthesized system prompt then the user turn.
	if len(mock.Requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(mock.Requests))
	}
	msgs := mock.Requests[0].Messages
	if len(msgs) != 2 {
		t.Fatalf("expected system+user, got %d messages", len(msgs))
	}
	if msgs[0].Role != llm.RoleSystem || !strings.Contains(msgs[0].Content, "travel planner") {
		t.Errorf("expected system directive with the persona, got %+v", msgs[0])
	}
	if msgs[1].Role != llm.RoleUser || msgs[1].Content != "Lisbon, 3 days" {
		t.Errorf("expected user turn, got %+v", msgs[1])
	}
}

func TestProxyRetainsHistoryAcrossInvocations(t *testing.T) {
	mock := &llm.MockProvider{Response: "Done."}
	p := newTestProxy(t, mock)

	ctx := context.Background()
	if _, err := p.Invoke(ctx, "PlanTrip", "Lisbon"); err != nil {
		t.Fatalf("first Invoke failed: %v", err)
	}
	if _, err := p.Invoke(ctx, "PlanTrip", "add a beach day"); err != nil {
		t.Fatalf("second Invoke failed: %v", err)
	}

	// The second request must include the first turn's user and assistant
	// messages: system, user, assistant, user.
	second := mock.Requests[1].Messages
	if len(second) != 4 {
		t.Fatalf("expected 4 messages on second request, got %d", len(second))
	}
	if second[1].Content != "Lisbon" {
		t.Errorf("expected first user turn to be retained, got %q", second[1].Content)
	}
	if second[2].Role != llm.RoleAssistant || second[2].Content != "Done." {
		t.Errorf("expected first assistant turn to be retained, got %+v", second[2])
	}
	if second[3].Content != "add a beach day" {
		t.Errorf("expected new user turn last, got %q", second[3].Content)
	}
}

func TestProxyInstancesAreIsolated(t *testing.T) {
	mockA := &llm.MockProvider{Response: "A"}
	mockB := &llm.MockProvider{Response: "B"}
	a := newTestProxy(t, mockA)
	b := newTestProxy(t, mockB)

	ctx := context.Background()
	if _, err := a.Invoke(ctx, "PlanTrip", "Lisbon"); err != nil {
		t.Fatalf("Invoke on a failed: %v", err)
	}
	if _, err := b.Invoke(ctx, "PlanTrip", "Porto"); err != nil {
		t.Fatalf("Invoke on b failed: %v", err)
	}

	if len(mockB.Requests[0].Messages) != 2 {
		t.Errorf("expected b to start fresh, got %d messages", len(mockB.Requests[0].Messages))
	}
	for _, msg := range b.History() {
		if strings.Contains(msg.Content, "Lisbon") {
			t.Errorf("history leaked between proxy instances: %+v", msg)
		}
	}
}

func TestProxyProviderErrorPropagatesUnwrapped(t *testing.T) {
	sentinel := stderrors.New("connection refused")
	p := newTestProxy(t, &llm.FailingMockProvider{Err: sentinel})

	_, err := p.Invoke(context.Background(), "PlanTrip", "Lisbon")
	if !stderrors.Is(err, sentinel) {
		t.Errorf("expected the provider error identity to survive, got %v", err)
	}
}

func TestProxyEmptyResponse(t *testing.T) {
	p := newTestProxy(t, &llm.MockProvider{Response: "   \n"})

	_, err := p.Invoke(context.Background(), "PlanTrip", "Lisbon")
	if !errors.HasCode(err, errors.CodeEmptyResponse) {
		t.Errorf("expected EMPTY_RESPONSE, got %v", err)
	}
}

func TestProxyUndeclaredOperation(t *testing.T) {
	p := newTestProxy(t, &llm.MockProvider{Response: "x"})

	_, err := p.Invoke(context.Background(), "BookFlight", "Lisbon")
	if !errors.HasCode(err, errors.CodeMissingDeclaration) {
		t.Errorf("expected MISSING_DECLARATION, got %v", err)
	}
}

func TestProxyUndeclaredAgentType(t *testing.T) {
	_, err := New("Nobody",
		WithProvider(&llm.MockProvider{}),
		WithDirectory(core.NewDirectory()),
		WithLogger(quietLogger()))
	if !errors.HasCode(err, errors.CodeMissingDeclaration) {
		t.Errorf("expected MISSING_DECLARATION, got %v", err)
	}
}

func TestProxyExecuteCall(t *testing.T) {
	reg := toolkit.NewRegistry(toolkit.WithLogger(quietLogger()))
	err := reg.Register(toolkit.Function{
		Name:        "GetHotel",
		Description: "Find a hotel",
		Action: func(_ context.Context, name, arguments string) (string, error) {
			return `{"hotel":"Grand Plaza"}`, nil
		},
		Schema: `{"type":"object"}`,
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	mock := &llm.MockProvider{Response: "ok"}
	p := newTestProxy(t, mock, WithRegistry(reg))

	ctx := context.Background()
	if _, err := p.Invoke(ctx, "PlanTrip", "Lisbon"); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	call := toolkit.ParseCallEnvelope(`[{"FunctionName":"GetHotel","Parameters":[{"Name":"city","Value":"Lisbon"}]}]`)
	if call == nil {
		t.Fatal("expected a parsed call envelope")
	}
	result, err := p.ExecuteCall(ctx, call)
	if err != nil {
		t.Fatalf("ExecuteCall failed: %v", err)
	}
	if result != `{"hotel":"Grand Plaza"}` {
		t.Errorf("unexpected result: %s", result)
	}

	last := p.History()[len(p.History())-1]
	if last.Role != llm.RoleFunction || last.Name != "GetHotel" {
		t.Errorf("expected function turn appended, got %+v", last)
	}
}

func TestProxyExecuteCallUnknownFunction(t *testing.T) {
	p := newTestProxy(t, &llm.MockProvider{Response: "ok"})

	call := &toolkit.CallEnvelope{Name: "Nope"}
	_, err := p.ExecuteCall(context.Background(), call)
	if !errors.HasCode(err, errors.CodeFunctionNotFound) {
		t.Errorf("expected FUNCTION_NOT_FOUND, got %v", err)
	}

	if _, err := p.ExecuteCall(context.Background(), nil); err == nil {
		t.Error("expected error for nil call envelope")
	}
}

func TestProxyToolsAdvertised(t *testing.T) {
	reg := toolkit.NewRegistry(toolkit.WithLogger(quietLogger()))
	if err := reg.Register(toolkit.Function{
		Name:        "GetWeather",
		Description: "Current weather",
		Action: func(_ context.Context, _, _ string) (string, error) {
			return "", nil
		},
		Schema: `{"type":"object"}`,
	}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	mock := &llm.MockProvider{Response: "ok"}
	p := newTestProxy(t, mock, WithRegistry(reg))

	if _, err := p.Invoke(context.Background(), "PlanTrip", "Lisbon"); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	tools := mock.Requests[0].Tools
	if len(tools) != 1 || tools[0].Function.Name != "GetWeather" {
		t.Errorf("expected registered function advertised, got %+v", tools)
	}
}
