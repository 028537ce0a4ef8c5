// Copyright 2026 © The Troupe Authors
// SPDX-License-Identifier: Apache-2.0

// Package toolkit provides the function registry advertised to chat backends
// and the parser for function-call envelopes found in completion content.
package toolkit

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/aldasoro/troupe/pkg/errors"
	"github.com/aldasoro/troupe/pkg/llm"
	"github.com/aldasoro/troupe/pkg/schema"
	"github.com/aldasoro/troupe/pkg/telemetry"
)

// Action executes a registered function. name is the function's registered
// name and arguments is the JSON document the backend supplied.
type Action func(ctx context.Context, name, arguments string) (string, error)

// Function is a named, schema-described callable a backend may request.
type Function struct {
	Name        string
	Description string
	Action      Action
	// Schema is the JSON Schema for the function's parameters. It is fixed
	// at registration time.
	Schema string
}

// Registry maps function names to invocable actions. Registration order is
// preserved for advertisement to the backend. Duplicate names are rejected:
// a registry entry is immutable for the process lifetime.
type Registry struct {
	mu        sync.RWMutex
	order     []string
	functions map[string]Function
	generator schema.Generator
	logger    *slog.Logger
	metrics   *telemetry.ChatMetrics
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithGenerator sets the schema generator used by RegisterShape.
func WithGenerator(g schema.Generator) RegistryOption {
	return func(r *Registry) { r.generator = g }
}

// WithLogger sets the logger for registration events.
func WithLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) { r.logger = l }
}

// WithMetrics attaches chat metrics; each successful registration is counted.
func WithMetrics(m *telemetry.ChatMetrics) RegistryOption {
	return func(r *Registry) { r.metrics = m }
}

// NewRegistry creates an empty function registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		functions: make(map[string]Function),
		generator: schema.NewReflector(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a function whose parameter schema is already a JSON document.
func (r *Registry) Register(fn Function) error {
	if fn.Name == "" {
		return errors.New(errors.CodeInvalidInput, "function name is required", nil)
	}
	if fn.Action == nil {
		return errors.New(errors.CodeInvalidInput, "function action is required", nil).
			WithContext("function", fn.Name)
	}
	if fn.Schema == "" {
		return errors.New(errors.CodeInvalidInput, "function parameter schema is required", nil).
			WithContext("function", fn.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.functions[fn.Name]; exists {
		return errors.New(errors.CodeInvalidInput, "function already registered: "+fn.Name, nil).
			WithContext("function", fn.Name)
	}
	r.functions[fn.Name] = fn
	r.order = append(r.order, fn.Name)

	r.logger.Info("function registered",
		"name", fn.Name,
		"description", fn.Description,
		"schema", fn.Schema,
	)
	r.metrics.RecordRegistration(context.Background(), fn.Name)
	return nil
}

// RegisterShape adds a function whose parameter schema is derived once, at
// registration time, from a Go shape descriptor.
func (r *Registry) RegisterShape(name, description string, action Action, shape any) error {
	doc, err := r.generator.Generate(shape)
	if err != nil {
		return errors.New(errors.CodeInvalidInput, "derive parameter schema", err).
			WithContext("function", name)
	}
	return r.Register(Function{
		Name:        name,
		Description: description,
		Action:      action,
		Schema:      doc,
	})
}

// Advertised returns the registered functions as backend-facing tool
// declarations, in registration order.
func (r *Registry) Advertised() []llm.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tools := make([]llm.Tool, 0, len(r.order))
	for _, name := range r.order {
		fn := r.functions[name]
		tools = append(tools, llm.Tool{
			Type: llm.ToolTypeFunction,
			Function: llm.FunctionDef{
				Name:        fn.Name,
				Description: fn.Description,
				Parameters:  json.RawMessage(fn.Schema),
			},
		})
	}
	return tools
}

// Resolve returns the registered action for a name. A backend requesting an
// unregistered function indicates a prompt/schema mismatch or a stale
// registry, so this is a hard failure, never a silent no-op.
func (r *Registry) Resolve(name string) (Action, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.functions[name]
	if !ok {
		return nil, errors.New(errors.CodeFunctionNotFound,
			"function not registered: "+name, nil).
			WithContext("function", name)
	}
	return fn.Action, nil
}

// Lookup returns the full registered function for a name.
func (r *Registry) Lookup(name string) (Function, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.functions[name]
	return fn, ok
}

// Len returns the number of registered functions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
