// Copyright 2026 © The Troupe Authors
// SPDX-License-Identifier: Apache-2.0

// Package agent implements the invocation proxy that fronts a declared
// agent type. A proxy owns one conversation: every operation invoked on
// it extends the same message history, so multi-turn exchanges keep
// their context without the caller threading state around.
package agent

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aldasoro/troupe/pkg/conversation"
	"github.com/aldasoro/troupe/pkg/core"
	"github.com/aldasoro/troupe/pkg/errors"
	"github.com/aldasoro/troupe/pkg/llm"
	"github.com/aldasoro/troupe/pkg/prompt"
	"github.com/aldasoro/troupe/pkg/schema"
	"github.com/aldasoro/troupe/pkg/telemetry"
	"github.com/aldasoro/troupe/pkg/toolkit"
)

// Proxy is a stateful handle on one agent instance. Calls are serialized
// with a per-instance mutex: the conversation is append-only and a single
// in-flight request keeps its ordering deterministic. Two proxies of the
// same agent type never share history.
type Proxy struct {
	agentType   string
	provider    llm.Provider
	directory   *core.Directory
	synthesizer *prompt.Synthesizer
	registry    *toolkit.Registry
	archive     conversation.Archive
	metrics     *telemetry.ChatMetrics
	logger      *slog.Logger
	tracer      trace.Tracer
	model       string
	temperature float64

	mu   sync.Mutex
	conv *conversation.Conversation
}

// Option configures a Proxy instance.
type Option func(*Proxy) error

// New creates a proxy for the given agent type. The type must already be
// declared in the directory; a provider is required.
func New(agentType string, opts ...Option) (*Proxy, error) {
	p := &Proxy{
		agentType: agentType,
		directory: core.NewDirectory(),
		registry:  toolkit.NewRegistry(),
		logger:    slog.Default(),
		tracer:    otel.Tracer("troupe/agent"),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	if agentType == "" {
		return nil, errors.New(errors.CodeInvalidInput, "agent type is required", nil)
	}
	if p.provider == nil {
		return nil, errors.New(errors.CodeInvalidInput, "llm provider is required", nil)
	}
	if _, err := p.directory.Role(agentType); err != nil {
		return nil, err
	}
	if p.synthesizer == nil {
		p.synthesizer = prompt.NewSynthesizer(p.directory, schema.NewReflector())
	}
	return p, nil
}

// WithProvider sets the chat provider.
func WithProvider(provider llm.Provider) Option {
	return func(p *Proxy) error {
		p.provider = provider
		return nil
	}
}

// WithDirectory sets the role/task directory the proxy resolves against.
func WithDirectory(directory *core.Directory) Option {
	return func(p *Proxy) error {
		if directory == nil {
			return errors.New(errors.CodeInvalidInput, "directory must not be nil", nil)
		}
		p.directory = directory
		return nil
	}
}

// WithSynthesizer overrides the system prompt synthesizer.
func WithSynthesizer(s *prompt.Synthesizer) Option {
	return func(p *Proxy) error {
		p.synthesizer = s
		return nil
	}
}

// WithRegistry sets the function registry advertised on each request.
func WithRegistry(registry *toolkit.Registry) Option {
	return func(p *Proxy) error {
		if registry == nil {
			return errors.New(errors.CodeInvalidInput, "registry must not be nil", nil)
		}
		p.registry = registry
		return nil
	}
}

// WithModel overrides the provider's default model for this proxy.
func WithModel(model string) Option {
	return func(p *Proxy) error {
		p.model = model
		return nil
	}
}

// WithTemperature sets the sampling temperature sent with each request.
func WithTemperature(t float64) Option {
	return func(p *Proxy) error {
		p.temperature = t
		return nil
	}
}

// WithArchive attaches a durable message archive. Archive writes are
// best effort: a failing archive never fails an invocation.
func WithArchive(archive conversation.Archive) Option {
	return func(p *Proxy) error {
		p.archive = archive
		return nil
	}
}

// WithMetrics attaches chat metrics.
func WithMetrics(metrics *telemetry.ChatMetrics) Option {
	return func(p *Proxy) error {
		p.metrics = metrics
		return nil
	}
}

// WithLogger sets the proxy logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Proxy) error {
		if logger == nil {
			return errors.New(errors.CodeInvalidInput, "logger must not be nil", nil)
		}
		p.logger = logger
		return nil
	}
}

// AgentType returns the declared type this proxy fronts.
func (p *Proxy) AgentType() string { return p.agentType }

// Invoke runs one operation against the provider and returns the raw
// assistant reply. The first invocation seeds the conversation with the
// synthesized system prompt; later ones reuse the existing history, so
// the model sees every prior turn.
//
// Provider transport errors are returned as-is so callers can match them
// with errors.Is. A reply with blank content is an EMPTY_RESPONSE error.
func (p *Proxy) Invoke(ctx context.Context, operation, input string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ctx, span := p.tracer.Start(ctx, "agent.invoke",
		trace.WithAttributes(
			attribute.String("agent.type", p.agentType),
			attribute.String("agent.operation", operation),
		))
	defer span.End()

	start := time.Now()
	content, err := p.invoke(ctx, operation, input)
	p.metrics.RecordChat(ctx, p.agentType, operation, time.Since(start).Seconds(), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return content, nil
}

func (p *Proxy) invoke(ctx context.Context, operation, input string) (string, error) {
	if err := p.ensureConversation(ctx, operation); err != nil {
		return "", err
	}

	// Even on the reused conversation the task must exist for this
	// operation, so a typo fails before anything is appended.
	if _, err := p.directory.Task(p.agentType, operation); err != nil {
		return "", err
	}

	p.conv.User(input)
	p.persist(ctx, llm.Message{Role: llm.RoleUser, Content: input})

	req := llm.ChatRequest{
		Model:       p.model,
		Messages:    p.conv.Messages(),
		Tools:       p.registry.Advertised(),
		Temperature: p.temperature,
	}

	p.logger.Debug("invoking agent",
		"agent_type", p.agentType,
		"operation", operation,
		"history_len", p.conv.Len(),
		"tools", len(req.Tools))

	resp, err := p.provider.Chat(ctx, req)
	if err != nil {
		p.logger.Error("chat request failed",
			"agent_type", p.agentType,
			"operation", operation,
			"error", err)
		return "", err
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", errors.New(errors.CodeEmptyResponse,
			"model returned no content for "+p.agentType+"."+operation, nil)
	}

	p.conv.AddResponse(resp)
	p.persist(ctx, llm.Message{Role: llm.RoleAssistant, Content: resp.Content})

	p.logger.Info("agent invocation complete",
		"agent_type", p.agentType,
		"operation", operation,
		"tokens", resp.Usage.TotalTokens)

	return resp.Content, nil
}

// ensureConversation lazily creates the proxy's single conversation,
// seeded with the system prompt of the first operation invoked.
func (p *Proxy) ensureConversation(ctx context.Context, operation string) error {
	if p.conv != nil {
		return nil
	}
	directive, err := p.synthesizer.SystemPrompt(p.agentType, operation)
	if err != nil {
		return err
	}
	p.conv = conversation.New(conversation.WithSystem(directive))
	p.persist(ctx, llm.Message{Role: llm.RoleSystem, Content: directive})
	return nil
}

// ExecuteCall resolves a parsed function call against the registry, runs
// it, and appends the result to the conversation as a function turn. An
// unregistered name is a FUNCTION_NOT_FOUND error.
func (p *Proxy) ExecuteCall(ctx context.Context, call *toolkit.CallEnvelope) (string, error) {
	if call == nil {
		return "", errors.New(errors.CodeInvalidInput, "call envelope must not be nil", nil)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ctx, span := p.tracer.Start(ctx, "agent.execute_call",
		trace.WithAttributes(
			attribute.String("agent.type", p.agentType),
			attribute.String("function.name", call.Name),
		))
	defer span.End()

	action, err := p.registry.Resolve(call.Name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	result, err := action(ctx, call.Name, call.Arguments())
	if err != nil {
		p.logger.Error("function execution failed",
			"agent_type", p.agentType,
			"function", call.Name,
			"error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	if p.conv != nil {
		p.conv.Function(call.Name, result)
		p.persist(ctx, llm.Message{Role: llm.RoleFunction, Name: call.Name, Content: result})
	}

	p.logger.Info("function executed",
		"agent_type", p.agentType,
		"function", call.Name)

	return result, nil
}

// History returns a snapshot of the proxy's conversation so far.
func (p *Proxy) History() []llm.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conv == nil {
		return nil
	}
	return p.conv.Messages()
}

func (p *Proxy) persist(ctx context.Context, msg llm.Message) {
	if p.archive == nil || p.conv == nil {
		return
	}
	if err := p.archive.Append(ctx, p.conv.ID(), msg); err != nil {
		p.logger.Warn("archive append failed",
			"conversation_id", p.conv.ID(),
			"error", err)
	}
}
