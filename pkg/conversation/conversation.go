// Copyright 2026 © The Troupe Authors
// SPDX-License-Identifier: Apache-2.0

// Package conversation provides the ordered message log exchanged with a
// chat backend during one logical interaction.
package conversation

import (
	"github.com/google/uuid"

	"github.com/aldasoro/troupe/pkg/llm"
)

// Conversation is an append-only, ordered sequence of messages. Insertion
// order is the order the backend receives messages in. A conversation owns
// its message slice exclusively; existing entries are never mutated or
// removed. It is not safe for concurrent use; callers (the agent proxy)
// serialize access.
type Conversation struct {
	id       string
	messages []llm.Message
}

// Option configures a new Conversation.
type Option func(*Conversation)

// WithSystem seeds the conversation with a system message built from the
// given directive.
func WithSystem(directive string) Option {
	return func(c *Conversation) {
		c.messages = append(c.messages, llm.Message{Role: llm.RoleSystem, Content: directive})
	}
}

// WithID sets an explicit conversation ID instead of a generated one.
func WithID(id string) Option {
	return func(c *Conversation) {
		c.id = id
	}
}

// New creates a Conversation, optionally seeded with a system message.
func New(opts ...Option) *Conversation {
	c := &Conversation{id: uuid.NewString()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID returns the conversation identifier.
func (c *Conversation) ID() string { return c.id }

// System appends a system message and returns the conversation for chaining.
func (c *Conversation) System(content string) *Conversation {
	c.messages = append(c.messages, llm.Message{Role: llm.RoleSystem, Content: content})
	return c
}

// User appends a user message.
func (c *Conversation) User(content string) *Conversation {
	c.messages = append(c.messages, llm.Message{Role: llm.RoleUser, Content: content})
	return c
}

// Assistant appends an assistant message.
func (c *Conversation) Assistant(content string) *Conversation {
	c.messages = append(c.messages, llm.Message{Role: llm.RoleAssistant, Content: content})
	return c
}

// Function appends a function-result message. The name identifies which
// function produced the content.
func (c *Conversation) Function(name, content string) *Conversation {
	c.messages = append(c.messages, llm.Message{Role: llm.RoleFunction, Name: name, Content: content})
	return c
}

// AddResponse appends the assistant message carried by a completion choice,
// preserving any tool calls it requested.
func (c *Conversation) AddResponse(resp *llm.ChatResponse) *Conversation {
	if resp == nil {
		return c
	}
	c.messages = append(c.messages, llm.Message{
		Role:      llm.RoleAssistant,
		Content:   resp.Content,
		ToolCalls: resp.ToolCalls,
	})
	return c
}

// Messages returns a copy of the message sequence in conversation order.
func (c *Conversation) Messages() []llm.Message {
	out := make([]llm.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of messages.
func (c *Conversation) Len() int { return len(c.messages) }

// Last returns the most recent message, or false when empty.
func (c *Conversation) Last() (llm.Message, bool) {
	if len(c.messages) == 0 {
		return llm.Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}
