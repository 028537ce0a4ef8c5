package conversation

import (
	"context"

	"github.com/aldasoro/troupe/pkg/llm"
)

// Archive persists conversation messages outside the in-process log.
// Archiving is observational: it never alters the live conversation and
// failures are reported to the caller to handle (the agent proxy treats
// them as best-effort).
type Archive interface {
	// Append records one message for a conversation.
	Append(ctx context.Context, conversationID string, msg llm.Message) error

	// Messages returns all recorded messages for a conversation in
	// insertion order.
	Messages(ctx context.Context, conversationID string) ([]llm.Message, error)
}
