// Copyright 2026 © The Troupe Authors
// SPDX-License-Identifier: Apache-2.0

// Package prompt composes persona, task instructions, and output-schema
// contracts into the system message an agent operation sends to the backend.
package prompt

import (
	"strings"

	"github.com/aldasoro/troupe/pkg/core"
	"github.com/aldasoro/troupe/pkg/schema"
)

// schemaIntro opens the output-schema contract section. Synthesized prompts
// for void operations must never contain it.
const schemaIntro = "Your reply must be a single JSON document that conforms to the output schema below."

// schemaExample biases the model away from the formatting mistakes we see
// most: prose around the JSON and unquoted values.
const schemaExample = `For example, given this schema:

` + "```json" + `
{
  "type": "object",
  "properties": {
    "city": { "type": "string" },
    "nights": { "type": "integer" }
  }
}
` + "```" + `

a correct reply is:

` + "```json" + `
{ "city": "Valencia", "nights": 7 }
` + "```" + `

and this reply is WRONG because it wraps the document in prose and leaves a value unquoted:

Sure! Here is your booking: { city: Valencia, "nights": "seven" }

Emit only the JSON document. No explanations, no code fences, no trailing text.`

// Synthesizer builds system prompts from declared role/task metadata.
type Synthesizer struct {
	directory *core.Directory
	generator schema.Generator
}

// NewSynthesizer creates a Synthesizer over the given declaration directory
// and schema generator.
func NewSynthesizer(directory *core.Directory, generator schema.Generator) *Synthesizer {
	return &Synthesizer{directory: directory, generator: generator}
}

// SystemPrompt synthesizes the system message for one operation of an agent
// type: persona, then task instructions, then — only when the operation
// declares a return shape — the output-schema contract. Section order is
// fixed.
func (s *Synthesizer) SystemPrompt(agentType, operation string) (string, error) {
	role, err := s.directory.Role(agentType)
	if err != nil {
		return "", err
	}
	task, err := s.directory.Task(agentType, operation)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.Grow(2048)

	sb.WriteString(Dedent(role.Persona))
	sb.WriteString("\n\n")
	sb.WriteString(Dedent(task.Instructions))

	if task.Returns != nil {
		doc, err := s.generator.Generate(task.Returns)
		if err != nil {
			return "", err
		}
		sb.WriteString("\n\n")
		sb.WriteString(schemaIntro)
		sb.WriteString("\n\n")
		sb.WriteString(schemaExample)
		sb.WriteString("\n\nOutput schema:\n\n```json\n")
		sb.WriteString(doc)
		sb.WriteString("\n```")
	}

	return sb.String(), nil
}

// Dedent trims leading/trailing blank space and removes the longest common
// leading whitespace from every non-blank line, so indented raw-string
// declarations read cleanly in the final prompt.
func Dedent(text string) string {
	lines := strings.Split(text, "\n")

	margin := -1
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		indent := len(line) - len(strings.TrimLeft(line, " \t"))
		if margin < 0 || indent < margin {
			margin = indent
		}
	}
	if margin <= 0 {
		return strings.TrimSpace(text)
	}

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			lines[i] = ""
			continue
		}
		lines[i] = line[margin:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
