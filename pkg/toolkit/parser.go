// Copyright 2026 © The Troupe Authors
// SPDX-License-Identifier: Apache-2.0

package toolkit

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Parameter is one named argument of a parsed function call.
type Parameter struct {
	Name  string
	Value string
}

// CallEnvelope is the parsed representation of a backend's request to invoke
// a function, recovered from completion content.
type CallEnvelope struct {
	Name       string
	Parameters []Parameter
}

// rawCall mirrors the wire format the prompt contract asks the model for:
// a JSON array of {"FunctionName": ..., "Parameters": [{"Name","Value"}]}.
type rawCall struct {
	FunctionName string     `json:"FunctionName"`
	Parameters   []rawParam `json:"Parameters"`
}

type rawParam struct {
	Name  string    `json:"Name"`
	Value flexValue `json:"Value"`
}

// flexValue tolerates scalar values the model emits unquoted.
type flexValue string

func (v *flexValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = flexValue(s)
		return nil
	}
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*v = ""
		return nil
	}
	if unquoted, err := strconv.Unquote(trimmed); err == nil {
		*v = flexValue(unquoted)
		return nil
	}
	*v = flexValue(trimmed)
	return nil
}

// ParseCallEnvelope recovers a single function-call envelope from completion
// content that is supposed to contain a JSON array of call objects. Model
// output noise is an expected, recoverable condition: malformed or empty
// input yields nil, never an error. When the array holds several calls, the
// first one is surfaced.
func ParseCallEnvelope(text string) *CallEnvelope {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	// Recover JSON embedded in prose or a fenced code block.
	candidate := text
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start >= 0 && end > start {
		candidate = text[start : end+1]
	}

	var calls []rawCall
	if err := json.Unmarshal([]byte(candidate), &calls); err != nil {
		return nil
	}
	if len(calls) == 0 {
		return nil
	}
	for _, call := range calls {
		if strings.TrimSpace(call.FunctionName) == "" {
			return nil
		}
	}

	first := calls[0]
	envelope := &CallEnvelope{Name: first.FunctionName}
	for _, p := range first.Parameters {
		envelope.Parameters = append(envelope.Parameters, Parameter{
			Name:  p.Name,
			Value: string(p.Value),
		})
	}
	return envelope
}

// Arguments renders the envelope's parameters as a JSON object document,
// the shape registered actions expect.
func (e *CallEnvelope) Arguments() string {
	if e == nil || len(e.Parameters) == 0 {
		return "{}"
	}
	var sb strings.Builder
	sb.WriteString("{")
	for i, p := range e.Parameters {
		if i > 0 {
			sb.WriteString(",")
		}
		key, _ := json.Marshal(p.Name)
		val, _ := json.Marshal(p.Value)
		sb.Write(key)
		sb.WriteString(":")
		sb.Write(val)
	}
	sb.WriteString("}")
	return sb.String()
}
