// Copyright 2026 © The Troupe Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
)

// OpenAIProvider implements Provider for the OpenAI API and any
// OpenAI-compatible endpoint (proxies, Azure, local gateways).
type OpenAIProvider struct {
	client openai.Client
	model  string
}

// openaiSettings collects configuration before the client is built, so
// request options combine instead of the last one replacing the client.
type openaiSettings struct {
	model       string
	requestOpts []option.RequestOption
}

// OpenAIOption configures the OpenAIProvider.
type OpenAIOption func(*openaiSettings)

// WithModel sets the default model.
func WithModel(model string) OpenAIOption {
	return func(s *openaiSettings) {
		s.model = model
	}
}

// WithBaseURL sets a custom base URL.
func WithBaseURL(url string) OpenAIOption {
	return func(s *openaiSettings) {
		s.requestOpts = append(s.requestOpts, option.WithBaseURL(url))
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(apiKey string) OpenAIOption {
	return func(s *openaiSettings) {
		s.requestOpts = append(s.requestOpts, option.WithAPIKey(apiKey))
	}
}

// NewOpenAI creates a new OpenAI provider. The API key is read from the
// OPENAI_API_KEY environment variable by default.
func NewOpenAI(opts ...OpenAIOption) *OpenAIProvider {
	settings := openaiSettings{model: "gpt-4o-mini"}
	for _, opt := range opts {
		opt(&settings)
	}
	return &OpenAIProvider{
		client: openai.NewClient(settings.requestOpts...),
		model:  settings.model,
	}
}

// Chat implements Provider.
func (p *OpenAIProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, convertMessage(msg))
	}

	params := openai.ChatCompletionNewParams{
		Model:    model,
		Messages: messages,
	}

	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	if len(req.Tools) > 0 {
		tools := make([]openai.ChatCompletionToolParam, 0, len(req.Tools))
		for _, tool := range req.Tools {
			tools = append(tools, convertTool(tool))
		}
		params.Tools = tools
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion failed: %w", err)
	}

	return convertResponse(completion), nil
}

// convertMessage converts a Troupe message to OpenAI format.
func convertMessage(msg Message) openai.ChatCompletionMessageParamUnion {
	switch msg.Role {
	case RoleSystem:
		return openai.SystemMessage(msg.Content)
	case RoleUser:
		return openai.UserMessage(msg.Content)
	case RoleAssistant:
		if len(msg.ToolCalls) > 0 {
			toolCalls := make([]openai.ChatCompletionMessageToolCallParam, 0, len(msg.ToolCalls))
			for _, tc := range msg.ToolCalls {
				toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallParam{
					ID:   tc.ID,
					Type: "function",
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Function.Name,
						Arguments: tc.Function.Arguments,
					},
				})
			}
			assistantMsg := openai.ChatCompletionAssistantMessageParam{
				ToolCalls: toolCalls,
			}
			if msg.Content != "" {
				assistantMsg.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
					OfString: param.NewOpt(msg.Content),
				}
			}
			return openai.ChatCompletionMessageParamUnion{
				OfAssistant: &assistantMsg,
			}
		}
		return openai.AssistantMessage(msg.Content)
	case RoleFunction:
		// Function results travel as tool messages; the function name doubles
		// as the call identifier for backends that require one.
		return openai.ToolMessage(msg.Content, msg.Name)
	default:
		return openai.UserMessage(msg.Content)
	}
}

// convertTool converts a Troupe tool to OpenAI format.
func convertTool(tool Tool) openai.ChatCompletionToolParam {
	paramsJSON, _ := json.Marshal(tool.Function.Parameters)
	var params openai.FunctionParameters
	json.Unmarshal(paramsJSON, &params)

	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: openai.FunctionDefinitionParam{
			Name:        tool.Function.Name,
			Description: openai.String(tool.Function.Description),
			Parameters:  params,
		},
	}
}

// convertResponse converts an OpenAI response to Troupe format.
func convertResponse(completion *openai.ChatCompletion) *ChatResponse {
	resp := &ChatResponse{
		Usage: Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		},
	}

	if len(completion.Choices) > 0 {
		choice := completion.Choices[0]
		resp.Content = choice.Message.Content

		if len(choice.Message.ToolCalls) > 0 {
			resp.ToolCalls = make([]ToolCall, 0, len(choice.Message.ToolCalls))
			for _, tc := range choice.Message.ToolCalls {
				resp.ToolCalls = append(resp.ToolCalls, ToolCall{
					ID:   tc.ID,
					Type: ToolTypeFunction,
					Function: FunctionCall{
						Name:      tc.Function.Name,
						Arguments: tc.Function.Arguments,
					},
				})
			}
		}
	}

	return resp
}

var _ Provider = (*OpenAIProvider)(nil)
