package provider

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/petasbytes/newsverify/memory"
)

const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIModel adapts Chat Completions. BaseURL points it at any compatible
// server.
type OpenAIModel struct {
	client    *openai.Client
	model     string
	maxTokens int
}

func NewOpenAIModel(cfg Config) *OpenAIModel {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	}
	model := cmp.Or(cfg.Model, DefaultOpenAIModel)
	slog.Info("Initializing OpenAI client", "model", model)
	return &OpenAIModel{
		client:    openai.NewClientWithConfig(oc),
		model:     model,
		maxTokens: int(cfg.MaxTokens),
	}
}

func (o *OpenAIModel) Name() string { return OpenAI }

func (o *OpenAIModel) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := cmp.Or(req.Model, o.model)
	ctx, span := tracer.Start(ctx, "OpenAIModel.Chat")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", model),
		attribute.Int("llm.num_messages", len(req.Messages)),
	)

	creq := openai.ChatCompletionRequest{Model: model}
	if o.maxTokens > 0 {
		creq.MaxCompletionTokens = o.maxTokens
	}
	for _, m := range req.Messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case memory.RoleSystem:
			role = openai.ChatMessageRoleSystem
		case memory.RoleAssistant:
			if strings.TrimSpace(m.Content) == "" {
				continue
			}
			role = openai.ChatMessageRoleAssistant
		}
		creq.Messages = append(creq.Messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	for _, d := range req.Tools {
		creq.Tools = append(creq.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  schemaJSON(d),
			},
		})
	}

	resp, err := o.client.CreateChatCompletion(ctx, creq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		err := fmt.Errorf("OpenAI returned no choices")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	choice := resp.Choices[0]
	res := &ChatResponse{Content: choice.Message.Content}
	for _, tc := range choice.Message.ToolCalls {
		args, err := decodeArguments(json.RawMessage(tc.Function.Arguments))
		if err != nil {
			slog.Warn("OpenAI tool call arguments were not an object", "tool", tc.Function.Name, "error", err)
			args = map[string]any{}
		}
		res.ToolCalls = append(res.ToolCalls, ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: args})
	}
	span.SetAttributes(attribute.Int("llm.num_tool_calls", len(res.ToolCalls)))
	return res, nil
}
