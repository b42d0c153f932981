package provider

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/petasbytes/newsverify/memory"
	"github.com/petasbytes/newsverify/tools"
)

const DefaultAnthropicModel = anthropic.ModelClaude3_7SonnetLatest

// AnthropicModel adapts the Messages API.
type AnthropicModel struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicClient returns a client; an empty key falls back to
// ANTHROPIC_API_KEY from the environment.
func NewAnthropicClient(cfg Config) *anthropic.Client {
	var opts []option.RequestOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	c := anthropic.NewClient(opts...)
	return &c
}

func NewAnthropicModel(cfg Config) *AnthropicModel {
	return &AnthropicModel{
		client:    NewAnthropicClient(cfg),
		model:     cmp.Or(cfg.Model, string(DefaultAnthropicModel)),
		maxTokens: cmp.Or(cfg.MaxTokens, 1024),
	}
}

func (a *AnthropicModel) Name() string { return Anthropic }

func anthropicTools(defs []tools.Definition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, t := range defs {
		schema := anthropic.ToolInputSchemaParam{}
		if t.InputSchema != nil {
			schema.Properties = t.InputSchema.Properties
			if len(t.InputSchema.Required) > 0 {
				schema.ExtraFields = map[string]any{"required": t.InputSchema.Required}
			}
		}
		out = append(out, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        t.Name,
			Description: anthropic.String(t.Description),
			InputSchema: schema,
		}})
	}
	return out
}

// anthropicMessages drops empty assistant turns, which the API rejects.
func anthropicMessages(msgs []memory.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case memory.RoleAssistant:
			if strings.TrimSpace(m.Content) == "" {
				continue
			}
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return out
}

func (a *AnthropicModel) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := cmp.Or(req.Model, a.model)
	ctx, span := tracer.Start(ctx, "AnthropicModel.Chat")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", model),
		attribute.Int("llm.num_messages", len(req.Messages)),
	)

	system, rest := splitSystem(req.Messages)
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: a.maxTokens,
		Messages:  anthropicMessages(rest),
		Tools:     anthropicTools(req.Tools),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("anthropic messages call failed: %w", err)
	}

	res := &ChatResponse{}
	var text []string
	for _, block := range msg.Content {
		switch v := block.AsAny().(type) {
		case anthropic.TextBlock:
			text = append(text, v.Text)
		case anthropic.ToolUseBlock:
			// Pass raw JSON input through to the tool implementation
			args, err := decodeArguments(json.RawMessage(v.JSON.Input.Raw()))
			if err != nil {
				args = map[string]any{}
			}
			res.ToolCalls = append(res.ToolCalls, ToolCall{ID: v.ID, Name: v.Name, Arguments: args})
		}
	}
	res.Content = strings.Join(text, "\n")
	span.SetAttributes(attribute.Int("llm.num_tool_calls", len(res.ToolCalls)))
	return res, nil
}
