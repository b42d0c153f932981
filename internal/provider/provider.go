// Package provider adapts model services to a single tool-calling chat
// boundary used by the runner.
//
// Backends:
//   - ollama: native /api/chat with function tools (default)
//   - anthropic: Messages API via anthropic-sdk-go
//   - openai: Chat Completions via go-openai, also for compatible servers
//
// Streaming is never requested. Every backend wraps Chat in an OpenTelemetry
// span.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/petasbytes/newsverify/memory"
	"github.com/petasbytes/newsverify/tools"
)

var tracer = otel.Tracer("newsverify.provider")

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// ChatRequest is one model round trip. Messages start with the system
// message.
type ChatRequest struct {
	Model    string
	Messages []memory.Message
	Tools    []tools.Definition
}

// ChatResponse is the assistant turn. Content may be empty when ToolCalls
// is not.
type ChatResponse struct {
	Content   string
	ToolCalls []ToolCall
}

// ChatModel is the model-service boundary.
type ChatModel interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	// Name identifies the backend in logs and metrics.
	Name() string
}

// Backend names.
const (
	Ollama    = "ollama"
	Anthropic = "anthropic"
	OpenAI    = "openai"
)

// ErrUnknownProvider is returned by New for unsupported backends.
var ErrUnknownProvider = errors.New("unknown model provider")

// Config selects and configures a backend.
type Config struct {
	Provider   string
	BaseURL    string
	Model      string
	APIKey     string
	MaxTokens  int64
	HTTPClient *http.Client
}

// New builds the backend named by cfg.Provider.
func New(cfg Config) (ChatModel, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", Ollama:
		return NewOllamaClient(cfg), nil
	case Anthropic:
		return NewAnthropicModel(cfg), nil
	case OpenAI:
		return NewOpenAIModel(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

func defaultHTTPClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: 5 * time.Minute}
}

// splitSystem separates the leading system message from the rest.
func splitSystem(msgs []memory.Message) (string, []memory.Message) {
	if len(msgs) > 0 && msgs[0].Role == memory.RoleSystem {
		return msgs[0].Content, msgs[1:]
	}
	return "", msgs
}

// schemaJSON renders a tool schema for wire formats that take raw JSON.
func schemaJSON(d tools.Definition) json.RawMessage {
	if d.InputSchema == nil {
		return json.RawMessage(`{"type":"object","properties":{}}`)
	}
	b, err := json.Marshal(d.InputSchema)
	if err != nil {
		return json.RawMessage(`{"type":"object","properties":{}}`)
	}
	return b
}

// decodeArguments accepts an object or a JSON-encoded object string.
func decodeArguments(raw json.RawMessage) (map[string]any, error) {
	args := map[string]any{}
	raw = json.RawMessage(strings.TrimSpace(string(raw)))
	if len(raw) == 0 || string(raw) == "null" {
		return args, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		if strings.TrimSpace(s) == "" {
			return args, nil
		}
		raw = json.RawMessage(s)
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, err
	}
	return args, nil
}
