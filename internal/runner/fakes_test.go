package runner_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/petasbytes/newsverify/internal/provider"
	"github.com/petasbytes/newsverify/tools"
)

type reply struct {
	resp *provider.ChatResponse
	err  error
}

// scriptedModel replays replies in order and repeats the last one.
type scriptedModel struct {
	mu       sync.Mutex
	replies  []reply
	requests []provider.ChatRequest
}

func (m *scriptedModel) Name() string { return "scripted" }

func (m *scriptedModel) Chat(ctx context.Context, req provider.ChatRequest) (*provider.ChatResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	i := min(len(m.requests)-1, len(m.replies)-1)
	r := m.replies[i]
	return r.resp, r.err
}

func (m *scriptedModel) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func toolTurn(calls ...provider.ToolCall) reply {
	return reply{resp: &provider.ChatResponse{ToolCalls: calls}}
}

func answer(content string) reply {
	return reply{resp: &provider.ChatResponse{Content: content}}
}

func call(name string, args map[string]any) provider.ToolCall {
	return provider.ToolCall{Name: name, Arguments: args}
}

// blockingModel waits for the call context to end.
type blockingModel struct{}

func (blockingModel) Name() string { return "blocking" }

func (blockingModel) Chat(ctx context.Context, _ provider.ChatRequest) (*provider.ChatResponse, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func failingTool(msg string) tools.Definition {
	return tools.Definition{
		Name:        "always_fails",
		Description: "fails every time",
		InputSchema: tools.GenerateSchema[struct{}](),
		Function: func(context.Context, json.RawMessage) (any, error) {
			return nil, errors.New(msg)
		},
	}
}

func panickingTool() tools.Definition {
	return tools.Definition{
		Name:        "explodes",
		Description: "panics",
		InputSchema: tools.GenerateSchema[struct{}](),
		Function: func(context.Context, json.RawMessage) (any, error) {
			panic("kaboom")
		},
	}
}
