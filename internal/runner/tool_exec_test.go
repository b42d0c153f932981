package runner_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petasbytes/newsverify/internal/runner"
	"github.com/petasbytes/newsverify/tools"
)

func TestExecutor_Success(t *testing.T) {
	e := runner.NewExecutor(defaultRegistry(), nil, nil)
	rec := e.Execute(context.Background(), "analyze_sentiment_bias", map[string]any{"text": "SHOCKING!!!"})

	require.True(t, rec.Success)
	assert.Empty(t, rec.ErrorMessage)
	assert.Equal(t, "analyze_sentiment_bias", rec.ToolName)
	var out tools.SentimentBias
	require.NoError(t, json.Unmarshal(rec.Output, &out))
	assert.Equal(t, 3, out.ExclamationCount)
}

func TestExecutor_NilArgsBecomeEmptyObject(t *testing.T) {
	e := runner.NewExecutor(defaultRegistry(), nil, nil)
	rec := e.Execute(context.Background(), "extract_claims", nil)

	assert.NotNil(t, rec.Input)
	assert.False(t, rec.Success)
	assert.True(t, strings.Contains(rec.ErrorMessage, "ERR_INVALID_ARGS"))
}

func TestExecutor_WrongArgumentType(t *testing.T) {
	e := runner.NewExecutor(defaultRegistry(), nil, nil)
	rec := e.Execute(context.Background(), "check_domain_credibility", map[string]any{"url": 42})

	assert.False(t, rec.Success)
	assert.Contains(t, rec.ErrorMessage, "ERR_INVALID_ARGS")
	assert.Equal(t, map[string]any{"url": 42}, rec.Input)
}

func TestExecutor_UnserializableOutput(t *testing.T) {
	reg := tools.NewRegistry(tools.Definition{
		Name: "chan_out",
		Function: func(context.Context, json.RawMessage) (any, error) {
			return make(chan int), nil
		},
	})
	rec := runner.NewExecutor(reg, nil, nil).Execute(context.Background(), "chan_out", map[string]any{})
	assert.False(t, rec.Success)
	assert.Contains(t, rec.ErrorMessage, "not serializable")
	assert.Nil(t, rec.Output)
}

func TestExecutor_Panic(t *testing.T) {
	rec := runner.NewExecutor(tools.NewRegistry(panickingTool()), nil, nil).Execute(context.Background(), "explodes", nil)
	assert.False(t, rec.Success)
	assert.Equal(t, "tool panicked: kaboom", rec.ErrorMessage)
	assert.GreaterOrEqual(t, rec.DurationMs, int64(0))
}

func TestSystemPrompt_ListsCatalog(t *testing.T) {
	p := runner.SystemPrompt(defaultRegistry().Definitions(), 0)
	for _, name := range defaultRegistry().Names() {
		assert.Contains(t, p, name)
	}
	assert.Contains(t, p, "at least 3 different tools")
	assert.Contains(t, runner.SystemPrompt(nil, 4), "at least 4 different tools")
}
