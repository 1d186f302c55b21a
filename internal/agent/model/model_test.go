package model

import (
	"encoding/json"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConversationState(t *testing.T) {
	history := []*schema.Message{schema.UserMessage("hi"), nil, schema.AssistantMessage("hello", nil)}
	s := NewConversationState(QueryInput{ThreadID: "t-1", Question: "q"}, history)

	assert.Len(t, s.History, 2)
	assert.NotNil(t, s.SemanticInfo)
	assert.NotNil(t, s.QueryResult)
	assert.NotNil(t, s.VisualizationData)
	assert.False(t, s.NeedsClarification)
	assert.Empty(t, s.Intent)

	s.AppendHistory(schema.UserMessage("more"))
	assert.Len(t, history, 3, "caller history untouched")
}

func TestConversationState_ExecutionOutcome(t *testing.T) {
	s := NewConversationState(QueryInput{Question: "q"}, nil)

	s.SetExecutionError("")
	assert.True(t, s.NeedsClarification)
	assert.Equal(t, "query execution failed", s.QueryErrorMessage)

	s.SetQueryResult(nil, "supplier_name", "value")
	assert.False(t, s.NeedsClarification)
	assert.Empty(t, s.QueryErrorMessage)
	assert.NotNil(t, s.QueryResult)
	assert.Equal(t, []string{"supplier_name", "value"}, s.QueryColumns)
}

func TestConversationState_Bundle(t *testing.T) {
	s := NewConversationState(QueryInput{ThreadID: "t-1", Question: "accidents?"}, nil)
	s.SetIntent(IntentSystemQuery)
	s.SetSQL("SELECT 1")
	s.SetQueryResult([]Row{{"n": 1}})
	s.SetFinalAnswer("one")
	s.SetVisualization(nil)

	b := s.Bundle()
	assert.Equal(t, "t-1", b.ThreadID)
	assert.Equal(t, IntentSystemQuery, b.Intent)
	assert.Equal(t, "SELECT 1", b.SQLQuery)
	assert.Equal(t, "one", b.FinalAnswer)
	assert.Equal(t, map[string]any{}, b.VisualizationData)

	raw, err := json.Marshal(b)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"visualization_data":{}`)
	assert.Contains(t, string(raw), `"query_result":[{"n":1}]`)
}

func TestResolvePricing(t *testing.T) {
	assert.Equal(t, Pricing{InputPerM: 0.30, OutputPerM: 2.50}, ResolvePricing("gemini-2.5-flash"))
	assert.Equal(t, ResolvePricing("gpt-4o"), ResolvePricing("gpt-4o-2024-08-06"))
	assert.Equal(t, ResolvePricing("gemini-2.5-flash-lite"), ResolvePricing("gemini-2.5-flash-lite-preview"))
	assert.Equal(t, Pricing{}, ResolvePricing("unknown-model"))
}

func TestComputeCost(t *testing.T) {
	in, out, total := ComputeCost(nil, Pricing{InputPerM: 1})
	assert.Zero(t, in+out+total)

	in, out, total = ComputeCost(&schema.TokenUsage{PromptTokens: 1_000_000, CompletionTokens: 500_000},
		Pricing{InputPerM: 0.30, OutputPerM: 2.50})
	assert.InDelta(t, 0.30, in, 1e-9)
	assert.InDelta(t, 1.25, out, 1e-9)
	assert.InDelta(t, 1.55, total, 1e-9)
}
