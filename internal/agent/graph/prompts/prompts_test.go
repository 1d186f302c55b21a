package prompts

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_AllTemplatesLoad(t *testing.T) {
	for _, id := range All {
		t.Run(string(id), func(t *testing.T) {
			msgs, err := Render(context.Background(), id, map[string]any{
				"question":      "Top 3 suppliers",
				"table_name":    "supplier_kpi_monthly",
				"semantic_info": "{}",
				"ddl":           "CREATE TABLE supplier_kpi_monthly ()",
				"query_result":  "[]",
				"error_message": "syntax error",
			}, nil)
			require.NoError(t, err)
			require.Len(t, msgs, 1)
			assert.Equal(t, schema.User, msgs[0].Role)
			assert.Contains(t, msgs[0].Content, "Top 3 suppliers")
		})
	}
}

func TestRender_HistoryPrecedesInstruction(t *testing.T) {
	history := []*schema.Message{
		schema.UserMessage("Top suppliers in 2024"),
		schema.AssistantMessage("SELECT 1", nil),
	}
	msgs, err := Render(context.Background(), TextToSQL, map[string]any{
		"question":   "and in 2025?",
		"table_name": "supplier_kpi_monthly",
	}, history)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "Top suppliers in 2024", msgs[0].Content)
	assert.Equal(t, schema.Assistant, msgs[1].Role)
	assert.Contains(t, msgs[2].Content, "public.supplier_kpi_monthly")
	assert.Contains(t, msgs[2].Content, "and in 2025?")
}

func TestRender_UnknownTemplate(t *testing.T) {
	_, err := Render(context.Background(), TemplateID("nope"), nil, nil)
	require.Error(t, err)
}

func TestText(t *testing.T) {
	body, err := Text(Visualization)
	require.NoError(t, err)
	assert.Contains(t, body, "{}")

	_, err = Text(TemplateID("missing"))
	require.Error(t, err)
}
