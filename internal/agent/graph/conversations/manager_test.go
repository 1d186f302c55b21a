package conversations

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yekaditya11/Acma-Insights/internal/agent/model"
	"github.com/yekaditya11/Acma-Insights/internal/agent/repo"
)

func turns(n int) []*schema.Message {
	out := make([]*schema.Message, 0, n)
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			out = append(out, schema.UserMessage(fmt.Sprintf("q%d", i)))
		} else {
			out = append(out, schema.AssistantMessage(fmt.Sprintf("a%d", i), nil))
		}
	}
	return out
}

func contents(msgs []*schema.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Content)
	}
	return out
}

func defaultConfig() model.ConversationConfig {
	return model.ConversationConfig{
		MaxHistory: 4,
		Windows:    model.HistoryWindows{Intent: 6, SQL: 6, Summary: 1, Clarify: 2},
	}
}

type failingRepo struct{ err error }

func (f failingRepo) LoadHistory(context.Context, string) (*model.ConversationHistory, error) {
	return nil, f.err
}

func (f failingRepo) SaveHistory(context.Context, string, []*schema.Message) error { return f.err }

func (f failingRepo) ClearHistory(context.Context, string) error { return f.err }

func TestTrimTail(t *testing.T) {
	tests := []struct {
		name string
		in   []*schema.Message
		max  int
		want []string
	}{
		{"shorter than window", turns(2), 6, []string{"q0", "a1"}},
		{"exact window", turns(2), 2, []string{"q0", "a1"}},
		{"longer than window", turns(5), 2, []string{"a3", "q4"}},
		{"zero window", turns(3), 0, []string{}},
		{"negative window", turns(3), -1, []string{}},
		{"nil input", nil, 3, []string{}},
		{"nil entries dropped", []*schema.Message{nil, schema.UserMessage("x"), nil}, 2, []string{"x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, contents(trimTail(tt.in, tt.max)))
		})
	}
}

func TestTrimTail_DoesNotAlias(t *testing.T) {
	src := turns(4)
	out := trimTail(src, 2)
	out = append(out, schema.UserMessage("extra"))
	out[0] = schema.UserMessage("replaced")
	assert.Equal(t, []string{"q0", "a1", "q2", "a3"}, contents(src))
}

func TestStageWindows(t *testing.T) {
	m := NewMessagesManager(nil, defaultConfig())
	h := turns(8)

	assert.Len(t, m.IntentWindow(h), 6)
	assert.Len(t, m.SQLWindow(h), 6)
	assert.Equal(t, []string{"a7"}, contents(m.SummaryWindow(h)))
	assert.Equal(t, []string{"q6", "a7"}, contents(m.ClarifyWindow(h)))
	assert.Equal(t, []string{"q0"}, contents(m.ClarifyWindow(turns(1))))
}

func TestLoadSave_RoundTripAndTruncate(t *testing.T) {
	ctx := context.Background()
	m := NewMessagesManager(repo.NewMemoryConversationRepository(), defaultConfig())
	require.True(t, m.Stateful())

	assert.Empty(t, m.Load(ctx, "t1"))

	m.Save(ctx, "t1", turns(7))
	assert.Equal(t, []string{"a3", "q4", "a5", "q6"}, contents(m.Load(ctx, "t1")))

	require.NoError(t, m.Clear(ctx, "t1"))
	assert.Empty(t, m.Load(ctx, "t1"))
}

func TestStatelessManager(t *testing.T) {
	ctx := context.Background()
	m := NewMessagesManager(nil, defaultConfig())

	assert.False(t, m.Stateful())
	m.Save(ctx, "t1", turns(3))
	assert.Empty(t, m.Load(ctx, "t1"))
	assert.NoError(t, m.Clear(ctx, "t1"))
}

func TestStoreFailuresDegrade(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("connection refused")
	m := NewMessagesManager(failingRepo{err: boom}, defaultConfig())

	assert.Empty(t, m.Load(ctx, "t1"))
	assert.NotPanics(t, func() { m.Save(ctx, "t1", turns(2)) })
	assert.ErrorIs(t, m.Clear(ctx, "t1"), boom)
}
