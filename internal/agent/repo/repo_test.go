package repo

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yekaditya11/Acma-Insights/internal/agent/model"
	errx "github.com/yekaditya11/Acma-Insights/internal/core/error"
)

func sampleTurns() []*schema.Message {
	return []*schema.Message{
		schema.UserMessage("total spend by supplier"),
		schema.AssistantMessage("SELECT supplier_name, SUM(spend) FROM supplier_kpi_monthly GROUP BY 1", nil),
		schema.AssistantMessage("Acme leads with 1.2M.", nil),
	}
}

// exerciseRepository runs the behaviour every backend must share.
func exerciseRepository(t *testing.T, r model.ConversationRepository) {
	t.Helper()
	ctx := context.Background()

	h, err := r.LoadHistory(ctx, "unknown")
	require.NoError(t, err)
	assert.Equal(t, "unknown", h.ThreadID)
	assert.Empty(t, h.Messages)

	require.NoError(t, r.SaveHistory(ctx, "t1", sampleTurns()))
	h, err = r.LoadHistory(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, h.Messages, 3)
	assert.Equal(t, schema.User, h.Messages[0].Role)
	assert.Equal(t, "total spend by supplier", h.Messages[0].Content)
	assert.Equal(t, schema.Assistant, h.Messages[2].Role)
	assert.Equal(t, "Acme leads with 1.2M.", h.Messages[2].Content)

	// save replaces, never appends
	require.NoError(t, r.SaveHistory(ctx, "t1", sampleTurns()[:1]))
	h, err = r.LoadHistory(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, h.Messages, 1)

	other, err := r.LoadHistory(ctx, "t2")
	require.NoError(t, err)
	assert.Empty(t, other.Messages)

	require.NoError(t, r.ClearHistory(ctx, "t1"))
	h, err = r.LoadHistory(ctx, "t1")
	require.NoError(t, err)
	assert.Empty(t, h.Messages)

	require.NoError(t, r.ClearHistory(ctx, "never-saved"))
}

func TestMemoryConversationRepository(t *testing.T) {
	exerciseRepository(t, NewMemoryConversationRepository())
}

func TestMemoryConversationRepository_Isolation(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryConversationRepository()

	turns := sampleTurns()
	require.NoError(t, r.SaveHistory(ctx, "t1", turns))
	turns[0].Content = "mutated"

	h, err := r.LoadHistory(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "total spend by supplier", h.Messages[0].Content)

	h.Messages[1].Content = "also mutated"
	again, err := r.LoadHistory(ctx, "t1")
	require.NoError(t, err)
	assert.NotEqual(t, "also mutated", again.Messages[1].Content)
}

func TestMemoryConversationRepository_SkipsNilTurns(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryConversationRepository()

	require.NoError(t, r.SaveHistory(ctx, "t1", []*schema.Message{nil, schema.UserMessage("hi"), nil}))
	h, err := r.LoadHistory(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, h.Messages, 1)
	assert.Equal(t, "hi", h.Messages[0].Content)
}

func newSQLiteRepo(t *testing.T, ttl time.Duration, opts ...SQLiteOption) *SQLiteConversationRepository {
	t.Helper()
	r, err := NewSQLiteConversationRepository(filepath.Join(t.TempDir(), "conversations.db"), ttl, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestSQLiteConversationRepository(t *testing.T) {
	exerciseRepository(t, newSQLiteRepo(t, time.Hour))
}

func TestSQLiteConversationRepository_InMemory(t *testing.T) {
	r, err := NewSQLiteConversationRepository(":memory:", 0)
	require.NoError(t, err)
	defer r.Close()
	exerciseRepository(t, r)
}

func TestSQLiteConversationRepository_TTL(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	r := newSQLiteRepo(t, 24*time.Hour, WithClock(clock))

	require.NoError(t, r.SaveHistory(ctx, "t1", sampleTurns()))

	clock.Advance(23 * time.Hour)
	h, err := r.LoadHistory(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, h.Messages, 3)

	// a save refreshes the expiry window
	require.NoError(t, r.SaveHistory(ctx, "t1", h.Messages))
	clock.Advance(23 * time.Hour)
	h, err = r.LoadHistory(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, h.Messages, 3)

	clock.Advance(2 * time.Hour)
	h, err = r.LoadHistory(ctx, "t1")
	require.NoError(t, err)
	assert.Empty(t, h.Messages)
}

func TestSQLiteConversationRepository_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "conversations.db")

	first, err := NewSQLiteConversationRepository(path, 0)
	require.NoError(t, err)
	require.NoError(t, first.SaveHistory(ctx, "t1", sampleTurns()))
	require.NoError(t, first.Close())

	second, err := NewSQLiteConversationRepository(path, 0)
	require.NoError(t, err)
	defer second.Close()

	h, err := second.LoadHistory(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, h.Messages, 3)
}

func TestSQLiteConversationRepository_Closed(t *testing.T) {
	ctx := context.Background()
	r := newSQLiteRepo(t, 0)
	require.NoError(t, r.Close())
	require.NoError(t, r.Close(), "close is idempotent")

	_, err := r.LoadHistory(ctx, "t1")
	assert.ErrorIs(t, err, ErrStoreClosed)
	assert.ErrorIs(t, err, errx.ErrPersistence)

	err = r.SaveHistory(ctx, "t1", sampleTurns())
	assert.ErrorIs(t, err, ErrStoreClosed)

	err = r.ClearHistory(ctx, "t1")
	assert.ErrorIs(t, err, ErrStoreClosed)
}
