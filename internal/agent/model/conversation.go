package model

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

type ConversationRepository interface {
	// LoadHistory retrieves the persisted history for a thread. Unknown threads yield an empty history.
	LoadHistory(ctx context.Context, threadID string) (*ConversationHistory, error)

	// SaveHistory atomically replaces the persisted history for a thread.
	SaveHistory(ctx context.Context, threadID string, messages []*schema.Message) error

	// ClearHistory removes all conversation history for a thread
	ClearHistory(ctx context.Context, threadID string) error
}

// ConversationHistory represents loaded conversation data with metadata.
type ConversationHistory struct {
	ThreadID string
	Messages []*schema.Message
}
