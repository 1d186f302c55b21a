package repo

import (
	"context"
	"sync"

	"github.com/cloudwego/eino/schema"

	"github.com/yekaditya11/Acma-Insights/internal/agent/model"
)

// MemoryConversationRepository keeps history in process memory. History does
// not survive restarts.
type MemoryConversationRepository struct {
	mu      sync.RWMutex
	threads map[string][]*schema.Message
}

func NewMemoryConversationRepository() *MemoryConversationRepository {
	return &MemoryConversationRepository{threads: make(map[string][]*schema.Message)}
}

func (r *MemoryConversationRepository) LoadHistory(_ context.Context, threadID string) (*model.ConversationHistory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return &model.ConversationHistory{ThreadID: threadID, Messages: cloneMessages(r.threads[threadID])}, nil
}

func (r *MemoryConversationRepository) SaveHistory(_ context.Context, threadID string, messages []*schema.Message) error {
	cloned := cloneMessages(messages)
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(cloned) == 0 {
		delete(r.threads, threadID)
		return nil
	}
	r.threads[threadID] = cloned
	return nil
}

func (r *MemoryConversationRepository) ClearHistory(_ context.Context, threadID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.threads, threadID)
	return nil
}

// cloneMessages copies role and content so callers cannot mutate stored turns.
func cloneMessages(in []*schema.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(in))
	for _, m := range in {
		if m == nil {
			continue
		}
		c := *m
		out = append(out, &c)
	}
	return out
}

var _ model.ConversationRepository = (*MemoryConversationRepository)(nil)
