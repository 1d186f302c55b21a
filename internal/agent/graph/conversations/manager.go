package conversations

import (
	"context"

	"github.com/cloudwego/eino/schema"

	"github.com/yekaditya11/Acma-Insights/internal/agent/model"
	"github.com/yekaditya11/Acma-Insights/internal/metrics"
	logx "github.com/yekaditya11/Acma-Insights/pkg/logger"
)

// MessagesManager loads and saves thread history and cuts the per-stage
// windows forwarded to prompts. A nil repository makes every run stateless.
type MessagesManager struct {
	conversationRepo model.ConversationRepository
	windows          model.HistoryWindows
	maxHistory       int
}

func NewMessagesManager(conversationRepo model.ConversationRepository, config model.ConversationConfig) *MessagesManager {
	return &MessagesManager{
		conversationRepo: conversationRepo,
		windows:          config.Windows,
		maxHistory:       config.MaxHistory,
	}
}

// Stateful reports whether history survives between runs.
func (cm *MessagesManager) Stateful() bool {
	return cm.conversationRepo != nil
}

// =========== Load / Save ===========

// Load returns the persisted history for a thread. A store failure is logged
// and yields an empty history so the run continues without context.
func (cm *MessagesManager) Load(ctx context.Context, threadID string) []*schema.Message {
	if cm.conversationRepo == nil {
		return nil
	}
	history, err := cm.conversationRepo.LoadHistory(ctx, threadID)
	if err != nil {
		metrics.PersistenceErrorsTotal.WithLabelValues("load").Inc()
		logx.Warn().Err(err).Str("thread_id", threadID).Msg("conversation store unavailable, continuing without history")
		return nil
	}
	if history == nil {
		return nil
	}
	return history.Messages
}

// Save replaces the thread's history with its trailing maxHistory entries.
// Failures are logged and swallowed.
func (cm *MessagesManager) Save(ctx context.Context, threadID string, history []*schema.Message) {
	if cm.conversationRepo == nil {
		return
	}
	if cm.maxHistory > 0 {
		history = trimTail(history, cm.maxHistory)
	}
	if err := cm.conversationRepo.SaveHistory(ctx, threadID, history); err != nil {
		metrics.PersistenceErrorsTotal.WithLabelValues("save").Inc()
		logx.Warn().Err(err).Str("thread_id", threadID).Int("messages", len(history)).Msg("failed to persist conversation history")
	}
}

// Clear drops a thread's history. Unlike Load and Save it reports failures.
func (cm *MessagesManager) Clear(ctx context.Context, threadID string) error {
	if cm.conversationRepo == nil {
		return nil
	}
	if err := cm.conversationRepo.ClearHistory(ctx, threadID); err != nil {
		metrics.PersistenceErrorsTotal.WithLabelValues("clear").Inc()
		return err
	}
	return nil
}

// =========== Stage windows ===========

func (cm *MessagesManager) IntentWindow(history []*schema.Message) []*schema.Message {
	return trimTail(history, cm.windows.Intent)
}

func (cm *MessagesManager) SQLWindow(history []*schema.Message) []*schema.Message {
	return trimTail(history, cm.windows.SQL)
}

func (cm *MessagesManager) SummaryWindow(history []*schema.Message) []*schema.Message {
	return trimTail(history, cm.windows.Summary)
}

func (cm *MessagesManager) ClarifyWindow(history []*schema.Message) []*schema.Message {
	return trimTail(history, cm.windows.Clarify)
}

// ====================== Helper function ======================

// trimTail copies the last maxTurns non-nil messages. Callers may append to
// the result without touching the source.
func trimTail(messages []*schema.Message, maxTurns int) []*schema.Message {
	if maxTurns <= 0 {
		return []*schema.Message{}
	}
	kept := make([]*schema.Message, 0, len(messages))
	for _, m := range messages {
		if m != nil {
			kept = append(kept, m)
		}
	}
	if len(kept) <= maxTurns {
		return kept
	}
	result := make([]*schema.Message, maxTurns)
	copy(result, kept[len(kept)-maxTurns:])
	return result
}
