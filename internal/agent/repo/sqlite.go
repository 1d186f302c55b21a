package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/jonboulle/clockwork"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/yekaditya11/Acma-Insights/internal/agent/model"
	errx "github.com/yekaditya11/Acma-Insights/internal/core/error"
	logx "github.com/yekaditya11/Acma-Insights/pkg/logger"
)

// ErrStoreClosed is returned when a closed store is used.
var ErrStoreClosed = errors.New("conversation store is closed")

// SQLiteConversationRepository persists one row per thread holding its
// messages as JSON. Rows older than ttl load as empty history.
type SQLiteConversationRepository struct {
	db     *sql.DB
	ttl    time.Duration
	clock  clockwork.Clock
	mu     sync.RWMutex
	closed bool
}

// SQLiteOption customises the SQLite repository.
type SQLiteOption func(*SQLiteConversationRepository)

// WithClock overrides the clock used for TTL bookkeeping.
func WithClock(c clockwork.Clock) SQLiteOption {
	return func(r *SQLiteConversationRepository) { r.clock = c }
}

// NewSQLiteConversationRepository opens (or creates) the database at path.
// Use ":memory:" for an ephemeral store.
func NewSQLiteConversationRepository(path string, ttl time.Duration, opts ...SQLiteOption) (*SQLiteConversationRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS conversation_history (
			thread_id TEXT PRIMARY KEY,
			messages BLOB NOT NULL,
			updated_at TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	r := &SQLiteConversationRepository{db: db, ttl: ttl, clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *SQLiteConversationRepository) LoadHistory(ctx context.Context, threadID string) (*model.ConversationHistory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	empty := &model.ConversationHistory{ThreadID: threadID, Messages: []*schema.Message{}}
	if r.closed {
		return nil, errx.WrapPersistence(ErrStoreClosed)
	}

	var (
		data      []byte
		updatedAt string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT messages, updated_at FROM conversation_history
		WHERE thread_id = ?
	`, threadID).Scan(&data, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return empty, nil
	}
	if err != nil {
		logx.Error().Err(err).Str("thread_id", threadID).Msg("failed to load conversation history from sqlite")
		return nil, errx.WrapPersistence(err)
	}

	if r.ttl > 0 {
		if ts, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil && r.clock.Since(ts) > r.ttl {
			return empty, nil
		}
	}

	var msgs []*schema.Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		logx.Error().Err(err).Str("thread_id", threadID).Msg("failed to unmarshal conversation history")
		return nil, fmt.Errorf("unmarshal history: %w", err)
	}
	empty.Messages = cloneMessages(msgs)
	return empty, nil
}

func (r *SQLiteConversationRepository) SaveHistory(ctx context.Context, threadID string, messages []*schema.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errx.WrapPersistence(ErrStoreClosed)
	}

	data, err := json.Marshal(cloneMessages(messages))
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO conversation_history (thread_id, messages, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(thread_id) DO UPDATE SET
			messages = excluded.messages,
			updated_at = excluded.updated_at
	`, threadID, data, r.clock.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		logx.Error().Err(err).Str("thread_id", threadID).Msg("failed to save conversation history to sqlite")
		return errx.WrapPersistence(err)
	}
	return nil
}

func (r *SQLiteConversationRepository) ClearHistory(ctx context.Context, threadID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errx.WrapPersistence(ErrStoreClosed)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM conversation_history WHERE thread_id = ?`, threadID); err != nil {
		logx.Error().Err(err).Str("thread_id", threadID).Msg("failed to delete conversation history from sqlite")
		return errx.WrapPersistence(err)
	}
	return nil
}

// Close releases the database handle.
func (r *SQLiteConversationRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	return r.db.Close()
}

var _ model.ConversationRepository = (*SQLiteConversationRepository)(nil)
