package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/yekaditya11/Acma-Insights/internal/agent/graph"
	"github.com/yekaditya11/Acma-Insights/internal/agent/model"
	"github.com/yekaditya11/Acma-Insights/internal/agent/repo"
	"github.com/yekaditya11/Acma-Insights/internal/agent/semantics"
	"github.com/yekaditya11/Acma-Insights/internal/agent/sqlexec"
	logx "github.com/yekaditya11/Acma-Insights/pkg/logger"
	_ "modernc.org/sqlite"
)

// introspectSchema is the Postgres schema holding the KPI table.
const introspectSchema = "public"

// app owns the long-lived collaborators shared by the commands.
type app struct {
	workflow  *graph.Workflow
	semantics semantics.Provider
	closers   []func() error
}

func newApp(ctx context.Context, cfg *AppConfig) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if a.semantics, err = newSemanticsProvider(ctx, cfg); err != nil {
		return nil, err
	}

	exec, err := a.newExecutor(cfg)
	if err != nil {
		return nil, err
	}

	convRepo, err := a.newConversationRepo(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a.workflow, err = graph.BuildWorkflow(ctx, graph.Config{
		Provider:         cfg.Provider,
		IntentModel:      cfg.IntentModel,
		ResponseModel:    cfg.ResponseModel,
		Timeouts:         cfg.Timeouts,
		Retry:            cfg.Retry,
		Conversation:     cfg.Conversation,
		Workflow:         cfg.Workflow,
		ConversationRepo: convRepo,
		Executor:         exec,
	})
	if err != nil {
		return nil, fmt.Errorf("build workflow: %w", err)
	}
	return a, nil
}

// Close releases every client opened by newApp, newest first.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logx.Warn().Err(err).Msg("Failed to close resource")
		}
	}
	a.closers = nil
}

func (a *app) newExecutor(cfg *AppConfig) (sqlexec.Executor, error) {
	switch strings.ToLower(cfg.Data.Backend) {
	case "", "postgres":
		if !cfg.Postgres.Enabled() {
			return nil, errors.New("POSTGRES_URL is required for the postgres data backend")
		}
		return sqlexec.NewPgExecutor(cfg.Postgres), nil
	case "sqlite":
		db, err := sql.Open("sqlite", cfg.Data.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite data: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		return sqlexec.NewDBExecutor(db, "sqlite"), nil
	default:
		return nil, fmt.Errorf("unknown DATA_BACKEND %q", cfg.Data.Backend)
	}
}

// newConversationRepo returns a nil repository for the "none" store, which
// makes every run stateless.
func (a *app) newConversationRepo(ctx context.Context, cfg *AppConfig) (model.ConversationRepository, error) {
	conv := cfg.Conversation
	switch strings.ToLower(conv.Store) {
	case "", "none":
		return nil, nil
	case "memory":
		return repo.NewMemoryConversationRepository(), nil
	case "redis":
		rdb, err := cfg.Redis.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("initialise redis client: %w", err)
		}
		a.closers = append(a.closers, rdb.Close)
		logx.Info().Msg("Connected to Redis successfully")
		return repo.NewRedisConversationRepository(rdb, conv.TTL), nil
	case "sqlite":
		store, err := repo.NewSQLiteConversationRepository(conv.SQLitePath, conv.TTL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown CONVERSATION_STORE %q", conv.Store)
	}
}

// newSemanticsProvider serves the embedded snapshot, or a cached live view
// of the table when introspection is enabled.
func newSemanticsProvider(ctx context.Context, cfg *AppConfig) (semantics.Provider, error) {
	static, err := semantics.NewStaticProvider(cfg.Semantics.File)
	if err != nil {
		return nil, fmt.Errorf("load semantics: %w", err)
	}
	if !cfg.Semantics.Introspect {
		return static, nil
	}
	if !cfg.Postgres.Enabled() {
		return nil, errors.New("SEMANTICS_INTROSPECT requires POSTGRES_URL")
	}

	base, err := static.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	intro := semantics.NewIntrospector(cfg.Postgres.Connect, introspectSchema, cfg.Workflow.TableName, cfg.Semantics.SampleLimit)
	return semantics.NewCachedProvider(intro, base, cfg.Semantics.CacheTTL), nil
}

func queryInput(ctx context.Context, p semantics.Provider, threadID, question string) (model.QueryInput, error) {
	snap, err := p.Snapshot(ctx)
	if err != nil {
		return model.QueryInput{}, err
	}
	sem, err := snap.Semantics.Map()
	if err != nil {
		return model.QueryInput{}, fmt.Errorf("encode semantics: %w", err)
	}
	if threadID == "" {
		threadID = uuid.NewString()
	}
	return model.QueryInput{
		ThreadID:        threadID,
		Question:        question,
		SchemaDDL:       snap.DDL,
		SchemaSemantics: sem,
	}, nil
}
