package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/yekaditya11/Acma-Insights/internal/agent/graph/conversations"
	"github.com/yekaditya11/Acma-Insights/internal/agent/graph/nodes"
	"github.com/yekaditya11/Acma-Insights/internal/agent/graph/observers"
	"github.com/yekaditya11/Acma-Insights/internal/agent/llm"
	"github.com/yekaditya11/Acma-Insights/internal/agent/model"
	"github.com/yekaditya11/Acma-Insights/internal/agent/sqlexec"
	errx "github.com/yekaditya11/Acma-Insights/internal/core/error"
	"github.com/yekaditya11/Acma-Insights/internal/metrics"
	logx "github.com/yekaditya11/Acma-Insights/pkg/logger"
)

// Runner executes the workflow for one question at a time per thread.
type Runner interface {
	Run(ctx context.Context, in model.QueryInput) (model.AnswerBundle, error)
	RunStream(ctx context.Context, in model.QueryInput) *Stream
	ClearHistory(ctx context.Context, threadID string) error
}

// Config holds everything needed to build the workflow end-to-end, chat
// models included. It is a convenience layer over GraphConfig.
type Config struct {
	Provider      model.ProviderConfig
	IntentModel   model.IntentModelConfig
	ResponseModel model.ResponseModelConfig
	Timeouts      model.StageTimeouts
	Retry         model.RetryConfig
	Conversation  model.ConversationConfig
	Workflow      model.WorkflowConfig

	// ConversationRepo may be nil, in which case every run starts without history.
	ConversationRepo model.ConversationRepository
	Executor         sqlexec.Executor
}

// GraphConfig holds the collaborators of a workflow.
type GraphConfig struct {
	Generator       llm.Generator
	Executor        sqlexec.Executor
	MessagesManager *conversations.MessagesManager
	TableName       string
	DebugDir        string
	// Clock stamps stream events; defaults to the real clock.
	Clock clockwork.Clock
}

// terminal marks the end of a run in the transition table.
const terminal = ""

// entryNode is where every run starts.
const entryNode = nodes.NodeIntentClassification

// transitions maps each node to the function choosing its successor.
var transitions = map[string]func(*model.ConversationState) string{
	nodes.NodeIntentClassification: func(s *model.ConversationState) string {
		if s.Intent == model.IntentGeneral {
			return nodes.NodeGreeting
		}
		return nodes.NodeTextToSQL
	},
	nodes.NodeTextToSQL: func(*model.ConversationState) string { return nodes.NodeExecuteSQLQuery },
	nodes.NodeExecuteSQLQuery: func(s *model.ConversationState) string {
		if s.NeedsClarification {
			return nodes.NodeClarificationAgent
		}
		return nodes.NodeSummarizer
	},
	nodes.NodeSummarizer:         func(*model.ConversationState) string { return nodes.NodeVisualization },
	nodes.NodeClarificationAgent: func(*model.ConversationState) string { return terminal },
	nodes.NodeVisualization:      func(*model.ConversationState) string { return terminal },
	nodes.NodeGreeting:           func(*model.ConversationState) string { return terminal },
}

// Workflow drives a ConversationState through the node graph.
type Workflow struct {
	nodes    map[string]nodes.Node
	messages *conversations.MessagesManager
	clock    clockwork.Clock
}

var _ Runner = (*Workflow)(nil)

// BuildWorkflow constructs chat models and the generator, then the workflow.
func BuildWorkflow(ctx context.Context, cfg Config) (*Workflow, error) {
	if cfg.Executor == nil {
		return nil, fmt.Errorf("sql executor is nil")
	}

	cms, err := llm.NewChatModels(ctx, llm.ChatModelConfig{
		Provider:     cfg.Provider,
		IntentConfig: &cfg.IntentModel,
		RespConfig:   &cfg.ResponseModel,
	})
	if err != nil {
		return nil, err
	}

	gen, err := llm.NewChatGenerator(llm.ChatGeneratorConfig{
		Models:   cms,
		Timeouts: cfg.Timeouts,
		Handlers: []callbacks.Handler{observers.NewAllCallbacks()},
	})
	if err != nil {
		return nil, err
	}

	wf, err := NewWorkflow(GraphConfig{
		Generator:       llm.WithRetry(gen, cfg.Retry.MaxRetries, cfg.Retry.Initial),
		Executor:        cfg.Executor,
		MessagesManager: conversations.NewMessagesManager(cfg.ConversationRepo, cfg.Conversation),
		TableName:       cfg.Workflow.TableName,
		DebugDir:        cfg.Workflow.DebugDir,
	})
	if err != nil {
		return nil, err
	}

	logx.Debug().
		Str("provider", cms.Provider).
		Str("intent_model", cms.IntentModelName).
		Str("response_model", cms.ResponseModelName).
		Bool("stateful", cfg.ConversationRepo != nil).
		Msg("Workflow built successfully")
	return wf, nil
}

// NewWorkflow validates the config and wires every node.
func NewWorkflow(cfg GraphConfig) (*Workflow, error) {
	if cfg.MessagesManager == nil {
		cfg.MessagesManager = conversations.NewMessagesManager(nil, model.ConversationConfig{})
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.TableName == "" {
		cfg.TableName = "supplier_kpi_monthly"
	}

	all, err := nodes.Build(nodes.Deps{
		Generator: cfg.Generator,
		Executor:  cfg.Executor,
		Messages:  cfg.MessagesManager,
		TableName: cfg.TableName,
		DebugDir:  cfg.DebugDir,
	})
	if err != nil {
		return nil, err
	}
	for name := range transitions {
		if _, ok := all[name]; !ok {
			return nil, fmt.Errorf("no node registered for %q", name)
		}
	}

	return &Workflow{nodes: all, messages: cfg.MessagesManager, clock: cfg.Clock}, nil
}

// Run executes the workflow to a terminal node and returns the answer.
func (w *Workflow) Run(ctx context.Context, in model.QueryInput) (model.AnswerBundle, error) {
	state, err := w.prepare(ctx, in)
	if err != nil {
		return model.AnswerBundle{}, err
	}
	if err := w.drive(ctx, state, nil); err != nil {
		return model.AnswerBundle{ThreadID: state.ThreadID}, err
	}
	w.finish(ctx, state)
	return state.Bundle(), nil
}

// ClearHistory forgets a thread's persisted history.
func (w *Workflow) ClearHistory(ctx context.Context, threadID string) error {
	if strings.TrimSpace(threadID) == "" {
		return errx.InvalidInput("thread_id is required")
	}
	return w.messages.Clear(ctx, threadID)
}

// prepare validates the input and builds a fresh state carrying the thread's history.
func (w *Workflow) prepare(ctx context.Context, in model.QueryInput) (*model.ConversationState, error) {
	in.Question = strings.TrimSpace(in.Question)
	if in.Question == "" {
		return nil, errx.InvalidInput("question is required")
	}
	if in.ThreadID == "" {
		in.ThreadID = uuid.NewString()
	}
	history := w.messages.Load(ctx, in.ThreadID)
	return model.NewConversationState(in, history), nil
}

// drive runs nodes from the entry node until a terminal transition. onNode is
// called after each node completes, in execution order.
func (w *Workflow) drive(ctx context.Context, s *model.ConversationState, onNode func(name string)) (err error) {
	started := time.Now()
	defer func() {
		outcome := outcomeOf(s, err)
		intent := string(s.Intent)
		if intent == "" {
			intent = "unknown"
		}
		metrics.WorkflowRunsTotal.WithLabelValues(intent, outcome).Inc()
		logx.Info().
			Str("thread_id", s.ThreadID).
			Str("intent", intent).
			Str("outcome", outcome).
			Dur("duration", time.Since(started)).
			Msg("Workflow run finished")
	}()

	current := entryNode
	// every path through the table is acyclic, so len(transitions) bounds the steps
	for step := 0; current != terminal; step++ {
		if step >= len(transitions) {
			return fmt.Errorf("workflow exceeded %d steps at %q", len(transitions), current)
		}
		node, ok := w.nodes[current]
		if !ok {
			return fmt.Errorf("unknown node %q", current)
		}

		nodeStart := time.Now()
		err := node(ctx, s)
		elapsed := time.Since(nodeStart)
		metrics.WorkflowNodeDuration.WithLabelValues(current).Observe(elapsed.Seconds())
		if err != nil {
			logx.Error().Err(err).Str("thread_id", s.ThreadID).Str("node", current).Dur("duration", elapsed).Msg("Node failed")
			return err
		}
		logx.Debug().Str("thread_id", s.ThreadID).Str("node", current).Dur("duration", elapsed).Msg("Node completed")

		if onNode != nil {
			onNode(current)
		}
		current = transitions[current](s)
	}
	return nil
}

// finish persists the history of a successful run, even when the caller has
// already gone away.
func (w *Workflow) finish(ctx context.Context, s *model.ConversationState) {
	w.messages.Save(context.WithoutCancel(ctx), s.ThreadID, s.History)
}

func outcomeOf(s *model.ConversationState, err error) string {
	switch {
	case err != nil:
		return "failed"
	case s.Intent == model.IntentGeneral:
		return "greeted"
	case s.NeedsClarification:
		return "clarified"
	default:
		return "answered"
	}
}
