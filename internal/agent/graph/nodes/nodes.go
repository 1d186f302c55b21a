package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"

	"github.com/yekaditya11/Acma-Insights/internal/agent/graph/charts"
	"github.com/yekaditya11/Acma-Insights/internal/agent/graph/conversations"
	"github.com/yekaditya11/Acma-Insights/internal/agent/graph/parsers"
	"github.com/yekaditya11/Acma-Insights/internal/agent/graph/prompts"
	"github.com/yekaditya11/Acma-Insights/internal/agent/llm"
	"github.com/yekaditya11/Acma-Insights/internal/agent/model"
	"github.com/yekaditya11/Acma-Insights/internal/agent/sqlexec"
	errx "github.com/yekaditya11/Acma-Insights/internal/core/error"
	"github.com/yekaditya11/Acma-Insights/internal/metrics"
	logx "github.com/yekaditya11/Acma-Insights/pkg/logger"
)

// Node names, also used as stream event labels.
const (
	NodeIntentClassification = "intent_classification"
	NodeGreeting             = "greeting"
	NodeTextToSQL            = "text_to_sql"
	NodeExecuteSQLQuery      = "execute_sql_query"
	NodeClarificationAgent   = "clarification_agent"
	NodeSummarizer           = "summarizer"
	NodeVisualization        = "visualization"
)

// Node mutates the state of a single run. A returned error aborts the run.
type Node func(ctx context.Context, state *model.ConversationState) error

// Deps are the collaborators shared by every node.
type Deps struct {
	Generator llm.Generator
	Executor  sqlexec.Executor
	Messages  *conversations.MessagesManager
	TableName string
	// DebugDir receives intent.json after classification when set.
	DebugDir string
}

// NewIntentClassificationNode classifies the question. Labels other than
// "general" route to the query path.
func NewIntentClassificationNode(d Deps) Node {
	return func(ctx context.Context, s *model.ConversationState) error {
		raw, err := d.Generator.Generate(ctx, prompts.IntentClassification, map[string]any{
			"question": s.Question,
		}, d.Messages.IntentWindow(s.History))
		if err != nil {
			return errx.WrapGeneration(NodeIntentClassification, err)
		}

		intent, known := parsers.ParseIntent(raw)
		if !known {
			logx.Warn().
				Str("thread_id", s.ThreadID).
				Str("label", raw).
				Msg("Unexpected intent label, treating as system_query")
		}
		s.SetIntent(intent)

		if d.DebugDir != "" {
			dumpState(d.DebugDir, "intent.json", s)
		}
		return nil
	}
}

// NewGreetingNode answers small talk. It sees no history and touches no data.
func NewGreetingNode(d Deps) Node {
	return func(ctx context.Context, s *model.ConversationState) error {
		answer, err := d.Generator.Generate(ctx, prompts.Greeting, map[string]any{
			"question": s.Question,
		}, nil)
		if err != nil {
			return errx.WrapGeneration(NodeGreeting, err)
		}
		s.SetFinalAnswer(answer)
		return nil
	}
}

// NewTextToSQLNode generates one statement and records the question and the
// statement as a history pair.
func NewTextToSQLNode(d Deps) Node {
	return func(ctx context.Context, s *model.ConversationState) error {
		raw, err := d.Generator.Generate(ctx, prompts.TextToSQL, map[string]any{
			"question":      s.Question,
			"ddl":           s.SchemaDDL,
			"semantic_info": toJSON(s.SemanticInfo, "{}"),
			"table_name":    d.TableName,
		}, d.Messages.SQLWindow(s.History))
		if err != nil {
			return errx.WrapGeneration(NodeTextToSQL, err)
		}

		sql := parsers.CleanSQL(raw)
		s.SetSQL(sql)
		s.AppendHistory(schema.UserMessage(s.Question), schema.AssistantMessage(sql, nil))

		logx.Debug().Str("thread_id", s.ThreadID).Str("sql", sql).Msg("Generated SQL")
		return nil
	}
}

// NewExecuteSQLNode runs the generated statement. Failures are recorded on the
// state for the clarification branch and never abort the run.
func NewExecuteSQLNode(d Deps) Node {
	return func(ctx context.Context, s *model.ConversationState) error {
		res, err := d.Executor.Execute(ctx, s.SQLQuery)
		if err != nil {
			execErr := sqlexec.AsExecutionError(err)
			s.SetExecutionError(execErr.Message)
			logx.Info().
				Str("thread_id", s.ThreadID).
				Str("error", execErr.Message).
				Msg("SQL execution failed, routing to clarification")
			return nil
		}
		if res == nil {
			s.SetQueryResult(nil)
			return nil
		}
		s.SetQueryResult(res.Rows, res.Columns...)
		return nil
	}
}

// NewClarificationNode asks the user for a more specific question after a
// failed execution.
func NewClarificationNode(d Deps) Node {
	return func(ctx context.Context, s *model.ConversationState) error {
		answer, err := d.Generator.Generate(ctx, prompts.Clarification, map[string]any{
			"question":      s.Question,
			"error_message": s.QueryErrorMessage,
		}, d.Messages.ClarifyWindow(s.History))
		if err != nil {
			return errx.WrapGeneration(NodeClarificationAgent, err)
		}
		s.SetFinalAnswer(answer)
		return nil
	}
}

// NewSummarizerNode writes the business summary. Only the summary is added to
// history, never the raw rows.
func NewSummarizerNode(d Deps) Node {
	return func(ctx context.Context, s *model.ConversationState) error {
		answer, err := d.Generator.Generate(ctx, prompts.Summarizer, map[string]any{
			"question":     s.Question,
			"query_result": toJSON(s.QueryResult, "[]"),
			"table_name":   d.TableName,
		}, d.Messages.SummaryWindow(s.History))
		if err != nil {
			return errx.WrapGeneration(NodeSummarizer, err)
		}
		s.SetFinalAnswer(answer)
		s.AppendHistory(schema.AssistantMessage(answer, nil))
		return nil
	}
}

// NewVisualizationNode derives a chart spec. Unusable model output, including
// a failed call, falls back to the deterministic builder; this node never
// aborts the run.
func NewVisualizationNode(d Deps) Node {
	return func(ctx context.Context, s *model.ConversationState) error {
		if len(s.QueryResult) == 0 {
			s.SetVisualization(map[string]any{})
			return nil
		}

		raw, err := d.Generator.Generate(ctx, prompts.Visualization, map[string]any{
			"question":     s.Question,
			"query_result": toJSON(s.QueryResult, "[]"),
		}, d.Messages.SummaryWindow(s.History))
		if err != nil {
			logx.Warn().Err(err).Str("thread_id", s.ThreadID).Msg("Chart generation failed, using basic chart")
			s.SetVisualization(fallbackChart(s))
			return nil
		}

		spec, err := parsers.ParseChartSpec(raw)
		if err != nil {
			logx.Debug().Err(err).Str("thread_id", s.ThreadID).Msg("Chart spec unusable, using basic chart")
			s.SetVisualization(fallbackChart(s))
			return nil
		}
		s.SetVisualization(spec)
		return nil
	}
}

func fallbackChart(s *model.ConversationState) map[string]any {
	metrics.ChartFallbacksTotal.Inc()
	return charts.BuildBasic(s.QueryResult, s.Question, s.QueryColumns...)
}

// Build returns every node keyed by name.
func Build(d Deps) (map[string]Node, error) {
	if d.Generator == nil {
		return nil, fmt.Errorf("nodes: generator is required")
	}
	if d.Executor == nil {
		return nil, fmt.Errorf("nodes: executor is required")
	}
	if d.Messages == nil {
		d.Messages = conversations.NewMessagesManager(nil, model.ConversationConfig{})
	}
	return map[string]Node{
		NodeIntentClassification: NewIntentClassificationNode(d),
		NodeGreeting:             NewGreetingNode(d),
		NodeTextToSQL:            NewTextToSQLNode(d),
		NodeExecuteSQLQuery:      NewExecuteSQLNode(d),
		NodeClarificationAgent:   NewClarificationNode(d),
		NodeSummarizer:           NewSummarizerNode(d),
		NodeVisualization:        NewVisualizationNode(d),
	}, nil
}
