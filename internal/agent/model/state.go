package model

import (
	"time"

	"github.com/cloudwego/eino/schema"
)

// Intent is the classification of a user question.
type Intent string

const (
	IntentGeneral     Intent = "general"
	IntentSystemQuery Intent = "system_query"
)

// Row is a single result row keyed by column name.
type Row = map[string]any

// QueryInput represents the input for processing user questions.
type QueryInput struct {
	ThreadID        string         `json:"thread_id"`
	Question        string         `json:"question"`
	SchemaDDL       string         `json:"schema_ddl,omitempty"`
	SchemaSemantics map[string]any `json:"schema_semantics,omitempty"`
}

// ConversationState is the unit of work flowing through the workflow.
// Nodes mutate it only through the setters below; it is owned by a single run.
type ConversationState struct {
	ThreadID           string            `json:"thread_id"`
	History            []*schema.Message `json:"history"`
	Question           string            `json:"question"`
	SchemaDDL          string            `json:"schema_ddl,omitempty"`
	Intent             Intent            `json:"intent"`
	SemanticInfo       map[string]any    `json:"semantic_info"`
	SQLQuery           string            `json:"sql_query"`
	QueryResult        []Row             `json:"query_result"`
	QueryColumns       []string          `json:"query_columns,omitempty"`
	QueryErrorMessage  string            `json:"query_error_message"`
	NeedsClarification bool              `json:"needs_clarification"`
	VisualizationData  map[string]any    `json:"visualization_data"`
	FinalAnswer        string            `json:"final_answer"`
}

// NewConversationState builds a fresh question-scoped state carrying the given history.
func NewConversationState(in QueryInput, history []*schema.Message) *ConversationState {
	semantics := in.SchemaSemantics
	if semantics == nil {
		semantics = map[string]any{}
	}
	h := make([]*schema.Message, 0, len(history)+3)
	for _, m := range history {
		if m != nil {
			h = append(h, m)
		}
	}
	return &ConversationState{
		ThreadID:          in.ThreadID,
		History:           h,
		Question:          in.Question,
		SchemaDDL:         in.SchemaDDL,
		SemanticInfo:      semantics,
		QueryResult:       []Row{},
		VisualizationData: map[string]any{},
	}
}

func (s *ConversationState) SetIntent(intent Intent) {
	s.Intent = intent
}

func (s *ConversationState) SetSQL(sql string) {
	s.SQLQuery = sql
}

// SetQueryResult records a successful execution and clears any previous failure.
// columns carries the result's column order when the executor knows it.
func (s *ConversationState) SetQueryResult(rows []Row, columns ...string) {
	if rows == nil {
		rows = []Row{}
	}
	s.QueryResult = rows
	s.QueryColumns = columns
	s.QueryErrorMessage = ""
	s.NeedsClarification = false
}

// SetExecutionError records a failed execution. An empty message is replaced
// so that the clarification branch always has something to work with.
func (s *ConversationState) SetExecutionError(message string) {
	if message == "" {
		message = "query execution failed"
	}
	s.QueryErrorMessage = message
	s.NeedsClarification = true
}

func (s *ConversationState) SetFinalAnswer(answer string) {
	s.FinalAnswer = answer
}

func (s *ConversationState) SetVisualization(spec map[string]any) {
	if spec == nil {
		spec = map[string]any{}
	}
	s.VisualizationData = spec
}

func (s *ConversationState) AppendHistory(msgs ...*schema.Message) {
	s.History = append(s.History, msgs...)
}

// Bundle assembles the answer returned to callers.
func (s *ConversationState) Bundle() AnswerBundle {
	return AnswerBundle{
		ThreadID:          s.ThreadID,
		Question:          s.Question,
		Intent:            s.Intent,
		SQLQuery:          s.SQLQuery,
		QueryResult:       s.QueryResult,
		FinalAnswer:       s.FinalAnswer,
		VisualizationData: s.VisualizationData,
	}
}

// AnswerBundle is the terminal output of a run.
type AnswerBundle struct {
	ThreadID          string         `json:"thread_id"`
	Question          string         `json:"question"`
	Intent            Intent         `json:"intent"`
	SQLQuery          string         `json:"sql_query"`
	QueryResult       []Row          `json:"query_result"`
	FinalAnswer       string         `json:"final_answer"`
	VisualizationData map[string]any `json:"visualization_data"`
}

type StreamEventType string

const (
	EventNodeUpdate StreamEventType = "node_update"
	EventFinal      StreamEventType = "final"
)

// StreamEvent reports progress in streaming mode. Timestamps marshal as RFC 3339.
type StreamEvent struct {
	Type      StreamEventType `json:"type"`
	Node      string          `json:"node,omitempty"`
	ThreadID  string          `json:"thread_id"`
	Data      any             `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}
