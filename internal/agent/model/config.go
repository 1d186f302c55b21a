package model

import "time"

// ================ Config ================
type ProviderConfig struct {
	Provider        string `envconfig:"LLM_PROVIDER" default:"gemini"`
	GeminiAPIKey    string `envconfig:"GEMINI_API_KEY"`
	GeminiBaseURL   string `envconfig:"GEMINI_BASE_URL"`
	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL   string `envconfig:"OPENAI_BASE_URL"`
	OpenAIVersion   string `envconfig:"OPENAI_API_VERSION"`
	AnthropicAPIKey string `envconfig:"ANTHROPIC_API_KEY"`
}

type IntentModelConfig struct {
	Model       string  `envconfig:"INTENT_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int     `envconfig:"INTENT_MAX_TOKENS" default:"64"`
	Temperature float32 `envconfig:"INTENT_TEMPERATURE" default:"0"`
	// ThinkingBudget applies to Gemini only; 0 disables thinking.
	ThinkingBudget int32 `envconfig:"INTENT_THINKING_BUDGET" default:"0"`
}

type ResponseModelConfig struct {
	Model       string  `envconfig:"RESPONSE_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"RESPONSE_MAX_TOKENS" default:"2000"`
	Temperature float32 `envconfig:"RESPONSE_TEMPERATURE" default:"0.2"`
	// ThinkingBudget applies to Gemini only; 0 disables thinking.
	ThinkingBudget int32 `envconfig:"RESPONSE_THINKING_BUDGET" default:"1024"`
}

type ConversationConfig struct {
	Store      string        `envconfig:"CONVERSATION_STORE" default:"memory"`
	TTL        time.Duration `envconfig:"CONVERSATION_TTL" default:"24h"`
	MaxHistory int           `envconfig:"CONVERSATION_MAX_HISTORY" default:"20"`
	SQLitePath string        `envconfig:"CONVERSATION_SQLITE_PATH" default:"conversations.db"`
	Windows    HistoryWindows
}

// HistoryWindows bounds how many trailing history entries each stage sees.
type HistoryWindows struct {
	Intent  int `envconfig:"CONVERSATION_INTENT_TURNS" default:"6"`
	SQL     int `envconfig:"CONVERSATION_SQL_TURNS" default:"6"`
	Summary int `envconfig:"CONVERSATION_SUMMARY_TURNS" default:"1"`
	Clarify int `envconfig:"CONVERSATION_CLARIFY_TURNS" default:"2"`
}

// StageTimeouts bounds each text generation call.
type StageTimeouts struct {
	Intent   time.Duration `envconfig:"TIMEOUT_INTENT" default:"25s"`
	Greeting time.Duration `envconfig:"TIMEOUT_GREETING" default:"25s"`
	SQL      time.Duration `envconfig:"TIMEOUT_SQL" default:"60s"`
	Clarify  time.Duration `envconfig:"TIMEOUT_CLARIFY" default:"30s"`
	Summary  time.Duration `envconfig:"TIMEOUT_SUMMARY" default:"60s"`
	Chart    time.Duration `envconfig:"TIMEOUT_CHART" default:"45s"`
}

type RetryConfig struct {
	MaxRetries int           `envconfig:"LLM_RETRY_MAX" default:"0"`
	Initial    time.Duration `envconfig:"LLM_RETRY_INITIAL" default:"500ms"`
}

type WorkflowConfig struct {
	TableName string `envconfig:"WORKFLOW_TABLE_NAME" default:"supplier_kpi_monthly"`
	DebugDir  string `envconfig:"WORKFLOW_DEBUG_DIR"`
}

type SemanticsConfig struct {
	File        string        `envconfig:"SEMANTICS_FILE"`
	Introspect  bool          `envconfig:"SEMANTICS_INTROSPECT" default:"false"`
	CacheTTL    time.Duration `envconfig:"SEMANTICS_CACHE_TTL" default:"10m"`
	SampleLimit int           `envconfig:"SEMANTICS_SAMPLE_LIMIT" default:"25"`
}

type ServerConfig struct {
	Addr        string   `envconfig:"SERVER_ADDR" default:":8005"`
	CORSOrigins []string `envconfig:"SERVER_CORS_ORIGINS" default:"*"`
}

// DataConfig selects where generated SQL runs. The sqlite backend is meant
// for local runs against a copy of the KPI table.
type DataConfig struct {
	Backend    string `envconfig:"DATA_BACKEND" default:"postgres"`
	SQLitePath string `envconfig:"DATA_SQLITE_PATH" default:"kpi.db"`
}
