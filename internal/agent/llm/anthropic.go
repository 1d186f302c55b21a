package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// AnthropicConfig configures the Anthropic chat model adapter.
type AnthropicConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int64
	Temperature float32
}

// AnthropicChatModel adapts the Anthropic Messages API to eino's BaseChatModel.
type AnthropicChatModel struct {
	client      anthropic.Client
	modelName   string
	maxTokens   int64
	temperature float32
}

var _ einomodel.BaseChatModel = (*AnthropicChatModel)(nil)

func NewAnthropicChatModel(cfg AnthropicConfig) *AnthropicChatModel {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &AnthropicChatModel{
		client:      anthropic.NewClient(opts...),
		modelName:   cfg.Model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
	}
}

func (m *AnthropicChatModel) GetType() string { return "Anthropic" }

// IsCallbacksEnabled reports that the adapter emits model callbacks itself.
func (m *AnthropicChatModel) IsCallbacksEnabled() bool { return true }

func (m *AnthropicChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (out *schema.Message, err error) {
	options := einomodel.GetCommonOptions(&einomodel.Options{
		Model:       &m.modelName,
		MaxTokens:   ptr(int(m.maxTokens)),
		Temperature: &m.temperature,
	}, opts...)

	ctx = callbacks.EnsureRunInfo(ctx, m.GetType(), components.ComponentOfChatModel)
	ctx = callbacks.OnStart(ctx, &einomodel.CallbackInput{
		Messages: input,
		Config: &einomodel.Config{
			Model:       *options.Model,
			MaxTokens:   *options.MaxTokens,
			Temperature: *options.Temperature,
		},
	})
	defer func() {
		if err != nil {
			callbacks.OnError(ctx, err)
		}
	}()

	system, messages := toAnthropicMessages(input)
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(*options.Model),
		MaxTokens:   int64(*options.MaxTokens),
		Messages:    messages,
		Temperature: anthropic.Float(float64(*options.Temperature)),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Type: "text", Text: system}}
	}

	msg, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic API error: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("no text content in response")
	}

	usage := &schema.TokenUsage{
		PromptTokens:     int(msg.Usage.InputTokens),
		CompletionTokens: int(msg.Usage.OutputTokens),
		TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
	}
	out = schema.AssistantMessage(text.String(), nil)
	out.ResponseMeta = &schema.ResponseMeta{
		FinishReason: string(msg.StopReason),
		Usage:        usage,
	}

	callbacks.OnEnd(ctx, &einomodel.CallbackOutput{
		Message: out,
		TokenUsage: &einomodel.TokenUsage{
			PromptTokens:     usage.PromptTokens,
			CompletionTokens: usage.CompletionTokens,
			TotalTokens:      usage.TotalTokens,
		},
	})
	return out, nil
}

// Stream returns the full response as a single chunk.
func (m *AnthropicChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	out, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{out}), nil
}

// toAnthropicMessages folds system messages into the system prompt and merges
// consecutive turns of the same role. A leading assistant turn is preceded by
// a short user turn since the conversation must open with the user.
func toAnthropicMessages(input []*schema.Message) (string, []anthropic.MessageParam) {
	var systemParts []string
	type turn struct {
		role schema.RoleType
		text []string
	}
	var turns []turn
	for _, msg := range input {
		if msg == nil || strings.TrimSpace(msg.Content) == "" {
			continue
		}
		switch msg.Role {
		case schema.System:
			systemParts = append(systemParts, msg.Content)
			continue
		case schema.User, schema.Assistant:
		default:
			continue
		}
		if n := len(turns); n > 0 && turns[n-1].role == msg.Role {
			turns[n-1].text = append(turns[n-1].text, msg.Content)
			continue
		}
		turns = append(turns, turn{role: msg.Role, text: []string{msg.Content}})
	}

	messages := make([]anthropic.MessageParam, 0, len(turns)+1)
	if len(turns) > 0 && turns[0].role == schema.Assistant {
		messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock("Earlier in this conversation:")))
	}
	for _, t := range turns {
		block := anthropic.NewTextBlock(strings.Join(t.text, "\n\n"))
		if t.role == schema.Assistant {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}
	return strings.Join(systemParts, "\n\n"), messages
}

func ptr[T any](v T) *T {
	return &v
}
