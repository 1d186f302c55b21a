package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	einomodel "github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"github.com/yekaditya11/Acma-Insights/internal/agent/model"
	logx "github.com/yekaditya11/Acma-Insights/pkg/logger"
)

const (
	ProviderGemini      = "gemini"
	ProviderOpenAI      = "openai"
	ProviderAzureOpenAI = "azure_openai"
	ProviderAnthropic   = "anthropic"
)

// ChatModelConfig holds the configuration for chat model creation
type ChatModelConfig struct {
	Provider     model.ProviderConfig
	IntentConfig *model.IntentModelConfig
	RespConfig   *model.ResponseModelConfig
}

// ChatModels holds the intent and response chat models
type ChatModels struct {
	Provider          string
	Intent            einomodel.BaseChatModel
	Response          einomodel.BaseChatModel
	IntentModelName   string
	ResponseModelName string
}

// NewChatModels creates both intent and response chat models for the configured provider
func NewChatModels(ctx context.Context, config ChatModelConfig) (*ChatModels, error) {
	if config.IntentConfig == nil || config.RespConfig == nil {
		return nil, fmt.Errorf("model configs are nil")
	}

	provider := strings.ToLower(strings.TrimSpace(config.Provider.Provider))
	if provider == "" {
		provider = ProviderGemini
	}

	var (
		intentModel, respModel einomodel.BaseChatModel
		err                    error
	)
	switch provider {
	case ProviderGemini:
		intentModel, respModel, err = newGeminiModels(ctx, config)
	case ProviderOpenAI, ProviderAzureOpenAI:
		intentModel, respModel, err = newOpenAIModels(ctx, config, provider == ProviderAzureOpenAI)
	case ProviderAnthropic:
		intentModel, respModel, err = newAnthropicModels(config)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", config.Provider.Provider)
	}
	if err != nil {
		return nil, err
	}

	logx.Debug().
		Str("provider", provider).
		Str("intent_model", config.IntentConfig.Model).
		Str("response_model", config.RespConfig.Model).
		Msg("Chat models initialised")

	return &ChatModels{
		Provider:          provider,
		Intent:            intentModel,
		Response:          respModel,
		IntentModelName:   config.IntentConfig.Model,
		ResponseModelName: config.RespConfig.Model,
	}, nil
}

func newGeminiModels(ctx context.Context, config ChatModelConfig) (einomodel.BaseChatModel, einomodel.BaseChatModel, error) {
	if config.Provider.GeminiAPIKey == "" {
		return nil, nil, fmt.Errorf("GEMINI_API_KEY is required for provider %s", ProviderGemini)
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  config.Provider.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.Provider.GeminiBaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.Provider.GeminiBaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	intentModel, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.IntentConfig.Model,
		Temperature: &config.IntentConfig.Temperature,
		MaxTokens:   &config.IntentConfig.MaxTokens,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  genai.Ptr(config.IntentConfig.ThinkingBudget),
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating intent model")
		return nil, nil, fmt.Errorf("error creating intent model: %w", err)
	}

	respModel, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.RespConfig.Model,
		Temperature: &config.RespConfig.Temperature,
		MaxTokens:   &config.RespConfig.MaxTokens,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  genai.Ptr(config.RespConfig.ThinkingBudget),
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating response model")
		return nil, nil, fmt.Errorf("error creating response model: %w", err)
	}

	return intentModel, respModel, nil
}

func newOpenAIModels(ctx context.Context, config ChatModelConfig, byAzure bool) (einomodel.BaseChatModel, einomodel.BaseChatModel, error) {
	if config.Provider.OpenAIAPIKey == "" {
		return nil, nil, fmt.Errorf("OPENAI_API_KEY is required for provider %s", config.Provider.Provider)
	}
	if byAzure && config.Provider.OpenAIBaseURL == "" {
		return nil, nil, fmt.Errorf("OPENAI_BASE_URL is required for provider %s", ProviderAzureOpenAI)
	}

	build := func(name string, maxTokens int, temperature float32) (*openai.ChatModel, error) {
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:      config.Provider.OpenAIAPIKey,
			BaseURL:     config.Provider.OpenAIBaseURL,
			APIVersion:  config.Provider.OpenAIVersion,
			ByAzure:     byAzure,
			Model:       name,
			MaxTokens:   &maxTokens,
			Temperature: &temperature,
		})
	}

	intentModel, err := build(config.IntentConfig.Model, config.IntentConfig.MaxTokens, config.IntentConfig.Temperature)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating intent model")
		return nil, nil, fmt.Errorf("error creating intent model: %w", err)
	}
	respModel, err := build(config.RespConfig.Model, config.RespConfig.MaxTokens, config.RespConfig.Temperature)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating response model")
		return nil, nil, fmt.Errorf("error creating response model: %w", err)
	}
	return intentModel, respModel, nil
}

func newAnthropicModels(config ChatModelConfig) (einomodel.BaseChatModel, einomodel.BaseChatModel, error) {
	if config.Provider.AnthropicAPIKey == "" {
		return nil, nil, fmt.Errorf("ANTHROPIC_API_KEY is required for provider %s", ProviderAnthropic)
	}
	intentModel := NewAnthropicChatModel(AnthropicConfig{
		APIKey:      config.Provider.AnthropicAPIKey,
		Model:       config.IntentConfig.Model,
		MaxTokens:   int64(config.IntentConfig.MaxTokens),
		Temperature: config.IntentConfig.Temperature,
	})
	respModel := NewAnthropicChatModel(AnthropicConfig{
		APIKey:      config.Provider.AnthropicAPIKey,
		Model:       config.RespConfig.Model,
		MaxTokens:   int64(config.RespConfig.MaxTokens),
		Temperature: config.RespConfig.Temperature,
	})
	return intentModel, respModel, nil
}
