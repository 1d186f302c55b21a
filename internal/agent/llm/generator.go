package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/schema"

	"github.com/yekaditya11/Acma-Insights/internal/agent/graph/prompts"
	"github.com/yekaditya11/Acma-Insights/internal/agent/model"
	"github.com/yekaditya11/Acma-Insights/internal/metrics"
	logx "github.com/yekaditya11/Acma-Insights/pkg/logger"
)

// ErrEmptyResponse is returned when a model answers with no content.
var ErrEmptyResponse = errors.New("empty model response")

// Generator renders a stage template with variables and prior turns and
// returns the generated text. Callers truncate history; implementations do not.
type Generator interface {
	Generate(ctx context.Context, id prompts.TemplateID, vars map[string]any, history []*schema.Message) (string, error)
}

// ChatGeneratorConfig wires chat models into a Generator.
type ChatGeneratorConfig struct {
	Models   *ChatModels
	Timeouts model.StageTimeouts
	// Handlers receive eino prompt and model callbacks for every call.
	Handlers []callbacks.Handler
}

// ChatGenerator implements Generator on top of eino chat models. Intent
// classification uses the intent model; every other stage uses the response model.
type ChatGenerator struct {
	models   *ChatModels
	timeouts map[prompts.TemplateID]time.Duration
	handlers []callbacks.Handler
}

var _ Generator = (*ChatGenerator)(nil)

func NewChatGenerator(cfg ChatGeneratorConfig) (*ChatGenerator, error) {
	if cfg.Models == nil || cfg.Models.Intent == nil || cfg.Models.Response == nil {
		return nil, fmt.Errorf("chat models are not properly initialized")
	}
	return &ChatGenerator{
		models:   cfg.Models,
		timeouts: StageTimeoutMap(cfg.Timeouts),
		handlers: cfg.Handlers,
	}, nil
}

// StageTimeoutMap maps each template to its configured timeout.
func StageTimeoutMap(t model.StageTimeouts) map[prompts.TemplateID]time.Duration {
	return map[prompts.TemplateID]time.Duration{
		prompts.IntentClassification: t.Intent,
		prompts.Greeting:             t.Greeting,
		prompts.TextToSQL:            t.SQL,
		prompts.Clarification:        t.Clarify,
		prompts.Summarizer:           t.Summary,
		prompts.Visualization:        t.Chart,
	}
}

func (g *ChatGenerator) Generate(ctx context.Context, id prompts.TemplateID, vars map[string]any, history []*schema.Message) (string, error) {
	chatModel, modelName := g.models.Response, g.models.ResponseModelName
	if id == prompts.IntentClassification {
		chatModel, modelName = g.models.Intent, g.models.IntentModelName
	}

	if timeout := g.timeouts[id]; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	promptCtx, modelCtx := ctx, ctx
	if len(g.handlers) > 0 {
		promptCtx = callbacks.InitCallbacks(ctx, &callbacks.RunInfo{
			Name:      string(id),
			Type:      "GoTemplate",
			Component: components.ComponentOfPrompt,
		}, g.handlers...)
		modelCtx = callbacks.InitCallbacks(ctx, &callbacks.RunInfo{
			Name:      string(id),
			Type:      g.models.Provider,
			Component: components.ComponentOfChatModel,
		}, g.handlers...)
	}

	msgs, err := prompts.Render(promptCtx, id, vars, history)
	if err != nil {
		return "", err
	}

	start := time.Now()
	out, err := chatModel.Generate(modelCtx, msgs)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		metrics.GenerationTotal.WithLabelValues(string(id), "error").Inc()
		logx.Warn().Err(err).
			Str("stage", string(id)).
			Str("model", modelName).
			Dur("duration", time.Since(start)).
			Msg("Text generation failed")
		return "", fmt.Errorf("%s generation: %w", id, err)
	}
	if out == nil {
		metrics.GenerationTotal.WithLabelValues(string(id), "empty").Inc()
		return "", fmt.Errorf("%s generation: %w", id, ErrEmptyResponse)
	}
	recordUsage(string(id), modelName, out)

	text := strings.TrimSpace(out.Content)
	if text == "" {
		metrics.GenerationTotal.WithLabelValues(string(id), "empty").Inc()
		logx.Warn().Str("stage", string(id)).Str("model", modelName).Msg("Model returned blank content")
		return "", fmt.Errorf("%s generation: %w", id, ErrEmptyResponse)
	}
	metrics.GenerationTotal.WithLabelValues(string(id), "ok").Inc()
	return text, nil
}

// recordUsage computes and logs usage cost for a model response.
func recordUsage(stage, modelName string, out *schema.Message) {
	if out.ResponseMeta == nil || out.ResponseMeta.Usage == nil {
		return
	}
	usage := out.ResponseMeta.Usage
	pricing := model.ResolvePricing(modelName)
	inC, outC, totalC := model.ComputeCost(usage, pricing)

	metrics.GenerationTokens.WithLabelValues(modelName, "prompt").Add(float64(usage.PromptTokens))
	metrics.GenerationTokens.WithLabelValues(modelName, "completion").Add(float64(usage.CompletionTokens))
	metrics.GenerationCostUSD.WithLabelValues(modelName).Add(totalC)

	logx.Debug().
		Str("stage", stage).
		Str("model", modelName).
		Int("prompt_tokens", usage.PromptTokens).
		Int("completion_tokens", usage.CompletionTokens).
		Int("total_tokens", usage.TotalTokens).
		Float64("input_cost_usd", inC).
		Float64("output_cost_usd", outC).
		Float64("total_cost_usd", totalC).
		Msg("LLM usage")
}
