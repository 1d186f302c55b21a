package observers

import (
	"context"
	"sort"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/prompt"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	logx "github.com/yekaditya11/Acma-Insights/pkg/logger"
)

// newPromptHandler builds a typed PromptCallbackHandler (not yet wrapped).
func newPromptHandler() *callbackHelper.PromptCallbackHandler {
	return &callbackHelper.PromptCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *prompt.CallbackInput) context.Context {
			if input == nil {
				return ctx
			}
			// variable values can hold whole result sets, only names are logged
			keys := make([]string, 0, len(input.Variables))
			for k := range input.Variables {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logx.Debug().Str("template", runName(info)).Strs("variables", keys).Msg("Prompt render started")
			return ctx
		},
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *prompt.CallbackOutput) context.Context {
			if output == nil || len(output.Result) == 0 {
				return ctx
			}
			last := output.Result[len(output.Result)-1]
			rendered := ""
			if last != nil {
				rendered = last.Content
			}
			logx.Debug().
				Str("template", runName(info)).
				Int("messages", len(output.Result)).
				Int("rendered_chars", len(rendered)).
				Msg("Prompt rendered")
			logx.Trace().Str("template", runName(info)).Str("rendered", rendered).Msg("Prompt text")
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Error().Err(err).Str("template", runName(info)).Msg("Prompt render failed")
			return ctx
		},
	}
}

// NewPromptCallbacks constructs a callbacks.Handler for prompt lifecycle events only.
func NewPromptCallbacks() einocb.Handler {
	return callbackHelper.NewHandlerHelper().
		Prompt(newPromptHandler()).
		Handler()
}
