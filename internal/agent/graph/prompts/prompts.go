package prompts

import (
	"context"
	"embed"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

// TemplateID identifies one of the fixed stage templates.
type TemplateID string

const (
	IntentClassification TemplateID = "intent_classification"
	Greeting             TemplateID = "greeting"
	TextToSQL            TemplateID = "text_to_sql"
	Clarification        TemplateID = "clarification"
	Summarizer           TemplateID = "summarizer"
	Visualization        TemplateID = "visualization"
)

// HistoryKey is the template variable holding prior conversation turns.
const HistoryKey = "history"

// All lists every template in workflow order.
var All = []TemplateID{IntentClassification, Greeting, TextToSQL, Clarification, Summarizer, Visualization}

//go:embed template/*.txt
var templateFS embed.FS

var (
	loadOnce  sync.Once
	templates map[TemplateID]prompt.ChatTemplate
	loadErr   error
)

func load() {
	templates = make(map[TemplateID]prompt.ChatTemplate, len(All))
	for _, id := range All {
		raw, err := templateFS.ReadFile("template/" + string(id) + ".txt")
		if err != nil {
			loadErr = fmt.Errorf("read template %s: %w", id, err)
			return
		}
		// History goes in as real chat turns ahead of the instruction message.
		templates[id] = prompt.FromMessages(
			schema.GoTemplate,
			schema.MessagesPlaceholder(HistoryKey, true),
			schema.UserMessage(string(raw)),
		)
	}
}

// Text returns the raw template body.
func Text(id TemplateID) (string, error) {
	raw, err := templateFS.ReadFile("template/" + string(id) + ".txt")
	if err != nil {
		return "", fmt.Errorf("unknown template %q: %w", id, err)
	}
	return string(raw), nil
}

// Render formats the template through the Eino prompt component so prompt
// callbacks fire, returning the history followed by the rendered instruction.
func Render(ctx context.Context, id TemplateID, vars map[string]any, history []*schema.Message) ([]*schema.Message, error) {
	loadOnce.Do(load)
	if loadErr != nil {
		return nil, loadErr
	}
	tpl, ok := templates[id]
	if !ok {
		return nil, fmt.Errorf("unknown template %q", id)
	}

	values := make(map[string]any, len(vars)+1)
	for k, v := range vars {
		values[k] = v
	}
	if history == nil {
		history = []*schema.Message{}
	}
	values[HistoryKey] = history

	msgs, err := tpl.Format(ctx, values)
	if err != nil {
		return nil, fmt.Errorf("%s prompt render: %w", id, err)
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("%s prompt render: empty result", id)
	}
	return msgs, nil
}
