package parsers

import (
	"strings"

	"github.com/yekaditya11/Acma-Insights/internal/agent/model"
)

// ParseIntent normalises classifier output. Anything other than the literal
// "general" becomes system_query; known is false when the raw value was
// outside the enumeration.
func ParseIntent(raw string) (intent model.Intent, known bool) {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch model.Intent(v) {
	case model.IntentGeneral:
		return model.IntentGeneral, true
	case model.IntentSystemQuery:
		return model.IntentSystemQuery, true
	default:
		return model.IntentSystemQuery, false
	}
}
