package nodes

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/yekaditya11/Acma-Insights/internal/agent/model"
	logx "github.com/yekaditya11/Acma-Insights/pkg/logger"
)

// toJSON renders v for a prompt variable, returning fallback when v cannot be encoded.
func toJSON(v any, fallback string) string {
	b, err := json.Marshal(v)
	if err != nil {
		logx.Warn().Err(err).Msg("failed to encode prompt variable")
		return fallback
	}
	return string(b)
}

// dumpState writes the state as indented JSON into dir. Failures only log.
func dumpState(dir, name string, s *model.ConversationState) {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		logx.Warn().Err(err).Str("file", name).Msg("failed to encode debug state")
		return
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logx.Warn().Err(err).Str("dir", dir).Msg("failed to create debug dir")
		return
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, b, 0o644); err != nil {
		logx.Warn().Err(err).Str("file", path).Msg("failed to write debug state")
	}
}
