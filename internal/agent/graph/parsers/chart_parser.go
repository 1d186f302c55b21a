package parsers

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	logx "github.com/yekaditya11/Acma-Insights/pkg/logger"
)

// maxChartLen caps the generated chart text we are willing to scan.
const maxChartLen = 256 * 1024

var (
	ErrEmptyChart   = errors.New("chart spec is empty")
	ErrInvalidChart = errors.New("chart spec is not a json object")
	ErrChartTooBig  = errors.New("chart spec too large")
)

// ParseChartSpec parses generated chart output into a non-empty mapping.
// A strict parse is tried first, then the text is unwrapped from code fences
// and scanned for the first balanced object. Any failure is returned so the
// caller can fall back to a deterministic chart.
func ParseChartSpec(content string) (spec map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "chart_parser").Msgf("panic recovered: %v", r)
			spec = nil
			err = panicError(r)
		}
	}()

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyChart
	}
	if len(content) > maxChartLen {
		return nil, ErrChartTooBig
	}

	if spec, ok := decodeObject(content); ok {
		return nonEmpty(spec)
	}

	candidate := content
	if fenced := extractFenced(content, "json"); fenced != "" {
		candidate = fenced
		if spec, ok := decodeObject(candidate); ok {
			return nonEmpty(spec)
		}
	}
	if start := strings.Index(candidate, "{"); start != -1 {
		if obj := extractJSONObject(candidate, start); obj != "" {
			if spec, ok := decodeObject(obj); ok {
				return nonEmpty(spec)
			}
		}
	}
	return nil, ErrInvalidChart
}

func decodeObject(s string) (map[string]any, bool) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok
}

func nonEmpty(spec map[string]any) (map[string]any, error) {
	if len(spec) == 0 {
		return nil, ErrEmptyChart
	}
	return spec, nil
}

// extractJSONObject returns the balanced object starting at start, honouring
// braces inside string literals.
func extractJSONObject(s string, start int) string {
	if start >= len(s) || s[start] != '{' {
		return ""
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if escaped {
			escaped = false
			continue
		}
		if c == '\\' && inString {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
