package parsers

import (
	"strings"
)

// CleanSQL strips code fences, language tags and trailing semicolons from
// generated SQL so the statement can be executed as-is.
func CleanSQL(response string) string {
	sql := strings.TrimSpace(response)
	if sql == "" {
		return ""
	}
	if fenced := extractFenced(sql, "sql", "postgresql", "postgres"); fenced != "" {
		sql = fenced
	}
	sql = strings.TrimSpace(sql)
	for strings.HasSuffix(sql, ";") {
		sql = strings.TrimSpace(strings.TrimSuffix(sql, ";"))
	}
	return sql
}

// extractFenced returns the body of the first ``` block, dropping a leading
// language tag when it matches one of langs. An unterminated fence keeps the
// remainder of the text.
func extractFenced(s string, langs ...string) string {
	start := strings.Index(s, "```")
	if start == -1 {
		return ""
	}
	body := s[start+3:]
	if end := strings.Index(body, "```"); end != -1 {
		body = body[:end]
	}
	trimmed := strings.TrimLeft(body, " \t")
	lower := strings.ToLower(trimmed)
	for _, lang := range langs {
		if strings.HasPrefix(lower, lang) {
			rest := trimmed[len(lang):]
			if rest == "" || rest[0] == '\n' || rest[0] == '\r' || rest[0] == ' ' {
				trimmed = rest
				break
			}
		}
	}
	return strings.TrimSpace(trimmed)
}
