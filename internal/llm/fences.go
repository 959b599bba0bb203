package llm

import (
	"encoding/json"
	"strings"
)

const fence = "```"

// StripCodeFences removes a leading ``` (with optional language tag) and the
// trailing ``` around a model reply. Prose outside the fences is dropped.
// Text that is already valid JSON, or has no fence at the start of a line,
// is returned trimmed; backticks inside JSON strings are left alone.
func StripCodeFences(text string) string {
	s := strings.TrimSpace(text)
	if json.Valid([]byte(s)) {
		return s
	}
	open := openingFence(s)
	if open < 0 {
		return s
	}
	s = s[open+len(fence):]
	if end := strings.LastIndex(s, fence); end >= 0 {
		s = s[:end]
	}
	return strings.TrimSpace(dropLanguageTag(s))
}

// openingFence returns the offset of the first ``` that starts a line, or -1.
func openingFence(s string) int {
	if strings.HasPrefix(s, fence) {
		return 0
	}
	if i := strings.Index(s, "\n"+fence); i >= 0 {
		return i + 1
	}
	return -1
}

// dropLanguageTag removes an info string such as "json" right after the
// opening fence.
func dropLanguageTag(s string) string {
	i := 0
	for i < len(s) && isTagByte(s[i]) {
		i++
	}
	if i == 0 {
		return s
	}
	if i == len(s) || s[i] == '\n' || s[i] == '\r' || s[i] == ' ' || s[i] == '\t' {
		return s[i:]
	}
	return s
}

func isTagByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-' || c == '_' || c == '+'
}
