package grading

import (
	"strings"
	"unicode"
)

var languageCodes = map[string]string{
	"english":  "en",
	"hindi":    "hi",
	"mandarin": "zh",
	"tamil":    "ta",
	"punjabi":  "pa",
}

// LanguageCode maps a question's answer language to the ISO-639-1 code sent to the
// transcriber. Unknown or empty names fall back to English.
func LanguageCode(name string) string {
	if code, ok := languageCodes[strings.ToLower(strings.TrimSpace(name))]; ok {
		return code
	}
	return "en"
}

// LanguageName normalizes the stored language for prompts ("hindi " -> "Hindi").
func LanguageName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "English"
	}
	r := []rune(strings.ToLower(name))
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
