package grading

import (
	"regexp"
	"strconv"
	"strings"

	types "github.com/yungbote/mockgrader/internal/domain"
)

var scorePattern = regexp.MustCompile(`(?i)score\s*:\s*(\d+)`)

// ParseScore is the exact-numeric fast path: surrounding whitespace and every '.'
// are dropped, and what remains must be ASCII digits. ok is false for anything
// else. Numeric values outside [0,5] come back as 0 with ok still true.
func ParseScore(text string) (score int, ok bool) {
	s := strings.ReplaceAll(strings.TrimSpace(text), ".", "")
	if s == "" || !isDigits(s) {
		return 0, false
	}
	return clampScore(s), true
}

// ExtractScore accepts grader output as string or []byte. A bare integer is taken
// as is; otherwise the first "score: N" (any case) wins. Anything unusable is 0.
func ExtractScore(v any) int {
	var text string
	switch t := v.(type) {
	case string:
		text = t
	case []byte:
		text = strings.ToValidUTF8(string(t), "")
	default:
		return 0
	}

	if s := strings.TrimSpace(text); s != "" && isDigits(s) {
		return clampScore(s)
	}
	m := scorePattern.FindStringSubmatch(text)
	if len(m) < 2 {
		return 0
	}
	return clampScore(m[1])
}

// ResolveScore runs the fast path, then the pattern fallback, then defaults to 0.
func ResolveScore(text string) int {
	if score, ok := ParseScore(text); ok {
		return score
	}
	return ExtractScore(text)
}

func IsCorrect(score int) bool { return score >= types.CorrectThreshold }

func clampScore(digits string) int {
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 || n > types.MaxAnswerScore {
		return 0
	}
	return n
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
