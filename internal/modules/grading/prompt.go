package grading

import (
	"fmt"
	"strings"
)

const gradingSystemPrompt = "You grade spoken translation tests. Reply with a single integer from 0 to 5 and nothing else."

const gradingRubric = `Evaluate this %s translation test comparing reference and student answer:
Reference:
%s
Answer:
%s

Compare based on:
1. Accuracy: Exact match of details, numbers, names
2. Correctness: Precise meaning preservation
3. Completeness: All essential information included

Mark down for:
- Omissions/additions
- Tone/emphasis changes
- Meaning-altering word choices
- Word count mismatch (-1 point if different)

Ignore only:
- Spacing, formatting
- Capitalization (except proper nouns)
- Minor article usage if meaning intact

Score (0-5):
5: Perfect match
4: 1-2 minor word variations
3: 3-4 minor or 1 moderate error
2: Multiple moderate or 1-2 major errors
1: Significant meaning alterations
0: Incomprehensible/incorrect

Return only numeric score (0-5).`

// GradingPrompt returns the system and user messages for one answer.
func GradingPrompt(reference, candidate, language string) (system, user string) {
	return gradingSystemPrompt, fmt.Sprintf(gradingRubric,
		LanguageName(language),
		strings.TrimSpace(reference),
		strings.TrimSpace(candidate),
	)
}
