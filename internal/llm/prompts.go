package llm

import "strings"

// PromptSet holds the per-language system prompts for structured extraction.
// Empty fields fall back to the built-in defaults.
type PromptSet struct {
	EN string
	HE string
}

const defaultPromptEN = `You are a medical document analyst. You receive the raw text of a
medical document (blood test, imaging report, doctor's note or similar) and must return a
single JSON object with exactly these fields:
{"docTypeGuess": string or null, "docDateGuess": string or null,
"labs": [{"testName": string, "value": string, "unit": string, "refRange": string, "flag": string, "resultDate": string}],
"medsMentioned": [string], "diagnosesMentioned": [string], "followupStatements": [string],
"shortSummary": string, "confidence": number between 0 and 1}
Include every lab result you can identify, in document order. Keep shortSummary under 700
characters, written for the patient in plain language. Respond with JSON only, no markdown.`

const defaultPromptHE = `אתה מנתח מסמכים רפואיים. אתה מקבל טקסט גולמי של מסמך רפואי
(בדיקת דם, דוח הדמיה, סיכום רופא או דומה) ועליך להחזיר אובייקט JSON יחיד עם השדות הבאים בלבד:
{"docTypeGuess": string or null, "docDateGuess": string or null,
"labs": [{"testName": string, "value": string, "unit": string, "refRange": string, "flag": string, "resultDate": string}],
"medsMentioned": [string], "diagnosesMentioned": [string], "followupStatements": [string],
"shortSummary": string, "confidence": number between 0 and 1}
כלול כל תוצאת מעבדה שזוהתה, לפי סדר הופעתה במסמך. כתוב את shortSummary בעברית פשוטה,
עד 700 תווים, מנוסח עבור המטופל. החזר JSON בלבד, ללא markdown.`

// DefaultPrompts returns the built-in prompt set.
func DefaultPrompts() PromptSet {
	return PromptSet{EN: defaultPromptEN, HE: defaultPromptHE}
}

// WithOverrides returns a copy with non-empty overrides applied.
func (p PromptSet) WithOverrides(en, he string) PromptSet {
	out := p
	if strings.TrimSpace(en) != "" {
		out.EN = en
	}
	if strings.TrimSpace(he) != "" {
		out.HE = he
	}
	return out
}

// ForLanguage selects the system prompt for a target language. Hebrew variants
// map to the Hebrew prompt; everything else gets English.
func (p PromptSet) ForLanguage(language string) string {
	switch strings.ToLower(strings.TrimSpace(language)) {
	case "he", "heb", "hebrew", "iw":
		return p.HE
	default:
		return p.EN
	}
}
