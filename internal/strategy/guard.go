package strategy

import (
	"strings"
	"unicode"
)

// ExtractReply keeps only the newly generated suffix of raw, drops a leading
// bot label, stops at the next speaker line and trims to maxChars.
func ExtractReply(raw, contextText, botName string, maxChars int) string {
	text := raw
	if contextText != "" && strings.HasPrefix(text, contextText) {
		text = text[len(contextText):]
	}
	text = strings.TrimSpace(text)
	text = stripLabel(text, botName)

	for _, label := range []string{"User:", botName + ":"} {
		if i := indexLineStart(text, label); i >= 0 {
			text = text[:i]
		}
	}

	text = strings.Join(strings.Fields(text), " ")
	return truncateWords(text, maxChars)
}

// IsEcho reports whether candidate starts by repeating the persona preamble.
// Both are normalized (case, punctuation, whitespace); the check passes on the
// full persona or on its first probeWords words.
func IsEcho(candidate, persona string, probeWords int) bool {
	cand := normalizeWords(candidate)
	pers := normalizeWords(persona)
	if len(cand) == 0 || len(pers) == 0 {
		return false
	}

	k := min(probeWords, len(pers))
	if k <= 0 {
		k = len(pers)
	}
	if len(cand) >= k {
		return equalWords(cand[:k], pers[:k])
	}
	// a short candidate that is itself the start of the persona
	return len(cand) >= 2 && equalWords(cand, pers[:len(cand)])
}

func normalizeWords(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

func equalWords(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func stripLabel(text, botName string) string {
	label := strings.ToLower(botName + ":")
	if botName != "" && strings.HasPrefix(strings.ToLower(text), label) {
		return strings.TrimSpace(text[len(label):])
	}
	return text
}

// indexLineStart finds label at the start of any line after the first
func indexLineStart(text, label string) int {
	for i := 0; i < len(text); i++ {
		if text[i] != '\n' {
			continue
		}
		rest := strings.TrimLeft(text[i+1:], " \t")
		if strings.HasPrefix(strings.ToLower(rest), strings.ToLower(label)) {
			return i
		}
	}
	return -1
}

func truncateWords(text string, maxChars int) string {
	runes := []rune(text)
	if maxChars <= 0 || len(runes) <= maxChars {
		return text
	}
	cut := string(runes[:maxChars])
	if i := strings.LastIndexByte(cut, ' '); i > len(cut)/2 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut)
}
