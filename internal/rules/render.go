package rules

import (
	"strconv"
	"strings"
)

// Render replaces %1, %2, ... with the corresponding capture group.
// Placeholders without a matching group are kept as literal text.
func Render(template string, groups []string) string {
	return Expand(template, groups, nil)
}

// RenderFacts replaces {key} placeholders with remembered facts; unknown keys stay literal
func RenderFacts(template string, facts map[string]string) string {
	return Expand(template, nil, facts)
}

// Expand fills capture and fact placeholders in a single pass over template.
// Substituted text is never scanned again, so user input cannot smuggle
// placeholders into the reply.
func Expand(template string, groups []string, facts map[string]string) string {
	if !strings.ContainsAny(template, "%{") {
		return template
	}

	var b strings.Builder
	b.Grow(len(template))
	for i := 0; i < len(template); i++ {
		switch c := template[i]; c {
		case '%':
			j := i + 1
			for j < len(template) && template[j] >= '0' && template[j] <= '9' {
				j++
			}
			if j == i+1 {
				b.WriteByte(c)
				continue
			}
			idx, err := strconv.Atoi(template[i+1 : j])
			if err != nil || idx < 1 || idx > len(groups) {
				b.WriteString(template[i:j])
			} else {
				b.WriteString(groups[idx-1])
			}
			i = j - 1

		case '{':
			end := strings.IndexByte(template[i+1:], '}')
			if end < 0 {
				b.WriteByte(c)
				continue
			}
			key := template[i+1 : i+1+end]
			if strings.ContainsRune(key, '{') {
				b.WriteByte(c)
				continue
			}
			if v, ok := facts[key]; ok {
				b.WriteString(v)
			} else {
				b.WriteString(template[i : i+2+end])
			}
			i += end + 1

		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
