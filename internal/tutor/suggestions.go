package tutor

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	suggestionSeparator = "---SUGERENCIAS---"
	maxSuggestions      = 3
	minSuggestionLen    = 10
)

var (
	bulletLine   = regexp.MustCompile(`^[-*•]\s+(.+)$`)
	numberedLine = regexp.MustCompile(`^\d+\.\s+(.+)$`)

	inlineSuggestion = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:puedes?|podrías?|intenta|prueba|te sugiero|considera|explora|practica)\s+([^.!?\n]{15,100}[.!?])`),
		regexp.MustCompile(`(?i)(?:otra opción|también puedes?|adicionalmente)\s+([^.!?\n]{15,100}[.!?])`),
	}

	keywordSuggestions = []struct {
		keywords   []string
		suggestion string
	}{
		{[]string{"función", "funcion"}, "Intenta crear tus propias funciones con diferentes parámetros"},
		{[]string{"recursiv"}, "Practica con ejemplos de recursión como factorial o Fibonacci"},
		{[]string{"variable"}, "Experimenta declarando variables de diferentes tipos"},
		{[]string{"bucle", "loop", "for", "while"}, "Practica con diferentes tipos de bucles (for, while, do-while)"},
		{[]string{"array", "lista", "arreglo"}, "Explora métodos de arrays como map, filter y reduce"},
	}

	genericSuggestions = []string{
		"Intenta resolver ejercicios prácticos sobre este tema",
		"Revisa la documentación oficial para profundizar",
		"Practica escribiendo código simple relacionado con lo aprendido",
	}
)

// ParseReply splits a tutor reply into its explanation and up to three
// suggestions. A "---SUGERENCIAS---" section is preferred; without one,
// suggestion-like sentences are pulled from the text; as a last resort the
// suggestions come from keywords in the reply.
func ParseReply(raw string) (reply string, suggestions []string) {
	if idx := strings.Index(raw, suggestionSeparator); idx >= 0 {
		reply = strings.TrimSpace(raw[:idx])
		suggestions = sectionSuggestions(raw[idx+len(suggestionSeparator):])
		if len(suggestions) == 0 {
			suggestions = fallbackSuggestions(raw)
		}
		return reply, suggestions
	}

	suggestions = inlineSuggestions(raw)
	if len(suggestions) == 0 {
		suggestions = fallbackSuggestions(raw)
	}
	return strings.TrimSpace(raw), suggestions
}

func sectionSuggestions(section string) []string {
	var out []string
	for _, line := range strings.Split(section, "\n") {
		line = strings.TrimSpace(line)
		m := bulletLine.FindStringSubmatch(line)
		if m == nil {
			m = numberedLine.FindStringSubmatch(line)
		}
		if m == nil {
			continue
		}
		if s := strings.TrimSpace(m[1]); utf8.RuneCountInString(s) > minSuggestionLen {
			out = append(out, s)
		}
		if len(out) == maxSuggestions {
			break
		}
	}
	return out
}

func inlineSuggestions(text string) []string {
	var out []string
	for _, re := range inlineSuggestion {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if len(out) == maxSuggestions {
				return out
			}
			s := strings.TrimSpace(m[1])
			if s != "" && !contains(out, s) {
				out = append(out, s)
			}
		}
	}
	return out
}

func fallbackSuggestions(text string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, k := range keywordSuggestions {
		for _, kw := range k.keywords {
			if strings.Contains(lower, kw) {
				out = append(out, k.suggestion)
				break
			}
		}
	}
	if len(out) == 0 {
		out = append(out, genericSuggestions...)
	}
	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
