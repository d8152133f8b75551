package sanitizer

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

var strictPolicy = bluemonday.StrictPolicy()

// StripHTML removes every tag and returns plain text. Entities are decoded so
// the result can be escaped again by whatever renders it.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<>&") {
		return s
	}
	return html.UnescapeString(strictPolicy.Sanitize(s))
}

// SanitizeText is the pipeline applied to single-line user text such as titles.
func SanitizeText(input string) string {
	return Pipeline{StripHTML, TrimAndNormalize}.Apply(input)
}

// SanitizeMultiline is the pipeline applied to notes, bios and descriptions.
// Line breaks survive, runs of blank lines are squeezed.
func SanitizeMultiline(input string) string {
	return Pipeline{StripHTML, normalizeLines}.Apply(input)
}

func normalizeLines(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = TrimAndNormalize(line)
		if line == "" {
			if blank || len(out) == 0 {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
