package scoring

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// escapeReplacer maps OOXML character escapes and stray control characters
// onto plain text. Order matters: CRLF before lone CR.
var escapeReplacer = strings.NewReplacer(
	"_x000D__x000A_", "\n",
	"_x000A_", "\n",
	"_x000B_", "\n",
	"_x000D_", "\n",
	"_x0009_", "\t",
	"_x000A", "\n",
	"_x000B", "\n",
	"_x000D", "\n",
	"_x0009", "\t",
	"\r\n", "\n",
	"\r", "\n",
	"\v", "\n",
)

// CleanText normalizes free text before it is placed on a slide: escapes
// become real line breaks, at most one blank line survives, runs of spaces
// collapse, every line is trimmed and the result is NFC-composed.
func CleanText(s string) string {
	s = escapeReplacer.Replace(s)
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.FieldsFunc(line, func(r rune) bool { return r == ' ' }), " ")
	}
	return norm.NFC.String(strings.TrimSpace(strings.Join(lines, "\n")))
}
