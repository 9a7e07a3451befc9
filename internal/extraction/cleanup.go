package extraction

import (
	"github.com/dlclark/regexp2"
)

type substitution struct {
	re   *regexp2.Regexp
	with string
}

// recognitionFixes repair glyphs OCR commonly confuses in prose. A digit
// counts as part of a run when it touches another digit, directly or
// across a thousands or decimal separator, so amounts such as 1,500 and
// 0.75 stay intact. Order matters.
var recognitionFixes = []substitution{
	{loneDigit("0"), "O"},
	{loneDigit("1"), "I"},
	{regexp2.MustCompile(`(?<!\$)\$(?!\d)`, regexp2.None), "S"},
	{loneDigit("8"), "B"},
	{loneDigit("5"), "S"},
}

func loneDigit(d string) *regexp2.Regexp {
	return regexp2.MustCompile(`(?<!\d)(?<!\d[.,])`+d+`(?!\d)(?![.,]\d)`, regexp2.None)
}

// CleanRecognizedText applies the OCR glyph repairs to text in order.
// Lone 0, 1, 8 and 5 become O, I, B and S, and a dollar sign not followed
// by a digit becomes S. Single-digit amounts are rewritten too.
func CleanRecognizedText(text string) string {
	for _, fix := range recognitionFixes {
		out, err := fix.re.Replace(text, fix.with, -1, -1)
		if err != nil {
			// only a match timeout can fail here, and none is set
			continue
		}
		text = out
	}
	return text
}
