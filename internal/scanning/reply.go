package scanning

import (
	"fmt"
	"strings"
)

// transcribePrompt is the shared prompt used by vision model engines
const transcribePrompt = `You are transcribing one scanned page of a government enforcement order.

Copy every word on the page exactly as printed, top to bottom, keeping line breaks.
Dollar amounts, case numbers and statute citations must be copied character for character.
Do not summarize, translate, correct spelling, or add commentary.
If the page has no readable text, reply with nothing.`

// pagePrompt returns the transcription prompt for opts
func pagePrompt(opts Options) string {
	var b strings.Builder
	b.WriteString(transcribePrompt)
	if opts.PageSegMode == 6 {
		b.WriteString("\nTreat the page as one uniform block of text.")
	}
	if opts.PreserveInterwordSpaces {
		b.WriteString("\nKeep the spacing between words as it appears.")
	}
	if opts.Blacklist != "" {
		fmt.Fprintf(&b, "\nNever output any of these characters: %s", opts.Blacklist)
	}
	return b.String()
}

// parseTranscription cleans up a model reply. Models sometimes wrap the
// transcription in markdown code fences or prefix it with a label, and do
// not reliably honour the blacklist.
func parseTranscription(text, blacklist string) string {
	text = strings.TrimSpace(text)

	text = strings.TrimPrefix(text, "```text")
	text = strings.TrimPrefix(text, "```plaintext")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	for _, label := range []string{"Transcription:", "TRANSCRIPTION:"} {
		text = strings.TrimSpace(strings.TrimPrefix(text, label))
	}

	return stripBlacklisted(text, blacklist)
}

// stripBlacklisted removes every rune of blacklist from text
func stripBlacklisted(text, blacklist string) string {
	if blacklist == "" {
		return text
	}
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(blacklist, r) {
			return -1
		}
		return r
	}, text)
}
