// Package extract pulls a runnable shell command out of free-form LLM text.
//
// Extraction prefers structure over guesswork: a shell-tagged fenced block
// wins, then any fenced block, then a line-by-line classification of the
// reply, and finally the trimmed reply itself. The functions here are pure
// and safe for concurrent use.
package extract

import "strings"

// Command returns the best-guess shell command contained in response.
// It never fails. A closed but empty fenced block yields "". Without fenced
// blocks it degrades to the first non-blank line, or to the trimmed response
// when there are no lines at all.
func Command(response string) string {
	candidate, ok := pickFence(scanFences(response))
	if !ok {
		candidate = fromLines(response)
	}
	return stripPrompt(candidate)
}

// fromLines picks a candidate from an unfenced response: the first strong
// command line, else the first line that is not prose, else the first
// non-blank line.
func fromLines(response string) string {
	var firstCommand, firstPlain, firstLine string
	for _, raw := range strings.Split(response, "\n") {
		line := strings.TrimSpace(raw)
		// Stray fence markers from an unusable block are never commands.
		if line == "" || strings.HasPrefix(line, fenceMarker) {
			continue
		}
		if firstLine == "" {
			firstLine = line
		}
		c := classify(line)
		if c.command && firstCommand == "" {
			firstCommand = stripPrompt(c.text)
		}
		if !c.explanation && firstPlain == "" {
			firstPlain = c.text
		}
	}

	switch {
	case firstCommand != "":
		return firstCommand
	case firstPlain != "":
		return firstPlain
	case firstLine != "":
		return firstLine
	default:
		return strings.TrimSpace(response)
	}
}

// stripPrompt removes a leading "$" shell prompt and the blanks after it.
// A lone "$" is left alone.
func stripPrompt(s string) string {
	if len(s) < 2 || s[0] != '$' {
		return s
	}
	return strings.TrimLeft(s[1:], " \t")
}
