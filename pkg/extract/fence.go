package extract

import (
	"strings"
	"unicode"
)

const fenceMarker = "```"

// fence is one fenced code block found in a response.
type fence struct {
	tag     string // lower-cased info string, empty when untagged
	content string // trimmed body
	offset  int    // byte offset of the opening marker
}

// shellTags are the info strings treated as the bash family.
var shellTags = map[string]struct{}{
	"bash":    {},
	"sh":      {},
	"shell":   {},
	"zsh":     {},
	"console": {},
}

func (f fence) isShell() bool {
	_, ok := shellTags[f.tag]
	return ok
}

// scanFences pairs fence markers left to right in a single pass. An opening
// marker with no closing marker after it ends the scan.
func scanFences(text string) []fence {
	var fences []fence
	pos := 0
	for pos < len(text) {
		open := strings.Index(text[pos:], fenceMarker)
		if open < 0 {
			break
		}
		open += pos
		bodyStart := open + len(fenceMarker)
		end := strings.Index(text[bodyStart:], fenceMarker)
		if end < 0 {
			break
		}
		end += bodyStart
		tag, body := splitInfoString(text[bodyStart:end])
		fences = append(fences, fence{
			tag:     tag,
			content: strings.TrimSpace(body),
			offset:  open,
		})
		pos = end + len(fenceMarker)
	}
	return fences
}

// splitInfoString separates the language tag on the opening line from the
// block body. A shell tag directly after the marker is split off even when
// the command shares its line ("```bash ls -la```"). Other inline blocks and
// opening lines holding more than one word are treated as untagged content.
func splitInfoString(body string) (string, string) {
	if tag, rest, ok := cutShellTag(body); ok {
		return tag, rest
	}
	nl := strings.IndexByte(body, '\n')
	if nl < 0 {
		return "", body
	}
	info := strings.TrimSpace(body[:nl])
	if info == "" {
		return "", body[nl+1:]
	}
	if !isTagToken(info) {
		return "", body
	}
	return strings.ToLower(info), body[nl+1:]
}

// cutShellTag splits a leading shell tag ended by whitespace or by the end of
// the block off body.
func cutShellTag(body string) (string, string, bool) {
	end := strings.IndexFunc(body, unicode.IsSpace)
	if end < 0 {
		end = len(body)
	}
	tag := strings.ToLower(body[:end])
	if _, ok := shellTags[tag]; !ok {
		return "", "", false
	}
	return tag, body[end:], true
}

func isTagToken(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '+', r == '.', r == '#':
		default:
			return false
		}
	}
	return true
}

// pickFence returns the first shell-tagged block, else the first block of any
// tag. An empty block still wins: its empty content means the reply held no
// command. ok is false only when there are no closed blocks.
func pickFence(fences []fence) (string, bool) {
	for _, f := range fences {
		if f.isShell() {
			return f.content, true
		}
	}
	if len(fences) > 0 {
		return fences[0].content, true
	}
	return "", false
}
