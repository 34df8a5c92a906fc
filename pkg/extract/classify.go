package extract

import (
	"strings"
	"unicode/utf8"
)

// longLineThreshold is the rune length past which a line with spaces and no
// command chaining is treated as prose.
const longLineThreshold = 120

// rule is one named line predicate. Rules in a table are evaluated in order.
type rule struct {
	name  string
	match func(line string) bool
}

var explanationRules = []rule{
	{name: "lead-in phrase", match: hasLeadIn},
	{name: "markdown heading", match: func(line string) bool { return strings.HasPrefix(line, "#") }},
	{name: "long prose", match: isLongProse},
	{name: "punctuation heavy", match: isPunctuationHeavy},
}

var commandRules = []rule{
	{name: "shell operator", match: hasShellOperator},
	{name: "prompt marker", match: hasPromptMarker},
	{name: "known command", match: startsWithKnownCommand},
}

var leadIns = []string{
	"to ", "this ", "you ", "the ", "here", "use ", "if ", "note:", "note that", "it ",
}

var shellOperators = []string{" | ", ";", ">", "<", "&&", "||"}

// commandPrefixes are matched as plain string prefixes, so "lsof" and
// "rmdir" count through "ls" and "rm".
var commandPrefixes = []string{
	"sudo", "apt", "git", "docker", "kubectl", "find", "grep", "ls", "cat",
	"cd", "mkdir", "rm", "cp", "mv", "df", "du", "ps",
}

// classifiedLine is a trimmed, non-blank response line with its flags.
type classifiedLine struct {
	text        string
	explanation bool
	command     bool
}

func classify(line string) classifiedLine {
	_, explanation := firstMatch(explanationRules, line)
	_, command := firstMatch(commandRules, line)
	return classifiedLine{text: line, explanation: explanation, command: command}
}

// firstMatch returns the name of the first rule in rules that matches line.
func firstMatch(rules []rule, line string) (string, bool) {
	for _, r := range rules {
		if r.match(line) {
			return r.name, true
		}
	}
	return "", false
}

func hasLeadIn(line string) bool {
	lower := strings.ToLower(line)
	for _, prefix := range leadIns {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

func isLongProse(line string) bool {
	if utf8.RuneCountInString(line) <= longLineThreshold {
		return false
	}
	if !strings.ContainsAny(line, " \t") {
		return false
	}
	return !strings.Contains(line, "&&") && !strings.Contains(line, "||")
}

func isPunctuationHeavy(line string) bool {
	if strings.Count(line, ".") <= 2 && strings.Count(line, ",") <= 2 {
		return false
	}
	// find and grep patterns legitimately carry dots.
	return !strings.Contains(line, "find ") && !strings.Contains(line, "grep ")
}

func hasShellOperator(line string) bool {
	for _, op := range shellOperators {
		if strings.Contains(line, op) {
			return true
		}
	}
	return false
}

func hasPromptMarker(line string) bool {
	return strings.HasPrefix(line, "$") || strings.HasPrefix(line, "./")
}

func startsWithKnownCommand(line string) bool {
	for _, prefix := range commandPrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}
