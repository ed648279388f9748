package format

import (
	"fmt"
	"strings"
)

// DefaultUnitLimit is the per-message character budget of typical chat
// transports.
const DefaultUnitLimit = 4000

const (
	continuationMark = "\n[continued...]"
	continuedMark    = "[...continued]\n"
)

// Formatter splits long assistant output into transport-sized units without
// breaking fenced code blocks that fit under the limit.
type Formatter struct {
	Limit int
}

func NewFormatter(limit int) *Formatter {
	if limit <= 0 {
		limit = DefaultUnitLimit
	}
	return &Formatter{Limit: limit}
}

// Split divides text into units of at most Limit characters. Cut points are
// preferred in order: the end of an intact fenced code block, a blank line,
// a newline, a sentence end, a space, a hard cut. Non-final units end with a
// continuation marker and non-first units start with a continued marker.
func (f *Formatter) Split(text string) []string {
	if len(text) <= f.Limit {
		return []string{text}
	}

	// Reserve marker space; every emitted unit may carry both.
	budget := f.Limit - len(continuationMark) - len(continuedMark)
	if budget < 1 {
		budget = 1
	}

	var units []string
	rest := text
	for len(rest) > budget {
		cut := f.cutPoint(rest, budget)
		units = append(units, rest[:cut])
		rest = strings.TrimLeft(rest[cut:], "\n")
	}
	if rest != "" {
		units = append(units, rest)
	}

	for i := range units {
		if i < len(units)-1 {
			units[i] += continuationMark
		}
		if i > 0 {
			units[i] = continuedMark + units[i]
		}
	}
	return units
}

// cutPoint finds the best split position in s at or before limit.
func (f *Formatter) cutPoint(s string, limit int) int {
	window := s[:limit]

	if cut := fenceCut(window); cut > 0 {
		return cut
	}
	if cut := strings.LastIndex(window, "\n\n"); cut > 0 && !insideFence(window[:cut]) {
		return cut + 2
	}
	if cut := strings.LastIndexByte(window, '\n'); cut > 0 && !insideFence(window[:cut]) {
		return cut + 1
	}
	if cut := strings.LastIndex(window, ". "); cut > 0 {
		return cut + 2
	}
	if cut := strings.LastIndexByte(window, ' '); cut > 0 {
		return cut + 1
	}
	return limit
}

// fenceCut returns the position just after the last complete fenced code
// block in window, or 0 when no complete block ends there.
func fenceCut(window string) int {
	pos := 0
	last := 0
	for {
		open := strings.Index(window[pos:], "```")
		if open < 0 {
			break
		}
		open += pos
		closing := strings.Index(window[open+3:], "```")
		if closing < 0 {
			break
		}
		end := open + 3 + closing + 3
		// Consume the trailing newline so the next unit starts clean.
		if end < len(window) && window[end] == '\n' {
			end++
		}
		last = end
		pos = end
	}
	return last
}

// insideFence reports whether s ends inside an unterminated code block.
func insideFence(s string) bool {
	return strings.Count(s, "```")%2 == 1
}

// FormatToolList renders the ordered tool-use set for the approval card.
func FormatToolList(tools []string) string {
	if len(tools) == 0 {
		return "no tools used"
	}
	return strings.Join(tools, ", ")
}

// FormatCodeBlock wraps content in a fence, truncating to maxLines.
func FormatCodeBlock(content, lang string, maxLines int) string {
	lines := strings.Split(content, "\n")
	truncated := false
	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[:maxLines]
		truncated = true
	}
	out := fmt.Sprintf("```%s\n%s\n```", lang, strings.Join(lines, "\n"))
	if truncated {
		out += "\n(truncated)"
	}
	return out
}

// FormatError renders a user-facing error line.
func FormatError(msg string) string {
	return "⚠️ " + msg
}

// Truncate bounds s to max characters with an ellipsis. Cuts on rune
// boundaries so multi-byte text stays valid UTF-8.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
