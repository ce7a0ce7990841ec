package analysis

import (
	"errors"
	"regexp"
	"strings"
)

// fenceRe matches a Markdown code-fence marker together with any language
// tag and the line break after it. The line break is optional.
var fenceRe = regexp.MustCompile("(?i)```[a-z0-9_+-]*[ \t]*\r?\n?")

var errProseAroundFence = errors.New("text outside code fence")

// Sanitize strips Markdown code-fence markers from a model reply and trims
// surrounding whitespace. A reply that wraps a fenced block in prose is
// rejected, since the prose is not part of the document.
func Sanitize(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	locs := fenceRe.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return text, nil
	}

	before := strings.TrimSpace(text[:locs[0][0]])
	after := strings.TrimSpace(text[locs[len(locs)-1][1]:])
	switch {
	case len(locs) == 1:
		// A lone marker is either an opening fence with a truncated tail or
		// a closing fence; both are fine as long as one side is empty.
		if before != "" && after != "" {
			return "", errProseAroundFence
		}
	case before != "" || after != "":
		return "", errProseAroundFence
	}
	return strings.TrimSpace(fenceRe.ReplaceAllString(text, "")), nil
}
