package relevance

import (
	"regexp"
	"strings"
)

// Default marker pair used by DefaultHighlighter.
const (
	DefaultOpenTag  = "<mark>"
	DefaultCloseTag = "</mark>"
)

// Highlighter wraps occurrences of query words in a marker pair.
type Highlighter struct {
	openTag  string
	closeTag string
}

// NewHighlighter creates a highlighter with the given marker pair.
func NewHighlighter(openTag, closeTag string) *Highlighter {
	return &Highlighter{openTag: openTag, closeTag: closeTag}
}

// DefaultHighlighter returns a highlighter using <mark> tags.
func DefaultHighlighter() *Highlighter {
	return NewHighlighter(DefaultOpenTag, DefaultCloseTag)
}

// Highlight wraps every case-insensitive occurrence of each word of term in
// text. Words are applied one after another, so a later word can match text
// inside markers inserted for an earlier word. Matched text keeps its
// original casing.
func (h *Highlighter) Highlight(text, term string) string {
	if strings.TrimSpace(term) == "" {
		return text
	}

	out := text
	for _, word := range splitWords(strings.ToLower(term)) {
		re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(word))
		out = re.ReplaceAllStringFunc(out, func(m string) string {
			return h.openTag + m + h.closeTag
		})
	}
	return out
}

// Strip removes every marker inserted by h.
func (h *Highlighter) Strip(text string) string {
	return strings.NewReplacer(h.openTag, "", h.closeTag, "").Replace(text)
}
