package textnorm

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/straja-ai/wsd/internal/sense"
)

// Lower applies full Unicode lowercasing. Rules and Normalize both go
// through it so cue matching and feature text agree on case folding.
func Lower(s string) string {
	if s == "" {
		return ""
	}
	// Casers keep state between calls and must not be shared.
	return cases.Lower(language.Und).String(s)
}

// Normalize lowercases sentence, splits it on whitespace and drops every
// token equal to the target word or its naive plural. Training and
// inference must both call this function.
func Normalize(sentence string, word sense.Word) string {
	if sentence == "" {
		return ""
	}
	singular := Lower(string(word))
	plural := singular + "s"

	fields := strings.Fields(Lower(sentence))
	kept := fields[:0]
	for _, tok := range fields {
		if tok == singular || tok == plural {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.Join(kept, " ")
}

// NormalizeAll applies Normalize to every sentence, preserving order.
func NormalizeAll(sentences []string, word sense.Word) []string {
	out := make([]string, len(sentences))
	for i, s := range sentences {
		out[i] = Normalize(s, word)
	}
	return out
}
