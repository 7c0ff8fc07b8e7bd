package splitter

import (
	"regexp"
	"strings"
)

var sentenceRe = regexp.MustCompile(`[^.!?]*[.!?]+|[^.!?]+$`)

// Sentence packs whole sentences into chunks. A sentence longer than Size is
// cut with the recursive splitter.
type Sentence struct {
	Size     int
	Overlap  int
	fallback *Recursive
}

// NewSentence returns a Sentence splitter.
func NewSentence(size, overlap int) *Sentence {
	return &Sentence{Size: size, Overlap: overlap, fallback: NewRecursive(size, overlap)}
}

func (s *Sentence) Split(text string) []string {
	var units []string
	for _, m := range sentenceRe.FindAllString(text, -1) {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		if runeLen(m) > s.Size {
			units = append(units, s.fallback.Split(m)...)
			continue
		}
		units = append(units, m)
	}
	if len(units) == 0 {
		return nil
	}
	return merge(units, " ", s.Size, s.Overlap)
}
