package splitter

import "strings"

// DefaultSeparators are tried in order: paragraphs, lines, words, runes.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// Recursive splits on the first separator present in the text and recurses
// with the remaining separators into pieces that are still too long.
// Separators are kept at the start of the piece that follows them.
type Recursive struct {
	Size       int
	Overlap    int
	Separators []string
}

// NewRecursive returns a Recursive splitter with DefaultSeparators.
func NewRecursive(size, overlap int) *Recursive {
	return &Recursive{Size: size, Overlap: overlap, Separators: DefaultSeparators}
}

func (r *Recursive) Split(text string) []string {
	return r.split(text, r.Separators)
}

func (r *Recursive) split(text string, separators []string) []string {
	sep := ""
	var rest []string
	for i, s := range separators {
		if s == "" {
			break
		}
		if strings.Contains(text, s) {
			sep = s
			rest = separators[i+1:]
			break
		}
	}

	var chunks, good []string
	for _, s := range splitKeep(text, sep) {
		if runeLen(s) < r.Size {
			good = append(good, s)
			continue
		}
		if len(good) > 0 {
			chunks = append(chunks, merge(good, "", r.Size, r.Overlap)...)
			good = nil
		}
		if len(rest) == 0 {
			chunks = append(chunks, s)
		} else {
			chunks = append(chunks, r.split(s, rest)...)
		}
	}
	if len(good) > 0 {
		chunks = append(chunks, merge(good, "", r.Size, r.Overlap)...)
	}
	return chunks
}

// splitKeep splits text on sep, prefixing every piece but the first with
// sep. An empty sep splits into runes. Empty pieces are dropped.
func splitKeep(text, sep string) []string {
	var pieces []string
	if sep == "" {
		for _, c := range text {
			pieces = append(pieces, string(c))
		}
		return pieces
	}
	for i, p := range strings.Split(text, sep) {
		if i > 0 {
			p = sep + p
		}
		if p != "" {
			pieces = append(pieces, p)
		}
	}
	return pieces
}
