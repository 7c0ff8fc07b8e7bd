// Package splitter cuts page text into overlapping windows for embedding.
// Lengths are counted in runes.
package splitter

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Strategy names accepted by New.
const (
	StrategyRecursive = "recursive"
	StrategySentence  = "sentence"
)

// Splitter cuts text into chunks of at most Size runes where possible,
// consecutive chunks sharing up to Overlap runes.
type Splitter interface {
	Split(text string) []string
}

// New returns the splitter named by strategy. An empty strategy selects the
// recursive character splitter.
func New(strategy string, size, overlap int) (Splitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}
	switch strategy {
	case StrategyRecursive, "":
		return NewRecursive(size, overlap), nil
	case StrategySentence:
		return NewSentence(size, overlap), nil
	default:
		return nil, fmt.Errorf("unknown chunking strategy %q", strategy)
	}
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }

// merge packs splits into chunks no longer than size, carrying at most
// overlap runes of trailing splits into the next chunk. sep is placed
// between splits.
func merge(splits []string, sep string, size, overlap int) []string {
	sepLen := runeLen(sep)
	var docs []string
	var current []string
	total := 0

	joinedLen := func(next int) int {
		if len(current) > 0 {
			return total + next + sepLen
		}
		return total + next
	}

	for _, s := range splits {
		n := runeLen(s)
		if joinedLen(n) > size && len(current) > 0 {
			if doc := join(current, sep); doc != "" {
				docs = append(docs, doc)
			}
			for total > overlap || (joinedLen(n) > size && total > 0) {
				total -= runeLen(current[0])
				if len(current) > 1 {
					total -= sepLen
				}
				current = current[1:]
			}
		}
		current = append(current, s)
		total += n
		if len(current) > 1 {
			total += sepLen
		}
	}
	if doc := join(current, sep); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

func join(parts []string, sep string) string {
	return strings.TrimSpace(strings.Join(parts, sep))
}
