package storage

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRating is returned for a rating outside the accepted set.
var ErrInvalidRating = errors.New("invalid rating")

// Rating is the user's judgement of an answer.
type Rating string

const (
	RatingPositive Rating = "positive"
	RatingNegative Rating = "negative"
	RatingOffTopic Rating = "off_topic"
)

// Valid reports whether r is one of the three accepted ratings.
func (r Rating) Valid() bool {
	switch r {
	case RatingPositive, RatingNegative, RatingOffTopic:
		return true
	}
	return false
}

var ratingIcons = []string{"👍", "👎", "❓"}

// ParseRating accepts the canonical rating names as well as the labels
// shown next to an answer, in English or French, with or without their
// icon ("👍 Bonne", "bad", "❓", "hors sujet").
func ParseRating(s string) (Rating, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, icon := range ratingIcons {
		if rest, ok := strings.CutPrefix(key, icon); ok {
			key = icon
			if rest = strings.TrimSpace(strings.TrimLeft(rest, "\ufe0f")); rest != "" {
				key = rest
			}
			break
		}
	}

	switch key {
	case "positive", "good", "bonne", "👍", "+1":
		return RatingPositive, nil
	case "negative", "bad", "mauvaise", "👎", "-1":
		return RatingNegative, nil
	case "off_topic", "off-topic", "offtopic", "off topic", "hors sujet", "hors-sujet", "❓":
		return RatingOffTopic, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRating, s)
}

// Feedback is one row of the feedbacks table.
type Feedback struct {
	ID       int64  `json:"id"`
	Question string `json:"question"`
	Response string `json:"response"`
	Rating   Rating `json:"rating"`
}
