package chat

import (
	"math"
	"strings"
)

// Score is a heuristic reply-quality score in [0, 1], rounded to two places.
func Score(userMessage, reply string) float64 {
	score := 0.8

	if utf16Len(reply) > 20 {
		score += 0.1
	}

	if containsAny(strings.ToLower(reply), "order", "help", "can") {
		score += 0.05
	}

	return math.Round(math.Min(score, 1.0)*100) / 100
}

// utf16Len counts UTF-16 code units, so characters outside the basic
// multilingual plane such as emoji count twice.
func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
	}
	return n
}
