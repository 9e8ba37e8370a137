package podcast

import (
	"fmt"
	"math"
	"strings"
)

// wordsPerMinute is the speaking rate assumed by [EstimateDuration].
const wordsPerMinute = 150

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// EstimateDuration returns a human-readable listening time for text, rounded
// up to whole minutes.
func EstimateDuration(text string) string {
	words := WordCount(text)
	minutes := int(math.Ceil(float64(words) / wordsPerMinute))
	switch {
	case minutes < 1:
		return "Less than 1 minute"
	case minutes == 1:
		return "1 minute"
	default:
		return fmt.Sprintf("%d minutes", minutes)
	}
}
