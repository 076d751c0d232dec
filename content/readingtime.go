package content

import "strings"

// WordsPerMinute is the reading speed used for estimates.
const WordsPerMinute = 200

// EstimateReadingTime returns the whole minutes needed to read blocks,
// rounding any partial minute up. Content without words reads in 0 minutes.
func EstimateReadingTime(blocks []ContentBlock) int {
	words := 0
	for _, b := range blocks {
		words += CountWords(b.Heading) + CountWords(b.BodyText)
	}
	return (words + WordsPerMinute - 1) / WordsPerMinute
}

// CountWords counts runs of non-whitespace in s.
func CountWords(s string) int {
	return len(strings.Fields(s))
}
