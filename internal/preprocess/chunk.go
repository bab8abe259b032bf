package preprocess

import "strings"

// TokenCounter reports how many tokens a tokenizer sees in text.
type TokenCounter interface {
	Count(text string) int
}

// packWords joins words greedily into chunks against a token budget. In
// strict mode a chunk closes before the word that would reach the budget,
// so no multi-word chunk ever hits it; overshoot mode closes at-or-over
// the budget after adding the triggering word. A single word larger than
// the whole budget becomes its own chunk either way.
//
// Counts accumulate one word at a time. The tokenizer never merges across
// a space boundary, so the running sum equals counting the joined chunk.
func packWords(words []string, target int, overshoot bool, counter TokenCounter) []string {
	var chunks []string
	var current []string
	count := 0

	flush := func() {
		chunks = append(chunks, strings.Join(current, " "))
		current = nil
		count = 0
	}

	for _, word := range words {
		if len(current) == 0 {
			current = append(current, word)
			count = counter.Count(word)
		} else {
			wt := counter.Count(" " + word)
			if !overshoot && count+wt >= target {
				flush()
				current = append(current, word)
				count = counter.Count(word)
			} else {
				current = append(current, word)
				count += wt
			}
		}
		if overshoot && count >= target {
			flush()
		}
	}
	if len(current) > 0 {
		flush()
	}
	return chunks
}
