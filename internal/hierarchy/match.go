package hierarchy

import (
	"strings"

	"github.com/planweave/planweave/pkg/models"
)

// minWordLen filters noise words out of the lexical matcher.
const minWordLen = 4

// BestParent finds the candidate whose text best overlaps the item's text.
// Score = |intersection of significant words| + 0.5 per item word appearing
// as a substring of the candidate's text. Significant words are longer than
// three characters. Ties resolve to the earliest candidate; a zero score
// matches nothing.
func BestParent(item models.WorkItemDraft, candidates []models.WorkItemDraft) (int, bool) {
	itemText := strings.ToLower(item.Title + " " + item.Description)
	itemWords := significantWords(itemText)

	bestIdx := -1
	bestScore := 0.0

	for i, cand := range candidates {
		candText := strings.ToLower(cand.Title + " " + cand.Description)
		candWords := significantWords(candText)

		score := 0.0
		for word := range itemWords {
			if _, ok := candWords[word]; ok {
				score++
			}
		}
		for word := range itemWords {
			if strings.Contains(candText, word) {
				score += 0.5
			}
		}

		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	return bestIdx, bestIdx >= 0
}

func significantWords(text string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, word := range strings.Fields(text) {
		if len(word) >= minWordLen {
			words[word] = struct{}{}
		}
	}
	return words
}
