package hierarchy

import (
	"strings"

	"github.com/planweave/planweave/pkg/models"
)

// Categorize scores a draft against every applicable category and returns
// the strict best match. Scoring: +3 per keyword found in the title, +1 per
// keyword found elsewhere in title+description, plus (occurrences - 1) for
// repeated keywords, plus +1 when the category's priority is high or
// critical and the score is already positive. Ties resolve to the
// first-registered category. Returns false when every score is zero.
func Categorize(draft models.WorkItemDraft, registry Registry) (Category, bool) {
	title := strings.ToLower(draft.Title)
	itemText := title + " " + strings.ToLower(draft.Description)

	var best Category
	bestScore := 0

	for _, cat := range registry.Categories() {
		if !cat.appliesTo(draft.Type) {
			continue
		}

		score := 0
		for _, keyword := range cat.Keywords {
			if !strings.Contains(itemText, keyword) {
				continue
			}
			if strings.Contains(title, keyword) {
				score += 3
			} else {
				score++
			}
			if count := strings.Count(itemText, keyword); count > 1 {
				score += count - 1
			}
		}

		if score > 0 && (cat.Priority == models.PriorityHigh || cat.Priority == models.PriorityCritical) {
			score++
		}

		if score > bestScore {
			bestScore = score
			best = cat
		}
	}

	return best, bestScore > 0
}
