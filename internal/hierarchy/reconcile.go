package hierarchy

import (
	"sort"

	"github.com/google/uuid"

	"github.com/planweave/planweave/pkg/models"
)

// synthesizedCriteria is the boilerplate acceptance criteria attached to
// epics the reconciler creates itself.
var synthesizedCriteria = []string{
	"All child stories completed successfully",
	"Integration testing passed",
	"User acceptance criteria met",
}

// TypeCounts tallies drafts per hierarchy level.
type TypeCounts struct {
	Epics    int `json:"epics"`
	Stories  int `json:"stories"`
	Tasks    int `json:"tasks"`
	Subtasks int `json:"subtasks"`
}

// Stats reports what reconciliation did to a draft set.
type Stats struct {
	// OriginalCounts are the per-type counts before reconciliation.
	OriginalCounts TypeCounts `json:"original_counts"`
	// FinalCounts are the per-type counts after reconciliation, including
	// synthesized epics.
	FinalCounts TypeCounts `json:"final_counts"`
	// CreatedEpics counts epics the reconciler synthesized.
	CreatedEpics int `json:"created_epics"`
	// AssignedRelationships counts parent links established.
	AssignedRelationships int `json:"assigned_relationships"`
	// OrphanedItems counts items that could not be linked to any parent.
	OrphanedItems int `json:"orphaned_items"`
	// CategoriesUsed lists categories assigned during reconciliation, in
	// first-use order.
	CategoriesUsed []string `json:"categories_used"`
	// EpicCategories maps epic title to its assigned category.
	EpicCategories map[string]string `json:"epic_categories"`
}

// epicRef records a category's epic by title and draft key.
type epicRef struct {
	title string
	key   string
}

// Reconcile repairs a draft set into a complete, ordered hierarchy. Epics
// are emitted before their children; stories without parents are linked to
// categorized epics, synthesizing epics as needed; tasks and subtasks are
// attached by lexical match. Pure and deterministic: re-running on its own
// output changes nothing.
func Reconcile(drafts []models.WorkItemDraft, registry Registry) ([]models.WorkItemDraft, Stats) {
	stats := Stats{EpicCategories: make(map[string]string)}
	if len(drafts) == 0 {
		return []models.WorkItemDraft{}, stats
	}

	var epics, stories, tasks, subtasks []models.WorkItemDraft
	for _, d := range drafts {
		if !d.Type.Valid() {
			d.Type = models.NormalizeItemType(string(d.Type))
		}
		switch d.Type {
		case models.ItemTypeEpic:
			epics = append(epics, d)
		case models.ItemTypeStory:
			stories = append(stories, d)
		case models.ItemTypeTask:
			tasks = append(tasks, d)
		default:
			subtasks = append(subtasks, d)
		}
	}

	stats.OriginalCounts = TypeCounts{
		Epics:    len(epics),
		Stories:  len(stories),
		Tasks:    len(tasks),
		Subtasks: len(subtasks),
	}

	organized := make([]models.WorkItemDraft, 0, len(drafts))
	categoryEpics := make(map[string]epicRef)
	seenCategories := make(map[string]bool)

	useCategory := func(name string) {
		if !seenCategories[name] {
			seenCategories[name] = true
			stats.CategoriesUsed = append(stats.CategoriesUsed, name)
		}
	}

	// Existing epics claim their categories first. When several epics score
	// into the same category, the last one emitted holds the claim.
	for _, epic := range epics {
		if cat, ok := Categorize(epic, registry); ok {
			categoryEpics[cat.Name] = epicRef{title: epic.Title, key: epic.Key}
			epic.Category = cat.Name
			stats.EpicCategories[epic.Title] = cat.Name
			useCategory(cat.Name)
		}
		organized = append(organized, epic)
	}

	synthesize := func(cat Category) epicRef {
		epic := models.WorkItemDraft{
			Key:                uuid.New().String(),
			Title:              cat.Name,
			Description:        cat.Description,
			Type:               models.ItemTypeEpic,
			Priority:           cat.Priority,
			AcceptanceCriteria: append([]string(nil), synthesizedCriteria...),
			Category:           cat.Name,
			Generated:          true,
		}
		organized = append(organized, epic)
		ref := epicRef{title: epic.Title, key: epic.Key}
		categoryEpics[cat.Name] = ref
		stats.EpicCategories[epic.Title] = cat.Name
		stats.CreatedEpics++
		useCategory(cat.Name)
		return ref
	}

	// Unparented stories link to their category's epic, creating it when
	// absent. Stories that fail to categorize wait for the orphan sweep.
	var orphanedStories []int
	for _, story := range stories {
		if story.ParentReference == "" {
			if cat, ok := Categorize(story, registry); ok {
				ref, exists := categoryEpics[cat.Name]
				if !exists {
					ref = synthesize(cat)
				}
				story.ParentReference = ref.title
				story.ParentKey = ref.key
				story.Category = cat.Name
				stats.AssignedRelationships++
				useCategory(cat.Name)
				organized = append(organized, story)
			} else {
				organized = append(organized, story)
				orphanedStories = append(orphanedStories, len(organized)-1)
			}
		} else {
			organized = append(organized, story)
		}
	}

	// Orphan sweep: everything uncategorized lands under the fallback epic.
	if len(orphanedStories) > 0 {
		ref, exists := categoryEpics[FallbackCategory]
		if !exists {
			cat, ok := registry.Lookup(FallbackCategory)
			if !ok {
				cat = Category{
					Name:        FallbackCategory,
					Description: "Technical requirements, system configuration, performance, and infrastructure",
					Priority:    models.PriorityMedium,
					ItemTypes:   epicStory,
				}
			}
			ref = synthesize(cat)
		}
		for _, idx := range orphanedStories {
			organized[idx].ParentReference = ref.title
			organized[idx].ParentKey = ref.key
			organized[idx].Category = FallbackCategory
			stats.AssignedRelationships++
		}
	}

	// Tasks attach to the best-matching story, falling back to the first
	// story. With no stories at all they stay orphaned but are still emitted.
	for _, task := range tasks {
		if task.ParentReference == "" {
			if idx, ok := BestParent(task, stories); ok {
				task.ParentReference = stories[idx].Title
				task.ParentKey = stories[idx].Key
				stats.AssignedRelationships++
			} else if len(stories) > 0 {
				task.ParentReference = stories[0].Title
				task.ParentKey = stories[0].Key
				stats.AssignedRelationships++
			} else {
				stats.OrphanedItems++
			}
		}
		organized = append(organized, task)
	}

	// Subtasks prefer tasks as parents, then stories.
	for _, subtask := range subtasks {
		if subtask.ParentReference == "" {
			candidates := tasks
			if len(candidates) == 0 {
				candidates = stories
			}
			if len(candidates) > 0 {
				idx, ok := BestParent(subtask, candidates)
				if !ok {
					idx = 0
				}
				subtask.ParentReference = candidates[idx].Title
				subtask.ParentKey = candidates[idx].Key
				stats.AssignedRelationships++
			} else {
				stats.OrphanedItems++
			}
		}
		organized = append(organized, subtask)
	}

	assignOrderIndices(organized)

	for _, item := range organized {
		switch item.Type {
		case models.ItemTypeEpic:
			stats.FinalCounts.Epics++
		case models.ItemTypeStory:
			stats.FinalCounts.Stories++
		case models.ItemTypeTask:
			stats.FinalCounts.Tasks++
		case models.ItemTypeSubtask:
			stats.FinalCounts.Subtasks++
		}
	}

	return organized, stats
}

// assignOrderIndices sets sibling sort positions: epics globally by
// (priority, title), children per parent group by the same key, and
// parentless non-epics default to 1.
func assignOrderIndices(organized []models.WorkItemDraft) {
	byPriorityThenTitle := func(idxs []int) {
		sort.SliceStable(idxs, func(a, b int) bool {
			ia, ib := organized[idxs[a]], organized[idxs[b]]
			ra, rb := ia.Priority.Rank(), ib.Priority.Rank()
			if ra != rb {
				return ra < rb
			}
			return ia.Title < ib.Title
		})
	}

	var epicIdxs []int
	children := make(map[string][]int)
	var parentOrder []string

	for i, item := range organized {
		if item.Type == models.ItemTypeEpic {
			epicIdxs = append(epicIdxs, i)
			continue
		}
		if ref := item.ParentReference; ref != "" {
			if _, seen := children[ref]; !seen {
				parentOrder = append(parentOrder, ref)
			}
			children[ref] = append(children[ref], i)
		}
	}

	byPriorityThenTitle(epicIdxs)
	for pos, idx := range epicIdxs {
		organized[idx].OrderIndex = pos + 1
	}

	for _, ref := range parentOrder {
		group := children[ref]
		byPriorityThenTitle(group)
		for pos, idx := range group {
			organized[idx].OrderIndex = pos + 1
		}
	}

	for i := range organized {
		if organized[i].Type != models.ItemTypeEpic && organized[i].ParentReference == "" {
			organized[i].OrderIndex = 1
		}
	}
}
