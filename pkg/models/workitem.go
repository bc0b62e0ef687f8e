// Package models defines the core domain types for planweave.
package models

import (
	"time"
)

// ItemType represents the hierarchy level of a work item.
type ItemType string

const (
	// ItemTypeEpic is a large feature or capability spanning multiple stories.
	ItemTypeEpic ItemType = "epic"
	// ItemTypeStory is user-facing functionality that delivers business value.
	ItemTypeStory ItemType = "story"
	// ItemTypeTask is technical implementation work that supports a story.
	ItemTypeTask ItemType = "task"
	// ItemTypeSubtask is granular work within a task.
	ItemTypeSubtask ItemType = "subtask"
)

// Valid returns true if the item type is a known value.
func (t ItemType) Valid() bool {
	switch t {
	case ItemTypeEpic, ItemTypeStory, ItemTypeTask, ItemTypeSubtask:
		return true
	default:
		return false
	}
}

// Rank returns the strict hierarchy rank: epic(0) < story(1) < task(2) < subtask(3).
// Unknown types rank below subtask.
func (t ItemType) Rank() int {
	switch t {
	case ItemTypeEpic:
		return 0
	case ItemTypeStory:
		return 1
	case ItemTypeTask:
		return 2
	case ItemTypeSubtask:
		return 3
	default:
		return 4
	}
}

// NormalizeItemType maps raw type strings, including the plural forms some
// providers emit, to a valid ItemType. Unknown values default to task.
func NormalizeItemType(raw string) ItemType {
	switch raw {
	case "epic", "epics":
		return ItemTypeEpic
	case "story", "storys", "stories":
		return ItemTypeStory
	case "task", "tasks":
		return ItemTypeTask
	case "subtask", "subtasks":
		return ItemTypeSubtask
	default:
		return ItemTypeTask
	}
}

// Priority represents the urgency of a work item.
type Priority string

const (
	// PriorityLow is for items that can wait.
	PriorityLow Priority = "low"
	// PriorityMedium is the default priority.
	PriorityMedium Priority = "medium"
	// PriorityHigh is for items that should be scheduled soon.
	PriorityHigh Priority = "high"
	// PriorityCritical is for items that block everything else.
	PriorityCritical Priority = "critical"
)

// Valid returns true if the priority is a known value.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	default:
		return false
	}
}

// Rank returns the sort rank used for ordering: critical(1) < high(2) <
// medium(3) < low(4). Unknown priorities sort last.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 1
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 3
	case PriorityLow:
		return 4
	default:
		return 5
	}
}

// NormalizePriority maps a raw priority string to a valid Priority,
// defaulting to medium.
func NormalizePriority(raw string) Priority {
	p := Priority(raw)
	if p.Valid() {
		return p
	}
	return PriorityMedium
}

// Field bounds enforced by the normalizer.
const (
	// TitleMinLen is the minimum title length after normalization.
	TitleMinLen = 5
	// TitleMaxLen is the maximum title length after normalization.
	TitleMaxLen = 200
	// DescriptionMinLen is the minimum description length after normalization.
	DescriptionMinLen = 10
	// DescriptionMaxLen is the maximum description length after normalization.
	DescriptionMaxLen = 2000
	// EstimatedHoursMin is the lower bound for hour estimates.
	EstimatedHoursMin = 1
	// EstimatedHoursMax is the upper bound for hour estimates.
	EstimatedHoursMax = 1000
)

// WorkItemDraft is an in-memory, pre-persistence work item produced by the
// AI pipeline before database ids are assigned.
type WorkItemDraft struct {
	// Key is a stable synthetic identifier assigned at normalization time.
	// It disambiguates drafts that share a title.
	Key string `json:"key"`
	// Title is the short work item title (5-200 chars).
	Title string `json:"title"`
	// Description details the work (10-2000 chars).
	Description string `json:"description"`
	// Type is the hierarchy level of this item.
	Type ItemType `json:"type"`
	// Priority is the urgency, defaulting to medium.
	Priority Priority `json:"priority"`
	// AcceptanceCriteria lists measurable completion conditions.
	AcceptanceCriteria []string `json:"acceptance_criteria"`
	// EstimatedHours is the optional effort estimate in [1,1000]. Nil when unknown.
	EstimatedHours *int `json:"estimated_hours,omitempty"`
	// ParentReference is the exact title of the intended parent, resolved to
	// an id at materialization.
	ParentReference string `json:"parent_reference,omitempty"`
	// ParentKey is the draft key of the resolved parent, set during
	// reconciliation when the parent is known precisely.
	ParentKey string `json:"parent_key,omitempty"`
	// OrderIndex is the sibling sort position assigned by reconciliation.
	OrderIndex int `json:"order_index"`
	// Category is the diagnostic category tag assigned by reconciliation.
	Category string `json:"category,omitempty"`
	// Generated marks epics synthesized by the reconciler rather than the
	// provider.
	Generated bool `json:"generated,omitempty"`
	// ConsolidatedRequirements holds the original requirement fragments an
	// epic subsumes; used to seed decomposition context.
	ConsolidatedRequirements []string `json:"consolidated_requirements,omitempty"`
}

// ItemStatus represents the review state of a persisted work item.
type ItemStatus string

const (
	// ItemStatusAIGenerated marks items freshly produced by the pipeline.
	ItemStatusAIGenerated ItemStatus = "ai_generated"
	// ItemStatusApproved marks items accepted during review.
	ItemStatusApproved ItemStatus = "approved"
	// ItemStatusRejected marks items declined during review.
	ItemStatusRejected ItemStatus = "rejected"
)

// Valid returns true if the status is a known value.
func (s ItemStatus) Valid() bool {
	switch s {
	case ItemStatusAIGenerated, ItemStatusApproved, ItemStatusRejected:
		return true
	default:
		return false
	}
}

// WorkItem is a persisted work item.
type WorkItem struct {
	// ID is the unique identifier assigned at materialization.
	ID string `json:"id"`
	// ProjectID is the owning project.
	ProjectID string `json:"project_id"`
	// ParentID is the id of the parent item, empty for roots.
	ParentID string `json:"parent_id,omitempty"`
	// Title is the work item title.
	Title string `json:"title"`
	// Description details the work.
	Description string `json:"description"`
	// Type is the hierarchy level.
	Type ItemType `json:"type"`
	// Priority is the urgency.
	Priority Priority `json:"priority"`
	// AcceptanceCriteria lists completion conditions.
	AcceptanceCriteria []string `json:"acceptance_criteria,omitempty"`
	// EstimatedHours is the optional effort estimate.
	EstimatedHours *int `json:"estimated_hours,omitempty"`
	// Status is the review state.
	Status ItemStatus `json:"status"`
	// OrderIndex is the sibling sort position.
	OrderIndex int `json:"order_index"`
	// Category is the diagnostic category tag, if any.
	Category string `json:"category,omitempty"`
	// Generated marks reconciler-synthesized epics.
	Generated bool `json:"generated,omitempty"`
	// CreatedAt is when the item was persisted.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the item was last modified.
	UpdatedAt time.Time `json:"updated_at"`
	// Children holds the owned subtree when loaded as a tree.
	Children []*WorkItem `json:"children,omitempty"`
}
