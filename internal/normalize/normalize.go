// Package normalize converts raw, possibly malformed AI provider output into
// canonical work item drafts. Normalize is a total function: it never fails,
// and degrades to a "needs manual review" draft when extraction is
// impossible, so no provider output is ever discarded silently.
package normalize

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/planweave/planweave/pkg/models"
)

// Result is the canonical output of normalization.
type Result struct {
	// Drafts is the normalized work item list. Always non-empty.
	Drafts []models.WorkItemDraft
	// Summary is the provider's summary of the payload, when present.
	Summary string
	// Fallback is true when the payload could not be parsed and Drafts holds
	// a single manual-review placeholder.
	Fallback bool
}

// Aliases accepted for item list keys, in lookup order.
var listKeys = []string{"work_items", "workItems", "items", "requirements", "features", "tasks"}

// Plural bucket keys and the item type each bucket implies.
var bucketKeys = []struct {
	key string
	typ models.ItemType
}{
	{"epics", models.ItemTypeEpic},
	{"stories", models.ItemTypeStory},
	{"tasks", models.ItemTypeTask},
	{"subtasks", models.ItemTypeSubtask},
}

// Capitalized single-object keys and the item type each implies.
var singleKeys = map[string]models.ItemType{
	"Epic":    models.ItemTypeEpic,
	"Story":   models.ItemTypeStory,
	"Task":    models.ItemTypeTask,
	"Subtask": models.ItemTypeSubtask,
}

// Normalize converts raw provider text into work item drafts.
// It never returns an empty draft list and never panics on malformed input.
func Normalize(raw string) Result {
	payload, ok := boundPayload(stripFences(raw))
	if !ok {
		return fallbackResult(raw, "no JSON payload found in response")
	}

	parsed, err := parseWithRepair(payload)
	if err != nil {
		return fallbackResult(raw, fmt.Sprintf("unparseable JSON payload: %v", err))
	}

	items, summary := extractItems(parsed)
	if len(items) == 0 {
		return fallbackResult(raw, "payload contained no work items")
	}

	drafts := make([]models.WorkItemDraft, 0, len(items))
	for _, item := range items {
		drafts = append(drafts, normalizeItem(item))
	}

	if summary == "" {
		summary = fmt.Sprintf("Parsed %d work items from provider response", len(drafts))
	}

	return Result{Drafts: drafts, Summary: summary}
}

// parseWithRepair parses the payload, retrying once with defect repairs.
func parseWithRepair(payload string) (any, error) {
	var parsed any
	if err := json.Unmarshal([]byte(payload), &parsed); err == nil {
		return parsed, nil
	}

	repaired := repairJSON(payload)
	var parsedRepaired any
	if err := json.Unmarshal([]byte(repaired), &parsedRepaired); err != nil {
		return nil, err
	}
	return parsedRepaired, nil
}

// typedItem pairs a raw item mapping with an implicit type injected by the
// surrounding structure (plural buckets, capitalized keys).
type typedItem struct {
	fields       map[string]any
	implicitType models.ItemType
}

// extractItems unifies the accepted payload shapes into a flat item list
// plus a summary string.
func extractItems(parsed any) ([]typedItem, string) {
	switch v := parsed.(type) {
	case []any:
		return itemsFromList(v, ""), ""
	case map[string]any:
		summary, _ := v["summary"].(string)

		// Explicit item list under a known alias.
		for _, key := range listKeys {
			if list, ok := v[key].([]any); ok {
				return itemsFromList(list, ""), summary
			}
		}

		// Separate plural buckets, each injecting its member type.
		var bucketed []typedItem
		for _, b := range bucketKeys {
			if list, ok := v[b.key].([]any); ok {
				bucketed = append(bucketed, itemsFromList(list, b.typ)...)
			}
		}
		if len(bucketed) > 0 {
			return bucketed, summary
		}

		// Single nested object keyed by a capitalized type name.
		for key, typ := range singleKeys {
			if obj, ok := v[key].(map[string]any); ok {
				return []typedItem{{fields: obj, implicitType: typ}}, summary
			}
		}

		// A bare object that looks like a single item.
		if _, ok := v["title"]; ok {
			return []typedItem{{fields: v}}, summary
		}
		if _, ok := v["name"]; ok {
			return []typedItem{{fields: v}}, summary
		}

		return nil, summary
	default:
		return nil, ""
	}
}

// itemsFromList converts a raw JSON list into typed items, skipping
// non-object members.
func itemsFromList(list []any, implicit models.ItemType) []typedItem {
	items := make([]typedItem, 0, len(list))
	for _, member := range list {
		if obj, ok := member.(map[string]any); ok {
			items = append(items, typedItem{fields: obj, implicitType: implicit})
		}
	}
	return items
}

// Field name variants accepted for title and description.
var (
	titleAliases       = []string{"title", "name", "heading"}
	descriptionAliases = []string{"description", "desc", "content", "details", "text"}
)

// normalizeItem converts one raw item mapping into a schema-valid draft.
func normalizeItem(item typedItem) models.WorkItemDraft {
	fields := item.fields

	title := clampTitle(firstString(fields, titleAliases))
	description := clampDescription(firstString(fields, descriptionAliases))

	typ := item.implicitType
	if rawType, ok := fields["type"].(string); ok && rawType != "" {
		typ = models.NormalizeItemType(strings.ToLower(strings.TrimSpace(rawType)))
	} else if rawType, ok := fields["item_type"].(string); ok && rawType != "" {
		typ = models.NormalizeItemType(strings.ToLower(strings.TrimSpace(rawType)))
	}
	if typ == "" {
		typ = models.ItemTypeTask
	}

	rawPriority, _ := fields["priority"].(string)
	priority := models.NormalizePriority(strings.ToLower(strings.TrimSpace(rawPriority)))

	parentRef, _ := fields["parent_reference"].(string)
	if parentRef == "" {
		parentRef, _ = fields["parent"].(string)
	}

	return models.WorkItemDraft{
		Key:                      uuid.New().String(),
		Title:                    title,
		Description:              description,
		Type:                     typ,
		Priority:                 priority,
		AcceptanceCriteria:       coerceCriteria(fields["acceptance_criteria"]),
		EstimatedHours:           coerceHours(fields["estimated_hours"]),
		ParentReference:          strings.TrimSpace(parentRef),
		ConsolidatedRequirements: coerceStringList(fields["consolidated_requirements"]),
	}
}

// firstString returns the first non-empty string value among the aliases.
func firstString(fields map[string]any, aliases []string) string {
	for _, alias := range aliases {
		if s, ok := fields[alias].(string); ok {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

// coerceCriteria converts acceptance criteria from a list or a delimited
// string into a string slice. Strings are split on newlines, then
// semicolons, then commas, whichever first yields multiple entries.
func coerceCriteria(v any) []string {
	switch criteria := v.(type) {
	case []any:
		out := make([]string, 0, len(criteria))
		for _, c := range criteria {
			if s := strings.TrimSpace(fmt.Sprint(c)); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		trimmed := strings.TrimSpace(criteria)
		if trimmed == "" {
			return nil
		}
		for _, sep := range []string{"\n", ";", ","} {
			if strings.Contains(trimmed, sep) {
				parts := strings.Split(trimmed, sep)
				out := make([]string, 0, len(parts))
				for _, p := range parts {
					if s := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(p), "- ")); s != "" {
						out = append(out, s)
					}
				}
				if len(out) > 0 {
					return out
				}
			}
		}
		return []string{trimmed}
	default:
		return nil
	}
}

// coerceHours converts an estimate to an integer clamped to [1,1000],
// or nil when the value is absent or non-numeric.
func coerceHours(v any) *int {
	var hours int
	switch estimate := v.(type) {
	case float64:
		hours = int(estimate)
	case string:
		trimmed := strings.TrimSpace(estimate)
		if trimmed == "" {
			return nil
		}
		if _, err := fmt.Sscanf(trimmed, "%d", &hours); err != nil {
			return nil
		}
	default:
		return nil
	}

	if hours < models.EstimatedHoursMin {
		hours = models.EstimatedHoursMin
	}
	if hours > models.EstimatedHoursMax {
		hours = models.EstimatedHoursMax
	}
	return &hours
}

// coerceStringList converts a JSON list into a string slice.
func coerceStringList(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, member := range list {
		if s := strings.TrimSpace(fmt.Sprint(member)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// clampTitle enforces the title length bounds, padding rather than rejecting.
func clampTitle(title string) string {
	if title == "" {
		title = "Untitled work item"
	}
	if len(title) < models.TitleMinLen {
		title = title + " work item"
	}
	return truncateRunes(title, models.TitleMaxLen)
}

// clampDescription enforces the description length bounds.
func clampDescription(description string) string {
	if description == "" {
		description = "No description provided."
	}
	if len(description) < models.DescriptionMinLen {
		description = description + " (no further detail provided)"
	}
	return truncateRunes(description, models.DescriptionMaxLen)
}

// truncateRunes shortens s to at most max runes. Byte slicing would split
// a multibyte character at the bound and emit invalid UTF-8.
func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

// fallbackResult builds the single manual-review draft that carries the raw
// response forward for human triage.
func fallbackResult(raw, reason string) Result {
	excerpt := strings.TrimSpace(raw)
	if excerpt == "" {
		excerpt = "(empty response)"
	}

	prefix := fmt.Sprintf("Automatic extraction failed (%s). Raw response for review:\n", reason)
	excerpt = truncateRunes(excerpt, models.DescriptionMaxLen-len(prefix))

	draft := models.WorkItemDraft{
		Key:         uuid.New().String(),
		Title:       "Needs manual review",
		Description: prefix + excerpt,
		Type:        models.ItemTypeTask,
		Priority:    models.PriorityMedium,
		AcceptanceCriteria: []string{
			"Review the raw provider output",
			"Create the intended work items manually",
		},
	}

	return Result{
		Drafts:   []models.WorkItemDraft{draft},
		Summary:  "Extraction failed; manual review required",
		Fallback: true,
	}
}
