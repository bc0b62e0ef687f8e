// Package breakdown implements pass 2 of the requirements pipeline:
// expanding one epic into stories, tasks, and subtasks.
package breakdown

import (
	"context"
	"fmt"
	"strings"

	"github.com/planweave/planweave/internal/normalize"
	"github.com/planweave/planweave/pkg/models"
)

// Item caps and the subtask mandate threshold.
const (
	// DefaultMaxItems bounds the per-epic item count in standard mode.
	DefaultMaxItems = 6
	// MinimalMaxItems bounds the per-epic item count in minimal mode.
	MinimalMaxItems = 4
	// SubtaskMandateThreshold is the subsumed-requirement count at which the
	// prompt instructs the generator to emit subtasks under tasks.
	SubtaskMandateThreshold = 5
	// documentExcerptLen bounds how much of the original document is carried
	// into each breakdown prompt.
	documentExcerptLen = 2000
)

// Generator produces text from prompts. *provider.Orchestrator satisfies it.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Result is the outcome of decomposing one epic.
type Result struct {
	// WorkItems are the generated stories, tasks, and subtasks. Empty on
	// failure.
	WorkItems []models.WorkItemDraft
	// EpicTitle identifies which epic this result belongs to.
	EpicTitle string
	// Summary describes the breakdown, or the failure when WorkItems is
	// empty.
	Summary string
}

// Decomposer expands epics into lower-level work items.
type Decomposer struct {
	gen      Generator
	maxItems int
}

// New creates a Decomposer with the standard per-epic cap.
func New(gen Generator) *Decomposer {
	return &Decomposer{gen: gen, maxItems: DefaultMaxItems}
}

// NewMinimal creates a Decomposer with the reduced per-epic cap used by
// minimal-mode jobs.
func NewMinimal(gen Generator) *Decomposer {
	return &Decomposer{gen: gen, maxItems: MinimalMaxItems}
}

// Decompose expands one epic. A failure returns an empty item list with an
// error summary and the underlying error; callers processing multiple epics
// must continue with the remaining ones.
func (d *Decomposer) Decompose(ctx context.Context, epic models.WorkItemDraft, documentText string) (Result, error) {
	prompt := d.BuildPrompt(epic, documentText)

	raw, err := d.gen.Generate(ctx, breakdownSystemPrompt, prompt)
	if err != nil {
		return Result{
			EpicTitle: epic.Title,
			Summary:   fmt.Sprintf("breakdown failed for epic %q: %v", epic.Title, err),
		}, fmt.Errorf("decompose epic %q: %w", epic.Title, err)
	}

	normalized := normalize.Normalize(raw)

	items := make([]models.WorkItemDraft, 0, len(normalized.Drafts))
	for _, draft := range normalized.Drafts {
		// Pass 2 never emits epics; a draft the provider labeled epic is a
		// story under this epic.
		if draft.Type == models.ItemTypeEpic {
			draft.Type = models.ItemTypeStory
		}
		// Stories generated for this epic belong to it unless the provider
		// said otherwise.
		if draft.Type == models.ItemTypeStory && draft.ParentReference == "" {
			draft.ParentReference = epic.Title
		}
		items = append(items, draft)
	}

	summary := normalized.Summary
	if summary == "" {
		summary = fmt.Sprintf("generated %d work items for epic %q", len(items), epic.Title)
	}

	return Result{WorkItems: items, EpicTitle: epic.Title, Summary: summary}, nil
}

// BuildPrompt constructs the user prompt for one epic, applying the subtask
// mandate when the epic subsumes enough requirements.
func (d *Decomposer) BuildPrompt(epic models.WorkItemDraft, documentText string) string {
	mandate := ""
	if len(epic.ConsolidatedRequirements) >= SubtaskMandateThreshold {
		mandate = subtaskMandate
	}

	excerpt := documentText
	if len(excerpt) > documentExcerptLen {
		excerpt = excerpt[:documentExcerptLen]
	}
	excerpt = strings.TrimSpace(excerpt)

	return fmt.Sprintf(breakdownPrompt,
		epic.Title,
		epic.Description,
		len(epic.ConsolidatedRequirements),
		excerpt,
		d.maxItems,
		mandate,
	)
}

// MaxItems returns the configured per-epic cap.
func (d *Decomposer) MaxItems() int {
	return d.maxItems
}
