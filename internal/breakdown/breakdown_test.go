package breakdown

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/planweave/planweave/pkg/models"
)

type fakeGen struct {
	response string
	err      error
	calls    int
	prompts  []string
}

func (f *fakeGen) Generate(_ context.Context, _, userPrompt string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, userPrompt)
	return f.response, f.err
}

func testEpic(reqCount int) models.WorkItemDraft {
	reqs := make([]string, reqCount)
	for i := range reqs {
		reqs[i] = "original requirement"
	}
	return models.WorkItemDraft{
		Key:                      "e1",
		Title:                    "User account management",
		Description:              "Registration, login, and profile features",
		Type:                     models.ItemTypeEpic,
		Priority:                 models.PriorityHigh,
		ConsolidatedRequirements: reqs,
	}
}

func TestDecompose(t *testing.T) {
	gen := &fakeGen{response: `{
		"work_items": [
			{"title": "User registration story", "description": "New users can sign up with email", "type": "story", "priority": "high"},
			{"title": "Build registration endpoint", "description": "Backend endpoint accepting sign-ups", "type": "task", "priority": "medium", "parent_reference": "User registration story"}
		],
		"summary": "registration breakdown"
	}`}
	d := New(gen)

	result, err := d.Decompose(context.Background(), testEpic(2), "full document text")
	if err != nil {
		t.Fatalf("Decompose() error = %v", err)
	}
	if result.EpicTitle != "User account management" {
		t.Errorf("EpicTitle = %q, want %q", result.EpicTitle, "User account management")
	}
	if len(result.WorkItems) != 2 {
		t.Fatalf("len(WorkItems) = %d, want 2", len(result.WorkItems))
	}

	story := result.WorkItems[0]
	if story.Type != models.ItemTypeStory {
		t.Errorf("story.Type = %q, want story", story.Type)
	}
	if story.ParentReference != "User account management" {
		t.Errorf("story.ParentReference = %q, want the epic title", story.ParentReference)
	}

	task := result.WorkItems[1]
	if task.ParentReference != "User registration story" {
		t.Errorf("task.ParentReference = %q, want %q", task.ParentReference, "User registration story")
	}
	if result.Summary != "registration breakdown" {
		t.Errorf("Summary = %q, want %q", result.Summary, "registration breakdown")
	}
}

func TestDecompose_EpicTypedDraftBecomesStory(t *testing.T) {
	gen := &fakeGen{response: `{
		"work_items": [
			{"title": "Nested epic attempt", "description": "The provider tried to emit another epic", "type": "epic", "priority": "medium"}
		],
		"summary": "one item"
	}`}
	d := New(gen)

	result, err := d.Decompose(context.Background(), testEpic(1), "doc")
	if err != nil {
		t.Fatalf("Decompose() error = %v", err)
	}
	if len(result.WorkItems) != 1 {
		t.Fatalf("len(WorkItems) = %d, want 1", len(result.WorkItems))
	}
	item := result.WorkItems[0]
	if item.Type != models.ItemTypeStory {
		t.Errorf("item.Type = %q, want story (pass 2 never emits epics)", item.Type)
	}
	if item.ParentReference != "User account management" {
		t.Errorf("item.ParentReference = %q, want the epic title", item.ParentReference)
	}
}

func TestDecompose_FailureReturnsEmptyItems(t *testing.T) {
	gen := &fakeGen{err: errors.New("provider down")}
	d := New(gen)

	result, err := d.Decompose(context.Background(), testEpic(1), "doc")
	if err == nil {
		t.Fatal("Decompose() error = nil, want error")
	}
	if len(result.WorkItems) != 0 {
		t.Errorf("len(WorkItems) = %d, want 0", len(result.WorkItems))
	}
	if !strings.Contains(result.Summary, "User account management") {
		t.Errorf("Summary = %q, want it to name the failed epic", result.Summary)
	}
	if result.EpicTitle != "User account management" {
		t.Errorf("EpicTitle = %q, want the epic title even on failure", result.EpicTitle)
	}
}

func TestBuildPrompt_SubtaskMandate(t *testing.T) {
	d := New(&fakeGen{})

	tests := []struct {
		name        string
		reqCount    int
		wantMandate bool
	}{
		{"below threshold", SubtaskMandateThreshold - 1, false},
		{"at threshold", SubtaskMandateThreshold, true},
		{"above threshold", SubtaskMandateThreshold + 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompt := d.BuildPrompt(testEpic(tt.reqCount), "doc text")
			got := strings.Contains(prompt, "include subtasks under its tasks")
			if got != tt.wantMandate {
				t.Errorf("mandate present = %v, want %v", got, tt.wantMandate)
			}
		})
	}
}

func TestBuildPrompt_TruncatesDocumentExcerpt(t *testing.T) {
	d := New(&fakeGen{})
	marker := "ZZZMARKERZZZ"
	doc := strings.Repeat("x", 3000) + marker

	prompt := d.BuildPrompt(testEpic(1), doc)
	if strings.Contains(prompt, marker) {
		t.Error("prompt contains text beyond the excerpt limit")
	}
	if !strings.Contains(prompt, strings.Repeat("x", 100)) {
		t.Error("prompt missing the document excerpt")
	}
}

func TestBuildPrompt_CarriesEpicAndCap(t *testing.T) {
	d := New(&fakeGen{})
	prompt := d.BuildPrompt(testEpic(3), "doc")

	if !strings.Contains(prompt, "EPIC: User account management") {
		t.Errorf("prompt missing epic title: %q", prompt)
	}
	if !strings.Contains(prompt, "subsumes 3 original requirements") {
		t.Errorf("prompt missing requirement count: %q", prompt)
	}
	if !strings.Contains(prompt, "AT MOST 6 work items") {
		t.Errorf("prompt missing item cap: %q", prompt)
	}
}

func TestNewMinimal(t *testing.T) {
	d := NewMinimal(&fakeGen{})
	if d.MaxItems() != MinimalMaxItems {
		t.Errorf("MaxItems() = %d, want %d", d.MaxItems(), MinimalMaxItems)
	}

	prompt := d.BuildPrompt(testEpic(1), "doc")
	if !strings.Contains(prompt, "AT MOST 4 work items") {
		t.Errorf("prompt missing minimal cap: %q", prompt)
	}
}
