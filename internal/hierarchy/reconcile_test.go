package hierarchy

import (
	"reflect"
	"testing"

	"github.com/planweave/planweave/pkg/models"
)

func TestReconcile_EmptyInput(t *testing.T) {
	organized, stats := Reconcile(nil, DefaultRegistry())

	if len(organized) != 0 {
		t.Errorf("len(organized) = %d, want 0", len(organized))
	}
	if stats.CreatedEpics != 0 || stats.AssignedRelationships != 0 || stats.OrphanedItems != 0 {
		t.Errorf("stats = %+v, want zero counts", stats)
	}
}

func TestReconcile_EpicsOnlyPassThrough(t *testing.T) {
	drafts := []models.WorkItemDraft{
		{Key: "e1", Title: "Alpha platform work", Description: "General platform effort", Type: models.ItemTypeEpic, Priority: models.PriorityLow},
		{Key: "e2", Title: "Beta rollout", Description: "Roll out the beta", Type: models.ItemTypeEpic, Priority: models.PriorityCritical},
	}

	organized, stats := Reconcile(drafts, DefaultRegistry())

	if len(organized) != 2 {
		t.Fatalf("len(organized) = %d, want 2", len(organized))
	}
	if stats.CreatedEpics != 0 {
		t.Errorf("CreatedEpics = %d, want 0", stats.CreatedEpics)
	}
	if stats.OrphanedItems != 0 {
		t.Errorf("OrphanedItems = %d, want 0", stats.OrphanedItems)
	}
	// Emission order is input order; order indices sort by priority.
	if organized[0].Key != "e1" || organized[1].Key != "e2" {
		t.Errorf("emission order = [%s %s], want [e1 e2]", organized[0].Key, organized[1].Key)
	}
	if organized[1].OrderIndex != 1 {
		t.Errorf("critical epic OrderIndex = %d, want 1", organized[1].OrderIndex)
	}
	if organized[0].OrderIndex != 2 {
		t.Errorf("low epic OrderIndex = %d, want 2", organized[0].OrderIndex)
	}
}

func TestReconcile_SynthesizesEpicForStory(t *testing.T) {
	drafts := []models.WorkItemDraft{
		{Key: "s1", Title: "Checkout cart flow", Description: "Shopping cart and checkout behavior", Type: models.ItemTypeStory, Priority: models.PriorityHigh},
	}

	organized, stats := Reconcile(drafts, DefaultRegistry())

	if len(organized) != 2 {
		t.Fatalf("len(organized) = %d, want 2 (synthesized epic + story)", len(organized))
	}

	epic := organized[0]
	if epic.Type != models.ItemTypeEpic {
		t.Fatalf("organized[0].Type = %q, want epic", epic.Type)
	}
	if epic.Title != "Shopping & Ordering" {
		t.Errorf("epic.Title = %q, want %q", epic.Title, "Shopping & Ordering")
	}
	if !epic.Generated {
		t.Error("synthesized epic not marked Generated")
	}
	if epic.Key == "" {
		t.Error("synthesized epic has no key")
	}
	if len(epic.AcceptanceCriteria) != 3 {
		t.Errorf("len(epic.AcceptanceCriteria) = %d, want 3", len(epic.AcceptanceCriteria))
	}

	story := organized[1]
	if story.ParentReference != epic.Title {
		t.Errorf("story.ParentReference = %q, want %q", story.ParentReference, epic.Title)
	}
	if story.ParentKey != epic.Key {
		t.Errorf("story.ParentKey = %q, want %q", story.ParentKey, epic.Key)
	}

	if stats.CreatedEpics != 1 {
		t.Errorf("CreatedEpics = %d, want 1", stats.CreatedEpics)
	}
	if stats.AssignedRelationships != 1 {
		t.Errorf("AssignedRelationships = %d, want 1", stats.AssignedRelationships)
	}
	if got := stats.EpicCategories[epic.Title]; got != "Shopping & Ordering" {
		t.Errorf("EpicCategories[%q] = %q, want %q", epic.Title, got, "Shopping & Ordering")
	}
}

func TestReconcile_StoryLinksToExistingEpic(t *testing.T) {
	drafts := []models.WorkItemDraft{
		{Key: "e1", Title: "Shopping cart management", Description: "Manage the shopping cart and checkout process", Type: models.ItemTypeEpic, Priority: models.PriorityHigh},
		{Key: "s1", Title: "Checkout flow improvements", Description: "Streamline cart to checkout steps", Type: models.ItemTypeStory, Priority: models.PriorityMedium},
	}

	organized, stats := Reconcile(drafts, DefaultRegistry())

	if stats.CreatedEpics != 0 {
		t.Errorf("CreatedEpics = %d, want 0 (existing epic claims the category)", stats.CreatedEpics)
	}

	story := findByKey(t, organized, "s1")
	if story.ParentReference != "Shopping cart management" {
		t.Errorf("story.ParentReference = %q, want %q", story.ParentReference, "Shopping cart management")
	}
	if story.ParentKey != "e1" {
		t.Errorf("story.ParentKey = %q, want %q", story.ParentKey, "e1")
	}
}

func TestReconcile_LastEpicInCategoryClaimsIt(t *testing.T) {
	drafts := []models.WorkItemDraft{
		{Key: "e1", Title: "Shopping cart foundations", Description: "Build the shopping cart basics", Type: models.ItemTypeEpic, Priority: models.PriorityHigh},
		{Key: "e2", Title: "Checkout and order flow", Description: "Cart checkout and order placement", Type: models.ItemTypeEpic, Priority: models.PriorityHigh},
		{Key: "s1", Title: "Checkout payment step", Description: "Customers pay for their cart at checkout", Type: models.ItemTypeStory, Priority: models.PriorityMedium},
	}

	organized, stats := Reconcile(drafts, DefaultRegistry())

	if stats.CreatedEpics != 0 {
		t.Errorf("CreatedEpics = %d, want 0 (category already claimed)", stats.CreatedEpics)
	}

	story := findByKey(t, organized, "s1")
	if story.ParentReference != "Checkout and order flow" {
		t.Errorf("story.ParentReference = %q, want %q", story.ParentReference, "Checkout and order flow")
	}
	if story.ParentKey != "e2" {
		t.Errorf("story.ParentKey = %q, want %q (last epic in the category holds the claim)", story.ParentKey, "e2")
	}
	if got := stats.EpicCategories["Shopping cart foundations"]; got != "Shopping & Ordering" {
		t.Errorf("EpicCategories[e1] = %q, want %q (earlier epics keep their category tag)", got, "Shopping & Ordering")
	}
}

func TestReconcile_OrphanSweepUsesFallback(t *testing.T) {
	drafts := []models.WorkItemDraft{
		{Key: "s1", Title: "Zzz qqq vvv", Description: "xxxx yyyy zzzz wwww", Type: models.ItemTypeStory, Priority: models.PriorityMedium},
	}

	organized, stats := Reconcile(drafts, DefaultRegistry())

	if len(organized) != 2 {
		t.Fatalf("len(organized) = %d, want 2", len(organized))
	}

	story := findByKey(t, organized, "s1")
	if story.ParentReference != FallbackCategory {
		t.Errorf("story.ParentReference = %q, want %q", story.ParentReference, FallbackCategory)
	}
	if story.Category != FallbackCategory {
		t.Errorf("story.Category = %q, want %q", story.Category, FallbackCategory)
	}
	if stats.CreatedEpics != 1 {
		t.Errorf("CreatedEpics = %d, want 1", stats.CreatedEpics)
	}
	if stats.OrphanedItems != 0 {
		t.Errorf("OrphanedItems = %d, want 0 (sweep must link every story)", stats.OrphanedItems)
	}
}

func TestReconcile_TaskAttachesToBestStory(t *testing.T) {
	drafts := []models.WorkItemDraft{
		{Key: "s1", Title: "User registration form", Description: "New users sign up with their details", Type: models.ItemTypeStory, Priority: models.PriorityMedium},
		{Key: "s2", Title: "Password reset flow", Description: "Users can reset their password via email", Type: models.ItemTypeStory, Priority: models.PriorityMedium},
		{Key: "t1", Title: "Create password reset endpoint", Description: "Backend endpoint that sends the reset email", Type: models.ItemTypeTask, Priority: models.PriorityMedium},
	}

	organized, _ := Reconcile(drafts, DefaultRegistry())

	task := findByKey(t, organized, "t1")
	if task.ParentReference != "Password reset flow" {
		t.Errorf("task.ParentReference = %q, want %q", task.ParentReference, "Password reset flow")
	}
	if task.ParentKey != "s2" {
		t.Errorf("task.ParentKey = %q, want %q", task.ParentKey, "s2")
	}
}

func TestReconcile_TaskFallsBackToFirstStory(t *testing.T) {
	drafts := []models.WorkItemDraft{
		{Key: "s1", Title: "User registration form", Description: "New users sign up", Type: models.ItemTypeStory, Priority: models.PriorityMedium},
		{Key: "s2", Title: "Password reset flow", Description: "Reset password via email", Type: models.ItemTypeStory, Priority: models.PriorityMedium},
		{Key: "t1", Title: "Zzzz qqqq", Description: "xxxx yyyy vvvv", Type: models.ItemTypeTask, Priority: models.PriorityMedium},
	}

	organized, _ := Reconcile(drafts, DefaultRegistry())

	task := findByKey(t, organized, "t1")
	if task.ParentKey != "s1" {
		t.Errorf("task.ParentKey = %q, want %q (first story)", task.ParentKey, "s1")
	}
}

func TestReconcile_TasksWithoutStoriesStayOrphaned(t *testing.T) {
	drafts := []models.WorkItemDraft{
		{Key: "t1", Title: "Configure build pipeline", Description: "Set up continuous integration", Type: models.ItemTypeTask, Priority: models.PriorityMedium},
		{Key: "t2", Title: "Provision database", Description: "Create the production database", Type: models.ItemTypeTask, Priority: models.PriorityMedium},
	}

	organized, stats := Reconcile(drafts, DefaultRegistry())

	if len(organized) != 2 {
		t.Fatalf("len(organized) = %d, want 2", len(organized))
	}
	if stats.OrphanedItems != 2 {
		t.Errorf("OrphanedItems = %d, want 2", stats.OrphanedItems)
	}
	for _, item := range organized {
		if item.ParentReference != "" {
			t.Errorf("item %s ParentReference = %q, want empty", item.Key, item.ParentReference)
		}
		if item.OrderIndex != 1 {
			t.Errorf("item %s OrderIndex = %d, want 1", item.Key, item.OrderIndex)
		}
	}
}

func TestReconcile_SubtaskPrefersTasks(t *testing.T) {
	drafts := []models.WorkItemDraft{
		{Key: "s1", Title: "Password reset flow", Description: "Users can reset their password", Type: models.ItemTypeStory, Priority: models.PriorityMedium},
		{Key: "t1", Title: "Create password reset endpoint", Description: "Backend endpoint for password reset", Type: models.ItemTypeTask, Priority: models.PriorityMedium},
		{Key: "u1", Title: "Validate password reset token", Description: "Check token expiry on the reset endpoint", Type: models.ItemTypeSubtask, Priority: models.PriorityMedium},
	}

	organized, _ := Reconcile(drafts, DefaultRegistry())

	subtask := findByKey(t, organized, "u1")
	if subtask.ParentKey != "t1" {
		t.Errorf("subtask.ParentKey = %q, want %q (tasks preferred over stories)", subtask.ParentKey, "t1")
	}
}

func TestReconcile_SubtaskFallsBackToStories(t *testing.T) {
	drafts := []models.WorkItemDraft{
		{Key: "s1", Title: "Password reset flow", Description: "Users can reset their password", Type: models.ItemTypeStory, Priority: models.PriorityMedium},
		{Key: "u1", Title: "Validate password reset token", Description: "Check token expiry", Type: models.ItemTypeSubtask, Priority: models.PriorityMedium},
	}

	organized, _ := Reconcile(drafts, DefaultRegistry())

	subtask := findByKey(t, organized, "u1")
	if subtask.ParentKey != "s1" {
		t.Errorf("subtask.ParentKey = %q, want %q", subtask.ParentKey, "s1")
	}
}

func TestReconcile_OrderIndicesPerParentGroup(t *testing.T) {
	drafts := []models.WorkItemDraft{
		{Key: "e1", Title: "Shopping cart management", Description: "Manage the shopping cart and checkout process", Type: models.ItemTypeEpic, Priority: models.PriorityHigh},
		{Key: "s1", Title: "Slow path", Description: "A low priority checkout story for the cart", Type: models.ItemTypeStory, Priority: models.PriorityLow, ParentReference: "Shopping cart management", ParentKey: "e1"},
		{Key: "s2", Title: "Urgent path", Description: "A critical checkout story for the cart", Type: models.ItemTypeStory, Priority: models.PriorityCritical, ParentReference: "Shopping cart management", ParentKey: "e1"},
		{Key: "s3", Title: "Another urgent path", Description: "A second critical checkout story", Type: models.ItemTypeStory, Priority: models.PriorityCritical, ParentReference: "Shopping cart management", ParentKey: "e1"},
	}

	organized, _ := Reconcile(drafts, DefaultRegistry())

	// Critical before low; equal priorities tie-break on title.
	wantOrder := map[string]int{
		"s3": 1, // "Another urgent path"
		"s2": 2, // "Urgent path"
		"s1": 3, // low priority sorts last
	}
	for key, want := range wantOrder {
		item := findByKey(t, organized, key)
		if item.OrderIndex != want {
			t.Errorf("%s OrderIndex = %d, want %d", key, item.OrderIndex, want)
		}
	}

	epic := findByKey(t, organized, "e1")
	if epic.OrderIndex != 1 {
		t.Errorf("epic OrderIndex = %d, want 1", epic.OrderIndex)
	}
}

func TestReconcile_PluralTypesNormalized(t *testing.T) {
	drafts := []models.WorkItemDraft{
		{Key: "s1", Title: "Checkout cart flow", Description: "Shopping cart and checkout behavior", Type: models.ItemType("stories"), Priority: models.PriorityMedium},
	}

	organized, stats := Reconcile(drafts, DefaultRegistry())

	story := findByKey(t, organized, "s1")
	if story.Type != models.ItemTypeStory {
		t.Errorf("story.Type = %q, want %q", story.Type, models.ItemTypeStory)
	}
	if stats.OriginalCounts.Stories != 1 {
		t.Errorf("OriginalCounts.Stories = %d, want 1", stats.OriginalCounts.Stories)
	}
}

func TestReconcile_NoOrphanGuarantee(t *testing.T) {
	drafts := []models.WorkItemDraft{
		{Key: "e1", Title: "Shopping cart management", Description: "Manage the shopping cart and checkout process", Type: models.ItemTypeEpic, Priority: models.PriorityHigh},
		{Key: "s1", Title: "Checkout flow improvements", Description: "Streamline cart to checkout steps", Type: models.ItemTypeStory, Priority: models.PriorityMedium},
		{Key: "s2", Title: "Zzz qqq vvv", Description: "xxxx yyyy zzzz wwww", Type: models.ItemTypeStory, Priority: models.PriorityMedium},
		{Key: "t1", Title: "Wire checkout button", Description: "Hook up the checkout flow", Type: models.ItemTypeTask, Priority: models.PriorityMedium},
		{Key: "u1", Title: "Style checkout button", Description: "Apply theme to the checkout button", Type: models.ItemTypeSubtask, Priority: models.PriorityLow},
	}

	organized, stats := Reconcile(drafts, DefaultRegistry())

	titles := make(map[string]bool)
	for _, item := range organized {
		titles[item.Title] = true
	}

	for _, item := range organized {
		if item.Type == models.ItemTypeEpic {
			continue
		}
		if item.ParentReference == "" {
			t.Errorf("item %q has no parent after reconciliation", item.Title)
			continue
		}
		if !titles[item.ParentReference] {
			t.Errorf("item %q references parent %q not present in output", item.Title, item.ParentReference)
		}
	}

	if stats.OrphanedItems != 0 {
		t.Errorf("OrphanedItems = %d, want 0", stats.OrphanedItems)
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	drafts := []models.WorkItemDraft{
		{Key: "e1", Title: "Shopping cart management", Description: "Manage the shopping cart and checkout process", Type: models.ItemTypeEpic, Priority: models.PriorityHigh},
		{Key: "s1", Title: "Checkout flow improvements", Description: "Streamline cart to checkout steps", Type: models.ItemTypeStory, Priority: models.PriorityMedium},
		{Key: "s2", Title: "User login page", Description: "Allow users to authenticate with email and password", Type: models.ItemTypeStory, Priority: models.PriorityHigh},
		{Key: "t1", Title: "Wire checkout button", Description: "Hook up the checkout flow", Type: models.ItemTypeTask, Priority: models.PriorityMedium},
	}

	first, firstStats := Reconcile(drafts, DefaultRegistry())
	second, secondStats := Reconcile(first, DefaultRegistry())

	if firstStats.CreatedEpics == 0 {
		t.Fatal("first pass created no epics; test input should force synthesis")
	}
	if secondStats.CreatedEpics != 0 {
		t.Errorf("second pass CreatedEpics = %d, want 0 (no re-synthesis)", secondStats.CreatedEpics)
	}
	if len(second) != len(first) {
		t.Fatalf("second pass emitted %d items, want %d", len(second), len(first))
	}

	// Emission order may regroup by type on a rerun; what must not change is
	// each item's parent link and order index.
	firstByKey := make(map[string]models.WorkItemDraft)
	for _, item := range first {
		firstByKey[item.Key] = item
	}
	for _, item := range second {
		want, ok := firstByKey[item.Key]
		if !ok {
			t.Errorf("second pass introduced item %q", item.Title)
			continue
		}
		if !reflect.DeepEqual(item, want) {
			t.Errorf("item %q changed on rerun:\nfirst:  %+v\nsecond: %+v", want.Title, want, item)
		}
	}
}

func TestReconcile_DuplicateTitlesResolveToFirst(t *testing.T) {
	drafts := []models.WorkItemDraft{
		{Key: "s1", Title: "Checkout flow process", Description: "Complete the checkout flow", Type: models.ItemTypeStory, Priority: models.PriorityMedium},
		{Key: "s2", Title: "Checkout flow process", Description: "Complete the checkout flow", Type: models.ItemTypeStory, Priority: models.PriorityMedium},
		{Key: "t1", Title: "Wire checkout button", Description: "Hook up the checkout flow", Type: models.ItemTypeTask, Priority: models.PriorityMedium},
	}

	organized, _ := Reconcile(drafts, DefaultRegistry())

	task := findByKey(t, organized, "t1")
	if task.ParentKey != "s1" {
		t.Errorf("task.ParentKey = %q, want %q (first of the duplicate titles)", task.ParentKey, "s1")
	}
}

func findByKey(t *testing.T, items []models.WorkItemDraft, key string) models.WorkItemDraft {
	t.Helper()
	for _, item := range items {
		if item.Key == key {
			return item
		}
	}
	t.Fatalf("no item with key %q", key)
	return models.WorkItemDraft{}
}
