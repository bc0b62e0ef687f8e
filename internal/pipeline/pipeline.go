// Package pipeline runs the full document-to-work-items flow: extract,
// consolidate, decompose, reconcile, materialize. One job per document,
// sequential by design since every provider call shares the same quota.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/planweave/planweave/internal/breakdown"
	"github.com/planweave/planweave/internal/consolidate"
	"github.com/planweave/planweave/internal/extract"
	"github.com/planweave/planweave/internal/hierarchy"
	"github.com/planweave/planweave/internal/provider"
	"github.com/planweave/planweave/internal/store"
	"github.com/planweave/planweave/pkg/models"
)

// placeholderExcerptLen bounds the document excerpt used when consolidation
// yields no epics but the document is still worth materializing.
const placeholderExcerptLen = 200

// ErrNothingToReconcile is returned when consolidation produces neither
// epics nor any usable summary.
var ErrNothingToReconcile = errors.New("consolidation produced no epics and no summary")

// Generator produces text from prompts. *provider.Orchestrator satisfies it.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Options configures a Pipeline.
type Options struct {
	// Minimal lowers the epic and per-epic item caps.
	Minimal bool
	// Registry overrides the default category registry when non-nil.
	Registry *hierarchy.Registry
	// Logger receives debug output. Nil disables debug logging.
	Logger *DebugLogger
}

// Pipeline glues the processing stages together around a job record.
type Pipeline struct {
	db           *store.DB
	consolidator *consolidate.Consolidator
	decomposer   *breakdown.Decomposer
	registry     hierarchy.Registry
	logger       *DebugLogger
}

// New creates a Pipeline backed by the given generator and store.
func New(gen Generator, db *store.DB, opts Options) *Pipeline {
	consolidator := consolidate.New(gen)
	decomposer := breakdown.New(gen)
	if opts.Minimal {
		consolidator = consolidate.NewMinimal(gen)
		decomposer = breakdown.NewMinimal(gen)
	}

	registry := hierarchy.DefaultRegistry()
	if opts.Registry != nil {
		registry = *opts.Registry
	}

	return &Pipeline{
		db:           db,
		consolidator: consolidator,
		decomposer:   decomposer,
		registry:     registry,
		logger:       opts.Logger,
	}
}

// RunJob processes one queued job end to end, recording progress
// checkpoints and the terminal status on the job record.
func (p *Pipeline) RunJob(ctx context.Context, jobID string) error {
	job, err := p.db.GetJob(jobID)
	if err != nil {
		return err
	}

	if err := p.db.MarkProcessing(job.ID); err != nil {
		return err
	}
	p.checkpoint(job.ID, 10, "Starting document processing")
	p.logger.Log("job %s: processing %s", job.ID, job.DocumentPath)

	text, err := extract.FromFile(job.DocumentPath)
	if err != nil {
		return p.fail(job.ID, fmt.Errorf("text extraction failed: %w", err))
	}
	p.checkpoint(job.ID, 30, "Document text extracted")

	p.checkpoint(job.ID, 60, "Parsing requirements with provider")
	organized, stats, err := p.ProcessDocument(ctx, text)
	if err != nil {
		return p.fail(job.ID, err)
	}
	p.logger.Log("job %s: reconciled %d items (%d epics created, %d links, %d orphans)",
		job.ID, len(organized), stats.CreatedEpics, stats.AssignedRelationships, stats.OrphanedItems)

	p.checkpoint(job.ID, 80, "Materializing work items")
	items, err := p.db.MaterializeTree(job.ProjectID, organized)
	if err != nil {
		return p.fail(job.ID, fmt.Errorf("materialize work items: %w", err))
	}

	message := CompletionMessage(len(items), stats.FinalCounts, filepath.Base(job.DocumentPath))
	if err := p.db.CompleteJob(job.ID, message); err != nil {
		return err
	}
	log.Printf("[pipeline] job %s done: %s", job.ID, message)
	return nil
}

// ProcessDocument runs the two AI passes and reconciliation over raw
// document text, without touching job records. Per-epic decomposition
// failures are isolated; provider quota exhaustion stops further passes but
// keeps what was already produced.
func (p *Pipeline) ProcessDocument(ctx context.Context, documentText string) ([]models.WorkItemDraft, hierarchy.Stats, error) {
	consResult, err := p.consolidator.Consolidate(ctx, documentText)
	if err != nil {
		return nil, hierarchy.Stats{}, fmt.Errorf("consolidate document: %w", err)
	}

	epics := consResult.Epics
	if len(epics) == 0 {
		if strings.TrimSpace(consResult.Summary) == "" {
			return nil, hierarchy.Stats{}, ErrNothingToReconcile
		}
		p.logger.Log("consolidation yielded no epics (%s), using placeholder", consResult.Summary)
		epics = []models.WorkItemDraft{placeholderEpic(documentText, consResult.Summary)}
	}

	drafts := append([]models.WorkItemDraft(nil), epics...)
	for _, epic := range epics {
		result, err := p.decomposer.Decompose(ctx, epic, documentText)
		if err != nil {
			if errors.Is(err, provider.ErrAllQuotaExhausted) {
				log.Printf("[pipeline] quota exhausted during breakdown of %q, keeping partial results", epic.Title)
				break
			}
			// One epic's failure must not abort the others.
			log.Printf("[pipeline] breakdown failed for %q: %v", epic.Title, err)
			continue
		}
		drafts = append(drafts, result.WorkItems...)
	}

	organized, stats := hierarchy.Reconcile(drafts, p.registry)
	return organized, stats, nil
}

// CompletionMessage formats the terminal job message. The format is parsed
// by downstream consumers; change it only with their coordination.
func CompletionMessage(itemCount int, counts hierarchy.TypeCounts, fileName string) string {
	return fmt.Sprintf("Created %d work items from %d epics of file '%s'. Breakdown: %d epics, %d stories, %d tasks, %d subtasks",
		itemCount, counts.Epics, fileName,
		counts.Epics, counts.Stories, counts.Tasks, counts.Subtasks)
}

// placeholderEpic builds the single epic used when consolidation found
// nothing structured but the document still has content.
func placeholderEpic(documentText, summary string) models.WorkItemDraft {
	excerpt := strings.TrimSpace(documentText)
	if len(excerpt) > placeholderExcerptLen {
		excerpt = excerpt[:placeholderExcerptLen]
	}
	return models.WorkItemDraft{
		Key:         uuid.New().String(),
		Title:       "Document requirements review",
		Description: fmt.Sprintf("Requirements could not be consolidated automatically (%s). Document excerpt: %s", summary, excerpt),
		Type:        models.ItemTypeEpic,
		Priority:    models.PriorityMedium,
	}
}

func (p *Pipeline) checkpoint(jobID string, progress int, message string) {
	if err := p.db.UpdateProgress(jobID, progress, message); err != nil {
		log.Printf("[pipeline] progress update failed for job %s: %v", jobID, err)
	}
}

func (p *Pipeline) fail(jobID string, cause error) error {
	p.logger.Log("job %s failed: %v", jobID, cause)
	if err := p.db.FailJob(jobID, cause.Error()); err != nil {
		log.Printf("[pipeline] could not mark job %s failed: %v", jobID, err)
	}
	return cause
}
