// Package consolidate implements pass 1 of the requirements pipeline:
// reducing a raw document into a small, bounded set of top-level epics.
package consolidate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/planweave/planweave/internal/normalize"
	"github.com/planweave/planweave/internal/provider"
	"github.com/planweave/planweave/pkg/models"
)

// Epic caps for the two processing modes.
const (
	// DefaultMaxEpics bounds the epic set in standard mode.
	DefaultMaxEpics = 5
	// MinimalMaxEpics bounds the epic set in minimal mode.
	MinimalMaxEpics = 3
	// maxChunkSize is the largest document slice sent in one prompt.
	maxChunkSize = 3000
)

// ErrEmptyDocument is returned when the document contains no usable text.
// This is caller-level validation: an empty document never reaches the
// provider.
var ErrEmptyDocument = errors.New("empty document provided")

// Generator produces text from prompts. *provider.Orchestrator satisfies it.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Result is the outcome of consolidation. Zero epics with a non-empty
// summary is a degenerate but valid outcome, not an error.
type Result struct {
	// Epics is the bounded set of top-level epics, each carrying its
	// consolidated requirement fragments.
	Epics []models.WorkItemDraft
	// Summary describes the outcome; on provider exhaustion it explains the
	// failure instead of raising.
	Summary string
}

// Consolidator reduces documents to bounded epic sets.
type Consolidator struct {
	gen      Generator
	maxEpics int
}

// New creates a Consolidator with the standard epic cap.
func New(gen Generator) *Consolidator {
	return &Consolidator{gen: gen, maxEpics: DefaultMaxEpics}
}

// NewMinimal creates a Consolidator with the reduced epic cap used by
// minimal-mode jobs.
func NewMinimal(gen Generator) *Consolidator {
	return &Consolidator{gen: gen, maxEpics: MinimalMaxEpics}
}

// MaxEpics returns the configured epic cap.
func (c *Consolidator) MaxEpics() int {
	return c.maxEpics
}

// Consolidate runs pass 1 over the document. Provider exhaustion degrades to
// zero epics with an explanatory summary; only an empty document is an
// error.
func (c *Consolidator) Consolidate(ctx context.Context, documentText string) (Result, error) {
	if strings.TrimSpace(documentText) == "" {
		return Result{}, ErrEmptyDocument
	}

	chunks := ChunkText(documentText, maxChunkSize)
	log.Printf("[consolidate] processing %d chunks with epic cap %d", len(chunks), c.maxEpics)

	var epics []models.WorkItemDraft
	var summaries []string

	for i, chunk := range chunks {
		if len(epics) >= c.maxEpics {
			break
		}

		raw, err := c.gen.Generate(ctx, consolidationSystemPrompt, fmt.Sprintf(consolidationPrompt, c.maxEpics, chunk, c.maxEpics))
		if err != nil {
			if errors.Is(err, provider.ErrAllQuotaExhausted) {
				// Further chunks would hit the same quota walls.
				summaries = append(summaries, fmt.Sprintf("chunk %d: provider quota exhausted", i+1))
				log.Printf("[consolidate] chunk %d: quota exhausted, stopping", i+1)
				break
			}
			// One chunk's failure must not abort the remaining chunks.
			summaries = append(summaries, fmt.Sprintf("chunk %d failed: %v", i+1, err))
			log.Printf("[consolidate] chunk %d failed: %v", i+1, err)
			continue
		}

		result := normalize.Normalize(raw)
		if result.Fallback {
			summaries = append(summaries, fmt.Sprintf("chunk %d: unparseable response, queued for manual review", i+1))
		}
		if result.Summary != "" {
			summaries = append(summaries, result.Summary)
		}

		for _, draft := range result.Drafts {
			if len(epics) >= c.maxEpics {
				break
			}
			epics = append(epics, asEpic(draft))
		}
	}

	summary := strings.Join(summaries, " | ")
	if len(epics) == 0 && summary == "" {
		summary = "consolidation produced no epics"
	}

	return Result{Epics: epics, Summary: summary}, nil
}

// asEpic forces a draft to epic type. Pass 1 output is epics by contract;
// anything else the provider labeled differently is still a top-level
// grouping here.
func asEpic(draft models.WorkItemDraft) models.WorkItemDraft {
	draft.Type = models.ItemTypeEpic
	draft.ParentReference = ""
	return draft
}

// ChunkText splits text into word-boundary chunks no larger than maxSize.
// Text at or under the limit is returned as a single chunk.
func ChunkText(text string, maxSize int) []string {
	if len(text) <= maxSize {
		return []string{text}
	}

	var chunks []string
	var current []string
	currentSize := 0

	for _, word := range strings.Fields(text) {
		wordSize := len(word) + 1 // trailing space
		if currentSize+wordSize > maxSize && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
			current = []string{word}
			currentSize = wordSize
		} else {
			current = append(current, word)
			currentSize += wordSize
		}
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}

	return chunks
}
