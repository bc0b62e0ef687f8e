package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/planweave/planweave/internal/config"
	"github.com/planweave/planweave/internal/extract"
	"github.com/planweave/planweave/internal/pipeline"
	"github.com/planweave/planweave/internal/store"
	"github.com/planweave/planweave/pkg/models"
)

var (
	watchProject string
	watchMinimal bool
)

var watchCmd = &cobra.Command{
	Use:   "watch <directory>",
	Short: "Watch a directory and process new documents",
	Long: `Watch a directory for new requirements documents and process each one
as it appears.

Any queued jobs left over from earlier runs are drained first, then the
watcher enqueues and runs a job for every supported document created in the
directory. Stop with Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchProject, "project", "", "Project to add work items to (default from config)")
	watchCmd.Flags().BoolVar(&watchMinimal, "minimal", false, "Generate fewer, coarser work items")
}

func runWatch(cmd *cobra.Command, args []string) error {
	dir, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolving directory path: %w", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	p, err := buildPipeline(cfg, db, watchMinimal, "")
	if err != nil {
		return err
	}

	projectName := watchProject
	if projectName == "" {
		projectName = cfg.Pipeline.Project
	}
	project, err := db.EnsureProject(projectName)
	if err != nil {
		return fmt.Errorf("ensure project %q: %w", projectName, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	printStatus("✓", fmt.Sprintf("Watching %s for documents (project %q)", dir, project.Name), color.FgGreen)

	drainQueue(cmd.Context(), db, p)

	ctx := cmd.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create == 0 {
				continue
			}
			if !extract.Supported(event.Name) {
				continue
			}

			job, err := db.CreateJob(project.ID, event.Name, watchMinimal || cfg.Pipeline.Minimal)
			if err != nil {
				log.Printf("[watch] enqueue %s: %v", event.Name, err)
				continue
			}
			fmt.Printf("Processing %s...\n", filepath.Base(event.Name))
			if err := p.RunJob(ctx, job.ID); err != nil {
				printStatus("✗", fmt.Sprintf("%s: %v", filepath.Base(event.Name), err), color.FgRed)
				continue
			}
			if done, err := db.GetJob(job.ID); err == nil {
				printStatus("✓", done.Message, color.FgGreen)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("[watch] watcher error: %v", err)
		}
	}
}

// drainQueue runs any jobs still queued from earlier invocations.
func drainQueue(ctx context.Context, db *store.DB, p *pipeline.Pipeline) {
	for {
		if ctx.Err() != nil {
			return
		}
		job, err := db.NextQueued()
		if err != nil {
			log.Printf("[watch] next queued: %v", err)
			return
		}
		if job == nil {
			return
		}
		fmt.Printf("Resuming queued job for %s...\n", filepath.Base(job.DocumentPath))
		if err := p.RunJob(ctx, job.ID); err != nil {
			printStatus("✗", fmt.Sprintf("%s: %v", filepath.Base(job.DocumentPath), err), color.FgRed)
			// Jobs that error before reaching a terminal state would be
			// picked up again on the next iteration.
			if current, gerr := db.GetJob(job.ID); gerr == nil && current.Status == models.JobStatusQueued {
				db.FailJob(job.ID, err.Error())
			}
		} else if done, err := db.GetJob(job.ID); err == nil {
			printStatus("✓", done.Message, color.FgGreen)
		}
	}
}
