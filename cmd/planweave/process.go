package main

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/planweave/planweave/internal/config"
	"github.com/planweave/planweave/internal/extract"
)

var (
	processProject  string
	processMinimal  bool
	processRegistry string
)

var processCmd = &cobra.Command{
	Use:   "process <file>",
	Short: "Process a requirements document into work items",
	Long: `Process a requirements document and generate a work item hierarchy.

The document is consolidated into epics, each epic is broken down into
stories, tasks, and subtasks, and the resulting tree is saved to the
configured project.

Supported formats: .txt, .text, .md, .markdown

Examples:
  planweave process requirements.md
  planweave process spec.txt --project Storefront
  planweave process spec.txt --minimal`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	processCmd.Flags().StringVar(&processProject, "project", "", "Project to add work items to (default from config)")
	processCmd.Flags().BoolVar(&processMinimal, "minimal", false, "Generate fewer, coarser work items")
	processCmd.Flags().StringVar(&processRegistry, "registry", "", "Path to a category registry YAML override")
}

func runProcess(cmd *cobra.Command, args []string) error {
	docPath, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolving document path: %w", err)
	}
	if !extract.Supported(docPath) {
		return fmt.Errorf("unsupported document format: %s", filepath.Ext(docPath))
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

	p, err := buildPipeline(cfg, db, processMinimal, processRegistry)
	if err != nil {
		return err
	}

	projectName := processProject
	if projectName == "" {
		projectName = cfg.Pipeline.Project
	}
	project, err := db.EnsureProject(projectName)
	if err != nil {
		return fmt.Errorf("ensure project %q: %w", projectName, err)
	}

	job, err := db.CreateJob(project.ID, docPath, processMinimal || cfg.Pipeline.Minimal)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}

	fmt.Printf("Processing %s into project %q...\n", filepath.Base(docPath), project.Name)

	if err := p.RunJob(cmd.Context(), job.ID); err != nil {
		printStatus("✗", fmt.Sprintf("Job %s failed", job.ID), color.FgRed)
		return err
	}

	done, err := db.GetJob(job.ID)
	if err != nil {
		return fmt.Errorf("get job: %w", err)
	}
	printStatus("✓", done.Message, color.FgGreen)

	orphans, err := db.OrphanReport(project.ID)
	if err != nil {
		return fmt.Errorf("orphan report: %w", err)
	}
	if len(orphans) > 0 {
		printStatus("⚠", fmt.Sprintf("%d items have no parent; review with 'planweave show --project %q'", len(orphans), project.Name), color.FgYellow)
	}

	return nil
}
