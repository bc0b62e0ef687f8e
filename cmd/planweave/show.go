package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/planweave/planweave/internal/config"
	"github.com/planweave/planweave/internal/store"
	"github.com/planweave/planweave/pkg/models"
)

var showProject string

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the work item tree for a project",
	Long: `Display the work item hierarchy for a project as an indented tree.

Epics are listed first by priority, with stories, tasks, and subtasks
nested beneath their parents in reconciled order.`,
	RunE: runShow,
}

func init() {
	showCmd.Flags().StringVar(&showProject, "project", "", "Project to display (default from config)")
}

func runShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	projectName := showProject
	if projectName == "" {
		projectName = cfg.Pipeline.Project
	}

	project, err := db.FindProjectByName(projectName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			fmt.Printf("No project named %q. Run 'planweave process <file>' to create one.\n", projectName)
			return nil
		}
		return fmt.Errorf("find project %q: %w", projectName, err)
	}

	roots, err := db.LoadProjectTree(project.ID)
	if err != nil {
		return fmt.Errorf("load project tree: %w", err)
	}

	if len(roots) == 0 {
		fmt.Printf("Project %q has no work items yet.\n", project.Name)
		return nil
	}

	fmt.Printf("Project: %s\n\n", project.Name)
	for _, root := range roots {
		displayItem(root, 0)
	}

	orphans, err := db.OrphanReport(project.ID)
	if err != nil {
		return fmt.Errorf("orphan report: %w", err)
	}
	if len(orphans) > 0 {
		fmt.Println()
		printStatus("⚠", fmt.Sprintf("%d items without a parent:", len(orphans)), color.FgYellow)
		for _, item := range orphans {
			fmt.Printf("    [%s] %s\n", item.Type, item.Title)
		}
	}

	return nil
}

func displayItem(item *models.WorkItem, depth int) {
	indent := strings.Repeat("  ", depth)

	tag := fmt.Sprintf("[%s]", item.Type)
	if item.Type == models.ItemTypeEpic {
		tag = color.New(color.FgCyan, color.Bold).Sprint(tag)
	}

	suffix := ""
	if item.Priority == models.PriorityCritical || item.Priority == models.PriorityHigh {
		suffix = " " + color.New(color.FgRed).Sprintf("(%s)", item.Priority)
	}
	if item.Generated {
		suffix += " " + color.New(color.FgYellow).Sprint("(generated)")
	}

	fmt.Printf("%s%s %s%s\n", indent, tag, item.Title, suffix)

	for _, child := range item.Children {
		displayItem(child, depth+1)
	}
}
