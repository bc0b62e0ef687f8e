package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/planweave/planweave/internal/config"
	"github.com/planweave/planweave/pkg/models"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent document processing jobs",
	Long: `Display recent document processing jobs and their outcomes.

Shows each job's document, status, progress, and completion summary or
failure message.`,
	RunE: runStatus,
}

var retryCmd = &cobra.Command{
	Use:   "retry <job-id>",
	Short: "Re-queue a failed job",
	Args:  cobra.ExactArgs(1),
	RunE:  runRetry,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	jobs, err := db.ListJobs()
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Println("No jobs yet. Run 'planweave process <file>' to start.")
		return nil
	}

	fmt.Printf("Jobs (%d):\n", len(jobs))
	for _, job := range jobs {
		displayJob(job)
	}
	return nil
}

func displayJob(job *models.Job) {
	symbol, attr := jobGlyph(job.Status)
	elapsed := formatDuration(time.Since(job.CreatedAt))

	line := fmt.Sprintf("%s [%s] (%s ago)", filepath.Base(job.DocumentPath), job.Status, elapsed)
	if job.Status == models.JobStatusProcessing {
		line = fmt.Sprintf("%s %d%%", line, job.Progress)
	}
	printStatus(symbol, line, attr)

	if job.Message != "" {
		fmt.Printf("    %s\n", job.Message)
	}
	if job.Status == models.JobStatusFailed {
		fmt.Printf("    retry with: planweave retry %s\n", job.ID)
	}
}

func jobGlyph(status models.JobStatus) (string, color.Attribute) {
	switch status {
	case models.JobStatusDone:
		return "✓", color.FgGreen
	case models.JobStatusFailed:
		return "✗", color.FgRed
	case models.JobStatusProcessing:
		return "⟳", color.FgCyan
	default:
		return "•", color.FgYellow
	}
}

func runRetry(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	jobID := args[0]
	if err := db.RetryJob(jobID); err != nil {
		return fmt.Errorf("retry job %s: %w", jobID, err)
	}

	p, err := buildPipeline(cfg, db, false, "")
	if err != nil {
		printStatus("•", fmt.Sprintf("Job %s re-queued; run 'planweave watch' to process it (%v)", jobID, err), color.FgYellow)
		return nil
	}

	if err := p.RunJob(cmd.Context(), jobID); err != nil {
		printStatus("✗", fmt.Sprintf("Job %s failed again", jobID), color.FgRed)
		return err
	}

	done, err := db.GetJob(jobID)
	if err != nil {
		return fmt.Errorf("get job: %w", err)
	}
	printStatus("✓", done.Message, color.FgGreen)
	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		if m > 0 {
			return fmt.Sprintf("%dh%dm", h, m)
		}
		return fmt.Sprintf("%dh", h)
	}
	days := int(d.Hours()) / 24
	return fmt.Sprintf("%dd", days)
}

// printStatus prints a status line with color.
func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}
