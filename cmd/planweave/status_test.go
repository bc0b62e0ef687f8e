package main

import (
	"testing"
	"time"

	"github.com/fatih/color"

	"github.com/planweave/planweave/pkg/models"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "30s"},
		{90 * time.Second, "1m"},
		{45 * time.Minute, "45m"},
		{2 * time.Hour, "2h"},
		{2*time.Hour + 30*time.Minute, "2h30m"},
		{26 * time.Hour, "1d"},
	}

	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestJobGlyph(t *testing.T) {
	tests := []struct {
		status models.JobStatus
		symbol string
		attr   color.Attribute
	}{
		{models.JobStatusDone, "✓", color.FgGreen},
		{models.JobStatusFailed, "✗", color.FgRed},
		{models.JobStatusProcessing, "⟳", color.FgCyan},
		{models.JobStatusQueued, "•", color.FgYellow},
	}

	for _, tt := range tests {
		symbol, attr := jobGlyph(tt.status)
		if symbol != tt.symbol || attr != tt.attr {
			t.Errorf("jobGlyph(%s) = (%q, %v), want (%q, %v)", tt.status, symbol, attr, tt.symbol, tt.attr)
		}
	}
}
