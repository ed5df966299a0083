package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/specto/internal/models"
)

// formatSubmitted formats a freshly submitted analysis as markdown
func formatSubmitted(job *models.AnalysisJob) string {
	var sb strings.Builder
	sb.WriteString("## Analysis Started\n\n")
	sb.WriteString(fmt.Sprintf("**ID:** %s\n", job.ID))
	sb.WriteString(fmt.Sprintf("**URL:** %s\n", job.URL))
	sb.WriteString(fmt.Sprintf("**Status:** %s\n\n", job.Status))
	sb.WriteString("The analysis runs in the background. Call get_analysis with this id to check progress and retrieve the report.\n")
	return sb.String()
}

// formatAnalysis formats an analysis snapshot, with the report appended
// for completed jobs
func formatAnalysis(job *models.AnalysisJob, report string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Analysis %s\n\n", job.ID))
	sb.WriteString(fmt.Sprintf("**URL:** %s\n", job.URL))
	sb.WriteString(fmt.Sprintf("**Status:** %s\n", job.Status))
	sb.WriteString(fmt.Sprintf("**Progress:** %d%% (%s)\n", job.Progress.Percent, job.Progress.Stage))
	sb.WriteString(fmt.Sprintf("**Started:** %s\n", job.StartTime.Format(time.RFC3339)))

	if job.CompletedTime != nil {
		sb.WriteString(fmt.Sprintf("**Completed:** %s\n", job.CompletedTime.Format(time.RFC3339)))
		sb.WriteString(fmt.Sprintf("**Duration:** %s\n", job.Duration().Round(time.Millisecond)))
	}
	if job.Error != "" {
		sb.WriteString(fmt.Sprintf("**Error:** %s\n", job.Error))
	}

	if len(job.SinkErrors) > 0 {
		sb.WriteString("\n**Sink delivery failures:**\n")
		for sink, message := range job.SinkErrors {
			sb.WriteString(fmt.Sprintf("- %s: %s\n", sink, message))
		}
	}

	if report != "" {
		sb.WriteString("\n---\n\n")
		sb.WriteString(report)
	}

	return sb.String()
}

// formatAnalysesList formats recent analyses as markdown
func formatAnalysesList(jobs []*models.AnalysisJob) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Recent Analyses (%d)\n\n", len(jobs)))

	if len(jobs) == 0 {
		sb.WriteString("No analyses found.\n")
		return sb.String()
	}

	for i, job := range jobs {
		sb.WriteString(fmt.Sprintf("%d. **%s** (%s)\n", i+1, job.URL, job.Status))
		sb.WriteString(fmt.Sprintf("   ID: %s\n", job.ID))
		sb.WriteString(fmt.Sprintf("   Started: %s\n", job.StartTime.Format(time.RFC3339)))
		if job.CompletedTime != nil {
			sb.WriteString(fmt.Sprintf("   Duration: %s\n", job.Duration().Round(time.Millisecond)))
		}
		if job.Error != "" {
			sb.WriteString(fmt.Sprintf("   Error: %s\n", job.Error))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
