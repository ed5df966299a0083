package main

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/specto/internal/interfaces"
	"github.com/ternarybob/specto/internal/models"
)

// handleAnalyzeWebsite implements the analyze_website tool
func handleAnalyzeWebsite(analysisService interfaces.AnalysisService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil || url == "" {
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent("Error: url parameter is required"),
				},
			}, nil
		}

		// Negative depth means "use the configured default"
		maxDepth := request.GetInt("max_depth", -1)

		job, err := analysisService.Submit(ctx, url, maxDepth)
		if err != nil {
			logger.Error().Err(err).Str("url", url).Msg("Submit failed")
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent(fmt.Sprintf("Submit error: %v", err)),
				},
			}, nil
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewTextContent(formatSubmitted(job)),
			},
		}, nil
	}
}

// handleGetAnalysis implements the get_analysis tool
func handleGetAnalysis(analysisService interfaces.AnalysisService, reportService interfaces.ReportService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		analysisID, err := request.RequireString("analysis_id")
		if err != nil || analysisID == "" {
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent("Error: analysis_id parameter is required"),
				},
			}, nil
		}

		job, err := analysisService.GetJob(ctx, analysisID)
		if err != nil {
			logger.Error().Err(err).Str("analysis_id", analysisID).Msg("GetJob failed")
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent(fmt.Sprintf("Analysis not found: %v", err)),
				},
			}, nil
		}

		// Append the full report for completed analyses
		var report string
		if job.Status == models.AnalysisStatusCompleted {
			record, err := analysisService.GetRecord(ctx, analysisID)
			if err != nil {
				logger.Warn().Err(err).Str("analysis_id", analysisID).Msg("GetRecord failed")
			} else if markdown, err := reportService.Markdown(record); err != nil {
				logger.Warn().Err(err).Str("analysis_id", analysisID).Msg("Report rendering failed")
			} else {
				report = markdown
			}
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewTextContent(formatAnalysis(job, report)),
			},
		}, nil
	}
}

// handleListAnalyses implements the list_analyses tool
func handleListAnalyses(analysisService interfaces.AnalysisService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := request.GetInt("limit", 20)

		jobs, err := analysisService.ListJobs(ctx, limit)
		if err != nil {
			logger.Error().Err(err).Msg("ListJobs failed")
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent(fmt.Sprintf("List error: %v", err)),
				},
			}, nil
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewTextContent(formatAnalysesList(jobs)),
			},
		}, nil
	}
}
