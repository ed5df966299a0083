package main

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// createAnalyzeWebsiteTool returns the analyze_website tool definition
func createAnalyzeWebsiteTool() mcp.Tool {
	return mcp.NewTool("analyze_website",
		mcp.WithDescription("Submit a business website URL for analysis. Returns the analysis id immediately; poll get_analysis for results."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Website URL to analyze (scheme optional, https is assumed)"),
		),
		mcp.WithNumber("max_depth",
			mcp.Description("Link levels to crawl beyond the start page (default from server config)"),
		),
	)
}

// createGetAnalysisTool returns the get_analysis tool definition
func createGetAnalysisTool() mcp.Tool {
	return mcp.NewTool("get_analysis",
		mcp.WithDescription("Get the status of an analysis and, once completed, its full report"),
		mcp.WithString("analysis_id",
			mcp.Required(),
			mcp.Description("Analysis ID (format: an_{uuid})"),
		),
	)
}

// createListAnalysesTool returns the list_analyses tool definition
func createListAnalysesTool() mcp.Tool {
	return mcp.NewTool("list_analyses",
		mcp.WithDescription("List recent website analyses with their status"),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default: 20)"),
		),
	)
}
