// -----------------------------------------------------------------------
// AI Summarizer - turns crawled site text into a structured business profile
// -----------------------------------------------------------------------

package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/specto/internal/common"
	"github.com/ternarybob/specto/internal/interfaces"
	"github.com/ternarybob/specto/internal/models"
	"github.com/ternarybob/specto/internal/services/llm"
	"github.com/ternarybob/specto/internal/templates"
)

// truncationMarker is appended when site text exceeds the content budget
const truncationMarker = "... [content truncated]"

// summaryTemplateName is the prompt template the summarizer loads, from
// the user override directory or the embedded defaults
const summaryTemplateName = "summary"

// ContentGenerator is the slice of the LLM provider factory the
// summarizer depends on
type ContentGenerator interface {
	GenerateContent(ctx context.Context, request *llm.ContentRequest) (*llm.ContentResponse, error)
}

// Summarizer sends aggregated site text to the configured AI provider and
// parses the response into an AIAnalysis. Summarization never fails the
// caller: every failure path degrades to an error placeholder so the
// analysis pipeline can continue with heuristic data only.
type Summarizer struct {
	generator ContentGenerator
	config    *common.LLMConfig
	template  *templates.Template
	logger    arbor.ILogger
}

// NewSummarizer creates a summarizer backed by the provider factory. The
// prompt template is resolved once at construction, so a broken override
// file fails startup instead of every analysis.
func NewSummarizer(generator ContentGenerator, config *common.LLMConfig, logger arbor.ILogger) (*Summarizer, error) {
	template, err := templates.Get(summaryTemplateName, config.TemplatesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load summary prompt template: %w", err)
	}

	return &Summarizer{
		generator: generator,
		config:    config,
		template:  template,
		logger:    logger,
	}, nil
}

// Summarize asks the model for a structured business profile of the site.
// Model output is untrusted: anything that is not parseable JSON becomes
// an error placeholder, never an error return.
func (s *Summarizer) Summarize(ctx context.Context, text string) models.AIAnalysis {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		s.logger.Warn().Msg("No visible text available for AI analysis")
		return models.AIAnalysis{Error: "no content to summarize"}
	}

	content := s.truncate(trimmed)

	request := &llm.ContentRequest{
		Messages: []interfaces.Message{
			{Role: "user", Content: fmt.Sprintf(s.template.Prompt, content)},
		},
		SystemInstruction: s.template.System,
		OutputSchema:      businessAnalysisSchema(),
	}

	response, err := s.generator.GenerateContent(ctx, request)
	if err != nil {
		s.logger.Warn().Err(err).Msg("AI summarization failed")
		return models.AIAnalysis{Error: fmt.Sprintf("AI analysis failed: %v", err)}
	}

	jsonText, ok := extractJSON(response.Text)
	if !ok {
		s.logger.Warn().
			Int("response_length", len(response.Text)).
			Msg("Model response contains no JSON object")
		return models.AIAnalysis{Error: "no JSON object found in model response"}
	}

	var analysis models.AIAnalysis
	if err := json.Unmarshal([]byte(jsonText), &analysis); err != nil {
		s.logger.Warn().Err(err).Msg("Model response is not valid JSON")
		return models.AIAnalysis{Error: fmt.Sprintf("failed to parse model response: %v", err)}
	}

	s.logger.Debug().
		Str("provider", string(response.Provider)).
		Str("model", response.Model).
		Str("business_name", analysis.BusinessName).
		Int("content_chars", len(content)).
		Msg("AI analysis parsed")

	return analysis
}

// truncate enforces the content budget, dropping later rather than earlier
// content. Truncation is a known information-loss boundary.
func (s *Summarizer) truncate(text string) string {
	max := s.config.MaxContentChars
	if max <= 0 {
		max = 15000
	}
	if len(text) <= max {
		return text
	}

	s.logger.Debug().
		Int("original_chars", len(text)).
		Int("max_chars", max).
		Msg("Truncating site text for AI analysis")

	return text[:max] + truncationMarker
}

// extractJSON pulls the first-{-to-last-} substring out of model output,
// tolerating prose or code fences around the JSON object
func extractJSON(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// businessAnalysisSchema describes the expected response shape for
// providers that support structured output
func businessAnalysisSchema() map[string]interface{} {
	stringList := func(description string) map[string]interface{} {
		return map[string]interface{}{
			"type":        "array",
			"description": description,
			"items":       map[string]interface{}{"type": "string"},
		}
	}

	return map[string]interface{}{
		"type":     "object",
		"required": []string{"business_name", "description", "industry"},
		"properties": map[string]interface{}{
			"business_name":         map[string]interface{}{"type": "string", "description": "Name of the business"},
			"description":           map[string]interface{}{"type": "string", "description": "What the business does"},
			"industry":              map[string]interface{}{"type": "string", "description": "Primary industry"},
			"products_services":     stringList("Products or services offered"),
			"target_market":         map[string]interface{}{"type": "string", "description": "Who the business sells to"},
			"brand_tone":            map[string]interface{}{"type": "string", "description": "Tone of the website copy"},
			"unique_selling_points": stringList("Differentiating claims"),
			"technologies":          stringList("Technologies the site appears to use"),
			"contact": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"address": map[string]interface{}{"type": "string"},
					"website": map[string]interface{}{"type": "string"},
				},
			},
			"insights": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"executive_summary": map[string]interface{}{"type": "string"},
					"strengths":         stringList("Observed strengths"),
					"weaknesses":        stringList("Observed weaknesses"),
				},
			},
			"opportunities": stringList("Growth opportunities"),
			"recommendations": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"quick_wins":        stringList("Low-effort improvements"),
					"automation_tools":  stringList("Automation suggestions"),
					"advanced_features": stringList("Larger follow-up projects"),
				},
			},
		},
	}
}
