package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/specto/internal/common"
	"github.com/ternarybob/specto/internal/interfaces"
	"google.golang.org/genai"
)

func testFactory() *ProviderFactory {
	return NewProviderFactory(
		&common.GeminiConfig{Model: "gemini-3-flash-preview", Temperature: 0.3},
		&common.ClaudeConfig{Model: "claude-haiku-3-5-20241022", MaxTokens: 8192, Temperature: 0.3},
		&common.LLMConfig{DefaultProvider: common.LLMProviderGemini},
		arbor.NewLogger(),
	)
}

func TestDetectProvider(t *testing.T) {
	factory := testFactory()

	tests := []struct {
		name     string
		model    string
		expected ProviderType
	}{
		{"claude model name", "claude-haiku-3-5-20241022", ProviderClaude},
		{"claude prefix", "claude/claude-sonnet-4", ProviderClaude},
		{"anthropic prefix", "anthropic/claude-sonnet-4", ProviderClaude},
		{"gemini model name", "gemini-3-flash-preview", ProviderGemini},
		{"gemini prefix", "gemini/gemini-3-flash-preview", ProviderGemini},
		{"google prefix", "google/gemini-3-flash-preview", ProviderGemini},
		{"mixed case", "Claude-Haiku-3-5", ProviderClaude},
		{"empty uses default", "", ProviderGemini},
		{"unknown uses default", "gpt-4", ProviderGemini},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, factory.DetectProvider(tt.model))
		})
	}
}

func TestNormalizeModel(t *testing.T) {
	factory := testFactory()

	assert.Equal(t, "claude-sonnet-4", factory.NormalizeModel("claude/claude-sonnet-4"))
	assert.Equal(t, "gemini-3-flash-preview", factory.NormalizeModel("gemini/gemini-3-flash-preview"))
	assert.Equal(t, "claude-haiku-3-5", factory.NormalizeModel("claude-haiku-3-5"))
	assert.Equal(t, "", factory.NormalizeModel(""))
}

func TestGetDefaultModel(t *testing.T) {
	factory := testFactory()

	assert.Equal(t, "claude-haiku-3-5-20241022", factory.GetDefaultModel(ProviderClaude))
	assert.Equal(t, "gemini-3-flash-preview", factory.GetDefaultModel(ProviderGemini))
}

func TestConvertMessagesToClaude(t *testing.T) {
	messages := []interfaces.Message{
		{Role: "system", Content: "You are an analyst."},
		{Role: "user", Content: "Analyze this site."},
		{Role: "assistant", Content: "Done."},
	}

	claudeMessages, systemText, err := convertMessagesToClaude(messages)

	assert.NoError(t, err)
	assert.Equal(t, "You are an analyst.", systemText)
	assert.Len(t, claudeMessages, 2)
}

func TestConvertMessagesToClaudeRequiresUserMessage(t *testing.T) {
	_, _, err := convertMessagesToClaude([]interfaces.Message{
		{Role: "system", Content: "system only"},
	})
	assert.Error(t, err)

	_, _, err = convertMessagesToClaude(nil)
	assert.Error(t, err)
}

func TestConvertMessagesToGemini(t *testing.T) {
	messages := []interfaces.Message{
		{Role: "system", Content: "You are an analyst."},
		{Role: "user", Content: "Analyze this site."},
		{Role: "assistant", Content: "Done."},
	}

	contents, systemText, err := convertMessagesToGemini(messages)

	assert.NoError(t, err)
	assert.Equal(t, "You are an analyst.", systemText)
	assert.Len(t, contents, 2)
	assert.Equal(t, genai.RoleUser, contents[0].Role)
	assert.Equal(t, genai.RoleModel, contents[1].Role)
}

func TestConvertToGenaiSchema(t *testing.T) {
	schemaMap := map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"business_name"},
		"properties": map[string]interface{}{
			"business_name": map[string]interface{}{
				"type":        "string",
				"description": "Name of the business",
			},
			"products_services": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type": "string",
				},
			},
		},
	}

	schema, err := convertToGenaiSchema(schemaMap)

	assert.NoError(t, err)
	assert.Equal(t, genai.TypeObject, schema.Type)
	assert.Equal(t, []string{"business_name"}, schema.Required)
	assert.Equal(t, genai.TypeString, schema.Properties["business_name"].Type)
	assert.Equal(t, "Name of the business", schema.Properties["business_name"].Description)
	assert.Equal(t, genai.TypeArray, schema.Properties["products_services"].Type)
	assert.Equal(t, genai.TypeString, schema.Properties["products_services"].Items.Type)
}

func TestConvertToGenaiSchemaEmpty(t *testing.T) {
	schema, err := convertToGenaiSchema(nil)
	assert.NoError(t, err)
	assert.Nil(t, schema)
}

func TestProviderTimeout(t *testing.T) {
	d, err := providerTimeout("30s")
	assert.NoError(t, err)
	assert.Equal(t, 30*time.Second, d)

	d, err = providerTimeout("")
	assert.NoError(t, err)
	assert.Equal(t, 5*time.Minute, d)

	_, err = providerTimeout("soon")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid timeout duration")
}
