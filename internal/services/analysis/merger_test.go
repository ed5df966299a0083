package analysis

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/specto/internal/models"
)

func newTestMerger() *Merger {
	return NewMerger(arbor.NewLogger())
}

func TestMergeHeuristicAddressWins(t *testing.T) {
	contact := models.NewContactInfo()
	contact.Addresses = []string{"123 Real St, Springfield", "45 Second Ave"}
	ai := models.AIAnalysis{Contact: models.AIContact{Address: "Somewhere the model imagined"}}

	record := newTestMerger().Merge(models.NewTechnicalMetrics(), models.NewSocialPresence(), contact, ai, "https://example.com", "an_1")

	assert.Equal(t, "123 Real St, Springfield", record.AIAnalysis.Contact.Address)
	// The heuristic section itself is untouched
	assert.Equal(t, []string{"123 Real St, Springfield", "45 Second Ave"}, record.ContactInfo.Addresses)
}

func TestMergeAIFillsMissingAddress(t *testing.T) {
	ai := models.AIAnalysis{Contact: models.AIContact{Address: "7 Model Lane"}}

	record := newTestMerger().Merge(models.NewTechnicalMetrics(), models.NewSocialPresence(), models.NewContactInfo(), ai, "https://example.com", "an_1")

	assert.Equal(t, "7 Model Lane", record.AIAnalysis.Contact.Address)
}

func TestMergeWebsiteIsRequestedURL(t *testing.T) {
	ai := models.AIAnalysis{Contact: models.AIContact{Website: "https://hallucinated.example"}}

	record := newTestMerger().Merge(models.NewTechnicalMetrics(), models.NewSocialPresence(), models.NewContactInfo(), ai, "https://example.com", "an_1")

	assert.Equal(t, "https://example.com", record.AIAnalysis.Contact.Website)
}

func TestMergeSocialProfilesOverridePerPlatform(t *testing.T) {
	social := models.NewSocialPresence()
	social.Platforms["facebook"] = models.PlatformPresence{Present: true, URL: "https://facebook.com/realco"}
	social.Platforms["instagram"] = models.PlatformPresence{Present: false, URL: ""}
	ai := models.AIAnalysis{SocialProfiles: map[string]string{
		"facebook": "https://facebook.com/stale",
		"tiktok":   "https://tiktok.com/@aionly",
	}}

	record := newTestMerger().Merge(models.NewTechnicalMetrics(), social, models.NewContactInfo(), ai, "https://example.com", "an_1")

	assert.Equal(t, "https://facebook.com/realco", record.AIAnalysis.SocialProfiles["facebook"])
	assert.Equal(t, "https://tiktok.com/@aionly", record.AIAnalysis.SocialProfiles["tiktok"])
	assert.NotContains(t, record.AIAnalysis.SocialProfiles, "instagram")
}

func TestMergeSocialProfilesNilAIMap(t *testing.T) {
	social := models.NewSocialPresence()
	social.Platforms["linkedin"] = models.PlatformPresence{Present: true, URL: "https://linkedin.com/company/realco"}

	record := newTestMerger().Merge(models.NewTechnicalMetrics(), social, models.NewContactInfo(), models.AIAnalysis{}, "https://example.com", "an_1")

	assert.Equal(t, map[string]string{"linkedin": "https://linkedin.com/company/realco"}, record.AIAnalysis.SocialProfiles)
}

func TestMergeTechnologiesDetectedFirst(t *testing.T) {
	technical := models.NewTechnicalMetrics()
	technical.TechStack = models.TechStack{CMS: "WordPress", Analytics: "Google Analytics"}
	ai := models.AIAnalysis{Technologies: []string{"wordpress", "Stripe", "  ", "stripe"}}

	record := newTestMerger().Merge(technical, models.NewSocialPresence(), models.NewContactInfo(), ai, "https://example.com", "an_1")

	assert.Equal(t, []string{"WordPress", "Google Analytics", "Stripe"}, record.AIAnalysis.Technologies)
}

func TestMergeTechnologiesNoDetectionKeepsAIList(t *testing.T) {
	ai := models.AIAnalysis{Technologies: []string{"React", "Netlify"}}

	record := newTestMerger().Merge(models.NewTechnicalMetrics(), models.NewSocialPresence(), models.NewContactInfo(), ai, "https://example.com", "an_1")

	assert.Equal(t, []string{"React", "Netlify"}, record.AIAnalysis.Technologies)
}

func TestMergeMetadata(t *testing.T) {
	record := newTestMerger().Merge(models.NewTechnicalMetrics(), models.NewSocialPresence(), models.NewContactInfo(), models.AIAnalysis{}, "https://example.com", "an_abc")

	assert.Equal(t, "an_abc", record.Metadata.AnalysisID)
	assert.Equal(t, "https://example.com", record.Metadata.URLAnalyzed)
	assert.Equal(t, models.RecordVersion, record.Metadata.Version)
	assert.Equal(t, "complete", record.Metadata.Status)
	assert.False(t, record.Metadata.AnalyzedAt.IsZero())
}

func TestMergeDegradedAIMarksRecordPartial(t *testing.T) {
	ai := models.AIAnalysis{Error: "no JSON object found in model response"}

	record := newTestMerger().Merge(models.NewTechnicalMetrics(), models.NewSocialPresence(), models.NewContactInfo(), ai, "https://example.com", "an_1")

	assert.Equal(t, "partial", record.Metadata.Status)
}

func TestMergeAllSectionsAlwaysPresent(t *testing.T) {
	ai := models.AIAnalysis{Error: "AI analysis failed: model overloaded"}

	record := newTestMerger().Merge(models.NewTechnicalMetrics(), models.NewSocialPresence(), models.NewContactInfo(), ai, "https://example.com", "an_1")

	data, err := json.Marshal(record)
	assert.NoError(t, err)

	var decoded map[string]json.RawMessage
	assert.NoError(t, json.Unmarshal(data, &decoded))
	for _, section := range []string{"technical_metrics", "social_presence", "contact_info", "ai_analysis", "metadata"} {
		assert.Contains(t, decoded, section)
	}

	// The degraded AI section keeps its placeholder through the merge
	assert.Equal(t, "AI analysis failed: model overloaded", record.AIAnalysis.Error)
	assert.True(t, record.AIAnalysis.Failed())
	// Reconciliation still applies ground truth to the degraded section
	assert.Equal(t, "https://example.com", record.AIAnalysis.Contact.Website)
}
