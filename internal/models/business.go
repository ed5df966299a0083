package models

import "time"

// RecordVersion is the schema version tag stamped into every record's metadata
const RecordVersion = "1.0"

// BusinessRecord is the canonical merged output for one analyzed website.
// All five top-level sections are always present in serialized output,
// even when an upstream extractor observed no signals or failed. A
// degraded section carries zero values or an error placeholder, never
// disappears.
type BusinessRecord struct {
	TechnicalMetrics TechnicalMetrics `json:"technical_metrics"`
	SocialPresence   SocialPresence   `json:"social_presence"`
	ContactInfo      ContactInfo      `json:"contact_info"`
	AIAnalysis       AIAnalysis       `json:"ai_analysis"`
	Metadata         RecordMetadata   `json:"metadata"`
}

// RecordMetadata stamps the record with provenance information
type RecordMetadata struct {
	AnalysisID  string    `json:"analysis_id"`
	URLAnalyzed string    `json:"url_analyzed"`
	AnalyzedAt  time.Time `json:"analyzed_at"`
	Version     string    `json:"version"`
	Status      string    `json:"status"`
}

// PerformanceMetrics holds navigation timing deltas in milliseconds
type PerformanceMetrics struct {
	LoadTimeMs         float64 `json:"load_time_ms"`
	DOMContentLoadedMs float64 `json:"dom_content_loaded_ms"`
	FirstPaintMs       float64 `json:"first_paint_ms"` // -1 when unavailable
}

// MobileFriendliness captures the viewport and typography heuristic.
// Friendly requires a viewport meta tag, a base font of at least 12px,
// and a non-zero viewport width.
type MobileFriendliness struct {
	HasViewportMeta bool    `json:"has_viewport_meta"`
	BaseFontPx      float64 `json:"base_font_px"`
	ViewportWidth   int     `json:"viewport_width"`
	Friendly        bool    `json:"friendly"`
}

// TechStack records the first matched technology per category.
// Empty string means nothing matched in that category.
type TechStack struct {
	CMS       string `json:"cms"`
	Analytics string `json:"analytics"`
	Marketing string `json:"marketing"`
	Payments  string `json:"payments"`
}

// SEOStructure counts the on-page SEO signals of the rendered document
type SEOStructure struct {
	Title              string         `json:"title"`
	HasMetaDescription bool           `json:"has_meta_description"`
	MetaDescription    string         `json:"meta_description"`
	HeadingCounts      map[string]int `json:"heading_counts"`
	ImageCount         int            `json:"image_count"`
	ImagesWithAlt      int            `json:"images_with_alt"`
	InternalLinks      int            `json:"internal_links"`
	ExternalLinks      int            `json:"external_links"`
}

// TechnicalMetrics is the technical_metrics section of the record
type TechnicalMetrics struct {
	Performance    PerformanceMetrics `json:"performance"`
	SSL            bool               `json:"ssl"`
	MobileFriendly MobileFriendliness `json:"mobile_friendly"`
	TechStack      TechStack          `json:"tech_stack"`
	SEO            SEOStructure       `json:"seo"`
}

// PlatformPresence records whether a social platform was linked and the
// first matching profile URL found on the page
type PlatformPresence struct {
	Present bool   `json:"present"`
	URL     string `json:"url"`
}

// SocialPresence is the social_presence section of the record.
// PresenceScore is a plain count of detected platforms, not weighted.
type SocialPresence struct {
	Platforms       map[string]PlatformPresence `json:"platforms"`
	WidgetCounts    map[string]int              `json:"widget_counts"`
	SharingButtons  map[string]bool             `json:"sharing_buttons"`
	HasShareButtons bool                        `json:"has_share_buttons"`
	PresenceScore   int                         `json:"presence_score"`
	SocialURLs      []string                    `json:"social_urls"`
}

// ContactInfo is the contact_info section of the record. All three
// lists are best-effort and may contain false positives; none is
// required to be non-empty.
type ContactInfo struct {
	Emails    []string `json:"emails"`
	Phones    []string `json:"phones"`
	Addresses []string `json:"addresses"`
}

// AIContact holds the model's view of how to reach the business
type AIContact struct {
	Address string `json:"address,omitempty"`
	Website string `json:"website,omitempty"`
}

// AIInsights holds the model's qualitative assessment
type AIInsights struct {
	ExecutiveSummary string   `json:"executive_summary,omitempty"`
	Strengths        []string `json:"strengths,omitempty"`
	Weaknesses       []string `json:"weaknesses,omitempty"`
}

// AIRecommendations buckets suggested follow-ups by effort
type AIRecommendations struct {
	QuickWins        []string `json:"quick_wins,omitempty"`
	AutomationTools  []string `json:"automation_tools,omitempty"`
	AdvancedFeatures []string `json:"advanced_features,omitempty"`
}

// AIAnalysis is the ai_analysis section of the record. It is parsed
// from untrusted model output: when the response contains no parseable
// JSON the section degrades to an Error placeholder and every other
// field stays at its zero value. Callers must treat all fields as
// optional.
type AIAnalysis struct {
	Error               string            `json:"error,omitempty"`
	BusinessName        string            `json:"business_name,omitempty"`
	Description         string            `json:"description,omitempty"`
	Industry            string            `json:"industry,omitempty"`
	ProductsServices    []string          `json:"products_services,omitempty"`
	TargetMarket        string            `json:"target_market,omitempty"`
	BrandTone           string            `json:"brand_tone,omitempty"`
	UniqueSellingPoints []string          `json:"unique_selling_points,omitempty"`
	Technologies        []string          `json:"technologies,omitempty"`
	SocialProfiles      map[string]string `json:"social_profiles,omitempty"`
	Contact             AIContact         `json:"contact"`
	Insights            AIInsights        `json:"insights"`
	Opportunities       []string          `json:"opportunities,omitempty"`
	Recommendations     AIRecommendations `json:"recommendations"`
}

// Failed reports whether summarization degraded to an error placeholder
func (a *AIAnalysis) Failed() bool {
	return a.Error != ""
}

// NewTechnicalMetrics returns an empty section with initialized maps so
// serialization always emits the expected keys
func NewTechnicalMetrics() TechnicalMetrics {
	return TechnicalMetrics{
		Performance: PerformanceMetrics{FirstPaintMs: -1},
		SEO: SEOStructure{
			HeadingCounts: make(map[string]int),
		},
	}
}

// NewSocialPresence returns an empty section with initialized maps
func NewSocialPresence() SocialPresence {
	return SocialPresence{
		Platforms:      make(map[string]PlatformPresence),
		WidgetCounts:   make(map[string]int),
		SharingButtons: make(map[string]bool),
		SocialURLs:     []string{},
	}
}

// NewContactInfo returns an empty section with initialized lists
func NewContactInfo() ContactInfo {
	return ContactInfo{
		Emails:    []string{},
		Phones:    []string{},
		Addresses: []string{},
	}
}
