// -----------------------------------------------------------------------
// Record Merger - reconciles extractor and AI partials into one record
// -----------------------------------------------------------------------

package analysis

import (
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/specto/internal/models"
)

// Merger assembles the final business record from the extractor partials
// and the AI summary. Every top-level section is always present in the
// output; a failed upstream stage degrades its section, never removes it.
type Merger struct {
	logger arbor.ILogger
}

// NewMerger creates a record merger
func NewMerger(logger arbor.ILogger) *Merger {
	return &Merger{logger: logger}
}

// Merge builds the canonical record for one analyzed site. Where a
// heuristic extractor and the AI summary claim the same logical field,
// the heuristic value wins when non-empty and the AI value fills gaps.
// AI-only fields are carried through untouched.
func (m *Merger) Merge(
	technical models.TechnicalMetrics,
	social models.SocialPresence,
	contact models.ContactInfo,
	ai models.AIAnalysis,
	url string,
	analysisID string,
) *models.BusinessRecord {
	m.reconcileContact(&ai, contact, url)
	m.reconcileSocialProfiles(&ai, social)
	m.reconcileTechnologies(&ai, technical.TechStack)

	// A record built on a degraded AI summary is still served, marked
	// partial so consumers can tell heuristics-only output apart
	status := "complete"
	if ai.Failed() {
		status = "partial"
	}

	record := &models.BusinessRecord{
		TechnicalMetrics: technical,
		SocialPresence:   social,
		ContactInfo:      contact,
		AIAnalysis:       ai,
		Metadata: models.RecordMetadata{
			AnalysisID:  analysisID,
			URLAnalyzed: url,
			AnalyzedAt:  time.Now().UTC(),
			Version:     models.RecordVersion,
			Status:      status,
		},
	}

	m.logger.Debug().
		Str("analysis_id", analysisID).
		Str("url", url).
		Bool("ai_degraded", ai.Failed()).
		Int("presence_score", social.PresenceScore).
		Msg("Business record merged")

	return record
}

// reconcileContact applies heuristic precedence to the AI contact block.
// The requested URL is ground truth for the website field.
func (m *Merger) reconcileContact(ai *models.AIAnalysis, contact models.ContactInfo, url string) {
	if len(contact.Addresses) > 0 && contact.Addresses[0] != "" {
		ai.Contact.Address = contact.Addresses[0]
	}
	ai.Contact.Website = url
}

// reconcileSocialProfiles overlays detected platform URLs onto the AI's
// social profile map, platform by platform. Platforms only the AI knows
// about are kept.
func (m *Merger) reconcileSocialProfiles(ai *models.AIAnalysis, social models.SocialPresence) {
	for platform, presence := range social.Platforms {
		if !presence.Present || presence.URL == "" {
			continue
		}
		if ai.SocialProfiles == nil {
			ai.SocialProfiles = make(map[string]string)
		}
		ai.SocialProfiles[platform] = presence.URL
	}
}

// reconcileTechnologies unions detected stack entries with the AI's
// technology list, detected entries first, deduplicated case-insensitively
func (m *Merger) reconcileTechnologies(ai *models.AIAnalysis, stack models.TechStack) {
	detected := []string{}
	for _, tech := range []string{stack.CMS, stack.Analytics, stack.Marketing, stack.Payments} {
		if tech != "" {
			detected = append(detected, tech)
		}
	}
	if len(detected) == 0 {
		return
	}

	seen := make(map[string]bool, len(detected))
	merged := make([]string, 0, len(detected)+len(ai.Technologies))
	for _, tech := range detected {
		key := strings.ToLower(tech)
		if !seen[key] {
			seen[key] = true
			merged = append(merged, tech)
		}
	}
	for _, tech := range ai.Technologies {
		key := strings.ToLower(strings.TrimSpace(tech))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, tech)
	}

	ai.Technologies = merged
}
