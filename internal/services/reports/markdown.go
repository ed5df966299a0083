// -----------------------------------------------------------------------
// Report Markdown - renders a business record as a markdown report
// -----------------------------------------------------------------------

package reports

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ternarybob/specto/internal/models"
)

// buildMarkdown renders the full analysis report. Sections mirror the
// record: business profile, technical, social, contact, AI insights.
// A degraded AI section renders as a note instead of disappearing.
func buildMarkdown(record *models.BusinessRecord) string {
	var b strings.Builder

	title := record.AIAnalysis.BusinessName
	if title == "" {
		title = record.Metadata.URLAnalyzed
	}
	fmt.Fprintf(&b, "# Website Analysis: %s\n\n", title)

	fmt.Fprintf(&b, "| Field | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| URL | %s |\n", record.Metadata.URLAnalyzed)
	fmt.Fprintf(&b, "| Analyzed | %s |\n", record.Metadata.AnalyzedAt.Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(&b, "| Analysis ID | %s |\n\n", record.Metadata.AnalysisID)

	writeProfileSection(&b, record.AIAnalysis)
	writeTechnicalSection(&b, record.TechnicalMetrics)
	writeSocialSection(&b, record.SocialPresence)
	writeContactSection(&b, record.ContactInfo)
	writeInsightsSection(&b, record.AIAnalysis)

	return b.String()
}

func writeProfileSection(b *strings.Builder, ai models.AIAnalysis) {
	b.WriteString("## Business Profile\n\n")

	if ai.Failed() {
		fmt.Fprintf(b, "_AI analysis unavailable: %s_\n\n", ai.Error)
		return
	}

	if ai.Industry != "" {
		fmt.Fprintf(b, "**Industry:** %s\n\n", ai.Industry)
	}
	if ai.TargetMarket != "" {
		fmt.Fprintf(b, "**Target market:** %s\n\n", ai.TargetMarket)
	}
	if ai.BrandTone != "" {
		fmt.Fprintf(b, "**Brand tone:** %s\n\n", ai.BrandTone)
	}
	if ai.Description != "" {
		fmt.Fprintf(b, "%s\n\n", ai.Description)
	}

	writeList(b, "### Products & Services", ai.ProductsServices)
	writeList(b, "### Unique Selling Points", ai.UniqueSellingPoints)
	writeList(b, "### Technologies", ai.Technologies)
}

func writeTechnicalSection(b *strings.Builder, technical models.TechnicalMetrics) {
	b.WriteString("## Technical\n\n")

	fmt.Fprintf(b, "| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(b, "| SSL | %s |\n", yesNo(technical.SSL))
	fmt.Fprintf(b, "| Mobile friendly | %s |\n", yesNo(technical.MobileFriendly.Friendly))
	fmt.Fprintf(b, "| Page load | %.0f ms |\n", technical.Performance.LoadTimeMs)
	fmt.Fprintf(b, "| DOM content loaded | %.0f ms |\n", technical.Performance.DOMContentLoadedMs)
	if technical.Performance.FirstPaintMs >= 0 {
		fmt.Fprintf(b, "| First paint | %.0f ms |\n", technical.Performance.FirstPaintMs)
	}
	b.WriteString("\n")

	var stack []string
	for _, entry := range []struct{ label, value string }{
		{"CMS", technical.TechStack.CMS},
		{"Analytics", technical.TechStack.Analytics},
		{"Marketing", technical.TechStack.Marketing},
		{"Payments", technical.TechStack.Payments},
	} {
		if entry.value != "" {
			stack = append(stack, fmt.Sprintf("%s: %s", entry.label, entry.value))
		}
	}
	writeList(b, "### Detected Stack", stack)

	writeSEOSection(b, technical.SEO)
}

func writeSEOSection(b *strings.Builder, seo models.SEOStructure) {
	b.WriteString("### SEO\n\n")
	fmt.Fprintf(b, "| Signal | Value |\n|---|---|\n")
	fmt.Fprintf(b, "| Title | %s |\n", markdownCell(seo.Title))
	fmt.Fprintf(b, "| Meta description | %s |\n", yesNo(seo.HasMetaDescription))

	headings := make([]string, 0, len(seo.HeadingCounts))
	for level := range seo.HeadingCounts {
		headings = append(headings, level)
	}
	sort.Strings(headings)
	for _, level := range headings {
		fmt.Fprintf(b, "| %s count | %d |\n", strings.ToUpper(level), seo.HeadingCounts[level])
	}

	fmt.Fprintf(b, "| Images with alt text | %d of %d |\n", seo.ImagesWithAlt, seo.ImageCount)
	fmt.Fprintf(b, "| Internal links | %d |\n", seo.InternalLinks)
	fmt.Fprintf(b, "| External links | %d |\n\n", seo.ExternalLinks)
}

func writeSocialSection(b *strings.Builder, social models.SocialPresence) {
	b.WriteString("## Social Presence\n\n")
	fmt.Fprintf(b, "Platforms detected: %d\n\n", social.PresenceScore)

	platforms := make([]string, 0, len(social.Platforms))
	for name, presence := range social.Platforms {
		if presence.Present {
			platforms = append(platforms, fmt.Sprintf("%s: %s", name, presence.URL))
		}
	}
	sort.Strings(platforms)
	for _, line := range platforms {
		fmt.Fprintf(b, "- %s\n", line)
	}
	if len(platforms) > 0 {
		b.WriteString("\n")
	}

	if social.HasShareButtons {
		b.WriteString("Sharing buttons are present on the page.\n\n")
	}
}

func writeContactSection(b *strings.Builder, contact models.ContactInfo) {
	b.WriteString("## Contact\n\n")

	if len(contact.Emails) == 0 && len(contact.Phones) == 0 && len(contact.Addresses) == 0 {
		b.WriteString("No contact details were found on the page.\n\n")
		return
	}

	for _, email := range contact.Emails {
		fmt.Fprintf(b, "- Email: %s\n", email)
	}
	for _, phone := range contact.Phones {
		fmt.Fprintf(b, "- Phone: %s\n", phone)
	}
	for _, address := range contact.Addresses {
		fmt.Fprintf(b, "- Address: %s\n", address)
	}
	b.WriteString("\n")
}

func writeInsightsSection(b *strings.Builder, ai models.AIAnalysis) {
	if ai.Failed() {
		return
	}

	hasInsights := ai.Insights.ExecutiveSummary != "" ||
		len(ai.Insights.Strengths) > 0 ||
		len(ai.Insights.Weaknesses) > 0 ||
		len(ai.Opportunities) > 0 ||
		len(ai.Recommendations.QuickWins) > 0 ||
		len(ai.Recommendations.AutomationTools) > 0 ||
		len(ai.Recommendations.AdvancedFeatures) > 0
	if !hasInsights {
		return
	}

	b.WriteString("## Insights\n\n")
	if ai.Insights.ExecutiveSummary != "" {
		fmt.Fprintf(b, "%s\n\n", ai.Insights.ExecutiveSummary)
	}

	writeList(b, "### Strengths", ai.Insights.Strengths)
	writeList(b, "### Weaknesses", ai.Insights.Weaknesses)
	writeList(b, "### Opportunities", ai.Opportunities)
	writeList(b, "### Quick Wins", ai.Recommendations.QuickWins)
	writeList(b, "### Automation Tools", ai.Recommendations.AutomationTools)
	writeList(b, "### Advanced Features", ai.Recommendations.AdvancedFeatures)
}

func writeList(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "%s\n\n", heading)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

// markdownCell escapes pipe characters so free text cannot break table rows
func markdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
