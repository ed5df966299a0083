// -----------------------------------------------------------------------
// Contact Extractor - emails, phone numbers and street addresses
// -----------------------------------------------------------------------

package extractors

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/specto/internal/models"
)

// phoneRegex accepts the common 3-3-4 digit grouping with optional
// parentheses and separator characters
var phoneRegex = regexp.MustCompile(`\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)

// ContactExtractor pulls contact details from a rendered page
type ContactExtractor struct {
	logger arbor.ILogger
}

// NewContactExtractor creates a new contact extractor
func NewContactExtractor(logger arbor.ILogger) *ContactExtractor {
	return &ContactExtractor{logger: logger}
}

// Extract collects emails, phones and address candidates. Results are
// best-effort and may contain noise; every list deduplicates while keeping
// first-seen order.
func (e *ContactExtractor) Extract(page *models.RenderedPage) models.ContactInfo {
	info := models.NewContactInfo()
	if page == nil {
		return info
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		e.logger.Debug().Err(err).Str("url", page.URL).Msg("Failed to parse HTML for contact extraction")
		return info
	}

	info.Emails = e.extractEmails(doc)
	info.Phones = e.extractPhones(doc)
	info.Addresses = e.extractAddresses(doc)
	return info
}

func (e *ContactExtractor) extractEmails(doc *goquery.Document) []string {
	emails := []string{}
	seen := make(map[string]bool)

	add := func(raw string) {
		addr := strings.Trim(strings.TrimSpace(raw), ".,;:()<>")
		if addr == "" || !strings.Contains(addr, "@") {
			return
		}
		key := strings.ToLower(addr)
		if !seen[key] {
			seen[key] = true
			emails = append(emails, addr)
		}
	}

	doc.Find(`a[href^="mailto:"]`).Each(func(_ int, s *goquery.Selection) {
		addr := strings.TrimPrefix(s.AttrOr("href", ""), "mailto:")
		// Strip ?subject= and friends
		if i := strings.Index(addr, "?"); i >= 0 {
			addr = addr[:i]
		}
		add(addr)
	})

	doc.Find(`[class*="email"], [id*="email"]`).Each(func(_ int, s *goquery.Selection) {
		for _, field := range strings.Fields(s.Text()) {
			if strings.Contains(field, "@") {
				add(field)
				break
			}
		}
	})

	return emails
}

func (e *ContactExtractor) extractPhones(doc *goquery.Document) []string {
	phones := []string{}
	seen := make(map[string]bool)

	add := func(raw string) {
		match := phoneRegex.FindString(raw)
		if match == "" {
			return
		}
		if !seen[match] {
			seen[match] = true
			phones = append(phones, match)
		}
	}

	doc.Find(`a[href^="tel:"]`).Each(func(_ int, s *goquery.Selection) {
		add(strings.TrimPrefix(s.AttrOr("href", ""), "tel:"))
	})

	doc.Find(`[class*="phone"], [id*="phone"], [class*="tel"], [id*="tel"]`).Each(func(_ int, s *goquery.Selection) {
		add(s.Text())
	})

	return phones
}

func (e *ContactExtractor) extractAddresses(doc *goquery.Document) []string {
	addresses := []string{}
	seen := make(map[string]bool)

	doc.Find(`address, [class*="address"], [id*="address"], [class*="location"]`).Each(func(_ int, s *goquery.Selection) {
		text := strings.Join(strings.Fields(s.Text()), " ")
		if len(text) <= 10 {
			return
		}
		if !seen[text] {
			seen[text] = true
			addresses = append(addresses, text)
		}
	})

	return addresses
}
