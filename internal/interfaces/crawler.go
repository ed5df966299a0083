package interfaces

import (
	"context"

	"github.com/ternarybob/specto/internal/models"
)

// SiteCrawler walks a website breadth-first from a seed URL, rendering
// each page in the headless browser and following same-origin links.
type SiteCrawler interface {
	// Crawl renders the seed page and follows links up to maxDepth.
	// A seed page that fails to render fails the crawl; failures on
	// deeper pages are recorded in the summary and skipped.
	Crawl(ctx context.Context, startURL string, maxDepth int) (*models.CrawlResult, error)
}
