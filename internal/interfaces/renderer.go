package interfaces

import (
	"context"

	"github.com/ternarybob/specto/internal/models"
)

// PageRenderer loads a URL in a headless browser and returns the
// rendered document. Implementations own browser resources and must
// release them in Close regardless of how many renders failed.
type PageRenderer interface {
	// Render navigates to the URL, waits for the page to settle, and
	// captures HTML, visible text, and runtime metrics.
	Render(ctx context.Context, url string) (*models.RenderedPage, error)

	// Close releases all browser resources
	Close() error
}
