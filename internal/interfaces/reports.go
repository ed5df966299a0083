package interfaces

import "github.com/ternarybob/specto/internal/models"

// ReportService renders a merged business record into human-readable
// report formats.
type ReportService interface {
	// Markdown renders the record as a markdown report
	Markdown(record *models.BusinessRecord) (string, error)

	// HTML renders the markdown report as a standalone HTML page
	HTML(record *models.BusinessRecord) ([]byte, error)

	// PDF renders the markdown report as a PDF document
	PDF(record *models.BusinessRecord) ([]byte, error)
}

// PDFService handles PDF generation from markdown
type PDFService interface {
	// ConvertMarkdownToPDF converts markdown content to a PDF byte slice
	ConvertMarkdownToPDF(markdown, title string) ([]byte, error)
}
