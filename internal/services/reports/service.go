package reports

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/specto/internal/interfaces"
	"github.com/ternarybob/specto/internal/models"
)

// Service renders merged business records into report formats
type Service struct {
	pdf    *pdfConverter
	logger arbor.ILogger
}

// NewService creates the report service
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		pdf:    newPDFConverter(logger),
		logger: logger,
	}
}

// Markdown renders the record as a markdown report
func (s *Service) Markdown(record *models.BusinessRecord) (string, error) {
	if record == nil {
		return "", fmt.Errorf("no record to render")
	}
	return buildMarkdown(record), nil
}

// HTML renders the markdown report as a standalone HTML page
func (s *Service) HTML(record *models.BusinessRecord) ([]byte, error) {
	markdown, err := s.Markdown(record)
	if err != nil {
		return nil, err
	}
	return renderHTML(markdown, reportTitle(record))
}

// PDF renders the markdown report as a PDF document
func (s *Service) PDF(record *models.BusinessRecord) ([]byte, error) {
	markdown, err := s.Markdown(record)
	if err != nil {
		return nil, err
	}
	return s.pdf.ConvertMarkdownToPDF(markdown, reportTitle(record))
}

func reportTitle(record *models.BusinessRecord) string {
	if record.AIAnalysis.BusinessName != "" {
		return "Website Analysis: " + record.AIAnalysis.BusinessName
	}
	return "Website Analysis: " + record.Metadata.URLAnalyzed
}

var _ interfaces.ReportService = (*Service)(nil)
