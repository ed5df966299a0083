// -----------------------------------------------------------------------
// Spreadsheet Sink - appends completed analyses to an XLSX workbook
// -----------------------------------------------------------------------

package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tealeg/xlsx/v2"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/specto/internal/common"
	"github.com/ternarybob/specto/internal/interfaces"
	"github.com/ternarybob/specto/internal/models"
)

const spreadsheetSheetName = "Analyses"

// spreadsheetHeader is the fixed column layout of the export workbook.
// Existing workbooks are appended to, so the order must stay stable.
var spreadsheetHeader = []string{
	"Analyzed At",
	"URL",
	"Business Name",
	"Industry",
	"Email",
	"Phone",
	"Address",
	"Social Platforms",
	"Presence Score",
	"SSL",
	"Mobile Friendly",
	"CMS",
	"Analytics",
	"Load Time (ms)",
	"AI Summary",
	"Full Record (JSON)",
}

// SpreadsheetSink appends one row per completed analysis to an XLSX
// workbook, creating the file with a header row on first use. Appends
// are serialized because the whole workbook is rewritten on save.
type SpreadsheetSink struct {
	config common.SpreadsheetSinkConfig
	logger arbor.ILogger
	mu     sync.Mutex
}

// NewSpreadsheetSink creates the XLSX export sink
func NewSpreadsheetSink(config common.SpreadsheetSinkConfig, logger arbor.ILogger) *SpreadsheetSink {
	return &SpreadsheetSink{
		config: config,
		logger: logger,
	}
}

// Name identifies the sink in logs and error maps
func (s *SpreadsheetSink) Name() string {
	return "spreadsheet"
}

// Deliver appends the record to the workbook and saves it
func (s *SpreadsheetSink) Deliver(ctx context.Context, job *models.AnalysisJob, record *models.BusinessRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, sheet, err := s.openWorkbook()
	if err != nil {
		return err
	}

	row := sheet.AddRow()
	for _, value := range spreadsheetRow(record) {
		row.AddCell().SetString(value)
	}

	if err := file.Save(s.config.Path); err != nil {
		return fmt.Errorf("failed to save spreadsheet: %w", err)
	}

	s.logger.Debug().
		Str("path", s.config.Path).
		Str("analysis_id", record.Metadata.AnalysisID).
		Int("rows", len(sheet.Rows)).
		Msg("Appended analysis to spreadsheet")

	return nil
}

// openWorkbook opens the existing workbook or creates a fresh one with
// the header row in place
func (s *SpreadsheetSink) openWorkbook() (*xlsx.File, *xlsx.Sheet, error) {
	if _, err := os.Stat(s.config.Path); err == nil {
		file, err := xlsx.OpenFile(s.config.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open spreadsheet: %w", err)
		}
		if sheet, ok := file.Sheet[spreadsheetSheetName]; ok {
			return file, sheet, nil
		}
		sheet, err := file.AddSheet(spreadsheetSheetName)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to add sheet: %w", err)
		}
		writeHeader(sheet)
		return file, sheet, nil
	}

	if dir := filepath.Dir(s.config.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create spreadsheet directory: %w", err)
		}
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet(spreadsheetSheetName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	writeHeader(sheet)
	return file, sheet, nil
}

func writeHeader(sheet *xlsx.Sheet) {
	row := sheet.AddRow()
	for _, name := range spreadsheetHeader {
		row.AddCell().SetString(name)
	}
}

// spreadsheetRow flattens a record into the fixed column layout
func spreadsheetRow(record *models.BusinessRecord) []string {
	fullRecord, err := json.Marshal(record)
	if err != nil {
		fullRecord = []byte(fmt.Sprintf(`{"error": %q}`, err.Error()))
	}

	summary := record.AIAnalysis.Insights.ExecutiveSummary
	if record.AIAnalysis.Failed() {
		summary = record.AIAnalysis.Error
	}

	return []string{
		record.Metadata.AnalyzedAt.Format(time.RFC3339),
		record.Metadata.URLAnalyzed,
		record.AIAnalysis.BusinessName,
		record.AIAnalysis.Industry,
		firstOf(record.ContactInfo.Emails),
		firstOf(record.ContactInfo.Phones),
		firstOf(record.ContactInfo.Addresses),
		detectedPlatforms(record.SocialPresence),
		strconv.Itoa(record.SocialPresence.PresenceScore),
		strconv.FormatBool(record.TechnicalMetrics.SSL),
		strconv.FormatBool(record.TechnicalMetrics.MobileFriendly.Friendly),
		record.TechnicalMetrics.TechStack.CMS,
		record.TechnicalMetrics.TechStack.Analytics,
		fmt.Sprintf("%.0f", record.TechnicalMetrics.Performance.LoadTimeMs),
		summary,
		string(fullRecord),
	}
}

func firstOf(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// detectedPlatforms lists the present platforms in a stable order
func detectedPlatforms(social models.SocialPresence) string {
	platforms := make([]string, 0, len(social.Platforms))
	for name, presence := range social.Platforms {
		if presence.Present {
			platforms = append(platforms, name)
		}
	}
	sort.Strings(platforms)
	return strings.Join(platforms, ", ")
}

var _ interfaces.ResultSink = (*SpreadsheetSink)(nil)
