// -----------------------------------------------------------------------
// Export Handler - serves the spreadsheet the sink appends to
// -----------------------------------------------------------------------

package handlers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/specto/internal/common"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler serves the accumulated spreadsheet export
type ExportHandler struct {
	config *common.SpreadsheetSinkConfig
	logger arbor.ILogger
}

// NewExportHandler creates a new export handler
func NewExportHandler(config *common.SpreadsheetSinkConfig, logger arbor.ILogger) *ExportHandler {
	return &ExportHandler{
		config: config,
		logger: logger,
	}
}

// GetSpreadsheetHandler downloads the current workbook
// GET /api/export/spreadsheet
func (h *ExportHandler) GetSpreadsheetHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	if h.config == nil || !h.config.Enabled || h.config.Path == "" {
		WriteError(w, http.StatusNotFound, "Spreadsheet export is not enabled")
		return
	}

	if _, err := os.Stat(h.config.Path); err != nil {
		if os.IsNotExist(err) {
			WriteError(w, http.StatusNotFound, "No analyses have been exported yet")
			return
		}
		h.logger.Error().Err(err).Str("path", h.config.Path).Msg("Failed to stat spreadsheet")
		WriteError(w, http.StatusInternalServerError, "Failed to read spreadsheet")
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(h.config.Path)))
	http.ServeFile(w, r, h.config.Path)
}
