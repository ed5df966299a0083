// -----------------------------------------------------------------------
// Report PDF - renders the markdown report through fpdf
// -----------------------------------------------------------------------

package reports

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/specto/internal/interfaces"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// pdfConverter turns markdown into an A4 PDF by walking the goldmark
// AST and drawing each node with fpdf
type pdfConverter struct {
	logger arbor.ILogger
}

func newPDFConverter(logger arbor.ILogger) *pdfConverter {
	return &pdfConverter{logger: logger}
}

// ConvertMarkdownToPDF converts markdown content to a PDF byte slice.
// The title goes into the document metadata; the visible title is the
// markdown's own H1.
func (c *pdfConverter) ConvertMarkdownToPDF(markdown, title string) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 10)
	pdf.AddPage()
	pdf.SetFont("Arial", "", 9)

	md := goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough))
	source := []byte(markdown)
	doc := md.Parser().Parse(text.NewReader(source))

	walker := &pdfWalker{
		pdf:    pdf,
		source: source,
		font:   "Arial",
		size:   9,
	}
	if err := ast.Walk(doc, walker.walk); err != nil {
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF output: %w", err)
	}

	c.logger.Debug().
		Int("markdown_len", len(markdown)).
		Int("pdf_size", buf.Len()).
		Msg("PDF report generated")

	return buf.Bytes(), nil
}

type pdfWalker struct {
	pdf       *fpdf.Fpdf
	source    []byte
	font      string
	size      float64
	bold      bool
	italic    bool
	listLevel int
}

func (r *pdfWalker) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading:
		r.heading(node, entering)
	case *ast.Paragraph:
		if !entering {
			r.pdf.Ln(7)
		}
	case *ast.Text:
		if entering {
			r.pdf.Write(5, string(node.Text(r.source)))
		}
	case *ast.Emphasis:
		if node.Level == 2 {
			r.bold = entering
		} else {
			r.italic = entering
		}
		r.applyFont()
	case *ast.CodeSpan:
		return r.codeSpan(node, entering)
	case *ast.List:
		r.list(entering)
	case *ast.ListItem:
		if entering {
			r.pdf.Ln(5)
			r.pdf.SetX(15 + float64(r.listLevel)*5.0)
			r.pdf.Write(5, "- ")
		}
	case *ast.ThematicBreak:
		if entering {
			r.pdf.Ln(2)
			r.pdf.Line(15, r.pdf.GetY(), 195, r.pdf.GetY())
			r.pdf.Ln(2)
		}
	case *extast.Table:
		if entering {
			r.table(node)
			return ast.WalkSkipChildren, nil
		}
	}
	return ast.WalkContinue, nil
}

func (r *pdfWalker) applyFont() {
	style := ""
	if r.bold {
		style += "B"
	}
	if r.italic {
		style += "I"
	}
	r.pdf.SetFont(r.font, style, r.size)
}

func (r *pdfWalker) heading(n *ast.Heading, entering bool) {
	if entering {
		r.pdf.Ln(6)
		size := 10.0
		switch n.Level {
		case 1:
			size = 14
		case 2:
			size = 12
		case 3:
			size = 11
		}
		r.pdf.SetFont(r.font, "B", size)
	} else {
		r.pdf.Ln(6)
		r.applyFont()
	}
}

func (r *pdfWalker) codeSpan(n *ast.CodeSpan, entering bool) (ast.WalkStatus, error) {
	if entering {
		r.pdf.SetFont("Courier", "", r.size)
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if textNode, ok := c.(*ast.Text); ok {
				r.pdf.Write(5, string(textNode.Segment.Value(r.source)))
			}
		}
	} else {
		r.applyFont()
	}
	return ast.WalkSkipChildren, nil
}

func (r *pdfWalker) list(entering bool) {
	if entering {
		r.listLevel++
	} else {
		r.listLevel--
		if r.listLevel == 0 {
			r.pdf.Ln(2)
		}
	}
}

func (r *pdfWalker) table(n *extast.Table) {
	var rows [][]string
	var collect func(node ast.Node)
	collect = func(node ast.Node) {
		for child := node.FirstChild(); child != nil; child = child.NextSibling() {
			switch row := child.(type) {
			case *extast.TableRow:
				rows = append(rows, r.tableRow(row))
			case *extast.TableHeader:
				collect(row)
			}
		}
	}
	collect(n)

	r.drawTable(rows)
}

func (r *pdfWalker) tableRow(n *extast.TableRow) []string {
	var row []string
	for cell := n.FirstChild(); cell != nil; cell = cell.NextSibling() {
		if _, ok := cell.(*extast.TableCell); ok {
			row = append(row, string(cell.Text(r.source)))
		}
	}
	return row
}

func (r *pdfWalker) drawTable(rows [][]string) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}

	const (
		pageWidth  = 180.0
		fontSize   = 8.0
		lineHeight = 4.0
		maxLines   = 8
	)
	numCols := len(rows[0])
	widths := r.columnWidths(rows, numCols, pageWidth, fontSize)

	r.pdf.Ln(2)
	for i, row := range rows {
		if i == 0 {
			r.pdf.SetFont(r.font, "B", fontSize)
		} else {
			r.pdf.SetFont(r.font, "", fontSize)
		}

		lines := 1
		for j, cell := range row {
			if j < numCols {
				if needed := r.wrapLines(cell, widths[j]-2); needed > lines {
					lines = needed
				}
			}
		}
		if lines > maxLines {
			lines = maxLines
		}

		rowHeight := float64(lines)*lineHeight + 2
		startX := r.pdf.GetX()
		startY := r.pdf.GetY()
		if startY+rowHeight > 282 {
			r.pdf.AddPage()
			startY = r.pdf.GetY()
		}

		x := startX
		for j, cell := range row {
			if j >= numCols {
				break
			}
			if i == 0 {
				r.pdf.SetFillColor(230, 230, 230)
				r.pdf.Rect(x, startY, widths[j], rowHeight, "FD")
			} else {
				r.pdf.Rect(x, startY, widths[j], rowHeight, "D")
			}
			r.pdf.SetXY(x+1, startY+1)
			r.drawWrappedCell(cell, widths[j]-2, lineHeight, maxLines)
			x += widths[j]
		}

		r.pdf.SetXY(startX, startY+rowHeight)
	}

	r.pdf.Ln(3)
	r.applyFont()
}

// columnWidths sizes each column by its widest content, clamped and
// then scaled to fit the printable width
func (r *pdfWalker) columnWidths(rows [][]string, numCols int, pageWidth, fontSize float64) []float64 {
	widths := make([]float64, numCols)
	r.pdf.SetFont(r.font, "", fontSize)
	for _, row := range rows {
		for i, cell := range row {
			if i < numCols {
				if w := r.pdf.GetStringWidth(cell) + 4; w > widths[i] {
					widths[i] = w
				}
			}
		}
	}

	const minWidth = 12.0
	maxWidth := pageWidth / 2.0
	total := 0.0
	for i := range widths {
		if widths[i] < minWidth {
			widths[i] = minWidth
		}
		if widths[i] > maxWidth {
			widths[i] = maxWidth
		}
		total += widths[i]
	}

	if total > pageWidth {
		scale := pageWidth / total
		for i := range widths {
			widths[i] *= scale
		}
	}

	return widths
}

// wrapLines counts the lines a cell needs at the current font
func (r *pdfWalker) wrapLines(cell string, width float64) int {
	if cell == "" || width <= 0 {
		return 1
	}
	lines := 1
	current := 0.0
	space := r.pdf.GetStringWidth(" ")
	for _, word := range strings.Fields(cell) {
		w := r.pdf.GetStringWidth(word)
		switch {
		case current == 0:
			current = w
		case current+space+w <= width:
			current += space + w
		default:
			lines++
			current = w
		}
	}
	return lines
}

func (r *pdfWalker) drawWrappedCell(cell string, width, lineHeight float64, maxLines int) {
	if cell == "" {
		return
	}

	var lines []string
	current := ""
	currentWidth := 0.0
	space := r.pdf.GetStringWidth(" ")
	for _, word := range strings.Fields(cell) {
		w := r.pdf.GetStringWidth(word)
		switch {
		case current == "":
			current, currentWidth = word, w
		case currentWidth+space+w <= width:
			current += " " + word
			currentWidth += space + w
		default:
			lines = append(lines, current)
			current, currentWidth = word, w
		}
	}
	if current != "" {
		lines = append(lines, current)
	}

	for i := 0; i < len(lines) && i < maxLines; i++ {
		line := lines[i]
		if i == maxLines-1 && len(lines) > maxLines {
			for r.pdf.GetStringWidth(line+"...") > width && len(line) > 3 {
				line = line[:len(line)-1]
			}
			line += "..."
		}
		r.pdf.CellFormat(width, lineHeight, line, "", 2, "L", false, 0, "")
	}
}

var _ interfaces.PDFService = (*pdfConverter)(nil)
