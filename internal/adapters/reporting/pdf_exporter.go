package reporting

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/lcalzada-xor/cellwatch/internal/core/domain"
)

// PDFExporter renders threat summary reports to PDF
type PDFExporter struct{}

// NewPDFExporter creates a new PDF exporter instance
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// ExportThreatReport generates a PDF summary of the coordinator's state and
// its most recent threats.
func (e *PDFExporter) ExportThreatReport(stats domain.CoordinatorStats, threats []domain.Threat) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	e.addHeader(pdf)
	e.addStatistics(pdf, stats)
	e.addThreatTable(pdf, threats)
	e.addFooter(pdf)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *PDFExporter) addHeader(pdf *gofpdf.Fpdf) {
	pdf.SetFont("Arial", "B", 24)
	pdf.SetTextColor(0, 51, 102) // Dark blue
	pdf.CellFormat(0, 15, "Cellular Threat Report", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(120, 120, 120)
	dateStr := fmt.Sprintf("Generated: %s", time.Now().Format("2006-01-02 15:04"))
	pdf.CellFormat(0, 6, dateStr, "", 1, "L", false, 0, "")
	pdf.Ln(6)
}

func (e *PDFExporter) addStatistics(pdf *gofpdf.Fpdf, stats domain.CoordinatorStats) {
	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 10, "Overview", "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 11)
	rows := []struct {
		label string
		value string
	}{
		{"Connected devices", fmt.Sprintf("%d", stats.ConnectedDevices)},
		{"Total threats", fmt.Sprintf("%d", stats.TotalThreats)},
		{"Threats (last hour)", fmt.Sprintf("%d", stats.Threats1h)},
		{"Threats (last 24h)", fmt.Sprintf("%d", stats.Threats24h)},
		{"Threats (last 7d)", fmt.Sprintf("%d", stats.Threats7d)},
	}
	for _, row := range rows {
		pdf.CellFormat(60, 7, row.label, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 7, row.value, "", 1, "L", false, 0, "")
	}

	if len(stats.ThreatTypes) > 0 {
		pdf.Ln(2)
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(0, 7, "By type", "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 11)
		for tt, count := range stats.ThreatTypes {
			pdf.CellFormat(80, 7, string(tt), "", 0, "L", false, 0, "")
			pdf.CellFormat(0, 7, fmt.Sprintf("%d", count), "", 1, "L", false, 0, "")
		}
	}
	pdf.Ln(6)
}

func (e *PDFExporter) addThreatTable(pdf *gofpdf.Fpdf, threats []domain.Threat) {
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, "Recent Threats", "", 1, "L", false, 0, "")

	if len(threats) == 0 {
		pdf.SetFont("Arial", "I", 11)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 8, "No threats recorded.", "", 1, "L", false, 0, "")
		return
	}

	// Table header
	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(0, 51, 102)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(35, 8, "Time", "1", 0, "L", true, 0, "")
	pdf.CellFormat(55, 8, "Type", "1", 0, "L", true, 0, "")
	pdf.CellFormat(25, 8, "Severity", "1", 0, "L", true, 0, "")
	pdf.CellFormat(40, 8, "Device", "1", 0, "L", true, 0, "")
	pdf.CellFormat(0, 8, "Confidence", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "", 9)
	pdf.SetTextColor(0, 0, 0)
	fill := false
	for _, t := range threats {
		r, g, b := severityColor(t.Severity)
		pdf.SetFillColor(r, g, b)
		pdf.CellFormat(35, 7, t.Timestamp.Format("01-02 15:04:05"), "1", 0, "L", fill, 0, "")
		pdf.CellFormat(55, 7, string(t.Type), "1", 0, "L", fill, 0, "")
		pdf.CellFormat(25, 7, string(t.Severity), "1", 0, "L", fill, 0, "")
		pdf.CellFormat(40, 7, t.DeviceID, "1", 0, "L", fill, 0, "")
		pdf.CellFormat(0, 7, fmt.Sprintf("%.0f%%", t.Confidence*100), "1", 1, "L", fill, 0, "")
		fill = !fill
	}
}

func (e *PDFExporter) addFooter(pdf *gofpdf.Fpdf) {
	pdf.SetY(-20)
	pdf.SetFont("Arial", "I", 8)
	pdf.SetTextColor(150, 150, 150)
	pdf.CellFormat(0, 6, "cellwatch coordinator report", "", 1, "C", false, 0, "")
}

func severityColor(s domain.Severity) (int, int, int) {
	switch s {
	case domain.SeverityCritical:
		return 255, 205, 205
	case domain.SeverityHigh:
		return 255, 230, 205
	case domain.SeverityMedium:
		return 255, 250, 205
	default:
		return 235, 235, 235
	}
}
