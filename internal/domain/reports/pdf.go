package reports

import (
	"bytes"
	"context"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"evalhub/internal/domain/evaluation"
)

// GapPDF renders the gap analysis as a one-page PDF summary. Rows keep the
// analysis ordering, biggest absolute gap first.
func (s *Service) GapPDF(ctx context.Context, caller evaluation.Caller, f evaluation.PopulationFilter, orgName string) ([]byte, error) {
	rows, err := s.gaps.GapAnalysis(ctx, caller, f)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Competency Gap Analysis")
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 12)
	if orgName != "" {
		pdf.Cell(0, 8, orgName)
		pdf.Ln(7)
	}
	pdf.Cell(0, 8, "Scope: "+scopeLabel(f))
	pdf.Ln(7)
	pdf.Cell(0, 8, "Generated: "+s.now().UTC().Format("2006-01-02 15:04 MST"))
	pdf.Ln(10)

	if len(rows) == 0 {
		pdf.Cell(0, 8, "No dimensions in the catalogue.")
	}
	for _, row := range rows {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, row.DimensionName)
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "", 11)
		pdf.Cell(0, 7, formatGapLine(row))
		if row.Count == 0 {
			pdf.Ln(5)
			pdf.Cell(0, 7, "no ratings recorded")
		}
		pdf.Ln(9)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render gap pdf: %w", err)
	}
	return buf.Bytes(), nil
}
