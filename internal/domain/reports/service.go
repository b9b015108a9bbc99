package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"evalhub/internal/domain/evaluation"
)

// GapSource produces the gap analysis the exports are rendered from.
type GapSource interface {
	GapAnalysis(ctx context.Context, caller evaluation.Caller, f evaluation.PopulationFilter) ([]evaluation.GapRow, error)
}

type Service struct {
	gaps GapSource
	now  func() time.Time
}

func NewService(gaps GapSource) *Service {
	return &Service{gaps: gaps, now: time.Now}
}

// GapCSV renders the gap analysis as a CSV document.
func (s *Service) GapCSV(ctx context.Context, caller evaluation.Caller, f evaluation.PopulationFilter) ([]byte, error) {
	rows, err := s.gaps.GapAnalysis(ctx, caller, f)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"dimension", "self_avg", "assessor_avg", "gap", "self_count", "assessor_count"}); err != nil {
		return nil, err
	}
	for _, row := range rows {
		record := []string{
			row.DimensionName,
			formatAvg(row.SelfAvg, row.SelfCount),
			formatAvg(row.AssessorAvg, row.AssessorCount),
			strconv.FormatFloat(row.Gap, 'f', 2, 64),
			strconv.Itoa(row.SelfCount),
			strconv.Itoa(row.AssessorCount),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// formatAvg distinguishes "no data" from a genuine zero score.
func formatAvg(avg float64, count int) string {
	if count == 0 {
		return ""
	}
	return strconv.FormatFloat(avg, 'f', 2, 64)
}

func scopeLabel(f evaluation.PopulationFilter) string {
	switch {
	case f.InstanceID != "":
		return "Evaluation " + f.InstanceID
	case f.EmployeeID != "":
		return "Employee " + f.EmployeeID
	case f.DepartmentID != "":
		return "Department " + f.DepartmentID
	case f.JobID != "":
		return "Job " + f.JobID
	default:
		return "Organization"
	}
}

func formatGapLine(row evaluation.GapRow) string {
	return fmt.Sprintf("self %s  assessor %s  gap %+.2f",
		orDash(formatAvg(row.SelfAvg, row.SelfCount)),
		orDash(formatAvg(row.AssessorAvg, row.AssessorCount)),
		row.Gap,
	)
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
