package evaluation

import (
	"math"
	"sort"
)

// ComputeGaps reduces rating observations to per-dimension self/assessor
// averages and their signed gap (assessor minus self). Every catalogue
// dimension appears in the output, including ones with no data; a missing
// side averages to 0 with a zero count rather than NaN. Rows are ordered by
// descending absolute gap, ties kept in catalogue order.
func ComputeGaps(catalogue []Dimension, rows []RatingRow) []GapRow {
	type acc struct {
		selfSum, assessorSum     int
		selfCount, assessorCount int
	}
	sums := make(map[string]*acc, len(catalogue))
	for _, dim := range catalogue {
		sums[dim.ID] = &acc{}
	}

	for _, row := range rows {
		a, ok := sums[row.DimensionID]
		if !ok {
			// Rating against a dimension no longer in the catalogue; skip.
			continue
		}
		switch row.Side {
		case TypeSelf:
			a.selfSum += row.Rating
			a.selfCount++
		case TypeAssessor:
			a.assessorSum += row.Rating
			a.assessorCount++
		}
	}

	out := make([]GapRow, 0, len(catalogue))
	for _, dim := range catalogue {
		a := sums[dim.ID]
		row := GapRow{
			DimensionID:   dim.ID,
			DimensionName: dim.Name,
			SelfCount:     a.selfCount,
			AssessorCount: a.assessorCount,
			Count:         a.selfCount + a.assessorCount,
		}
		if a.selfCount > 0 {
			row.SelfAvg = float64(a.selfSum) / float64(a.selfCount)
		}
		if a.assessorCount > 0 {
			row.AssessorAvg = float64(a.assessorSum) / float64(a.assessorCount)
		}
		row.Gap = row.AssessorAvg - row.SelfAvg
		out = append(out, row)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return math.Abs(out[i].Gap) > math.Abs(out[j].Gap)
	})
	return out
}
