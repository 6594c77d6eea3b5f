// Package aggregate collapses dated ledger records into an ordered monthly
// series, optionally joined with a production series.
package aggregate

import (
	"fmt"
	"sort"

	"github.com/dmmydply/bpizink-forecast-2025/internal/domain"
)

// AggregationError signals that no valid monthly grouping could be produced.
type AggregationError struct {
	Reason string
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("aggregation failed: %s", e.Reason)
}

// Aggregate groups ledger records by calendar month and sums inflow and
// outflow per month. When production records are supplied they are grouped
// the same way and joined by period with inner-join semantics: periods
// present in only one of the two series are dropped from the output.
// The result is strictly increasing by period with no duplicates.
func Aggregate(ledger []domain.LedgerRecord, production []domain.ProductionRecord) ([]domain.MonthlyPoint, error) {
	if len(ledger) == 0 {
		return nil, &AggregationError{Reason: "empty ledger: no periods to report"}
	}

	type totals struct {
		inflow  float64
		outflow float64
	}
	byPeriod := make(map[domain.Period]*totals)
	for _, rec := range ledger {
		p := domain.PeriodOf(rec.Date)
		t, ok := byPeriod[p]
		if !ok {
			t = &totals{}
			byPeriod[p] = t
		}
		t.inflow += rec.Inflow
		t.outflow += rec.Outflow
	}

	var prodByPeriod map[domain.Period]float64
	if len(production) > 0 {
		prodByPeriod = make(map[domain.Period]float64)
		for _, rec := range production {
			prodByPeriod[domain.PeriodOf(rec.Date)] += rec.Produced
		}
	}

	points := make([]domain.MonthlyPoint, 0, len(byPeriod))
	for p, t := range byPeriod {
		point := domain.MonthlyPoint{
			Period:       p,
			InflowTotal:  t.inflow,
			OutflowTotal: t.outflow,
		}
		if prodByPeriod != nil {
			prod, ok := prodByPeriod[p]
			if !ok {
				// Inner join: ledger months without production data disappear.
				continue
			}
			point.ProductionTotal = &prod
		}
		points = append(points, point)
	}

	if len(points) == 0 {
		return nil, &AggregationError{Reason: "no overlapping periods between ledger and production"}
	}

	sort.Slice(points, func(i, j int) bool {
		return points[i].Period.Before(points[j].Period)
	})

	return points, nil
}

// OutflowSeries extracts the outflow totals in period order.
func OutflowSeries(points []domain.MonthlyPoint) []float64 {
	series := make([]float64, len(points))
	for i, p := range points {
		series[i] = p.OutflowTotal
	}
	return series
}

// ProductionSeries extracts the production totals in period order. It returns
// nil if any point is missing a production total.
func ProductionSeries(points []domain.MonthlyPoint) []float64 {
	series := make([]float64, len(points))
	for i, p := range points {
		if p.ProductionTotal == nil {
			return nil
		}
		series[i] = *p.ProductionTotal
	}
	return series
}

// Overview summarizes the raw ledger for reporting purposes.
func Overview(ledger []domain.LedgerRecord) domain.LedgerOverview {
	ov := domain.LedgerOverview{TransactionCount: len(ledger)}
	for i, rec := range ledger {
		ov.TotalInflow += rec.Inflow
		ov.TotalOutflow += rec.Outflow
		if i == 0 || rec.Date.Before(ov.FirstDate) {
			ov.FirstDate = rec.Date
		}
		if i == 0 || rec.Date.After(ov.LastDate) {
			ov.LastDate = rec.Date
		}
		if ov.ItemCode == "" && rec.ItemCode != "" {
			ov.ItemCode = rec.ItemCode
			ov.ItemName = rec.ItemName
		}
	}
	return ov
}
