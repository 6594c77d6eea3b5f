// Package stats computes descriptive statistics and seasonal profiles over
// monthly series.
package stats

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/dmmydply/bpizink-forecast-2025/internal/domain"
)

// StatisticsError signals a series too short (or otherwise unfit) for the
// requested statistic.
type StatisticsError struct {
	Reason string
}

func (e *StatisticsError) Error() string {
	return fmt.Sprintf("statistics undefined: %s", e.Reason)
}

// DivisionError signals a zero denominator while deriving a ratio series.
type DivisionError struct {
	Period domain.Period
}

func (e *DivisionError) Error() string {
	return fmt.Sprintf("zero production total in period %s", e.Period)
}

// percentileLevels are the reported percentile cut points.
var percentileLevels = []int{25, 50, 75, 90}

// Describe computes mean, sample standard deviation, coefficient of
// variation (percent) and the 25/50/75/90 percentiles of a monthly series.
// Variance-based statistics need at least two observations.
func Describe(series []float64) (domain.UsageStatistics, error) {
	if len(series) < 2 {
		return domain.UsageStatistics{}, &StatisticsError{
			Reason: fmt.Sprintf("need at least 2 observations, got %d", len(series)),
		}
	}

	mean := stat.Mean(series, nil)
	stdDev := stat.StdDev(series, nil)

	cv := 0.0
	if mean != 0 {
		cv = stdDev / mean * 100
	}

	percentiles := make(map[int]float64, len(percentileLevels))
	for _, level := range percentileLevels {
		percentiles[level] = Percentile(series, float64(level)/100)
	}

	return domain.UsageStatistics{
		Mean:                   mean,
		StdDev:                 stdDev,
		CoefficientOfVariation: cv,
		Percentiles:            percentiles,
	}, nil
}

// DescribeWith is Describe plus the Pearson correlation between the series
// and an equally long companion series.
func DescribeWith(series, companion []float64) (domain.UsageStatistics, error) {
	usage, err := Describe(series)
	if err != nil {
		return domain.UsageStatistics{}, err
	}
	if len(companion) != len(series) {
		return domain.UsageStatistics{}, &StatisticsError{
			Reason: fmt.Sprintf("companion series length %d does not match %d", len(companion), len(series)),
		}
	}

	corr := stat.Correlation(series, companion, nil)
	usage.CorrelationWithProduction = &corr
	return usage, nil
}

// Percentile returns the p-quantile (0 <= p <= 1) of the series using
// linear interpolation between closest ranks, h = (n-1)p. An empty series
// has no quantiles; the result is NaN.
func Percentile(series []float64, p float64) float64 {
	if len(series) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), series...)
	sort.Float64s(sorted)

	h := float64(len(sorted)-1) * p
	lo := int(math.Floor(h))
	hi := int(math.Ceil(h))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[hi]-sorted[lo])
}

// UsageRatio derives the usage percentage series outflow/production*100 in
// period order. Every point must carry a production total; a zero production
// total makes the ratio undefined for that period.
func UsageRatio(points []domain.MonthlyPoint) ([]float64, error) {
	ratios := make([]float64, len(points))
	for i, pt := range points {
		if pt.ProductionTotal == nil {
			return nil, &StatisticsError{
				Reason: fmt.Sprintf("no production total joined for period %s", pt.Period),
			}
		}
		if *pt.ProductionTotal == 0 {
			return nil, &DivisionError{Period: pt.Period}
		}
		ratios[i] = pt.OutflowTotal / *pt.ProductionTotal * 100
	}
	return ratios, nil
}

// SeasonalProfile averages a per-point value by calendar month and reindexes
// the result onto the canonical January..December order. Months absent from
// history map to nil rather than zero.
func SeasonalProfile(points []domain.MonthlyPoint, value func(domain.MonthlyPoint) float64) map[string]*float64 {
	sums := make(map[time.Month]float64)
	counts := make(map[time.Month]int)
	for _, pt := range points {
		sums[pt.Period.Month] += value(pt)
		counts[pt.Period.Month]++
	}

	profile := make(map[string]*float64, 12)
	for m := time.January; m <= time.December; m++ {
		if counts[m] == 0 {
			profile[m.String()] = nil
			continue
		}
		avg := sums[m] / float64(counts[m])
		profile[m.String()] = &avg
	}
	return profile
}
