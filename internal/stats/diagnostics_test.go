package stats

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/dmmydply/bpizink-forecast-2025/internal/domain"
)

const tolerance = 1e-9

func approx(a, b float64) bool {
	return math.Abs(a-b) <= tolerance
}

func TestDescribe(t *testing.T) {
	// Mean 10000, sample standard deviation 1500, so CV is exactly 15%.
	series := []float64{8500, 10000, 11500}

	usage, err := Describe(series)
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}

	if !approx(usage.Mean, 10000) {
		t.Errorf("mean = %v, want 10000", usage.Mean)
	}
	if !approx(usage.StdDev, 1500) {
		t.Errorf("stddev = %v, want 1500", usage.StdDev)
	}
	if !approx(usage.CoefficientOfVariation, 15) {
		t.Errorf("cv = %v, want 15", usage.CoefficientOfVariation)
	}
	if usage.CorrelationWithProduction != nil {
		t.Error("Describe must not set a correlation")
	}
}

func TestDescribe_TooShort(t *testing.T) {
	for _, series := range [][]float64{nil, {42}} {
		_, err := Describe(series)
		var statErr *StatisticsError
		if !errors.As(err, &statErr) {
			t.Errorf("series %v: expected StatisticsError, got %v", series, err)
		}
	}
}

func TestDescribe_ZeroMean(t *testing.T) {
	usage, err := Describe([]float64{-10, 10})
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	if usage.CoefficientOfVariation != 0 {
		t.Errorf("cv = %v, want 0 for zero mean", usage.CoefficientOfVariation)
	}
}

func TestPercentile(t *testing.T) {
	series := []float64{5, 1, 4, 2, 3}

	tests := []struct {
		p    float64
		want float64
	}{
		{0, 1},
		{0.25, 2},
		{0.5, 3},
		{0.75, 4},
		{0.9, 4.6},
		{1, 5},
	}
	for _, tt := range tests {
		if got := Percentile(series, tt.p); !approx(got, tt.want) {
			t.Errorf("Percentile(p=%v) = %v, want %v", tt.p, got, tt.want)
		}
	}

	// The input must not be reordered.
	if series[0] != 5 || series[1] != 1 {
		t.Error("Percentile mutated its input")
	}
}

func TestPercentile_Empty(t *testing.T) {
	for _, p := range []float64{0, 0.5, 1} {
		if got := Percentile(nil, p); !math.IsNaN(got) {
			t.Errorf("Percentile(nil, %v) = %v, want NaN", p, got)
		}
	}
}

func TestDescribe_PercentileLevels(t *testing.T) {
	usage, err := Describe([]float64{1, 2, 3, 4, 5})
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	for _, level := range []int{25, 50, 75, 90} {
		if _, ok := usage.Percentiles[level]; !ok {
			t.Errorf("missing percentile level %d", level)
		}
	}
	if !approx(usage.Percentiles[90], 4.6) {
		t.Errorf("p90 = %v, want 4.6", usage.Percentiles[90])
	}
}

func TestDescribeWith(t *testing.T) {
	series := []float64{1, 2, 3, 4}
	companion := []float64{10, 20, 30, 40}

	usage, err := DescribeWith(series, companion)
	if err != nil {
		t.Fatalf("DescribeWith failed: %v", err)
	}
	if usage.CorrelationWithProduction == nil {
		t.Fatal("correlation not set")
	}
	if !approx(*usage.CorrelationWithProduction, 1) {
		t.Errorf("correlation = %v, want 1", *usage.CorrelationWithProduction)
	}

	if _, err := DescribeWith(series, companion[:3]); err == nil {
		t.Error("expected error for mismatched lengths")
	}
}

func TestUsageRatio(t *testing.T) {
	prod := func(v float64) *float64 { return &v }
	points := []domain.MonthlyPoint{
		{Period: domain.Period{Year: 2023, Month: time.January}, OutflowTotal: 250, ProductionTotal: prod(1000)},
		{Period: domain.Period{Year: 2023, Month: time.February}, OutflowTotal: 300, ProductionTotal: prod(600)},
	}

	ratios, err := UsageRatio(points)
	if err != nil {
		t.Fatalf("UsageRatio failed: %v", err)
	}
	if !approx(ratios[0], 25) || !approx(ratios[1], 50) {
		t.Errorf("ratios = %v, want [25 50]", ratios)
	}
}

func TestUsageRatio_ZeroProduction(t *testing.T) {
	zero := 0.0
	points := []domain.MonthlyPoint{
		{Period: domain.Period{Year: 2023, Month: time.May}, OutflowTotal: 10, ProductionTotal: &zero},
	}

	_, err := UsageRatio(points)
	var divErr *DivisionError
	if !errors.As(err, &divErr) {
		t.Fatalf("expected DivisionError, got %v", err)
	}
	if divErr.Period != (domain.Period{Year: 2023, Month: time.May}) {
		t.Errorf("error period = %v", divErr.Period)
	}
}

func TestUsageRatio_MissingProduction(t *testing.T) {
	points := []domain.MonthlyPoint{
		{Period: domain.Period{Year: 2023, Month: time.May}, OutflowTotal: 10},
	}

	_, err := UsageRatio(points)
	var statErr *StatisticsError
	if !errors.As(err, &statErr) {
		t.Fatalf("expected StatisticsError, got %v", err)
	}
}

func TestSeasonalProfile(t *testing.T) {
	points := []domain.MonthlyPoint{
		{Period: domain.Period{Year: 2022, Month: time.January}, OutflowTotal: 100},
		{Period: domain.Period{Year: 2023, Month: time.January}, OutflowTotal: 300},
		{Period: domain.Period{Year: 2023, Month: time.July}, OutflowTotal: 50},
	}

	profile := SeasonalProfile(points, func(p domain.MonthlyPoint) float64 {
		return p.OutflowTotal
	})

	if len(profile) != 12 {
		t.Fatalf("profile has %d months, want 12", len(profile))
	}
	if v := profile["January"]; v == nil || !approx(*v, 200) {
		t.Errorf("January = %v, want 200", v)
	}
	if v := profile["July"]; v == nil || !approx(*v, 50) {
		t.Errorf("July = %v, want 50", v)
	}
	for _, m := range []string{"February", "March", "December"} {
		if profile[m] != nil {
			t.Errorf("%s should be nil, got %v", m, *profile[m])
		}
	}
}
