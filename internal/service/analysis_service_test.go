package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/dmmydply/bpizink-forecast-2025/internal/aggregate"
	"github.com/dmmydply/bpizink-forecast-2025/internal/config"
	"github.com/dmmydply/bpizink-forecast-2025/internal/domain"
	"github.com/dmmydply/bpizink-forecast-2025/internal/forecast"
)

// memoryForecastCache records cache traffic for assertions.
type memoryForecastCache struct {
	entries map[string][]domain.ForecastPoint
	gets    int
	sets    int
}

func newMemoryForecastCache() *memoryForecastCache {
	return &memoryForecastCache{entries: make(map[string][]domain.ForecastPoint)}
}

func (c *memoryForecastCache) key(series []float64, lastPeriod domain.Period) string {
	return fmt.Sprintf("%s:%v", lastPeriod, series)
}

func (c *memoryForecastCache) Get(ctx context.Context, series []float64, lastPeriod domain.Period, opts forecast.Options) ([]domain.ForecastPoint, bool, error) {
	c.gets++
	points, ok := c.entries[c.key(series, lastPeriod)]
	return points, ok, nil
}

func (c *memoryForecastCache) Set(ctx context.Context, series []float64, lastPeriod domain.Period, opts forecast.Options, points []domain.ForecastPoint) error {
	c.sets++
	c.entries[c.key(series, lastPeriod)] = points
	return nil
}

func (c *memoryForecastCache) InvalidateAll(ctx context.Context) error {
	c.entries = make(map[string][]domain.ForecastPoint)
	return nil
}

func testConfig() config.AnalysisConfig {
	return config.AnalysisConfig{
		ForecastHorizon:     12,
		Confidence:          0.95,
		MinObservations:     24,
		ServiceLevel:        0.95,
		ReorderPoint:        15000,
		OrderQuantity:       40000,
		SafetyStockFraction: 0.2,
	}
}

// testRequest builds months of ledger data starting January 2021 and, when
// withProduction is set, a matching production ledger.
func testRequest(months int, withProduction bool) AnalysisRequest {
	var req AnalysisRequest
	start := time.Date(2021, time.January, 15, 0, 0, 0, 0, time.UTC)
	for t := 0; t < months; t++ {
		date := start.AddDate(0, t, 0)
		outflow := 10000 + 2000*math.Sin(2*math.Pi*float64(t%12)/12) + 150*math.Sin(5.1*float64(t))
		req.Ledger = append(req.Ledger, domain.LedgerRecord{
			Date:     date,
			Inflow:   11000,
			Outflow:  outflow,
			ItemCode: "ZN-01",
			ItemName: "Zinc ingot",
		})
		if withProduction {
			req.Production = append(req.Production, domain.ProductionRecord{
				Date:     date,
				Produced: outflow * 4,
			})
		}
	}
	return req
}

func TestRun_WithoutProduction(t *testing.T) {
	svc := NewAnalysisService(forecast.NewEngine(), nil, testConfig())

	report, err := svc.Run(context.Background(), testRequest(36, false))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(report.MonthlyPoints) != 36 {
		t.Errorf("monthly points = %d, want 36", len(report.MonthlyPoints))
	}
	if len(report.Forecast) != 12 {
		t.Errorf("forecast horizon = %d, want 12", len(report.Forecast))
	}
	if report.Overview.TransactionCount != 36 || report.Overview.ItemCode != "ZN-01" {
		t.Errorf("overview = %+v", report.Overview)
	}
	if report.OutflowStats.CorrelationWithProduction != nil {
		t.Error("correlation must be absent without a production ledger")
	}
	if report.UsageRatioStats != nil {
		t.Error("ratio statistics must be absent without a production ledger")
	}
	if report.OutflowStats.SeasonalProfile == nil {
		t.Error("outflow seasonal profile missing")
	}
	if report.Recommendation.VariabilityClass == "" {
		t.Error("recommendation not populated")
	}
	if report.GeneratedAt.IsZero() {
		t.Error("report timestamp missing")
	}

	// The forecast continues from the last historical month.
	if want := (domain.Period{Year: 2024, Month: time.January}); report.Forecast[0].Period != want {
		t.Errorf("first forecast period = %v, want %v", report.Forecast[0].Period, want)
	}
}

func TestRun_WithProduction(t *testing.T) {
	svc := NewAnalysisService(forecast.NewEngine(), nil, testConfig())

	report, err := svc.Run(context.Background(), testRequest(36, true))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.OutflowStats.CorrelationWithProduction == nil {
		t.Fatal("correlation missing despite production ledger")
	}
	// Production is a fixed multiple of outflow, so correlation is perfect.
	if corr := *report.OutflowStats.CorrelationWithProduction; math.Abs(corr-1) > 1e-9 {
		t.Errorf("correlation = %v, want 1", corr)
	}
	if report.Recommendation.CorrelationClass == "" {
		t.Error("correlation class missing")
	}

	if report.UsageRatioStats == nil {
		t.Fatal("ratio statistics missing")
	}
	// outflow / (4*outflow) * 100 = 25 for every month.
	if math.Abs(report.UsageRatioStats.Mean-25) > 1e-9 {
		t.Errorf("ratio mean = %v, want 25", report.UsageRatioStats.Mean)
	}
}

func TestRun_EmptyLedger(t *testing.T) {
	svc := NewAnalysisService(forecast.NewEngine(), nil, testConfig())

	_, err := svc.Run(context.Background(), AnalysisRequest{})
	var aggErr *aggregate.AggregationError
	if !errors.As(err, &aggErr) {
		t.Fatalf("expected AggregationError, got %v", err)
	}
}

func TestRun_TooLittleHistory(t *testing.T) {
	svc := NewAnalysisService(forecast.NewEngine(), nil, testConfig())

	_, err := svc.Run(context.Background(), testRequest(6, false))
	var fitErr *forecast.ModelFitError
	if !errors.As(err, &fitErr) {
		t.Fatalf("expected ModelFitError, got %v", err)
	}
}

func TestRun_ForecastCacheReused(t *testing.T) {
	memory := newMemoryForecastCache()
	svc := NewAnalysisService(forecast.NewEngine(), memory, testConfig())
	req := testRequest(36, false)

	first, err := svc.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	second, err := svc.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if memory.gets != 2 {
		t.Errorf("cache gets = %d, want 2", memory.gets)
	}
	if memory.sets != 1 {
		t.Errorf("cache sets = %d, want 1 (second run should hit)", memory.sets)
	}

	for i := range first.Forecast {
		if first.Forecast[i] != second.Forecast[i] {
			t.Fatalf("cached forecast differs at point %d", i)
		}
	}
}
