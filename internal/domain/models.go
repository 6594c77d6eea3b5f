// internal/domain/models.go
package domain

import (
	"fmt"
	"time"
)

// Period identifies a calendar month (year + month). It is the grouping key
// for all monthly aggregates and forecasts.
type Period struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// PeriodOf returns the calendar-month period a timestamp falls into.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// Before reports whether p is chronologically before other.
func (p Period) Before(other Period) bool {
	if p.Year != other.Year {
		return p.Year < other.Year
	}
	return p.Month < other.Month
}

// Next returns the period immediately following p.
func (p Period) Next() Period {
	if p.Month == time.December {
		return Period{Year: p.Year + 1, Month: time.January}
	}
	return Period{Year: p.Year, Month: p.Month + 1}
}

// Time returns midnight on the first day of the period (UTC).
func (p Period) Time() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// LedgerRecord is a single dated warehouse mutation: quantity added to
// (inflow) or removed from (outflow) inventory. Produced by the ingestion
// collaborator with dates already normalized.
type LedgerRecord struct {
	Date     time.Time `json:"date"`
	Inflow   float64   `json:"inflow_qty"`
	Outflow  float64   `json:"outflow_qty"`
	ItemCode string    `json:"item_code"`
	ItemName string    `json:"item_name"`
}

// ProductionRecord is a single dated production weight, summed across the
// three shifts by the ingestion collaborator.
type ProductionRecord struct {
	Date     time.Time `json:"date"`
	Produced float64   `json:"produced_qty"`
}

// MonthlyPoint is one month of aggregated ledger activity. ProductionTotal
// is nil when no production series was joined for the period.
type MonthlyPoint struct {
	Period          Period   `json:"period"`
	InflowTotal     float64  `json:"inflow_total"`
	OutflowTotal    float64  `json:"outflow_total"`
	ProductionTotal *float64 `json:"production_total,omitempty"`
}

// ForecastPoint is one forecast month with its confidence bounds.
// Invariant: LowerBound <= PointEstimate <= UpperBound.
type ForecastPoint struct {
	Period        Period  `json:"period"`
	PointEstimate float64 `json:"point_estimate"`
	LowerBound    float64 `json:"lower_bound"`
	UpperBound    float64 `json:"upper_bound"`
}

// UsageStatistics describes the variability of a monthly series.
type UsageStatistics struct {
	Mean                      float64             `json:"mean"`
	StdDev                    float64             `json:"std_dev"`
	CoefficientOfVariation    float64             `json:"coefficient_of_variation"`
	Percentiles               map[int]float64     `json:"percentiles"`
	CorrelationWithProduction *float64            `json:"correlation_with_production,omitempty"`
	SeasonalProfile           map[string]*float64 `json:"seasonal_profile,omitempty"`
}

// StockRecommendation holds derived inventory-control parameters.
// SafetyStock is the flat 20%-of-minimum heuristic that drives the
// recommendation; SafetyStockStatistical is the z*sigma*sqrt(L) value
// computed for comparison and never substituted for the heuristic.
type StockRecommendation struct {
	MinLevel               float64  `json:"min_level"`
	OptimalLevel           float64  `json:"optimal_level"`
	MaxLevel               float64  `json:"max_level"`
	ReorderPoint           float64  `json:"reorder_point"`
	OrderQuantity          float64  `json:"order_quantity"`
	SafetyStock            float64  `json:"safety_stock"`
	SafetyStockStatistical *float64 `json:"safety_stock_statistical,omitempty"`
	VariabilityClass       string   `json:"variability_class"`
	CorrelationClass       string   `json:"correlation_class,omitempty"`
	HighVariability        bool     `json:"high_variability"`
	UsageAdvice            string   `json:"usage_advice"`
	CorrelationAdvice      string   `json:"correlation_advice,omitempty"`
	HighVariabilityDetails []string `json:"high_variability_details,omitempty"`
}

// LedgerOverview summarizes the raw ledger before aggregation.
type LedgerOverview struct {
	TransactionCount int       `json:"transaction_count"`
	TotalInflow      float64   `json:"total_inflow"`
	TotalOutflow     float64   `json:"total_outflow"`
	ItemCode         string    `json:"item_code,omitempty"`
	ItemName         string    `json:"item_name,omitempty"`
	FirstDate        time.Time `json:"first_date"`
	LastDate         time.Time `json:"last_date"`
}

// AnalysisReport is the full output of one pipeline run.
type AnalysisReport struct {
	Overview        LedgerOverview      `json:"overview"`
	MonthlyPoints   []MonthlyPoint      `json:"monthly_points"`
	OutflowStats    UsageStatistics     `json:"outflow_stats"`
	UsageRatioStats *UsageStatistics    `json:"usage_ratio_stats,omitempty"`
	Forecast        []ForecastPoint     `json:"forecast"`
	Recommendation  StockRecommendation `json:"recommendation"`
	GeneratedAt     time.Time           `json:"generated_at"`
}
