// Package advisor derives inventory-control parameters from a forecast and
// the usage diagnostics.
package advisor

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/dmmydply/bpizink-forecast-2025/internal/domain"
)

// Variability classes derived from the coefficient of variation.
const (
	VariabilityStable   = "stable"
	VariabilityModerate = "moderately variable"
	VariabilityHigh     = "highly variable"
)

// Correlation classes for outflow vs. production.
const (
	CorrelationStrong      = "strong"
	CorrelationModerate    = "moderate"
	CorrelationNeedsReview = "needs review"
)

// Config carries the replenishment parameters. ReorderPoint and
// OrderQuantity act as fixed fallbacks; the ROP/EOQ formulas take over only
// when LeadTimeDays, OrderCost and HoldingCost are all positive.
type Config struct {
	LeadTimeDays        float64
	OrderCost           float64
	HoldingCost         float64
	ServiceLevel        float64
	ReorderPoint        float64
	OrderQuantity       float64
	SafetyStockFraction float64
}

// DefaultConfig mirrors the illustrative constants of the original analysis.
func DefaultConfig() Config {
	return Config{
		ServiceLevel:        0.95,
		ReorderPoint:        15000,
		OrderQuantity:       40000,
		SafetyStockFraction: 0.2,
	}
}

// Advise computes the stock recommendation for a forecast horizon.
//
// The recommended safety stock is the flat fraction of the minimum level.
// The textbook z*sigma*sqrt(lead time) value is reported alongside when a
// lead time is configured, but it never replaces the heuristic.
func Advise(forecast []domain.ForecastPoint, usage domain.UsageStatistics, cfg Config) domain.StockRecommendation {
	var lowerSum, pointSum, upperSum float64
	for _, fp := range forecast {
		lowerSum += fp.LowerBound
		pointSum += fp.PointEstimate
		upperSum += fp.UpperBound
	}

	n := float64(len(forecast))
	rec := domain.StockRecommendation{}
	if n > 0 {
		rec.MinLevel = lowerSum / n
		rec.OptimalLevel = pointSum / n
		rec.MaxLevel = upperSum / n
	}

	fraction := cfg.SafetyStockFraction
	if fraction <= 0 {
		fraction = 0.2
	}
	rec.SafetyStock = rec.MinLevel * fraction

	if cfg.LeadTimeDays > 0 {
		z := distuv.Normal{Mu: 0, Sigma: 1}.Quantile(serviceLevel(cfg))
		statistical := z * usage.StdDev * math.Sqrt(cfg.LeadTimeDays/30)
		rec.SafetyStockStatistical = &statistical
	}

	rec.ReorderPoint = cfg.ReorderPoint
	rec.OrderQuantity = cfg.OrderQuantity
	if cfg.LeadTimeDays > 0 && cfg.OrderCost > 0 && cfg.HoldingCost > 0 {
		annualDemand := rec.OptimalLevel * 12
		dailyUsage := annualDemand / 365
		rec.ReorderPoint = dailyUsage*cfg.LeadTimeDays + rec.SafetyStock
		rec.OrderQuantity = math.Sqrt(2 * annualDemand * cfg.OrderCost / cfg.HoldingCost)
	}

	rec.VariabilityClass = ClassifyVariability(usage.CoefficientOfVariation)
	rec.HighVariability = rec.VariabilityClass == VariabilityHigh
	rec.UsageAdvice = usageAdvice(rec.VariabilityClass)
	if rec.HighVariability {
		rec.HighVariabilityDetails = highVariabilityDetails()
	}

	if usage.CorrelationWithProduction != nil {
		rec.CorrelationClass = ClassifyCorrelation(*usage.CorrelationWithProduction)
		rec.CorrelationAdvice = correlationAdvice(rec.CorrelationClass)
	}

	return rec
}

// ClassifyVariability maps a coefficient of variation (percent) onto the
// fixed thresholds: below 15 stable, 15-25 moderately variable, above 25
// highly variable.
func ClassifyVariability(cv float64) string {
	switch {
	case cv < 15:
		return VariabilityStable
	case cv < 25:
		return VariabilityModerate
	default:
		return VariabilityHigh
	}
}

// ClassifyCorrelation maps the production correlation onto the fixed
// thresholds: above 0.8 strong, 0.6-0.8 moderate, otherwise needs review.
func ClassifyCorrelation(corr float64) string {
	switch {
	case corr > 0.8:
		return CorrelationStrong
	case corr > 0.6:
		return CorrelationModerate
	default:
		return CorrelationNeedsReview
	}
}

func serviceLevel(cfg Config) float64 {
	if cfg.ServiceLevel > 0 && cfg.ServiceLevel < 1 {
		return cfg.ServiceLevel
	}
	return 0.95
}

func usageAdvice(class string) string {
	switch class {
	case VariabilityStable:
		return "consumption is stable; maintain the current usage pattern"
	case VariabilityModerate:
		return "consumption is moderately variable; evaluate the sources of variability"
	default:
		return "consumption is highly variable; standardize the consuming process"
	}
}

func correlationAdvice(class string) string {
	switch class {
	case CorrelationStrong:
		return "usage tracks production closely; monitor and maintain the correlation"
	case CorrelationModerate:
		return "usage tracks production reasonably; work on strengthening the correlation"
	default:
		return "usage does not track production; review the consumption pattern against production"
	}
}

func highVariabilityDetails() []string {
	return []string{
		"evaluate the galvanizing process parameters",
		"check coating thickness consistency",
		"optimize dipping temperature and duration",
		"standardize operating procedures",
	}
}
