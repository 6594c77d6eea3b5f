package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dmmydply/bpizink-forecast-2025/internal/advisor"
	"github.com/dmmydply/bpizink-forecast-2025/internal/aggregate"
	"github.com/dmmydply/bpizink-forecast-2025/internal/cache"
	"github.com/dmmydply/bpizink-forecast-2025/internal/config"
	"github.com/dmmydply/bpizink-forecast-2025/internal/domain"
	"github.com/dmmydply/bpizink-forecast-2025/internal/forecast"
	"github.com/dmmydply/bpizink-forecast-2025/internal/stats"
)

// AnalysisRequest is one self-contained analysis: a mutation ledger and an
// optional production ledger, both already parsed and date-normalized.
type AnalysisRequest struct {
	Ledger     []domain.LedgerRecord     `json:"ledger"`
	Production []domain.ProductionRecord `json:"production,omitempty"`
}

// AnalysisService runs the aggregate -> diagnostics -> forecast -> advise
// pipeline for independent requests. It holds no per-request state and is
// safe for concurrent use.
type AnalysisService struct {
	engine      *forecast.Engine
	cache       cache.ForecastCache
	forecastOpt forecast.Options
	advisorCfg  advisor.Config
}

func NewAnalysisService(engine *forecast.Engine, cacheImpl cache.ForecastCache, cfg config.AnalysisConfig) *AnalysisService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopForecastCache()
	}

	opts := forecast.DefaultOptions()
	if cfg.ForecastHorizon > 0 {
		opts.Horizon = cfg.ForecastHorizon
	}
	if cfg.Confidence > 0 && cfg.Confidence < 1 {
		opts.Confidence = cfg.Confidence
	}
	if cfg.MinObservations > 0 {
		opts.MinObservations = cfg.MinObservations
	}

	return &AnalysisService{
		engine:      engine,
		cache:       cacheImpl,
		forecastOpt: opts,
		advisorCfg: advisor.Config{
			LeadTimeDays:        cfg.LeadTimeDays,
			OrderCost:           cfg.OrderCost,
			HoldingCost:         cfg.HoldingCost,
			ServiceLevel:        cfg.ServiceLevel,
			ReorderPoint:        cfg.ReorderPoint,
			OrderQuantity:       cfg.OrderQuantity,
			SafetyStockFraction: cfg.SafetyStockFraction,
		},
	}
}

// Run executes the full pipeline. Any stage failure aborts the run; the
// caller never receives a report built from partial data.
func (s *AnalysisService) Run(ctx context.Context, req AnalysisRequest) (*domain.AnalysisReport, error) {
	points, err := aggregate.Aggregate(req.Ledger, req.Production)
	if err != nil {
		return nil, err
	}

	outflow := aggregate.OutflowSeries(points)

	var outflowStats domain.UsageStatistics
	hasProduction := len(req.Production) > 0
	if hasProduction {
		production := aggregate.ProductionSeries(points)
		outflowStats, err = stats.DescribeWith(outflow, production)
	} else {
		outflowStats, err = stats.Describe(outflow)
	}
	if err != nil {
		return nil, err
	}
	outflowStats.SeasonalProfile = stats.SeasonalProfile(points, func(p domain.MonthlyPoint) float64 {
		return p.OutflowTotal
	})

	var ratioStats *domain.UsageStatistics
	if hasProduction {
		ratios, err := stats.UsageRatio(points)
		if err != nil {
			return nil, err
		}
		described, err := stats.Describe(ratios)
		if err != nil {
			return nil, err
		}
		described.SeasonalProfile = stats.SeasonalProfile(points, func(p domain.MonthlyPoint) float64 {
			return p.OutflowTotal / *p.ProductionTotal * 100
		})
		ratioStats = &described
	}

	lastPeriod := points[len(points)-1].Period
	forecastPoints, err := s.forecastWithCache(ctx, outflow, lastPeriod)
	if err != nil {
		return nil, err
	}

	recommendation := advisor.Advise(forecastPoints, outflowStats, s.advisorCfg)

	return &domain.AnalysisReport{
		Overview:        aggregate.Overview(req.Ledger),
		MonthlyPoints:   points,
		OutflowStats:    outflowStats,
		UsageRatioStats: ratioStats,
		Forecast:        forecastPoints,
		Recommendation:  recommendation,
		GeneratedAt:     time.Now().UTC(),
	}, nil
}

// forecastWithCache consults the keyed cache before re-fitting. Cache
// failures are logged and ignored; the fit itself is the source of truth.
func (s *AnalysisService) forecastWithCache(ctx context.Context, series []float64, lastPeriod domain.Period) ([]domain.ForecastPoint, error) {
	if points, ok, err := s.cache.Get(ctx, series, lastPeriod, s.forecastOpt); err == nil && ok {
		return points, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("analysis: forecast cache get failed")
	}

	points, err := s.engine.Forecast(series, lastPeriod, s.forecastOpt)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, series, lastPeriod, s.forecastOpt, points); err != nil {
		log.Warn().Err(err).Msg("analysis: forecast cache set failed")
	}

	return points, nil
}
