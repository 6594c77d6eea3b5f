package cache

import (
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmmydply/bpizink-forecast-2025/internal/config"
	"github.com/dmmydply/bpizink-forecast-2025/internal/domain"
	"github.com/dmmydply/bpizink-forecast-2025/internal/forecast"
)

const (
	forecastKeyPrefix     = "forecast:sarima"
	forecastScanBatchSize = 100
)

// ForecastCache stores fitted forecast results keyed by the exact fit
// inputs: fitting twice with the same series and options is deterministic,
// so a hit is always safe to reuse. The last historical period is part of
// the key because the cached points carry period labels.
type ForecastCache interface {
	Get(ctx context.Context, series []float64, lastPeriod domain.Period, opts forecast.Options) ([]domain.ForecastPoint, bool, error)
	Set(ctx context.Context, series []float64, lastPeriod domain.Period, opts forecast.Options, points []domain.ForecastPoint) error
	InvalidateAll(ctx context.Context) error
}

type redisForecastCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopForecastCache struct{}

func NewForecastCache(cfg config.CacheConfig) (ForecastCache, error) {
	if !cfg.Enabled {
		return &noopForecastCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisForecastCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopForecastCache() ForecastCache {
	return &noopForecastCache{}
}

func (c *redisForecastCache) Get(ctx context.Context, series []float64, lastPeriod domain.Period, opts forecast.Options) ([]domain.ForecastPoint, bool, error) {
	key := buildForecastKey(series, lastPeriod, opts)

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var points []domain.ForecastPoint
	if err := json.Unmarshal(payload, &points); err != nil {
		return nil, false, fmt.Errorf("decode forecast cache: %w", err)
	}

	return points, true, nil
}

func (c *redisForecastCache) Set(ctx context.Context, series []float64, lastPeriod domain.Period, opts forecast.Options, points []domain.ForecastPoint) error {
	key := buildForecastKey(series, lastPeriod, opts)
	payload, err := json.Marshal(points)
	if err != nil {
		return fmt.Errorf("encode forecast cache: %w", err)
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisForecastCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, forecastKeyPrefix, forecastScanBatchSize)
}

func (n *noopForecastCache) Get(ctx context.Context, series []float64, lastPeriod domain.Period, opts forecast.Options) ([]domain.ForecastPoint, bool, error) {
	return nil, false, nil
}

func (n *noopForecastCache) Set(ctx context.Context, series []float64, lastPeriod domain.Period, opts forecast.Options, points []domain.ForecastPoint) error {
	return nil
}

func (n *noopForecastCache) InvalidateAll(ctx context.Context) error {
	return nil
}

// buildForecastKey fingerprints the series together with the model order,
// horizon and confidence level so that no two distinct fits share an entry.
func buildForecastKey(series []float64, lastPeriod domain.Period, opts forecast.Options) string {
	h := sha1.New()

	buf := make([]byte, 8)
	for _, v := range series {
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
		h.Write(buf)
	}

	meta := fmt.Sprintf("|p=%s|o=%d,%d,%d|s=%d,%d,%d,%d|h=%d|c=%.6f",
		lastPeriod,
		opts.Order.P, opts.Order.D, opts.Order.Q,
		opts.Seasonal.P, opts.Seasonal.D, opts.Seasonal.Q, opts.Seasonal.Period,
		opts.Horizon, opts.Confidence)
	h.Write([]byte(meta))

	return fmt.Sprintf("%s:%s", forecastKeyPrefix, hex.EncodeToString(h.Sum(nil)))
}
