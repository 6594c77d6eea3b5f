package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dmmydply/bpizink-forecast-2025/internal/config"
	"github.com/dmmydply/bpizink-forecast-2025/internal/domain"
	"github.com/dmmydply/bpizink-forecast-2025/internal/forecast"
)

func TestBuildForecastKey(t *testing.T) {
	series := []float64{100, 200, 300}
	last := domain.Period{Year: 2023, Month: time.December}
	opts := forecast.DefaultOptions()

	base := buildForecastKey(series, last, opts)
	if !strings.HasPrefix(base, forecastKeyPrefix+":") {
		t.Errorf("key %q lacks the %q prefix", base, forecastKeyPrefix)
	}

	if again := buildForecastKey(series, last, opts); again != base {
		t.Error("identical inputs must produce identical keys")
	}

	variants := []struct {
		name string
		key  string
	}{
		{"different series", buildForecastKey([]float64{100, 200, 301}, last, opts)},
		{"different last period", buildForecastKey(series, domain.Period{Year: 2024, Month: time.January}, opts)},
		{"different horizon", func() string {
			o := opts
			o.Horizon = 6
			return buildForecastKey(series, last, o)
		}()},
		{"different confidence", func() string {
			o := opts
			o.Confidence = 0.9
			return buildForecastKey(series, last, o)
		}()},
		{"different seasonal period", func() string {
			o := opts
			o.Seasonal.Period = 4
			return buildForecastKey(series, last, o)
		}()},
	}
	for _, v := range variants {
		if v.key == base {
			t.Errorf("%s must change the key", v.name)
		}
	}
}

func TestNoopForecastCache(t *testing.T) {
	c := NewNoopForecastCache()
	ctx := context.Background()
	last := domain.Period{Year: 2023, Month: time.December}
	opts := forecast.DefaultOptions()
	series := []float64{1, 2, 3}

	if err := c.Set(ctx, series, last, opts, []domain.ForecastPoint{{}}); err != nil {
		t.Fatalf("noop Set failed: %v", err)
	}
	points, ok, err := c.Get(ctx, series, last, opts)
	if err != nil || ok || points != nil {
		t.Errorf("noop Get = (%v, %v, %v), want miss", points, ok, err)
	}
	if err := c.InvalidateAll(ctx); err != nil {
		t.Fatalf("noop InvalidateAll failed: %v", err)
	}
}

func TestNewForecastCache_Disabled(t *testing.T) {
	c, err := NewForecastCache(config.CacheConfig{Enabled: false})
	if err != nil {
		t.Fatalf("NewForecastCache failed: %v", err)
	}
	if _, ok := c.(*noopForecastCache); !ok {
		t.Errorf("disabled cache should be the noop implementation, got %T", c)
	}
}
