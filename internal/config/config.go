// internal/config/config.go
package config

import (
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Analysis AnalysisConfig
	Cache    CacheConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

// AnalysisConfig carries the tunable parameters of the analysis pipeline.
// ReorderPoint and OrderQuantity are illustrative constants used when the
// cost inputs needed for the ROP/EOQ formulas are not configured.
type AnalysisConfig struct {
	ForecastHorizon     int
	Confidence          float64
	MinObservations     int
	LeadTimeDays        float64
	OrderCost           float64
	HoldingCost         float64
	ServiceLevel        float64
	ReorderPoint        float64
	OrderQuantity       float64
	SafetyStockFraction float64
}

type CacheConfig struct {
	Enabled            bool
	RedisURL           string
	RedisHost          string
	RedisPort          string
	RedisPassword      string
	RedisDB            int
	ForecastTTLSeconds int
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		// Set default values
		viper.SetDefault("SERVER_PORT", "8080")
		viper.SetDefault("SERVER_MODE", "debug")
		viper.SetDefault("SERVER_READ_TIMEOUT", 30)
		viper.SetDefault("SERVER_WRITE_TIMEOUT", 30)
		viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
		viper.SetDefault("FORECAST_HORIZON", 12)
		viper.SetDefault("FORECAST_CONFIDENCE", 0.95)
		viper.SetDefault("FORECAST_MIN_OBS", 24)
		viper.SetDefault("ANALYSIS_LEAD_TIME_DAYS", 0.0)
		viper.SetDefault("ANALYSIS_ORDER_COST", 0.0)
		viper.SetDefault("ANALYSIS_HOLDING_COST", 0.0)
		viper.SetDefault("ANALYSIS_SERVICE_LEVEL", 0.95)
		viper.SetDefault("ANALYSIS_REORDER_POINT", 15000.0)
		viper.SetDefault("ANALYSIS_ORDER_QTY", 40000.0)
		viper.SetDefault("ANALYSIS_SAFETY_STOCK_FRACTION", 0.2)
		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_FORECAST_TTL_SECONDS", 300)

		// Read from environment variables
		viper.AutomaticEnv()

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			Analysis: AnalysisConfig{
				ForecastHorizon:     viper.GetInt("FORECAST_HORIZON"),
				Confidence:          viper.GetFloat64("FORECAST_CONFIDENCE"),
				MinObservations:     viper.GetInt("FORECAST_MIN_OBS"),
				LeadTimeDays:        viper.GetFloat64("ANALYSIS_LEAD_TIME_DAYS"),
				OrderCost:           viper.GetFloat64("ANALYSIS_ORDER_COST"),
				HoldingCost:         viper.GetFloat64("ANALYSIS_HOLDING_COST"),
				ServiceLevel:        viper.GetFloat64("ANALYSIS_SERVICE_LEVEL"),
				ReorderPoint:        viper.GetFloat64("ANALYSIS_REORDER_POINT"),
				OrderQuantity:       viper.GetFloat64("ANALYSIS_ORDER_QTY"),
				SafetyStockFraction: viper.GetFloat64("ANALYSIS_SAFETY_STOCK_FRACTION"),
			},
			Cache: CacheConfig{
				Enabled:            viper.GetBool("CACHE_ENABLED"),
				RedisURL:           viper.GetString("REDIS_URL"),
				RedisHost:          viper.GetString("REDIS_HOST"),
				RedisPort:          viper.GetString("REDIS_PORT"),
				RedisPassword:      viper.GetString("REDIS_PASSWORD"),
				RedisDB:            viper.GetInt("REDIS_DB"),
				ForecastTTLSeconds: viper.GetInt("CACHE_FORECAST_TTL_SECONDS"),
			},
		}
	})

	return instance
}
