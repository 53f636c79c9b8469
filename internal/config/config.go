// Package config reads process configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	Env    string `env:"ENV" envDefault:"production"`
	Server ServerConfig
	Data   DataConfig
	Vin    VinConfig
	Query  QueryConfig
}

type ServerConfig struct {
	Port string `env:"PORT" envDefault:"8080"`
}

// DataConfig selects the dataset source and the pipeline artifact.
type DataConfig struct {
	// Source is one of csv, postgres, clickhouse.
	Source       string `env:"DATA_SOURCE" envDefault:"csv"`
	CSVPath      string `env:"DATA_CSV_PATH" envDefault:"vehicle_sales.csv"`
	PostgresDSN  string `env:"DATA_POSTGRES_DSN"`
	PipelinePath string `env:"PIPELINE_PATH" envDefault:"model_pipeline.json"`

	ClickHouse ClickHouseConfig
}

type ClickHouseConfig struct {
	Host     string `env:"CLICKHOUSE_HOST" envDefault:"localhost"`
	Port     int    `env:"CLICKHOUSE_PORT" envDefault:"9000"`
	Database string `env:"CLICKHOUSE_DATABASE" envDefault:"auction"`
	Username string `env:"CLICKHOUSE_USERNAME" envDefault:"default"`
	Password string `env:"CLICKHOUSE_PASSWORD"`
	Debug    bool   `env:"CLICKHOUSE_DEBUG" envDefault:"false"`
}

type VinConfig struct {
	BaseURL string        `env:"VIN_BASE_URL" envDefault:"https://vpic.nhtsa.dot.gov/api"`
	Timeout time.Duration `env:"VIN_TIMEOUT" envDefault:"5s"`
}

type QueryConfig struct {
	LookbackDays   int     `env:"COMPARABLES_LOOKBACK_DAYS" envDefault:"60"`
	RecentLimit    int     `env:"COMPARABLES_RECENT_LIMIT" envDefault:"5"`
	MatchThreshold float64 `env:"ENGINE_MATCH_THRESHOLD" envDefault:"0.70"`
}

// Read loads .env (if present) and parses the environment.
func Read() (*Config, error) {
	_ = godotenv.Load()

	config := &Config{}
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	return config, nil
}
