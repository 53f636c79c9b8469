// Package app wires configuration into the core components shared by the
// server and CLI entrypoints.
package app

import (
	"context"
	"fmt"

	"auction-valuation/db/clickhouse"
	"auction-valuation/internal/assemble"
	"auction-valuation/internal/catalogue"
	"auction-valuation/internal/config"
	"auction-valuation/internal/dataset"
	"auction-valuation/internal/valuation"
	"auction-valuation/internal/vin"
)

// Core holds the process-lifetime components: the read-only record set and
// catalogue, the memoizing valuation engine, the VIN decoder, and the
// assembler.
type Core struct {
	Records   []dataset.VehicleRecord
	Catalogue *catalogue.Index
	Engine    *valuation.Engine
	Decoder   *vin.Decoder
	Assembler *assemble.Assembler
}

// NewSource selects the dataset source from configuration.
func NewSource(cfg *config.Config) (dataset.Source, error) {
	switch cfg.Data.Source {
	case "csv", "":
		return dataset.CSVSource{Path: cfg.Data.CSVPath}, nil
	case "postgres":
		return dataset.NewPostgresSource(cfg.Data.PostgresDSN)
	case "clickhouse":
		return clickhouse.NewStore(&clickhouse.Config{
			Host:     cfg.Data.ClickHouse.Host,
			Port:     cfg.Data.ClickHouse.Port,
			Database: cfg.Data.ClickHouse.Database,
			Username: cfg.Data.ClickHouse.Username,
			Password: cfg.Data.ClickHouse.Password,
			Debug:    cfg.Data.ClickHouse.Debug,
		})
	default:
		return nil, fmt.Errorf("unknown data source %q", cfg.Data.Source)
	}
}

// Load builds the core from configuration: records and pipeline are loaded
// once, then shared read-only for the process lifetime.
func Load(ctx context.Context, cfg *config.Config) (*Core, error) {
	source, err := NewSource(cfg)
	if err != nil {
		return nil, err
	}

	records, err := source.LoadRecords(ctx)
	if err != nil {
		return nil, err
	}

	pipeline, err := valuation.LoadPipeline(cfg.Data.PipelinePath)
	if err != nil {
		return nil, err
	}

	index := catalogue.Build(records)

	return &Core{
		Records:   records,
		Catalogue: index,
		Engine:    valuation.NewEngine(pipeline),
		Decoder:   vin.NewDecoder(cfg.Vin.BaseURL, cfg.Vin.Timeout),
		Assembler: &assemble.Assembler{
			Catalogue: index,
			Threshold: cfg.Query.MatchThreshold,
		},
	}, nil
}
