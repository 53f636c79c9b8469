// Package main provides the aucval CLI for developers: estimates, VIN
// decodes, comparables queries, catalogue inspection, and ClickHouse ingest
// from a terminal.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"auction-valuation/db/clickhouse"
	"auction-valuation/internal/app"
	"auction-valuation/internal/assemble"
	"auction-valuation/internal/comparables"
	"auction-valuation/internal/config"
	"auction-valuation/internal/dataset"
	"auction-valuation/internal/vin"
)

// Exit codes for CI/scripting integration
const (
	ExitSuccess        = 0
	ExitIncompleteSpec = 1
	ExitLoadError      = 10
	ExitEstimateError  = 11
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cliApp := &cli.App{
		Name:  "aucval",
		Usage: "Wholesale auction valuation toolkit",
		Commands: []*cli.Command{
			estimateCommand(),
			vinCommand(),
			comparablesCommand(),
			catalogueCommand(),
			ingestCommand(),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if code, ok := err.(cli.ExitCoder); ok {
		return code.ExitCode()
	}
	return ExitEstimateError
}

func loadCore(ctx context.Context) (*app.Core, *config.Config, error) {
	cfg, err := config.Read()
	if err != nil {
		return nil, nil, cli.Exit(err.Error(), ExitLoadError)
	}
	core, err := app.Load(ctx, cfg)
	if err != nil {
		return nil, nil, cli.Exit(err.Error(), ExitLoadError)
	}
	return core, cfg, nil
}

func estimateCommand() *cli.Command {
	return &cli.Command{
		Name:  "estimate",
		Usage: "Estimate the wholesale value of a vehicle",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "year", Usage: "Model year"},
			&cli.StringFlag{Name: "make", Usage: "Make"},
			&cli.StringFlag{Name: "model", Usage: "Model"},
			&cli.StringFlag{Name: "series", Usage: "Series/trim"},
			&cli.StringFlag{Name: "engine", Usage: "Engine code"},
			&cli.StringFlag{Name: "roof", Usage: "Roof type"},
			&cli.StringFlag{Name: "interior", Usage: "Interior type"},
			&cli.Float64Flag{Name: "grade", Value: 3.0, Usage: "Condition grade 1.0-5.0"},
			&cli.IntFlag{Name: "mileage", Usage: "Odometer miles"},
			&cli.StringFlag{Name: "drivable", Value: "Yes", Usage: "Drivable: Yes or No"},
			&cli.StringFlag{Name: "region", Usage: "Auction region"},
			&cli.StringFlag{Name: "color", Usage: "Exterior color"},
			&cli.IntFlag{Name: "sale-year", Usage: "Sale year (default: current year)"},
			&cli.StringFlag{Name: "vin", Usage: "VIN; when decodable it overrides year/make/model/series"},
			&cli.BoolFlag{Name: "json", Usage: "Emit JSON instead of text"},
		},
		Action: runEstimate,
	}
}

func runEstimate(c *cli.Context) error {
	core, _, err := loadCore(c.Context)
	if err != nil {
		return err
	}

	var decoded *vin.DecodedVin
	if vinNumber := c.String("vin"); vinNumber != "" {
		decoded, err = core.Decoder.Decode(c.Context, vinNumber)
		if err != nil {
			log.Warn().Err(err).Msg("VIN decode failed, using manual attributes")
		}
	}

	features, err := core.Assembler.Assemble(assemble.Manual{
		Year:       c.Int("year"),
		Make:       c.String("make"),
		Model:      c.String("model"),
		Series:     c.String("series"),
		EngineCode: c.String("engine"),
		Roof:       c.String("roof"),
		Interior:   c.String("interior"),
		Grade:      c.Float64("grade"),
		Mileage:    c.Int("mileage"),
		Drivable:   c.String("drivable"),
		Region:     c.String("region"),
		Color:      c.String("color"),
		SaleYear:   c.Int("sale-year"),
	}, decoded)
	if err != nil {
		return cli.Exit(err.Error(), ExitIncompleteSpec)
	}

	price, err := core.Engine.Estimate(features)
	if err != nil {
		return cli.Exit(err.Error(), ExitEstimateError)
	}

	if c.Bool("json") {
		return json.NewEncoder(os.Stdout).Encode(map[string]any{
			"estimated_value": price,
			"features":        features,
		})
	}
	fmt.Printf("Estimated wholesale value: $%s\n", price.StringFixed(2))
	return nil
}

func vinCommand() *cli.Command {
	return &cli.Command{
		Name:      "vin",
		Usage:     "Decode a VIN through the vPIC service",
		ArgsUsage: "<vin>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("usage: aucval vin <vin>", ExitLoadError)
			}
			cfg, err := config.Read()
			if err != nil {
				return cli.Exit(err.Error(), ExitLoadError)
			}
			decoder := vin.NewDecoder(cfg.Vin.BaseURL, cfg.Vin.Timeout)
			decoded, err := decoder.Decode(c.Context, c.Args().First())
			if err != nil {
				return cli.Exit(err.Error(), ExitEstimateError)
			}
			return json.NewEncoder(os.Stdout).Encode(decoded)
		},
	}
}

func comparablesCommand() *cli.Command {
	return &cli.Command{
		Name:  "comparables",
		Usage: "Query recent comparable sales",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "make", Required: true},
			&cli.StringFlag{Name: "model", Required: true},
			&cli.StringFlag{Name: "series", Required: true},
			&cli.IntFlag{Name: "year-low"},
			&cli.IntFlag{Name: "year-high"},
			&cli.IntFlag{Name: "lookback", Usage: "Lookback window in days (default from config)"},
			&cli.IntFlag{Name: "limit", Usage: "Recent transactions to show (default from config)"},
		},
		Action: func(c *cli.Context) error {
			core, cfg, err := loadCore(c.Context)
			if err != nil {
				return err
			}

			lookback := c.Int("lookback")
			if lookback <= 0 {
				lookback = cfg.Query.LookbackDays
			}
			limit := c.Int("limit")
			if limit <= 0 {
				limit = cfg.Query.RecentLimit
			}

			result := comparables.Query(core.Records, comparables.Params{
				Make:     c.String("make"),
				Model:    c.String("model"),
				Series:   c.String("series"),
				YearLow:  c.Int("year-low"),
				YearHigh: c.Int("year-high"),
				Since:    comparables.SinceLookback(time.Now(), lookback),
				Limit:    limit,
			})
			if result.Empty() {
				fmt.Println("No historical sales match this configuration within the lookback window.")
				return nil
			}
			return json.NewEncoder(os.Stdout).Encode(result)
		},
	}
}

func catalogueCommand() *cli.Command {
	return &cli.Command{
		Name:  "catalogue",
		Usage: "Inspect the attribute vocabularies",
		Subcommands: []*cli.Command{
			{
				Name: "makes",
				Action: func(c *cli.Context) error {
					core, _, err := loadCore(c.Context)
					if err != nil {
						return err
					}
					return json.NewEncoder(os.Stdout).Encode(core.Catalogue.Makes())
				},
			},
			{
				Name: "models",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "make", Required: true},
				},
				Action: func(c *cli.Context) error {
					core, _, err := loadCore(c.Context)
					if err != nil {
						return err
					}
					return json.NewEncoder(os.Stdout).Encode(core.Catalogue.Models(c.String("make")))
				},
			},
			{
				Name: "options",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "make", Required: true},
					&cli.StringFlag{Name: "model", Required: true},
					&cli.StringFlag{Name: "series", Required: true},
				},
				Action: func(c *cli.Context) error {
					core, _, err := loadCore(c.Context)
					if err != nil {
						return err
					}
					opts, widened := core.Catalogue.OptionsWidened(
						c.String("make"), c.String("model"), c.String("series"))
					return json.NewEncoder(os.Stdout).Encode(map[string]any{
						"options": opts,
						"widened": widened,
					})
				},
			},
		},
	}
}

func ingestCommand() *cli.Command {
	return &cli.Command{
		Name:  "ingest",
		Usage: "Load a CSV sales export into the ClickHouse history store",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "csv", Required: true, Usage: "Path to the sales export"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Read()
			if err != nil {
				return cli.Exit(err.Error(), ExitLoadError)
			}

			records, err := dataset.LoadCSV(c.String("csv"), time.Now())
			if err != nil {
				return cli.Exit(err.Error(), ExitLoadError)
			}

			store, err := clickhouse.NewStore(&clickhouse.Config{
				Host:     cfg.Data.ClickHouse.Host,
				Port:     cfg.Data.ClickHouse.Port,
				Database: cfg.Data.ClickHouse.Database,
				Username: cfg.Data.ClickHouse.Username,
				Password: cfg.Data.ClickHouse.Password,
				Debug:    cfg.Data.ClickHouse.Debug,
			})
			if err != nil {
				return cli.Exit(err.Error(), ExitLoadError)
			}
			defer store.Close()

			if err := store.EnsureSchema(c.Context); err != nil {
				return cli.Exit(err.Error(), ExitLoadError)
			}
			if err := store.InsertRecords(c.Context, records); err != nil {
				return cli.Exit(err.Error(), ExitLoadError)
			}

			log.Info().Int("records", len(records)).Msg("Ingest complete")
			return nil
		},
	}
}
