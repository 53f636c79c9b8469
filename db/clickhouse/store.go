// Package clickhouse provides the ClickHouse-backed sales-history store.
// Suited to large auction exports where the CSV path stops scaling.
package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/shopspring/decimal"

	"auction-valuation/internal/dataset"
	verrors "auction-valuation/pkg/errors"
)

// Config holds ClickHouse connection configuration.
type Config struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Debug    bool
}

// DefaultConfig returns default development configuration.
func DefaultConfig() *Config {
	return &Config{
		Host:     "localhost",
		Port:     9000,
		Database: "auction",
		Username: "default",
		Password: "",
		Debug:    false,
	}
}

// Store implements dataset.Source over ClickHouse.
type Store struct {
	conn clickhouse.Conn
	cfg  *Config
	now  func() time.Time
}

// NewStore connects to ClickHouse.
func NewStore(cfg *Config) (*Store, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Debug: cfg.Debug,
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	return &Store{conn: conn, cfg: cfg, now: time.Now}, nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

// Close releases the connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS vehicle_sales (
	year           Int32,
	make           String,
	model          String,
	series         String,
	engine_code    String,
	roof           String,
	interior       String,
	auction_region String,
	color          String,
	grade          Float64,
	mileage        Int64,
	drivable       String,
	sold_date      DateTime,
	sale_price     Decimal(18, 2)
)
ENGINE = MergeTree()
ORDER BY (make, model, series, sold_date)`

// EnsureSchema creates the vehicle_sales table if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if err := s.conn.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("create vehicle_sales: %w", err)
	}
	return nil
}

// InsertRecords batch-inserts sale records (used by the CLI ingest command).
func (s *Store) InsertRecords(ctx context.Context, records []dataset.VehicleRecord) error {
	batch, err := s.conn.PrepareBatch(ctx, "INSERT INTO vehicle_sales")
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for i, rec := range records {
		err := batch.Append(
			int32(rec.Year), rec.Make, rec.Model, rec.Series, rec.EngineCode,
			rec.Roof, rec.Interior, rec.AuctionRegion, rec.Color,
			rec.Grade, int64(rec.Mileage), rec.Drivable, rec.SoldDate, rec.SalePrice,
		)
		if err != nil {
			return fmt.Errorf("append record %d: %w", i, err)
		}
	}

	return batch.Send()
}

const selectSales = `
SELECT year, make, model, series, engine_code, roof, interior,
       auction_region, color, grade, mileage, drivable, sold_date, sale_price
FROM vehicle_sales
ORDER BY sold_date`

// LoadRecords reads the full history and normalizes it into the shared
// record set.
func (s *Store) LoadRecords(ctx context.Context) ([]dataset.VehicleRecord, error) {
	rows, err := s.conn.Query(ctx, selectSales)
	if err != nil {
		return nil, verrors.NewDatasetLoad("query vehicle_sales", err)
	}
	defer rows.Close()

	now := s.now()
	var records []dataset.VehicleRecord
	for rows.Next() {
		var (
			rec     dataset.VehicleRecord
			year    int32
			mileage int64
			price   decimal.Decimal
		)
		err := rows.Scan(
			&year, &rec.Make, &rec.Model, &rec.Series, &rec.EngineCode,
			&rec.Roof, &rec.Interior, &rec.AuctionRegion, &rec.Color,
			&rec.Grade, &mileage, &rec.Drivable, &rec.SoldDate, &price,
		)
		if err != nil {
			return nil, verrors.NewDatasetLoad(fmt.Sprintf("scan row %d", len(records)+1), err)
		}
		rec.Year = int(year)
		rec.Mileage = int(mileage)
		rec.SalePrice = price
		records = append(records, dataset.Normalize(rec, now))
	}
	if err := rows.Err(); err != nil {
		return nil, verrors.NewDatasetLoad("iterate vehicle_sales", err)
	}

	return records, nil
}
