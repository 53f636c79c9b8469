package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	verrors "auction-valuation/pkg/errors"
)

// PostgresSource loads the sales record set from a Postgres mirror of the
// auction export (table vehicle_sales).
type PostgresSource struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgresSource opens a connection pool for the given DSN.
func NewPostgresSource(dsn string) (*PostgresSource, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, verrors.NewDatasetLoad("open postgres", err)
	}
	return &PostgresSource{db: db, now: time.Now}, nil
}

// Close releases the connection pool.
func (s *PostgresSource) Close() error {
	return s.db.Close()
}

const selectSales = `
SELECT year, make, model, series, engine_code, roof, interior,
       auction_region, color, grade, mileage, drivable, sold_date, sale_price
FROM vehicle_sales
ORDER BY sold_date`

// LoadRecords reads and normalizes every row of vehicle_sales.
func (s *PostgresSource) LoadRecords(ctx context.Context) ([]VehicleRecord, error) {
	rows, err := s.db.QueryContext(ctx, selectSales)
	if err != nil {
		return nil, verrors.NewDatasetLoad("query vehicle_sales", err)
	}
	defer rows.Close()

	now := s.now()
	var records []VehicleRecord
	for rows.Next() {
		var (
			rec   VehicleRecord
			price string
		)
		err := rows.Scan(
			&rec.Year, &rec.Make, &rec.Model, &rec.Series, &rec.EngineCode,
			&rec.Roof, &rec.Interior, &rec.AuctionRegion, &rec.Color,
			&rec.Grade, &rec.Mileage, &rec.Drivable, &rec.SoldDate, &price,
		)
		if err != nil {
			return nil, verrors.NewDatasetLoad(fmt.Sprintf("scan row %d", len(records)+1), err)
		}
		if rec.SalePrice, err = decimal.NewFromString(price); err != nil {
			return nil, verrors.NewDatasetLoad(fmt.Sprintf("parse sale price row %d", len(records)+1), err)
		}
		records = append(records, Normalize(rec, now))
	}
	if err := rows.Err(); err != nil {
		return nil, verrors.NewDatasetLoad("iterate vehicle_sales", err)
	}

	return records, nil
}
