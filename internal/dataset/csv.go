package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	verrors "auction-valuation/pkg/errors"
)

// Column headers expected in the sales export. Matching is case-insensitive
// and order-independent.
const (
	colYear      = "Year"
	colMake      = "Make"
	colModel     = "Model"
	colSeries    = "Series"
	colEngine    = "Engine Code"
	colRoof      = "Roof"
	colInterior  = "Interior"
	colRegion    = "Auction Region"
	colColor     = "Color"
	colGrade     = "Grade"
	colMileage   = "Mileage"
	colDrivable  = "Drivable"
	colSoldDate  = "Sold Date"
	colSalePrice = "Sale Price"
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"1/2/2006",
	"01/02/2006",
	time.RFC3339,
}

// LoadCSV reads the vehicle sales export at path and returns the normalized
// record set. The reference time drives the derived age field.
func LoadCSV(path string, now time.Time) ([]VehicleRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, verrors.NewDatasetLoad(fmt.Sprintf("open %s", path), err)
	}
	defer f.Close()

	records, err := ReadCSV(f, now)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ReadCSV parses a sales export from r. The first row must be a header row
// naming at least the required columns.
func ReadCSV(r io.Reader, now time.Time) ([]VehicleRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, verrors.NewDatasetLoad("read header row", err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{colYear, colMake, colModel, colSeries, colSoldDate, colSalePrice} {
		if _, ok := idx[strings.ToLower(required)]; !ok {
			return nil, verrors.NewDatasetLoad(fmt.Sprintf("missing required column %q", required), nil)
		}
	}

	field := func(row []string, name string) string {
		i, ok := idx[strings.ToLower(name)]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var records []VehicleRecord
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, verrors.NewDatasetLoad(fmt.Sprintf("line %d", line), err)
		}

		rec, err := parseRow(row, field)
		if err != nil {
			return nil, verrors.NewDatasetLoad(fmt.Sprintf("line %d", line), err)
		}
		records = append(records, Normalize(rec, now))
	}

	return records, nil
}

func parseRow(row []string, field func([]string, string) string) (VehicleRecord, error) {
	var rec VehicleRecord
	var err error

	if rec.Year, err = strconv.Atoi(field(row, colYear)); err != nil {
		return rec, fmt.Errorf("parse year: %w", err)
	}
	rec.Make = field(row, colMake)
	rec.Model = field(row, colModel)
	rec.Series = field(row, colSeries)
	rec.EngineCode = field(row, colEngine)
	rec.Roof = field(row, colRoof)
	rec.Interior = field(row, colInterior)
	rec.AuctionRegion = field(row, colRegion)
	rec.Color = field(row, colColor)
	rec.Drivable = field(row, colDrivable)

	if raw := field(row, colGrade); raw != "" {
		if rec.Grade, err = strconv.ParseFloat(raw, 64); err != nil {
			return rec, fmt.Errorf("parse grade: %w", err)
		}
	}
	if raw := field(row, colMileage); raw != "" {
		if rec.Mileage, err = strconv.Atoi(raw); err != nil {
			return rec, fmt.Errorf("parse mileage: %w", err)
		}
	}

	if rec.SoldDate, err = parseDate(field(row, colSoldDate)); err != nil {
		return rec, err
	}

	if rec.SalePrice, err = decimal.NewFromString(strings.ReplaceAll(field(row, colSalePrice), ",", "")); err != nil {
		return rec, fmt.Errorf("parse sale price: %w", err)
	}

	return rec, nil
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse sold date %q: unrecognized layout", raw)
}
