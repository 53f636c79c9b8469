// Package dataset defines the historical vehicle-sales record set and its
// loaders. Records are loaded once at process start and treated as read-only
// shared data afterwards.
package dataset

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// VehicleRecord is one historical auction sale.
type VehicleRecord struct {
	Year          int             `json:"year"`
	Make          string          `json:"make"`
	Model         string          `json:"model"`
	Series        string          `json:"series"`
	EngineCode    string          `json:"engine_code"`
	Roof          string          `json:"roof"`
	Interior      string          `json:"interior"`
	AuctionRegion string          `json:"auction_region"`
	Color         string          `json:"color"`
	Grade         float64         `json:"grade"`
	Mileage       int             `json:"mileage"`
	Drivable      string          `json:"drivable"`
	SoldDate      time.Time       `json:"sold_date"`
	SalePrice     decimal.Decimal `json:"sale_price"`

	// Derived at load time.
	SaleMonth int `json:"sale_month"`
	Age       int `json:"age"`
}

// Normalize applies the load-time invariants: categorical fields are
// upper-cased and never nil (empty string stands in for missing values),
// Drivable is canonicalized to Yes/No, and the derived sale_month and age
// fields are computed against the given reference time. Idempotent.
func Normalize(rec VehicleRecord, now time.Time) VehicleRecord {
	rec.Make = canonical(rec.Make)
	rec.Model = canonical(rec.Model)
	rec.Series = canonical(rec.Series)
	rec.EngineCode = canonical(rec.EngineCode)
	rec.Roof = canonical(rec.Roof)
	rec.Interior = canonical(rec.Interior)
	rec.AuctionRegion = canonical(rec.AuctionRegion)
	rec.Color = canonical(rec.Color)
	rec.Drivable = canonicalDrivable(rec.Drivable)

	if !rec.SoldDate.IsZero() {
		rec.SaleMonth = int(rec.SoldDate.Month())
	}
	rec.Age = now.Year() - rec.Year

	return rec
}

// NormalizeAll normalizes a full record set in place.
func NormalizeAll(records []VehicleRecord, now time.Time) []VehicleRecord {
	for i := range records {
		records[i] = Normalize(records[i], now)
	}
	return records
}

func canonical(s string) string {
	s = strings.TrimSpace(s)
	// Spreadsheet exports render missing cells as literal "nan".
	if strings.EqualFold(s, "nan") || strings.EqualFold(s, "null") {
		return ""
	}
	return strings.ToUpper(s)
}

func canonicalDrivable(s string) string {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "YES", "Y", "TRUE", "1":
		return "Yes"
	case "NO", "N", "FALSE", "0":
		return "No"
	default:
		return ""
	}
}
