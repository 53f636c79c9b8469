// Package comparables answers price-history queries over the historical
// record set: a daily median time series for charting and a ranked
// recent-transactions list.
package comparables

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"auction-valuation/internal/dataset"
)

// DefaultLookbackDays bounds the history window when the caller supplies no
// cutoff. The alternate configuration uses 120.
const DefaultLookbackDays = 60

// DefaultRecentLimit caps the recent-transactions list. The alternate
// configuration uses 10.
const DefaultRecentLimit = 5

// Params select the comparable set. Make, Model and Series match exactly
// (case-insensitive on input, catalogue values are upper-cased). YearLow and
// YearHigh bound the model year inclusively when non-zero. Since is the sold
// date cutoff; records strictly older are excluded.
type Params struct {
	Make     string
	Model    string
	Series   string
	YearLow  int
	YearHigh int
	Since    time.Time
	Limit    int
}

// Point is one charted day: the median sale price of that day's matches.
type Point struct {
	Date        time.Time       `json:"date"`
	MedianPrice decimal.Decimal `json:"median_price"`
}

// Result holds both query outputs. An empty result is a defined state, not an
// error: the caller shows a no-data message instead of charting.
type Result struct {
	TimeSeries []Point                 `json:"time_series"`
	Recent     []dataset.VehicleRecord `json:"recent_transactions"`
}

// Empty reports whether no historical rows matched the filter.
func (r Result) Empty() bool {
	return len(r.TimeSeries) == 0 && len(r.Recent) == 0
}

// SinceLookback returns the cutoff for a lookback window ending now.
func SinceLookback(now time.Time, days int) time.Time {
	if days <= 0 {
		days = DefaultLookbackDays
	}
	return now.AddDate(0, 0, -days)
}

// Query filters the record set and aggregates it. The time series is grouped
// by calendar day (UTC), one point per day with at least one sale, ordered by
// date ascending; an even match count on a day takes the mean of the two
// middle prices. Recent transactions are ordered by sold date descending and
// truncated to the limit.
func Query(records []dataset.VehicleRecord, p Params) Result {
	mk := strings.ToUpper(p.Make)
	md := strings.ToUpper(p.Model)
	sr := strings.ToUpper(p.Series)

	limit := p.Limit
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	var matched []dataset.VehicleRecord
	for _, rec := range records {
		if rec.Make != mk || rec.Model != md || rec.Series != sr {
			continue
		}
		if !p.Since.IsZero() && rec.SoldDate.Before(p.Since) {
			continue
		}
		if p.YearLow != 0 && rec.Year < p.YearLow {
			continue
		}
		if p.YearHigh != 0 && rec.Year > p.YearHigh {
			continue
		}
		matched = append(matched, rec)
	}

	if len(matched) == 0 {
		return Result{}
	}

	result := Result{TimeSeries: dailyMedians(matched)}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].SoldDate.After(matched[j].SoldDate)
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}
	result.Recent = matched

	return result
}

func dailyMedians(matched []dataset.VehicleRecord) []Point {
	byDay := make(map[time.Time][]decimal.Decimal)
	for _, rec := range matched {
		day := rec.SoldDate.Truncate(24 * time.Hour)
		byDay[day] = append(byDay[day], rec.SalePrice)
	}

	points := make([]Point, 0, len(byDay))
	for day, prices := range byDay {
		points = append(points, Point{Date: day, MedianPrice: median(prices)})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})
	return points
}

// median of a non-empty price list; even counts average the two middle values.
func median(prices []decimal.Decimal) decimal.Decimal {
	sort.Slice(prices, func(i, j int) bool {
		return prices[i].LessThan(prices[j])
	})
	n := len(prices)
	if n%2 == 1 {
		return prices[n/2]
	}
	return decimal.Avg(prices[n/2-1], prices[n/2])
}
