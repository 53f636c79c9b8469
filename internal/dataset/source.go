package dataset

import (
	"context"
	"time"
)

// Source yields the full historical record set. Implementations: the CSV
// export, the Postgres mirror, and the ClickHouse store in db/clickhouse.
type Source interface {
	LoadRecords(ctx context.Context) ([]VehicleRecord, error)
}

// CSVSource adapts a sales export file to the Source interface.
type CSVSource struct {
	Path string
	Now  func() time.Time
}

func (s CSVSource) LoadRecords(ctx context.Context) ([]VehicleRecord, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return LoadCSV(s.Path, now())
}
