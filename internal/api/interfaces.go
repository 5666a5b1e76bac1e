package api

import (
	"context"

	"github.com/neexbeast/skywatch/internal/dashboard"
	"github.com/neexbeast/skywatch/internal/readings"
	"github.com/neexbeast/skywatch/internal/storage"
)

// ReadingStore defines the storage operations needed by the storage handlers.
type ReadingStore interface {
	ListAll(ctx context.Context, t storage.Table) ([]storage.Row, error)
	GetByID(ctx context.Context, t storage.Table, id string) (storage.Row, error)
	Latest(ctx context.Context, metric readings.Metric, loc readings.Location) (storage.Row, error)
}

// Combiner defines the aggregation needed by the aggregator handlers.
type Combiner interface {
	Combine(ctx context.Context, loc readings.Location) (readings.Snapshot, error)
}

// ReportBuilder defines the report generation needed by the dashboard handlers.
type ReportBuilder interface {
	BuildReport(ctx context.Context, loc readings.Location) (dashboard.Report, error)
}

type dbPinger interface {
	Ping(ctx context.Context) error
}
