package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/neexbeast/skywatch/internal/readings"
)

var (
	// ErrInvalidTable is returned for table names outside the allowlist.
	ErrInvalidTable = errors.New("invalid table")
	// ErrNotFound is returned when a single-row lookup matches nothing.
	ErrNotFound = errors.New("record not found")
)

// Table is an allowlisted readings table. The zero value is not valid.
type Table struct {
	name        string
	valueColumn string
}

var (
	TableAirQuality = Table{name: "user_data_air_quality", valueColumn: "air_quality"}
	TableUV         = Table{name: "user_data_uv", valueColumn: "uv_index"}
)

var allowlist = map[string]Table{
	TableAirQuality.name: TableAirQuality,
	TableUV.name:         TableUV,
}

// Name returns the table's SQL name.
func (t Table) Name() string { return t.name }

// ValueColumn returns the column holding the metric value.
func (t Table) ValueColumn() string { return t.valueColumn }

// ParseTable resolves a caller-supplied name against the allowlist.
// Matching is case-insensitive; anything else fails with ErrInvalidTable.
func ParseTable(name string) (Table, error) {
	t, ok := allowlist[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Table{}, fmt.Errorf("%w: %q", ErrInvalidTable, name)
	}
	return t, nil
}

// TableFor returns the table that stores readings for metric.
func TableFor(metric readings.Metric) (Table, error) {
	switch metric {
	case readings.MetricAirQuality:
		return TableAirQuality, nil
	case readings.MetricUV:
		return TableUV, nil
	default:
		return Table{}, fmt.Errorf("%w: no table for metric %q", ErrInvalidTable, metric)
	}
}

// Tables lists the allowlist in a stable order.
func Tables() []Table {
	return []Table{TableAirQuality, TableUV}
}

// queries holds the SQL for one table. It is built once from constant
// identifiers; request values are only ever bound as parameters.
type queries struct {
	listAll      string
	getByID      string
	latestByCity string
	latestByGeo  string
	latest       string
}

var tableQueries = func() map[Table]queries {
	m := make(map[Table]queries, len(allowlist))
	for _, t := range Tables() {
		ident := pgx.Identifier{t.name}.Sanitize()
		m[t] = queries{
			listAll: `SELECT * FROM ` + ident,
			getByID: `SELECT * FROM ` + ident + ` WHERE id::text = $1`,
			latestByCity: `SELECT * FROM ` + ident + `
		WHERE LOWER(city) = LOWER($1)
		ORDER BY recorded_at DESC
		LIMIT 1`,
			latestByGeo: `SELECT * FROM ` + ident + `
		ORDER BY (latitude - $1) * (latitude - $1) + (longitude - $2) * (longitude - $2) ASC,
		         recorded_at DESC
		LIMIT 1`,
			latest: `SELECT * FROM ` + ident + `
		ORDER BY recorded_at DESC
		LIMIT 1`,
		}
	}
	return m
}()
