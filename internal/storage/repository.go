package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/neexbeast/skywatch/internal/readings"
)

// Row maps column names to their decoded values.
type Row map[string]any

// Querier abstracts the subset of pgxpool.Pool used by Store.
// This allows injection of a mock in tests.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Store provides read-only access to the readings tables.
type Store struct {
	q Querier
}

// NewStore constructs a Store backed by the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{q: pool}
}

// NewStoreWithQuerier constructs a Store with a custom Querier (for tests).
func NewStoreWithQuerier(q Querier) *Store {
	return &Store{q: q}
}

// ListAll returns every row of t in store order. An empty table yields an
// empty, non-nil slice.
func (s *Store) ListAll(ctx context.Context, t Table) ([]Row, error) {
	qs, err := queriesFor(t)
	if err != nil {
		return nil, err
	}

	ctx, span := startSpan(ctx, "Store.ListAll", t)
	defer span.End()

	rows, err := s.collect(ctx, qs.listAll)
	if err != nil {
		fail(span, err)
		return nil, fmt.Errorf("listing %s: %w", t.name, err)
	}
	span.SetAttributes(attribute.Int("rows.count", len(rows)))
	return rows, nil
}

// GetByID returns the row of t whose id equals id, or ErrNotFound.
func (s *Store) GetByID(ctx context.Context, t Table, id string) (Row, error) {
	qs, err := queriesFor(t)
	if err != nil {
		return nil, err
	}

	ctx, span := startSpan(ctx, "Store.GetByID", t)
	defer span.End()

	rows, err := s.collect(ctx, qs.getByID, id)
	if err != nil {
		fail(span, err)
		return nil, fmt.Errorf("querying %s by id %s: %w", t.name, id, err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0], nil
}

// Latest returns the freshest reading of metric for loc, or ErrNotFound.
// A city selects by case-insensitive name; otherwise coordinates select the
// nearest row by squared distance. With neither, the newest row wins.
func (s *Store) Latest(ctx context.Context, metric readings.Metric, loc readings.Location) (Row, error) {
	t, err := TableFor(metric)
	if err != nil {
		return nil, err
	}
	qs := tableQueries[t]

	ctx, span := startSpan(ctx, "Store.Latest", t)
	defer span.End()

	var (
		sql  string
		args []any
	)
	switch {
	case strings.TrimSpace(loc.City) != "":
		sql, args = qs.latestByCity, []any{strings.TrimSpace(loc.City)}
		span.SetAttributes(attribute.String("location.city", loc.City))
	case loc.HasCoordinates():
		sql, args = qs.latestByGeo, []any{*loc.Lat, *loc.Lon}
		span.SetAttributes(attribute.Float64("location.lat", *loc.Lat), attribute.Float64("location.lon", *loc.Lon))
	default:
		sql = qs.latest
	}

	rows, err := s.collect(ctx, sql, args...)
	if err != nil {
		fail(span, err)
		return nil, fmt.Errorf("querying latest %s: %w", metric.Label(), err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0], nil
}

// collect runs sql and decodes every row into a column-name map.
func (s *Store) collect(ctx context.Context, sql string, args ...any) ([]Row, error) {
	rows, err := s.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]Row, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		fields := rows.FieldDescriptions()
		row := make(Row, len(fields))
		for i, fd := range fields {
			if i < len(values) {
				row[fd.Name] = values[i]
			}
		}
		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	return results, nil
}

func queriesFor(t Table) (queries, error) {
	qs, ok := tableQueries[t]
	if !ok {
		return queries{}, fmt.Errorf("%w: %q", ErrInvalidTable, t.name)
	}
	return qs, nil
}

func startSpan(ctx context.Context, name string, t Table) (context.Context, trace.Span) {
	ctx, span := otel.Tracer("Store").Start(ctx, name)
	span.SetAttributes(attribute.String("db.table", t.name))
	return ctx, span
}

func fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, "query failed")
}
