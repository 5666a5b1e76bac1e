package storage_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/skywatch/internal/readings"
	"github.com/neexbeast/skywatch/internal/storage"
)

var readingColumns = []string{"id", "city", "latitude", "longitude", "air_quality", "recorded_at"}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

// ---- mock Querier ----

type mockQuerier struct {
	queryFn func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (m *mockQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return m.queryFn(ctx, sql, args...)
}

// ---- mock pgx.Rows ----

type fakeRows struct {
	rows      [][]any
	idx       int
	rowErr    error
	valuesErr error
}

func (f *fakeRows) Next() bool                    { f.idx++; return f.idx <= len(f.rows) }
func (f *fakeRows) Err() error                    { return f.rowErr }
func (f *fakeRows) Close()                        {}
func (f *fakeRows) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }
func (f *fakeRows) FieldDescriptions() []pgconn.FieldDescription {
	return []pgconn.FieldDescription{{Name: "id"}}
}
func (f *fakeRows) Values() ([]any, error) {
	if f.valuesErr != nil {
		return nil, f.valuesErr
	}
	return f.rows[f.idx-1], nil
}
func (f *fakeRows) Scan(_ ...any) error { return nil }
func (f *fakeRows) RawValues() [][]byte { return nil }
func (f *fakeRows) Conn() *pgx.Conn     { return nil }

// failingQuerier fails the test if any SQL reaches it.
type failingQuerier struct{ t *testing.T }

func (f failingQuerier) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	f.t.Fatalf("unexpected query: %s", sql)
	return nil, nil
}

func ptr(f float64) *float64 { return &f }

// ---- ListAll ----

func TestListAll_ReturnsRowsAsMaps(t *testing.T) {
	mock := newMock(t)
	t1 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT \* FROM "user_data_air_quality"`).
		WillReturnRows(pgxmock.NewRows(readingColumns).
			AddRow(int64(1), "New York", 40.7, -74.0, 42.0, t1).
			AddRow(int64(2), "Paris", 48.85, 2.35, 61.0, t1))

	store := storage.NewStoreWithQuerier(mock)
	rows, err := store.ListAll(context.Background(), storage.TableAirQuality)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "New York", rows[0]["city"])
	assert.Equal(t, 42.0, rows[0]["air_quality"])
	assert.Equal(t, t1, rows[1]["recorded_at"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListAll_EmptyTableIsNotAnError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT \* FROM "user_data_uv"`).
		WillReturnRows(pgxmock.NewRows(readingColumns))

	store := storage.NewStoreWithQuerier(mock)
	rows, err := store.ListAll(context.Background(), storage.TableUV)
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestListAll_QueryError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT \* FROM "user_data_uv"`).WillReturnError(fmt.Errorf("connection reset"))

	store := storage.NewStoreWithQuerier(mock)
	_, err := store.ListAll(context.Background(), storage.TableUV)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listing user_data_uv")
}

func TestListAll_RowsErr(t *testing.T) {
	q := &mockQuerier{
		queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
			return &fakeRows{rowErr: fmt.Errorf("rows iteration error")}, nil
		},
	}

	store := storage.NewStoreWithQuerier(q)
	_, err := store.ListAll(context.Background(), storage.TableUV)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "iterating")
}

func TestListAll_ValuesErr(t *testing.T) {
	q := &mockQuerier{
		queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
			return &fakeRows{rows: [][]any{{int64(1)}}, valuesErr: fmt.Errorf("decode failed")}, nil
		},
	}

	store := storage.NewStoreWithQuerier(q)
	_, err := store.ListAll(context.Background(), storage.TableUV)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scanning")
}

func TestListAll_ZeroTableNeverQueries(t *testing.T) {
	store := storage.NewStoreWithQuerier(failingQuerier{t: t})
	_, err := store.ListAll(context.Background(), storage.Table{})
	require.ErrorIs(t, err, storage.ErrInvalidTable)
}

// ---- GetByID ----

func TestGetByID_Found(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`FROM "user_data_air_quality" WHERE id::text = \$1`).
		WithArgs("7").
		WillReturnRows(pgxmock.NewRows(readingColumns).AddRow(int64(7), nil, 40.7, -74.0, 42.0, time.Now()))

	store := storage.NewStoreWithQuerier(mock)
	row, err := store.GetByID(context.Background(), storage.TableAirQuality, "7")
	require.NoError(t, err)
	assert.Equal(t, int64(7), row["id"])
	assert.Nil(t, row["city"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_InjectionAttemptIsBound(t *testing.T) {
	mock := newMock(t)
	payload := "1 OR 1=1; DROP TABLE user_data_uv"
	mock.ExpectQuery(`FROM "user_data_uv" WHERE id::text = \$1`).
		WithArgs(payload).
		WillReturnRows(pgxmock.NewRows(readingColumns))

	store := storage.NewStoreWithQuerier(mock)
	_, err := store.GetByID(context.Background(), storage.TableUV, payload)
	require.ErrorIs(t, err, storage.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_DBError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`WHERE id::text = \$1`).WithArgs("1").WillReturnError(fmt.Errorf("db down"))

	store := storage.NewStoreWithQuerier(mock)
	_, err := store.GetByID(context.Background(), storage.TableUV, "1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, storage.ErrNotFound))
	assert.Contains(t, err.Error(), "querying user_data_uv by id 1")
}

// ---- Latest ----

func TestLatest_ByCity(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`FROM "user_data_air_quality"\s+WHERE LOWER\(city\) = LOWER\(\$1\)\s+ORDER BY recorded_at DESC\s+LIMIT 1`).
		WithArgs("paris").
		WillReturnRows(pgxmock.NewRows(readingColumns).AddRow(int64(3), "Paris", 48.85, 2.35, 61.0, time.Now()))

	store := storage.NewStoreWithQuerier(mock)
	row, err := store.Latest(context.Background(), readings.MetricAirQuality, readings.Location{City: " paris "})
	require.NoError(t, err)
	assert.Equal(t, 61.0, row["air_quality"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLatest_ByCoordinates(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`FROM "user_data_uv"\s+ORDER BY \(latitude - \$1\) \* \(latitude - \$1\) \+ \(longitude - \$2\) \* \(longitude - \$2\) ASC,\s+recorded_at DESC\s+LIMIT 1`).
		WithArgs(40.7, -74.0).
		WillReturnRows(pgxmock.NewRows([]string{"id", "latitude", "longitude", "uv_index"}).AddRow(int64(9), 40.7, -74.0, 2.1))

	store := storage.NewStoreWithQuerier(mock)
	row, err := store.Latest(context.Background(), readings.MetricUV, readings.Location{Lat: ptr(40.7), Lon: ptr(-74.0)})
	require.NoError(t, err)
	assert.Equal(t, 2.1, row["uv_index"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLatest_NoLocationUsesNewest(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`FROM "user_data_uv"\s+ORDER BY recorded_at DESC\s+LIMIT 1`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "uv_index"}).AddRow(int64(1), 4.0))

	store := storage.NewStoreWithQuerier(mock)
	row, err := store.Latest(context.Background(), readings.MetricUV, readings.Location{})
	require.NoError(t, err)
	assert.Equal(t, 4.0, row["uv_index"])
}

func TestLatest_NoMatch(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`LOWER\(city\)`).WithArgs("Paris").WillReturnRows(pgxmock.NewRows(readingColumns))

	store := storage.NewStoreWithQuerier(mock)
	_, err := store.Latest(context.Background(), readings.MetricAirQuality, readings.Location{City: "Paris"})
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLatest_QueryError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`LOWER\(city\)`).WithArgs("Paris").WillReturnError(fmt.Errorf("timeout"))

	store := storage.NewStoreWithQuerier(mock)
	_, err := store.Latest(context.Background(), readings.MetricAirQuality, readings.Location{City: "Paris"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "querying latest air quality")
}

func TestLatest_UnknownMetric(t *testing.T) {
	store := storage.NewStoreWithQuerier(failingQuerier{t: t})
	_, err := store.Latest(context.Background(), readings.Metric("pollen"), readings.Location{City: "Paris"})
	require.ErrorIs(t, err, storage.ErrInvalidTable)
}

// ---- NewStore ----

func TestNewStore_NotNil(t *testing.T) {
	assert.NotNil(t, storage.NewStore(nil))
}

// ---- Connect ----

func TestConnect_BadURL(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := storage.Connect(ctx, "postgres://invalid-host-xyz:5432/db?sslmode=disable", time.Second)
	require.Error(t, err)
}

func TestConnect_Unparseable(t *testing.T) {
	_, err := storage.Connect(context.Background(), "::not a url::", time.Second)
	require.Error(t, err)
}
