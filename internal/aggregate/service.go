package aggregate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/neexbeast/skywatch/internal/hop"
	"github.com/neexbeast/skywatch/internal/readings"
)

// upstream is the interface satisfied by hop.Client.
type upstream interface {
	Name() string
	Get(ctx context.Context, path string, query url.Values) (*hop.Response, error)
}

// Service joins the latest air-quality and UV readings into one snapshot.
type Service struct {
	storage upstream
	logger  *slog.Logger
}

// NewService constructs a Service that reads from the storage hop.
func NewService(storage upstream, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{storage: storage, logger: logger}
}

var paths = map[readings.Metric]string{
	readings.MetricAirQuality: "/aqi",
	readings.MetricUV:         "/uv",
}

// Combine fetches both metrics for loc in parallel and returns the snapshot.
// Both fetches must succeed; the first failure cancels the other and is
// returned as a *hop.Error.
func (s *Service) Combine(ctx context.Context, loc readings.Location) (readings.Snapshot, error) {
	ctx, span := otel.Tracer("AggregateService").Start(ctx, "Combine")
	defer span.End()
	l := s.logger.With(slog.String("method", "Combine"))

	g, gCtx := errgroup.WithContext(ctx)

	var aqi, uv float64

	g.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				l.Error("air quality fetch panicked", "recover", r)
				err = fmt.Errorf("air quality fetch panicked: %v", r)
			}
		}()
		v, fetchErr := s.fetch(gCtx, readings.MetricAirQuality, loc)
		if fetchErr != nil {
			return fetchErr
		}
		aqi = v
		return nil
	})

	g.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				l.Error("uv fetch panicked", "recover", r)
				err = fmt.Errorf("uv fetch panicked: %v", r)
			}
		}()
		v, fetchErr := s.fetch(gCtx, readings.MetricUV, loc)
		if fetchErr != nil {
			return fetchErr
		}
		uv = v
		return nil
	})

	if err := g.Wait(); err != nil {
		l.WarnContext(ctx, "combine failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "combine failed")
		return readings.Snapshot{}, err
	}

	snap := readings.NewSnapshot(aqi, uv)
	span.SetAttributes(
		attribute.Float64("snapshot.aqi", snap.AQI),
		attribute.Float64("snapshot.uv", snap.UV),
	)
	return snap, nil
}

func (s *Service) fetch(ctx context.Context, metric readings.Metric, loc readings.Location) (float64, error) {
	resp, err := s.storage.Get(ctx, paths[metric], loc.Values())
	if err != nil {
		var hopErr *hop.Error
		if errors.As(err, &hopErr) {
			hopErr.Detail = metric.Label() + " " + hopErr.Detail
			return 0, hopErr
		}
		return 0, hop.Unavailable(s.storage.Name(), 0, metric.Label()+" request failed", err)
	}
	return ExtractValue(s.storage.Name(), metric, resp.Body)
}

// ExtractValue reads metric from a storage response body. The body may be an
// array of rows (the first row is used) or a single row object. An empty
// array, a missing column or a non-numeric value is a malformed response.
func ExtractValue(hopName string, metric readings.Metric, body []byte) (float64, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return 0, hop.Malformed(hopName, metric.Label()+" response is not JSON", err)
	}

	if list, ok := doc.([]any); ok {
		if len(list) == 0 {
			return 0, hop.Malformed(hopName, "no "+metric.Label()+" reading found", nil)
		}
		doc = list[0]
	}

	row, ok := doc.(map[string]any)
	if !ok {
		return 0, hop.Malformed(hopName, metric.Label()+" response is not a row", nil)
	}

	raw, ok := row[string(metric)]
	if !ok || raw == nil {
		return 0, hop.Malformed(hopName, "missing "+string(metric), nil)
	}

	num, ok := raw.(json.Number)
	if !ok {
		return 0, hop.Malformed(hopName, fmt.Sprintf("%s is not numeric: %v", metric, raw), nil)
	}

	v, err := num.Float64()
	if err != nil {
		return 0, hop.Malformed(hopName, string(metric)+" is not numeric", err)
	}
	return v, nil
}
