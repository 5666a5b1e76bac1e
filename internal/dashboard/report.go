package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/neexbeast/skywatch/internal/hop"
	"github.com/neexbeast/skywatch/internal/readings"
)

// Report is the dashboard payload, regenerated on every request.
type Report struct {
	Timestamp  string     `json:"timestamp"`
	AlertLevel AlertLevel `json:"alertLevel"`
	Summary    string     `json:"summary"`
	Cards      Cards      `json:"cards"`
}

type Cards struct {
	AirQuality AirQualityCard `json:"airQuality"`
	UV         UVCard         `json:"uv"`
}

type AirQualityCard struct {
	AQI      float64 `json:"aqi"`
	Category string  `json:"category"`
	Advice   string  `json:"advice"`
	Color    string  `json:"color"`
}

type UVCard struct {
	UVIndex float64 `json:"uvIndex"`
	Risk    string  `json:"risk"`
	Advice  string  `json:"advice"`
	Color   string  `json:"color"`
}

// NewReport classifies snap. The summary is recomputed when snap carries none.
func NewReport(snap readings.Snapshot, now time.Time) Report {
	summary := snap.Summary
	if summary == "" {
		summary = readings.Summarize(snap.AQI, snap.UV)
	}
	return Report{
		Timestamp:  now.UTC().Format(time.RFC3339),
		AlertLevel: OverallAlert(snap.AQI, snap.UV),
		Summary:    summary,
		Cards: Cards{
			AirQuality: AirQualityCard{
				AQI:      Round1(snap.AQI),
				Category: AQICategory(snap.AQI),
				Advice:   AQIAdvice(snap.AQI),
				Color:    AQIColor(snap.AQI),
			},
			UV: UVCard{
				UVIndex: Round1(snap.UV),
				Risk:    UVRisk(snap.UV),
				Advice:  UVAdvice(snap.UV),
				Color:   UVColor(snap.UV),
			},
		},
	}
}

// upstream is the interface satisfied by hop.Client.
type upstream interface {
	Name() string
	Get(ctx context.Context, path string, query url.Values) (*hop.Response, error)
}

// Service builds dashboard reports from the aggregator's snapshot.
type Service struct {
	aggregator upstream
	now        func() time.Time
	logger     *slog.Logger
}

// NewService constructs a Service. A nil clock defaults to time.Now.
func NewService(aggregator upstream, now func() time.Time, logger *slog.Logger) *Service {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{aggregator: aggregator, now: now, logger: logger}
}

// BuildReport fetches the combined snapshot for loc and classifies it.
// Every failure is a *hop.Error naming the aggregator hop.
func (s *Service) BuildReport(ctx context.Context, loc readings.Location) (Report, error) {
	ctx, span := otel.Tracer("DashboardService").Start(ctx, "BuildReport")
	defer span.End()
	l := s.logger.With(slog.String("method", "BuildReport"))

	snap, err := s.snapshot(ctx, loc)
	if err != nil {
		l.WarnContext(ctx, "fetching snapshot failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetching snapshot failed")
		return Report{}, err
	}

	report := NewReport(snap, s.now())
	span.SetAttributes(attribute.String("report.alert_level", report.AlertLevel.String()))
	return report, nil
}

func (s *Service) snapshot(ctx context.Context, loc readings.Location) (readings.Snapshot, error) {
	name := s.aggregator.Name()

	resp, err := s.aggregator.Get(ctx, "/combined", loc.Values())
	if err != nil {
		var hopErr *hop.Error
		if errors.As(err, &hopErr) {
			return readings.Snapshot{}, hopErr
		}
		return readings.Snapshot{}, hop.Unavailable(name, 0, "request failed", err)
	}

	dec := json.NewDecoder(bytes.NewReader(resp.Body))
	dec.UseNumber()

	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return readings.Snapshot{}, hop.Malformed(name, "non-JSON body", err)
	}

	aqi, okAQI := number(body["aqi"])
	uv, okUV := number(body["uv"])
	if !okAQI || !okUV {
		return readings.Snapshot{}, hop.Malformed(name, "JSON missing expected fields (aqi/uv)", nil)
	}

	summary, _ := body["summary"].(string)
	return readings.Snapshot{AQI: aqi, UV: uv, Summary: summary}, nil
}

func number(v any) (float64, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	f, err := n.Float64()
	return f, err == nil
}
