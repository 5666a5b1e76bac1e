package readings

import (
	"net/url"
	"strconv"
	"strings"
)

// Metric identifies one kind of environmental reading.
type Metric string

const (
	MetricAirQuality Metric = "air_quality"
	MetricUV         Metric = "uv_index"
)

// Label returns the human-readable name used in logs and error messages.
func (m Metric) Label() string {
	switch m {
	case MetricAirQuality:
		return "air quality"
	case MetricUV:
		return "uv"
	default:
		return string(m)
	}
}

// Location selects readings either by city name or by coordinate.
// City wins when both are set.
type Location struct {
	City string
	Lat  *float64
	Lon  *float64
}

// IsZero reports whether no selector is set.
func (l Location) IsZero() bool {
	return strings.TrimSpace(l.City) == "" && l.Lat == nil && l.Lon == nil
}

// HasCoordinates reports whether both latitude and longitude are set.
func (l Location) HasCoordinates() bool {
	return l.Lat != nil && l.Lon != nil
}

// Values encodes the location as query parameters understood by every hop.
func (l Location) Values() url.Values {
	v := url.Values{}
	if city := strings.TrimSpace(l.City); city != "" {
		v.Set("city", city)
		return v
	}
	if l.HasCoordinates() {
		v.Set("lat", strconv.FormatFloat(*l.Lat, 'f', -1, 64))
		v.Set("lon", strconv.FormatFloat(*l.Lon, 'f', -1, 64))
	}
	return v
}

// Snapshot is the combined, momentary pair of the latest AQI and UV values.
type Snapshot struct {
	AQI     float64 `json:"aqi"`
	UV      float64 `json:"uv"`
	Summary string  `json:"summary"`
}

// Summarize builds the short advisory text for a snapshot.
func Summarize(aqi, uv float64) string {
	air := "Poor Air"
	if aqi < 50 {
		air = "Good Air"
	}
	sun := "High UV"
	if uv < 3 {
		sun = "Low UV"
	}
	return air + " & " + sun
}

// NewSnapshot builds a Snapshot with its summary filled in.
func NewSnapshot(aqi, uv float64) Snapshot {
	return Snapshot{AQI: aqi, UV: uv, Summary: Summarize(aqi, uv)}
}
