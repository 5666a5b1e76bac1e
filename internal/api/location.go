package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/neexbeast/skywatch/internal/readings"
)

var validate = validator.New()

// locationQuery holds the query parameters that select a location.
type locationQuery struct {
	City string   `validate:"omitempty,max=100"`
	Lat  *float64 `validate:"required_with=Lon,omitempty,gte=-90,lte=90"`
	Lon  *float64 `validate:"required_with=Lat,omitempty,gte=-180,lte=180"`
}

func (q locationQuery) toLocation() readings.Location {
	return readings.Location{City: q.City, Lat: q.Lat, Lon: q.Lon}
}

// parseLocation reads city or lat/lon from the query string. A request with
// none of them yields the zero Location and no error.
func parseLocation(r *http.Request) (readings.Location, error) {
	params := r.URL.Query()

	var q locationQuery
	q.City = strings.TrimSpace(params.Get("city"))

	var err error
	if q.Lat, err = parseCoord(params.Get("lat"), "lat"); err != nil {
		return readings.Location{}, err
	}
	if q.Lon, err = parseCoord(params.Get("lon"), "lon"); err != nil {
		return readings.Location{}, err
	}

	if err := validate.Struct(q); err != nil {
		return readings.Location{}, fmt.Errorf("invalid location: %w", err)
	}

	return q.toLocation(), nil
}

func parseCoord(raw, name string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q", name, raw)
	}
	return &v, nil
}
