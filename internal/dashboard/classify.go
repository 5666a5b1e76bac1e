package dashboard

import "math"

// AlertLevel is the overall ordinal severity shown on the dashboard.
type AlertLevel int

const (
	AlertLow AlertLevel = iota
	AlertModerate
	AlertHigh
	AlertSevere
)

var alertNames = [...]string{"Low", "Moderate", "High", "Severe"}

func (a AlertLevel) String() string {
	if a < AlertLow || a > AlertSevere {
		return "Unknown"
	}
	return alertNames[a]
}

// MarshalText renders the level by name in JSON.
func (a AlertLevel) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// AQI categories.
const (
	AQIGood          = "Good"
	AQIModerate      = "Moderate"
	AQISensitive     = "Unhealthy for Sensitive Groups"
	AQIUnhealthy     = "Unhealthy"
	AQIVeryUnhealthy = "Very Unhealthy"
	AQIHazardous     = "Hazardous"
)

// UV risks.
const (
	UVLow      = "Low"
	UVModerate = "Moderate"
	UVHigh     = "High"
	UVVeryHigh = "Very High"
	UVExtreme  = "Extreme"
)

type band struct {
	label  string
	advice string
	color  string
	alert  AlertLevel
}

// Upper bounds are inclusive for AQI.
var aqiBands = []struct {
	max float64
	band
}{
	{50, band{AQIGood, "Enjoy outdoor activities.", "green", AlertLow}},
	{100, band{AQIModerate, "Sensitive groups: limit prolonged outdoor exertion.", "yellow", AlertModerate}},
	{150, band{AQISensitive, "Sensitive groups: reduce outdoor exertion.", "orange", AlertHigh}},
	{200, band{AQIUnhealthy, "Everyone: reduce prolonged or heavy outdoor exertion.", "red", AlertHigh}},
	{300, band{AQIVeryUnhealthy, "Avoid outdoor exertion; consider a mask/air purifier.", "purple", AlertSevere}},
}

var aqiTop = band{AQIHazardous, "Stay indoors with clean air; follow local guidance.", "maroon", AlertSevere}

// Upper bounds are exclusive for UV.
var uvBands = []struct {
	below float64
	band
}{
	{3, band{UVLow, "Minimal protection needed.", "green", AlertLow}},
	{6, band{UVModerate, "Wear sunglasses and SPF 30+.", "yellow", AlertModerate}},
	{8, band{UVHigh, "Reduce time in sun; SPF 30+, hat, sunglasses.", "orange", AlertHigh}},
	{11, band{UVVeryHigh, "Avoid midday sun; protective clothing; SPF 30+.", "red", AlertSevere}},
}

var uvTop = band{UVExtreme, "Avoid exposure; seek shade; SPF 50+.", "purple", AlertSevere}

func aqiBand(aqi float64) band {
	for _, b := range aqiBands {
		if aqi <= b.max {
			return b.band
		}
	}
	return aqiTop
}

func uvBand(uv float64) band {
	for _, b := range uvBands {
		if uv < b.below {
			return b.band
		}
	}
	return uvTop
}

// AQICategory returns the category label for an AQI value.
func AQICategory(aqi float64) string { return aqiBand(aqi).label }

// AQIAdvice returns the fixed advice for an AQI value.
func AQIAdvice(aqi float64) string { return aqiBand(aqi).advice }

// AQIColor returns the display color for an AQI value.
func AQIColor(aqi float64) string { return aqiBand(aqi).color }

// UVRisk returns the risk label for a UV index.
func UVRisk(uv float64) string { return uvBand(uv).label }

// UVAdvice returns the fixed advice for a UV index.
func UVAdvice(uv float64) string { return uvBand(uv).advice }

// UVColor returns the display color for a UV index.
func UVColor(uv float64) string { return uvBand(uv).color }

// OverallAlert maps each reading onto the shared Low..Severe scale and
// returns the worse of the two.
func OverallAlert(aqi, uv float64) AlertLevel {
	return max(aqiBand(aqi).alert, uvBand(uv).alert)
}

// Round1 rounds x to one decimal place, halves away from zero.
func Round1(x float64) float64 {
	return math.Round(x*10) / 10
}
