package weather

import (
	"math"
	"strconv"
)

// Unit glyphs from the Weather Icons font.
const (
	GlyphFahrenheit = "\uf045"
	GlyphCelsius    = "\uf03c"
)

// KelvinToCelsius rounds to the nearest whole degree.
func KelvinToCelsius(k float64) float64 {
	return math.Round(k - 273.15)
}

// KelvinToFahrenheit rounds to the nearest whole degree.
func KelvinToFahrenheit(k float64) float64 {
	return math.Round(k*9/5 - 459.67)
}

// FormatTemperature renders a Kelvin reading for display. The scale follows
// the forecast city's country code, not the host locale: "US" gets
// Fahrenheit, everything else Celsius.
func FormatTemperature(country string, kelvin float64) string {
	if country == "US" {
		return formatDegrees(KelvinToFahrenheit(kelvin)) + GlyphFahrenheit
	}
	return formatDegrees(KelvinToCelsius(kelvin)) + GlyphCelsius
}

func formatDegrees(v float64) string {
	// math.Round may yield -0.
	if v == 0 {
		v = 0
	}
	return strconv.FormatFloat(v, 'f', 0, 64)
}
