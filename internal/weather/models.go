package weather

// MaxForecasts caps the number of forecast entries in a Snapshot.
const MaxForecasts = 4

// Snapshot is one normalized forecast result. It is never modified after
// construction; a newer result replaces it wholesale.
type Snapshot struct {
	LocationName       string          `json:"locationName"`
	ConditionCode      int             `json:"conditionCode"`
	IconGlyph          string          `json:"iconGlyph"`
	TemperatureDisplay string          `json:"temperatureDisplay"`
	Forecasts          []ForecastEntry `json:"forecasts"`
}

// ForecastEntry is a single upcoming time slot.
type ForecastEntry struct {
	LocalTime          string `json:"localTime"` // HH:mm in the display zone
	IconGlyph          string `json:"iconGlyph"`
	TemperatureDisplay string `json:"temperatureDisplay"`
}
