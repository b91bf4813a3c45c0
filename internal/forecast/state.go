package forecast

import (
	"github.com/i474232898/local-forecast/internal/common"
	"github.com/i474232898/local-forecast/internal/weather"
)

// Phase is the orchestrator's position within the current run.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseResolvingLocation
	PhaseFetchingWeather
	PhasePublished
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseResolvingLocation:
		return "resolving_location"
	case PhaseFetchingWeather:
		return "fetching_weather"
	case PhasePublished:
		return "published"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// PublishedState is everything the presentation layer sees. It is replaced
// as a whole; error and data fields are never populated together.
type PublishedState struct {
	HasError           bool                    `json:"hasError"`
	ErrorMessage       string                  `json:"errorMessage"`
	LocationName       string                  `json:"locationName"`
	IconGlyph          string                  `json:"iconGlyph"`
	TemperatureDisplay string                  `json:"temperatureDisplay"`
	Forecasts          []weather.ForecastEntry `json:"forecasts"`
}

func stateFromSnapshot(s weather.Snapshot) PublishedState {
	forecasts := make([]weather.ForecastEntry, len(s.Forecasts))
	copy(forecasts, s.Forecasts)
	return PublishedState{
		LocationName:       s.LocationName,
		IconGlyph:          s.IconGlyph,
		TemperatureDisplay: s.TemperatureDisplay,
		Forecasts:          forecasts,
	}
}

func stateFromError(err *common.PipelineError) PublishedState {
	return PublishedState{
		HasError:     true,
		ErrorMessage: err.Kind.Message(),
		Forecasts:    []weather.ForecastEntry{},
	}
}

func emptyState() PublishedState {
	return PublishedState{Forecasts: []weather.ForecastEntry{}}
}
