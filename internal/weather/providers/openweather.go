package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/i474232898/local-forecast/internal/common"
	"github.com/i474232898/local-forecast/internal/location"
	"github.com/i474232898/local-forecast/internal/weather"
)

// DefaultOpenWeatherURL is the 5 day / 3 hour forecast endpoint.
const DefaultOpenWeatherURL = "https://api.openweathermap.org/data/2.5/forecast"

var (
	validate = validator.New()

	errMissingCredential = errors.New("openweather api key is not configured")
	errNoCurrentWeather  = errors.New("first forecast entry has no weather")
)

// OpenWeatherOptions configures an OpenWeatherProvider. Zero values fall back
// to defaults.
type OpenWeatherOptions struct {
	BaseURL string
	Units   string
	Zone    weather.ZoneResolver
	Logger  *zap.Logger
}

// OpenWeatherProvider implements weather.Provider for the OpenWeatherMap
// forecast API. It never retries.
type OpenWeatherProvider struct {
	name    string
	baseURL string
	units   string
	zone    weather.ZoneResolver
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

func NewOpenWeatherProvider(client *http.Client, opts OpenWeatherOptions) *OpenWeatherProvider {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:         "openweather",
		MaxRequests:  5,
		Interval:     1 * time.Minute,
		Timeout:      2 * time.Minute,
		IsSuccessful: breakerSuccess,
	})

	if opts.BaseURL == "" {
		opts.BaseURL = DefaultOpenWeatherURL
	}
	if opts.Units == "" {
		opts.Units = "metric"
	}
	if opts.Zone == nil {
		opts.Zone = weather.LocalZone
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &OpenWeatherProvider{
		name:    "openweathermap",
		baseURL: opts.BaseURL,
		units:   opts.Units,
		zone:    opts.Zone,
		httpCfg: HTTPClientConfig{Client: client},
		circuit: cb,
		logger:  opts.Logger.Named("openweather"),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

// forecastPayload is the subset of the forecast response we rely on. Every
// field is mandatory; an entry's weather list may be empty but not absent.
type forecastPayload struct {
	City struct {
		Name    string  `json:"name" validate:"required"`
		Country *string `json:"country" validate:"required"`
	} `json:"city"`
	List []forecastItem `json:"list" validate:"min=1,dive"`
}

type forecastItem struct {
	Dt      *int64            `json:"dt" validate:"required"`
	Main    *forecastMain     `json:"main" validate:"required"`
	Weather []forecastWeather `json:"weather" validate:"required,dive"`
}

type forecastMain struct {
	Temp *float64 `json:"temp" validate:"required"`
}

type forecastWeather struct {
	ID   *int    `json:"id" validate:"required"`
	Icon *string `json:"icon" validate:"required"`
}

func (p *OpenWeatherProvider) Fetch(ctx context.Context, coord location.Coordinate, credential string) (weather.Snapshot, error) {
	req, err := p.buildRequest(coord, credential)
	if err != nil {
		return weather.Snapshot{}, common.NewError(common.KindURL, err)
	}

	started := time.Now()
	resp, err := doRequest(ctx, p.httpCfg, p.circuit, req)
	if err != nil {
		p.logger.Warn("forecast request failed", zap.Stringer("coordinate", coord), zap.Error(err))
		return weather.Snapshot{}, common.NewError(common.KindNetworkRequestFailed, err)
	}
	defer resp.Body.Close()

	var payload forecastPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Snapshot{}, common.NewError(common.KindParsingFailed, err)
	}
	if err := validate.Struct(payload); err != nil {
		return weather.Snapshot{}, common.NewError(common.KindParsingFailed, err)
	}
	if len(payload.List[0].Weather) == 0 {
		return weather.Snapshot{}, common.NewError(common.KindParsingFailed, errNoCurrentWeather)
	}

	p.logger.Debug("forecast received",
		zap.String("city", payload.City.Name),
		zap.String("country", *payload.City.Country),
		zap.Int("entries", len(payload.List)),
		zap.Duration("took", time.Since(started)),
	)

	return toSnapshot(payload, p.zone(coord)), nil
}

func (p *OpenWeatherProvider) buildRequest(coord location.Coordinate, credential string) (*http.Request, error) {
	if credential == "" {
		return nil, errMissingCredential
	}
	u, err := url.Parse(p.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}

	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(coord.Latitude, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(coord.Longitude, 'f', -1, 64))
	values.Set("appid", credential)
	values.Set("units", p.units)
	u.RawQuery = values.Encode()

	return http.NewRequest(http.MethodGet, u.String(), nil)
}

// toSnapshot takes the current reading from the first entry and the
// forecast from the first MaxForecasts entries, skipping entries without
// weather. The first entry must carry weather.
func toSnapshot(payload forecastPayload, zone *time.Location) weather.Snapshot {
	country := *payload.City.Country
	first := payload.List[0]
	current := first.Weather[0]

	n := len(payload.List)
	if n > weather.MaxForecasts {
		n = weather.MaxForecasts
	}
	forecasts := make([]weather.ForecastEntry, 0, n)
	for _, item := range payload.List[:n] {
		if len(item.Weather) == 0 {
			continue
		}
		w := item.Weather[0]
		forecasts = append(forecasts, weather.ForecastEntry{
			LocalTime:          weather.FormatForecastTime(*item.Dt, zone),
			IconGlyph:          weather.IconGlyph(*w.ID, *w.Icon),
			TemperatureDisplay: weather.FormatTemperature(country, *item.Main.Temp),
		})
	}

	return weather.Snapshot{
		LocationName:       payload.City.Name,
		ConditionCode:      *current.ID,
		IconGlyph:          weather.IconGlyph(*current.ID, *current.Icon),
		TemperatureDisplay: weather.FormatTemperature(country, *first.Main.Temp),
		Forecasts:          forecasts,
	}
}
