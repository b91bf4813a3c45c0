package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"

	"github.com/i474232898/local-forecast/internal/location"
)

type AppConfig struct {
	OpenWeatherAPIKey  string        `mapstructure:"OPENWEATHER_API_KEY"`
	OpenWeatherBaseURL string        `mapstructure:"OPENWEATHER_BASE_URL" validate:"omitempty,url"`
	OpenWeatherUnits   string        `mapstructure:"OPENWEATHER_UNITS" validate:"oneof=standard metric imperial"`
	HTTPTimeout        time.Duration `mapstructure:"HTTP_TIMEOUT" validate:"gt=0"`

	Port     string `mapstructure:"PORT" validate:"required,numeric"`
	LogLevel string `mapstructure:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	AppEnv   string `mapstructure:"APP_ENV" validate:"oneof=dev prod"`

	// RefreshInterval controls how often a run is started; 0 disables it.
	RefreshInterval time.Duration `mapstructure:"REFRESH_INTERVAL" validate:"gte=0"`

	Location LocationConfig `mapstructure:",squash"`

	// ForecastTimeZone is "local", "coordinate" or an IANA zone name.
	ForecastTimeZone string `mapstructure:"FORECAST_TIME_ZONE" validate:"required"`

	MQTT MQTTConfig `mapstructure:",squash"`
}

// LocationConfig describes the device position source and its permission.
type LocationConfig struct {
	Authorization location.AuthorizationState `mapstructure:"LOCATION_AUTHORIZATION"`
	AutoGrant     location.AuthorizationState `mapstructure:"LOCATION_AUTO_GRANT"`

	Latitude  *float64 `mapstructure:"LOCATION_LATITUDE" validate:"required_with=Longitude,omitempty,latitude"`
	Longitude *float64 `mapstructure:"LOCATION_LONGITUDE" validate:"required_with=Latitude,omitempty,longitude"`

	City           string `mapstructure:"LOCATION_ADDRESS_CITY" validate:"required_with=Country"`
	Country        string `mapstructure:"LOCATION_ADDRESS_COUNTRY"`
	GeocoderAPIKey string `mapstructure:"GEOCODER_API_KEY" validate:"required_with=City"`
}

// Static reports whether a fixed coordinate is configured.
func (l LocationConfig) Static() bool {
	return l.Latitude != nil && l.Longitude != nil
}

type MQTTConfig struct {
	Broker   string `mapstructure:"MQTT_BROKER"`
	ClientID string `mapstructure:"MQTT_CLIENT_ID" validate:"required_with=Broker"`
	Topic    string `mapstructure:"MQTT_TOPIC" validate:"required_with=Broker"`
}

var defaults = map[string]string{
	"OPENWEATHER_UNITS":      "metric",
	"HTTP_TIMEOUT":           "10s",
	"PORT":                   "8080",
	"LOG_LEVEL":              "info",
	"APP_ENV":                "dev",
	"REFRESH_INTERVAL":       "15m",
	"LOCATION_AUTHORIZATION": "not_determined",
	"LOCATION_AUTO_GRANT":    "authorized_full",
	"FORECAST_TIME_ZONE":     "local",
	"MQTT_CLIENT_ID":         "local-forecast",
	"MQTT_TOPIC":             "local-forecast/state",
}

var keys = []string{
	"OPENWEATHER_API_KEY", "OPENWEATHER_BASE_URL", "OPENWEATHER_UNITS", "HTTP_TIMEOUT",
	"PORT", "LOG_LEVEL", "APP_ENV", "REFRESH_INTERVAL",
	"LOCATION_AUTHORIZATION", "LOCATION_AUTO_GRANT", "LOCATION_LATITUDE", "LOCATION_LONGITUDE",
	"LOCATION_ADDRESS_CITY", "LOCATION_ADDRESS_COUNTRY", "GEOCODER_API_KEY",
	"FORECAST_TIME_ZONE", "MQTT_BROKER", "MQTT_CLIENT_ID", "MQTT_TOPIC",
}

// Load reads configuration from the environment, after loading a .env file
// when one is present.
func Load() (*AppConfig, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()
	return FromLookup(os.LookupEnv)
}

// FromLookup builds the configuration from lookup, applying defaults for
// unset or empty keys.
func FromLookup(lookup func(string) (string, bool)) (*AppConfig, error) {
	raw := make(map[string]interface{}, len(keys))
	for _, k := range keys {
		if v, ok := lookup(k); ok && v != "" {
			raw[k] = v
		} else if def, ok := defaults[k]; ok {
			raw[k] = def
		}
	}

	cfg := &AppConfig{}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.TextUnmarshallerHookFunc(),
			stringToFloatPtrHook,
		),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           cfg,
	})
	if err != nil {
		return nil, fmt.Errorf("config decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

var floatPtrType = reflect.TypeOf((*float64)(nil))

// stringToFloatPtrHook parses coordinates so that an unset value stays nil
// while "0" is a real position.
func stringToFloatPtrHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String || to != floatPtrType {
		return data, nil
	}
	f, err := strconv.ParseFloat(data.(string), 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
