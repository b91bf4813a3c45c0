package weather

import (
	"fmt"
	"strings"
	"time"

	"github.com/zsefvlol/timezonemapper"

	"github.com/i474232898/local-forecast/internal/location"
)

// ForecastTimeLayout is the 24-hour display layout for forecast slots.
const ForecastTimeLayout = "15:04"

// ZoneResolver picks the zone forecast times are displayed in.
type ZoneResolver func(coord location.Coordinate) *time.Location

// LocalZone displays times in the process's local zone.
func LocalZone(location.Coordinate) *time.Location {
	return time.Local
}

// CoordinateZone displays times in the zone containing the coordinate,
// falling back to the local zone when it cannot be determined.
func CoordinateZone(coord location.Coordinate) *time.Location {
	name := timezonemapper.LatLngToTimezoneString(coord.Latitude, coord.Longitude)
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.Local
	}
	return loc
}

// FixedZone always displays times in loc.
func FixedZone(loc *time.Location) ZoneResolver {
	return func(location.Coordinate) *time.Location { return loc }
}

// ParseZoneResolver understands "local", "coordinate" and IANA zone names.
func ParseZoneResolver(s string) (ZoneResolver, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "local":
		return LocalZone, nil
	case "coordinate":
		return CoordinateZone, nil
	}
	loc, err := time.LoadLocation(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid forecast time zone %q: %w", s, err)
	}
	return FixedZone(loc), nil
}

// FormatForecastTime renders a unix timestamp as HH:mm in loc.
func FormatForecastTime(unix int64, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return time.Unix(unix, 0).In(loc).Format(ForecastTimeLayout)
}
