package location

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kelvins/geocoder"
)

// Locator produces a single device fix.
type Locator interface {
	Locate(ctx context.Context) (Coordinate, error)
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(ctx context.Context) (Coordinate, error)

func (f LocatorFunc) Locate(ctx context.Context) (Coordinate, error) {
	return f(ctx)
}

// Static always reports c.
func Static(c Coordinate) Locator {
	return LocatorFunc(func(ctx context.Context) (Coordinate, error) {
		if err := ctx.Err(); err != nil {
			return Coordinate{}, err
		}
		return c, nil
	})
}

// AddressLocator geocodes a postal address through the Google geocoding API.
type AddressLocator struct {
	City    string
	Country string

	geocode func(geocoder.Address) (geocoder.Location, error)
}

// NewAddressLocator configures the geocoder key and returns a locator for the
// given city and country.
func NewAddressLocator(apiKey, city, country string) (*AddressLocator, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("geocoder api key is not configured")
	}
	if strings.TrimSpace(city) == "" {
		return nil, errors.New("address city is required")
	}
	geocoder.ApiKey = apiKey
	return &AddressLocator{
		City:    city,
		Country: country,
		geocode: geocoder.Geocoding,
	}, nil
}

func (l *AddressLocator) Locate(ctx context.Context) (Coordinate, error) {
	type result struct {
		loc geocoder.Location
		err error
	}
	// The geocoder has no context support; abandon the call on cancellation.
	ch := make(chan result, 1)
	go func() {
		loc, err := l.geocode(geocoder.Address{City: l.City, Country: l.Country})
		ch <- result{loc, err}
	}()

	select {
	case <-ctx.Done():
		return Coordinate{}, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return Coordinate{}, fmt.Errorf("geocode %s,%s: %w", l.City, l.Country, r.err)
		}
		return Coordinate{Latitude: r.loc.Latitude, Longitude: r.loc.Longitude}, nil
	}
}
