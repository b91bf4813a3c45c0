package location

import (
	"fmt"
	"strings"
)

// Coordinate is a device position in degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.5f,%.5f", c.Latitude, c.Longitude)
}

// AuthorizationState is the platform's location permission state.
type AuthorizationState int

const (
	NotDetermined AuthorizationState = iota
	Restricted
	Denied
	AuthorizedLimited
	AuthorizedFull
)

var authorizationNames = map[AuthorizationState]string{
	NotDetermined:     "not_determined",
	Restricted:        "restricted",
	Denied:            "denied",
	AuthorizedLimited: "authorized_limited",
	AuthorizedFull:    "authorized_full",
}

func (s AuthorizationState) String() string {
	if name, ok := authorizationNames[s]; ok {
		return name
	}
	return fmt.Sprintf("authorization(%d)", int(s))
}

// Authorized reports whether fixes may be requested.
func (s AuthorizationState) Authorized() bool {
	return s == AuthorizedLimited || s == AuthorizedFull
}

// Refused reports whether the user or policy has blocked location access.
func (s AuthorizationState) Refused() bool {
	return s == Denied || s == Restricted
}

// ParseAuthorizationState parses the text form produced by String.
func ParseAuthorizationState(s string) (AuthorizationState, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for state, name := range authorizationNames {
		if name == want {
			return state, nil
		}
	}
	return NotDetermined, fmt.Errorf("unknown authorization state %q", s)
}

func (s AuthorizationState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *AuthorizationState) UnmarshalText(b []byte) error {
	parsed, err := ParseAuthorizationState(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
