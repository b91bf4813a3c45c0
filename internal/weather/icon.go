package weather

import "strings"

// Weather Icons font glyphs, day and night variants.
type glyphPair struct{ day, night string }

var (
	glyphThunderstorm = glyphPair{"\uf010", "\uf02d"}
	glyphDrizzle      = glyphPair{"\uf00b", "\uf02b"}
	glyphRain         = glyphPair{"\uf008", "\uf028"}
	glyphFreezingRain = glyphPair{"\uf006", "\uf026"}
	glyphSnow         = glyphPair{"\uf00a", "\uf02a"}
	glyphAtmosphere   = glyphPair{"\uf003", "\uf04a"}
	glyphClear        = glyphPair{"\uf00d", "\uf02e"}
	glyphClouds       = glyphPair{"\uf002", "\uf086"}
)

// GlyphUnknown is shown for condition ids outside the known groups.
const GlyphUnknown = "\uf07b"

// IconGlyph maps an OpenWeatherMap condition id and icon code (e.g. "10n")
// to a display glyph. Icon codes ending in "n" select the night variant.
func IconGlyph(conditionID int, iconCode string) string {
	var p glyphPair
	switch {
	case conditionID >= 200 && conditionID < 300:
		p = glyphThunderstorm
	case conditionID >= 300 && conditionID < 400:
		p = glyphDrizzle
	case conditionID == 511:
		p = glyphFreezingRain
	case conditionID >= 500 && conditionID < 600:
		p = glyphRain
	case conditionID >= 600 && conditionID < 700:
		p = glyphSnow
	case conditionID >= 700 && conditionID < 800:
		p = glyphAtmosphere
	case conditionID == 800:
		p = glyphClear
	case conditionID > 800 && conditionID < 900:
		p = glyphClouds
	default:
		return GlyphUnknown
	}
	if strings.HasSuffix(iconCode, "n") {
		return p.night
	}
	return p.day
}
