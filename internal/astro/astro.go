// Package astro computes placeholder chart positions. The math here is a
// deterministic stub keyed off the birth moment, not a real ephemeris; it
// exists so charts have stable, reproducible content for the chat context.
package astro

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ZodiacSigns in tropical order starting at the vernal equinox.
var ZodiacSigns = []string{
	"Aries", "Taurus", "Gemini", "Cancer", "Leo", "Virgo",
	"Libra", "Scorpio", "Sagittarius", "Capricorn", "Aquarius", "Pisces",
}

// Planets included in a computed chart.
var Planets = []string{
	"Sun", "Moon", "Mercury", "Venus", "Mars",
	"Jupiter", "Saturn", "Uranus", "Neptune", "Pluto",
}

// Position is one body's placement.
type Position struct {
	Body   string  `json:"body"`
	Sign   string  `json:"sign"`
	Degree float64 `json:"degree"`
	House  int     `json:"house"`
	Retro  bool    `json:"retrograde"`
}

// ChartResult is the full computed placement set.
type ChartResult struct {
	SunSign   string     `json:"sun_sign"`
	Ascendant string     `json:"ascendant"`
	Positions []Position `json:"positions"`
}

var coordPattern = regexp.MustCompile(`^-?\d+\.?\d*,\s*-?\d+\.?\d*$`)

// Known city coordinates for location strings that are not raw coordinates.
var cityCoordinates = map[string][2]float64{
	"new york":    {40.7128, -74.0060},
	"london":      {51.5074, -0.1278},
	"mumbai":      {19.0760, 72.8777},
	"tokyo":       {35.6762, 139.6503},
	"sydney":      {-33.8688, 151.2093},
	"los angeles": {34.0522, -118.2437},
	"paris":       {48.8566, 2.3522},
	"berlin":      {52.5200, 13.4050},
	"delhi":       {28.6139, 77.2090},
	"singapore":   {1.3521, 103.8198},
}

// ParseLocation turns a location string into coordinates. Raw "lat,lon"
// input is parsed directly; otherwise the city table is consulted, with
// (0, 0) for unknown places.
func ParseLocation(location string) (lat, lon float64, err error) {
	loc := strings.TrimSpace(location)
	if coordPattern.MatchString(loc) {
		parts := strings.SplitN(loc, ",", 2)
		lat, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid latitude: %w", err)
		}
		lon, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid longitude: %w", err)
		}
		return lat, lon, nil
	}
	if coords, ok := cityCoordinates[strings.ToLower(loc)]; ok {
		return coords[0], coords[1], nil
	}
	return 0, 0, nil
}

// Compute derives the placeholder chart for the given birth moment.
// birthDate is "2006-01-02", birthTime is "15:04".
func Compute(birthDate, birthTime string, lat, lon float64) (*ChartResult, error) {
	moment, err := time.Parse("2006-01-02 15:04", birthDate+" "+birthTime)
	if err != nil {
		return nil, fmt.Errorf("invalid birth moment: %w", err)
	}

	sunSign := sunSignFor(moment)
	// Ascendant advances one sign roughly every two hours of local time.
	ascIndex := (signIndex(sunSign) + moment.Hour()/2) % len(ZodiacSigns)
	ascendant := ZodiacSigns[ascIndex]

	positions := make([]Position, 0, len(Planets))
	dayOfYear := moment.YearDay()
	for i, body := range Planets {
		// Spread bodies around the wheel from the sun's position using
		// fixed per-body offsets so the output is stable for a given moment.
		offset := (dayOfYear*(i+3) + moment.Hour()*(i+1)) % 360
		signIdx := ((signIndex(sunSign) * 30) + offset) / 30 % len(ZodiacSigns)
		degree := float64(offset % 30)
		positions = append(positions, Position{
			Body:   body,
			Sign:   ZodiacSigns[signIdx],
			Degree: degree,
			House:  (signIdx-ascIndex+len(ZodiacSigns))%len(ZodiacSigns) + 1,
			Retro:  i > 1 && (dayOfYear+i)%5 == 0,
		})
	}

	return &ChartResult{
		SunSign:   sunSign,
		Ascendant: ascendant,
		Positions: positions,
	}, nil
}

// Marshal renders the result as the JSON stored on the chart row.
func (r *ChartResult) Marshal() (json.RawMessage, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

var signBoundaries = []struct {
	month time.Month
	day   int
	sign  string
}{
	{time.January, 20, "Capricorn"},
	{time.February, 19, "Aquarius"},
	{time.March, 21, "Pisces"},
	{time.April, 20, "Aries"},
	{time.May, 21, "Taurus"},
	{time.June, 21, "Gemini"},
	{time.July, 23, "Cancer"},
	{time.August, 23, "Leo"},
	{time.September, 23, "Virgo"},
	{time.October, 23, "Libra"},
	{time.November, 22, "Scorpio"},
	{time.December, 22, "Sagittarius"},
}

func sunSignFor(moment time.Time) string {
	month := moment.Month()
	day := moment.Day()
	for _, b := range signBoundaries {
		if month == b.month {
			if day < b.day {
				return b.sign
			}
			// Past the boundary: the next sign in the wheel.
			return ZodiacSigns[(signIndex(b.sign)+1)%len(ZodiacSigns)]
		}
	}
	return "Capricorn"
}

func signIndex(sign string) int {
	for i, s := range ZodiacSigns {
		if s == sign {
			return i
		}
	}
	return 0
}
