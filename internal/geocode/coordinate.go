package geocode

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrMalformedCandidate is returned when a provider candidate carries
// coordinates that do not parse or are out of range.
var ErrMalformedCandidate = errors.New("malformed candidate")

// Coordinate is a resolved latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lng)
}

// Candidate is one provider search result, with coordinates kept as the
// provider delivers them.
type Candidate struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Coordinate parses the candidate's latitude and longitude.
func (c Candidate) Coordinate() (Coordinate, error) {
	lat, err := strconv.ParseFloat(c.Lat, 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: latitude %q", ErrMalformedCandidate, c.Lat)
	}
	lng, err := strconv.ParseFloat(c.Lon, 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: longitude %q", ErrMalformedCandidate, c.Lon)
	}
	if math.IsNaN(lat) || math.IsNaN(lng) || math.Abs(lat) > 90 || math.Abs(lng) > 180 {
		return Coordinate{}, fmt.Errorf("%w: %s,%s out of range", ErrMalformedCandidate, c.Lat, c.Lon)
	}
	return Coordinate{Lat: lat, Lng: lng}, nil
}
