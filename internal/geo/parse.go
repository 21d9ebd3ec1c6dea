package geo

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Validation errors returned by Parse.
var (
	ErrMalformedEntry   = errors.New("malformed entry, expected \"lng,lat\"")
	ErrInvalidLongitude = errors.New("invalid longitude")
	ErrInvalidLatitude  = errors.New("invalid latitude")
)

// Integer part 0..179 with optional fraction, or exactly 180 with a zero-only fraction.
var lngPattern = regexp.MustCompile(
	`^[+-]?(` +
		`(\d|[1-9]\d|1[0-7]\d)(\.\d+)?` + // 0..179[.ddd]
		`|180(\.0+)?` + // 180[.000]
		`)$`,
)

// Integer part 0..89 with optional fraction, or exactly 90 with a zero-only fraction.
var latPattern = regexp.MustCompile(
	`^[+-]?(` +
		`[0-8]?\d(\.\d+)?` + // 0..89[.ddd]
		`|90(\.0+)?` + // 90[.000]
		`)$`,
)

// Parse validates a single "lng,lat" entry and returns the coordinate.
// Surrounding whitespace of each field is trimmed before matching.
func Parse(text string) (Coordinate, error) {
	fields := strings.Split(text, ",")
	if len(fields) != 2 {
		return Coordinate{}, fmt.Errorf("%w: %q", ErrMalformedEntry, text)
	}

	lngText := strings.TrimSpace(fields[0])
	latText := strings.TrimSpace(fields[1])
	if lngText == "" || latText == "" {
		return Coordinate{}, fmt.Errorf("%w: %q", ErrMalformedEntry, text)
	}

	if !lngPattern.MatchString(lngText) {
		return Coordinate{}, fmt.Errorf("%w: %q", ErrInvalidLongitude, lngText)
	}
	if !latPattern.MatchString(latText) {
		return Coordinate{}, fmt.Errorf("%w: %q", ErrInvalidLatitude, latText)
	}

	lng, err := strconv.ParseFloat(lngText, 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: %v", ErrInvalidLongitude, err)
	}
	lat, err := strconv.ParseFloat(latText, 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: %v", ErrInvalidLatitude, err)
	}

	return Coordinate{Lng: lng, Lat: lat}, nil
}

// ParseList parses every entry in order and stops at the first invalid one.
func ParseList(entries []string) (CoordinateList, error) {
	list := make(CoordinateList, 0, len(entries))
	for i, entry := range entries {
		c, err := Parse(entry)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i+1, err)
		}
		list = append(list, c)
	}
	return list, nil
}
