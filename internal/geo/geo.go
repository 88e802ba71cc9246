// Copyright (c) 2025 NearDeal
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package geo computes great-circle distances between coordinates and formats
// them for display.
package geo

import (
	"fmt"
	"math"
	"strconv"

	apperrors "neardeal/cli/internal/errors"
)

// EarthRadiusMeters is the mean Earth radius used by Haversine.
const EarthRadiusMeters = 6371000.0

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64
	Lon float64
}

// Validate rejects coordinates outside [-90,90] x [-180,180].
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) || p.Lat < -90 || p.Lat > 90 || p.Lon < -180 || p.Lon > 180 {
		return apperrors.New(apperrors.InvalidInput, fmt.Sprintf("coordinate out of range: %v,%v", p.Lat, p.Lon))
	}
	return nil
}

// ParsePoint parses latitude and longitude strings.
func ParsePoint(lat, lon string) (Point, error) {
	la, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return Point{}, apperrors.Wrap(apperrors.InvalidInput, "latitude is not a number", err)
	}
	lo, err := strconv.ParseFloat(lon, 64)
	if err != nil {
		return Point{}, apperrors.Wrap(apperrors.InvalidInput, "longitude is not a number", err)
	}
	p := Point{Lat: la, Lon: lo}
	return p, p.Validate()
}

// Haversine returns the great-circle distance in meters.
func Haversine(a, b Point) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(b.Lat - a.Lat)
	dLon := toRad(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// FormatDistance renders meters as "350m" below one kilometer and "1.2km" above.
func FormatDistance(meters float64) string {
	if r := math.Round(meters); r < 1000 {
		return fmt.Sprintf("%dm", int(r))
	}
	return fmt.Sprintf("%.1fkm", meters/1000)
}
