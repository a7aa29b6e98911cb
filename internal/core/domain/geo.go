package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrPartialCoordinate is returned when only one of lat and lng is given.
	ErrPartialCoordinate = errors.New("lat and lng must be given together")
	// ErrCoordinateRange is returned for a point outside WGS 84 ranges.
	ErrCoordinateRange = errors.New("coordinate out of range")
)

// GeoPoint represents a geographic coordinate (WGS 84). A GeoPoint is always a
// complete pair; an absent coordinate is expressed as a nil *GeoPoint.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the point lies within WGS 84 ranges.
func (p GeoPoint) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// CoordinateOf builds a point from optional halves. It returns nil when both
// are absent, ErrPartialCoordinate when only one is, and ErrCoordinateRange
// when the pair is out of range.
func CoordinateOf(lat, lng *float64) (*GeoPoint, error) {
	switch {
	case lat == nil && lng == nil:
		return nil, nil
	case lat == nil || lng == nil:
		return nil, ErrPartialCoordinate
	}
	p := GeoPoint{Lat: *lat, Lng: *lng}
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrCoordinateRange, p)
	}
	return &p, nil
}

// UnmarshalJSON requires both lat and lng within range.
func (p *GeoPoint) UnmarshalJSON(data []byte) error {
	var raw struct {
		Lat *float64 `json:"lat"`
		Lng *float64 `json:"lng"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	pt, err := CoordinateOf(raw.Lat, raw.Lng)
	if err != nil {
		return err
	}
	if pt == nil {
		return ErrPartialCoordinate
	}
	*p = *pt
	return nil
}

func (p GeoPoint) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", p.Lat, p.Lng)
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`
}

// Contains reports whether p lies inside the box, edges included.
func (b Bounds) Contains(p GeoPoint) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat &&
		p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}

// Center returns the midpoint of the box.
func (b Bounds) Center() GeoPoint {
	return GeoPoint{
		Lat: (b.MinLat + b.MaxLat) / 2,
		Lng: (b.MinLng + b.MaxLng) / 2,
	}
}

// Empty reports whether the box has no area.
func (b Bounds) Empty() bool {
	return b.MaxLat <= b.MinLat || b.MaxLng <= b.MinLng
}
