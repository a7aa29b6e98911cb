package geospatial

import (
	"math"

	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/domain"
)

const (
	earthRadiusKm = 6371.0
	// Web Mercator ground resolution at zoom 0 on the equator, 256px tiles.
	metersPerPixelZ0 = 156543.03392
)

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(a, b domain.GeoPoint) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c * 1000 // meters
}

// MetersPerPixel returns the ground resolution at lat for a zoom level.
func MetersPerPixel(lat, zoom float64) float64 {
	return metersPerPixelZ0 * math.Cos(toRad(lat)) / math.Pow(2, zoom)
}

// Viewport returns the box visible around center for a screen of
// width x height pixels at the given zoom.
func Viewport(center domain.GeoPoint, zoom float64, width, height int) domain.Bounds {
	mpp := MetersPerPixel(center.Lat, zoom)
	halfW := float64(width) / 2 * mpp
	halfH := float64(height) / 2 * mpp

	latDelta := halfH / 111320.0
	lngDelta := halfW / (111320.0 * math.Cos(toRad(center.Lat)))

	return domain.Bounds{
		MinLat: math.Max(center.Lat-latDelta, -90),
		MinLng: math.Max(center.Lng-lngDelta, -180),
		MaxLat: math.Min(center.Lat+latDelta, 90),
		MaxLng: math.Min(center.Lng+lngDelta, 180),
	}
}

// ZoomToFit returns the largest zoom at which b fits a width x height screen.
func ZoomToFit(b domain.Bounds, width, height int) float64 {
	center := b.Center()
	spanW := Haversine(domain.GeoPoint{Lat: center.Lat, Lng: b.MinLng}, domain.GeoPoint{Lat: center.Lat, Lng: b.MaxLng})
	spanH := Haversine(domain.GeoPoint{Lat: b.MinLat, Lng: center.Lng}, domain.GeoPoint{Lat: b.MaxLat, Lng: center.Lng})
	if spanW <= 0 && spanH <= 0 {
		return math.Inf(1)
	}

	cos := math.Cos(toRad(center.Lat))
	zoomW, zoomH := math.Inf(1), math.Inf(1)
	if spanW > 0 {
		zoomW = math.Log2(metersPerPixelZ0 * cos * float64(width) / spanW)
	}
	if spanH > 0 {
		zoomH = math.Log2(metersPerPixelZ0 * cos * float64(height) / spanH)
	}
	return math.Floor(math.Min(zoomW, zoomH))
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
