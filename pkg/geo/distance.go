// Package geo holds the spherical-earth helpers used to filter and annotate
// station metadata.
package geo

import "math"

const (
	// EarthRadiusKm is the mean earth radius used by Distance.
	EarthRadiusKm = 6371.0
	// KmPerDegree approximates the length of one degree of arc at the equator.
	KmPerDegree = 111.195
)

// Point is a geographic position in decimal degrees.
type Point struct {
	Lat float64
	Lon float64
}

// Distance returns the great-circle distance in kilometers between two points
// given in decimal degrees, using the haversine formula.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := radians(lat1)
	phi2 := radians(lat2)
	dPhi := phi1 - phi2
	dLambda := radians(lon1) - radians(lon2)

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)
	a := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// DistanceTo returns the great-circle distance in kilometers from p to q.
func (p Point) DistanceTo(q Point) float64 {
	return Distance(p.Lat, p.Lon, q.Lat, q.Lon)
}

// KmToDegrees converts a surface distance to decimal degrees of arc.
func KmToDegrees(km float64) float64 {
	return km / KmPerDegree
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
