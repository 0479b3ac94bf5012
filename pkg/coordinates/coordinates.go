package coordinates

import (
	"math"
)

// Constants for coordinate and unit calculations
const (
	// DegreesToRadians converts degrees to radians
	DegreesToRadians = math.Pi / 180.0

	// RadiansToDegrees converts radians to degrees
	RadiansToDegrees = 180.0 / math.Pi

	// EarthRadiusKm is the Earth's radius in kilometers (WGS84 mean radius)
	EarthRadiusKm = 6371.0

	// EarthRadiusMeters is the Earth's radius in meters
	EarthRadiusMeters = EarthRadiusKm * 1000.0

	// FeetToMeters converts feet to meters
	FeetToMeters = 0.3048

	// MetersToFeet converts meters to feet
	MetersToFeet = 3.28084

	// KnotsToMetersPerSecond converts knots to meters per second
	// (1 knot = 1852 m / 3600 s)
	KnotsToMetersPerSecond = 1852.0 / 3600.0

	// MetersPerNauticalMile converts nautical miles to meters
	MetersPerNauticalMile = 1852.0
)

// Geographic represents a position on Earth's surface.
// Uses the WGS84 coordinate system (same as GPS).
type Geographic struct {
	// Latitude in decimal degrees (-90 to +90)
	// Positive = North, Negative = South
	Latitude float64

	// Longitude in decimal degrees (-180 to +180)
	// Positive = East, Negative = West
	Longitude float64

	// Altitude in meters above mean sea level (MSL)
	Altitude float64
}

// ToRadians converts the Geographic coordinates to radians.
// Returns (latRad, lonRad, altMeters).
func (g Geographic) ToRadians() (float64, float64, float64) {
	return g.Latitude * DegreesToRadians,
		g.Longitude * DegreesToRadians,
		g.Altitude
}

// NormalizeAzimuth ensures a compass direction is in the range [0, 360).
func NormalizeAzimuth(azimuth float64) float64 {
	az := math.Mod(azimuth, 360.0)
	if az < 0 {
		az += 360.0
	}
	return az
}

// NormalizeAngle normalizes an angle to the [-180, 180] range.
// Useful for track-error comparisons where the direction of the error matters.
func NormalizeAngle(angle float64) float64 {
	for angle > 180.0 {
		angle -= 360.0
	}
	for angle < -180.0 {
		angle += 360.0
	}
	return angle
}

// Bearing calculates the initial bearing (forward azimuth) from one point to another.
// Uses spherical trigonometry to calculate the bearing along a great circle.
// Returns bearing in degrees (0-360), where 0/360 = North, 90 = East, 180 = South, 270 = West.
func Bearing(from, to Geographic) float64 {
	lat1 := from.Latitude * DegreesToRadians
	lon1 := from.Longitude * DegreesToRadians
	lat2 := to.Latitude * DegreesToRadians
	lon2 := to.Longitude * DegreesToRadians

	dLon := lon2 - lon1
	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	bearing := math.Atan2(y, x) * RadiansToDegrees

	// Normalize to 0-360
	if bearing < 0 {
		bearing += 360
	}

	return bearing
}

// DistanceMeters calculates the great-circle distance between two points.
// Uses the Haversine formula for accuracy over short and long distances.
// Returns distance in meters.
func DistanceMeters(from, to Geographic) float64 {
	lat1Rad := from.Latitude * DegreesToRadians
	lon1Rad := from.Longitude * DegreesToRadians
	lat2Rad := to.Latitude * DegreesToRadians
	lon2Rad := to.Longitude * DegreesToRadians

	dLat := lat2Rad - lat1Rad
	dLon := lon2Rad - lon1Rad

	// Haversine formula
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

// DistanceNauticalMiles calculates the great-circle distance between two points.
// Returns distance in nautical miles.
func DistanceNauticalMiles(from, to Geographic) float64 {
	return DistanceMeters(from, to) / MetersPerNauticalMile
}

// BlendSpeed combines a live measured speed with a planned/expected speed,
// producing a more stable estimate than either alone. Both speeds are in knots.
//
// The blend is a flat average of the two values. When no planned speed is
// available (zero or negative), the live speed is used unmodified.
func BlendSpeed(liveKnots, plannedKnots float64) float64 {
	if plannedKnots <= 0 {
		return liveKnots
	}
	return (liveKnots + plannedKnots) / 2.0
}

// CrossTrackDistanceNM calculates the perpendicular distance from a point to
// the great-circle path between two other points.
// Returns distance in nautical miles.
func CrossTrackDistanceNM(point, lineStart, lineEnd Geographic) float64 {
	pLat := point.Latitude * DegreesToRadians
	pLon := point.Longitude * DegreesToRadians
	sLat := lineStart.Latitude * DegreesToRadians
	sLon := lineStart.Longitude * DegreesToRadians
	eLat := lineEnd.Latitude * DegreesToRadians
	eLon := lineEnd.Longitude * DegreesToRadians

	// Angular distance from start to point
	d13 := math.Acos(clamp(
		math.Sin(sLat)*math.Sin(pLat)+
			math.Cos(sLat)*math.Cos(pLat)*math.Cos(pLon-sLon),
		-1, 1,
	))

	// Bearing from start to point
	bearing13 := math.Atan2(
		math.Sin(pLon-sLon)*math.Cos(pLat),
		math.Cos(sLat)*math.Sin(pLat)-math.Sin(sLat)*math.Cos(pLat)*math.Cos(pLon-sLon),
	)

	// Bearing from start to end
	bearing12 := math.Atan2(
		math.Sin(eLon-sLon)*math.Cos(eLat),
		math.Cos(sLat)*math.Sin(eLat)-math.Sin(sLat)*math.Cos(eLat)*math.Cos(eLon-sLon),
	)

	// Cross-track distance (perpendicular distance to the great circle)
	dxt := math.Asin(math.Sin(d13) * math.Sin(bearing13-bearing12))

	return math.Abs(dxt) * EarthRadiusKm / 1.852
}

// AlongTrackFraction calculates how far along the great-circle segment from
// lineStart to lineEnd the projection of point falls. 0 = at the start,
// 1 = at the end. Values outside [0, 1] mean the projection lies beyond the
// segment endpoints.
func AlongTrackFraction(point, lineStart, lineEnd Geographic) float64 {
	segment := DistanceMeters(lineStart, lineEnd)
	if segment <= 0 {
		return 0
	}

	pLat := point.Latitude * DegreesToRadians
	pLon := point.Longitude * DegreesToRadians
	sLat := lineStart.Latitude * DegreesToRadians
	sLon := lineStart.Longitude * DegreesToRadians

	// Angular distance from start to point
	d13 := math.Acos(clamp(
		math.Sin(sLat)*math.Sin(pLat)+
			math.Cos(sLat)*math.Cos(pLat)*math.Cos(pLon-sLon),
		-1, 1,
	))

	dxtNM := CrossTrackDistanceNM(point, lineStart, lineEnd)
	dxt := dxtNM * 1.852 / EarthRadiusKm

	// Along-track angular distance from start to the projection point
	cosDat := math.Cos(d13) / math.Cos(dxt)
	dat := math.Acos(clamp(cosDat, -1, 1))

	// If the point is behind the start (bearing difference > 90°), the
	// projection falls before the segment.
	bearingToPoint := Bearing(lineStart, point)
	bearingToEnd := Bearing(lineStart, lineEnd)
	if math.Abs(NormalizeAngle(bearingToPoint-bearingToEnd)) > 90.0 {
		dat = -dat
	}

	return dat * EarthRadiusMeters / segment
}

// InterpolateGreatCircle finds a point along a great circle path.
// fraction=0 returns the start point, fraction=1 returns the end point.
//
// Uses spherical linear interpolation (slerp) formula.
func InterpolateGreatCircle(from, to Geographic, fraction float64) Geographic {
	lat1Rad := from.Latitude * DegreesToRadians
	lon1Rad := from.Longitude * DegreesToRadians
	lat2Rad := to.Latitude * DegreesToRadians
	lon2Rad := to.Longitude * DegreesToRadians

	// Angular distance between the points
	d := math.Acos(clamp(
		math.Sin(lat1Rad)*math.Sin(lat2Rad)+
			math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Cos(lon2Rad-lon1Rad),
		-1, 1,
	))

	// Handle case where points are very close
	if d < 1e-10 {
		return from
	}

	a := math.Sin((1-fraction)*d) / math.Sin(d)
	b := math.Sin(fraction*d) / math.Sin(d)

	// Convert to Cartesian coordinates
	x := a*math.Cos(lat1Rad)*math.Cos(lon1Rad) + b*math.Cos(lat2Rad)*math.Cos(lon2Rad)
	y := a*math.Cos(lat1Rad)*math.Sin(lon1Rad) + b*math.Cos(lat2Rad)*math.Sin(lon2Rad)
	z := a*math.Sin(lat1Rad) + b*math.Sin(lat2Rad)

	// Convert back to geographic
	latRad := math.Atan2(z, math.Sqrt(x*x+y*y))
	lonRad := math.Atan2(y, x)

	return Geographic{
		Latitude:  latRad * RadiansToDegrees,
		Longitude: lonRad * RadiansToDegrees,
	}
}

// PointAtBearing calculates the position reached by travelling distanceMeters
// from a starting point along an initial bearing, following a great circle.
func PointAtBearing(from Geographic, bearingDeg, distanceMeters float64) Geographic {
	latRad := from.Latitude * DegreesToRadians
	lonRad := from.Longitude * DegreesToRadians
	bearingRad := bearingDeg * DegreesToRadians

	angularDistance := distanceMeters / EarthRadiusMeters

	newLatRad := math.Asin(
		math.Sin(latRad)*math.Cos(angularDistance) +
			math.Cos(latRad)*math.Sin(angularDistance)*math.Cos(bearingRad),
	)
	newLonRad := lonRad + math.Atan2(
		math.Sin(bearingRad)*math.Sin(angularDistance)*math.Cos(latRad),
		math.Cos(angularDistance)-math.Sin(latRad)*math.Sin(newLatRad),
	)

	newLon := newLonRad * RadiansToDegrees
	if newLon > 180.0 {
		newLon -= 360.0
	} else if newLon < -180.0 {
		newLon += 360.0
	}

	return Geographic{
		Latitude:  newLatRad * RadiansToDegrees,
		Longitude: newLon,
		Altitude:  from.Altitude,
	}
}

// clamp bounds v to the [lo, hi] interval. Guards acos/asin against
// floating-point drift just outside the valid domain.
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
