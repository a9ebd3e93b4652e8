package ephemeris

import "math"

// WGS84 ellipsoid constants, kilometres.
const (
	wgs84SemiMajorKm   = 6378.137
	wgs84Eccentricity2 = 6.69437999014e-3
)

// Vec3 is an ECEF vector in kilometres.
type Vec3 struct {
	X, Y, Z float64
}

// Norm returns the Euclidean norm of the vector.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Sub returns v - other.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

// Dot returns the dot product of two vectors.
func (v Vec3) Dot(other Vec3) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// GeodeticToECEF converts a geodetic position (degrees, degrees, metres
// above the ellipsoid) to ECEF kilometres on the WGS84 ellipsoid.
func GeodeticToECEF(latDeg, lonDeg, altM float64) Vec3 {
	lat := latDeg * math.Pi / 180
	lon := lonDeg * math.Pi / 180
	altKm := altM / 1000

	sinLat := math.Sin(lat)
	cosLat := math.Cos(lat)
	// Prime vertical radius of curvature.
	n := wgs84SemiMajorKm / math.Sqrt(1-wgs84Eccentricity2*sinLat*sinLat)

	return Vec3{
		X: (n + altKm) * cosLat * math.Cos(lon),
		Y: (n + altKm) * cosLat * math.Sin(lon),
		Z: (n*(1-wgs84Eccentricity2) + altKm) * sinLat,
	}
}

// ElevationDegrees returns the elevation angle of the target as seen from
// the observer, in degrees. 0° = geometric horizon, 90° = overhead.
func ElevationDegrees(observer, target Vec3) float64 {
	// Vector from observer to target.
	v := target.Sub(observer)
	vNorm := v.Norm()
	if vNorm == 0 {
		return 90
	}

	// Local zenith at observer is its normalised position vector.
	r := observer.Norm()
	if r == 0 {
		return 90
	}
	zenith := Vec3{
		X: observer.X / r,
		Y: observer.Y / r,
		Z: observer.Z / r,
	}

	// Angle between v and zenith.
	cosGamma := v.Dot(zenith) / vNorm
	if cosGamma > 1 {
		cosGamma = 1
	} else if cosGamma < -1 {
		cosGamma = -1
	}
	gammaDeg := math.Acos(cosGamma) * 180.0 / math.Pi

	// Elevation is measured from local horizon (90° − zenith angle).
	return 90.0 - gammaDeg
}
