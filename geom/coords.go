package geom

import "math"

// EarthRadius is the reference Earth radius in kilometers.
const EarthRadius = 6371.0

// Vec3 is a point in a three dimensional coordinate frame.
// Which frame is meant depends on context: spherical
// coordinates are (rho, theta, phi) with rho the radius in
// kilometers, theta the polar angle and phi the azimuth,
// both in radians.
type Vec3 [3]float64

// Add returns the component-wise sum v + w.
func (v Vec3) Add(w Vec3) Vec3 {
	return Vec3{v[0] + w[0], v[1] + w[1], v[2] + w[2]}
}

// Sub returns the component-wise difference v - w.
func (v Vec3) Sub(w Vec3) Vec3 {
	return Vec3{v[0] - w[0], v[1] - w[1], v[2] - w[2]}
}

// Scale returns v scaled by s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v[0] * s, v[1] * s, v[2] * s}
}

// Norm returns the Euclidean length of v.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// GeoToSph converts geographic coordinates (latitude and
// longitude in degrees, depth in kilometers below the
// reference radius) to spherical coordinates.
func GeoToSph(lat, lon, depth float64) Vec3 {
	return Vec3{
		EarthRadius - depth,
		math.Pi/2 - lat*math.Pi/180,
		lon * math.Pi / 180,
	}
}

// SphToGeo converts spherical coordinates back to
// geographic latitude, longitude and depth.
func SphToGeo(v Vec3) (lat, lon, depth float64) {
	lat = (math.Pi/2 - v[1]) * 180 / math.Pi
	lon = v[2] * 180 / math.Pi
	depth = EarthRadius - v[0]
	return lat, lon, depth
}

// SphToXYZ converts spherical coordinates to Cartesian
// coordinates centered on the Earth's center. Nearest
// neighbor queries only make sense in this frame.
func SphToXYZ(v Vec3) Vec3 {
	rho, theta, phi := v[0], v[1], v[2]
	sinTheta := math.Sin(theta)
	return Vec3{
		rho * sinTheta * math.Cos(phi),
		rho * sinTheta * math.Sin(phi),
		rho * math.Cos(theta),
	}
}

// XYZToSph converts Cartesian coordinates back to
// spherical coordinates.
func XYZToSph(v Vec3) Vec3 {
	rho := v.Norm()
	if rho == 0 {
		return Vec3{}
	}
	return Vec3{
		rho,
		math.Acos(v[2] / rho),
		math.Atan2(v[1], v[0]),
	}
}
