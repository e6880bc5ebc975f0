package reproject

import (
	"math"

	"github.com/couchcryptid/shp-geojson-service/internal/crs"
	"github.com/golang/geo/s1"
)

var wgs84 = newSpheroid(crs.WGS84Ellipsoid)

// datumShift moves geodetic coordinates between a source datum and WGS84
// through geocentric cartesian space using a seven-parameter position-vector
// Helmert transform.
type datumShift struct {
	src spheroid
	t   [3]float64
	m   [3][3]float64
	inv [3][3]float64
}

func newDatumShift(d crs.Datum) *datumShift {
	var p [7]float64
	copy(p[:], d.ToWGS84)
	arcsec := func(v float64) float64 { return (s1.Angle(v) * s1.Degree / 3600).Radians() }
	rx, ry, rz := arcsec(p[3]), arcsec(p[4]), arcsec(p[5])
	k := 1 + p[6]*1e-6

	ds := &datumShift{src: newSpheroid(d.Ellipsoid), t: [3]float64{p[0], p[1], p[2]}}
	ds.m = [3][3]float64{
		{k, -k * rz, k * ry},
		{k * rz, k, -k * rx},
		{-k * ry, k * rx, k},
	}
	ds.inv = invert3(ds.m)
	return ds
}

func (d *datumShift) toWGS84(lam, phi float64) (float64, float64) {
	v := geodeticToGeocentric(d.src, lam, phi, 0)
	w := mul3(d.m, v)
	for i := range w {
		w[i] += d.t[i]
	}
	lam, phi, _ = geocentricToGeodetic(wgs84, w)
	return lam, phi
}

func (d *datumShift) fromWGS84(lam, phi float64) (float64, float64) {
	w := geodeticToGeocentric(wgs84, lam, phi, 0)
	for i := range w {
		w[i] -= d.t[i]
	}
	lam, phi, _ = geocentricToGeodetic(d.src, mul3(d.inv, w))
	return lam, phi
}

func geodeticToGeocentric(s spheroid, lam, phi, h float64) [3]float64 {
	sp, cp := math.Sincos(phi)
	n := s.a / math.Sqrt(1-s.e2*sp*sp)
	return [3]float64{
		(n + h) * cp * math.Cos(lam),
		(n + h) * cp * math.Sin(lam),
		((1-s.e2)*n + h) * sp,
	}
}

func geocentricToGeodetic(s spheroid, v [3]float64) (lam, phi, h float64) {
	x, y, z := v[0], v[1], v[2]
	p := math.Hypot(x, y)
	lam = math.Atan2(y, x)
	if p < 1e-9 {
		phi = math.Copysign(math.Pi/2, z)
		b := s.a * (1 - s.f)
		return lam, phi, math.Abs(z) - b
	}
	phi = math.Atan2(z, p*(1-s.e2))
	for range 10 {
		sp := math.Sin(phi)
		n := s.a / math.Sqrt(1-s.e2*sp*sp)
		h = p/math.Cos(phi) - n
		next := math.Atan2(z, p*(1-s.e2*n/(n+h)))
		if math.Abs(next-phi) < 1e-15 {
			phi = next
			break
		}
		phi = next
	}
	return lam, phi, h
}

func mul3(m [3][3]float64, v [3]float64) [3]float64 {
	return [3]float64{
		m[0][0]*v[0] + m[0][1]*v[1] + m[0][2]*v[2],
		m[1][0]*v[0] + m[1][1]*v[1] + m[1][2]*v[2],
		m[2][0]*v[0] + m[2][1]*v[1] + m[2][2]*v[2],
	}
}

func invert3(m [3][3]float64) [3][3]float64 {
	c00 := m[1][1]*m[2][2] - m[1][2]*m[2][1]
	c01 := m[1][2]*m[2][0] - m[1][0]*m[2][2]
	c02 := m[1][0]*m[2][1] - m[1][1]*m[2][0]
	det := m[0][0]*c00 + m[0][1]*c01 + m[0][2]*c02
	return [3][3]float64{
		{c00 / det, (m[0][2]*m[2][1] - m[0][1]*m[2][2]) / det, (m[0][1]*m[1][2] - m[0][2]*m[1][1]) / det},
		{c01 / det, (m[0][0]*m[2][2] - m[0][2]*m[2][0]) / det, (m[0][2]*m[1][0] - m[0][0]*m[1][2]) / det},
		{c02 / det, (m[0][1]*m[2][0] - m[0][0]*m[2][1]) / det, (m[0][0]*m[1][1] - m[0][1]*m[1][0]) / det},
	}
}
