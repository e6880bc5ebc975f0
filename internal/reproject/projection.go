// Package reproject transforms decoded coordinates from a source CRS into
// WGS84 longitude and latitude.
//
// Projection formulas follow IOGP Guidance Note 7-2. Longitudes and
// latitudes inside this package are radians; eastings and northings are
// metres.
package reproject

import (
	"fmt"
	"math"

	"github.com/couchcryptid/shp-geojson-service/internal/crs"
)

// Projection maps geodetic coordinates on its ellipsoid to a plane and back.
type Projection interface {
	Forward(lam, phi float64) (x, y float64)
	Inverse(x, y float64) (lam, phi float64)
}

// spheroid carries the derived constants every projection needs.
type spheroid struct {
	a, f, e, e2 float64
}

func newSpheroid(el crs.Ellipsoid) spheroid {
	var f float64
	if el.InvF != 0 {
		f = 1 / el.InvF
	}
	e2 := 2*f - f*f
	return spheroid{a: el.A, f: f, e: math.Sqrt(e2), e2: e2}
}

// newProjection builds the projection named by a projected CRS.
func newProjection(c *crs.CRS) (Projection, error) {
	s := newSpheroid(c.Datum.Ellipsoid)
	p := c.Params
	switch c.Method {
	case crs.MethodTransverseMercator:
		return newTransverseMercator(s, p.Lat0, p.Lon0, p.K0, p.FalseEasting, p.FalseNorthing), nil
	case crs.MethodLambertConic1SP:
		return newLambertConic1SP(s, p.Lat0, p.Lon0, p.K0, p.FalseEasting, p.FalseNorthing)
	case crs.MethodLambertConic2SP:
		return newLambertConic2SP(s, p.Lat0, p.Lon0, p.Lat1, p.Lat2, p.FalseEasting, p.FalseNorthing)
	case crs.MethodMercatorA:
		return newMercator(s, p.Lon0, p.K0, p.FalseEasting, p.FalseNorthing), nil
	case crs.MethodMercatorB:
		return newMercator(s, p.Lon0, msfn(p.Lat1, s.e2), p.FalseEasting, p.FalseNorthing), nil
	case crs.MethodPseudoMercator:
		// Ellipsoidal coordinates projected as if on a sphere of radius a.
		sphere := spheroid{a: s.a}
		return newMercator(sphere, p.Lon0, 1, p.FalseEasting, p.FalseNorthing), nil
	case crs.MethodAlbers:
		return newAlbers(s, p.Lat0, p.Lon0, p.Lat1, p.Lat2, p.FalseEasting, p.FalseNorthing)
	default:
		return nil, fmt.Errorf("no projection for method %q", c.Method)
	}
}

// tsfn is the conformal latitude function t(phi).
func tsfn(phi, e float64) float64 {
	es := e * math.Sin(phi)
	return math.Tan(math.Pi/4-phi/2) / math.Pow((1-es)/(1+es), e/2)
}

// msfn is m(phi) = cos(phi) / sqrt(1 - e2 sin^2(phi)).
func msfn(phi, e2 float64) float64 {
	s := math.Sin(phi)
	return math.Cos(phi) / math.Sqrt(1-e2*s*s)
}

// phiFromT inverts tsfn by fixed-point iteration.
func phiFromT(t, e float64) float64 {
	phi := math.Pi/2 - 2*math.Atan(t)
	for range 30 {
		es := e * math.Sin(phi)
		next := math.Pi/2 - 2*math.Atan(t*math.Pow((1-es)/(1+es), e/2))
		if math.Abs(next-phi) < 1e-14 {
			return next
		}
		phi = next
	}
	return phi
}
