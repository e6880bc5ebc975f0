// Package crs resolves a shapefile's .prj into a coordinate reference system
// description that the reproject package can build transforms from.
package crs

import (
	"math"
	"strings"

	"github.com/golang/geo/s1"
)

// Kind distinguishes geographic (angular) from projected (planar) systems.
type Kind int

const (
	Geographic Kind = iota
	Projected
)

func (k Kind) String() string {
	if k == Projected {
		return "projected"
	}
	return "geographic"
}

// Method is a supported map projection method.
type Method string

const (
	MethodTransverseMercator Method = "transverse_mercator"
	MethodLambertConic1SP    Method = "lambert_conformal_conic_1sp"
	MethodLambertConic2SP    Method = "lambert_conformal_conic_2sp"
	MethodMercatorA          Method = "mercator_1sp"
	MethodMercatorB          Method = "mercator_2sp"
	MethodPseudoMercator     Method = "pseudo_mercator"
	MethodAlbers             Method = "albers_conic_equal_area"
)

// Ellipsoid is defined by its semi-major axis in metres and inverse
// flattening. InvF is zero for a sphere.
type Ellipsoid struct {
	Name string
	A    float64
	InvF float64
}

// Eccentricity returns the first eccentricity.
func (e Ellipsoid) Eccentricity() float64 {
	if e.InvF == 0 {
		return 0
	}
	f := 1 / e.InvF
	return math.Sqrt(2*f - f*f)
}

// Well-known ellipsoids.
var (
	WGS84Ellipsoid  = Ellipsoid{Name: "WGS 84", A: 6378137, InvF: 298.257223563}
	GRS80           = Ellipsoid{Name: "GRS 1980", A: 6378137, InvF: 298.257222101}
	Clarke1866      = Ellipsoid{Name: "Clarke 1866", A: 6378206.4, InvF: 294.9786982138982}
	Airy1830        = Ellipsoid{Name: "Airy 1830", A: 6377563.396, InvF: 299.3249646}
	International24 = Ellipsoid{Name: "International 1924", A: 6378388, InvF: 297}
)

// Datum is a geodetic datum. ToWGS84 holds the seven position-vector Helmert
// parameters (tx, ty, tz in metres; rx, ry, rz in arc-seconds; scale in ppm).
// A nil ToWGS84 means the shift is unknown and is treated as zero.
type Datum struct {
	Name      string
	Ellipsoid Ellipsoid
	ToWGS84   []float64
}

// ShiftIsNull reports whether no datum shift needs to be applied to reach
// WGS84.
func (d Datum) ShiftIsNull() bool {
	for _, v := range d.ToWGS84 {
		if v != 0 {
			return false
		}
	}
	return math.Abs(d.Ellipsoid.A-WGS84Ellipsoid.A) < 1e-3 &&
		math.Abs(d.Ellipsoid.InvF-WGS84Ellipsoid.InvF) < 1e-3
}

// Params holds projection parameters normalized to radians and metres.
type Params struct {
	Lat0, Lon0    float64
	Lat1, Lat2    float64
	K0            float64
	FalseEasting  float64
	FalseNorthing float64
}

// CRS is a resolved coordinate reference system.
type CRS struct {
	Name string
	// EPSG is the authority code, or zero if unknown.
	EPSG  int
	Kind  Kind
	Datum Datum
	// PrimeMeridian is the longitude of the prime meridian east of Greenwich,
	// in radians.
	PrimeMeridian float64
	// AngularUnit is radians per unit of geographic coordinates.
	AngularUnit float64
	// LinearUnit is metres per unit of projected coordinates.
	LinearUnit float64
	Method     Method
	Params     Params
}

// IsWGS84 reports whether coordinates in c are already WGS84 longitude and
// latitude in degrees, so that reprojection is the identity.
func (c *CRS) IsWGS84() bool {
	if c.Kind != Geographic || c.PrimeMeridian != 0 {
		return false
	}
	if math.Abs(c.AngularUnit-degree) > 1e-15 {
		return false
	}
	if c.EPSG == 4326 {
		return true
	}
	return isWGS84Name(c.Datum.Name) && c.Datum.ShiftIsNull()
}

func (c *CRS) String() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Kind.String()
}

var degree = (s1.Angle(1) * s1.Degree).Radians()

func radians(deg float64) float64 {
	return (s1.Angle(deg) * s1.Degree).Radians()
}

// normalizeName lowercases and strips everything but letters and digits, so
// that "D_North_American_1983" and "North American Datum 1983" compare close.
func normalizeName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isWGS84Name(name string) bool {
	switch strings.TrimPrefix(normalizeName(name), "d") {
	case "wgs1984", "wgs84", "worldgeodeticsystem1984":
		return true
	}
	return false
}
