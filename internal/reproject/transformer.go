package reproject

import (
	"math"

	"github.com/couchcryptid/shp-geojson-service/internal/crs"
	"github.com/couchcryptid/shp-geojson-service/internal/domain"
	"github.com/golang/geo/s1"
)

// latTolerance absorbs rounding at the poles before a latitude is rejected.
const latTolerance = 1e-9

// Transformer converts coordinates between one source CRS and WGS84.
type Transformer struct {
	src      *crs.CRS
	proj     Projection
	shift    *datumShift
	identity bool
}

// New builds a transformer for src. A WGS84 geographic source yields an
// identity transformer that returns coordinates unchanged.
func New(src *crs.CRS) (*Transformer, error) {
	t := &Transformer{src: src, identity: src.IsWGS84()}
	if t.identity {
		return t, nil
	}
	if src.Kind == crs.Projected {
		p, err := newProjection(src)
		if err != nil {
			return nil, domain.Errorf(domain.KindCRS, "%s: %w", src, err)
		}
		t.proj = p
	}
	if !src.Datum.ShiftIsNull() {
		t.shift = newDatumShift(src.Datum)
	}
	return t, nil
}

// Identity reports whether the transform leaves coordinates untouched.
func (t *Transformer) Identity() bool { return t.identity }

// ToWGS84 maps a source coordinate to longitude and latitude in degrees.
// Z passes through unchanged.
func (t *Transformer) ToWGS84(c domain.Coord) (domain.Coord, error) {
	if t.identity {
		return c, nil
	}
	var lam, phi float64
	if t.proj != nil {
		lam, phi = t.proj.Inverse(c.X*t.src.LinearUnit, c.Y*t.src.LinearUnit)
	} else {
		lam, phi = c.X*t.src.AngularUnit, c.Y*t.src.AngularUnit
	}
	lam += t.src.PrimeMeridian
	if t.shift != nil {
		lam, phi = t.shift.toWGS84(lam, phi)
	}

	phi, ok := clampLatitude(phi)
	if !ok || math.IsNaN(lam) || math.IsInf(lam, 0) {
		return domain.Coord{}, domain.Errorf(domain.KindReprojection,
			"coordinate (%g, %g) has no WGS84 equivalent in %s", c.X, c.Y, t.src)
	}
	if t.proj != nil || t.src.PrimeMeridian != 0 {
		lam = wrapLongitude(lam)
	}
	return domain.Coord{X: s1.Angle(lam).Degrees(), Y: s1.Angle(phi).Degrees(), Z: c.Z}, nil
}

// FromWGS84 maps longitude and latitude in degrees back into the source CRS.
func (t *Transformer) FromWGS84(c domain.Coord) (domain.Coord, error) {
	if t.identity {
		return c, nil
	}
	if math.IsNaN(c.Y) || math.Abs(c.Y) > 90 || math.IsNaN(c.X) || math.IsInf(c.X, 0) {
		return domain.Coord{}, domain.Errorf(domain.KindReprojection,
			"(%g, %g) is not a valid longitude and latitude", c.X, c.Y)
	}
	lam := (s1.Angle(c.X) * s1.Degree).Radians()
	phi := (s1.Angle(c.Y) * s1.Degree).Radians()
	if t.shift != nil {
		lam, phi = t.shift.fromWGS84(lam, phi)
	}
	lam -= t.src.PrimeMeridian

	var x, y float64
	if t.proj != nil {
		x, y = t.proj.Forward(lam, phi)
		x, y = x/t.src.LinearUnit, y/t.src.LinearUnit
	} else {
		x, y = lam/t.src.AngularUnit, phi/t.src.AngularUnit
	}
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return domain.Coord{}, domain.Errorf(domain.KindReprojection,
			"coordinate (%g, %g) cannot be projected into %s", c.X, c.Y, t.src)
	}
	return domain.Coord{X: x, Y: y, Z: c.Z}, nil
}

func clampLatitude(phi float64) (float64, bool) {
	if math.IsNaN(phi) {
		return 0, false
	}
	switch {
	case phi > math.Pi/2+latTolerance, phi < -math.Pi/2-latTolerance:
		return 0, false
	case phi > math.Pi/2:
		return math.Pi / 2, true
	case phi < -math.Pi/2:
		return -math.Pi / 2, true
	}
	return phi, true
}

func wrapLongitude(lam float64) float64 {
	if lam >= -math.Pi && lam <= math.Pi {
		return lam
	}
	return math.Remainder(lam, 2*math.Pi)
}
