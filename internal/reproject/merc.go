package reproject

import "math"

// mercator is the normal Mercator. Variant B is expressed as variant A with
// k0 taken from the standard parallel; Web Mercator uses e = 0.
type mercator struct {
	s      spheroid
	lon0   float64
	k0     float64
	fe, fn float64
}

func newMercator(s spheroid, lon0, k0, fe, fn float64) *mercator {
	return &mercator{s: s, lon0: lon0, k0: k0, fe: fe, fn: fn}
}

func (m *mercator) Forward(lam, phi float64) (float64, float64) {
	ak := m.s.a * m.k0
	return m.fe + ak*(lam-m.lon0), m.fn - ak*math.Log(tsfn(phi, m.s.e))
}

func (m *mercator) Inverse(x, y float64) (float64, float64) {
	ak := m.s.a * m.k0
	t := math.Exp((m.fn - y) / ak)
	return (x-m.fe)/ak + m.lon0, phiFromT(t, m.s.e)
}
