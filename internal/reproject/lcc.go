package reproject

import (
	"errors"
	"math"
)

var errConeConstant = errors.New("standard parallels give a zero cone constant")

// lambertConic covers both the one and two standard parallel variants; they
// differ only in how n, F and k0 are derived.
type lambertConic struct {
	s      spheroid
	lon0   float64
	fe, fn float64
	n, f   float64
	k0     float64
	rho0   float64
}

func newLambertConic1SP(s spheroid, lat0, lon0, k0, fe, fn float64) (*lambertConic, error) {
	n := math.Sin(lat0)
	if n == 0 {
		return nil, errConeConstant
	}
	l := &lambertConic{s: s, lon0: lon0, fe: fe, fn: fn, n: n, k0: k0}
	l.f = msfn(lat0, s.e2) / (n * math.Pow(tsfn(lat0, s.e), n))
	l.rho0 = l.rho(lat0)
	return l, nil
}

func newLambertConic2SP(s spheroid, lat0, lon0, lat1, lat2, fe, fn float64) (*lambertConic, error) {
	m1, m2 := msfn(lat1, s.e2), msfn(lat2, s.e2)
	t1, t2 := tsfn(lat1, s.e), tsfn(lat2, s.e)
	n := math.Sin(lat1)
	if math.Abs(lat1-lat2) > 1e-10 {
		n = (math.Log(m1) - math.Log(m2)) / (math.Log(t1) - math.Log(t2))
	}
	if n == 0 || math.IsNaN(n) {
		return nil, errConeConstant
	}
	l := &lambertConic{s: s, lon0: lon0, fe: fe, fn: fn, n: n, k0: 1}
	l.f = m1 / (n * math.Pow(t1, n))
	l.rho0 = l.rho(lat0)
	return l, nil
}

func (l *lambertConic) rho(phi float64) float64 {
	return l.s.a * l.f * math.Pow(tsfn(phi, l.s.e), l.n) * l.k0
}

func (l *lambertConic) Forward(lam, phi float64) (float64, float64) {
	r := l.rho(phi)
	theta := l.n * (lam - l.lon0)
	return l.fe + r*math.Sin(theta), l.fn + l.rho0 - r*math.Cos(theta)
}

func (l *lambertConic) Inverse(x, y float64) (float64, float64) {
	dx := x - l.fe
	dy := l.rho0 - (y - l.fn)
	sign := 1.0
	if l.n < 0 {
		sign = -1
	}
	r := sign * math.Hypot(dx, dy)
	theta := math.Atan2(sign*dx, sign*dy)
	t := math.Pow(r/(l.s.a*l.f*l.k0), 1/l.n)
	return theta/l.n + l.lon0, phiFromT(t, l.s.e)
}
