package reproject

import "math"

type albers struct {
	s      spheroid
	lon0   float64
	fe, fn float64
	n, c   float64
	rho0   float64
	qp     float64
}

func newAlbers(s spheroid, lat0, lon0, lat1, lat2, fe, fn float64) (*albers, error) {
	a := &albers{s: s, lon0: lon0, fe: fe, fn: fn}
	m1, m2 := msfn(lat1, s.e2), msfn(lat2, s.e2)
	a1, a2 := a.alpha(lat1), a.alpha(lat2)
	a.n = math.Sin(lat1)
	if math.Abs(lat1-lat2) > 1e-10 {
		a.n = (m1*m1 - m2*m2) / (a2 - a1)
	}
	if a.n == 0 || math.IsNaN(a.n) {
		return nil, errConeConstant
	}
	a.c = m1*m1 + a.n*a1
	a.rho0 = a.rhoOf(a.alpha(lat0))
	a.qp = a.alpha(math.Pi / 2)
	return a, nil
}

// alpha is the authalic function q(phi).
func (a *albers) alpha(phi float64) float64 {
	sp := math.Sin(phi)
	e, e2 := a.s.e, a.s.e2
	if e < 1e-12 {
		return 2 * sp
	}
	return (1 - e2) * (sp/(1-e2*sp*sp) - 1/(2*e)*math.Log((1-e*sp)/(1+e*sp)))
}

func (a *albers) rhoOf(q float64) float64 {
	return a.s.a * math.Sqrt(a.c-a.n*q) / a.n
}

func (a *albers) Forward(lam, phi float64) (float64, float64) {
	rho := a.rhoOf(a.alpha(phi))
	theta := a.n * (lam - a.lon0)
	return a.fe + rho*math.Sin(theta), a.fn + a.rho0 - rho*math.Cos(theta)
}

func (a *albers) Inverse(x, y float64) (float64, float64) {
	dx := x - a.fe
	dy := a.rho0 - (y - a.fn)
	sign := 1.0
	if a.n < 0 {
		sign = -1
	}
	rho := math.Hypot(dx, dy)
	theta := math.Atan2(sign*dx, sign*dy)
	q := (a.c - rho*rho*a.n*a.n/(a.s.a*a.s.a)) / a.n

	ratio := q / a.qp
	if math.Abs(ratio) > 1+1e-12 {
		return math.NaN(), math.NaN()
	}
	beta := math.Asin(math.Max(-1, math.Min(1, ratio)))
	e, e2 := a.s.e, a.s.e2
	e4, e6 := e2*e2, e2*e2*e2
	phi := beta +
		(e2/3+31*e4/180+517*e6/5040)*math.Sin(2*beta) +
		(23*e4/360+251*e6/3780)*math.Sin(4*beta) +
		(761*e6/45360)*math.Sin(6*beta)
	if e >= 1e-12 {
		for range 20 {
			sp := math.Sin(phi)
			d := 1 - e2*sp*sp
			dphi := d * d / (2 * math.Cos(phi)) *
				(q/(1-e2) - sp/d + 1/(2*e)*math.Log((1-e*sp)/(1+e*sp)))
			phi += dphi
			if math.Abs(dphi) < 1e-14 {
				break
			}
		}
	}
	return theta/a.n + a.lon0, phi
}
