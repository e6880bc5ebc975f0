package reproject

import "math"

// maxEta bounds the normalized easting the inverse series can invert.
const maxEta = 2.623395162778

// transverseMercator is the JHS/Krüger series formulation, accurate to a few
// millimetres within several zones of the central meridian.
type transverseMercator struct {
	s        spheroid
	lon0, k0 float64
	fe, fn   float64
	b        float64
	h, hi    [4]float64
	m0       float64
}

func newTransverseMercator(s spheroid, lat0, lon0, k0, fe, fn float64) *transverseMercator {
	n := s.f / (2 - s.f)
	n2, n3, n4 := n*n, n*n*n, n*n*n*n
	t := &transverseMercator{s: s, lon0: lon0, k0: k0, fe: fe, fn: fn}
	t.b = s.a / (1 + n) * (1 + n2/4 + n4/64)
	t.h = [4]float64{
		n/2 - 2.0/3*n2 + 5.0/16*n3 + 41.0/180*n4,
		13.0/48*n2 - 3.0/5*n3 + 557.0/1440*n4,
		61.0/240*n3 - 103.0/140*n4,
		49561.0 / 161280 * n4,
	}
	t.hi = [4]float64{
		n/2 - 2.0/3*n2 + 37.0/96*n3 - 1.0/360*n4,
		1.0/48*n2 + 1.0/15*n3 - 437.0/1440*n4,
		17.0/480*n3 - 37.0/840*n4,
		4397.0 / 161280 * n4,
	}
	t.m0 = t.meridianArc(lat0)
	return t
}

func (t *transverseMercator) conformalLat(phi float64) float64 {
	e := t.s.e
	q := math.Asinh(math.Tan(phi)) - e*math.Atanh(e*math.Sin(phi))
	return math.Atan(math.Sinh(q))
}

func (t *transverseMercator) meridianArc(phi float64) float64 {
	switch {
	case phi == 0:
		return 0
	case math.Abs(phi-math.Pi/2) < 1e-15:
		return t.b * math.Pi / 2
	case math.Abs(phi+math.Pi/2) < 1e-15:
		return -t.b * math.Pi / 2
	}
	xi0 := t.conformalLat(phi)
	xi := xi0
	for k, h := range t.h {
		xi += h * math.Sin(float64(2*(k+1))*xi0)
	}
	return t.b * xi
}

func (t *transverseMercator) Forward(lam, phi float64) (float64, float64) {
	beta := t.conformalLat(phi)
	eta0 := math.Atanh(math.Cos(beta) * math.Sin(lam-t.lon0))
	xi0 := math.Asin(math.Sin(beta) * math.Cosh(eta0))
	xi, eta := xi0, eta0
	for k, h := range t.h {
		m := float64(2 * (k + 1))
		xi += h * math.Sin(m*xi0) * math.Cosh(m*eta0)
		eta += h * math.Cos(m*xi0) * math.Sinh(m*eta0)
	}
	return t.fe + t.k0*t.b*eta, t.fn + t.k0*(t.b*xi-t.m0)
}

func (t *transverseMercator) Inverse(x, y float64) (float64, float64) {
	eta := (x - t.fe) / (t.b * t.k0)
	xi := ((y - t.fn) + t.k0*t.m0) / (t.b * t.k0)
	// The series folds points past the pole or far off the central meridian
	// back onto finite but wrong coordinates.
	if math.Abs(xi) > math.Pi/2 || math.Abs(eta) > maxEta {
		return math.NaN(), math.NaN()
	}
	xi0, eta0 := xi, eta
	for k, h := range t.hi {
		m := float64(2 * (k + 1))
		xi0 -= h * math.Sin(m*xi) * math.Cosh(m*eta)
		eta0 -= h * math.Cos(m*xi) * math.Sinh(m*eta)
	}
	beta := math.Asin(math.Sin(xi0) / math.Cosh(eta0))
	q := math.Asinh(math.Tan(beta))
	e := t.s.e
	qq := q
	for range 30 {
		next := q + e*math.Atanh(e*math.Tanh(qq))
		if math.Abs(next-qq) < 1e-14 {
			qq = next
			break
		}
		qq = next
	}
	return t.lon0 + math.Asin(math.Tanh(eta0)/math.Cos(beta)), math.Atan(math.Sinh(qq))
}
