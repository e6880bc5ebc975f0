package crs

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var errNotHorizontal = errors.New("no horizontal coordinate system")

// fromWKT converts a parsed WKT1 tree into a CRS.
func fromWKT(root *node) (*CRS, error) {
	switch root.keyword {
	case "PROJCS":
		return buildProjected(root)
	case "GEOGCS":
		return buildGeographic(root)
	case "COMPD_CS":
		// The vertical component does not affect horizontal reprojection.
		if n := root.child("PROJCS"); n != nil {
			return buildProjected(n)
		}
		if n := root.child("GEOGCS"); n != nil {
			return buildGeographic(n)
		}
		return nil, errNotHorizontal
	case "PROJCRS", "GEOGCRS", "GEODCRS", "COMPOUNDCRS", "BOUNDCRS":
		return nil, fmt.Errorf("WKT2 %s is not supported", root.keyword)
	default:
		return nil, fmt.Errorf("unsupported coordinate system type %s", root.keyword)
	}
}

func buildGeographic(n *node) (*CRS, error) {
	datumNode := n.child("DATUM")
	if datumNode == nil {
		return nil, fmt.Errorf("GEOGCS %q has no DATUM", n.name())
	}
	datum, err := buildDatum(datumNode)
	if err != nil {
		return nil, err
	}

	unit := degree
	if u := n.child("UNIT"); u != nil {
		nums := u.numbers()
		if len(nums) == 0 || nums[0] <= 0 {
			return nil, fmt.Errorf("GEOGCS %q has invalid angular UNIT", n.name())
		}
		unit = nums[0]
	}

	var pm float64
	if p := n.child("PRIMEM"); p != nil {
		nums := p.numbers()
		if len(nums) == 0 {
			return nil, fmt.Errorf("PRIMEM %q has no longitude", p.name())
		}
		pm = nums[0] * unit
	}

	return &CRS{
		Name:          n.name(),
		EPSG:          authorityCode(n),
		Kind:          Geographic,
		Datum:         datum,
		PrimeMeridian: pm,
		AngularUnit:   unit,
		LinearUnit:    1,
	}, nil
}

func buildDatum(n *node) (Datum, error) {
	sph := n.child("SPHEROID")
	if sph == nil {
		sph = n.child("ELLIPSOID")
	}
	if sph == nil {
		return Datum{}, fmt.Errorf("DATUM %q has no SPHEROID", n.name())
	}
	nums := sph.numbers()
	if len(nums) < 2 || nums[0] <= 0 || nums[1] < 0 {
		return Datum{}, fmt.Errorf("SPHEROID %q has invalid axes", sph.name())
	}
	d := Datum{
		Name:      n.name(),
		Ellipsoid: Ellipsoid{Name: sph.name(), A: nums[0], InvF: nums[1]},
	}

	if tw := n.child("TOWGS84"); tw != nil {
		p := tw.numbers()
		switch len(p) {
		case 3:
			d.ToWGS84 = []float64{p[0], p[1], p[2], 0, 0, 0, 0}
		case 7:
			d.ToWGS84 = p
		default:
			return Datum{}, fmt.Errorf("TOWGS84 needs 3 or 7 values, got %d", len(p))
		}
	} else if known, ok := knownDatumShift(d.Name); ok {
		d.ToWGS84 = known
	}
	return d, nil
}

func buildProjected(n *node) (*CRS, error) {
	geog := n.child("GEOGCS")
	if geog == nil {
		return nil, fmt.Errorf("PROJCS %q has no GEOGCS", n.name())
	}
	c, err := buildGeographic(geog)
	if err != nil {
		return nil, err
	}
	c.Name = n.name()
	c.EPSG = authorityCode(n)
	c.Kind = Projected

	c.LinearUnit = 1
	if u := n.child("UNIT"); u != nil {
		nums := u.numbers()
		if len(nums) == 0 || nums[0] <= 0 {
			return nil, fmt.Errorf("PROJCS %q has invalid linear UNIT", n.name())
		}
		c.LinearUnit = nums[0]
	}

	proj := n.child("PROJECTION")
	if proj == nil || proj.name() == "" {
		return nil, fmt.Errorf("PROJCS %q has no PROJECTION", n.name())
	}

	params := paramSet{}
	for _, p := range n.children("PARAMETER") {
		nums := p.numbers()
		if len(nums) == 0 {
			return nil, fmt.Errorf("PARAMETER %q has no value", p.name())
		}
		params[normalizeName(p.name())] = nums[0]
	}

	method, err := resolveMethod(proj.name(), params, n)
	if err != nil {
		return nil, err
	}
	c.Method = method
	c.Params, err = buildParams(method, params, c.AngularUnit, c.LinearUnit)
	if err != nil {
		return nil, fmt.Errorf("PROJCS %q: %w", n.name(), err)
	}
	return c, nil
}

type paramSet map[string]float64

func (p paramSet) get(names ...string) (float64, bool) {
	for _, name := range names {
		if v, ok := p[name]; ok {
			return v, true
		}
	}
	return 0, false
}

func resolveMethod(name string, params paramSet, projcs *node) (Method, error) {
	switch normalizeName(name) {
	case "transversemercator", "gausskruger":
		return MethodTransverseMercator, nil
	case "lambertconformalconic2sp":
		return MethodLambertConic2SP, nil
	case "lambertconformalconic1sp":
		return MethodLambertConic1SP, nil
	case "lambertconformalconic":
		if _, ok := params.get("standardparallel2"); ok {
			return MethodLambertConic2SP, nil
		}
		return MethodLambertConic1SP, nil
	case "mercator1sp", "mercatorvarianta":
		if isSphericalMercatorExtension(projcs) {
			return MethodPseudoMercator, nil
		}
		return MethodMercatorA, nil
	case "mercator2sp", "mercatorvariantb":
		return MethodMercatorB, nil
	case "mercator":
		if isSphericalMercatorExtension(projcs) {
			return MethodPseudoMercator, nil
		}
		if _, ok := params.get("standardparallel1"); ok {
			return MethodMercatorB, nil
		}
		return MethodMercatorA, nil
	case "mercatorauxiliarysphere", "popularvisualisationpseudomercator":
		return MethodPseudoMercator, nil
	case "albersconicequalarea", "albers", "albersequalarea":
		return MethodAlbers, nil
	default:
		return "", fmt.Errorf("unsupported projection %q", name)
	}
}

// isSphericalMercatorExtension recognizes the EXTENSION["PROJ4",...] marker
// that older exports attach to Web Mercator definitions.
func isSphericalMercatorExtension(projcs *node) bool {
	ext := projcs.child("EXTENSION")
	if ext == nil || len(ext.args) < 2 {
		return false
	}
	proj4 := ext.args[1].str
	return strings.Contains(proj4, "+nadgrids=@null") ||
		(strings.Contains(proj4, "+a=6378137") && strings.Contains(proj4, "+b=6378137"))
}

func buildParams(method Method, params paramSet, angular, linear float64) (Params, error) {
	var p Params
	p.K0 = 1
	if v, ok := params.get("scalefactor", "scalefactoratnaturalorigin"); ok {
		p.K0 = v
	}
	if v, ok := params.get("falseeasting", "eastingatfalseorigin"); ok {
		p.FalseEasting = v * linear
	}
	if v, ok := params.get("falsenorthing", "northingatfalseorigin"); ok {
		p.FalseNorthing = v * linear
	}
	if v, ok := params.get("centralmeridian", "longitudeofcenter", "longitudeoforigin", "longitudeofnaturalorigin"); ok {
		p.Lon0 = v * angular
	}
	lat0, hasLat0 := params.get("latitudeoforigin", "latitudeofcenter", "latitudeofnaturalorigin")
	p.Lat0 = lat0 * angular
	lat1, hasLat1 := params.get("standardparallel1")
	p.Lat1 = lat1 * angular
	lat2, hasLat2 := params.get("standardparallel2")
	p.Lat2 = lat2 * angular

	switch method {
	case MethodLambertConic2SP, MethodAlbers:
		if !hasLat1 || !hasLat2 {
			return Params{}, fmt.Errorf("%s requires two standard parallels", method)
		}
	case MethodLambertConic1SP:
		if !hasLat0 {
			if !hasLat1 {
				return Params{}, fmt.Errorf("%s requires a latitude of origin", method)
			}
			p.Lat0 = p.Lat1
		}
	case MethodMercatorB:
		if !hasLat1 {
			return Params{}, fmt.Errorf("%s requires a standard parallel", method)
		}
	}
	if p.K0 <= 0 {
		return Params{}, fmt.Errorf("scale factor must be positive, got %g", p.K0)
	}
	return p, nil
}

func authorityCode(n *node) int {
	auth := n.child("AUTHORITY")
	if auth == nil || len(auth.args) < 2 || !strings.EqualFold(auth.args[0].str, "EPSG") {
		return 0
	}
	code := auth.args[1]
	if code.isNum {
		return int(code.num)
	}
	v, err := strconv.Atoi(strings.TrimSpace(code.str))
	if err != nil {
		return 0
	}
	return v
}
