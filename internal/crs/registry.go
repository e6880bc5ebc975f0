package crs

import "fmt"

// ftUS is the US survey foot in metres.
const ftUS = 0.3048006096012192

var (
	datumWGS84  = Datum{Name: "WGS_1984", Ellipsoid: WGS84Ellipsoid, ToWGS84: []float64{0, 0, 0, 0, 0, 0, 0}}
	datumNAD83  = Datum{Name: "North_American_Datum_1983", Ellipsoid: GRS80, ToWGS84: []float64{0, 0, 0, 0, 0, 0, 0}}
	datumETRS89 = Datum{Name: "European_Terrestrial_Reference_System_1989", Ellipsoid: GRS80, ToWGS84: []float64{0, 0, 0, 0, 0, 0, 0}}
	datumNAD27  = Datum{Name: "North_American_Datum_1927", Ellipsoid: Clarke1866, ToWGS84: []float64{-8, 160, 176, 0, 0, 0, 0}}
	datumOSGB36 = Datum{Name: "OSGB_1936", Ellipsoid: Airy1830, ToWGS84: []float64{446.448, -125.157, 542.06, 0.15, 0.247, 0.842, -20.489}}
	datumED50   = Datum{Name: "European_Datum_1950", Ellipsoid: International24, ToWGS84: []float64{-87, -98, -121, 0, 0, 0, 0}}
)

// knownDatums maps normalized datum names to default WGS84 shifts, used when
// a .prj names a datum but carries no TOWGS84 clause.
var knownDatums = map[string]Datum{
	"wgs1984":                                datumWGS84,
	"wgs84":                                  datumWGS84,
	"worldgeodeticsystem1984":                datumWGS84,
	"northamericandatum1983":                 datumNAD83,
	"northamerican1983":                      datumNAD83,
	"nad83":                                  datumNAD83,
	"europeanterrestrialreferencesystem1989": datumETRS89,
	"etrs1989":                               datumETRS89,
	"etrs89":                                 datumETRS89,
	"northamericandatum1927":                 datumNAD27,
	"northamerican1927":                      datumNAD27,
	"nad27":                                  datumNAD27,
	"osgb1936":                               datumOSGB36,
	"ordnancesurveyofgreatbritain1936":       datumOSGB36,
	"european1950":                           datumED50,
	"europeandatum1950":                      datumED50,
	"ed50":                                   datumED50,
}

func knownDatumShift(name string) ([]float64, bool) {
	n := normalizeName(name)
	d, ok := knownDatums[n]
	if !ok && len(n) > 1 && n[0] == 'd' {
		// ESRI prefixes datum names with "D_".
		d, ok = knownDatums[n[1:]]
	}
	if !ok {
		return nil, false
	}
	return append([]float64(nil), d.ToWGS84...), true
}

func geographic(code int, name string, d Datum) *CRS {
	return &CRS{
		Name:        name,
		EPSG:        code,
		Kind:        Geographic,
		Datum:       d,
		AngularUnit: degree,
		LinearUnit:  1,
	}
}

// projParams holds registry parameters in degrees and native linear units.
type projParams struct {
	lat0, lon0, lat1, lat2 float64
	k0                     float64
	fe, fn                 float64
}

func projected(code int, name string, d Datum, m Method, unit float64, p projParams) *CRS {
	c := geographic(code, name, d)
	c.Kind = Projected
	c.LinearUnit = unit
	c.Method = m
	k0 := p.k0
	if k0 == 0 {
		k0 = 1
	}
	c.Params = Params{
		Lat0:          radians(p.lat0),
		Lon0:          radians(p.lon0),
		Lat1:          radians(p.lat1),
		Lat2:          radians(p.lat2),
		K0:            k0,
		FalseEasting:  p.fe * unit,
		FalseNorthing: p.fn * unit,
	}
	return c
}

func utm(code int, name string, d Datum, zone int, south bool) *CRS {
	p := projParams{lon0: float64(-183 + 6*zone), k0: 0.9996, fe: 500000}
	if south {
		p.fn = 10000000
	}
	return projected(code, name, d, MethodTransverseMercator, 1, p)
}

// Lookup returns the built-in definition of an EPSG code.
func Lookup(code int) (*CRS, bool) {
	switch {
	case code >= 32601 && code <= 32660:
		z := code - 32600
		return utm(code, fmt.Sprintf("WGS 84 / UTM zone %dN", z), datumWGS84, z, false), true
	case code >= 32701 && code <= 32760:
		z := code - 32700
		return utm(code, fmt.Sprintf("WGS 84 / UTM zone %dS", z), datumWGS84, z, true), true
	case code >= 26901 && code <= 26923:
		z := code - 26900
		return utm(code, fmt.Sprintf("NAD83 / UTM zone %dN", z), datumNAD83, z, false), true
	case code >= 26701 && code <= 26722:
		z := code - 26700
		return utm(code, fmt.Sprintf("NAD27 / UTM zone %dN", z), datumNAD27, z, false), true
	case code >= 25828 && code <= 25838:
		z := code - 25800
		return utm(code, fmt.Sprintf("ETRS89 / UTM zone %dN", z), datumETRS89, z, false), true
	}

	switch code {
	case 4326:
		return geographic(code, "WGS 84", datumWGS84), true
	case 4269:
		return geographic(code, "NAD83", datumNAD83), true
	case 4258:
		return geographic(code, "ETRS89", datumETRS89), true
	case 4267:
		return geographic(code, "NAD27", datumNAD27), true
	case 4277:
		return geographic(code, "OSGB36", datumOSGB36), true
	case 4230:
		return geographic(code, "ED50", datumED50), true
	case 3857, 900913, 102100, 102113:
		return projected(code, "WGS 84 / Pseudo-Mercator", datumWGS84, MethodPseudoMercator, 1, projParams{}), true
	case 3395:
		return projected(code, "WGS 84 / World Mercator", datumWGS84, MethodMercatorA, 1, projParams{k0: 1}), true
	case 2272:
		return projected(code, "NAD83 / Pennsylvania South (ftUS)", datumNAD83, MethodLambertConic2SP, ftUS, projParams{
			lat0: 39 + 20.0/60, lon0: -77.75, lat1: 40 + 58.0/60, lat2: 39 + 56.0/60, fe: 1968500,
		}), true
	case 2271:
		return projected(code, "NAD83 / Pennsylvania North (ftUS)", datumNAD83, MethodLambertConic2SP, ftUS, projParams{
			lat0: 40 + 10.0/60, lon0: -77.75, lat1: 41 + 57.0/60, lat2: 40 + 53.0/60, fe: 1968500,
		}), true
	case 2263:
		return projected(code, "NAD83 / New York Long Island (ftUS)", datumNAD83, MethodLambertConic2SP, ftUS, projParams{
			lat0: 40 + 10.0/60, lon0: -74, lat1: 41 + 2.0/60, lat2: 40 + 40.0/60, fe: 984250,
		}), true
	case 27700:
		return projected(code, "OSGB36 / British National Grid", datumOSGB36, MethodTransverseMercator, 1, projParams{
			lat0: 49, lon0: -2, k0: 0.9996012717, fe: 400000, fn: -100000,
		}), true
	case 5070:
		return projected(code, "NAD83 / Conus Albers", datumNAD83, MethodAlbers, 1, projParams{
			lat0: 23, lon0: -96, lat1: 29.5, lat2: 45.5,
		}), true
	}
	return nil, false
}
