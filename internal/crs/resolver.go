package crs

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/couchcryptid/shp-geojson-service/internal/domain"
)

var epsgPattern = regexp.MustCompile(`(?i)^\s*EPSG\s*:\s*(\d+)\s*$`)

// Resolver turns .prj contents into a CRS. When a bundle has no .prj the
// Fallback is used; a nil Fallback makes a missing .prj an error.
type Resolver struct {
	Fallback *CRS
}

// NewResolver builds a resolver whose fallback is given as an EPSG:code or
// WKT string. An empty fallback disables it.
func NewResolver(fallback string) (*Resolver, error) {
	if strings.TrimSpace(fallback) == "" {
		return &Resolver{}, nil
	}
	c, err := Parse(fallback)
	if err != nil {
		return nil, fmt.Errorf("parse CRS fallback: %w", err)
	}
	return &Resolver{Fallback: c}, nil
}

// Resolve returns the CRS described by prj. A nil prj means the bundle
// carried no .prj and the fallback applies. A .prj that is present but blank
// is an error regardless of the fallback.
func (r *Resolver) Resolve(prj []byte) (*CRS, error) {
	if prj == nil {
		if r.Fallback == nil {
			return nil, domain.Errorf(domain.KindCRS, "bundle has no .prj and no fallback CRS is configured")
		}
		return r.Fallback, nil
	}
	prj = bytes.TrimPrefix(prj, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(prj)) == 0 {
		return nil, domain.Errorf(domain.KindCRS, ".prj is empty")
	}
	c, err := Parse(string(prj))
	if err != nil {
		return nil, domain.Errorf(domain.KindCRS, "resolve .prj: %w", err)
	}
	return c, nil
}

// Parse reads either an "EPSG:<code>" reference or a WKT1 definition.
func Parse(s string) (*CRS, error) {
	if m := epsgPattern.FindStringSubmatch(s); m != nil {
		code, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, fmt.Errorf("invalid EPSG code %q", m[1])
		}
		c, ok := Lookup(code)
		if !ok {
			return nil, fmt.Errorf("unknown EPSG code %d", code)
		}
		return c, nil
	}
	root, err := parseWKT(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("parse WKT: %w", err)
	}
	return fromWKT(root)
}
