package reproject

import (
	"fmt"

	"github.com/couchcryptid/shp-geojson-service/internal/domain"
)

// Collection reprojects every feature geometry in fc. The input is not
// modified. Null geometries pass through.
func Collection(fc domain.FeatureCollection, t *Transformer) (domain.FeatureCollection, error) {
	out := domain.FeatureCollection{Features: make([]domain.Feature, len(fc.Features))}
	copy(out.Features, fc.Features)
	if t.Identity() {
		return out, nil
	}
	for i, f := range fc.Features {
		if f.Geometry.IsNull() {
			continue
		}
		g, err := f.Geometry.Transform(t.ToWGS84)
		if err != nil {
			return domain.FeatureCollection{}, fmt.Errorf("feature %d: %w", f.Index, err)
		}
		out.Features[i].Geometry = g
	}
	return out, nil
}
