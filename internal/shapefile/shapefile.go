package shapefile

import "github.com/couchcryptid/shp-geojson-service/internal/domain"

// Dataset is a fully decoded shapefile in source coordinates.
type Dataset struct {
	Header   Header
	Fields   []Field
	Features []domain.Feature
	// Deleted counts rows flagged as deleted in the .dbf. They are still
	// present in Features.
	Deleted int
}

// Collection returns the features as a collection.
func (d *Dataset) Collection() domain.FeatureCollection {
	return domain.FeatureCollection{Features: d.Features}
}

// Decode pairs .shp records with .dbf rows. The record ceiling is checked
// against the .dbf header before any geometry is decoded.
func Decode(shp, dbf, cpg []byte, maxRecords int) (*Dataset, error) {
	h, err := ReadHeader(shp)
	if err != nil {
		return nil, err
	}
	dh, err := ReadDBFHeader(dbf)
	if err != nil {
		return nil, err
	}
	if maxRecords > 0 && dh.Records > maxRecords {
		return nil, domain.Errorf(domain.KindLimitExceeded, "dbf declares %d records, limit is %d", dh.Records, maxRecords)
	}

	geoms, err := DecodeGeometries(shp, maxRecords)
	if err != nil {
		return nil, err
	}
	table, err := ReadDBF(dbf, Charset(cpg, dh.LanguageDriver))
	if err != nil {
		return nil, err
	}
	if len(geoms) != len(table.Rows) {
		return nil, domain.Errorf(domain.KindDecode, "shp has %d records but dbf has %d rows", len(geoms), len(table.Rows))
	}

	features := make([]domain.Feature, len(geoms))
	for i, g := range geoms {
		features[i] = domain.Feature{Index: i, Geometry: g, Properties: table.Rows[i]}
	}
	return &Dataset{Header: h, Fields: table.Fields, Features: features, Deleted: table.Deleted}, nil
}
