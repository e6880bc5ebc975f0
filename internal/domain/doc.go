// Package domain models the data that flows through a shapefile-to-GeoJSON
// conversion: decoded geometries, their attribute rows, and the errors a
// conversion can fail with.
//
// # Shapefile Conventions
//
// A shapefile "dataset" is a group of sibling files sharing a base name:
//
//	name.shp  geometry records (required)
//	name.dbf  dBASE attribute table, one row per record (required)
//	name.prj  WKT coordinate reference system (optional)
//	name.cpg  attribute text encoding, e.g. "UTF-8" or "1252" (optional)
//	name.shx  record offset index (optional, used for sizing only)
//
// Record i in the .shp pairs with row i in the .dbf. Deleted dBASE rows are
// still emitted so that pairing holds.
//
// Polygon rings are stored as flat part lists. Outer rings wind clockwise and
// holes wind counter-clockwise in the source coordinate plane; grouping rings
// into polygons is done by the shapefile decoder, not by this package.
//
// # Coordinates
//
// Coord carries X (easting or longitude), Y (northing or latitude) and an
// optional Z. Measure (M) values are read past and dropped. After
// reprojection X is longitude and Y is latitude in decimal degrees on WGS84.
//
// # Attribute Values
//
// Attribute values are one of: string, int64, float64, bool, or nil. Dates are
// rendered as "YYYY-MM-DD" strings. Blank numeric, logical and date cells are
// nil.
package domain
