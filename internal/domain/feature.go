package domain

// Attribute is one named cell of a dBASE row.
type Attribute struct {
	Name  string
	Value any
}

// Attributes is an ordered attribute row. Order follows the .dbf field
// descriptors and is preserved through to GeoJSON output.
type Attributes []Attribute

// Get returns the value of the named attribute.
func (a Attributes) Get(name string) (any, bool) {
	for _, attr := range a {
		if attr.Name == name {
			return attr.Value, true
		}
	}
	return nil, false
}

// Feature pairs the geometry of shapefile record Index with its attribute row.
type Feature struct {
	Index      int
	Geometry   Geometry
	Properties Attributes
}

// FeatureCollection is an ordered list of features in record order.
type FeatureCollection struct {
	Features []Feature
}
