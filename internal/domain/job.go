package domain

import (
	"context"
	"time"
)

// UploadJob is a zipped shapefile bundle consumed from the source topic.
type UploadJob struct {
	Key       []byte
	Archive   []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// ResultMessage is the serialized conversion outcome destined for the sink
// topic. Value holds either the GeoJSON document or an error payload.
type ResultMessage struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// Conversion is the outcome of converting one archive.
type Conversion struct {
	// Document is the encoded GeoJSON FeatureCollection.
	Document []byte
	Features int
	// Source is the base name of the .shp file inside the archive.
	Source string
	// CRS names the source coordinate reference system.
	CRS string
}

// Converter turns a zipped shapefile bundle into a GeoJSON document.
type Converter interface {
	Convert(ctx context.Context, archive []byte) (Conversion, error)
}
