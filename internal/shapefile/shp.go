package shapefile

import (
	"encoding/binary"
	"math"

	"github.com/couchcryptid/shp-geojson-service/internal/domain"
)

const (
	headerSize       = 100
	recordHeaderSize = 8
	fileCode         = 9994
	fileVersion      = 1000
)

var (
	be = binary.BigEndian
	le = binary.LittleEndian
)

// BBox is the header bounding box in source units.
type BBox struct {
	MinX, MinY, MaxX, MaxY float64
}

// Header is the fixed 100-byte .shp and .shx header.
type Header struct {
	// Length is the declared file length in bytes.
	Length    int
	ShapeType ShapeType
	BBox      BBox
}

// ReadHeader validates and decodes the main file header.
func ReadHeader(shp []byte) (Header, error) {
	if len(shp) < headerSize {
		return Header{}, domain.Errorf(domain.KindDecode, "shp header: need %d bytes, have %d", headerSize, len(shp))
	}
	if code := int32(be.Uint32(shp[0:4])); code != fileCode {
		return Header{}, domain.Errorf(domain.KindDecode, "shp header: file code %d, want %d", code, fileCode)
	}
	if v := int32(le.Uint32(shp[28:32])); v != fileVersion {
		return Header{}, domain.Errorf(domain.KindDecode, "shp header: version %d, want %d", v, fileVersion)
	}
	h := Header{
		Length:    int(be.Uint32(shp[24:28])) * 2,
		ShapeType: ShapeType(int32(le.Uint32(shp[32:36]))),
		BBox: BBox{
			MinX: f64(shp[36:]),
			MinY: f64(shp[44:]),
			MaxX: f64(shp[52:]),
			MaxY: f64(shp[60:]),
		},
	}
	if h.Length < headerSize {
		return Header{}, domain.Errorf(domain.KindDecode, "shp header: declared length %d is shorter than the header", h.Length)
	}
	if h.Length > len(shp) {
		return Header{}, domain.Errorf(domain.KindDecode, "shp header: declared length %d exceeds file size %d (truncated)", h.Length, len(shp))
	}
	if !h.ShapeType.Supported() {
		return Header{}, domain.Errorf(domain.KindDecode, "shp header: unsupported shape type %s", h.ShapeType)
	}
	return h, nil
}

// DecodeGeometries decodes every record of a .shp file in record order. A
// positive maxRecords aborts with a LimitExceededError once exceeded.
func DecodeGeometries(shp []byte, maxRecords int) ([]domain.Geometry, error) {
	h, err := ReadHeader(shp)
	if err != nil {
		return nil, err
	}

	var geoms []domain.Geometry
	off := headerSize
	for off < h.Length {
		recNo := len(geoms) + 1
		if maxRecords > 0 && recNo > maxRecords {
			return nil, domain.Errorf(domain.KindLimitExceeded, "shp has more than %d records", maxRecords)
		}
		if off+recordHeaderSize > h.Length {
			return nil, domain.Errorf(domain.KindDecode, "record %d: truncated record header", recNo)
		}
		contentLen := int(be.Uint32(shp[off+4:off+8])) * 2
		start := off + recordHeaderSize
		end := start + contentLen
		if contentLen < 4 || end > h.Length {
			return nil, domain.Errorf(domain.KindDecode, "record %d: content length %d overruns file", recNo, contentLen)
		}
		g, err := decodeRecord(shp[start:end], h.ShapeType)
		if err != nil {
			return nil, domain.Errorf(domain.KindDecode, "record %d: %w", recNo, err)
		}
		geoms = append(geoms, g)
		off = end
	}
	return geoms, nil
}

func f64(b []byte) float64 {
	return math.Float64frombits(le.Uint64(b))
}
