package shapefile

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/shp-geojson-service/internal/domain"
	"golang.org/x/text/encoding"
)

const (
	dbfHeaderSize     = 32
	dbfDescriptorSize = 32
	dbfTerminator     = 0x0D
	dbfDeleted        = '*'
)

// Field is one dBASE column descriptor.
type Field struct {
	Name     string
	Type     byte
	Length   int
	Decimals int
}

// DBFHeader is the fixed part of a .dbf header.
type DBFHeader struct {
	Version      byte
	Records      int
	HeaderLength int
	RecordLength int
	// LanguageDriver is the code page hint used when no .cpg is present.
	LanguageDriver byte
}

// Table is a decoded attribute table. Rows are in file order and include
// rows flagged as deleted.
type Table struct {
	Header  DBFHeader
	Fields  []Field
	Rows    []domain.Attributes
	Deleted int
}

// ReadDBFHeader decodes only the fixed header, which is enough to size the
// table before decoding it.
func ReadDBFHeader(dbf []byte) (DBFHeader, error) {
	if len(dbf) < dbfHeaderSize {
		return DBFHeader{}, domain.Errorf(domain.KindDecode, "dbf header: need %d bytes, have %d", dbfHeaderSize, len(dbf))
	}
	h := DBFHeader{
		Version:        dbf[0],
		Records:        int(le.Uint32(dbf[4:8])),
		HeaderLength:   int(le.Uint16(dbf[8:10])),
		RecordLength:   int(le.Uint16(dbf[10:12])),
		LanguageDriver: dbf[29],
	}
	if h.HeaderLength < dbfHeaderSize+1 || h.HeaderLength > len(dbf) {
		return DBFHeader{}, domain.Errorf(domain.KindDecode, "dbf header: header length %d out of range", h.HeaderLength)
	}
	if h.RecordLength < 1 {
		return DBFHeader{}, domain.Errorf(domain.KindDecode, "dbf header: record length %d", h.RecordLength)
	}
	return h, nil
}

// ReadDBF decodes the attribute table, converting text with dec.
func ReadDBF(dbf []byte, dec *encoding.Decoder) (*Table, error) {
	h, err := ReadDBFHeader(dbf)
	if err != nil {
		return nil, err
	}
	fields, err := readFields(dbf[:h.HeaderLength], dec)
	if err != nil {
		return nil, err
	}
	width := 1
	for _, f := range fields {
		width += f.Length
	}
	if width != h.RecordLength {
		return nil, domain.Errorf(domain.KindDecode, "dbf: field widths sum to %d, header declares record length %d", width, h.RecordLength)
	}
	if need := h.HeaderLength + h.Records*h.RecordLength; need > len(dbf) {
		return nil, domain.Errorf(domain.KindDecode, "dbf: %d records need %d bytes, have %d (truncated)", h.Records, need, len(dbf))
	}

	t := &Table{Header: h, Fields: fields, Rows: make([]domain.Attributes, h.Records)}
	for i := range h.Records {
		rec := dbf[h.HeaderLength+i*h.RecordLength : h.HeaderLength+(i+1)*h.RecordLength]
		if rec[0] == dbfDeleted {
			t.Deleted++
		}
		row := make(domain.Attributes, len(fields))
		off := 1
		for j, f := range fields {
			v, err := parseValue(f, rec[off:off+f.Length], dec)
			if err != nil {
				return nil, domain.Errorf(domain.KindDecode, "dbf row %d field %q: %w", i, f.Name, err)
			}
			row[j] = domain.Attribute{Name: f.Name, Value: v}
			off += f.Length
		}
		t.Rows[i] = row
	}
	return t, nil
}

func readFields(header []byte, dec *encoding.Decoder) ([]Field, error) {
	var fields []Field
	seen := make(map[string]bool)
	for off := dbfHeaderSize; ; off += dbfDescriptorSize {
		if off >= len(header) {
			return nil, domain.Errorf(domain.KindDecode, "dbf: field descriptors are not terminated")
		}
		if header[off] == dbfTerminator {
			return fields, nil
		}
		if off+dbfDescriptorSize > len(header) {
			return nil, domain.Errorf(domain.KindDecode, "dbf: truncated field descriptor %d", len(fields))
		}
		d := header[off : off+dbfDescriptorSize]
		raw := d[:11]
		if i := bytes.IndexByte(raw, 0); i >= 0 {
			raw = raw[:i]
		}
		name, err := dec.Bytes(raw)
		if err != nil {
			return nil, domain.Errorf(domain.KindDecode, "dbf: field name %d: %w", len(fields), err)
		}
		f := Field{
			Name:     strings.TrimSpace(string(name)),
			Type:     d[11],
			Length:   int(d[16]),
			Decimals: int(d[17]),
		}
		if f.Name == "" {
			return nil, domain.Errorf(domain.KindDecode, "dbf: field %d has no name", len(fields))
		}
		if seen[f.Name] {
			return nil, domain.Errorf(domain.KindDecode, "dbf: duplicate field name %q", f.Name)
		}
		if !strings.ContainsRune("CNFLDIOM", rune(f.Type)) {
			return nil, domain.Errorf(domain.KindDecode, "dbf: field %q has unsupported type %q", f.Name, f.Type)
		}
		if f.Length == 0 {
			return nil, domain.Errorf(domain.KindDecode, "dbf: field %q has zero width", f.Name)
		}
		seen[f.Name] = true
		fields = append(fields, f)
	}
}

func parseValue(f Field, raw []byte, dec *encoding.Decoder) (any, error) {
	switch f.Type {
	case 'C', 'M':
		b, err := dec.Bytes(bytes.TrimRight(raw, " \x00"))
		if err != nil {
			return nil, err
		}
		if f.Type == 'M' && len(bytes.TrimSpace(b)) == 0 {
			return nil, nil
		}
		return strings.TrimSpace(string(b)), nil
	case 'N', 'F':
		return parseNumber(f, raw)
	case 'L':
		return parseLogical(raw)
	case 'D':
		return parseDate(raw)
	case 'I':
		if len(raw) != 4 {
			return nil, fmt.Errorf("integer field width %d, want 4", len(raw))
		}
		return int64(int32(le.Uint32(raw))), nil
	case 'O':
		if len(raw) != 8 {
			return nil, fmt.Errorf("double field width %d, want 8", len(raw))
		}
		v := f64(raw)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, nil
		}
		return v, nil
	}
	return nil, fmt.Errorf("unsupported type %q", f.Type)
}

func parseNumber(f Field, raw []byte) (any, error) {
	s := strings.TrimSpace(string(bytes.Trim(raw, "\x00")))
	if s == "" || strings.Trim(s, "*") == "" {
		return nil, nil
	}
	if f.Type == 'N' && f.Decimals == 0 {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil {
			return v, nil
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("non-finite number %q", s)
	}
	return v, nil
}

func parseLogical(raw []byte) (any, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return nil, nil
	}
	switch s[0] {
	case 'Y', 'y', 'T', 't':
		return true, nil
	case 'N', 'n', 'F', 'f':
		return false, nil
	case '?':
		return nil, nil
	}
	return nil, fmt.Errorf("invalid logical %q", s)
}

func parseDate(raw []byte) (any, error) {
	s := strings.TrimSpace(string(bytes.Trim(raw, "\x00")))
	if s == "" || s == "00000000" {
		return nil, nil
	}
	d, err := time.Parse("20060102", s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q", s)
	}
	return d.Format(time.DateOnly), nil
}
