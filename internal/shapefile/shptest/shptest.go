// Package shptest writes small shapefile bundles in memory for tests.
package shptest

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"io/fs"
	"math"
	"strconv"

	"github.com/couchcryptid/shp-geojson-service/internal/domain"
	"github.com/couchcryptid/shp-geojson-service/internal/shapefile"
)

var (
	be = binary.BigEndian
	le = binary.LittleEndian
)

// Shape is one record. Points use Parts[0][0]; multipoints use Parts[0].
type Shape struct {
	Null  bool
	Parts [][]domain.Coord
}

// Ring is a convenience for building a closed ring from x, y pairs.
func Ring(xy ...float64) []domain.Coord {
	r := make([]domain.Coord, 0, len(xy)/2)
	for i := 0; i+1 < len(xy); i += 2 {
		r = append(r, domain.Coord{X: xy[i], Y: xy[i+1]})
	}
	return r
}

// Square returns a closed clockwise ring with lower-left corner (x, y).
func Square(x, y, size float64) []domain.Coord {
	return Ring(x, y, x, y+size, x+size, y+size, x+size, y, x, y)
}

// Reverse returns the ring in the opposite direction.
func Reverse(r []domain.Coord) []domain.Coord {
	out := make([]domain.Coord, len(r))
	for i, c := range r {
		out[len(r)-1-i] = c
	}
	return out
}

// SHP encodes shapes as a .shp file and its .shx index.
func SHP(st shapefile.ShapeType, shapes []Shape) (shp, shx []byte) {
	var records [][]byte
	for _, s := range shapes {
		records = append(records, encodeShape(st, s))
	}

	var body bytes.Buffer
	index := make([]byte, 0, 8*len(records))
	offset := 100
	for i, rec := range records {
		var h [8]byte
		be.PutUint32(h[0:], uint32(i+1))
		be.PutUint32(h[4:], uint32(len(rec)/2))
		body.Write(h[:])
		body.Write(rec)
		index = be.AppendUint32(index, uint32(offset/2))
		index = be.AppendUint32(index, uint32(len(rec)/2))
		offset += 8 + len(rec)
	}

	box := bounds(shapes)
	shp = append(header(st, 100+body.Len(), box), body.Bytes()...)
	shx = append(header(st, 100+len(index), box), index...)
	return shp, shx
}

func header(st shapefile.ShapeType, length int, box [4]float64) []byte {
	h := make([]byte, 100)
	be.PutUint32(h[0:], 9994)
	be.PutUint32(h[24:], uint32(length/2))
	le.PutUint32(h[28:], 1000)
	le.PutUint32(h[32:], uint32(st))
	for i, v := range box {
		le.PutUint64(h[36+8*i:], math.Float64bits(v))
	}
	return h
}

func bounds(shapes []Shape) [4]float64 {
	box := [4]float64{math.Inf(1), math.Inf(1), math.Inf(-1), math.Inf(-1)}
	for _, s := range shapes {
		for _, p := range s.Parts {
			for _, c := range p {
				box[0], box[1] = math.Min(box[0], c.X), math.Min(box[1], c.Y)
				box[2], box[3] = math.Max(box[2], c.X), math.Max(box[3], c.Y)
			}
		}
	}
	if math.IsInf(box[0], 0) {
		return [4]float64{}
	}
	return box
}

type writer struct{ b []byte }

func (w *writer) i32(v int) { w.b = le.AppendUint32(w.b, uint32(int32(v))) }
func (w *writer) f64(v float64) { w.b = le.AppendUint64(w.b, math.Float64bits(v)) }

func encodeShape(st shapefile.ShapeType, s Shape) []byte {
	w := &writer{}
	if s.Null {
		w.i32(int(shapefile.Null))
		return w.b
	}
	w.i32(int(st))

	var pts []domain.Coord
	for _, p := range s.Parts {
		pts = append(pts, p...)
	}

	if st.Base() == shapefile.Point {
		w.f64(pts[0].X)
		w.f64(pts[0].Y)
		if st.HasZ() {
			w.f64(pts[0].Z)
		}
		if st.HasM() {
			w.f64(0)
		}
		return w.b
	}

	box := bounds([]Shape{s})
	for _, v := range box {
		w.f64(v)
	}
	if st.Base() != shapefile.MultiPoint {
		w.i32(len(s.Parts))
	}
	w.i32(len(pts))
	if st.Base() != shapefile.MultiPoint {
		start := 0
		for _, p := range s.Parts {
			w.i32(start)
			start += len(p)
		}
	}
	for _, c := range pts {
		w.f64(c.X)
		w.f64(c.Y)
	}
	if st.HasZ() {
		zmin, zmax := math.Inf(1), math.Inf(-1)
		for _, c := range pts {
			zmin, zmax = math.Min(zmin, c.Z), math.Max(zmax, c.Z)
		}
		w.f64(zmin)
		w.f64(zmax)
		for _, c := range pts {
			w.f64(c.Z)
		}
	}
	if st.HasM() {
		w.f64(0)
		w.f64(0)
		for range pts {
			w.f64(0)
		}
	}
	return w.b
}

// Field describes a .dbf column.
type Field struct {
	Name     string
	Type     byte
	Length   int
	Decimals int
}

// Table is a .dbf attribute table. Row values may be nil (blank), string
// (written verbatim), int or int64, float64, or bool.
type Table struct {
	Fields         []Field
	Rows           [][]any
	Deleted        map[int]bool
	LanguageDriver byte
}

// Bytes encodes the table as a dBASE III file.
func (t Table) Bytes() []byte {
	recLen := 1
	for _, f := range t.Fields {
		recLen += f.Length
	}
	hdrLen := 32 + 32*len(t.Fields) + 1

	b := make([]byte, 32, hdrLen+recLen*len(t.Rows)+1)
	b[0] = 0x03
	b[1], b[2], b[3] = 124, 1, 1
	le.PutUint32(b[4:], uint32(len(t.Rows)))
	le.PutUint16(b[8:], uint16(hdrLen))
	le.PutUint16(b[10:], uint16(recLen))
	b[29] = t.LanguageDriver
	for _, f := range t.Fields {
		d := make([]byte, 32)
		copy(d[:11], f.Name)
		d[11] = f.Type
		d[16] = byte(f.Length)
		d[17] = byte(f.Decimals)
		b = append(b, d...)
	}
	b = append(b, 0x0D)

	for i, row := range t.Rows {
		flag := byte(' ')
		if t.Deleted[i] {
			flag = '*'
		}
		b = append(b, flag)
		for j, f := range t.Fields {
			b = append(b, cell(f, row[j])...)
		}
	}
	return append(b, 0x1A)
}

func cell(f Field, v any) []byte {
	switch x := v.(type) {
	case int:
		return cell(f, int64(x))
	case int64:
		if f.Type == 'I' {
			return le.AppendUint32(nil, uint32(int32(x)))
		}
		return pad(strconv.FormatInt(x, 10), f.Length, true)
	case float64:
		if f.Type == 'O' {
			return le.AppendUint64(nil, math.Float64bits(x))
		}
		return pad(strconv.FormatFloat(x, 'f', f.Decimals, 64), f.Length, true)
	case bool:
		if x {
			return pad("T", f.Length, false)
		}
		return pad("F", f.Length, false)
	case string:
		return pad(x, f.Length, f.Type == 'N' || f.Type == 'F')
	}
	return pad("", f.Length, false)
}

func pad(s string, n int, right bool) []byte {
	if len(s) > n {
		s = s[:n]
	}
	out := bytes.Repeat([]byte{' '}, n)
	if right {
		copy(out[n-len(s):], s)
	} else {
		copy(out, s)
	}
	return out
}

// Entry is one file inside a zip archive.
type Entry struct {
	Name string
	Data []byte
	Mode fs.FileMode
}

// Zip packs entries in order.
func Zip(entries ...Entry) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		fh := &zip.FileHeader{Name: e.Name, Method: zip.Deflate}
		if e.Mode != 0 {
			fh.SetMode(e.Mode)
		}
		w, err := zw.CreateHeader(fh)
		if err != nil {
			panic(err)
		}
		if _, err := w.Write(e.Data); err != nil {
			panic(err)
		}
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Dataset is a complete shapefile bundle.
type Dataset struct {
	Name   string
	Type   shapefile.ShapeType
	Shapes []Shape
	Table  Table
	PRJ    string
	CPG    string
	NoSHX  bool
}

// Entries returns the bundle's component files. Empty PRJ and CPG are
// omitted.
func (d Dataset) Entries() []Entry {
	shp, shx := SHP(d.Type, d.Shapes)
	entries := []Entry{{Name: d.Name + ".shp", Data: shp}}
	if !d.NoSHX {
		entries = append(entries, Entry{Name: d.Name + ".shx", Data: shx})
	}
	entries = append(entries, Entry{Name: d.Name + ".dbf", Data: d.Table.Bytes()})
	if d.PRJ != "" {
		entries = append(entries, Entry{Name: d.Name + ".prj", Data: []byte(d.PRJ)})
	}
	if d.CPG != "" {
		entries = append(entries, Entry{Name: d.Name + ".cpg", Data: []byte(d.CPG)})
	}
	return entries
}

// Zip packs the bundle into an archive.
func (d Dataset) Zip() []byte {
	return Zip(d.Entries()...)
}
