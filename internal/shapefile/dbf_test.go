package shapefile_test

import (
	"encoding/binary"
	"testing"

	"github.com/couchcryptid/shp-geojson-service/internal/domain"
	"github.com/couchcryptid/shp-geojson-service/internal/shapefile"
	"github.com/couchcryptid/shp-geojson-service/internal/shapefile/shptest"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

var latin1 = charmap.ISO8859_1.NewDecoder()

func TestReadDBF_FieldTypes(t *testing.T) {
	table := shptest.Table{
		Fields: []shptest.Field{
			{Name: "NAME", Type: 'C', Length: 12},
			{Name: "COUNT", Type: 'N', Length: 10},
			{Name: "RATIO", Type: 'N', Length: 12, Decimals: 3},
			{Name: "SCORE", Type: 'F', Length: 10, Decimals: 2},
			{Name: "ACTIVE", Type: 'L', Length: 1},
			{Name: "SINCE", Type: 'D', Length: 8},
			{Name: "SEQ", Type: 'I', Length: 4},
			{Name: "AREA", Type: 'O', Length: 8},
		},
		Rows: [][]any{
			{"  Alpha ", 42, 1.5, 2.25, true, "20240131", 7, 1234.5},
			{"", nil, nil, nil, "?", nil, -3, 0.0},
			{"Gamma", "**********", "", "", false, "00000000", 0, -1.25},
		},
	}

	got, err := shapefile.ReadDBF(table.Bytes(), latin1)
	require.NoError(t, err)

	want := []domain.Attributes{
		{
			{Name: "NAME", Value: "Alpha"}, {Name: "COUNT", Value: int64(42)}, {Name: "RATIO", Value: 1.5},
			{Name: "SCORE", Value: 2.25}, {Name: "ACTIVE", Value: true}, {Name: "SINCE", Value: "2024-01-31"},
			{Name: "SEQ", Value: int64(7)}, {Name: "AREA", Value: 1234.5},
		},
		{
			{Name: "NAME", Value: ""}, {Name: "COUNT", Value: nil}, {Name: "RATIO", Value: nil},
			{Name: "SCORE", Value: nil}, {Name: "ACTIVE", Value: nil}, {Name: "SINCE", Value: nil},
			{Name: "SEQ", Value: int64(-3)}, {Name: "AREA", Value: 0.0},
		},
		{
			{Name: "NAME", Value: "Gamma"}, {Name: "COUNT", Value: nil}, {Name: "RATIO", Value: nil},
			{Name: "SCORE", Value: nil}, {Name: "ACTIVE", Value: false}, {Name: "SINCE", Value: nil},
			{Name: "SEQ", Value: int64(0)}, {Name: "AREA", Value: -1.25},
		},
	}
	if diff := cmp.Diff(want, got.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, got.Fields, 8)
	assert.Equal(t, "RATIO", got.Fields[2].Name)
	assert.Equal(t, 3, got.Fields[2].Decimals)
}

func TestReadDBF_IntegerOverflowFallsBackToFloat(t *testing.T) {
	table := shptest.Table{
		Fields: []shptest.Field{{Name: "BIG", Type: 'N', Length: 25}},
		Rows:   [][]any{{"99999999999999999999"}},
	}
	got, err := shapefile.ReadDBF(table.Bytes(), latin1)
	require.NoError(t, err)
	assert.Equal(t, 1e20, got.Rows[0][0].Value)
}

func TestReadDBF_DeletedRowsAreKept(t *testing.T) {
	table := shptest.Table{
		Fields:  []shptest.Field{{Name: "ID", Type: 'N', Length: 4}},
		Rows:    [][]any{{1}, {2}, {3}},
		Deleted: map[int]bool{1: true},
	}
	got, err := shapefile.ReadDBF(table.Bytes(), latin1)
	require.NoError(t, err)
	require.Len(t, got.Rows, 3)
	assert.Equal(t, 1, got.Deleted)
	assert.Equal(t, int64(2), got.Rows[1][0].Value)
}

func TestReadDBF_Errors(t *testing.T) {
	base := func() []byte {
		return shptest.Table{
			Fields: []shptest.Field{{Name: "ID", Type: 'N', Length: 4}, {Name: "NAME", Type: 'C', Length: 8}},
			Rows:   [][]any{{1, "a"}, {2, "b"}},
		}.Bytes()
	}

	tests := []struct {
		name  string
		input func() []byte
		want  string
	}{
		{"short header", func() []byte { return base()[:20] }, "need 32 bytes"},
		{
			"record length mismatch",
			func() []byte { b := base(); binary.LittleEndian.PutUint16(b[10:], 20); return b },
			"field widths sum to 13",
		},
		{
			"truncated records",
			func() []byte { b := base(); return b[:len(b)-10] },
			"truncated",
		},
		{
			"unsupported field type",
			func() []byte { b := base(); b[32+11] = 'T'; return b },
			"unsupported type",
		},
		{
			"invalid number",
			func() []byte {
				return shptest.Table{
					Fields: []shptest.Field{{Name: "ID", Type: 'N', Length: 4}},
					Rows:   [][]any{{"12x"}},
				}.Bytes()
			},
			`invalid number "12x"`,
		},
		{
			"invalid date",
			func() []byte {
				return shptest.Table{
					Fields: []shptest.Field{{Name: "D", Type: 'D', Length: 8}},
					Rows:   [][]any{{"20241340"}},
				}.Bytes()
			},
			"invalid date",
		},
		{
			"duplicate field",
			func() []byte {
				return shptest.Table{
					Fields: []shptest.Field{{Name: "A", Type: 'C', Length: 1}, {Name: "A", Type: 'C', Length: 1}},
				}.Bytes()
			},
			"duplicate field",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := shapefile.ReadDBF(tt.input(), latin1)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrDecode)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCharset(t *testing.T) {
	tests := []struct {
		name string
		cpg  string
		ldid byte
		raw  string
		want string
	}{
		{"utf-8 cpg", "UTF-8", 0, "caf\xc3\xa9", "café"},
		{"windows 1252 number", "1252", 0, "caf\xe9 \x80", "café €"},
		{"ansi prefix", "ANSI 1251\r\n", 0, "\xcc\xee\xf1\xea\xe2\xe0", "Москва"},
		{"iso name", "ISO-8859-1", 0, "M\xfcnchen", "München"},
		{"language driver cyrillic", "", 0xC9, "\xcc\xee\xf1\xea\xe2\xe0", "Москва"},
		{"language driver latin1", "", 0x57, "S\xe3o Paulo", "São Paulo"},
		{"unknown cpg uses language driver", "NOT-A-CHARSET", 0x03, "\x80", "€"},
		{"default latin1", "", 0, "Z\xfcrich", "Zürich"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := shapefile.Charset([]byte(tt.cpg), tt.ldid).String(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadDBF_DecodesTextWithCharset(t *testing.T) {
	table := shptest.Table{
		Fields: []shptest.Field{{Name: "NAME", Type: 'C', Length: 10}},
		Rows:   [][]any{{"Besan\xe7on"}},
	}
	got, err := shapefile.ReadDBF(table.Bytes(), shapefile.Charset([]byte("1252"), 0))
	require.NoError(t, err)
	assert.Equal(t, "Besançon", got.Rows[0][0].Value)
}
